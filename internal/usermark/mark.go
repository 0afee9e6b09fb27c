package usermark

import (
	"time"

	"github.com/OCAP2/bookmarks/pkg/core"
)

// UserMark is a non-bookmark mark living in a built-in layer.
// Track info and track selection marks also point at their track.
type UserMark struct {
	id      core.MarkID
	typ     Type
	point   core.LatLon
	groupID core.GroupID
	trackID core.TrackID
	// distance along the track, for track selection marks
	distance float64
	dirty    bool
}

// NewUserMark creates a mark of type t. The mark starts dirty.
func NewUserMark(id core.MarkID, t Type, point core.LatLon) *UserMark {
	if t == TypeBookmark {
		panic("usermark: bookmarks are created with NewBookmark")
	}
	return &UserMark{id: id, typ: t, point: point, groupID: LayerID(t), dirty: true}
}

func (m *UserMark) ID() core.MarkID { return m.id }
func (m *UserMark) Type() Type { return m.typ }
func (m *UserMark) Point() core.LatLon { return m.point }
func (m *UserMark) GroupID() core.GroupID { return m.groupID }
func (m *UserMark) TrackID() core.TrackID { return m.trackID }
func (m *UserMark) Distance() float64 { return m.distance }
func (m *UserMark) IsDirty() bool { return m.dirty }
func (m *UserMark) ResetChanges() { m.dirty = false }
func (m *UserMark) SetDirty() { m.dirty = true }
func (m *UserMark) IsTrackMark() bool { return m.trackID != core.InvalidTrackID }

// SetTrackID binds a track info or selection mark to its track.
func (m *UserMark) SetTrackID(id core.TrackID) {
	m.trackID = id
	m.dirty = true
}

func (m *UserMark) SetPoint(p core.LatLon) {
	if m.point == p {
		return
	}
	m.point = p
	m.dirty = true
}

// SetPosition moves a track mark to a point at the given distance along its track.
func (m *UserMark) SetPosition(p core.LatLon, distance float64) {
	m.point = p
	m.distance = distance
	m.dirty = true
}

// Bookmark is a user-saved place.
type Bookmark struct {
	data    core.BookmarkData
	groupID core.GroupID
	// compilation group ids; core.BookmarkData.Compilations holds the file-local ids
	compilations GroupIDSet
	visible      bool
	dirty        bool
}

// NewBookmark wraps data. data.ID must already be allocated.
func NewBookmark(data core.BookmarkData) *Bookmark {
	if data.ID == core.InvalidMarkID {
		panic("usermark: bookmark without id")
	}
	return &Bookmark{
		data:         data,
		compilations: make(GroupIDSet),
		visible:      true,
		dirty:        true,
	}
}

func (b *Bookmark) ID() core.MarkID { return b.data.ID }
func (b *Bookmark) GroupID() core.GroupID { return b.groupID }
func (b *Bookmark) IsDirty() bool { return b.dirty }
func (b *Bookmark) ResetChanges() { b.dirty = false }
func (b *Bookmark) SetDirty() { b.dirty = true }

// Data returns a copy of the bookmark data.
func (b *Bookmark) Data() core.BookmarkData {
	out := b.data.Clone()
	out.Visible = b.visible
	return out
}

func (b *Bookmark) Name() string { return b.data.Name.Default() }
func (b *Bookmark) PreferredName() string { return b.data.PreferredName() }
func (b *Bookmark) Description() string { return b.data.Description.Default() }
func (b *Bookmark) Point() core.LatLon { return b.data.Point }
func (b *Bookmark) Color() core.PredefinedColor { return b.data.Color.Predefined }
func (b *Bookmark) Icon() core.BookmarkIcon { return b.data.Icon }
func (b *Bookmark) Timestamp() time.Time { return b.data.Timestamp }
func (b *Bookmark) FeatureTypes() []uint32 { return b.data.FeatureTypes }
func (b *Bookmark) Address() string { return b.data.Address }
func (b *Bookmark) Scale() uint8 { return b.data.ViewportScale }

// SetGroupID records the owning category. Only the manager calls it,
// together with the matching Group.AttachMark.
func (b *Bookmark) SetGroupID(id core.GroupID) {
	b.groupID = id
	b.dirty = true
}

// SetData replaces the data, keeping the id.
func (b *Bookmark) SetData(data core.BookmarkData) {
	data.ID = b.data.ID
	b.data = data
	b.dirty = true
}

func (b *Bookmark) SetName(name string) {
	b.data.Name = core.NewLocalizableString(name)
	b.dirty = true
}

func (b *Bookmark) SetCustomName(name string) {
	b.data.CustomName = core.NewLocalizableString(name)
	b.dirty = true
}

func (b *Bookmark) SetDescription(desc string) {
	b.data.Description = core.NewLocalizableString(desc)
	b.dirty = true
}

func (b *Bookmark) SetPoint(p core.LatLon) {
	b.data.Point = p
	b.dirty = true
}

func (b *Bookmark) SetColor(c core.PredefinedColor) {
	b.data.Color = core.ColorData{Predefined: c}
	b.dirty = true
}

func (b *Bookmark) SetIcon(i core.BookmarkIcon) {
	b.data.Icon = i
	b.dirty = true
}

func (b *Bookmark) SetTimestamp(t time.Time) {
	b.data.Timestamp = t
	b.dirty = true
}

func (b *Bookmark) SetFeatureTypes(types []uint32) {
	b.data.FeatureTypes = append([]uint32(nil), types...)
	b.dirty = true
}

func (b *Bookmark) SetScale(s uint8) {
	b.data.ViewportScale = s
	b.dirty = true
}

// SetAddress caches the resolved region address. It is not a user edit.
func (b *Bookmark) SetAddress(addr string) {
	b.data.Address = addr
}

// CompilationIDs returns the compilation groups the bookmark belongs to.
func (b *Bookmark) CompilationIDs() []core.GroupID { return b.compilations.Sorted() }

func (b *Bookmark) HasCompilations() bool { return b.compilations.Len() > 0 }

func (b *Bookmark) InCompilation(id core.GroupID) bool { return b.compilations.Has(id) }

func (b *Bookmark) AttachCompilation(id core.GroupID) {
	if b.compilations.Add(id) {
		b.dirty = true
	}
}

func (b *Bookmark) DetachCompilation(id core.GroupID) {
	if b.compilations.Remove(id) {
		b.dirty = true
	}
}

// IsVisible is the visibility inferred from the bookmark's compilations.
// The owning category's visibility is applied on top by the caller.
func (b *Bookmark) IsVisible() bool { return b.visible }

// SetVisible stores the inferred visibility and reports whether it changed.
func (b *Bookmark) SetVisible(v bool) bool {
	if b.visible == v {
		return false
	}
	b.visible = v
	b.dirty = true
	return true
}
