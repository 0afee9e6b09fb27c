package usermark

import (
	"fmt"
	"time"

	"github.com/OCAP2/bookmarks/pkg/core"
)

// GroupKind tags the variant of a Group.
type GroupKind uint8

const (
	KindLayer GroupKind = iota
	KindCategory
	KindCompilation
)

func (k GroupKind) String() string {
	switch k {
	case KindLayer:
		return "layer"
	case KindCategory:
		return "category"
	case KindCompilation:
		return "compilation"
	}
	return "unknown"
}

// Group owns the membership of marks and tracks.
//
// A layer holds non-bookmark user marks of one type. A category is the
// user-facing bookmark list backed by one file. A compilation is a
// sub-grouping of a category; its members also belong to the parent.
type Group struct {
	id   core.GroupID
	kind GroupKind

	marks  MarkIDSet
	tracks TrackIDSet

	visible           bool
	visibilityChanged bool
	dirty             bool

	// category and compilation state
	data     core.CategoryData
	autoSave bool
	fileName string
	serverID string
	parentID core.GroupID
}

// NewLayer creates the built-in layer for marks of type t.
func NewLayer(t Type) *Group {
	id := LayerID(t)
	if id == core.InvalidGroupID {
		panic(fmt.Sprintf("usermark: no layer for type %s", t))
	}
	return &Group{
		id:      id,
		kind:    KindLayer,
		marks:   make(MarkIDSet),
		tracks:  make(TrackIDSet),
		visible: true,
	}
}

// NewCategory creates a category. data.ID must be allocated.
func NewCategory(data core.CategoryData, autoSave bool) *Group {
	return newBookmarkGroup(KindCategory, data, autoSave)
}

// NewCompilation creates a compilation owned by parent.
// The access rules and author are copied from the parent's data.
func NewCompilation(data core.CategoryData, parent *Group) *Group {
	if parent == nil || parent.kind != KindCategory {
		panic("usermark: compilation needs a parent category")
	}
	data.AccessRules = parent.data.AccessRules
	data.AuthorID = parent.data.AuthorID
	data.AuthorName = parent.data.AuthorName
	g := newBookmarkGroup(KindCompilation, data, false)
	g.parentID = parent.id
	return g
}

func newBookmarkGroup(kind GroupKind, data core.CategoryData, autoSave bool) *Group {
	if !IsBookmarkGroupID(data.ID) {
		panic(fmt.Sprintf("usermark: %s id %d is in the layer range", kind, data.ID))
	}
	return &Group{
		id:       data.ID,
		kind:     kind,
		marks:    make(MarkIDSet),
		tracks:   make(TrackIDSet),
		visible:  data.Visible,
		dirty:    true,
		data:     data,
		autoSave: autoSave,
	}
}

func (g *Group) ID() core.GroupID { return g.id }
func (g *Group) Kind() GroupKind { return g.kind }
func (g *Group) IsLayer() bool { return g.kind == KindLayer }
func (g *Group) IsCategory() bool { return g.kind == KindCategory }
func (g *Group) IsCompilation() bool { return g.kind == KindCompilation }
func (g *Group) MarkIDs() MarkIDSet { return g.marks }
func (g *Group) TrackIDs() TrackIDSet { return g.tracks }
func (g *Group) IsEmpty() bool { return g.marks.Len() == 0 && g.tracks.Len() == 0 }
func (g *Group) IsVisible() bool { return g.visible }
func (g *Group) IsVisibilityChanged() bool { return g.visibilityChanged }
func (g *Group) IsDirty() bool { return g.dirty }

// SetDirty flags the group for the next diff and refreshes its modification time.
func (g *Group) SetDirty() {
	g.dirty = true
	if g.kind != KindLayer {
		g.data.LastModified = time.Now().UTC().Truncate(time.Second)
	}
}

// ResetChanges is called once the group's changes were collected.
func (g *Group) ResetChanges() {
	g.dirty = false
	g.visibilityChanged = false
}

// AttachMark adds id and reports whether it was absent.
func (g *Group) AttachMark(id core.MarkID) bool {
	if !g.marks.Add(id) {
		return false
	}
	g.SetDirty()
	return true
}

// DetachMark removes id and reports whether it was present.
func (g *Group) DetachMark(id core.MarkID) bool {
	if !g.marks.Remove(id) {
		return false
	}
	g.SetDirty()
	return true
}

func (g *Group) AttachTrack(id core.TrackID) bool {
	if !g.tracks.Add(id) {
		return false
	}
	g.SetDirty()
	return true
}

func (g *Group) DetachTrack(id core.TrackID) bool {
	if !g.tracks.Remove(id) {
		return false
	}
	g.SetDirty()
	return true
}

// Clear drops every member. The caller erases the entities themselves.
func (g *Group) Clear() {
	if g.IsEmpty() {
		return
	}
	g.marks = make(MarkIDSet)
	g.tracks = make(TrackIDSet)
	g.SetDirty()
}

// SetVisible toggles visibility and reports whether it changed.
func (g *Group) SetVisible(v bool) bool {
	if g.visible == v {
		return false
	}
	g.visible = v
	g.visibilityChanged = !g.visibilityChanged
	g.dirty = true
	return true
}

func (g *Group) requireBookmarkGroup(op string) {
	if g.kind == KindLayer {
		panic(fmt.Sprintf("usermark: %s on layer %d", op, g.id))
	}
}

// Data returns a copy of the category data with the current visibility.
func (g *Group) Data() core.CategoryData {
	g.requireBookmarkGroup("Data")
	out := g.data.Clone()
	out.Visible = g.visible
	return out
}

func (g *Group) Name() string {
	if g.kind == KindLayer {
		return ""
	}
	return g.data.Name.Default()
}

func (g *Group) AccessRules() core.AccessRules {
	g.requireBookmarkGroup("AccessRules")
	return g.data.AccessRules
}

func (g *Group) AuthorID() string {
	g.requireBookmarkGroup("AuthorID")
	return g.data.AuthorID
}

func (g *Group) CompilationID() uint64 {
	g.requireBookmarkGroup("CompilationID")
	return g.data.CompilationID
}

func (g *Group) CompilationType() core.CompilationType {
	g.requireBookmarkGroup("CompilationType")
	return g.data.Type
}

func (g *Group) ParentID() core.GroupID { return g.parentID }
func (g *Group) AutoSave() bool { return g.autoSave }
func (g *Group) FileName() string { return g.fileName }
func (g *Group) ServerID() string { return g.serverID }
func (g *Group) LastModified() time.Time { return g.data.LastModified }

func (g *Group) SetName(name string) {
	g.requireBookmarkGroup("SetName")
	g.data.Name = core.NewLocalizableString(name)
	g.SetDirty()
}

func (g *Group) SetDescription(desc string) {
	g.requireBookmarkGroup("SetDescription")
	g.data.Description = core.NewLocalizableString(desc)
	g.SetDirty()
}

func (g *Group) SetAnnotation(annotation string) {
	g.requireBookmarkGroup("SetAnnotation")
	g.data.Annotation = core.NewLocalizableString(annotation)
	g.SetDirty()
}

func (g *Group) SetTags(tags []string) {
	g.requireBookmarkGroup("SetTags")
	g.data.Tags = append([]string(nil), tags...)
	g.SetDirty()
}

func (g *Group) SetAccessRules(rules core.AccessRules) {
	g.requireBookmarkGroup("SetAccessRules")
	if g.data.AccessRules == rules {
		return
	}
	g.data.AccessRules = rules
	g.SetDirty()
}

func (g *Group) SetCustomProperty(key, value string) {
	g.requireBookmarkGroup("SetCustomProperty")
	if g.data.Properties == nil {
		g.data.Properties = make(map[string]string)
	}
	g.data.Properties[key] = value
	g.SetDirty()
}

func (g *Group) SetAuthor(name, id string) {
	g.requireBookmarkGroup("SetAuthor")
	g.data.AuthorName = name
	g.data.AuthorID = id
	g.SetDirty()
}

func (g *Group) SetServerID(id string) {
	g.requireBookmarkGroup("SetServerID")
	if g.serverID == id {
		return
	}
	g.serverID = id
	g.SetDirty()
}

// SetCompilationIDs records the file-local ids of the category's compilations.
func (g *Group) SetCompilationIDs(ids []uint64) {
	g.requireBookmarkGroup("SetCompilationIDs")
	g.data.CompilationIDs = append([]uint64(nil), ids...)
}

// SetFileName binds the category to its backing file. It does not dirty the group.
func (g *Group) SetFileName(name string) {
	g.requireBookmarkGroup("SetFileName")
	g.fileName = name
}

func (g *Group) SetAutoSave(v bool) {
	g.requireBookmarkGroup("SetAutoSave")
	g.autoSave = v
}

// SetData replaces the category data, keeping the id and the membership.
// Used when a newer file replaces an already loaded category.
func (g *Group) SetData(data core.CategoryData) {
	g.requireBookmarkGroup("SetData")
	data.ID = g.id
	g.data = data
	g.SetVisible(data.Visible)
	g.dirty = true
}

// RestoreLastModified puts back a modification time read from disk.
// Attaching members on load would otherwise make every category look fresh.
func (g *Group) RestoreLastModified(t time.Time) {
	g.requireBookmarkGroup("RestoreLastModified")
	g.data.LastModified = t
}
