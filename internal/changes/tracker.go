// Package changes accumulates the diff of marks, tracks and groups between
// two flushes of the bookmark core.
package changes

import (
	"github.com/OCAP2/bookmarks/internal/usermark"
	"github.com/OCAP2/bookmarks/pkg/core"
)

// Item is an entity carrying its own dirty flag.
type Item interface {
	GroupID() core.GroupID
	IsDirty() bool
	ResetChanges()
}

// Source gives the tracker access to the live entity stores.
type Source interface {
	Group(id core.GroupID) *usermark.Group
	Bookmark(id core.MarkID) *usermark.Bookmark
	DirtyGroups() []core.GroupID
	EachMark(fn func(id core.MarkID, m Item))
	EachTrack(fn func(id core.TrackID, t Item))
}

// Diff is an immutable, sorted view of the tracked changes.
type Diff struct {
	CreatedMarks []core.MarkID
	UpdatedMarks []core.MarkID
	RemovedMarks []core.MarkID

	CreatedLines []core.TrackID
	UpdatedLines []core.TrackID
	RemovedLines []core.TrackID

	CreatedGroups         []core.GroupID
	UpdatedGroups         []core.GroupID
	RemovedGroups         []core.GroupID
	BecameVisibleGroups   []core.GroupID
	BecameInvisibleGroups []core.GroupID

	AttachedBookmarks map[core.GroupID][]core.MarkID
	DetachedBookmarks map[core.GroupID][]core.MarkID
}

// Tracker records what changed since the last ResetChanges.
type Tracker struct {
	src Source

	createdMarks usermark.MarkIDSet
	updatedMarks usermark.MarkIDSet
	removedMarks usermark.MarkIDSet

	createdLines usermark.TrackIDSet
	updatedLines usermark.TrackIDSet
	removedLines usermark.TrackIDSet

	createdGroups         usermark.GroupIDSet
	updatedGroups         usermark.GroupIDSet
	removedGroups         usermark.GroupIDSet
	becameVisibleGroups   usermark.GroupIDSet
	becameInvisibleGroups usermark.GroupIDSet

	attached map[core.GroupID]usermark.MarkIDSet
	detached map[core.GroupID]usermark.MarkIDSet
}

// New creates an empty tracker. src is only needed for AcceptDirtyItems.
func New(src Source) *Tracker {
	t := &Tracker{src: src}
	t.ResetChanges()
	return t
}

// ResetChanges clears every set.
func (t *Tracker) ResetChanges() {
	t.createdMarks = make(usermark.MarkIDSet)
	t.updatedMarks = make(usermark.MarkIDSet)
	t.removedMarks = make(usermark.MarkIDSet)
	t.createdLines = make(usermark.TrackIDSet)
	t.updatedLines = make(usermark.TrackIDSet)
	t.removedLines = make(usermark.TrackIDSet)
	t.createdGroups = make(usermark.GroupIDSet)
	t.updatedGroups = make(usermark.GroupIDSet)
	t.removedGroups = make(usermark.GroupIDSet)
	t.becameVisibleGroups = make(usermark.GroupIDSet)
	t.becameInvisibleGroups = make(usermark.GroupIDSet)
	t.attached = make(map[core.GroupID]usermark.MarkIDSet)
	t.detached = make(map[core.GroupID]usermark.MarkIDSet)
}

// OnAddMark records a new mark. A mark removed and restored under the same id
// in one cycle is reported as updated.
func (t *Tracker) OnAddMark(id core.MarkID) {
	if t.removedMarks.Remove(id) {
		t.updatedMarks.Add(id)
		return
	}
	t.createdMarks.Add(id)
}

// OnDeleteMark drops a mark created in this cycle without a trace.
func (t *Tracker) OnDeleteMark(id core.MarkID) {
	if t.createdMarks.Remove(id) {
		return
	}
	t.updatedMarks.Remove(id)
	t.removedMarks.Add(id)
}

func (t *Tracker) OnUpdateMark(id core.MarkID) {
	if t.createdMarks.Has(id) || t.removedMarks.Has(id) {
		return
	}
	t.updatedMarks.Add(id)
}

func (t *Tracker) OnAddLine(id core.TrackID) {
	if t.removedLines.Remove(id) {
		t.updatedLines.Add(id)
		return
	}
	t.createdLines.Add(id)
}

func (t *Tracker) OnDeleteLine(id core.TrackID) {
	if t.createdLines.Remove(id) {
		return
	}
	t.updatedLines.Remove(id)
	t.removedLines.Add(id)
}

func (t *Tracker) OnUpdateLine(id core.TrackID) {
	if t.createdLines.Has(id) || t.removedLines.Has(id) {
		return
	}
	t.updatedLines.Add(id)
}

func (t *Tracker) OnAddGroup(id core.GroupID) {
	t.createdGroups.Add(id)
}

func (t *Tracker) OnDeleteGroup(id core.GroupID) {
	t.updatedGroups.Remove(id)
	t.becameVisibleGroups.Remove(id)
	t.becameInvisibleGroups.Remove(id)
	delete(t.attached, id)
	delete(t.detached, id)
	if t.createdGroups.Remove(id) {
		return
	}
	t.removedGroups.Add(id)
}

func (t *Tracker) OnUpdateGroup(id core.GroupID) {
	if t.removedGroups.Has(id) {
		return
	}
	t.updatedGroups.Add(id)
}

func (t *Tracker) OnBecomeVisibleGroup(id core.GroupID) {
	if !t.becameInvisibleGroups.Remove(id) {
		t.becameVisibleGroups.Add(id)
	}
}

func (t *Tracker) OnBecomeInvisibleGroup(id core.GroupID) {
	if !t.becameVisibleGroups.Remove(id) {
		t.becameInvisibleGroups.Add(id)
	}
}

// OnAttachBookmark records mark joining group. A pending detach of the same
// pair is cancelled instead.
func (t *Tracker) OnAttachBookmark(mark core.MarkID, group core.GroupID) {
	insertBookmark(mark, group, t.attached, t.detached)
}

// OnDetachBookmark is the mirror of OnAttachBookmark.
func (t *Tracker) OnDetachBookmark(mark core.MarkID, group core.GroupID) {
	insertBookmark(mark, group, t.detached, t.attached)
}

func insertBookmark(mark core.MarkID, group core.GroupID, into, opposite map[core.GroupID]usermark.MarkIDSet) {
	if set, ok := opposite[group]; ok && set.Remove(mark) {
		if set.Len() == 0 {
			delete(opposite, group)
		}
		return
	}
	set, ok := into[group]
	if !ok {
		set = make(usermark.MarkIDSet)
		into[group] = set
	}
	set.Add(mark)
}

// AcceptDirtyItems collects dirty groups, marks and lines from the source,
// infers bookmark visibility and resets the entities' dirty flags.
func (t *Tracker) AcceptDirtyItems() {
	if t.src == nil {
		panic("changes: AcceptDirtyItems without a source")
	}

	dirty := usermark.NewIDSet(t.src.DirtyGroups()...)

	// A compilation becoming visible drags its category along.
	for _, id := range dirty.Sorted() {
		g := t.mustGroup(id)
		if g.IsCompilation() && g.IsVisible() && g.IsVisibilityChanged() {
			parent := t.mustGroup(g.ParentID())
			if parent.SetVisible(true) {
				dirty.Add(parent.ID())
			}
		}
	}

	categories := make(usermark.GroupIDSet)
	for id := range dirty {
		g := t.mustGroup(id)
		switch {
		case g.IsCategory():
			categories.Add(id)
		case g.IsCompilation():
			categories.Add(g.ParentID())
		}
	}
	for _, id := range categories.Sorted() {
		InferVisibility(t.src, t.mustGroup(id))
	}

	for id := range dirty {
		g := t.mustGroup(id)
		if g.IsVisibilityChanged() {
			if g.IsVisible() {
				t.OnBecomeVisibleGroup(id)
			} else {
				t.OnBecomeInvisibleGroup(id)
			}
		}
		t.OnUpdateGroup(id)
		g.ResetChanges()
	}

	t.src.EachMark(func(id core.MarkID, m Item) {
		if !m.IsDirty() {
			return
		}
		t.OnUpdateMark(id)
		if gid := m.GroupID(); gid != core.InvalidGroupID {
			t.OnUpdateGroup(gid)
		}
		m.ResetChanges()
	})

	t.src.EachTrack(func(id core.TrackID, l Item) {
		if !l.IsDirty() {
			return
		}
		t.OnUpdateLine(id)
		if gid := l.GroupID(); gid != core.InvalidGroupID {
			t.OnUpdateGroup(gid)
		}
		l.ResetChanges()
	})
}

func (t *Tracker) mustGroup(id core.GroupID) *usermark.Group {
	g := t.src.Group(id)
	if g == nil {
		panic("changes: dirty group is unknown")
	}
	return g
}

// InferVisibility recomputes the compilation-derived visibility of every
// bookmark of category. A bookmark outside any compilation is visible; one
// inside compilations is visible when at least one of them is.
func InferVisibility(src Source, category *usermark.Group) {
	for id := range category.MarkIDs() {
		b := src.Bookmark(id)
		if b == nil {
			continue
		}
		visible := !b.HasCompilations()
		for _, cid := range b.CompilationIDs() {
			if c := src.Group(cid); c != nil && c.IsVisible() {
				visible = true
				break
			}
		}
		b.SetVisible(visible)
	}
}

// IsEmpty reports whether nothing was recorded.
func (t *Tracker) IsEmpty() bool {
	return !t.HasChanges() && len(t.createdGroups) == 0
}

// HasChanges reports whether anything visible to the renderer changed.
func (t *Tracker) HasChanges() bool {
	return len(t.updatedGroups) > 0 || len(t.removedGroups) > 0 || len(t.createdGroups) > 0 ||
		len(t.createdMarks) > 0 || len(t.updatedMarks) > 0 || len(t.removedMarks) > 0 ||
		len(t.createdLines) > 0 || len(t.updatedLines) > 0 || len(t.removedLines) > 0 ||
		len(t.attached) > 0 || len(t.detached) > 0 ||
		len(t.becameVisibleGroups) > 0 || len(t.becameInvisibleGroups) > 0
}

// HasBookmarksChanges reports whether a bookmark category or compilation was touched.
func (t *Tracker) HasBookmarksChanges() bool {
	return hasBookmarkGroup(t.updatedGroups) || hasBookmarkGroup(t.removedGroups) ||
		hasBookmarkGroup(t.createdGroups)
}

// HasCategoriesChanges reports whether categories were created or removed.
func (t *Tracker) HasCategoriesChanges() bool {
	return hasBookmarkGroup(t.createdGroups) || hasBookmarkGroup(t.removedGroups)
}

func hasBookmarkGroup(s usermark.GroupIDSet) bool {
	for id := range s {
		if usermark.IsBookmarkGroupID(id) {
			return true
		}
	}
	return false
}

// AddChanges merges other into t, applying the same cancellation rules as
// if the events had been recorded here.
func (t *Tracker) AddChanges(other *Tracker) {
	if other == nil {
		return
	}
	if t.IsEmpty() {
		t.assign(other)
		return
	}

	for id := range other.createdMarks {
		t.OnAddMark(id)
	}
	for id := range other.removedMarks {
		t.OnDeleteMark(id)
	}
	for id := range other.updatedMarks {
		t.OnUpdateMark(id)
	}

	for id := range other.createdLines {
		t.OnAddLine(id)
	}
	for id := range other.removedLines {
		t.OnDeleteLine(id)
	}
	for id := range other.updatedLines {
		t.OnUpdateLine(id)
	}

	for id := range other.createdGroups {
		t.OnAddGroup(id)
	}
	for id := range other.removedGroups {
		t.OnDeleteGroup(id)
	}
	for id := range other.updatedGroups {
		t.OnUpdateGroup(id)
	}
	for id := range other.becameVisibleGroups {
		t.OnBecomeVisibleGroup(id)
	}
	for id := range other.becameInvisibleGroups {
		t.OnBecomeInvisibleGroup(id)
	}

	for gid, marks := range other.attached {
		for id := range marks {
			t.OnAttachBookmark(id, gid)
		}
	}
	for gid, marks := range other.detached {
		for id := range marks {
			t.OnDetachBookmark(id, gid)
		}
	}
}

func (t *Tracker) assign(other *Tracker) {
	t.createdMarks = other.createdMarks.Clone()
	t.updatedMarks = other.updatedMarks.Clone()
	t.removedMarks = other.removedMarks.Clone()
	t.createdLines = other.createdLines.Clone()
	t.updatedLines = other.updatedLines.Clone()
	t.removedLines = other.removedLines.Clone()
	t.createdGroups = other.createdGroups.Clone()
	t.updatedGroups = other.updatedGroups.Clone()
	t.removedGroups = other.removedGroups.Clone()
	t.becameVisibleGroups = other.becameVisibleGroups.Clone()
	t.becameInvisibleGroups = other.becameInvisibleGroups.Clone()
	t.attached = cloneMembership(other.attached)
	t.detached = cloneMembership(other.detached)
}

func cloneMembership(m map[core.GroupID]usermark.MarkIDSet) map[core.GroupID]usermark.MarkIDSet {
	out := make(map[core.GroupID]usermark.MarkIDSet, len(m))
	for gid, set := range m {
		out[gid] = set.Clone()
	}
	return out
}

func (t *Tracker) CreatedMarks() usermark.MarkIDSet { return t.createdMarks }
func (t *Tracker) UpdatedMarks() usermark.MarkIDSet { return t.updatedMarks }
func (t *Tracker) RemovedMarks() usermark.MarkIDSet { return t.removedMarks }

func (t *Tracker) CreatedLines() usermark.TrackIDSet { return t.createdLines }
func (t *Tracker) UpdatedLines() usermark.TrackIDSet { return t.updatedLines }
func (t *Tracker) RemovedLines() usermark.TrackIDSet { return t.removedLines }

func (t *Tracker) CreatedGroups() usermark.GroupIDSet { return t.createdGroups }
func (t *Tracker) UpdatedGroups() usermark.GroupIDSet { return t.updatedGroups }
func (t *Tracker) RemovedGroups() usermark.GroupIDSet { return t.removedGroups }
func (t *Tracker) BecameVisibleGroups() usermark.GroupIDSet { return t.becameVisibleGroups }
func (t *Tracker) BecameInvisibleGroups() usermark.GroupIDSet { return t.becameInvisibleGroups }

func (t *Tracker) AttachedBookmarks() map[core.GroupID]usermark.MarkIDSet { return t.attached }
func (t *Tracker) DetachedBookmarks() map[core.GroupID]usermark.MarkIDSet { return t.detached }

// Snapshot returns a sorted copy of the tracked changes.
func (t *Tracker) Snapshot() Diff {
	return Diff{
		CreatedMarks:          t.createdMarks.Sorted(),
		UpdatedMarks:          t.updatedMarks.Sorted(),
		RemovedMarks:          t.removedMarks.Sorted(),
		CreatedLines:          t.createdLines.Sorted(),
		UpdatedLines:          t.updatedLines.Sorted(),
		RemovedLines:          t.removedLines.Sorted(),
		CreatedGroups:         t.createdGroups.Sorted(),
		UpdatedGroups:         t.updatedGroups.Sorted(),
		RemovedGroups:         t.removedGroups.Sorted(),
		BecameVisibleGroups:   t.becameVisibleGroups.Sorted(),
		BecameInvisibleGroups: t.becameInvisibleGroups.Sorted(),
		AttachedBookmarks:     sortedMembership(t.attached),
		DetachedBookmarks:     sortedMembership(t.detached),
	}
}

func sortedMembership(m map[core.GroupID]usermark.MarkIDSet) map[core.GroupID][]core.MarkID {
	out := make(map[core.GroupID][]core.MarkID, len(m))
	for gid, set := range m {
		out[gid] = set.Sorted()
	}
	return out
}
