package bookmarks

import (
	"github.com/OCAP2/bookmarks/internal/changes"
	"github.com/OCAP2/bookmarks/internal/usermark"
	"github.com/OCAP2/bookmarks/pkg/core"
)

// notifyChanges flushes the current diff to every audience: the spatial
// index, autosave, the search hook, the bookmark callbacks and the renderer.
func (m *Manager) notifyChanges() {
	m.tracker.AcceptDirtyItems()
	if m.tracker.IsEmpty() {
		return
	}
	d := m.tracker.Snapshot()

	m.syncIndex(d)
	m.autoSave(d)
	m.syncSearchIndex(d)

	if m.tracker.HasBookmarksChanges() && m.bookmarksChanged != nil {
		m.bookmarksChanged()
	}
	if m.tracker.HasCategoriesChanges() && m.categoriesChanged != nil {
		m.categoriesChanged()
	}

	m.notifyPending.AddChanges(m.tracker)
	m.deliverNotifications()

	m.renderPending.AddChanges(m.tracker)
	m.deliverRender()

	m.tracker.ResetChanges()
}

func (m *Manager) markPoint(id core.MarkID) (core.LatLon, bool) {
	if b, ok := m.bookmarks[id]; ok {
		return b.Point(), true
	}
	if um, ok := m.userMarks[id]; ok {
		return um.Point(), true
	}
	return core.LatLon{}, false
}

func (m *Manager) syncIndex(d changes.Diff) {
	for _, id := range d.RemovedMarks {
		m.index.Remove(id)
	}
	for _, ids := range [][]core.MarkID{d.CreatedMarks, d.UpdatedMarks} {
		for _, id := range ids {
			if p, ok := m.markPoint(id); ok {
				m.index.Upsert(id, p)
			}
		}
	}
}

// autoSave writes the categories touched by d. Changes to a compilation are
// saved with its category.
func (m *Manager) autoSave(d changes.Diff) {
	dirty := make(usermark.GroupIDSet)
	for _, ids := range [][]core.GroupID{d.CreatedGroups, d.UpdatedGroups} {
		for _, id := range ids {
			g, ok := m.groups[id]
			if !ok || g.IsLayer() {
				continue
			}
			if g.IsCompilation() {
				id = g.ParentID()
			}
			dirty.Add(id)
		}
	}

	var toSave []core.GroupID
	for _, id := range dirty.Sorted() {
		g, ok := m.groups[id]
		if !ok || !g.AutoSave() || m.skipSave.Has(id) {
			continue
		}
		toSave = append(toSave, id)
	}
	m.skipSave = make(usermark.GroupIDSet)

	if len(toSave) > 0 {
		m.saveCategories(toSave)
	}
}

func (m *Manager) syncSearchIndex(d changes.Diff) {
	idx := m.deps.Indexer
	if idx == nil {
		return
	}
	isCategory := func(id core.GroupID) bool {
		g, ok := m.groups[id]
		return ok && g.IsCategory()
	}
	for _, id := range d.CreatedGroups {
		if isCategory(id) {
			idx.EnableIndexingOfBookmarkGroup(id, m.groups[id].IsVisible())
		}
	}
	for _, id := range d.BecameVisibleGroups {
		if isCategory(id) {
			idx.EnableIndexingOfBookmarkGroup(id, true)
		}
	}
	for _, id := range d.BecameInvisibleGroups {
		if isCategory(id) {
			idx.EnableIndexingOfBookmarkGroup(id, false)
		}
	}
	for _, id := range d.RemovedGroups {
		if usermark.IsBookmarkGroupID(id) {
			idx.ResetBookmarkGroupIndex(id)
		}
	}
}

func bookmarkIDs(ids []core.MarkID) []core.MarkID {
	var out []core.MarkID
	for _, id := range ids {
		if usermark.TypeOf(id) == usermark.TypeBookmark {
			out = append(out, id)
		}
	}
	return out
}

// deliverNotifications reports the accumulated bookmark changes unless
// notifications are disabled.
func (m *Manager) deliverNotifications() {
	if !m.notificationsEnabled || m.notifyPending.IsEmpty() {
		return
	}
	d := m.notifyPending.Snapshot()
	m.notifyPending.ResetChanges()

	cb := m.callbacks
	call := func(fn func([]core.MarkID), ids []core.MarkID) {
		if ids = bookmarkIDs(ids); fn != nil && len(ids) > 0 {
			fn(ids)
		}
	}
	call(cb.Created, d.CreatedMarks)
	call(cb.Updated, d.UpdatedMarks)
	call(cb.Deleted, d.RemovedMarks)
	if cb.Attached != nil && len(d.AttachedBookmarks) > 0 {
		cb.Attached(d.AttachedBookmarks)
	}
	if cb.Detached != nil && len(d.DetachedBookmarks) > 0 {
		cb.Detached(d.DetachedBookmarks)
	}
}

// deliverRender hands the accumulated diff to the renderer. Without one the
// diff keeps growing until a renderer is attached.
func (m *Manager) deliverRender() {
	if m.renderer == nil {
		return
	}
	first := !m.rendered
	if !first && m.renderPending.IsEmpty() {
		return
	}
	d := m.renderPending.Snapshot()
	m.renderPending.ResetChanges()
	m.rendered = true

	u := RenderUpdate{
		FirstTime:       first,
		GroupVisibility: make(map[core.GroupID]bool),
		RemovedGroups:   d.RemovedGroups,
		Diff:            d,
	}
	if first {
		for id, g := range m.groups {
			u.GroupVisibility[id] = g.IsVisible()
		}
	} else {
		for _, ids := range [][]core.GroupID{d.CreatedGroups, d.UpdatedGroups} {
			for _, id := range ids {
				if g, ok := m.groups[id]; ok {
					u.GroupVisibility[id] = g.IsVisible()
				}
			}
		}
	}
	m.renderer.UpdateUserMarks(u)
}
