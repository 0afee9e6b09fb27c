package bookmarks

import (
	"fmt"

	"github.com/OCAP2/bookmarks/internal/usermark"
	"github.com/OCAP2/bookmarks/pkg/core"
)

func (m *Manager) createUserMark(t usermark.Type, p core.LatLon) *usermark.UserMark {
	id := m.ids.NextMarkID(uint8(t))
	um := usermark.NewUserMark(id, t, p)
	m.userMarks[id] = um
	m.mustGroup(usermark.LayerID(t)).AttachMark(id)
	m.tracker.OnAddMark(id)
	return um
}

func (m *Manager) getMarkForEdit(id core.MarkID) *usermark.UserMark {
	um, ok := m.userMarks[id]
	if !ok {
		return nil
	}
	um.SetDirty()
	m.tracker.OnUpdateMark(id)
	m.mustGroup(um.GroupID()).SetDirty()
	return um
}

func (m *Manager) deleteUserMark(id core.MarkID) {
	if usermark.TypeOf(id) == usermark.TypeBookmark {
		m.deleteBookmark(id)
		return
	}
	um := m.mustUserMark(id)
	if um.IsTrackMark() {
		if m.trackSelection[um.TrackID()] == id {
			delete(m.trackSelection, um.TrackID())
		}
		if m.trackInfo[um.TrackID()] == id {
			delete(m.trackInfo, um.TrackID())
		}
	}
	m.mustGroup(um.GroupID()).DetachMark(id)
	delete(m.userMarks, id)
	m.tracker.OnDeleteMark(id)
}

func (m *Manager) deleteUserMarks(t usermark.Type, pred func(*usermark.UserMark) bool) {
	layer := m.mustGroup(usermark.LayerID(t))
	for _, id := range layer.MarkIDs().Sorted() {
		if pred == nil || pred(m.userMarks[id]) {
			m.deleteUserMark(id)
		}
	}
}

func (m *Manager) createBookmark(data core.BookmarkData) *usermark.Bookmark {
	data.ID = m.ids.NextBookmarkID()
	if data.Timestamp.IsZero() {
		data.Timestamp = m.now().UTC()
	}
	if data.Color.Predefined == core.ColorNone && data.Color.RGBA == 0 {
		data.Color.Predefined = m.LastEditedBMColor()
	}
	data.Compilations = nil
	b := usermark.NewBookmark(data)
	m.bookmarks[data.ID] = b
	m.tracker.OnAddMark(data.ID)
	return b
}

func (m *Manager) createBookmarkInGroup(data core.BookmarkData, groupID core.GroupID) *usermark.Bookmark {
	b := m.createBookmark(data)
	m.attachBookmark(b.ID(), groupID)
	m.SetLastEditedBMCategory(groupID)
	m.SetLastEditedBMColor(b.Color())
	return b
}

func (m *Manager) getBookmarkForEdit(id core.MarkID) *usermark.Bookmark {
	b, ok := m.bookmarks[id]
	if !ok {
		return nil
	}
	b.SetDirty()
	m.tracker.OnUpdateMark(id)
	if g, ok := m.groups[b.GroupID()]; ok {
		g.SetDirty()
	}
	return b
}

func (m *Manager) updateBookmark(id core.MarkID, data core.BookmarkData) {
	b := m.getBookmarkForEdit(id)
	if b == nil {
		panic(fmt.Sprintf("bookmarks: unknown bookmark %d", id))
	}
	prevColor := b.Color()
	b.SetData(data)
	if b.Color() != prevColor {
		m.SetLastEditedBMColor(b.Color())
	}
}

func (m *Manager) attachBookmark(id core.MarkID, groupID core.GroupID) {
	b := m.mustBookmark(id)
	g := m.mustCategory(groupID)
	if b.GroupID() != core.InvalidGroupID {
		panic(fmt.Sprintf("bookmarks: bookmark %d already belongs to %d", id, b.GroupID()))
	}
	b.SetGroupID(groupID)
	g.AttachMark(id)
	m.tracker.OnAttachBookmark(id, groupID)
}

func (m *Manager) detachBookmark(id core.MarkID, groupID core.GroupID) {
	b := m.mustBookmark(id)
	if b.GroupID() != groupID {
		panic(fmt.Sprintf("bookmarks: bookmark %d does not belong to %d", id, groupID))
	}
	g := m.mustCategory(groupID)
	for _, cid := range b.CompilationIDs() {
		if c, ok := m.groups[cid]; ok {
			c.DetachMark(id)
		}
		b.DetachCompilation(cid)
	}
	b.SetGroupID(core.InvalidGroupID)
	g.DetachMark(id)
	m.tracker.OnDetachBookmark(id, groupID)
}

func (m *Manager) moveBookmark(id core.MarkID, curGroupID, newGroupID core.GroupID) {
	if curGroupID == newGroupID {
		return
	}
	m.detachBookmark(id, curGroupID)
	m.attachBookmark(id, newGroupID)
	m.SetLastEditedBMCategory(newGroupID)
}

func (m *Manager) deleteBookmark(id core.MarkID) {
	b := m.mustBookmark(id)
	deleted := &deletedBookmark{data: b.Data(), groupID: b.GroupID(), compilations: b.CompilationIDs()}
	m.eraseBookmark(id)
	m.recentlyDeleted = deleted
}

// eraseBookmark removes a bookmark for good.
func (m *Manager) eraseBookmark(id core.MarkID) {
	b := m.mustBookmark(id)
	if gid := b.GroupID(); gid != core.InvalidGroupID {
		m.detachBookmark(id, gid)
	}
	delete(m.bookmarks, id)
	m.tracker.OnDeleteMark(id)
}

func (m *Manager) createTrack(data core.TrackData) *usermark.Track {
	data.ID = m.ids.NextTrackID()
	if data.Timestamp.IsZero() {
		data.Timestamp = m.now().UTC()
	}
	t := usermark.NewTrack(data)
	m.tracks[data.ID] = t
	m.tracker.OnAddLine(data.ID)
	return t
}

func (m *Manager) getTrackForEdit(id core.TrackID) *usermark.Track {
	t, ok := m.tracks[id]
	if !ok {
		return nil
	}
	t.SetDirty()
	m.tracker.OnUpdateLine(id)
	if g, ok := m.groups[t.GroupID()]; ok {
		g.SetDirty()
	}
	return t
}

func (m *Manager) attachTrack(id core.TrackID, groupID core.GroupID) {
	t := m.mustTrack(id)
	g := m.mustCategory(groupID)
	if t.GroupID() != core.InvalidGroupID {
		panic(fmt.Sprintf("bookmarks: track %d already belongs to %d", id, t.GroupID()))
	}
	t.SetGroupID(groupID)
	g.AttachTrack(id)
}

func (m *Manager) detachTrack(id core.TrackID, groupID core.GroupID) {
	t := m.mustTrack(id)
	if t.GroupID() != groupID {
		panic(fmt.Sprintf("bookmarks: track %d does not belong to %d", id, groupID))
	}
	t.SetGroupID(core.InvalidGroupID)
	m.mustCategory(groupID).DetachTrack(id)
}

func (m *Manager) moveTrack(id core.TrackID, curGroupID, newGroupID core.GroupID) {
	if curGroupID == newGroupID {
		return
	}
	m.detachTrack(id, curGroupID)
	m.attachTrack(id, newGroupID)
}

func (m *Manager) deleteTrack(id core.TrackID) {
	t := m.mustTrack(id)
	m.resetTrackMark(m.trackSelection, id)
	m.resetTrackMark(m.trackInfo, id)
	if gid := t.GroupID(); gid != core.InvalidGroupID {
		m.detachTrack(id, gid)
	}
	delete(m.tracks, id)
	m.tracker.OnDeleteLine(id)
}

func (m *Manager) setTrackSelectionMark(trackID core.TrackID, distance float64) core.MarkID {
	t := m.mustTrack(trackID)
	um := m.trackMark(m.trackSelection, trackID, usermark.TypeTrackSelection)
	um.SetPosition(t.PointAtDistance(distance), distance)
	return um.ID()
}

func (m *Manager) setTrackInfoMark(trackID core.TrackID, p core.LatLon) core.MarkID {
	m.mustTrack(trackID)
	um := m.trackMark(m.trackInfo, trackID, usermark.TypeTrackInfo)
	um.SetPoint(p)
	return um.ID()
}

// trackMark returns the mark of the track kept in marks, creating it on
// first use. The mark is returned ready for edit.
func (m *Manager) trackMark(marks map[core.TrackID]core.MarkID, trackID core.TrackID, t usermark.Type) *usermark.UserMark {
	if id, ok := marks[trackID]; ok {
		return m.getMarkForEdit(id)
	}
	um := m.createUserMark(t, core.LatLon{})
	um.SetTrackID(trackID)
	marks[trackID] = um.ID()
	return um
}

func (m *Manager) resetTrackMark(marks map[core.TrackID]core.MarkID, trackID core.TrackID) {
	id, ok := marks[trackID]
	if !ok {
		return
	}
	m.deleteUserMark(id)
}

// TrackSelectionMark returns the selection mark of a track, if any.
func (m *Manager) TrackSelectionMark(trackID core.TrackID) (core.MarkID, bool) {
	id, ok := m.trackSelection[trackID]
	return id, ok
}

// TrackInfoMark returns the info mark of a track, if any.
func (m *Manager) TrackInfoMark(trackID core.TrackID) (core.MarkID, bool) {
	id, ok := m.trackInfo[trackID]
	return id, ok
}

func (m *Manager) clearGroup(id core.GroupID) {
	g := m.mustGroup(id)
	if g.IsLayer() {
		for _, mid := range g.MarkIDs().Sorted() {
			m.deleteUserMark(mid)
		}
		return
	}
	for _, mid := range g.MarkIDs().Sorted() {
		if g.IsCompilation() {
			m.detachFromCompilation(mid, id)
			continue
		}
		m.eraseBookmark(mid)
	}
	for _, tid := range g.TrackIDs().Sorted() {
		m.deleteTrack(tid)
	}
	g.Clear()
}

func (m *Manager) setIsVisible(id core.GroupID, visible bool) {
	m.mustGroup(id).SetVisible(visible)
}

func (m *Manager) createCompilation(parentID core.GroupID, data core.CategoryData) core.GroupID {
	parent := m.mustCategory(parentID)
	data.ID = m.ids.NextGroupID()

	var local uint64
	for _, c := range m.compilationsOf(parentID) {
		local = max(local, c.CompilationID())
	}
	data.CompilationID = local + 1

	c := usermark.NewCompilation(data, parent)
	m.groups[c.ID()] = c
	parent.SetCompilationIDs(append(parent.Data().CompilationIDs, data.CompilationID))
	parent.SetDirty()
	m.tracker.OnAddGroup(c.ID())
	return c.ID()
}

func (m *Manager) mustCompilation(id core.GroupID) *usermark.Group {
	c := m.mustGroup(id)
	if !c.IsCompilation() {
		panic(fmt.Sprintf("bookmarks: group %d is not a compilation", id))
	}
	return c
}

func (m *Manager) attachToCompilation(id core.MarkID, compilationID core.GroupID) {
	c := m.mustCompilation(compilationID)
	b := m.mustBookmark(id)
	if b.GroupID() != c.ParentID() {
		panic(fmt.Sprintf("bookmarks: bookmark %d is not in the category of compilation %d", id, compilationID))
	}
	b.AttachCompilation(compilationID)
	c.AttachMark(id)
}

func (m *Manager) detachFromCompilation(id core.MarkID, compilationID core.GroupID) {
	c := m.mustCompilation(compilationID)
	m.mustBookmark(id).DetachCompilation(compilationID)
	c.DetachMark(id)
}
