package bookmarks

import (
	"github.com/OCAP2/bookmarks/internal/usermark"
	"github.com/OCAP2/bookmarks/pkg/core"
)

// EditSession batches mutations. Subscribers see everything done while at
// least one session is open as a single diff, delivered when the outermost
// session closes.
type EditSession struct {
	m      *Manager
	closed bool
}

// EditSession opens a session. Close must be called exactly once; use Edit
// when the session does not outlive a function.
func (m *Manager) EditSession() *EditSession {
	m.assertOnLoop()
	m.sessions++
	return &EditSession{m: m}
}

// Edit runs fn inside a session that is closed on every exit path.
func (m *Manager) Edit(fn func(s *EditSession)) {
	s := m.EditSession()
	defer s.Close()
	fn(s)
}

// Close ends the session. Extra calls are no-ops.
func (s *EditSession) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.m.sessions--
	if s.m.sessions == 0 {
		s.m.notifyChanges()
	}
}

func (s *EditSession) manager() *Manager {
	if s.closed {
		panic("bookmarks: edit session used after Close")
	}
	return s.m
}

// NotifyChanges flushes the changes collected so far without closing the session.
func (s *EditSession) NotifyChanges() {
	s.manager().notifyChanges()
}

// CreateUserMark adds a non-bookmark mark to the layer of its type.
func (s *EditSession) CreateUserMark(t usermark.Type, p core.LatLon) *usermark.UserMark {
	return s.manager().createUserMark(t, p)
}

// CreateBookmark creates an unattached bookmark.
func (s *EditSession) CreateBookmark(data core.BookmarkData) *usermark.Bookmark {
	return s.manager().createBookmark(data)
}

// CreateBookmarkInGroup creates a bookmark in category groupID and makes the
// category and the bookmark color the last edited ones.
func (s *EditSession) CreateBookmarkInGroup(data core.BookmarkData, groupID core.GroupID) *usermark.Bookmark {
	return s.manager().createBookmarkInGroup(data, groupID)
}

// CreateTrack creates an unattached track.
func (s *EditSession) CreateTrack(data core.TrackData) *usermark.Track {
	return s.manager().createTrack(data)
}

// GetMarkForEdit returns a user mark and records it as updated.
func (s *EditSession) GetMarkForEdit(id core.MarkID) *usermark.UserMark {
	return s.manager().getMarkForEdit(id)
}

// GetBookmarkForEdit returns a bookmark and records it as updated.
func (s *EditSession) GetBookmarkForEdit(id core.MarkID) *usermark.Bookmark {
	return s.manager().getBookmarkForEdit(id)
}

// GetTrackForEdit returns a track and records it as updated.
func (s *EditSession) GetTrackForEdit(id core.TrackID) *usermark.Track {
	return s.manager().getTrackForEdit(id)
}

func (s *EditSession) DeleteUserMark(id core.MarkID) {
	s.manager().deleteUserMark(id)
}

// DeleteUserMarks deletes the marks of type t for which pred returns true.
func (s *EditSession) DeleteUserMarks(t usermark.Type, pred func(*usermark.UserMark) bool) {
	s.manager().deleteUserMarks(t, pred)
}

// DeleteBookmark deletes a bookmark, keeping it as the recently deleted one.
func (s *EditSession) DeleteBookmark(id core.MarkID) {
	s.manager().deleteBookmark(id)
}

func (s *EditSession) DeleteTrack(id core.TrackID) {
	s.manager().deleteTrack(id)
}

// ClearGroup deletes every member of a group.
func (s *EditSession) ClearGroup(id core.GroupID) {
	s.manager().clearGroup(id)
}

func (s *EditSession) SetIsVisible(id core.GroupID, visible bool) {
	s.manager().setIsVisible(id, visible)
}

func (s *EditSession) MoveBookmark(id core.MarkID, curGroupID, newGroupID core.GroupID) {
	s.manager().moveBookmark(id, curGroupID, newGroupID)
}

// UpdateBookmark replaces the data of a bookmark, keeping its id.
func (s *EditSession) UpdateBookmark(id core.MarkID, data core.BookmarkData) {
	s.manager().updateBookmark(id, data)
}

func (s *EditSession) AttachBookmark(id core.MarkID, groupID core.GroupID) {
	s.manager().attachBookmark(id, groupID)
}

func (s *EditSession) DetachBookmark(id core.MarkID, groupID core.GroupID) {
	s.manager().detachBookmark(id, groupID)
}

func (s *EditSession) AttachTrack(id core.TrackID, groupID core.GroupID) {
	s.manager().attachTrack(id, groupID)
}

func (s *EditSession) DetachTrack(id core.TrackID, groupID core.GroupID) {
	s.manager().detachTrack(id, groupID)
}

func (s *EditSession) MoveTrack(id core.TrackID, curGroupID, newGroupID core.GroupID) {
	s.manager().moveTrack(id, curGroupID, newGroupID)
}

// CreateCompilation adds a compilation to category parentID.
func (s *EditSession) CreateCompilation(parentID core.GroupID, data core.CategoryData) core.GroupID {
	return s.manager().createCompilation(parentID, data)
}

// AttachToCompilation adds a bookmark of the parent category to a compilation.
func (s *EditSession) AttachToCompilation(id core.MarkID, compilationID core.GroupID) {
	s.manager().attachToCompilation(id, compilationID)
}

func (s *EditSession) DetachFromCompilation(id core.MarkID, compilationID core.GroupID) {
	s.manager().detachFromCompilation(id, compilationID)
}

func (s *EditSession) SetCategoryName(id core.GroupID, name string) {
	s.manager().mustCategory(id).SetName(name)
}

func (s *EditSession) SetCategoryDescription(id core.GroupID, desc string) {
	s.manager().mustCategory(id).SetDescription(desc)
}

func (s *EditSession) SetCategoryTags(id core.GroupID, tags []string) {
	s.manager().mustCategory(id).SetTags(tags)
}

func (s *EditSession) SetCategoryAccessRules(id core.GroupID, rules core.AccessRules) {
	s.manager().setCategoryAccessRules(id, rules)
}

func (s *EditSession) SetCategoryCustomProperty(id core.GroupID, key, value string) {
	s.manager().mustCategory(id).SetCustomProperty(key, value)
}

// DeleteBmCategory removes a category with its content. Its file is moved to
// the trash, or removed when permanently is set. It reports whether the
// category existed.
func (s *EditSession) DeleteBmCategory(id core.GroupID, permanently bool) bool {
	return s.manager().deleteBmCategory(id, permanently)
}

// SetTrackSelectionMark places the selection cursor distance metres along a track.
func (s *EditSession) SetTrackSelectionMark(trackID core.TrackID, distance float64) core.MarkID {
	return s.manager().setTrackSelectionMark(trackID, distance)
}

func (s *EditSession) ResetTrackSelectionMark(trackID core.TrackID) {
	s.manager().resetTrackMark(s.m.trackSelection, trackID)
}

// SetTrackInfoMark places the info mark of a track at p.
func (s *EditSession) SetTrackInfoMark(trackID core.TrackID, p core.LatLon) core.MarkID {
	return s.manager().setTrackInfoMark(trackID, p)
}

func (s *EditSession) ResetTrackInfoMark(trackID core.TrackID) {
	s.manager().resetTrackMark(s.m.trackInfo, trackID)
}
