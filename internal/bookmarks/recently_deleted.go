package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/OCAP2/bookmarks/internal/dispatcher"
	"github.com/OCAP2/bookmarks/internal/storage"
	"github.com/OCAP2/bookmarks/internal/usermark"
	"github.com/OCAP2/bookmarks/pkg/core"
)

// deletedBookmark is the one-step undo slot. A second deletion replaces it.
type deletedBookmark struct {
	data         core.BookmarkData
	groupID      core.GroupID
	compilations []core.GroupID
}

func (m *Manager) HasRecentlyDeletedBookmark() bool {
	return m.recentlyDeleted != nil
}

// ResetRecentlyDeletedBookmark drops the undo slot.
func (m *Manager) ResetRecentlyDeletedBookmark() {
	m.recentlyDeleted = nil
}

// RecoverRecentlyDeletedBookmark puts the last deleted bookmark back under
// its id. If its category is gone it lands in the last edited one.
func (m *Manager) RecoverRecentlyDeletedBookmark() (core.MarkID, bool) {
	d := m.recentlyDeleted
	if d == nil {
		return core.InvalidMarkID, false
	}
	m.recentlyDeleted = nil

	groupID := d.groupID
	if !m.HasBmCategory(groupID) {
		groupID = m.LastEditedBMCategory()
	}

	id := d.data.ID
	m.Edit(func(*EditSession) {
		b := usermark.NewBookmark(d.data)
		m.bookmarks[id] = b
		m.tracker.OnAddMark(id)
		m.attachBookmark(id, groupID)
		for _, cid := range d.compilations {
			if c, ok := m.groups[cid]; ok && c.IsCompilation() && c.ParentID() == groupID {
				m.attachToCompilation(id, cid)
			}
		}
	})
	return id, true
}

// GetRecentlyDeletedCategories lists the trash off the core loop and hands
// the files, most recently deleted first, to handler.
func (m *Manager) GetRecentlyDeletedCategories(handler func([]storage.TrashedFile, error)) {
	trashDir := m.deps.Paths.TrashDir
	m.submit(dispatcher.Job{
		Kind: dispatcher.KindLoad,
		Name: "list trash",
		Run: func(context.Context) dispatcher.Result {
			files, err := storage.ListTrash(trashDir)
			if err != nil {
				return dispatcher.Failure(err)
			}
			return dispatcher.Success(files)
		},
		Done: func(r dispatcher.Result) {
			if handler == nil {
				return
			}
			files, _ := r.Value.([]storage.TrashedFile)
			handler(files, r.Err)
		},
	})
}

// RecentlyDeletedCategoriesCount counts the files in the trash.
func (m *Manager) RecentlyDeletedCategoriesCount() int {
	files, err := storage.ListTrash(m.deps.Paths.TrashDir)
	if err != nil {
		m.log.Warn("failed to list trash", "error", err)
		return 0
	}
	return len(files)
}

// trashed keeps the paths that lie in the trash directory.
func (m *Manager) trashed(paths []string) []string {
	trashDir := filepath.Clean(m.deps.Paths.TrashDir)
	var out []string
	for _, p := range paths {
		if filepath.Dir(filepath.Clean(p)) != trashDir {
			m.log.Warn("ignoring file outside of trash", "path", p)
			continue
		}
		out = append(out, p)
	}
	return out
}

// RecoverRecentlyDeletedCategories moves trashed files back into the
// bookmarks directory and loads them.
func (m *Manager) RecoverRecentlyDeletedCategories(paths []string) {
	paths = m.trashed(paths)
	if len(paths) == 0 {
		return
	}
	dir := m.deps.Paths.BookmarksDir
	m.submit(dispatcher.Job{
		Kind: dispatcher.KindSave,
		Name: "recover categories",
		Run: func(context.Context) dispatcher.Result {
			var recovered []string
			var errs []error
			for _, p := range paths {
				dest, err := storage.RecoverFromTrash(p, dir)
				if err != nil {
					errs = append(errs, fmt.Errorf("recovering %s: %w", p, err))
					continue
				}
				recovered = append(recovered, dest)
			}
			return dispatcher.Result{Value: recovered, Err: errors.Join(errs...)}
		},
		Done: func(r dispatcher.Result) {
			if r.Err != nil {
				m.log.Error("failed to recover categories", "error", r.Err)
			}
			recovered, _ := r.Value.([]string)
			for _, p := range recovered {
				m.LoadBookmark(p, false)
			}
		},
	})
}

// DeleteRecentlyDeletedCategories removes trashed files for good.
func (m *Manager) DeleteRecentlyDeletedCategories(paths []string) {
	paths = m.trashed(paths)
	if len(paths) == 0 {
		return
	}
	m.submit(dispatcher.Job{
		Kind: dispatcher.KindSave,
		Name: "purge trash",
		Run: func(context.Context) dispatcher.Result {
			if err := storage.PurgeFromTrash(paths); err != nil {
				return dispatcher.Failure(err)
			}
			return dispatcher.Success(len(paths))
		},
		Done: func(r dispatcher.Result) {
			if r.Err != nil {
				m.log.Error("failed to purge trash", "error", r.Err)
			}
		},
	})
}
