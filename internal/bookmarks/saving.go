package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/OCAP2/bookmarks/internal/dispatcher"
	"github.com/OCAP2/bookmarks/internal/storage"
	"github.com/OCAP2/bookmarks/internal/usermark"
	"github.com/OCAP2/bookmarks/pkg/core"
)

// SaveBookmarks writes the given categories, or every category when ids is
// empty. Compilation ids stand for their category.
func (m *Manager) SaveBookmarks(ids []core.GroupID) {
	if len(ids) == 0 {
		ids = m.categoryOrder
	}
	set := make(usermark.GroupIDSet)
	for _, id := range ids {
		g := m.mustGroup(id)
		switch {
		case g.IsCategory():
			set.Add(id)
		case g.IsCompilation():
			set.Add(g.ParentID())
		}
	}
	if set.Len() > 0 {
		m.saveCategories(set.Sorted())
	}
}

// snapshot builds the file content of a category. Bookmarks and tracks are
// written in id order; compilation membership is mapped back to the
// file-local compilation ids.
func (m *Manager) snapshot(id core.GroupID) *core.FileData {
	g := m.mustCategory(id)
	data := &core.FileData{
		ServerID: g.ServerID(),
		Category: g.Data(),
	}

	localIDs := make(map[core.GroupID]uint64)
	data.Category.CompilationIDs = nil
	for _, c := range m.compilationsOf(id) {
		cd := c.Data()
		localIDs[c.ID()] = cd.CompilationID
		data.Category.CompilationIDs = append(data.Category.CompilationIDs, cd.CompilationID)
		data.Compilations = append(data.Compilations, cd)
	}

	for _, mid := range g.MarkIDs().Sorted() {
		b := m.bookmarks[mid]
		bd := b.Data()
		bd.Compilations = nil
		for _, cid := range b.CompilationIDs() {
			if lid, ok := localIDs[cid]; ok {
				bd.Compilations = append(bd.Compilations, lid)
			}
		}
		data.Bookmarks = append(data.Bookmarks, bd)
	}
	for _, tid := range g.TrackIDs().Sorted() {
		data.Tracks = append(data.Tracks, m.tracks[tid].Data())
	}
	return data
}

// categoryFiles returns the files of the categories in memory.
func (m *Manager) categoryFiles() []string {
	out := make([]string, 0, len(m.categoryOrder))
	for _, id := range m.categoryOrder {
		if f := m.groups[id].FileName(); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// newFilePath picks a path for a category without a file. It must be free
// on disk and among the categories whose files are not written yet.
func (m *Manager) newFilePath(name string) string {
	used := make(map[string]struct{})
	for _, f := range m.categoryFiles() {
		used[f] = struct{}{}
	}
	dir := m.deps.Paths.BookmarksDir
	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", name, i)
		}
		p := storage.GenerateValidAndUniqueFilePath(dir, candidate, m.deps.FileType)
		if _, taken := used[p]; !taken {
			return p
		}
	}
}

func (m *Manager) ensureFileName(g *usermark.Group) string {
	if g.FileName() == "" {
		g.SetFileName(m.newFilePath(g.Name()))
	}
	return g.FileName()
}

// saveCategories snapshots the categories on the loop and writes them on the
// save lane together with the metadata sidecar.
func (m *Manager) saveCategories(ids []core.GroupID) {
	jobs := make([]storage.SaveJob, 0, len(ids))
	for _, id := range ids {
		g := m.mustCategory(id)
		jobs = append(jobs, storage.SaveJob{Path: m.ensureFileName(g), Data: m.snapshot(id)})
	}
	meta := m.metadata.Clone()
	existing := m.categoryFiles()
	metaPath := m.deps.Paths.MetadataFile
	allocator := m.ids

	m.submit(dispatcher.Job{
		Kind: dispatcher.KindSave,
		Name: fmt.Sprintf("save %d categories", len(jobs)),
		Run: func(context.Context) dispatcher.Result {
			var errs []error
			if err := storage.SaveAll(jobs); err != nil {
				errs = append(errs, err)
			}
			if metaPath != "" {
				if err := meta.Save(metaPath, existing); err != nil {
					errs = append(errs, err)
				}
			}
			if err := allocator.Flush(); err != nil {
				errs = append(errs, err)
			}
			if err := errors.Join(errs...); err != nil {
				return dispatcher.Failure(err)
			}
			return dispatcher.Success(len(jobs))
		},
		Done: func(r dispatcher.Result) {
			if r.Err != nil {
				m.log.Error("failed to save bookmarks", "error", r.Err)
				return
			}
			m.log.Debug("bookmarks saved", "categories", r.Value)
		},
	})
}

// saveMetadata rewrites the sidecar alone.
func (m *Manager) saveMetadata() {
	metaPath := m.deps.Paths.MetadataFile
	if metaPath == "" {
		return
	}
	meta := m.metadata.Clone()
	existing := m.categoryFiles()
	m.submit(dispatcher.Job{
		Kind: dispatcher.KindSave,
		Name: "save metadata",
		Run: func(context.Context) dispatcher.Result {
			if err := meta.Save(metaPath, existing); err != nil {
				return dispatcher.Failure(err)
			}
			return dispatcher.Success(nil)
		},
		Done: func(r dispatcher.Result) {
			if r.Err != nil {
				m.log.Error("failed to save metadata", "error", r.Err)
			}
		},
	})
}

// removeFile deletes a file that no category uses anymore.
func (m *Manager) removeFile(path string) {
	m.submit(dispatcher.Job{
		Kind: dispatcher.KindSave,
		Name: "remove " + filepath.Base(path),
		Run: func(context.Context) dispatcher.Result {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return dispatcher.Failure(err)
			}
			return dispatcher.Success(nil)
		},
		Done: func(r dispatcher.Result) {
			if r.Err != nil {
				m.log.Warn("failed to remove file", "path", path, "error", r.Err)
			}
		},
	})
}

func (m *Manager) deleteBmCategory(id core.GroupID, permanently bool) bool {
	g, ok := m.groups[id]
	if !ok || !g.IsCategory() {
		return false
	}
	file, serverID := g.FileName(), g.ServerID()
	m.removeCategory(id)
	if file == "" {
		return true
	}

	trashDir := m.deps.Paths.TrashDir
	registry := m.deps.Registry
	now := m.now()
	m.submit(dispatcher.Job{
		Kind: dispatcher.KindSave,
		Name: "delete " + filepath.Base(file),
		Run: func(context.Context) dispatcher.Result {
			if permanently || trashDir == "" {
				if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
					return dispatcher.Failure(err)
				}
				if registry != nil && serverID != "" {
					if err := registry.Delete(serverID); err != nil {
						return dispatcher.Failure(err)
					}
				}
				return dispatcher.Success("")
			}
			dest, err := storage.MoveToTrash(file, trashDir, now)
			return dispatcher.Result{Value: dest, Err: err}
		},
		Done: func(r dispatcher.Result) {
			if errors.Is(r.Err, storage.ErrTrashTime) {
				m.log.Warn("trashed category has no trash time", "path", file, "error", r.Err)
				r.Err = nil
			}
			if r.Err != nil {
				m.log.Error("failed to delete category file", "path", file, "error", r.Err)
				return
			}
			if dest, _ := r.Value.(string); dest != "" {
				m.log.Info("category moved to trash", "path", file, "trashed", dest)
			}
		},
	})
	return true
}
