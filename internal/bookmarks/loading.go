package bookmarks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/OCAP2/bookmarks/internal/dispatcher"
	"github.com/OCAP2/bookmarks/internal/ids"
	"github.com/OCAP2/bookmarks/internal/kml"
	"github.com/OCAP2/bookmarks/internal/storage"
	"github.com/OCAP2/bookmarks/internal/usermark"
	"github.com/OCAP2/bookmarks/pkg/core"
)

// LoadingCallbacks report the progress of asynchronous loading. The file
// callbacks fire for single file loads only; a broken file in a directory
// load is skipped silently.
type LoadingCallbacks struct {
	Started     func()
	Finished    func()
	FileSuccess func(path string, isTemporary bool)
	FileError   func(path string, isTemporary bool)
}

// loadRequest is a queued load. An empty path loads the bookmarks directory.
type loadRequest struct {
	path      string
	temporary bool
	done      func(groups []core.GroupID, err error)
}

type loadOutcome struct {
	files    []storage.LoadedFile
	metadata *storage.Metadata
	metaErr  error
}

func (m *Manager) SetAsyncLoadingCallbacks(cb LoadingCallbacks) {
	m.loadingCallbacks = cb
}

// IsAsyncLoadingInProgress reports whether a load is running.
func (m *Manager) IsAsyncLoadingInProgress() bool {
	return m.loading
}

// LoadBookmarks reloads every category from the bookmarks directory,
// replacing the categories in memory.
func (m *Manager) LoadBookmarks() {
	m.enqueueLoad(loadRequest{})
}

// LoadBookmark loads one file. Files outside the bookmarks directory are
// imported first; a temporary source file is removed once imported.
func (m *Manager) LoadBookmark(path string, isTemporary bool) {
	m.enqueueLoad(loadRequest{path: path, temporary: isTemporary})
}

func (m *Manager) enqueueLoad(r loadRequest) {
	m.loadQueue.Push(r)
	m.processLoadQueue()
}

func (m *Manager) processLoadQueue() {
	if m.loading || m.loadQueue.Empty() {
		return
	}
	r, ok := m.loadQueue.Pop()
	if !ok {
		return
	}
	m.loading = true
	if cb := m.loadingCallbacks.Started; cb != nil {
		cb()
	}

	name := "load " + r.path
	if r.path == "" {
		name = "load all"
	}
	m.submit(dispatcher.Job{
		Kind: dispatcher.KindLoad,
		Name: name,
		Run: func(ctx context.Context) dispatcher.Result {
			return m.readFiles(ctx, r)
		},
		Done: func(res dispatcher.Result) {
			m.finishLoad(r, res)
		},
	})
}

// readFiles runs on a worker and touches nothing but the file system and
// the catalog registry.
func (m *Manager) readFiles(ctx context.Context, r loadRequest) dispatcher.Result {
	paths := m.deps.Paths
	var out loadOutcome
	if r.path == "" {
		files, err := storage.LoadDirectory(ctx, paths.BookmarksDir, m.deps.LoaderWorkers)
		if err != nil {
			return dispatcher.Failure(err)
		}
		out.files = files
		out.metadata, out.metaErr = storage.LoadMetadata(paths.MetadataFile)
	} else {
		toLoad := []string{r.path}
		if !inDir(r.path, paths.BookmarksDir) {
			imported, err := storage.PrepareImport(r.path, paths.BookmarksDir)
			if r.temporary {
				os.Remove(r.path)
			}
			if err != nil {
				return dispatcher.Failure(fmt.Errorf("importing %s: %w", r.path, err))
			}
			toLoad = imported
		}
		files, err := storage.LoadFiles(ctx, toLoad, m.deps.LoaderWorkers)
		if err != nil {
			return dispatcher.Failure(err)
		}
		out.files = files
	}
	m.linkToCatalog(out.files)
	return dispatcher.Success(out)
}

// linkToCatalog fills in the server linkage of files that lost it.
func (m *Manager) linkToCatalog(files []storage.LoadedFile) {
	reg := m.deps.Registry
	if reg == nil {
		return
	}
	for _, f := range files {
		if f.Data == nil || f.Data.ServerID != "" {
			continue
		}
		e, ok, err := reg.FindByFile(filepath.Base(f.Path))
		if err != nil {
			m.log.Warn("catalog registry lookup failed", "path", f.Path, "error", err)
			continue
		}
		if !ok {
			continue
		}
		f.Data.ServerID = e.ServerID
		if f.Data.Category.AccessRules == core.AccessLocal {
			f.Data.Category.AccessRules = core.ParseAccessRules(e.AccessRules)
		}
		if f.Data.Category.AuthorID == "" {
			f.Data.Category.AuthorID = e.AuthorID
			f.Data.Category.AuthorName = e.AuthorName
		}
	}
}

func inDir(path, dir string) bool {
	if dir == "" {
		return false
	}
	p, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	d, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return filepath.Dir(p) == d
}

func (m *Manager) finishLoad(r loadRequest, res dispatcher.Result) {
	var loaded []core.GroupID
	var loadErr error

	switch out, _ := res.Value.(loadOutcome); {
	case res.Err != nil:
		loadErr = res.Err
		m.log.Error("failed to load bookmarks", "path", r.path, "error", res.Err)
	case r.path == "":
		if out.metaErr != nil {
			m.log.Warn("failed to read metadata", "error", out.metaErr)
		}
		if out.metadata != nil {
			m.metadata = out.metadata
		}
		loaded = m.integrateAll(out.files, true)
		m.CheckAndCreateDefaultCategory()
		m.restoreLastEditedCategory()
	default:
		loaded = m.integrateAll(out.files, false)
		for _, f := range out.files {
			if f.Err != nil && loadErr == nil {
				loadErr = f.Err
			}
		}
	}

	if r.path != "" {
		cb := m.loadingCallbacks.FileSuccess
		if loadErr != nil || len(loaded) == 0 {
			cb = m.loadingCallbacks.FileError
		}
		if cb != nil {
			cb(r.path, r.temporary)
		}
	}
	if r.done != nil {
		r.done(loaded, loadErr)
	}

	m.loading = false
	if cb := m.loadingCallbacks.Finished; cb != nil {
		cb()
	}
	m.processLoadQueue()
}

// integrateAll adds the parsed files as categories in one session.
func (m *Manager) integrateAll(files []storage.LoadedFile, replace bool) []core.GroupID {
	var out []core.GroupID
	m.Edit(func(*EditSession) {
		if replace {
			for _, id := range slices.Clone(m.categoryOrder) {
				m.removeCategory(id)
			}
		}
		for _, f := range files {
			if f.Err != nil || f.Data == nil {
				m.log.Warn("skipping bookmarks file", "path", f.Path, "error", f.Err)
				continue
			}
			out = append(out, m.integrate(f.Path, f.Data))
		}
	})
	return out
}

// hasIDConflicts reports whether the ids in data clash with live entities,
// with each other or with the id layout.
func (m *Manager) hasIDConflicts(data *core.FileData, reuse core.GroupID) bool {
	groupIDs := make(usermark.GroupIDSet)
	checkGroup := func(id core.GroupID) bool {
		if id == core.InvalidGroupID {
			return true
		}
		if !usermark.IsBookmarkGroupID(id) || !groupIDs.Add(id) {
			return false
		}
		_, live := m.groups[id]
		return !live || id == reuse
	}
	if !checkGroup(data.Category.ID) {
		return true
	}
	for _, c := range data.Compilations {
		if !checkGroup(c.ID) {
			return true
		}
	}

	markIDs := make(usermark.MarkIDSet)
	for _, b := range data.Bookmarks {
		if b.ID == core.InvalidMarkID {
			continue
		}
		if ids.MarkType(b.ID) != ids.BookmarkType || !markIDs.Add(b.ID) {
			return true
		}
		if _, live := m.bookmarks[b.ID]; live {
			return true
		}
	}

	trackIDs := make(usermark.TrackIDSet)
	for _, t := range data.Tracks {
		if t.ID == core.InvalidTrackID {
			continue
		}
		if !trackIDs.Add(t.ID) {
			return true
		}
		if _, live := m.tracks[t.ID]; live {
			return true
		}
	}
	return false
}

// observeIDs keeps the allocator above every id kept from a file.
func (m *Manager) observeIDs(data *core.FileData) {
	m.ids.Observe(ids.KindCategory, uint64(data.Category.ID))
	for _, c := range data.Compilations {
		m.ids.Observe(ids.KindCategory, uint64(c.ID))
	}
	for _, b := range data.Bookmarks {
		m.ids.Observe(ids.KindBookmark, uint64(b.ID))
	}
	for _, t := range data.Tracks {
		m.ids.Observe(ids.KindTrack, uint64(t.ID))
	}
}

func (m *Manager) uniqueCategoryName(name string) string {
	if !m.IsUsedCategoryName(name) {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s %d", name, i)
		if !m.IsUsedCategoryName(candidate) {
			return candidate
		}
	}
}

func (m *Manager) findByServerID(serverID string) *usermark.Group {
	if serverID == "" {
		return nil
	}
	for _, id := range m.categoryOrder {
		if g := m.groups[id]; g.ServerID() == serverID {
			return g
		}
	}
	return nil
}

// integrate turns one parsed file into a category. A category with the same
// server id is replaced in place. It must run inside a session.
func (m *Manager) integrate(path string, data *core.FileData) core.GroupID {
	existing := m.findByServerID(data.ServerID)
	reuse := core.InvalidGroupID
	if existing != nil {
		reuse = existing.ID()
	}

	rewrite := false
	if !m.ids.CheckIds(data) || m.hasIDConflicts(data, reuse) {
		kml.ResetIDs(data)
		rewrite = true
	}
	m.observeIDs(data)

	cat := data.Category
	lastModified := cat.LastModified

	var g *usermark.Group
	if existing != nil {
		m.log.Info("replacing category from newer file", "category", existing.ID(), "path", path)
		m.clearCategory(existing)
		if old := existing.FileName(); old != "" && old != path {
			m.removeFile(old)
			if m.deps.Registry != nil {
				if err := m.deps.Registry.Rename(filepath.Base(old), filepath.Base(path)); err != nil {
					m.log.Warn("failed to rename catalog entry", "path", path, "error", err)
				}
			}
			m.metadata.Rename(old, path)
		}
		existing.SetData(cat)
		g = existing
	} else {
		if name := cat.Name.Default(); m.IsUsedCategoryName(name) {
			cat.Name = cat.Name.Clone()
			cat.Name[core.DefaultLang] = m.uniqueCategoryName(name)
			rewrite = true
		}
		if cat.ID == core.InvalidGroupID {
			cat.ID = m.ids.NextGroupID()
		}
		g = usermark.NewCategory(cat, true)
		m.addCategory(g)
	}
	id := g.ID()

	byLocalID := make(map[uint64]core.GroupID, len(data.Compilations))
	for _, cd := range data.Compilations {
		if cd.ID == core.InvalidGroupID {
			cd.ID = m.ids.NextGroupID()
		}
		c := usermark.NewCompilation(cd, g)
		m.groups[c.ID()] = c
		m.tracker.OnAddGroup(c.ID())
		byLocalID[cd.CompilationID] = c.ID()
	}

	for _, bd := range data.Bookmarks {
		local := bd.Compilations
		bd.Compilations = nil
		if bd.ID == core.InvalidMarkID {
			bd.ID = m.ids.NextBookmarkID()
		}
		b := usermark.NewBookmark(bd)
		m.bookmarks[bd.ID] = b
		m.tracker.OnAddMark(bd.ID)
		m.attachBookmark(bd.ID, id)
		for _, lid := range local {
			if cid, ok := byLocalID[lid]; ok {
				m.attachToCompilation(bd.ID, cid)
			}
		}
	}

	for _, td := range data.Tracks {
		if td.ID == core.InvalidTrackID {
			td.ID = m.ids.NextTrackID()
		}
		t := usermark.NewTrack(td)
		m.tracks[td.ID] = t
		m.tracker.OnAddLine(td.ID)
		m.attachTrack(td.ID, id)
	}

	g.SetFileName(path)
	if data.ServerID != "" {
		g.SetServerID(data.ServerID)
	}
	if !lastModified.IsZero() {
		g.RestoreLastModified(lastModified)
	}
	if !rewrite {
		m.skipSave.Add(id)
	}
	return id
}

// clearCategory erases the content and the compilations of a category,
// keeping the category itself.
func (m *Manager) clearCategory(g *usermark.Group) {
	for _, c := range m.compilationsOf(g.ID()) {
		m.clearGroup(c.ID())
		delete(m.groups, c.ID())
		m.tracker.OnDeleteGroup(c.ID())
	}
	m.clearGroup(g.ID())
	g.SetCompilationIDs(nil)
}

// removeCategory drops a category from memory only. Its file stays.
func (m *Manager) removeCategory(id core.GroupID) {
	g := m.mustCategory(id)
	m.clearCategory(g)
	delete(m.groups, id)
	for i, cid := range m.categoryOrder {
		if cid == id {
			m.categoryOrder = append(m.categoryOrder[:i], m.categoryOrder[i+1:]...)
			break
		}
	}
	m.tracker.OnDeleteGroup(id)
	if m.lastEditedCategory == id {
		m.lastEditedCategory = core.InvalidGroupID
	}
	if m.recentlyDeleted != nil && m.recentlyDeleted.groupID == id {
		m.recentlyDeleted.groupID = core.InvalidGroupID
	}
}
