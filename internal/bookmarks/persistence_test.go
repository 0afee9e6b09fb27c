package bookmarks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/bookmarks/internal/kml"
	"github.com/OCAP2/bookmarks/internal/storage"
	"github.com/OCAP2/bookmarks/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadAll(t *testing.T, e *testEnv) {
	t.Helper()
	e.m.LoadBookmarks()
	assert.True(t, e.m.IsAsyncLoadingInProgress())
	e.drain()
	require.False(t, e.m.IsAsyncLoadingInProgress())
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	e := newTestEnv(t)
	cat := e.m.CreateBookmarkCategory("Trip", true)
	e.drain()
	id := e.addBookmark(t, cat, "Cafe", core.LatLon{Lat: 52.5, Lon: 13.4})

	file := e.m.GetCategoryFileName(cat)
	require.NotEmpty(t, file)
	assert.FileExists(t, file)
	assert.Equal(t, e.paths.BookmarksDir, filepath.Dir(file))

	reloaded := newTestEnv(t, withStorage(e))
	var started, finished int
	reloaded.m.SetAsyncLoadingCallbacks(LoadingCallbacks{
		Started:  func() { started++ },
		Finished: func() { finished++ },
	})
	loadAll(t, reloaded)
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, finished)

	require.Equal(t, []core.GroupID{cat}, reloaded.m.GetBmGroupsIDList())
	assert.Equal(t, "Trip", reloaded.m.GetCategoryName(cat))
	require.Equal(t, []core.MarkID{id}, reloaded.m.GetUserMarkIDs(cat))
	b, ok := reloaded.m.GetBookmark(id)
	require.True(t, ok)
	assert.Equal(t, "Cafe", b.Name())
	assert.InDelta(t, 52.5, b.Point().Lat, 1e-6)
	assert.Equal(t, cat, reloaded.m.LastEditedBMCategory())
}

func TestLoadBookmarks_CreatesDefaultCategory(t *testing.T) {
	e := newTestEnv(t)
	loadAll(t, e)

	groups := e.m.GetBmGroupsIDList()
	require.Len(t, groups, 1)
	assert.Equal(t, defaultCategoryName, e.m.GetCategoryName(groups[0]))
}

func TestLoadBookmarks_SkipsBrokenFiles(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(e.paths.BookmarksDir, "broken.kml"), []byte("<kml"), 0o644))
	good := storage.GenerateValidAndUniqueFilePath(e.paths.BookmarksDir, "Good", kml.FileTypeKML)
	require.NoError(t, storage.SaveFileSafe(good, &core.FileData{
		Category:  core.CategoryData{Name: core.NewLocalizableString("Good"), Visible: true},
		Bookmarks: []core.BookmarkData{{Name: core.NewLocalizableString("A"), Visible: true}},
	}))

	loadAll(t, e)
	id, ok := e.m.GetCategoryID("Good")
	require.True(t, ok)
	assert.Len(t, e.m.GetUserMarkIDs(id), 1)
	assert.Len(t, e.m.GetBmGroupsIDList(), 1)
}

func TestLoadBookmark_ImportsExternalFile(t *testing.T) {
	e := newTestEnv(t)
	loadAll(t, e)

	src := filepath.Join(t.TempDir(), "Shared.gpx")
	require.NoError(t, storage.SaveFileSafe(src, &core.FileData{
		Category: core.CategoryData{Name: core.NewLocalizableString("Shared"), Visible: true},
		Bookmarks: []core.BookmarkData{
			{Name: core.NewLocalizableString("Peak"), Point: core.LatLon{Lat: 46.5, Lon: 8}, Visible: true},
		},
	}))

	var ok, failed []string
	e.m.SetAsyncLoadingCallbacks(LoadingCallbacks{
		FileSuccess: func(path string, _ bool) { ok = append(ok, path) },
		FileError:   func(path string, _ bool) { failed = append(failed, path) },
	})
	e.m.LoadBookmark(src, true)
	e.drain()

	assert.Equal(t, []string{src}, ok)
	assert.Empty(t, failed)
	assert.NoFileExists(t, src)
	assert.Len(t, e.m.GetBmGroupsIDList(), 2)

	e.m.LoadBookmark(filepath.Join(t.TempDir(), "missing.kml"), false)
	e.drain()
	assert.Len(t, failed, 1)
}

func TestLoadBookmark_RenamesCollidingCategory(t *testing.T) {
	e := newTestEnv(t)
	e.m.CreateBookmarkCategory("Trip", false)

	src := filepath.Join(t.TempDir(), "Trip.kml")
	require.NoError(t, storage.SaveFileSafe(src, &core.FileData{
		Category:  core.CategoryData{Name: core.NewLocalizableString("Trip"), Visible: true},
		Bookmarks: []core.BookmarkData{{Name: core.NewLocalizableString("A"), Visible: true}},
	}))
	e.m.LoadBookmark(src, false)
	e.drain()

	_, ok := e.m.GetCategoryID("Trip 1")
	assert.True(t, ok)
	assert.FileExists(t, src)
}

func TestLoadBookmark_ReassignsConflictingIDs(t *testing.T) {
	e := newTestEnv(t)
	cat := e.m.CreateBookmarkCategory("Trip", true)
	e.drain()
	id := e.addBookmark(t, cat, "A", core.LatLon{})

	// a copy of the same file under another name carries the same ids
	copyPath := filepath.Join(t.TempDir(), "Copy.kml")
	data, err := storage.LoadFile(e.m.GetCategoryFileName(cat))
	require.NoError(t, err)
	data.Category.Name = core.NewLocalizableString("Copy")
	require.NoError(t, storage.SaveFileSafe(copyPath, data))

	e.m.LoadBookmark(copyPath, false)
	e.drain()

	copyID, ok := e.m.GetCategoryID("Copy")
	require.True(t, ok)
	assert.NotEqual(t, cat, copyID)
	marks := e.m.GetUserMarkIDs(copyID)
	require.Len(t, marks, 1)
	assert.NotEqual(t, id, marks[0])
}

func TestDeleteCategory_TrashAndRecover(t *testing.T) {
	e := newTestEnv(t)
	cat := e.m.CreateBookmarkCategory("Trip", true)
	e.drain()
	e.addBookmark(t, cat, "A", core.LatLon{})
	file := e.m.GetCategoryFileName(cat)

	e.m.Edit(func(s *EditSession) { assert.True(t, s.DeleteBmCategory(cat, false)) })
	e.drain()

	assert.False(t, e.m.HasBmCategory(cat))
	assert.NoFileExists(t, file)
	assert.Equal(t, 1, e.m.RecentlyDeletedCategoriesCount())

	var trashed []storage.TrashedFile
	e.m.GetRecentlyDeletedCategories(func(files []storage.TrashedFile, err error) {
		require.NoError(t, err)
		trashed = files
	})
	e.drain()
	require.Len(t, trashed, 1)

	e.m.RecoverRecentlyDeletedCategories([]string{trashed[0].Path, file})
	e.drain()

	assert.Zero(t, e.m.RecentlyDeletedCategoriesCount())
	id, ok := e.m.GetCategoryID("Trip")
	require.True(t, ok)
	assert.Len(t, e.m.GetUserMarkIDs(id), 1)
}

func TestDeleteCategory_Permanently(t *testing.T) {
	e := newTestEnv(t)
	cat := e.m.CreateBookmarkCategory("Trip", true)
	e.drain()
	file := e.m.GetCategoryFileName(cat)
	require.FileExists(t, file)

	e.m.Edit(func(s *EditSession) { s.DeleteBmCategory(cat, true) })
	e.drain()

	assert.NoFileExists(t, file)
	assert.Zero(t, e.m.RecentlyDeletedCategoriesCount())
	e.m.Edit(func(s *EditSession) { assert.False(t, s.DeleteBmCategory(cat, true)) })
}

func TestDeleteRecentlyDeletedCategories(t *testing.T) {
	e := newTestEnv(t)
	cat := e.m.CreateBookmarkCategory("Trip", true)
	e.drain()
	e.m.Edit(func(s *EditSession) { s.DeleteBmCategory(cat, false) })
	e.drain()

	files, err := storage.ListTrash(e.paths.TrashDir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	outside := filepath.Join(e.paths.BookmarksDir, "keep.kml")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	e.m.DeleteRecentlyDeletedCategories([]string{files[0].Path, outside})
	e.drain()
	assert.Zero(t, e.m.RecentlyDeletedCategoriesCount())
	assert.FileExists(t, outside)
}

func TestSaveBookmarks_Explicit(t *testing.T) {
	e := newTestEnv(t)
	cat := e.m.CreateBookmarkCategory("Manual", false)
	e.addBookmark(t, cat, "A", core.LatLon{})
	assert.Empty(t, e.m.GetCategoryFileName(cat))

	var comp core.GroupID
	e.m.Edit(func(s *EditSession) {
		comp = s.CreateCompilation(cat, core.CategoryData{Name: core.NewLocalizableString("Day")})
	})
	e.m.SaveBookmarks([]core.GroupID{comp})
	e.drain()

	file := e.m.GetCategoryFileName(cat)
	require.NotEmpty(t, file)
	data, err := storage.LoadFile(file)
	require.NoError(t, err)
	assert.Len(t, data.Bookmarks, 1)
	assert.Len(t, data.Compilations, 1)
}

func TestLastSortingType_Persisted(t *testing.T) {
	e := newTestEnv(t)
	cat := e.m.CreateBookmarkCategory("Trip", false)

	_, ok := e.m.GetLastSortingType(cat)
	assert.False(t, ok)

	e.m.SetLastSortingType(cat, core.SortByName)
	e.drain()
	got, ok := e.m.GetLastSortingType(cat)
	require.True(t, ok)
	assert.Equal(t, core.SortByName, got)

	meta, err := storage.LoadMetadata(e.paths.MetadataFile)
	require.NoError(t, err)
	persisted, ok := meta.SortingType(e.m.GetCategoryFileName(cat))
	require.True(t, ok)
	assert.Equal(t, core.SortByName, persisted)

	e.m.ResetLastSortingType(cat)
	e.drain()
	_, ok = e.m.GetLastSortingType(cat)
	assert.False(t, ok)
}
