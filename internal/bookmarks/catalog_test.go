package bookmarks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/bookmarks/internal/catalog"
	"github.com/OCAP2/bookmarks/internal/storage"
	"github.com/OCAP2/bookmarks/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalogServer struct {
	*httptest.Server

	mu       sync.Mutex
	uploads  []map[string]string
	packages map[string][]byte
}

func newFakeCatalogServer(t *testing.T) *fakeCatalogServer {
	t.Helper()
	s := &fakeCatalogServer{packages: make(map[string][]byte)}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/bookmarks", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fields := make(map[string]string)
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		s.mu.Lock()
		s.uploads = append(s.uploads, fields)
		id := fields["id"]
		if id == "" {
			id = fmt.Sprintf("srv-%d", len(s.uploads))
		}
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(catalog.UploadResponse{ID: id})
	})
	mux.HandleFunc("GET /api/v1/bookmarks/{id}/file", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		data, ok := s.packages[r.PathValue("id")]
		s.mu.Unlock()
		if !ok {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(data)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *fakeCatalogServer) publish(t *testing.T, serverID string, data *core.FileData) {
	t.Helper()
	res := storage.ExportKMZ(t.TempDir(), storage.ExportItem{Name: data.Category.Name.Default(), Data: data}, testNow)
	require.Equal(t, storage.SharingSuccess, res.Code)
	raw, err := os.ReadFile(res.SharingPath)
	require.NoError(t, err)
	s.mu.Lock()
	s.packages[serverID] = raw
	s.mu.Unlock()
}

func (s *fakeCatalogServer) uploaded() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.uploads...)
}

func newCatalogEnv(t *testing.T) (*testEnv, *fakeCatalogServer) {
	t.Helper()
	srv := newFakeCatalogServer(t)
	client := catalog.New(srv.URL, "key", time.Second)
	e := newTestEnv(t, withDeps(func(d *Dependencies) { d.Catalog = client }))
	return e, srv
}

type uploadCall struct {
	result   UploadResult
	desc     string
	origin   core.GroupID
	resultID string
}

func TestUploadToCatalog(t *testing.T) {
	e, srv := newCatalogEnv(t)
	cat := e.m.CreateBookmarkCategory("Trip", true)
	e.drain()
	e.addBookmark(t, cat, "A", core.LatLon{Lat: 1, Lon: 1})

	var started []core.GroupID
	var calls []uploadCall
	e.m.SetCatalogHandlers(CatalogHandlers{
		UploadStarted: func(id core.GroupID) { started = append(started, id) },
		UploadFinished: func(res UploadResult, desc string, origin core.GroupID, resultID string) {
			calls = append(calls, uploadCall{res, desc, origin, resultID})
		},
	})

	e.m.UploadToCatalog(cat, core.AccessPublic)
	e.drain()

	assert.Equal(t, []core.GroupID{cat}, started)
	require.Len(t, calls, 1)
	assert.Equal(t, uploadCall{UploadSuccess, "", cat, "srv-1"}, calls[0])

	uploads := srv.uploaded()
	require.Len(t, uploads, 1)
	assert.Equal(t, "Trip", uploads[0]["name"])
	assert.Equal(t, "Public", uploads[0]["accessRules"])
	assert.Equal(t, "user-1", uploads[0]["authorId"])

	assert.True(t, e.m.IsCategoryFromCatalog(cat))
	assert.True(t, e.m.IsMyCategory(cat))
	assert.True(t, e.m.IsEditableCategory(cat))
	assert.Equal(t, "bookmarks://catalog/srv-1", e.m.GetCategoryCatalogDeeplink(cat))

	entry, ok, err := e.registry.FindByFile(filepath.Base(e.m.GetCategoryFileName(cat)))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "srv-1", entry.ServerID)
	assert.Equal(t, "Public", entry.AccessRules)

	saved, err := storage.LoadFile(e.m.GetCategoryFileName(cat))
	require.NoError(t, err)
	assert.Equal(t, "srv-1", saved.ServerID)

	// republishing keeps the server id
	e.m.UploadToCatalog(cat, core.AccessPublic)
	e.drain()
	uploads = srv.uploaded()
	require.Len(t, uploads, 2)
	assert.Equal(t, "srv-1", uploads[1]["id"])
}

func TestUploadToCatalog_Rejected(t *testing.T) {
	e, srv := newCatalogEnv(t)
	empty := e.m.CreateBookmarkCategory("Empty", false)
	foreign := e.m.CreateBookmarkCategory("Foreign", false)
	e.addBookmark(t, foreign, "A", core.LatLon{})
	e.m.Edit(func(s *EditSession) {
		s.SetCategoryAccessRules(foreign, core.AccessPublic)
		e.m.groups[foreign].SetServerID("srv-other")
		e.m.groups[foreign].SetAuthor("Someone", "user-2")
	})

	var calls []uploadCall
	e.m.SetCatalogHandlers(CatalogHandlers{
		UploadFinished: func(res UploadResult, desc string, origin core.GroupID, resultID string) {
			calls = append(calls, uploadCall{res, desc, origin, resultID})
		},
	})

	e.m.UploadToCatalog(empty, core.AccessPublic)
	e.m.UploadToCatalog(foreign, core.AccessPublic)
	e.drain()

	require.Len(t, calls, 2)
	assert.Equal(t, UploadMalformedDataError, calls[0].result)
	assert.Equal(t, UploadInvalidCall, calls[1].result)
	assert.Empty(t, srv.uploaded())
}

func TestUploadToCatalog_NotConfigured(t *testing.T) {
	e := newTestEnv(t)
	cat := e.m.CreateBookmarkCategory("Trip", false)

	var got UploadResult = UploadSuccess
	e.m.SetCatalogHandlers(CatalogHandlers{
		UploadFinished: func(res UploadResult, _ string, _ core.GroupID, _ string) { got = res },
	})
	e.m.UploadToCatalog(cat, core.AccessPublic)
	assert.Equal(t, UploadInvalidCall, got)
}

func TestDownloadFromCatalogAndImport(t *testing.T) {
	e, srv := newCatalogEnv(t)
	loadAll(t, e)
	srv.publish(t, "srv-9", &core.FileData{
		Category: core.CategoryData{
			Name:        core.NewLocalizableString("Shared Places"),
			Visible:     true,
			AccessRules: core.AccessPublic,
			AuthorID:    "user-2",
		},
		Bookmarks: []core.BookmarkData{
			{Name: core.NewLocalizableString("Museum"), Point: core.LatLon{Lat: 48.86, Lon: 2.34}, Visible: true},
		},
	})

	var downloads []DownloadResult
	var importStarted []string
	var imported core.GroupID
	importOK := false
	e.m.SetCatalogHandlers(CatalogHandlers{
		DownloadFinished: func(_ string, res DownloadResult) { downloads = append(downloads, res) },
		ImportStarted:    func(id string) { importStarted = append(importStarted, id) },
		ImportFinished: func(_ string, id core.GroupID, ok bool) {
			imported, importOK = id, ok
		},
	})

	e.m.DownloadFromCatalogAndImport("srv-9", "Shared Places")
	e.drain()

	assert.Equal(t, []DownloadResult{DownloadSuccess}, downloads)
	assert.Equal(t, []string{"srv-9"}, importStarted)
	require.True(t, importOK)
	assert.Equal(t, "Shared Places", e.m.GetCategoryName(imported))
	assert.Len(t, e.m.GetUserMarkIDs(imported), 1)
	assert.True(t, e.m.IsCategoryFromCatalog(imported))
	assert.False(t, e.m.IsEditableCategory(imported))

	entry, ok, err := e.registry.FindByFile(filepath.Base(e.m.GetCategoryFileName(imported)))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "srv-9", entry.ServerID)
	assert.Equal(t, "user-2", entry.AuthorID)

	leftovers, err := filepath.Glob(filepath.Join(e.paths.TempDir, "*.kmz"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDownloadFromCatalog_ServerError(t *testing.T) {
	e, _ := newCatalogEnv(t)

	var downloads []DownloadResult
	imports := 0
	e.m.SetCatalogHandlers(CatalogHandlers{
		DownloadFinished: func(_ string, res DownloadResult) { downloads = append(downloads, res) },
		ImportStarted:    func(string) { imports++ },
	})

	e.m.DownloadFromCatalogAndImport("missing", "")
	e.drain()

	assert.Equal(t, []DownloadResult{DownloadServerError}, downloads)
	assert.Zero(t, imports)
}

func TestClassifyCatalogErrors(t *testing.T) {
	netErr := fmt.Errorf("download request failed: %w", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("refused")})
	diskErr := fmt.Errorf("failed to create: %w", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission})
	serverErr := errors.New("download returned status 500")

	assert.Equal(t, DownloadSuccess, classifyDownload(nil))
	assert.Equal(t, DownloadNetworkError, classifyDownload(netErr))
	assert.Equal(t, DownloadDiskError, classifyDownload(diskErr))
	assert.Equal(t, DownloadServerError, classifyDownload(serverErr))

	assert.Equal(t, UploadNetworkError, classifyUpload(netErr))
	assert.Equal(t, UploadMalformedDataError, classifyUpload(diskErr))
	assert.Equal(t, UploadServerError, classifyUpload(serverErr))
}
