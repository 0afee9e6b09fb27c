package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OCAP2/bookmarks/internal/config"
	"github.com/OCAP2/bookmarks/internal/kml"
	"github.com/OCAP2/bookmarks/internal/loop"
	"github.com/OCAP2/bookmarks/internal/storage"
	"github.com/OCAP2/bookmarks/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(dataDir string) appConfig {
	return appConfig{
		Paths:               config.PathsConfig{DataDir: dataDir},
		Loader:              config.LoaderConfig{Workers: 2, QueueSize: 8},
		FileType:            "kml",
		Language:            "en",
		UserID:              "user-1",
		DefaultCategoryName: "My Places",
	}
}

func runCommand(t *testing.T, dataDir string, opts options, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, err := newApp(ctx, loop.New(), testConfig(dataDir), slog.New(slog.DiscardHandler), zerolog.Nop())
	require.NoError(t, err)

	var out bytes.Buffer
	runErr := run(ctx, a, &out, opts, args)
	require.NoError(t, a.Close())
	return out.String(), runErr
}

func seedCategory(t *testing.T, dataDir, name string, marks ...string) string {
	t.Helper()
	paths := storage.DefaultPaths(dataDir)
	require.NoError(t, paths.Ensure())

	data := &core.FileData{Category: core.CategoryData{Name: core.NewLocalizableString(name), Visible: true}}
	for i, m := range marks {
		data.Bookmarks = append(data.Bookmarks, core.BookmarkData{
			Name:    core.NewLocalizableString(m),
			Point:   core.LatLon{Lat: 50 + float64(i), Lon: 10},
			Visible: true,
		})
	}
	path := storage.GenerateValidAndUniqueFilePath(paths.BookmarksDir, name, kml.FileTypeKML)
	require.NoError(t, storage.SaveFileSafe(path, data))
	return path
}

func TestRun_Usage(t *testing.T) {
	dir := t.TempDir()

	_, err := runCommand(t, dir, options{})
	assert.ErrorIs(t, err, errUsage)

	_, err = runCommand(t, dir, options{}, "frobnicate")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, err.Error(), `unknown command "frobnicate"`)
}

func TestRun_List(t *testing.T) {
	dir := t.TempDir()
	seedCategory(t, dir, "Trip", "Cafe", "Museum")

	out, err := runCommand(t, dir, options{}, "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Equal(t, []string{"Trip", "2", "0", "true", "Local"}, strings.Fields(lines[1])[:5])
}

func TestRun_List_EmptyDirectoryGetsDefaultCategory(t *testing.T) {
	out, err := runCommand(t, t.TempDir(), options{}, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "My Places")
}

func TestRun_Export(t *testing.T) {
	dir := t.TempDir()
	seedCategory(t, dir, "Trip", "Cafe")
	seedCategory(t, dir, "Hike", "Peak")

	out, err := runCommand(t, dir, options{}, "export", "Trip")
	require.NoError(t, err)
	fields := strings.Split(strings.TrimSpace(out), "\t")
	require.Len(t, fields, 2)
	assert.FileExists(t, fields[0])
	assert.Equal(t, storage.MimeKMZ, fields[1])

	out, err = runCommand(t, dir, options{GPX: true}, "export", "Trip")
	require.NoError(t, err)
	assert.Contains(t, out, storage.MimeGPX)

	out, err = runCommand(t, dir, options{GPX: true}, "export", "Trip", "Hike")
	require.NoError(t, err)
	assert.Contains(t, out, storage.MimeKMZ)

	_, err = runCommand(t, dir, options{}, "export", "Nowhere")
	assert.ErrorContains(t, err, `no category named "Nowhere"`)

	_, err = runCommand(t, dir, options{}, "export")
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_Sort(t *testing.T) {
	dir := t.TempDir()
	seedCategory(t, dir, "Trip", "Zoo", "Bakery")

	out, err := runCommand(t, dir, options{}, "sort", "Trip", "ByName")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "  Bakery"), strings.Index(out, "  Zoo"))
	assert.True(t, strings.HasPrefix(out, "Bookmarks\n"), out)

	_, err = runCommand(t, dir, options{}, "sort", "Trip", "ByDistance")
	assert.ErrorContains(t, err, "unsupported sorting type")

	_, err = runCommand(t, dir, options{}, "sort", "Trip")
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_Trash(t *testing.T) {
	dir := t.TempDir()
	file := seedCategory(t, dir, "Old", "A")
	seedCategory(t, dir, "Kept", "B")

	out, err := runCommand(t, dir, options{}, "trash")
	require.NoError(t, err)
	assert.Empty(t, out)

	trashed, err := storage.MoveToTrash(file, storage.DefaultPaths(dir).TrashDir, time.Now())
	require.NoError(t, err)

	out, err = runCommand(t, dir, options{}, "trash")
	require.NoError(t, err)
	assert.Contains(t, out, trashed)
}

func TestRun_Import(t *testing.T) {
	dir := t.TempDir()
	seedCategory(t, dir, "Trip", "Cafe")

	src := filepath.Join(t.TempDir(), "Alps.gpx")
	require.NoError(t, storage.SaveFileSafe(src, &core.FileData{
		Category: core.CategoryData{Name: core.NewLocalizableString("Alps"), Visible: true},
		Bookmarks: []core.BookmarkData{
			{Name: core.NewLocalizableString("Peak"), Point: core.LatLon{Lat: 46.5, Lon: 8}, Visible: true},
		},
	}))

	out, err := runCommand(t, dir, options{}, "import", src)
	require.NoError(t, err)
	assert.Contains(t, out, "imported")
	assert.FileExists(t, src)

	out, err = runCommand(t, dir, options{}, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Alps")

	_, err = runCommand(t, dir, options{}, "import", filepath.Join(t.TempDir(), "missing.kml"))
	assert.ErrorContains(t, err, "could not import")
}

func TestRun_CatalogNotConfigured(t *testing.T) {
	dir := t.TempDir()
	seedCategory(t, dir, "Trip", "Cafe")

	_, err := runCommand(t, dir, options{Access: "Public"}, "publish", "Trip")
	assert.ErrorContains(t, err, "upload failed")

	_, err = runCommand(t, dir, options{}, "download", "srv-1")
	assert.ErrorContains(t, err, "download failed")
}

func TestParseFileType(t *testing.T) {
	tests := []struct {
		in   string
		want kml.FileType
	}{
		{"", kml.FileTypeKML},
		{"KML", kml.FileTypeKML},
		{"gpx", kml.FileTypeGPX},
		{"geojson", kml.FileTypeGeoJSON},
	}
	for _, tt := range tests {
		got, err := parseFileType(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseFileType("kmz")
	assert.Error(t, err)
}

func TestResolvePaths(t *testing.T) {
	p, db := resolvePaths(config.PathsConfig{DataDir: "/data"})
	assert.Equal(t, storage.DefaultPaths("/data"), p)
	assert.Equal(t, filepath.Join("/data", settingsDBName), db)

	p, db = resolvePaths(config.PathsConfig{
		DataDir:      "/data",
		BookmarksDir: "/marks",
		SettingsDB:   "/var/settings.db",
	})
	assert.Equal(t, "/marks", p.BookmarksDir)
	assert.Equal(t, filepath.Join("/data", ".Trash"), p.TrashDir)
	assert.Equal(t, "/var/settings.db", db)
}
