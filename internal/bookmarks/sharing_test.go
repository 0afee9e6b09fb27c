package bookmarks

import (
	"path/filepath"
	"testing"

	"github.com/OCAP2/bookmarks/internal/kml"
	"github.com/OCAP2/bookmarks/internal/storage"
	"github.com/OCAP2/bookmarks/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func share(e *testEnv, ids []core.GroupID, ft kml.FileType) []storage.SharingResult {
	var results []storage.SharingResult
	e.m.PrepareFileForSharing(ids, func(r storage.SharingResult) { results = append(results, r) }, ft)
	e.drain()
	return results
}

func TestPrepareFileForSharing_SingleCategory(t *testing.T) {
	e := newTestEnv(t)
	cat := e.m.CreateBookmarkCategory("Trip", false)
	e.addBookmark(t, cat, "A", core.LatLon{Lat: 1, Lon: 2})

	results := share(e, []core.GroupID{cat}, kml.FileTypeKML)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, storage.SharingSuccess, r.Code)
	assert.Equal(t, storage.MimeKMZ, r.MimeType)
	assert.Equal(t, []core.GroupID{cat}, r.CategoryIDs)
	assert.Equal(t, e.paths.TempDir, filepath.Dir(r.SharingPath))
	assert.FileExists(t, r.SharingPath)

	results = share(e, []core.GroupID{cat}, kml.FileTypeGPX)
	require.Len(t, results, 1)
	assert.Equal(t, storage.MimeGPX, results[0].MimeType)

	data, err := storage.LoadFile(results[0].SharingPath)
	require.NoError(t, err)
	require.Len(t, data.Bookmarks, 1)
	assert.Equal(t, "A", data.Bookmarks[0].Name.Default())
}

func TestPrepareFileForSharing_Bundle(t *testing.T) {
	e := newTestEnv(t)
	first := e.m.CreateBookmarkCategory("First", false)
	second := e.m.CreateBookmarkCategory("Second", false)
	empty := e.m.CreateBookmarkCategory("Empty", false)
	e.addBookmark(t, first, "A", core.LatLon{})
	e.addBookmark(t, second, "B", core.LatLon{})

	results := share(e, []core.GroupID{first, second, empty}, kml.FileTypeGPX)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, storage.SharingSuccess, r.Code)
	assert.Equal(t, storage.MimeKMZ, r.MimeType, "several categories are always bundled")
	assert.Equal(t, []core.GroupID{first, second, empty}, r.CategoryIDs)
	assert.FileExists(t, r.SharingPath)
}

func TestPrepareFileForSharing_Empty(t *testing.T) {
	e := newTestEnv(t)
	cat := e.m.CreateBookmarkCategory("Empty", false)

	results := share(e, []core.GroupID{cat}, kml.FileTypeKML)
	require.Len(t, results, 1)
	assert.Equal(t, storage.SharingEmptyCategory, results[0].Code)
	assert.NotEmpty(t, results[0].ErrorString)
	assert.Equal(t, []core.GroupID{cat}, results[0].CategoryIDs)
}

func TestPrepareTrackFileForSharing(t *testing.T) {
	e := newTestEnv(t)
	cat := e.m.CreateBookmarkCategory("Trip", false)
	e.addBookmark(t, cat, "Not shared", core.LatLon{})

	var trackID core.TrackID
	e.m.Edit(func(s *EditSession) {
		tr := s.CreateTrack(core.TrackData{
			Name: core.NewLocalizableString("Morning walk"),
			Geometry: core.MultiGeometry{Lines: [][]core.GeoPoint{{
				{LatLon: core.LatLon{Lat: 10, Lon: 10}},
				{LatLon: core.LatLon{Lat: 10.01, Lon: 10.01}},
			}}},
		})
		trackID = tr.ID()
		s.AttachTrack(trackID, cat)
	})

	var results []storage.SharingResult
	e.m.PrepareTrackFileForSharing(trackID, func(r storage.SharingResult) { results = append(results, r) }, kml.FileTypeGPX)
	e.drain()

	require.Len(t, results, 1)
	r := results[0]
	require.Equal(t, storage.SharingSuccess, r.Code)
	assert.Equal(t, []core.GroupID{cat}, r.CategoryIDs)

	data, err := storage.LoadFile(r.SharingPath)
	require.NoError(t, err)
	assert.Empty(t, data.Bookmarks)
	require.Len(t, data.Tracks, 1)
	assert.Equal(t, "Morning walk", data.Tracks[0].Name.Default())
}
