package kml

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OCAP2/bookmarks/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFileData() *core.FileData {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &core.FileData{
		ServerID: "srv-42",
		Category: core.CategoryData{
			ID:             7,
			Name:           core.LocalizableString{core.DefaultLang: "Paris trip", "fr": "Voyage à Paris"},
			Description:    core.NewLocalizableString("Spring <2024> & friends"),
			Visible:        true,
			AuthorName:     "Alex",
			AuthorID:       "u-1",
			LastModified:   t0,
			Rating:         4.5,
			ReviewsNumber:  12,
			AccessRules:    core.AccessPublic,
			Tags:           []string{"city", "food"},
			Languages:      []string{"en", "fr"},
			Properties:     map[string]string{"origin": "import"},
			CompilationIDs: []uint64{1},
		},
		Compilations: []core.CategoryData{{
			CompilationID: 1,
			Type:          core.CompilationCollection,
			Name:          core.NewLocalizableString("Museums"),
			Visible:       true,
		}},
		Bookmarks: []core.BookmarkData{
			{
				ID:             101,
				Name:           core.LocalizableString{core.DefaultLang: "Louvre", "fr": "Le Louvre"},
				Description:    core.NewLocalizableString("Big museum"),
				CustomName:     core.NewLocalizableString("Must see"),
				FeatureTypes:   []uint32{12, 34},
				Color:          core.ColorData{Predefined: core.ColorRed},
				Icon:           core.IconMuseum,
				ViewportScale:  15,
				Timestamp:      t0.Add(-48 * time.Hour),
				Point:          core.LatLon{Lat: 48.8606, Lon: 2.3376},
				BoundTracks:    []uint8{1},
				Visible:        true,
				NearestToponym: "Paris",
				MinZoom:        10,
				Properties:     map[string]string{"phone": "+33 1"},
				Compilations:   []uint64{1},
				Address:        "Île-de-France",
			},
			{
				ID:      102,
				Name:    core.NewLocalizableString("Café"),
				Color:   core.ColorData{RGBA: 0x11223344},
				Point:   core.LatLon{Lat: 48.85, Lon: 2.35},
				Visible: false,
			},
		},
		Tracks: []core.TrackData{{
			ID:        201,
			LocalID:   1,
			Name:      core.NewLocalizableString("Walk"),
			Layers:    []core.TrackLayer{{LineWidth: 5, Color: core.ColorData{Predefined: core.ColorBlue}}, {LineWidth: 2.5, Color: core.ColorData{RGBA: 0xFF0000FF}}},
			Timestamp: t0,
			Visible:   true,
			Geometry: core.MultiGeometry{
				Lines: [][]core.GeoPoint{
					{{LatLon: core.LatLon{Lat: 48.86, Lon: 2.33}, Altitude: 35}, {LatLon: core.LatLon{Lat: 48.87, Lon: 2.34}}},
					{{LatLon: core.LatLon{Lat: 48.80, Lon: 2.30}}, {LatLon: core.LatLon{Lat: 48.81, Lon: 2.31}}},
				},
				Timestamps: [][]time.Time{
					{t0, t0.Add(time.Minute)},
					{t0.Add(time.Hour), t0.Add(time.Hour + time.Minute)},
				},
			},
		}},
	}
}

func TestKML_RoundTrip(t *testing.T) {
	data := sampleFileData()

	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, data, FileTypeKML))
	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))
	assert.Contains(t, buf.String(), "#placemark-red")

	got, err := Deserialize(&buf, FileTypeKML)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestKML_RoundTripSingleLineTrack(t *testing.T) {
	data := &core.FileData{
		Category: core.CategoryData{Name: core.NewLocalizableString("One"), Visible: true},
		Tracks: []core.TrackData{{
			Name:    core.NewLocalizableString("Line"),
			Visible: true,
			Geometry: core.MultiGeometry{Lines: [][]core.GeoPoint{
				{{LatLon: core.LatLon{Lat: 1, Lon: 2}}, {LatLon: core.LatLon{Lat: 3, Lon: 4}}},
			}},
		}},
	}

	raw, err := Marshal(data, FileTypeKML)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "MultiGeometry")

	got, err := Deserialize(bytes.NewReader(raw), FileTypeKML)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestKML_ThirdPartyDocument(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2" xmlns:gx="http://www.google.com/kml/ext/2.2">
<Document>
  <name>Imported</name>
  <Folder>
    <name>Stuff</name>
    <Placemark>
      <name>Peak</name>
      <Point><coordinates>7.6586,45.9763,4478</coordinates></Point>
    </Placemark>
    <Placemark>
      <name>Hike</name>
      <Style><LineStyle><color>ff0000ff</color><width>3</width></LineStyle></Style>
      <gx:Track>
        <when>2024-01-01T10:00:00Z</when>
        <when>2024-01-01T10:05:00Z</when>
        <gx:coord>7.60 45.90 1000</gx:coord>
        <gx:coord>7.61 45.91 1100</gx:coord>
      </gx:Track>
    </Placemark>
  </Folder>
</Document>
</kml>`

	got, err := Deserialize(strings.NewReader(doc), FileTypeKML)
	require.NoError(t, err)

	assert.Equal(t, "Imported", got.Category.Name.Default())
	assert.True(t, got.Category.Visible)
	assert.Empty(t, got.Compilations, "plain folders are not compilations")

	require.Len(t, got.Bookmarks, 1)
	assert.Equal(t, "Peak", got.Bookmarks[0].Name.Default())
	assert.InDelta(t, 45.9763, got.Bookmarks[0].Point.Lat, 1e-9)
	assert.True(t, got.Bookmarks[0].Visible)

	require.Len(t, got.Tracks, 1)
	tr := got.Tracks[0]
	require.Len(t, tr.Geometry.Lines, 1)
	assert.Equal(t, 1100.0, tr.Geometry.Lines[0][1].Altitude)
	require.True(t, tr.Geometry.HasTimestampsFor(0))
	assert.Equal(t, 5*time.Minute, tr.Geometry.Timestamps[0][1].Sub(tr.Geometry.Timestamps[0][0]))
	require.Len(t, tr.Layers, 1)
	assert.Equal(t, uint32(0xFF0000FF), tr.Layers[0].Color.RGBA, "aabbggrr ff0000ff is opaque red")
	assert.Equal(t, 3.0, tr.Layers[0].LineWidth)
}

func TestKML_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not xml", "hello"},
		{"no document", `<kml xmlns="http://www.opengis.net/kml/2.2"></kml>`},
		{"bad point", `<kml><Document><Placemark><Point><coordinates>x,y</coordinates></Point></Placemark></Document></kml>`},
		{"mismatched gx track", `<kml><Document><Placemark><Track><when>2024-01-01T00:00:00Z</when><coord>1 2 3</coord><coord>1 3 3</coord></Track></Placemark></Document></kml>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(strings.NewReader(tt.doc), FileTypeKML)
			assert.Error(t, err)
		})
	}
}

func TestGPX_WriteAndRead(t *testing.T) {
	data := sampleFileData()

	raw, err := Marshal(data, FileTypeGPX)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<wpt")
	assert.Contains(t, string(raw), "<trkseg>")

	got, err := Deserialize(bytes.NewReader(raw), FileTypeGPX)
	require.NoError(t, err)

	assert.Equal(t, "Paris trip", got.Category.Name.Default())
	require.Len(t, got.Bookmarks, 2)
	assert.Equal(t, "Must see", got.Bookmarks[0].Name.Default(), "custom name wins in GPX")
	assert.Equal(t, data.Bookmarks[0].Point, got.Bookmarks[0].Point)
	assert.True(t, data.Bookmarks[0].Timestamp.Equal(got.Bookmarks[0].Timestamp))
	assert.Equal(t, core.IconMuseum, got.Bookmarks[0].Icon)

	require.Len(t, got.Tracks, 1)
	assert.Equal(t, data.Tracks[0].Geometry.Lines, got.Tracks[0].Geometry.Lines)
	require.True(t, got.Tracks[0].Geometry.HasTimestampsFor(1))
	assert.True(t, data.Tracks[0].Geometry.Timestamps[1][0].Equal(got.Tracks[0].Geometry.Timestamps[1][0]))
	require.Len(t, got.Tracks[0].Layers, 1)
	assert.Equal(t, core.ColorBlue.RGBA(), got.Tracks[0].Layers[0].Color.RGBA)
}

func TestGPX_RoutesBecomeTracks(t *testing.T) {
	const doc = `<gpx version="1.1"><rte><name>Route</name>
<rtept lat="1" lon="2"></rtept><rtept lat="3" lon="4"></rtept></rte></gpx>`

	got, err := Deserialize(strings.NewReader(doc), FileTypeGPX)
	require.NoError(t, err)
	require.Len(t, got.Tracks, 1)
	assert.Equal(t, "Route", got.Tracks[0].Name.Default())
	assert.Len(t, got.Tracks[0].Geometry.Lines[0], 2)
	assert.Nil(t, got.Tracks[0].Geometry.Timestamps)
	assert.False(t, got.Tracks[0].Geometry.HasTimestamps())
}

func TestGeoJSON_WriteAndRead(t *testing.T) {
	data := sampleFileData()

	raw, err := Marshal(data, FileTypeGeoJSON)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "FeatureCollection")

	got, err := Deserialize(bytes.NewReader(raw), FileTypeGeoJSON)
	require.NoError(t, err)

	assert.Equal(t, "Paris trip", got.Category.Name.Default())
	require.Len(t, got.Bookmarks, 2)
	assert.Equal(t, data.Bookmarks[0].Point, got.Bookmarks[0].Point)
	assert.Equal(t, core.ColorRed, got.Bookmarks[0].Color.Predefined)
	require.Len(t, got.Tracks, 1)
	assert.Equal(t, data.Tracks[0].Geometry.Lines, got.Tracks[0].Geometry.Lines)
	assert.Equal(t, 5.0, got.Tracks[0].Layers[0].LineWidth)
}

func TestGeoJSON_SkipsDegenerateTrack(t *testing.T) {
	data := sampleFileData()
	data.Tracks = append(data.Tracks, core.TrackData{
		ID:   202,
		Name: core.NewLocalizableString("Stop"),
		Geometry: core.MultiGeometry{Lines: [][]core.GeoPoint{
			{{LatLon: core.LatLon{Lat: 48.9, Lon: 2.4}}},
		}},
	})

	raw, err := Marshal(data, FileTypeGeoJSON)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Stop")

	got, err := Deserialize(bytes.NewReader(raw), FileTypeGeoJSON)
	require.NoError(t, err)
	require.Len(t, got.Tracks, 1)
	assert.Equal(t, "Walk", got.Tracks[0].Name.Default())
	assert.Len(t, got.Bookmarks, 2)
}

func TestFileTypeFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    FileType
		wantErr bool
	}{
		{"a/b/Trip.kml", FileTypeKML, false},
		{"Trip.KMZ", FileTypeKMZ, false},
		{"walk.gpx", FileTypeGPX, false},
		{"walk.geojson", FileTypeGeoJSON, false},
		{"notes.txt", 0, true},
		{"noext", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FileTypeFromPath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFileType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := Marshal(&core.FileData{}, FileTypeKMZ)
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestFillEmptyNames(t *testing.T) {
	t.Run("single unnamed track", func(t *testing.T) {
		data := &core.FileData{Tracks: []core.TrackData{{Name: core.NewLocalizableString("Named")}, {}}}
		FillEmptyNames(data, "/tmp/bookmarks/Morning run.gpx")

		assert.Equal(t, "Morning run", data.Category.Name.Default())
		assert.Equal(t, "Named", data.Tracks[0].Name.Default())
		assert.Equal(t, "Morning run", data.Tracks[1].Name.Default())
	})

	t.Run("several unnamed tracks", func(t *testing.T) {
		data := &core.FileData{
			Category: core.CategoryData{Name: core.NewLocalizableString("Keep")},
			Tracks:   []core.TrackData{{}, {Name: core.NewLocalizableString("x")}, {}},
		}
		FillEmptyNames(data, "day.kml")

		assert.Equal(t, "Keep", data.Category.Name.Default())
		assert.Equal(t, "day 1", data.Tracks[0].Name.Default())
		assert.Equal(t, "day 2", data.Tracks[2].Name.Default())
	})
}

func TestValidateAndResetIDs(t *testing.T) {
	data := sampleFileData()
	data.Tracks = append(data.Tracks, core.TrackData{ID: 5})

	Validate(data)
	assert.Len(t, data.Tracks[0].Layers, 2)
	assert.Equal(t, []core.TrackLayer{DefaultTrackLayer()}, data.Tracks[1].Layers)

	ResetIDs(data)
	assert.Equal(t, core.InvalidGroupID, data.Category.ID)
	assert.Equal(t, core.InvalidMarkID, data.Bookmarks[0].ID)
	assert.Equal(t, core.InvalidTrackID, data.Tracks[0].ID)
	assert.Equal(t, core.InvalidTrackID, data.Tracks[1].ID)
}

func TestRemoveDuplicatedTrackPoints(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := func(lat, lon, alt float64) core.GeoPoint {
		return core.GeoPoint{LatLon: core.LatLon{Lat: lat, Lon: lon}, Altitude: alt}
	}
	data := &core.FileData{Tracks: []core.TrackData{{
		Geometry: core.MultiGeometry{
			Lines: [][]core.GeoPoint{
				{p(1, 1, 0), p(1, 1, 50), p(1.000001, 1, 0), p(2, 2, 0)},
				{},
			},
			Timestamps: [][]time.Time{
				{t0, t0.Add(time.Second), t0.Add(2 * time.Second), t0.Add(3 * time.Second)},
				{},
			},
		},
	}}}

	RemoveDuplicatedTrackPoints(data)

	g := data.Tracks[0].Geometry
	require.Len(t, g.Lines, 1, "empty lines are dropped")
	assert.Equal(t, []core.GeoPoint{p(1, 1, 0), p(2, 2, 0)}, g.Lines[0])
	assert.Equal(t, []time.Time{t0, t0.Add(3 * time.Second)}, g.Timestamps[0])
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Weekend.kml")

	data := &core.FileData{Tracks: []core.TrackData{{
		Visible: true,
		Geometry: core.MultiGeometry{Lines: [][]core.GeoPoint{
			{{LatLon: core.LatLon{Lat: 1, Lon: 1}}, {LatLon: core.LatLon{Lat: 1, Lon: 1}}, {LatLon: core.LatLon{Lat: 2, Lon: 2}}},
		}},
	}}}
	raw, err := Marshal(data, FileTypeKML)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Weekend", got.Category.Name.Default())
	assert.Equal(t, "Weekend", got.Tracks[0].Name.Default())
	assert.Len(t, got.Tracks[0].Layers, 1)
	assert.Len(t, got.Tracks[0].Geometry.Lines[0], 2)

	_, err = LoadFile(filepath.Join(dir, "missing.kml"))
	assert.Error(t, err)
}

func TestIndex_WriteRead(t *testing.T) {
	var buf bytes.Buffer
	entries := []IndexEntry{{Name: "Trip", Href: "files/Trip.kml"}, {Name: "Food", Href: "files/Food.kml"}}
	require.NoError(t, WriteIndex(&buf, "Bookmarks", entries))
	assert.Contains(t, buf.String(), "<NetworkLink>")

	got, err := ReadIndex(&buf)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}
