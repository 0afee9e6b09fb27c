package kml

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/OCAP2/bookmarks/internal/geo"
	"github.com/OCAP2/bookmarks/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// GeoJSON property names.
const (
	gjName        = "name"
	gjDescription = "description"
	gjColor       = "color"
	gjIcon        = "icon"
	gjTimestamp   = "timestamp"
	gjWidth       = "width"
	gjCategory    = "category"
)

func writeGeoJSON(w io.Writer, data *core.FileData) error {
	category := data.Category.Name.Default()
	fc := make(geom.GeoJSONFeatureCollection, 0, len(data.Bookmarks)+len(data.Tracks))

	for _, bm := range data.Bookmarks {
		props := map[string]interface{}{
			gjName:     bm.PreferredName(),
			gjCategory: category,
		}
		if d := bm.Description.Default(); d != "" {
			props[gjDescription] = d
		}
		if bm.Color.Predefined != core.ColorNone {
			props[gjColor] = bm.Color.Predefined.String()
		}
		if bm.Icon != core.IconNone {
			props[gjIcon] = bm.Icon.String()
		}
		if ts := formatTime(bm.Timestamp); ts != "" {
			props[gjTimestamp] = ts
		}
		if !geo.ValidLatLon(bm.Point) {
			return fmt.Errorf("bookmark %q: %w", bm.PreferredName(), geo.ErrInvalidCoordinates)
		}
		pt, err := geom.UnmarshalWKT(fmt.Sprintf("POINT(%s %s)",
			strconv.FormatFloat(bm.Point.Lon, 'f', -1, 64), strconv.FormatFloat(bm.Point.Lat, 'f', -1, 64)))
		if err != nil {
			return fmt.Errorf("bookmark %q: %w", bm.PreferredName(), err)
		}
		fc = append(fc, geom.GeoJSONFeature{Geometry: pt, Properties: props})
	}

	for _, t := range data.Tracks {
		props := map[string]interface{}{
			gjName:     t.Name.Default(),
			gjCategory: category,
		}
		if d := t.Description.Default(); d != "" {
			props[gjDescription] = d
		}
		if len(t.Layers) > 0 {
			props[gjColor] = fmt.Sprintf("#%08X", t.Layers[0].Color.Value())
			props[gjWidth] = t.Layers[0].LineWidth
		}
		if ts := formatTime(t.Timestamp); ts != "" {
			props[gjTimestamp] = ts
		}
		g, ok := trackGeometry(t.Geometry)
		if !ok {
			continue
		}
		fc = append(fc, geom.GeoJSONFeature{Geometry: g, Properties: props})
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("encoding geojson: %w", err)
	}
	return nil
}

// trackGeometry converts the track lines. Tracks that simple features cannot
// represent, such as a single point, are left out of the collection.
func trackGeometry(mg core.MultiGeometry) (geom.Geometry, bool) {
	if len(mg.Lines) == 1 {
		ls, err := geo.LineStringFromPoints(mg.Lines[0])
		return ls.AsGeometry(), err == nil
	}
	mls, err := geo.MultiLineStringFromGeometry(mg)
	return mls.AsGeometry(), err == nil
}

func readGeoJSON(r io.Reader) (*core.FileData, error) {
	var fc geom.GeoJSONFeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding geojson: %w", err)
	}

	data := &core.FileData{Category: core.CategoryData{Visible: true}}
	for _, f := range fc {
		str := func(key string) string {
			s, _ := f.Properties[key].(string)
			return s
		}
		if c := str(gjCategory); c != "" && data.Category.Name.Empty() {
			data.Category.Name = core.NewLocalizableString(c)
		}
		ts, err := parseTime(str(gjTimestamp))
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", str(gjName), err)
		}

		switch f.Geometry.Type() {
		case geom.TypePoint:
			pt, _ := f.Geometry.AsPoint()
			xy, ok := pt.XY()
			if !ok {
				continue
			}
			data.Bookmarks = append(data.Bookmarks, core.BookmarkData{
				Name:        core.NewLocalizableString(str(gjName)),
				Description: core.NewLocalizableString(str(gjDescription)),
				Point:       core.LatLon{Lat: xy.Y, Lon: xy.X},
				Color:       core.ColorData{Predefined: core.ParsePredefinedColor(str(gjColor))},
				Icon:        core.ParseBookmarkIcon(str(gjIcon)),
				Timestamp:   ts,
				Visible:     true,
			})
		case geom.TypeLineString, geom.TypeMultiLineString:
			t := core.TrackData{
				Name:        core.NewLocalizableString(str(gjName)),
				Description: core.NewLocalizableString(str(gjDescription)),
				Timestamp:   ts,
				Visible:     true,
			}
			if ls, ok := f.Geometry.AsLineString(); ok {
				t.Geometry.Lines = [][]core.GeoPoint{geo.PointsFromLineString(ls)}
			} else if mls, ok := f.Geometry.AsMultiLineString(); ok {
				t.Geometry = geo.GeometryFromMultiLineString(mls)
			}
			if c := str(gjColor); c != "" {
				layer := DefaultTrackLayer()
				var rgba uint32
				if _, err := fmt.Sscanf(c, "#%08X", &rgba); err == nil {
					layer.Color = core.ColorData{RGBA: rgba}
				}
				if w, ok := f.Properties[gjWidth].(float64); ok && w > 0 {
					layer.LineWidth = w
				}
				t.Layers = []core.TrackLayer{layer}
			}
			data.Tracks = append(data.Tracks, t)
		}
	}
	return data, nil
}
