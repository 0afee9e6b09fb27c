package kml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/OCAP2/bookmarks/pkg/core"
)

const gpxNamespace = "http://www.topografix.com/GPX/1/1"

type gpxFile struct {
	XMLName  xml.Name     `xml:"gpx"`
	Xmlns    string       `xml:"xmlns,attr,omitempty"`
	Version  string       `xml:"version,attr,omitempty"`
	Creator  string       `xml:"creator,attr,omitempty"`
	Metadata *gpxMetadata `xml:"metadata"`
	Points   []gpxPoint   `xml:"wpt"`
	Routes   []gpxRoute   `xml:"rte"`
	Tracks   []gpxTrack   `xml:"trk"`
}

type gpxMetadata struct {
	Name string `xml:"name,omitempty"`
	Desc string `xml:"desc,omitempty"`
}

type gpxPoint struct {
	Lat  float64  `xml:"lat,attr"`
	Lon  float64  `xml:"lon,attr"`
	Ele  *float64 `xml:"ele"`
	Time string   `xml:"time,omitempty"`
	Name string   `xml:"name,omitempty"`
	Desc string   `xml:"desc,omitempty"`
	Sym  string   `xml:"sym,omitempty"`
}

type gpxRoute struct {
	Name   string     `xml:"name,omitempty"`
	Desc   string     `xml:"desc,omitempty"`
	Points []gpxPoint `xml:"rtept"`
}

type gpxTrack struct {
	Name       string         `xml:"name,omitempty"`
	Desc       string         `xml:"desc,omitempty"`
	Extensions *gpxExtensions `xml:"extensions"`
	Segments   []gpxSegment   `xml:"trkseg"`
}

type gpxExtensions struct {
	Color string `xml:"color,omitempty"`
	Width string `xml:"width,omitempty"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

// writeGPX writes waypoints and tracks. Compilations, localized names and
// most bookmark attributes have no GPX equivalent and are dropped.
func writeGPX(w io.Writer, data *core.FileData) error {
	f := gpxFile{
		Xmlns:   gpxNamespace,
		Version: "1.1",
		Creator: "OCAP2 bookmarks",
	}
	if name := data.Category.Name.Default(); name != "" || data.Category.Description.Default() != "" {
		f.Metadata = &gpxMetadata{Name: name, Desc: data.Category.Description.Default()}
	}

	for _, bm := range data.Bookmarks {
		p := gpxPoint{
			Lat:  bm.Point.Lat,
			Lon:  bm.Point.Lon,
			Time: formatTime(bm.Timestamp),
			Name: bm.PreferredName(),
			Desc: bm.Description.Default(),
		}
		if bm.Icon != core.IconNone {
			p.Sym = bm.Icon.String()
		}
		f.Points = append(f.Points, p)
	}

	for _, t := range data.Tracks {
		trk := gpxTrack{Name: t.Name.Default(), Desc: t.Description.Default()}
		if len(t.Layers) > 0 {
			trk.Extensions = &gpxExtensions{
				Color: fmt.Sprintf("%06X", t.Layers[0].Color.Value()>>8),
				Width: strconv.FormatFloat(t.Layers[0].LineWidth, 'f', -1, 64),
			}
		}
		for i, line := range t.Geometry.Lines {
			var seg gpxSegment
			for j, pt := range line {
				p := gpxPoint{Lat: pt.Lat, Lon: pt.Lon}
				if pt.Altitude != 0 {
					ele := pt.Altitude
					p.Ele = &ele
				}
				if t.Geometry.HasTimestampsFor(i) {
					p.Time = formatTime(t.Geometry.Timestamps[i][j])
				}
				seg.Points = append(seg.Points, p)
			}
			trk.Segments = append(trk.Segments, seg)
		}
		f.Tracks = append(f.Tracks, trk)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing gpx header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding gpx: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("writing gpx: %w", err)
	}
	return nil
}

func readGPX(r io.Reader) (*core.FileData, error) {
	var f gpxFile
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding gpx: %w", err)
	}

	data := &core.FileData{Category: core.CategoryData{Visible: true}}
	if f.Metadata != nil {
		data.Category.Name = core.NewLocalizableString(strings.TrimSpace(f.Metadata.Name))
		data.Category.Description = core.NewLocalizableString(strings.TrimSpace(f.Metadata.Desc))
	}

	for _, p := range f.Points {
		ts, err := parseTime(p.Time)
		if err != nil {
			return nil, fmt.Errorf("waypoint %q: %w", p.Name, err)
		}
		data.Bookmarks = append(data.Bookmarks, core.BookmarkData{
			Name:        core.NewLocalizableString(strings.TrimSpace(p.Name)),
			Description: core.NewLocalizableString(strings.TrimSpace(p.Desc)),
			Point:       core.LatLon{Lat: p.Lat, Lon: p.Lon},
			Icon:        core.ParseBookmarkIcon(p.Sym),
			Timestamp:   ts,
			Visible:     true,
		})
	}

	for _, rte := range f.Routes {
		t := core.TrackData{
			Name:        core.NewLocalizableString(strings.TrimSpace(rte.Name)),
			Description: core.NewLocalizableString(strings.TrimSpace(rte.Desc)),
			Visible:     true,
		}
		if err := appendGPXLine(&t.Geometry, rte.Points); err != nil {
			return nil, fmt.Errorf("route %q: %w", rte.Name, err)
		}
		if !hasAnyTimestamp(t.Geometry) {
			t.Geometry.Timestamps = nil
		}
		data.Tracks = append(data.Tracks, t)
	}

	for _, trk := range f.Tracks {
		t := core.TrackData{
			Name:        core.NewLocalizableString(strings.TrimSpace(trk.Name)),
			Description: core.NewLocalizableString(strings.TrimSpace(trk.Desc)),
			Visible:     true,
		}
		if trk.Extensions != nil {
			layer := DefaultTrackLayer()
			if v, err := strconv.ParseUint(strings.TrimPrefix(trk.Extensions.Color, "#"), 16, 32); err == nil {
				layer.Color = core.ColorData{RGBA: uint32(v)<<8 | 0xFF}
			}
			if w, err := strconv.ParseFloat(trk.Extensions.Width, 64); err == nil && w > 0 {
				layer.LineWidth = w
			}
			t.Layers = []core.TrackLayer{layer}
		}
		for _, seg := range trk.Segments {
			if err := appendGPXLine(&t.Geometry, seg.Points); err != nil {
				return nil, fmt.Errorf("track %q: %w", trk.Name, err)
			}
		}
		if !hasAnyTimestamp(t.Geometry) {
			t.Geometry.Timestamps = nil
		}
		data.Tracks = append(data.Tracks, t)
	}
	return data, nil
}

// appendGPXLine adds one line. Timestamps are kept only if every point has one.
func appendGPXLine(g *core.MultiGeometry, points []gpxPoint) error {
	line := make([]core.GeoPoint, 0, len(points))
	ts := make([]time.Time, 0, len(points))
	for _, p := range points {
		gp := core.GeoPoint{LatLon: core.LatLon{Lat: p.Lat, Lon: p.Lon}}
		if p.Ele != nil {
			gp.Altitude = *p.Ele
		}
		line = append(line, gp)
		if p.Time != "" {
			t, err := parseTime(p.Time)
			if err != nil {
				return err
			}
			ts = append(ts, t)
		}
	}
	if len(ts) != len(line) {
		ts = nil
	}
	g.Lines = append(g.Lines, line)
	g.Timestamps = append(g.Timestamps, ts)
	return nil
}
