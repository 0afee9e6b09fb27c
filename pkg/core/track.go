// pkg/core/track.go
package core

import "time"

// DefaultTrackWidth is the line width given to tracks without layers.
const DefaultTrackWidth = 5.0

// DefaultTrackColor is the RGBA of the default track layer.
const DefaultTrackColor uint32 = 0x006EC7FF

// TrackLayer is one stroke used to draw a track.
type TrackLayer struct {
	LineWidth float64
	Color     ColorData
}

// MultiGeometry is a set of lines, each with optional per-point timestamps.
// When Timestamps is non-empty it has one entry per line, sized like the line.
type MultiGeometry struct {
	Lines      [][]GeoPoint
	Timestamps [][]time.Time
}

// IsValid reports whether there is at least one line with two or more points.
func (g MultiGeometry) IsValid() bool {
	for _, l := range g.Lines {
		if len(l) > 1 {
			return true
		}
	}
	return false
}

// HasTimestamps reports whether timestamps are present for every line.
func (g MultiGeometry) HasTimestamps() bool {
	return len(g.Timestamps) > 0 && len(g.Timestamps) == len(g.Lines)
}

// HasTimestampsFor reports whether line i has a full set of timestamps.
func (g MultiGeometry) HasTimestampsFor(i int) bool {
	return g.HasTimestamps() && len(g.Timestamps[i]) == len(g.Lines[i])
}

// PointCount is the total number of vertices.
func (g MultiGeometry) PointCount() int {
	n := 0
	for _, l := range g.Lines {
		n += len(l)
	}
	return n
}

// TrackData is the serializable state of a track.
type TrackData struct {
	ID          TrackID
	LocalID     uint8
	Name        LocalizableString
	Description LocalizableString
	Layers      []TrackLayer
	Timestamp   time.Time
	Geometry    MultiGeometry
	Visible     bool
	Properties  map[string]string
}

// Clone returns a deep copy.
func (t TrackData) Clone() TrackData {
	out := t
	out.Name = t.Name.Clone()
	out.Description = t.Description.Clone()
	out.Layers = append([]TrackLayer(nil), t.Layers...)
	out.Properties = cloneProperties(t.Properties)
	out.Geometry.Lines = make([][]GeoPoint, len(t.Geometry.Lines))
	for i, l := range t.Geometry.Lines {
		out.Geometry.Lines[i] = append([]GeoPoint(nil), l...)
	}
	if t.Geometry.Timestamps != nil {
		out.Geometry.Timestamps = make([][]time.Time, len(t.Geometry.Timestamps))
		for i, ts := range t.Geometry.Timestamps {
			out.Geometry.Timestamps[i] = append([]time.Time(nil), ts...)
		}
	}
	return out
}
