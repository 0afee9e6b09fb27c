package usermark

import (
	"time"

	"github.com/OCAP2/bookmarks/internal/geo"
	"github.com/OCAP2/bookmarks/pkg/core"
)

// Track is a recorded or imported path.
type Track struct {
	data    core.TrackData
	groupID core.GroupID
	length  float64
	dirty   bool
}

// NewTrack wraps data. data.ID must already be allocated.
func NewTrack(data core.TrackData) *Track {
	if data.ID == core.InvalidTrackID {
		panic("usermark: track without id")
	}
	return &Track{
		data:   data,
		length: geo.GeometryLength(data.Geometry),
		dirty:  true,
	}
}

func (t *Track) ID() core.TrackID { return t.data.ID }
func (t *Track) GroupID() core.GroupID { return t.groupID }
func (t *Track) IsDirty() bool { return t.dirty }
func (t *Track) ResetChanges() { t.dirty = false }
func (t *Track) SetDirty() { t.dirty = true }
func (t *Track) Name() string { return t.data.Name.Default() }
func (t *Track) Description() string { return t.data.Description.Default() }
func (t *Track) Timestamp() time.Time { return t.data.Timestamp }
func (t *Track) Length() float64 { return t.length }
func (t *Track) Layers() []core.TrackLayer { return t.data.Layers }

// Data returns a copy of the track data.
func (t *Track) Data() core.TrackData { return t.data.Clone() }

// Geometry is shared with the track. Callers must not modify it.
func (t *Track) Geometry() core.MultiGeometry { return t.data.Geometry }

// Color returns the color of the given layer.
func (t *Track) Color(layer int) uint32 {
	if layer < 0 || layer >= len(t.data.Layers) {
		return core.DefaultTrackColor
	}
	return t.data.Layers[layer].Color.Value()
}

func (t *Track) SetGroupID(id core.GroupID) {
	t.groupID = id
	t.dirty = true
}

func (t *Track) SetName(name string) {
	t.data.Name = core.NewLocalizableString(name)
	t.dirty = true
}

func (t *Track) SetDescription(desc string) {
	t.data.Description = core.NewLocalizableString(desc)
	t.dirty = true
}

// SetColor recolors the first layer.
func (t *Track) SetColor(c core.ColorData) {
	if len(t.data.Layers) == 0 {
		t.data.Layers = []core.TrackLayer{{LineWidth: core.DefaultTrackWidth}}
	}
	t.data.Layers[0].Color = c
	t.dirty = true
}

func (t *Track) SetGeometry(g core.MultiGeometry) {
	t.data.Geometry = g
	t.length = geo.GeometryLength(g)
	t.dirty = true
}

// PointAtDistance returns the point lying d metres along the track,
// clamped to its ends.
func (t *Track) PointAtDistance(d float64) core.LatLon {
	var last core.LatLon
	passed := 0.0
	for _, line := range t.data.Geometry.Lines {
		for i, p := range line {
			if i == 0 {
				last = p.LatLon
				if d <= passed {
					return p.LatLon
				}
				continue
			}
			seg := geo.DistanceOnEarth(line[i-1].LatLon, p.LatLon)
			if passed+seg >= d && seg > 0 {
				k := (d - passed) / seg
				prev := line[i-1].LatLon
				return core.LatLon{
					Lat: prev.Lat + (p.Lat-prev.Lat)*k,
					Lon: prev.Lon + (p.Lon-prev.Lon)*k,
				}
			}
			passed += seg
			last = p.LatLon
		}
	}
	return last
}
