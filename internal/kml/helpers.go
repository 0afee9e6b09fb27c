package kml

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/OCAP2/bookmarks/pkg/core"
)

// pointAccuracy is the coordinate tolerance under which consecutive track
// points are considered the same, in degrees.
const pointAccuracy = 1e-5

// DefaultTrackLayer is the layer given to tracks that declare none.
func DefaultTrackLayer() core.TrackLayer {
	return core.TrackLayer{
		LineWidth: core.DefaultTrackWidth,
		Color:     core.ColorData{RGBA: core.DefaultTrackColor},
	}
}

// ResetIDs clears every id stored in data so fresh ones get allocated.
func ResetIDs(data *core.FileData) {
	data.Category.ID = core.InvalidGroupID
	for i := range data.Bookmarks {
		data.Bookmarks[i].ID = core.InvalidMarkID
	}
	for i := range data.Tracks {
		data.Tracks[i].ID = core.InvalidTrackID
	}
	for i := range data.Compilations {
		data.Compilations[i].ID = core.InvalidGroupID
	}
}

// FillEmptyNames names an unnamed category after the file. A single
// unnamed track gets the file name too; several get "name 1", "name 2"...
func FillEmptyNames(data *core.FileData, path string) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if data.Category.Name.Empty() {
		data.Category.Name = core.NewLocalizableString(name)
	}

	unnamed := 0
	for i := range data.Tracks {
		if data.Tracks[i].Name.Empty() {
			unnamed++
		}
	}
	if unnamed == 0 {
		return
	}

	n := 1
	for i := range data.Tracks {
		t := &data.Tracks[i]
		if !t.Name.Empty() {
			continue
		}
		if unnamed == 1 {
			t.Name = core.NewLocalizableString(name)
			return
		}
		t.Name = core.NewLocalizableString(fmt.Sprintf("%s %d", name, n))
		n++
	}
}

// Validate gives every layerless track the default layer.
func Validate(data *core.FileData) {
	for i := range data.Tracks {
		if len(data.Tracks[i].Layers) == 0 {
			data.Tracks[i].Layers = []core.TrackLayer{DefaultTrackLayer()}
		}
	}
}

func samePosition(a, b core.GeoPoint) bool {
	return math.Abs(a.Lat-b.Lat) <= pointAccuracy && math.Abs(a.Lon-b.Lon) <= pointAccuracy
}

// RemoveDuplicatedTrackPoints collapses consecutive points at the same
// position and drops empty lines. Altitude is not compared.
func RemoveDuplicatedTrackPoints(data *core.FileData) {
	for i := range data.Tracks {
		g := &data.Tracks[i].Geometry
		var valid core.MultiGeometry
		withTimestamps := false

		for li, line := range g.Lines {
			if len(line) == 0 {
				continue
			}
			hasTs := g.HasTimestampsFor(li)
			var outLine []core.GeoPoint
			var outTs []time.Time
			for pi, pt := range line {
				if len(outLine) > 0 && samePosition(outLine[len(outLine)-1], pt) {
					continue
				}
				outLine = append(outLine, pt)
				if hasTs {
					outTs = append(outTs, g.Timestamps[li][pi])
				}
			}
			withTimestamps = withTimestamps || hasTs
			valid.Lines = append(valid.Lines, outLine)
			valid.Timestamps = append(valid.Timestamps, outTs)
		}
		if !withTimestamps {
			valid.Timestamps = nil
		}
		*g = valid
	}
}
