package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/OCAP2/bookmarks/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Positions are kept in WGS84 degrees. Anything that needs metric distances
// on a plane (the spatial index, rect queries) projects to EPSG:3857.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ErrDegenerateLine is returned for a line without two distinct points.
var ErrDegenerateLine = errors.New("line needs at least two distinct points")

// EarthRadius is the sphere radius used for great-circle distances, in metres.
const EarthRadius = 6378000.0

// ParseCoordinates parses a KML "lon,lat" or "lon,lat,alt" tuple.
func ParseCoordinates(coords string) (core.GeoPoint, error) {
	parts := strings.Split(strings.TrimSpace(coords), ",")
	if len(parts) < 2 || len(parts) > 3 {
		return core.GeoPoint{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.GeoPoint{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.GeoPoint{}, ErrInvalidCoordinates
	}
	var alt float64
	if len(parts) == 3 {
		alt, err = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return core.GeoPoint{}, ErrInvalidCoordinates
		}
	}
	if !ValidLatLon(core.LatLon{Lat: lat, Lon: lon}) {
		return core.GeoPoint{}, ErrInvalidCoordinates
	}
	return core.GeoPoint{LatLon: core.LatLon{Lat: lat, Lon: lon}, Altitude: alt}, nil
}

// ParseCoordinateList parses whitespace separated KML tuples.
func ParseCoordinateList(s string) ([]core.GeoPoint, error) {
	fields := strings.Fields(s)
	out := make([]core.GeoPoint, 0, len(fields))
	for _, f := range fields {
		p, err := ParseCoordinates(f)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", f, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// FormatCoordinates renders p as a KML tuple. Altitude is written only when non-zero.
func FormatCoordinates(p core.GeoPoint) string {
	s := strconv.FormatFloat(p.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'f', -1, 64)
	if p.Altitude != 0 {
		s += "," + strconv.FormatFloat(p.Altitude, 'f', -1, 64)
	}
	return s
}

// ValidLatLon reports whether p is inside the WGS84 range.
func ValidLatLon(p core.LatLon) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lon)
}

// DistanceOnEarth returns the great-circle distance between a and b in metres.
func DistanceOnEarth(a, b core.LatLon) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// PathLength sums the great-circle distances along points.
func PathLength(points []core.GeoPoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += DistanceOnEarth(points[i-1].LatLon, points[i].LatLon)
	}
	return total
}

// GeometryLength sums PathLength over every line.
func GeometryLength(g core.MultiGeometry) float64 {
	var total float64
	for _, l := range g.Lines {
		total += PathLength(l)
	}
	return total
}

// ToMercator projects a WGS84 position to EPSG:3857 metres.
func ToMercator(p core.LatLon) (x, y float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(p.Lon, p.Lat, 0)
	return x, y
}

// FromMercator is the inverse of ToMercator.
func FromMercator(x, y float64) core.LatLon {
	epsg := wgs84.EPSG()
	f := epsg.Transform(3857, 4326)
	lon, lat, _ := f(x, y, 0)
	return core.LatLon{Lat: lat, Lon: lon}
}

// MercatorRect returns the EPSG:3857 square covering radiusMeters of ground
// around center. Mercator stretches distances by 1/cos(lat).
func MercatorRect(center core.LatLon, radiusMeters float64) (lo, hi geom.XY) {
	x, y := ToMercator(center)
	r := radiusMeters / math.Max(math.Cos(center.Lat*math.Pi/180), 1e-6)
	return geom.XY{X: x - r, Y: y - r}, geom.XY{X: x + r, Y: y + r}
}

// LineStringFromPoints builds an XYZ line string in lon/lat/alt order. A line
// with fewer than two distinct points is rejected.
func LineStringFromPoints(points []core.GeoPoint) (geom.LineString, error) {
	coords, err := wktCoords(points)
	if err != nil {
		return geom.LineString{}, err
	}
	g, err := geom.UnmarshalWKT("LINESTRING Z " + coords)
	if err != nil {
		return geom.LineString{}, fmt.Errorf("creating linestring: %w", err)
	}
	ls, ok := g.AsLineString()
	if !ok {
		return geom.LineString{}, fmt.Errorf("creating linestring: got %s", g.Type())
	}
	return ls, nil
}

// PointsFromLineString is the inverse of LineStringFromPoints.
func PointsFromLineString(ls geom.LineString) []core.GeoPoint {
	seq := ls.Coordinates()
	out := make([]core.GeoPoint, seq.Length())
	for i := range out {
		c := seq.Get(i)
		out[i] = core.GeoPoint{LatLon: core.LatLon{Lat: c.Y, Lon: c.X}, Altitude: c.Z}
	}
	return out
}

// MultiLineStringFromGeometry converts every line of g.
func MultiLineStringFromGeometry(g core.MultiGeometry) (geom.MultiLineString, error) {
	if len(g.Lines) == 0 {
		return geom.MultiLineString{}, ErrDegenerateLine
	}
	parts := make([]string, 0, len(g.Lines))
	for i, l := range g.Lines {
		coords, err := wktCoords(l)
		if err != nil {
			return geom.MultiLineString{}, fmt.Errorf("line %d: %w", i, err)
		}
		parts = append(parts, coords)
	}
	mg, err := geom.UnmarshalWKT("MULTILINESTRING Z (" + strings.Join(parts, ",") + ")")
	if err != nil {
		return geom.MultiLineString{}, fmt.Errorf("creating multilinestring: %w", err)
	}
	mls, ok := mg.AsMultiLineString()
	if !ok {
		return geom.MultiLineString{}, fmt.Errorf("creating multilinestring: got %s", mg.Type())
	}
	return mls, nil
}

// wktCoords renders points as a parenthesised WKT coordinate list.
func wktCoords(points []core.GeoPoint) (string, error) {
	var b strings.Builder
	b.WriteByte('(')
	distinct := 0
	for i, p := range points {
		if !ValidLatLon(p.LatLon) {
			return "", fmt.Errorf("point %d: %w", i, ErrInvalidCoordinates)
		}
		if i == 0 || p.LatLon != points[i-1].LatLon {
			distinct++
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(p.Lon, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.Lat, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.Altitude, 'f', -1, 64))
	}
	if distinct < 2 {
		return "", ErrDegenerateLine
	}
	b.WriteByte(')')
	return b.String(), nil
}

// GeometryFromMultiLineString is the inverse of MultiLineStringFromGeometry.
// Timestamps are not carried by simple features and are left empty.
func GeometryFromMultiLineString(mls geom.MultiLineString) core.MultiGeometry {
	var g core.MultiGeometry
	for i := 0; i < mls.NumLineStrings(); i++ {
		g.Lines = append(g.Lines, PointsFromLineString(mls.LineStringN(i)))
	}
	return g
}
