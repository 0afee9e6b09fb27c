// pkg/core/ids.go
package core

// MarkID identifies a bookmark or any other user mark.
type MarkID uint64

// TrackID identifies a track.
type TrackID uint64

// GroupID identifies a built-in layer, a bookmark category or a compilation.
type GroupID uint64

// Invalid sentinels. No allocator ever issues zero.
const (
	InvalidMarkID  MarkID  = 0
	InvalidTrackID TrackID = 0
	InvalidGroupID GroupID = 0
)

// LatLon is a WGS84 position in degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// GeoPoint is a track vertex with altitude in metres.
type GeoPoint struct {
	LatLon
	Altitude float64
}
