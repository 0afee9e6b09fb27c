// pkg/core/bookmark.go
package core

import "time"

// BookmarkData is the serializable state of a bookmark.
type BookmarkData struct {
	ID             MarkID
	Name           LocalizableString
	Description    LocalizableString
	CustomName     LocalizableString
	FeatureTypes   []uint32
	Color          ColorData
	Icon           BookmarkIcon
	ViewportScale  uint8
	Timestamp      time.Time
	Point          LatLon
	BoundTracks    []uint8
	Visible        bool
	NearestToponym string
	MinZoom        int
	Properties     map[string]string

	// Compilations lists file-local compilation ids the bookmark belongs to.
	Compilations []uint64

	// Address caches the region resolved during distance sorting.
	Address string
}

// PreferredName returns the custom name if set, otherwise the default name.
func (b *BookmarkData) PreferredName() string {
	if n := b.CustomName.Default(); n != "" {
		return n
	}
	return b.Name.Default()
}

// Clone returns a deep copy.
func (b BookmarkData) Clone() BookmarkData {
	out := b
	out.Name = b.Name.Clone()
	out.Description = b.Description.Clone()
	out.CustomName = b.CustomName.Clone()
	out.FeatureTypes = append([]uint32(nil), b.FeatureTypes...)
	out.BoundTracks = append([]uint8(nil), b.BoundTracks...)
	out.Compilations = append([]uint64(nil), b.Compilations...)
	out.Properties = cloneProperties(b.Properties)
	return out
}

func cloneProperties(p map[string]string) map[string]string {
	if p == nil {
		return nil
	}
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
