// Package kml reads and writes bookmark files.
//
// KML is the native format: one Document per category, nested Folders for
// compilations and Placemarks for bookmarks and tracks. Everything KML has no
// element for is kept in ExtendedData. GPX and GeoJSON are supported for
// import and sharing and carry a subset of the data.
package kml

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/OCAP2/bookmarks/pkg/core"
)

// Serialize writes data to w in the given format.
func Serialize(w io.Writer, data *core.FileData, t FileType) error {
	switch t {
	case FileTypeKML:
		return writeKML(w, data)
	case FileTypeGPX:
		return writeGPX(w, data)
	case FileTypeGeoJSON:
		return writeGeoJSON(w, data)
	default:
		return fmt.Errorf("serialize %s: %w", t, ErrUnsupportedFileType)
	}
}

// Deserialize reads a file of the given format.
func Deserialize(r io.Reader, t FileType) (*core.FileData, error) {
	switch t {
	case FileTypeKML:
		return readKML(r)
	case FileTypeGPX:
		return readGPX(r)
	case FileTypeGeoJSON:
		return readGeoJSON(r)
	default:
		return nil, fmt.Errorf("deserialize %s: %w", t, ErrUnsupportedFileType)
	}
}

// Marshal is Serialize into memory.
func Marshal(data *core.FileData, t FileType) ([]byte, error) {
	var buf bytes.Buffer
	if err := Serialize(&buf, data, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadFile reads and post-processes a bookmarks file: unnamed category and
// tracks are named after the file, tracks get a default layer and repeated
// points are collapsed.
func LoadFile(path string) (*core.FileData, error) {
	t, err := FileTypeFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	data, err := Deserialize(f, t)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	FillEmptyNames(data, path)
	Validate(data)
	RemoveDuplicatedTrackPoints(data)
	return data, nil
}
