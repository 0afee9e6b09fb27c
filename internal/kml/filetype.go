package kml

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFileType is returned for extensions no codec handles.
var ErrUnsupportedFileType = errors.New("unsupported bookmarks file type")

// FileType is an on-disk bookmarks format.
type FileType uint8

const (
	FileTypeKML FileType = iota
	FileTypeKMZ
	FileTypeGPX
	FileTypeGeoJSON
)

const (
	ExtKML     = ".kml"
	ExtKMZ     = ".kmz"
	ExtGPX     = ".gpx"
	ExtGeoJSON = ".geojson"
)

// Extension returns the canonical lowercase extension including the dot.
func (t FileType) Extension() string {
	switch t {
	case FileTypeKMZ:
		return ExtKMZ
	case FileTypeGPX:
		return ExtGPX
	case FileTypeGeoJSON:
		return ExtGeoJSON
	default:
		return ExtKML
	}
}

func (t FileType) String() string {
	return strings.ToUpper(strings.TrimPrefix(t.Extension(), "."))
}

// FileTypeFromPath detects the format from the file extension.
func FileTypeFromPath(path string) (FileType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtKML:
		return FileTypeKML, nil
	case ExtKMZ:
		return FileTypeKMZ, nil
	case ExtGPX:
		return FileTypeGPX, nil
	case ExtGeoJSON, ".json":
		return FileTypeGeoJSON, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFileType, filepath.Ext(path))
	}
}

// IsLoadable reports whether files of this type are kept in the bookmarks directory.
func (t FileType) IsLoadable() bool {
	return t == FileTypeKML || t == FileTypeGPX || t == FileTypeGeoJSON
}
