package storage

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/OCAP2/bookmarks/internal/kml"
	"github.com/OCAP2/bookmarks/pkg/core"
	"github.com/google/uuid"
)

const (
	MimeKMZ     = "application/vnd.google-earth.kmz"
	MimeGPX     = "application/gpx+xml"
	MimeGeoJSON = "application/geo+json"
)

// ErrEmptyCategory is reported when nothing selected for export has content.
var ErrEmptyCategory = errors.New("nothing to export")

const (
	bundleIndexName = "doc.kml"
	bundleFilesDir  = "files"
	bundleTitle     = "Bookmarks"
)

// SharingCode is the outcome of preparing a file for sharing.
type SharingCode uint8

const (
	SharingSuccess SharingCode = iota
	SharingEmptyCategory
	SharingArchiveError
	SharingFileError
)

func (c SharingCode) String() string {
	switch c {
	case SharingSuccess:
		return "Success"
	case SharingEmptyCategory:
		return "EmptyCategory"
	case SharingArchiveError:
		return "ArchiveError"
	case SharingFileError:
		return "FileError"
	}
	return "Unknown"
}

// SharingResult describes a prepared export. SharingPath and MimeType are
// set on success only.
type SharingResult struct {
	CategoryIDs []core.GroupID
	Code        SharingCode
	SharingPath string
	MimeType    string
	ErrorString string
}

// ExportItem is one category snapshot to export.
type ExportItem struct {
	Name string
	Data *core.FileData
}

func failed(code SharingCode, err error) SharingResult {
	r := SharingResult{Code: code}
	if err != nil {
		r.ErrorString = err.Error()
	}
	return r
}

// Export picks the export path for items: a single item is written as t
// (KML is zipped into a KMZ), several items always become one KMZ bundle.
// Empty categories are skipped; if nothing is left the result is
// SharingEmptyCategory. now names the bundle.
func Export(tempDir string, items []ExportItem, t kml.FileType, now time.Time) SharingResult {
	var nonEmpty []ExportItem
	for _, it := range items {
		if it.Data != nil && !it.Data.IsEmpty() {
			nonEmpty = append(nonEmpty, it)
		}
	}
	if len(nonEmpty) == 0 {
		return failed(SharingEmptyCategory, ErrEmptyCategory)
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return failed(SharingFileError, err)
	}
	if len(items) > 1 {
		return ExportBundle(tempDir, nonEmpty, now)
	}
	switch t {
	case kml.FileTypeGPX:
		return ExportGPX(tempDir, nonEmpty[0])
	case kml.FileTypeGeoJSON:
		return ExportGeoJSON(tempDir, nonEmpty[0])
	default:
		return ExportKMZ(tempDir, nonEmpty[0], now)
	}
}

// ExportKMZ writes item as KML and zips it alone into a KMZ. The KML file is
// removed whatever the outcome. Archive entries are stamped with now.
func ExportKMZ(tempDir string, item ExportItem, now time.Time) SharingResult {
	kmlPath := GenerateValidAndUniqueFilePath(tempDir, item.Name, kml.FileTypeKML)
	defer os.Remove(kmlPath)

	if err := SaveFileSafe(kmlPath, item.Data); err != nil {
		return failed(SharingFileError, err)
	}
	base := strings.TrimSuffix(filepath.Base(kmlPath), kml.ExtKML)
	kmzPath := GenerateUniqueFileName(tempDir, base, kml.ExtKMZ)
	if err := createZip(kmzPath, map[string]string{filepath.Base(kmlPath): kmlPath}, []string{filepath.Base(kmlPath)}, now); err != nil {
		return failed(SharingArchiveError, err)
	}
	return SharingResult{Code: SharingSuccess, SharingPath: kmzPath, MimeType: MimeKMZ}
}

// ExportGPX writes item as a GPX file.
func ExportGPX(tempDir string, item ExportItem) SharingResult {
	return exportPlain(tempDir, item, kml.FileTypeGPX, MimeGPX)
}

// ExportGeoJSON writes item as a GeoJSON feature collection.
func ExportGeoJSON(tempDir string, item ExportItem) SharingResult {
	return exportPlain(tempDir, item, kml.FileTypeGeoJSON, MimeGeoJSON)
}

func exportPlain(tempDir string, item ExportItem, t kml.FileType, mime string) SharingResult {
	p := GenerateValidAndUniqueFilePath(tempDir, item.Name, t)
	if err := SaveFileSafe(p, item.Data); err != nil {
		return failed(SharingFileError, err)
	}
	return SharingResult{Code: SharingSuccess, SharingPath: p, MimeType: mime}
}

// ExportBundle writes every item as KML under files/, adds a doc.kml index
// linking them and zips everything into one KMZ. Items that fail to
// serialize are left out. The scratch directory is always removed.
func ExportBundle(tempDir string, items []ExportItem, now time.Time) SharingResult {
	scratch := filepath.Join(tempDir, uuid.NewString())
	defer os.RemoveAll(scratch)

	filesDir := filepath.Join(scratch, bundleFilesDir)
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		return failed(SharingFileError, err)
	}

	entries := make(map[string]string)
	var order []string
	var index []kml.IndexEntry
	var lastErr error
	for _, it := range items {
		p := GenerateValidAndUniqueFilePath(filesDir, it.Name, kml.FileTypeKML)
		if err := SaveFileSafe(p, it.Data); err != nil {
			lastErr = err
			continue
		}
		name := path.Join(bundleFilesDir, filepath.Base(p))
		entries[name] = p
		order = append(order, name)
		index = append(index, kml.IndexEntry{Name: it.Name, Href: name})
	}
	if len(order) == 0 {
		return failed(SharingFileError, lastErr)
	}

	indexPath := filepath.Join(scratch, bundleIndexName)
	err := writeFileSafe(indexPath, func(w io.Writer) error {
		return kml.WriteIndex(w, bundleTitle, index)
	})
	if err != nil {
		return failed(SharingFileError, err)
	}
	entries[bundleIndexName] = indexPath
	order = append([]string{bundleIndexName}, order...)

	kmzPath := GenerateUniqueFileName(tempDir, "bookmarks_"+now.Format("20060102_150405"), kml.ExtKMZ)
	if err := createZip(kmzPath, entries, order, now); err != nil {
		return failed(SharingArchiveError, err)
	}
	return SharingResult{Code: SharingSuccess, SharingPath: kmzPath, MimeType: MimeKMZ}
}

// createZip stores the files of entries (archive name -> disk path) in
// order, stamped with modified. A partial archive is removed.
func createZip(zipPath string, entries map[string]string, order []string, modified time.Time) (err error) {
	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close archive: %w", cerr)
		}
		if err != nil {
			os.Remove(zipPath)
		}
	}()

	zw := zip.NewWriter(f)
	for _, name := range order {
		if err := addToZip(zw, name, entries[name], modified); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

func addToZip(zw *zip.Writer, name, src string, modified time.Time) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	return nil
}
