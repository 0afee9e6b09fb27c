// Package storage keeps bookmark categories on disk: the bookmarks
// directory, the metadata sidecar, the category trash and shared exports.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OCAP2/bookmarks/internal/kml"
)

const (
	// DefaultBookmarksFileName is used when a category name has no usable characters.
	DefaultBookmarksFileName = "Bookmarks"
	// MetadataFileName is the sidecar kept next to the bookmarks directory.
	MetadataFileName = "bookmarks_metadata.json"

	bookmarksDirName = "bookmarks"
	trashDirName     = ".Trash"
	tempDirName      = "tmp"
)

// Paths are the locations the bookmark core reads and writes.
type Paths struct {
	BookmarksDir string
	TrashDir     string
	TempDir      string
	MetadataFile string
}

// DefaultPaths lays the directories out under dataDir.
func DefaultPaths(dataDir string) Paths {
	return Paths{
		BookmarksDir: filepath.Join(dataDir, bookmarksDirName),
		TrashDir:     filepath.Join(dataDir, trashDirName),
		TempDir:      filepath.Join(dataDir, tempDirName),
		MetadataFile: filepath.Join(dataDir, MetadataFileName),
	}
}

// Ensure creates every directory.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.BookmarksDir, p.TrashDir, p.TempDir, filepath.Dir(p.MetadataFile)} {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func isBadPathChar(r rune) bool {
	if r < ' ' {
		return true
	}
	return strings.ContainsRune(`:/\<>"|?*`, r)
}

// RemoveInvalidSymbols strips characters that are not allowed in file names.
func RemoveInvalidSymbols(name string) string {
	return strings.Map(func(r rune) rune {
		if isBadPathChar(r) {
			return -1
		}
		return r
	}, name)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// GenerateUniqueFileName returns dir/name+ext, appending 1, 2, ... to name
// until no such file exists. An ext already ending name is not repeated.
func GenerateUniqueFileName(dir, name, ext string) string {
	name = strings.TrimSuffix(name, ext)
	path := filepath.Join(dir, name+ext)
	for i := 1; exists(path); i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s%d%s", name, i, ext))
	}
	return path
}

// GenerateValidAndUniqueFilePath builds a free path in dir for a file named
// after a category.
func GenerateValidAndUniqueFilePath(dir, name string, t kml.FileType) string {
	name = RemoveInvalidSymbols(name)
	if name == "" {
		name = DefaultBookmarksFileName
	}
	return GenerateUniqueFileName(dir, name, t.Extension())
}

// GenerateValidAndUniqueTrashedFilePath builds a free path in trashDir for
// the file fileName, keeping its extension.
func GenerateValidAndUniqueTrashedFilePath(trashDir, fileName string) string {
	ext := filepath.Ext(fileName)
	name := RemoveInvalidSymbols(fileName)
	if strings.TrimSuffix(name, ext) == "" {
		name = DefaultBookmarksFileName
	}
	return GenerateUniqueFileName(trashDir, name, ext)
}
