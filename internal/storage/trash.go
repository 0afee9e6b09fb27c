package storage

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// ErrTrashTime is returned along with the trashed path when the file was
// moved but its trash time could not be recorded.
var ErrTrashTime = errors.New("trash time not recorded")

// TrashedFile is a category file waiting in the trash.
type TrashedFile struct {
	Path      string
	TrashedAt time.Time
}

// MoveToTrash moves path into trashDir under a free name and returns the new
// path. Files on another device are copied and removed. The modification time
// of the trashed file is set to now.
func MoveToTrash(path, trashDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(trashDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create trash: %w", err)
	}
	dest := GenerateValidAndUniqueTrashedFilePath(trashDir, filepath.Base(path))
	if err := moveFile(path, dest); err != nil {
		return "", err
	}
	if err := os.Chtimes(dest, now, now); err != nil {
		return dest, fmt.Errorf("%w: %w", ErrTrashTime, err)
	}
	return dest, nil
}

// ListTrash returns the trashed files, most recently trashed first.
func ListTrash(trashDir string) ([]TrashedFile, error) {
	entries, err := os.ReadDir(trashDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list trash: %w", err)
	}
	var out []TrashedFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, TrashedFile{Path: filepath.Join(trashDir, e.Name()), TrashedAt: info.ModTime()})
	}
	slices.SortStableFunc(out, func(a, b TrashedFile) int {
		if c := b.TrashedAt.Compare(a.TrashedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	return out, nil
}

// RecoverFromTrash moves a trashed file back into dir and returns its path.
func RecoverFromTrash(path, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	dest := GenerateValidAndUniqueTrashedFilePath(dir, filepath.Base(path))
	if err := moveFile(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// PurgeFromTrash removes trashed files for good. Every path is attempted.
func PurgeFromTrash(paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}
	err = writeFileSafe(dest, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
	in.Close()
	if err != nil {
		return err
	}
	return os.Remove(src)
}
