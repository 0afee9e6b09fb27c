package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OCAP2/bookmarks/internal/kml"
	"github.com/OCAP2/bookmarks/pkg/core"
)

const tempSuffix = ".tmp"

// writeFileSafe writes through a temporary file next to path and renames it
// into place, so path is either the old or the complete new content.
func writeFileSafe(path string, write func(w io.Writer) error) error {
	tmp := path + tempSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	bw := bufio.NewWriter(f)
	err = write(bw)
	if err == nil {
		err = bw.Flush()
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteFileSafe atomically replaces path with data.
func WriteFileSafe(path string, data []byte) error {
	return writeFileSafe(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// SaveFileSafe serializes data in the format given by the extension of path
// and atomically replaces path.
func SaveFileSafe(path string, data *core.FileData) error {
	t, err := kml.FileTypeFromPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return writeFileSafe(path, func(w io.Writer) error {
		return kml.Serialize(w, data, t)
	})
}

// SaveJob is a snapshot of one category to write.
type SaveJob struct {
	Path string
	Data *core.FileData
}

// SaveAll writes every job and returns the joined errors of those that failed.
func SaveAll(jobs []SaveJob) error {
	var errs []error
	for _, j := range jobs {
		if err := SaveFileSafe(j.Path, j.Data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
