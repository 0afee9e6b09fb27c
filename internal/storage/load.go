package storage

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/OCAP2/bookmarks/internal/kml"
	"github.com/OCAP2/bookmarks/pkg/core"
	"golang.org/x/sync/errgroup"
)

// LoadedFile is the outcome of parsing one file. Err is set when the file
// could not be read; Data is nil then.
type LoadedFile struct {
	Path string
	Data *core.FileData
	Err  error
}

// LoadFile parses one bookmarks file.
func LoadFile(path string) (*core.FileData, error) {
	return kml.LoadFile(path)
}

// ListBookmarkFiles returns the loadable files of dir in name order.
// A missing directory holds no files.
func ListBookmarkFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		t, err := kml.FileTypeFromPath(e.Name())
		if err != nil || !t.IsLoadable() {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	slices.Sort(out)
	return out, nil
}

// LoadFiles parses paths on up to workers goroutines. Results keep the order
// of paths; a file that fails does not stop the others.
func LoadFiles(ctx context.Context, paths []string, workers int) ([]LoadedFile, error) {
	out := make([]LoadedFile, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := LoadFile(path)
			out[i] = LoadedFile{Path: path, Data: data, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadDirectory parses every bookmarks file in dir.
func LoadDirectory(ctx context.Context, dir string, workers int) ([]LoadedFile, error) {
	paths, err := ListBookmarkFiles(dir)
	if err != nil {
		return nil, err
	}
	return LoadFiles(ctx, paths, workers)
}

// PrepareImport copies an external file into dir under a free name so it can
// be loaded like any other category. KMZ archives are unpacked: every KML
// entry becomes its own file.
func PrepareImport(path, dir string) ([]string, error) {
	t, err := kml.FileTypeFromPath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if t == kml.FileTypeKMZ {
		return unpackKMZ(path, dir)
	}

	dest := GenerateValidAndUniqueFilePath(dir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), t)
	if err := copyFile(path, dest); err != nil {
		return nil, err
	}
	return []string{dest}, nil
}

func unpackKMZ(path, dir string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer zr.Close()

	var out []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(f.Name), kml.ExtKML) {
			continue
		}
		// doc.kml of a bundle only links the real files
		if strings.EqualFold(f.Name, bundleIndexName) {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(f.Name), filepath.Ext(f.Name))
		dest := GenerateValidAndUniqueFilePath(dir, name, kml.FileTypeKML)
		if err := extract(f, dest); err != nil {
			for _, p := range out {
				os.Remove(p)
			}
			return nil, err
		}
		out = append(out, dest)
	}
	if len(out) == 0 {
		// a KMZ from other tools may keep its only placemarks in doc.kml
		for _, f := range zr.File {
			if strings.EqualFold(f.Name, bundleIndexName) {
				dest := GenerateValidAndUniqueFilePath(dir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), kml.FileTypeKML)
				if err := extract(f, dest); err != nil {
					return nil, err
				}
				out = append(out, dest)
			}
		}
	}
	return out, nil
}

func extract(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
	}
	defer rc.Close()
	return writeFileSafe(dest, func(w io.Writer) error {
		_, err := io.Copy(w, rc)
		return err
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()
	return writeFileSafe(dest, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}
