package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OCAP2/bookmarks/pkg/core"
)

// PropSortingType holds the last sorting type chosen for a category.
const PropSortingType = "sortingType"

// Metadata is the per-file property sidecar, keyed by the base name of the
// category file.
type Metadata struct {
	Entries map[string]map[string]string
}

// NewMetadata returns empty metadata.
func NewMetadata() *Metadata {
	return &Metadata{Entries: make(map[string]map[string]string)}
}

// LoadMetadata reads the sidecar at path. A missing file yields empty metadata.
func LoadMetadata(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewMetadata(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata: %w", err)
	}
	defer f.Close()

	m := NewMetadata()
	if err := json.NewDecoder(f).Decode(&m.Entries); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if m.Entries == nil {
		m.Entries = make(map[string]map[string]string)
	}
	return m, nil
}

// Save prunes entries of files not in existing and writes the sidecar.
// A nil existing keeps every entry.
func (m *Metadata) Save(path string, existing []string) error {
	if existing != nil {
		m.Prune(existing)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return writeFileSafe(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m.Entries)
	})
}

// Prune drops entries whose file is not among existing paths.
func (m *Metadata) Prune(existing []string) {
	keep := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		keep[filepath.Base(p)] = struct{}{}
	}
	for name := range m.Entries {
		if _, ok := keep[name]; !ok {
			delete(m.Entries, name)
		}
	}
}

// Property returns a property of the file at path.
func (m *Metadata) Property(path, prop string) (string, bool) {
	v, ok := m.Entries[filepath.Base(path)][prop]
	return v, ok
}

// SetProperty stores a property of the file at path.
func (m *Metadata) SetProperty(path, prop, value string) {
	name := filepath.Base(path)
	e, ok := m.Entries[name]
	if !ok {
		e = make(map[string]string)
		m.Entries[name] = e
	}
	e[prop] = value
}

// RemoveProperty deletes a property and the entry once it is empty.
func (m *Metadata) RemoveProperty(path, prop string) {
	name := filepath.Base(path)
	e, ok := m.Entries[name]
	if !ok {
		return
	}
	delete(e, prop)
	if len(e) == 0 {
		delete(m.Entries, name)
	}
}

// SortingType returns the last sorting type stored for the file.
func (m *Metadata) SortingType(path string) (core.SortingType, bool) {
	v, ok := m.Property(path, PropSortingType)
	if !ok {
		return 0, false
	}
	return core.ParseSortingType(v)
}

func (m *Metadata) SetSortingType(path string, t core.SortingType) {
	m.SetProperty(path, PropSortingType, t.String())
}

func (m *Metadata) ResetSortingType(path string) {
	m.RemoveProperty(path, PropSortingType)
}

// Rename moves the entry of oldPath to newPath.
func (m *Metadata) Rename(oldPath, newPath string) {
	oldName, newName := filepath.Base(oldPath), filepath.Base(newPath)
	if e, ok := m.Entries[oldName]; ok && oldName != newName {
		m.Entries[newName] = e
		delete(m.Entries, oldName)
	}
}

// Clone returns an independent copy for writing off the core loop.
func (m *Metadata) Clone() *Metadata {
	out := &Metadata{Entries: make(map[string]map[string]string, len(m.Entries))}
	for name, props := range m.Entries {
		cp := make(map[string]string, len(props))
		for k, v := range props {
			cp[k] = v
		}
		out.Entries[name] = cp
	}
	return out
}
