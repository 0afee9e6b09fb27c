// internal/catalog/registry.go
package catalog

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry links a local category file to its copy on the catalog server.
type Entry struct {
	ServerID    string `gorm:"primaryKey;size:64"`
	FileName    string `gorm:"index"`
	AccessRules string
	AuthorID    string
	AuthorName  string
	Properties  datatypes.JSONMap
	UpdatedAt   time.Time
}

// Registry stores catalog links in the local database.
type Registry struct {
	db *gorm.DB
}

// NewRegistry migrates the registry table.
func NewRegistry(db *gorm.DB) (*Registry, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrating catalog registry: %w", err)
	}
	return &Registry{db: db}, nil
}

// Put inserts or replaces e.
func (r *Registry) Put(e *Entry) error {
	if e.ServerID == "" {
		return errors.New("catalog entry without server id")
	}
	err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(e).Error
	if err != nil {
		return fmt.Errorf("saving catalog entry %s: %w", e.ServerID, err)
	}
	return nil
}

// Get returns the entry for serverID.
func (r *Registry) Get(serverID string) (*Entry, bool, error) {
	var e Entry
	err := r.db.Where("server_id = ?", serverID).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading catalog entry %s: %w", serverID, err)
	}
	return &e, true, nil
}

// FindByFile returns the entry of a local file, if the file was published or downloaded.
func (r *Registry) FindByFile(fileName string) (*Entry, bool, error) {
	var e Entry
	err := r.db.Where("file_name = ?", fileName).Order("updated_at desc").Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading catalog entry for %s: %w", fileName, err)
	}
	return &e, true, nil
}

// Rename moves the link of oldFile to newFile.
func (r *Registry) Rename(oldFile, newFile string) error {
	err := r.db.Model(&Entry{}).Where("file_name = ?", oldFile).Update("file_name", newFile).Error
	if err != nil {
		return fmt.Errorf("renaming catalog entries of %s: %w", oldFile, err)
	}
	return nil
}

// Delete removes the entry for serverID.
func (r *Registry) Delete(serverID string) error {
	if err := r.db.Where("server_id = ?", serverID).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("deleting catalog entry %s: %w", serverID, err)
	}
	return nil
}

// List returns all entries ordered by server id.
func (r *Registry) List() ([]Entry, error) {
	var out []Entry
	if err := r.db.Order("server_id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing catalog entries: %w", err)
	}
	return out, nil
}
