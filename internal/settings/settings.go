// Package settings is a small key/value store on top of the local database.
package settings

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/OCAP2/bookmarks/pkg/core"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Keys of values the bookmark manager keeps between runs.
const (
	KeyLastEditedCategory = "bookmarks.lastEditedCategoryFile"
	KeyLastEditedColor    = "bookmarks.lastEditedColor"
)

// Setting is one stored value.
type Setting struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     string
	UpdatedAt time.Time
}

// Store reads and writes settings.
type Store struct {
	db *gorm.DB
}

// New migrates the settings table and returns a store.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Setting{}); err != nil {
		return nil, fmt.Errorf("migrating settings: %w", err)
	}
	return &Store{db: db}, nil
}

// String returns the value stored under key.
func (s *Store) String(key string) (string, bool, error) {
	var row Setting
	err := s.db.Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return row.Value, true, nil
}

// SetString stores value under key, replacing any previous value.
func (s *Store) SetString(key, value string) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Setting{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	if err := s.db.Where("key = ?", key).Delete(&Setting{}).Error; err != nil {
		return fmt.Errorf("deleting setting %s: %w", key, err)
	}
	return nil
}

// Uint64 returns an unsigned value stored under key.
func (s *Store) Uint64(key string) (uint64, bool, error) {
	v, ok, err := s.String(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("setting %s is not a number: %w", key, err)
	}
	return n, true, nil
}

// SetUint64 stores an unsigned value under key.
func (s *Store) SetUint64(key string, v uint64) error {
	return s.SetString(key, strconv.FormatUint(v, 10))
}

// LoadCounter lets the id allocator persist its counters here.
func (s *Store) LoadCounter(key string) (uint64, bool, error) {
	return s.Uint64(key)
}

// SaveCounter stores an id counter.
func (s *Store) SaveCounter(key string, v uint64) error {
	return s.SetUint64(key, v)
}

// LastEditedCategoryFile returns the file of the category a bookmark was last saved to.
func (s *Store) LastEditedCategoryFile() (string, error) {
	v, _, err := s.String(KeyLastEditedCategory)
	return v, err
}

// SetLastEditedCategoryFile remembers the file of the last edited category.
func (s *Store) SetLastEditedCategoryFile(file string) error {
	return s.SetString(KeyLastEditedCategory, file)
}

// LastEditedColor returns the last color picked for a bookmark.
func (s *Store) LastEditedColor() (core.PredefinedColor, error) {
	v, ok, err := s.String(KeyLastEditedColor)
	if err != nil || !ok {
		return core.ColorNone, err
	}
	return core.ParsePredefinedColor(v), nil
}

// SetLastEditedColor remembers the last color picked for a bookmark.
func (s *Store) SetLastEditedColor(c core.PredefinedColor) error {
	return s.SetString(KeyLastEditedColor, c.String())
}
