package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID   uint `gorm:"primaryKey"`
	Text string
}

func TestManager_InMemoryIsolated(t *testing.T) {
	a := NewManager(zerolog.Nop())
	require.NoError(t, a.Open(""))
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Setup(&note{}))

	b := NewManager(zerolog.Nop())
	require.NoError(t, b.Open(""))
	t.Cleanup(func() { _ = b.Close() })
	require.NoError(t, b.Setup(&note{}))

	require.NoError(t, a.DB.Create(&note{Text: "only in a"}).Error)

	var count int64
	require.NoError(t, b.DB.Model(&note{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "in-memory databases must not be shared")
}

func TestManager_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")

	m := NewManager(zerolog.Nop())
	require.NoError(t, m.Open(path))
	assert.True(t, m.IsValid)
	assert.Equal(t, path, m.Path)
	require.NoError(t, m.Setup(&note{}))
	require.NoError(t, m.DB.Create(&note{Text: "persisted"}).Error)
	require.NoError(t, m.Close())
	assert.False(t, m.IsValid)

	reopened := NewManager(zerolog.Nop())
	require.NoError(t, reopened.Open(path))
	t.Cleanup(func() { _ = reopened.Close() })

	var n note
	require.NoError(t, reopened.DB.First(&n).Error)
	assert.Equal(t, "persisted", n.Text)
}

func TestManager_SetupRequiresOpen(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.Setup(&note{}))
	assert.NoError(t, m.Close())
}
