package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/qbdsync/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add realms table", "add_realms_table"},
		{"Add-Realms-Table", "add_realms_table"},
		{"ADD_REALMS_TABLE", "add_realms_table"},
		{"add__realms__table", "add_realms_table"},
		{"Add Tasks 123", "add_tasks_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create realms", "Realms and sessions")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_create_realms.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_create_realms.down.sql"), first.DownPath)

	content, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- Migration: create_realms")
	assert.Contains(t, string(content), "-- Description: Realms and sessions")

	second, err := CreateMigration(dir, "Add Tasks", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Version)
	assert.FileExists(t, filepath.Join(dir, "000002_add_tasks.down.sql"))

	_, err = CreateMigration(dir, "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	t.Run("orders by version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"000010_later.up.sql":   {},
			"000010_later.down.sql": {},
			"000002_first.up.sql":   {},
			"000002_first.down.sql": {},
			"README.md":             {},
		}
		files, err := ListMigrations(fsys)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "first", files[0].Name)
		assert.Equal(t, uint64(10), files[1].Version)
	})

	t.Run("requires both directions", func(t *testing.T) {
		_, err := ListMigrations(fstest.MapFS{"000001_x.up.sql": {}})
		assert.ErrorContains(t, err, "missing its up or down file")
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		_, err := ListMigrations(fstest.MapFS{
			"000001_a.up.sql":   {},
			"000001_a.down.sql": {},
			"000001_b.up.sql":   {},
		})
		assert.ErrorContains(t, err, "is used by both")
	})

	t.Run("missing directory is empty", func(t *testing.T) {
		files, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "absent")))
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("embedded schema is consistent", func(t *testing.T) {
		files, err := ListMigrations(migrations.FS)
		require.NoError(t, err)
		require.Len(t, files, 3)
		for i, f := range files {
			assert.Equal(t, uint64(i+1), f.Version)
		}
	})
}
