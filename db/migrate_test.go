package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	sqlDB, err := Open(path, nil)
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, Migrate(sqlDB, nil))

	// assets table exists with the expected columns
	_, err = sqlDB.Exec(
		"INSERT INTO assets (hash, blob, content_type, size_bytes) VALUES (?, ?, ?, ?)",
		"sha256:abc", []byte{1, 2, 3}, "image/png", 3,
	)
	require.NoError(t, err)

	var count int
	require.NoError(t, sqlDB.QueryRow("SELECT COUNT(*) FROM assets").Scan(&count))
	require.Equal(t, 1, count)
}

func TestMigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	sqlDB, err := Open(path, nil)
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, Migrate(sqlDB, nil))
	require.NoError(t, Migrate(sqlDB, nil))

	var applied int
	require.NoError(t, sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	require.Equal(t, 2, applied)
}
