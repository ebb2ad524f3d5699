package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	sqlDB, err := Open(path, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer sqlDB.Close()

	var mode string
	err = sqlDB.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	require.Equal(t, "wal", mode)

	var fk int
	err = sqlDB.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	require.NoError(t, err)
	require.Equal(t, 1, fk)
}

func TestOpenNilLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	sqlDB, err := Open(path, nil)
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, sqlDB.Ping())
}
