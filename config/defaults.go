package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()
	opsyncDir := filepath.Join(homeDir, ".opsync")

	// Remote defaults
	v.SetDefault("remote.base_url", "https://api.openpaint.app")
	v.SetDefault("remote.timeout_seconds", 30)

	// Cache defaults
	v.SetDefault("cache.path", filepath.Join(opsyncDir, "cache.db"))
	v.SetDefault("cache.max_bytes", 0) // unbounded; prune is explicit

	// Sync defaults
	v.SetDefault("sync.max_patch_attempts", 2)
	v.SetDefault("sync.upload_workers", 4)
	v.SetDefault("sync.upload_rate_per_sec", 0) // unlimited

	// Auth defaults
	v.SetDefault("auth.token_path", filepath.Join(opsyncDir, "session.json"))
}
