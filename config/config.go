package config

// Config represents the core cloudsync configuration
type Config struct {
	Remote RemoteConfig `mapstructure:"remote"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Auth   AuthConfig   `mapstructure:"auth"`
}

// RemoteConfig configures the cloud API endpoint
type RemoteConfig struct {
	BaseURL        string `mapstructure:"base_url"`        // e.g. "https://api.openpaint.app"
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // per-request deadline (default: 30)
}

// CacheConfig configures the local content-addressed asset cache
type CacheConfig struct {
	Path     string `mapstructure:"path"`      // SQLite file for the durable tier (default: ~/.opsync/cache.db)
	MaxBytes int64  `mapstructure:"max_bytes"` // prune target for `opsync cache prune`; 0 = unbounded
}

// SyncConfig configures patch retry and upload concurrency
type SyncConfig struct {
	MaxPatchAttempts int     `mapstructure:"max_patch_attempts"` // optimistic-concurrency retries per patch (default: 2)
	UploadWorkers    int     `mapstructure:"upload_workers"`     // concurrent asset uploads / view patches (default: 4)
	UploadRatePerSec float64 `mapstructure:"upload_rate_per_sec"` // upload request rate limit; 0 = unlimited
}

// AuthConfig configures where the stored session token lives
type AuthConfig struct {
	TokenPath string `mapstructure:"token_path"` // JSON session file (default: ~/.opsync/session.json)
}
