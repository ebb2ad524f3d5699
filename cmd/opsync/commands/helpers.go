// Package commands implements the opsync CLI subcommands.
package commands

import (
	"time"

	"github.com/openpaint/cloudsync/assetcache"
	"github.com/openpaint/cloudsync/auth"
	"github.com/openpaint/cloudsync/cloud"
	"github.com/openpaint/cloudsync/config"
	"github.com/openpaint/cloudsync/errors"
	"github.com/openpaint/cloudsync/logger"
)

// engine bundles the configured client and cache behind one setup path so
// every command builds them the same way.
type engine struct {
	cfg       *config.Config
	client    *cloud.Client
	cache     *assetcache.Cache
	telemetry *cloud.CountingTelemetry
}

func newEngine() (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	cache, err := assetcache.Open(cfg.Cache.Path, logger.Logger)
	if err != nil {
		return nil, err
	}

	client := cloud.NewClient(cloud.ClientOptions{
		BaseURL:          cfg.Remote.BaseURL,
		Sessions:         auth.NewFileSessionProvider(cfg.Auth.TokenPath),
		Timeout:          time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
		UploadRatePerSec: cfg.Sync.UploadRatePerSec,
		Logger:           logger.Logger,
	})

	return &engine{
		cfg:       cfg,
		client:    client,
		cache:     cache,
		telemetry: &cloud.CountingTelemetry{},
	}, nil
}

func (e *engine) Close() {
	if err := e.cache.Close(); err != nil {
		logger.Warnw("failed to close asset cache", "error", err)
	}
}

func (e *engine) session(projectID string) *cloud.SyncSession {
	return cloud.NewSyncSession(projectID, e.client, e.cache, cloud.SessionOptions{
		MaxPatchAttempts: e.cfg.Sync.MaxPatchAttempts,
		UploadWorkers:    e.cfg.Sync.UploadWorkers,
		Telemetry:        e.telemetry,
		Logger:           logger.Logger,
		ExternalImages:   cloud.NewHTTPImageFetcher(time.Duration(e.cfg.Remote.TimeoutSeconds) * time.Second),
	})
}

// ownerID resolves the acting user from the stored session.
func (e *engine) ownerID() (string, error) {
	session, err := auth.NewFileSessionProvider(e.cfg.Auth.TokenPath).ActiveSession()
	if err != nil {
		return "", err
	}
	return session.UserID, nil
}
