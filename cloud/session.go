package cloud

import (
	"context"

	"go.uber.org/zap"
)

// AssetCache is the local content-addressed store consulted before any
// remote asset fetch and filled after uploads and downloads.
type AssetCache interface {
	// Get returns the cached asset for hash, or (nil, false) on a miss.
	// A miss is not an error.
	Get(ctx context.Context, hash string) (*Asset, bool, error)
	// Put stores an asset under its hash. Writes are idempotent: the same
	// hash always carries the same bytes.
	Put(ctx context.Context, asset *Asset) error
}

// SyncSession scopes the engine to one open project. It owns the project's
// version tracker; switching projects means discarding the session and
// opening a new one, which is what keeps version state from leaking across
// projects.
type SyncSession struct {
	projectID string
	client    *Client
	tracker   *VersionTracker
	cache     AssetCache
	telemetry TelemetrySink
	logger    *zap.SugaredLogger

	maxPatchAttempts int
	uploadWorkers    int
	externalImages   ExternalImageFetcher
}

// SessionOptions configures a SyncSession.
type SessionOptions struct {
	// MaxPatchAttempts bounds conflict retries per patch. Default 2.
	MaxPatchAttempts int
	// UploadWorkers bounds the asset upload and view patch fan-out. Default 4.
	UploadWorkers int
	Telemetry     TelemetrySink
	Logger        *zap.SugaredLogger
	// ExternalImages fetches externalImageUrl fallbacks during load. Nil
	// disables external fetches; such views load without image bytes.
	ExternalImages ExternalImageFetcher
}

// NewSyncSession opens a session for projectID.
func NewSyncSession(projectID string, client *Client, cache AssetCache, opts SessionOptions) *SyncSession {
	maxAttempts := opts.MaxPatchAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	workers := opts.UploadWorkers
	if workers <= 0 {
		workers = 4
	}
	telemetry := opts.Telemetry
	if telemetry == nil {
		telemetry = NopTelemetry{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &SyncSession{
		projectID:        projectID,
		client:           client,
		tracker:          NewVersionTracker(projectID),
		cache:            cache,
		telemetry:        telemetry,
		logger:           logger,
		maxPatchAttempts: maxAttempts,
		uploadWorkers:    workers,
		externalImages:   opts.ExternalImages,
	}
}

// ProjectID returns the project this session is bound to.
func (s *SyncSession) ProjectID() string { return s.projectID }

// Versions exposes the session's tracker for callers that need to inspect
// state, such as the CLI status output. Mutation still happens only through
// bootstrap and confirmed patches.
func (s *SyncSession) Versions() *VersionTracker { return s.tracker }

// Bootstrap refreshes ground truth from the server and reseeds the tracker.
func (s *SyncSession) Bootstrap(ctx context.Context) (*Bootstrap, error) {
	b, err := s.client.FetchBootstrap(ctx, s.projectID)
	if err != nil {
		return nil, err
	}
	s.tracker.ApplyBootstrap(b)
	s.logger.Debugw("bootstrap applied",
		"project_id", s.projectID,
		"manifest_version", b.Manifest.ManifestVersion,
		"views", len(b.ViewStates))
	return b, nil
}
