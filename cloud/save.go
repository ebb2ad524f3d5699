package cloud

import (
	"context"
	"encoding/json"
	"sort"
	gosync "sync"
	"time"
)

// viewDocument is the stored shape of one view's state: the editor document
// plus the image reference, by hash or external URL, never inline bytes.
type viewDocument struct {
	AssetHash        string          `json:"assetHash,omitempty"`
	ExternalImageURL string          `json:"externalImageUrl,omitempty"`
	ContentType      string          `json:"contentType,omitempty"`
	Document         json.RawMessage `json:"document"`
}

// SaveResult reports what one accepted save pushed remotely.
type SaveResult struct {
	ProjectID           string   `json:"projectId"`
	ManifestVersion     int      `json:"manifestVersion"`
	SyncedViewIDs       []string `json:"syncedViewIds"`
	UploadedAssetHashes []string `json:"uploadedAssetHashes"`
	RequestID           string   `json:"requestId"`
	DurationMs          int64    `json:"durationMs"`
}

// EnsureProject returns input.ProjectID, creating the project with an
// initial empty manifest when it is unset. First saves route through this
// before a session is opened.
func EnsureProject(ctx context.Context, client *Client, input SaveInput) (string, error) {
	if input.ProjectID != "" {
		return input.ProjectID, nil
	}
	return client.CreateProject(ctx, input.OwnerID, input.ProjectName, ManifestPatch{
		ProjectName: input.ProjectName,
		ViewOrder:   []string{},
		Views:       map[string]ViewEntry{},
	})
}

// Save pushes the full in-memory project state to the remote store:
// hash local images, upload only what the server is missing, patch every
// view, then patch the manifest once. The manifest patch goes last, after
// every referenced asset and view patch is confirmed, so the manifest never
// points at anything that does not yet exist remotely. Any stage failure
// aborts the save; assets already uploaded stay in place and the next
// attempt's existence check skips them.
func (s *SyncSession) Save(ctx context.Context, input SaveInput) (*SaveResult, error) {
	started := time.Now()
	requestID := NewRequestID(OpSave)

	if _, err := s.Bootstrap(ctx); err != nil {
		return nil, err
	}

	// Hash every live image. Identical bytes across views share one hash
	// and one upload.
	blobsByHash := make(map[string]*Asset)
	hashByView := make(map[string]string, len(input.Views))
	for viewID, view := range input.Views {
		if len(view.ImageData) == 0 {
			continue
		}
		hash := ContentHash(view.ImageData)
		hashByView[viewID] = hash
		if _, seen := blobsByHash[hash]; !seen {
			blobsByHash[hash] = &Asset{
				Hash:        hash,
				Data:        view.ImageData,
				ContentType: view.ContentType,
				SizeBytes:   int64(len(view.ImageData)),
			}
		}
	}

	uploaded, err := s.EnsureUploaded(ctx, blobsByHash)
	if err != nil {
		return nil, err
	}

	// Patch all views with bounded parallelism. Each view targets its own
	// version counter; the tracker serializes its own updates.
	if err := s.patchAllViews(ctx, input, hashByView); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	views := make(map[string]ViewEntry, len(input.Views))
	for viewID, view := range input.Views {
		views[viewID] = ViewEntry{
			AssetHash:         hashByView[viewID],
			ContentType:       view.ContentType,
			ExternalImageURL:  view.ExternalImageURL,
			LatestViewVersion: s.tracker.ViewVersion(viewID),
			UpdatedAt:         now,
		}
	}

	manifestVersion, err := s.PatchManifest(ctx, ManifestPatch{
		ProjectName:   input.ProjectName,
		CurrentViewID: input.CurrentViewID,
		ViewOrder:     input.ViewOrder,
		Views:         views,
		Metadata:      input.Metadata,
	})
	if err != nil {
		return nil, err
	}

	syncedViewIDs := make([]string, 0, len(input.Views))
	for viewID := range input.Views {
		syncedViewIDs = append(syncedViewIDs, viewID)
	}
	sort.Strings(syncedViewIDs)

	duration := time.Since(started)
	s.telemetry.Record(TelemetryEvent{
		Kind:       "save",
		Operation:  OpSave,
		RequestID:  requestID,
		DurationMs: duration.Milliseconds(),
		Status:     "ok",
	})
	s.logger.Infow("project saved",
		"project_id", s.projectID,
		"manifest_version", manifestVersion,
		"views", len(syncedViewIDs),
		"uploaded_assets", len(uploaded),
		"request_id", requestID)

	return &SaveResult{
		ProjectID:           s.projectID,
		ManifestVersion:     manifestVersion,
		SyncedViewIDs:       syncedViewIDs,
		UploadedAssetHashes: uploaded,
		RequestID:           requestID,
		DurationMs:          duration.Milliseconds(),
	}, nil
}

func (s *SyncSession) patchAllViews(ctx context.Context, input SaveInput, hashByView map[string]string) error {
	sem := make(chan struct{}, s.uploadWorkers)
	var wg gosync.WaitGroup
	var mu gosync.Mutex
	var firstErr error

	for viewID, view := range input.Views {
		doc, err := json.Marshal(viewDocument{
			AssetHash:        hashByView[viewID],
			ExternalImageURL: view.ExternalImageURL,
			ContentType:      view.ContentType,
			Document:         view.State,
		})
		if err != nil {
			return ValidationError("failed to encode view state: " + err.Error())
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(viewID string, doc json.RawMessage) {
			defer wg.Done()
			defer func() { <-sem }()

			mu.Lock()
			aborted := firstErr != nil
			mu.Unlock()
			if aborted {
				return
			}

			if _, err := s.PatchView(ctx, viewID, doc); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(viewID, doc)
	}
	wg.Wait()

	return firstErr
}
