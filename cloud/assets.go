package cloud

import (
	"context"
	"sort"
	gosync "sync"
	"time"
)

// EnsureUploaded makes every blob in blobsByHash durable remotely, uploading
// only what the server reports missing. The existence check is one batched
// round trip so an unchanged project costs a single call. Missing blobs are
// uploaded with bounded parallelism and written through the local cache.
// Returns the hashes actually uploaded, sorted, for audit and telemetry.
func (s *SyncSession) EnsureUploaded(ctx context.Context, blobsByHash map[string]*Asset) ([]string, error) {
	if len(blobsByHash) == 0 {
		return nil, nil
	}

	hashes := make([]string, 0, len(blobsByHash))
	for hash := range blobsByHash {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)

	missing, err := s.client.AssetsExist(ctx, s.projectID, hashes)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		s.logger.Debugw("all assets already remote", "project_id", s.projectID, "count", len(hashes))
		return nil, nil
	}

	started := time.Now()

	// Bounded fan-out: each upload targets a distinct hash, so the only
	// shared state is the error slot and the byte counter.
	sem := make(chan struct{}, s.uploadWorkers)
	var wg gosync.WaitGroup
	var mu gosync.Mutex
	var firstErr error
	var uploadedBytes int64

	for _, hash := range missing {
		asset, ok := blobsByHash[hash]
		if !ok {
			// The server asked for a hash we never offered.
			return nil, NormalizeError(0, "", "exists check returned unknown hash: "+hash)
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(hash string, asset *Asset) {
			defer wg.Done()
			defer func() { <-sem }()

			mu.Lock()
			aborted := firstErr != nil
			mu.Unlock()
			if aborted {
				return
			}

			if err := s.client.UploadAsset(ctx, s.projectID, hash, asset.Data, asset.ContentType); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			if cacheErr := s.cache.Put(ctx, asset); cacheErr != nil {
				// Cache write-through is an optimization; the upload
				// already succeeded.
				s.logger.Warnw("asset cache write failed after upload",
					"hash", hash, "error", cacheErr)
			}

			mu.Lock()
			uploadedBytes += int64(len(asset.Data))
			mu.Unlock()
		}(hash, asset)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	uploaded := make([]string, len(missing))
	copy(uploaded, missing)
	sort.Strings(uploaded)

	s.telemetry.Record(TelemetryEvent{
		Kind:           "asset_upload",
		Operation:      OpAssetUpload,
		DurationMs:     time.Since(started).Milliseconds(),
		UploadedBytes:  uploadedBytes,
		UploadedAssets: len(uploaded),
		Status:         "ok",
	})
	s.logger.Infow("assets uploaded",
		"project_id", s.projectID,
		"count", len(uploaded),
		"bytes", uploadedBytes)
	return uploaded, nil
}

// FetchAsset returns the blob for hash, cache-first. A full miss fetches
// from the remote store and writes through the cache. A hash absent from
// both cache and remote store surfaces as not_found; a placeholder is never
// substituted.
func (s *SyncSession) FetchAsset(ctx context.Context, hash string) (*Asset, error) {
	if cached, ok, err := s.cache.Get(ctx, hash); err != nil {
		s.logger.Warnw("asset cache read failed", "hash", hash, "error", err)
	} else if ok {
		s.telemetry.Record(TelemetryEvent{
			Kind:      "asset_fetch",
			Operation: OpAssetFetch,
			CacheHits: 1,
			Status:    "ok",
		})
		return cached, nil
	}

	started := time.Now()
	asset, err := s.client.GetAsset(ctx, s.projectID, hash)
	if err != nil {
		return nil, err
	}

	if cacheErr := s.cache.Put(ctx, asset); cacheErr != nil {
		s.logger.Warnw("asset cache write failed after download",
			"hash", hash, "error", cacheErr)
	}

	s.telemetry.Record(TelemetryEvent{
		Kind:            "asset_fetch",
		Operation:       OpAssetFetch,
		DurationMs:      time.Since(started).Milliseconds(),
		DownloadedBytes: int64(len(asset.Data)),
		CacheMisses:     1,
		Status:          "ok",
	})
	return asset, nil
}
