package cloud

import (
	"context"
	"encoding/json"
)

// PatchView applies a view-state replacement under optimistic concurrency.
// On acceptance the tracker is advanced to the server's returned version.
// On conflict the session re-bootstraps — refreshing every tracked version,
// not just this view's — and resubmits the same intended state, up to the
// session's attempt bound. Any non-conflict failure propagates immediately.
func (s *SyncSession) PatchView(ctx context.Context, viewID string, state json.RawMessage) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxPatchAttempts; attempt++ {
		baseVersion := s.tracker.ViewVersion(viewID)
		newVersion, err := s.client.PatchView(ctx, s.projectID, viewID, baseVersion, state)
		if err == nil {
			s.tracker.BumpView(viewID, newVersion)
			s.logger.Debugw("view patch accepted",
				"project_id", s.projectID, "view_id", viewID,
				"base_version", baseVersion, "new_version", newVersion)
			return newVersion, nil
		}
		if !IsConflict(err) {
			return 0, err
		}

		lastErr = err
		s.logger.Infow("view patch conflict, refreshing versions",
			"project_id", s.projectID, "view_id", viewID,
			"base_version", baseVersion, "attempt", attempt)

		if attempt < s.maxPatchAttempts {
			if _, err := s.Bootstrap(ctx); err != nil {
				return 0, err
			}
		}
	}

	return 0, retryExhausted(lastErr)
}

// PatchManifest applies a manifest replacement with the same conflict-retry
// shape as PatchView, against the manifest's single version counter.
func (s *SyncSession) PatchManifest(ctx context.Context, patch ManifestPatch) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxPatchAttempts; attempt++ {
		baseVersion := s.tracker.ManifestVersion()
		newVersion, err := s.client.PatchManifest(ctx, s.projectID, baseVersion, patch)
		if err == nil {
			s.tracker.BumpManifest(newVersion)
			s.logger.Debugw("manifest patch accepted",
				"project_id", s.projectID,
				"base_version", baseVersion, "new_version", newVersion)
			return newVersion, nil
		}
		if !IsConflict(err) {
			return 0, err
		}

		lastErr = err
		s.logger.Infow("manifest patch conflict, refreshing versions",
			"project_id", s.projectID,
			"base_version", baseVersion, "attempt", attempt)

		if attempt < s.maxPatchAttempts {
			if _, err := s.Bootstrap(ctx); err != nil {
				return 0, err
			}
		}
	}

	return 0, retryExhausted(lastErr)
}

// retryExhausted wraps the final conflict in a terminal conflict error so
// callers can still see the category while the message marks the bound.
func retryExhausted(lastErr error) *Error {
	msg := "version conflict: retry exhausted"
	statusCode := 0
	if ce, ok := AsCloudError(lastErr); ok {
		statusCode = ce.StatusCode
	}
	return &Error{
		Category:    CategoryConflict,
		StatusCode:  statusCode,
		Message:     msg,
		UserMessage: MsgConflict,
	}
}
