package cloud

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/openpaint/cloudsync/internal/httpclient"
)

// ExternalImageFetcher retrieves image bytes for views that reference an
// external URL instead of a content-addressed asset.
type ExternalImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (data []byte, contentType string, err error)
}

// HTTPImageFetcher fetches external images over HTTP with SSRF protection,
// since the URLs come from remotely stored manifests rather than local
// configuration.
type HTTPImageFetcher struct {
	client *httpclient.SaferClient
}

// NewHTTPImageFetcher builds a fetcher with the given timeout.
func NewHTTPImageFetcher(timeout time.Duration) *HTTPImageFetcher {
	return &HTTPImageFetcher{client: httpclient.New(timeout, httpclient.Options{})}
}

func (f *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", NormalizeError(resp.StatusCode, "", "external image fetch failed")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxPayloadBytes))
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Load pulls the project into a self-contained package: bootstrap, then
// resolve every view's image cache-first. A view whose asset hash resolves
// nowhere fails the whole load; the package never contains a silently
// broken view.
func (s *SyncSession) Load(ctx context.Context) (*ProjectPackage, error) {
	started := time.Now()
	requestID := NewRequestID(OpLoad)

	b, err := s.Bootstrap(ctx)
	if err != nil {
		return nil, err
	}

	pkg := &ProjectPackage{
		Manifest: b.Manifest,
		Views:    make([]LoadedView, 0, len(b.Manifest.ViewOrder)),
	}

	for _, viewID := range b.Manifest.ViewOrder {
		state, ok := b.ViewStates[viewID]
		if !ok {
			return nil, &Error{
				Category:    CategoryNotFound,
				Message:     "manifest references view with no stored state: " + viewID,
				UserMessage: MsgNotFound,
			}
		}

		loaded, err := s.resolveView(ctx, viewID, state)
		if err != nil {
			return nil, err
		}
		pkg.Views = append(pkg.Views, *loaded)
	}

	s.telemetry.Record(TelemetryEvent{
		Kind:       "load",
		Operation:  OpLoad,
		RequestID:  requestID,
		DurationMs: time.Since(started).Milliseconds(),
		Status:     "ok",
	})
	s.logger.Infow("project loaded",
		"project_id", s.projectID,
		"manifest_version", b.Manifest.ManifestVersion,
		"views", len(pkg.Views),
		"request_id", requestID)
	return pkg, nil
}

func (s *SyncSession) resolveView(ctx context.Context, viewID string, state ViewState) (*LoadedView, error) {
	var doc viewDocument
	err := json.Unmarshal(state.State, &doc)
	if err != nil || (doc.Document == nil && doc.AssetHash == "" && doc.ExternalImageURL == "") {
		// Legacy states are a bare document with no image wrapper.
		doc = viewDocument{Document: state.State}
	}

	loaded := &LoadedView{
		ViewID:      viewID,
		State:       doc.Document,
		Version:     state.Version,
		ContentType: doc.ContentType,
	}

	switch {
	case doc.AssetHash != "":
		asset, err := s.FetchAsset(ctx, doc.AssetHash)
		if err != nil {
			return nil, err
		}
		loaded.ImageData = asset.Data
		if asset.ContentType != "" {
			loaded.ContentType = asset.ContentType
		}
	case doc.ExternalImageURL != "":
		loaded.ImageURL = doc.ExternalImageURL
		if s.externalImages != nil {
			data, contentType, err := s.externalImages.FetchImage(ctx, doc.ExternalImageURL)
			if err != nil {
				// External hosts are outside our store's durability
				// guarantees; the view keeps its URL reference.
				s.logger.Warnw("external image fetch failed",
					"view_id", viewID, "url", doc.ExternalImageURL, "error", err)
			} else {
				loaded.ImageData = data
				if contentType != "" {
					loaded.ContentType = contentType
				}
			}
		}
	}

	return loaded, nil
}
