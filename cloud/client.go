package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openpaint/cloudsync/internal/httpclient"
)

// MaxPayloadBytes caps a single request body. Oversized projects fail fast
// with a validation error instead of timing out against the server limit.
const MaxPayloadBytes = 50 * 1024 * 1024

// Session is a live credential pair from the session provider.
type Session struct {
	Token  string
	UserID string
}

// SessionProvider supplies a fresh credential per request. ActiveSession
// returns an error when no usable session exists; the client maps that to
// an auth_expired failure before any network I/O.
type SessionProvider interface {
	ActiveSession() (Session, error)
}

// Client is the authenticated remote API wrapper. It classifies every
// failure into the fixed taxonomy and never retries; retry policy belongs
// to the patch coordinator.
type Client struct {
	baseURL  string
	http     *httpclient.SaferClient
	sessions SessionProvider
	limiter  *rate.Limiter // nil means unlimited
	logger   *zap.SugaredLogger
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL  string
	Sessions SessionProvider
	Timeout  time.Duration
	// UploadRatePerSec throttles asset uploads; 0 disables throttling.
	UploadRatePerSec float64
	// HTTPClient overrides the default SSRF-protected client. Tests use
	// this to point at an httptest server on localhost.
	HTTPClient *httpclient.SaferClient
	Logger     *zap.SugaredLogger
}

// NewClient builds a remote API client.
func NewClient(opts ClientOptions) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		hc = httpclient.New(timeout, httpclient.Options{})
	}

	var limiter *rate.Limiter
	if opts.UploadRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.UploadRatePerSec), 1)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Client{
		baseURL:  opts.BaseURL,
		http:     hc,
		sessions: opts.Sessions,
		limiter:  limiter,
		logger:   logger,
	}
}

// do executes one authenticated request and decodes the JSON response into
// out (when out is non-nil). Every failure path returns a normalized *Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	session, err := c.sessions.ActiveSession()
	if err != nil {
		return AuthExpiredError(err.Error())
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return ValidationError(fmt.Sprintf("failed to encode request body: %v", err))
		}
		if len(encoded) > MaxPayloadBytes {
			return ValidationError(fmt.Sprintf(
				"request payload is too large (%.1f MB). Try reducing image count or size.",
				float64(len(encoded))/(1024*1024)))
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return ValidationError(fmt.Sprintf("failed to build request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debugw("cloud request transport failure", "method", method, "path", path, "error", err)
		return NetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return NetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var appErr errorResponse
		_ = json.Unmarshal(raw, &appErr)
		message := appErr.Message
		if message == "" {
			message = string(raw)
		}
		cerr := NormalizeError(resp.StatusCode, appErr.Code, message)
		c.logger.Debugw("cloud request rejected",
			"method", method, "path", path,
			"status", resp.StatusCode, "category", cerr.Category)
		return cerr
	}

	// Servers may report application-level failure inside a 2xx body.
	var appErr errorResponse
	if json.Unmarshal(raw, &appErr) == nil && appErr.Status == "error" {
		return NormalizeError(resp.StatusCode, appErr.Code, appErr.Message)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return NormalizeError(resp.StatusCode, "", fmt.Sprintf("failed to decode response: %v", err))
		}
	}
	return nil
}

// CreateProject creates a project with an initial manifest and returns its ID.
func (c *Client) CreateProject(ctx context.Context, ownerID, title string, initial ManifestPatch) (string, error) {
	var resp createProjectResponse
	err := c.do(ctx, http.MethodPost, "/projects", createProjectRequest{
		OwnerID:         ownerID,
		Title:           title,
		InitialManifest: initial,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ProjectID, nil
}

// FetchBootstrap reads the project's current manifest and all view states.
func (c *Client) FetchBootstrap(ctx context.Context, projectID string) (*Bootstrap, error) {
	var resp Bootstrap
	path := fmt.Sprintf("/projects/%s/bootstrap", url.PathEscape(projectID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PatchManifest submits a manifest replacement against baseVersion and
// returns the server's new manifest version on acceptance.
func (c *Client) PatchManifest(ctx context.Context, projectID string, baseVersion int, patch ManifestPatch) (int, error) {
	var resp manifestPatchResponse
	path := fmt.Sprintf("/projects/%s/manifest", url.PathEscape(projectID))
	err := c.do(ctx, http.MethodPatch, path, manifestPatchRequest{
		BaseManifestVersion: baseVersion,
		Patch:               patch,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.ManifestVersion, nil
}

// PatchView submits a view-state replacement against baseVersion and returns
// the server's new view version on acceptance.
func (c *Client) PatchView(ctx context.Context, projectID, viewID string, baseVersion int, state json.RawMessage) (int, error) {
	var resp viewPatchResponse
	path := fmt.Sprintf("/projects/%s/views/%s", url.PathEscape(projectID), url.PathEscape(viewID))
	err := c.do(ctx, http.MethodPatch, path, viewPatchRequest{
		BaseVersion: baseVersion,
		ViewState:   state,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.ViewVersion, nil
}

// AssetsExist batch-queries which of hashes are missing from the remote
// store. One round trip regardless of set size, so a no-op save stays cheap.
func (c *Client) AssetsExist(ctx context.Context, projectID string, hashes []string) ([]string, error) {
	var resp assetsExistsResponse
	err := c.do(ctx, http.MethodPost, "/assets/exists", assetsExistsRequest{
		ProjectID: projectID,
		Hashes:    hashes,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Missing, nil
}

// UploadAsset stores one content-addressed blob. Respects the upload rate
// limiter when one is configured.
func (c *Client) UploadAsset(ctx context.Context, projectID, hash string, data []byte, contentType string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return NetworkError(err)
		}
	}
	path := fmt.Sprintf("/assets/%s", url.PathEscape(hash))
	return c.do(ctx, http.MethodPut, path, uploadAssetRequest{
		ProjectID:   projectID,
		Data:        data,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}, nil)
}

// GetAsset fetches one blob by hash, scoped to projectID for access control.
func (c *Client) GetAsset(ctx context.Context, projectID, hash string) (*Asset, error) {
	var resp getAssetResponse
	path := fmt.Sprintf("/assets/%s?projectId=%s", url.PathEscape(hash), url.QueryEscape(projectID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &Asset{
		Hash:        hash,
		Data:        resp.Data,
		ContentType: resp.ContentType,
		SizeBytes:   resp.SizeBytes,
	}, nil
}

// ListProjects lists the owner's projects, optionally filtered by a
// case-insensitive title substring.
func (c *Client) ListProjects(ctx context.Context, ownerID, search string) ([]ProjectSummary, error) {
	var resp listProjectsResponse
	path := fmt.Sprintf("/projects/list/%s", url.PathEscape(ownerID))
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}
