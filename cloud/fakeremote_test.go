package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/openpaint/cloudsync/internal/httpclient"
)

// fakeRemote is an in-memory remote store with real optimistic-concurrency
// version counters, backing the end-to-end engine tests.
type fakeRemote struct {
	mu       sync.Mutex
	projects map[string]*fakeProject
	assets   map[string]fakeAsset

	uploadCount    int
	bootstrapCount int
	nextProjectID  int
}

type fakeProject struct {
	manifest   Manifest
	viewStates map[string]ViewState
}

type fakeAsset struct {
	data        []byte
	contentType string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		projects: make(map[string]*fakeProject),
		assets:   make(map[string]fakeAsset),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAppError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Status: "error", Code: code, Message: message})
}

func (f *fakeRemote) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /projects", func(w http.ResponseWriter, r *http.Request) {
		var req createProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAppError(w, http.StatusBadRequest, "", "malformed body")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextProjectID++
		projectID := fmt.Sprintf("proj-%d", f.nextProjectID)
		f.projects[projectID] = &fakeProject{
			manifest: Manifest{
				ProjectID:       projectID,
				OwnerID:         req.OwnerID,
				ProjectName:     req.Title,
				ManifestVersion: 1,
				ViewOrder:       req.InitialManifest.ViewOrder,
				Views:           req.InitialManifest.Views,
				Metadata:        req.InitialManifest.Metadata,
			},
			viewStates: make(map[string]ViewState),
		}
		writeJSON(w, http.StatusOK, createProjectResponse{ProjectID: projectID})
	})

	mux.HandleFunc("GET /projects/{id}/bootstrap", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.bootstrapCount++
		p, ok := f.projects[r.PathValue("id")]
		if !ok {
			writeAppError(w, http.StatusNotFound, "", "project not found")
			return
		}
		writeJSON(w, http.StatusOK, Bootstrap{Manifest: p.manifest, ViewStates: p.viewStates})
	})

	mux.HandleFunc("PATCH /projects/{id}/manifest", func(w http.ResponseWriter, r *http.Request) {
		var req manifestPatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAppError(w, http.StatusBadRequest, "", "malformed body")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		p, ok := f.projects[r.PathValue("id")]
		if !ok {
			writeAppError(w, http.StatusNotFound, "", "project not found")
			return
		}
		if req.BaseManifestVersion != p.manifest.ManifestVersion {
			writeAppError(w, http.StatusConflict, "conflict", "manifest version mismatch")
			return
		}
		p.manifest.ManifestVersion++
		p.manifest.ProjectName = req.Patch.ProjectName
		p.manifest.CurrentViewID = req.Patch.CurrentViewID
		p.manifest.ViewOrder = req.Patch.ViewOrder
		p.manifest.Views = req.Patch.Views
		p.manifest.Metadata = req.Patch.Metadata
		writeJSON(w, http.StatusOK, manifestPatchResponse{ManifestVersion: p.manifest.ManifestVersion})
	})

	mux.HandleFunc("PATCH /projects/{id}/views/{viewId}", func(w http.ResponseWriter, r *http.Request) {
		var req viewPatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAppError(w, http.StatusBadRequest, "", "malformed body")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		p, ok := f.projects[r.PathValue("id")]
		if !ok {
			writeAppError(w, http.StatusNotFound, "", "project not found")
			return
		}
		viewID := r.PathValue("viewId")
		current := p.viewStates[viewID]
		if req.BaseVersion != current.Version {
			writeAppError(w, http.StatusConflict, "conflict", "view version mismatch")
			return
		}
		p.viewStates[viewID] = ViewState{State: req.ViewState, Version: current.Version + 1}
		writeJSON(w, http.StatusOK, viewPatchResponse{ViewVersion: current.Version + 1})
	})

	mux.HandleFunc("POST /assets/exists", func(w http.ResponseWriter, r *http.Request) {
		var req assetsExistsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAppError(w, http.StatusBadRequest, "", "malformed body")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		missing := []string{}
		for _, hash := range req.Hashes {
			if _, ok := f.assets[hash]; !ok {
				missing = append(missing, hash)
			}
		}
		writeJSON(w, http.StatusOK, assetsExistsResponse{Missing: missing})
	})

	mux.HandleFunc("PUT /assets/{hash}", func(w http.ResponseWriter, r *http.Request) {
		var req uploadAssetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAppError(w, http.StatusBadRequest, "", "malformed body")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.uploadCount++
		f.assets[r.PathValue("hash")] = fakeAsset{data: req.Data, contentType: req.ContentType}
		writeJSON(w, http.StatusOK, struct{}{})
	})

	mux.HandleFunc("GET /assets/{hash}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		asset, ok := f.assets[r.PathValue("hash")]
		if !ok {
			writeAppError(w, http.StatusNotFound, "", "asset not found")
			return
		}
		writeJSON(w, http.StatusOK, getAssetResponse{
			Data:        asset.data,
			ContentType: asset.contentType,
			SizeBytes:   int64(len(asset.data)),
		})
	})

	// "GET /projects/list/{ownerId}" conflicts with "GET /projects/{id}/bootstrap"
	// under Go 1.22+ ServeMux precedence rules, so register a less specific
	// pattern and guard on the literal "list" segment instead.
	mux.HandleFunc("GET /projects/{id}/{rest...}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "list" {
			http.NotFound(w, r)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		ownerID := r.PathValue("rest")
		resp := listProjectsResponse{Projects: []ProjectSummary{}}
		for id, p := range f.projects {
			if p.manifest.OwnerID != ownerID {
				continue
			}
			resp.Projects = append(resp.Projects, ProjectSummary{
				ProjectID: id,
				Title:     p.manifest.ProjectName,
				OwnerID:   ownerID,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return mux
}

func (f *fakeRemote) uploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadCount
}

func (f *fakeRemote) assetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.assets)
}

func (f *fakeRemote) manifest(projectID string) Manifest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projects[projectID].manifest
}

// bumpManifestBehindBack simulates a concurrent writer: the server applies
// another accepted manifest patch that our session has not seen.
func (f *fakeRemote) bumpManifestBehindBack(projectID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[projectID].manifest.ManifestVersion++
}

func (f *fakeRemote) bumpViewBehindBack(projectID, viewID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.projects[projectID]
	current := p.viewStates[viewID]
	p.viewStates[viewID] = ViewState{State: current.State, Version: current.Version + 1}
}

// staticSessions always returns the same credential.
type staticSessions struct {
	token  string
	userID string
}

func (s staticSessions) ActiveSession() (Session, error) {
	return Session{Token: s.token, UserID: s.userID}, nil
}

// expiredSessions has no usable credential.
type expiredSessions struct{}

func (expiredSessions) ActiveSession() (Session, error) {
	return Session{}, fmt.Errorf("session expired")
}

// memCache is a map-backed AssetCache for tests.
type memCache struct {
	mu     sync.Mutex
	assets map[string]*Asset
	hits   int
}

func newMemCache() *memCache {
	return &memCache{assets: make(map[string]*Asset)}
}

func (c *memCache) Get(_ context.Context, hash string) (*Asset, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	asset, ok := c.assets[hash]
	if ok {
		c.hits++
	}
	return asset, ok, nil
}

func (c *memCache) Put(_ context.Context, asset *Asset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assets[asset.Hash] = asset
	return nil
}

type testEnv struct {
	remote *fakeRemote
	server *httptest.Server
	client *Client
	cache  *memCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	remote := newFakeRemote()
	server := httptest.NewServer(remote.handler())
	t.Cleanup(server.Close)

	client := NewClient(ClientOptions{
		BaseURL:    server.URL,
		Sessions:   staticSessions{token: "tok", userID: "user-1"},
		Timeout:    5 * time.Second,
		HTTPClient: httpclient.WrapClient(server.Client()),
	})

	return &testEnv{
		remote: remote,
		server: server,
		client: client,
		cache:  newMemCache(),
	}
}

func (e *testEnv) newSession(t *testing.T, projectID string) *SyncSession {
	t.Helper()
	return NewSyncSession(projectID, e.client, e.cache, SessionOptions{})
}

func (e *testEnv) createProject(t *testing.T, title string) string {
	t.Helper()
	projectID, err := e.client.CreateProject(context.Background(), "user-1", title, ManifestPatch{
		ViewOrder: []string{},
		Views:     map[string]ViewEntry{},
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return projectID
}
