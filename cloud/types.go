// Package cloud implements the project synchronization engine: version-tracked
// bootstrap, optimistic-concurrency patches with conflict retry, content-addressed
// asset deduplication, and the save/load orchestration that ties them together.
//
// Every sub-document carries its own version counter. A patch is accepted only
// when the submitted base version equals the server's current version; losers
// re-bootstrap and resubmit rather than merging. Binary assets are deduplicated
// by content hash and uploaded at most once per project.
package cloud

import (
	"encoding/json"
	"time"
)

// Operation names one remote call for result envelopes and telemetry.
type Operation string

const (
	OpSave          Operation = "save"
	OpLoad          Operation = "load"
	OpList          Operation = "list"
	OpCreate        Operation = "create"
	OpBootstrap     Operation = "bootstrap"
	OpAssetsExists  Operation = "assets_exists"
	OpAssetUpload   Operation = "asset_upload"
	OpAssetFetch    Operation = "asset_fetch"
	OpManifestPatch Operation = "manifest_patch"
	OpViewPatch     Operation = "view_patch"
)

// ViewEntry describes one view inside a manifest. The entry references the
// view's image by content hash (or by external URL when the image was never
// local) and mirrors the server's latest accepted view version.
type ViewEntry struct {
	AssetHash         string    `json:"assetHash,omitempty"`
	ContentType       string    `json:"contentType,omitempty"`
	ExternalImageURL  string    `json:"externalImageUrl,omitempty"`
	LatestViewVersion int       `json:"latestViewVersion"`
	UpdatedAt         time.Time `json:"updatedAt,omitempty"`
}

// Manifest is the top-level versioned document for a project. It is mutated
// only through manifest patches; each accepted patch increments
// ManifestVersion by exactly 1 server-side.
type Manifest struct {
	ProjectID       string               `json:"projectId"`
	OwnerID         string               `json:"ownerId"`
	ProjectName     string               `json:"projectName"`
	ManifestVersion int                  `json:"manifestVersion"`
	CurrentViewID   string               `json:"currentViewId,omitempty"`
	ViewOrder       []string             `json:"viewOrder"`
	Views           map[string]ViewEntry `json:"views"`
	Metadata        map[string]string    `json:"metadata,omitempty"`
}

// ManifestPatch is a full replacement of the manifest's mutable fields.
// Versioned fields (ManifestVersion, per-view versions) are owned by the
// server and never appear in a patch.
type ManifestPatch struct {
	ProjectName   string               `json:"projectName"`
	CurrentViewID string               `json:"currentViewId,omitempty"`
	ViewOrder     []string             `json:"viewOrder"`
	Views         map[string]ViewEntry `json:"views"`
	Metadata      map[string]string    `json:"metadata,omitempty"`
}

// ViewState is one view's serialized editor document plus its server version.
type ViewState struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// Bootstrap is the server's ground truth for a project: the current manifest
// and every view state with its version. It is the only read that seeds or
// refreshes a VersionTracker.
type Bootstrap struct {
	Manifest   Manifest             `json:"manifest"`
	ViewStates map[string]ViewState `json:"viewStates"`
}

// ProjectSummary is one row of a project listing.
type ProjectSummary struct {
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Asset is a fetched content-addressed blob.
type Asset struct {
	Hash        string
	Data        []byte
	ContentType string
	SizeBytes   int64
}

// ViewInput is one view's contribution to a save: the serialized editor
// document plus the raw image bytes backing it, if the image is local.
// Views whose image lives at an external URL set ExternalImageURL and leave
// ImageData nil.
type ViewInput struct {
	State            json.RawMessage
	ImageData        []byte
	ContentType      string
	ExternalImageURL string
}

// SaveInput is the full in-memory project state handed to the Save
// orchestrator.
type SaveInput struct {
	ProjectID     string // empty means create on first save
	OwnerID       string
	ProjectName   string
	CurrentViewID string
	ViewOrder     []string
	Views         map[string]ViewInput
	Metadata      map[string]string
}

// LoadedView is one fully resolved view in a loaded package: the editor
// document plus the image bytes it references, already fetched.
type LoadedView struct {
	ViewID      string
	State       json.RawMessage
	Version     int
	ImageData   []byte
	ContentType string
	ImageURL    string // set instead of ImageData for external images
}

// ProjectPackage is the self-contained result of a load: everything the
// editor needs, with no dangling asset references.
type ProjectPackage struct {
	Manifest Manifest
	Views    []LoadedView
}

// Wire shapes for the remote API.

type createProjectRequest struct {
	OwnerID         string        `json:"ownerId"`
	Title           string        `json:"title"`
	InitialManifest ManifestPatch `json:"initialManifest"`
}

type createProjectResponse struct {
	ProjectID string `json:"projectId"`
}

type manifestPatchRequest struct {
	BaseManifestVersion int           `json:"baseManifestVersion"`
	Patch               ManifestPatch `json:"patch"`
}

type manifestPatchResponse struct {
	ManifestVersion int `json:"manifestVersion"`
}

type viewPatchRequest struct {
	BaseVersion int             `json:"baseVersion"`
	ViewState   json.RawMessage `json:"viewState"`
}

type viewPatchResponse struct {
	ViewVersion int `json:"viewVersion"`
}

type assetsExistsRequest struct {
	ProjectID string   `json:"projectId"`
	Hashes    []string `json:"hashes"`
}

type assetsExistsResponse struct {
	Missing []string `json:"missing"`
}

type uploadAssetRequest struct {
	ProjectID   string `json:"projectId"`
	Data        []byte `json:"data"` // base64 via encoding/json
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type getAssetResponse struct {
	Data        []byte `json:"data"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type listProjectsResponse struct {
	Projects []ProjectSummary `json:"projects"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
