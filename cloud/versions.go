package cloud

import "sync"

// VersionTracker holds the last known server-side versions for one project:
// the manifest version and one counter per view. It is the single source of
// truth for "what version do we think the server has" — it is written only
// by a bootstrap or by a server-confirmed patch.
type VersionTracker struct {
	mu              sync.Mutex
	projectID       string
	manifestVersion int
	viewVersions    map[string]int
}

// NewVersionTracker returns an empty tracker for projectID. Versions are
// unknown until the first ApplyBootstrap.
func NewVersionTracker(projectID string) *VersionTracker {
	return &VersionTracker{
		projectID:    projectID,
		viewVersions: make(map[string]int),
	}
}

// ProjectID returns the project this tracker is scoped to.
func (t *VersionTracker) ProjectID() string { return t.projectID }

// ApplyBootstrap overwrites all tracked versions from server-reported truth.
func (t *VersionTracker) ApplyBootstrap(b *Bootstrap) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.manifestVersion = b.Manifest.ManifestVersion
	t.viewVersions = make(map[string]int, len(b.ViewStates))
	for viewID, state := range b.ViewStates {
		t.viewVersions[viewID] = state.Version
	}
}

// ManifestVersion returns the tracked manifest version.
func (t *VersionTracker) ManifestVersion() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.manifestVersion
}

// ViewVersion returns the tracked version for viewID. A view the tracker has
// never seen reports 0, the base version for a first patch.
func (t *VersionTracker) ViewVersion(viewID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewVersions[viewID]
}

// BumpManifest records a server-confirmed manifest version. Only the patch
// coordinator calls this, and only after acceptance.
func (t *VersionTracker) BumpManifest(newVersion int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.manifestVersion = newVersion
}

// BumpView records a server-confirmed view version.
func (t *VersionTracker) BumpView(viewID string, newVersion int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.viewVersions[viewID] = newVersion
}
