package cloud

import "sync"

// TelemetryEvent is one structured measurement emitted by the engine.
type TelemetryEvent struct {
	Kind            string `json:"kind"`
	Operation       Operation
	RequestID       string
	DurationMs      int64
	UploadedBytes   int64
	DownloadedBytes int64
	UploadedAssets  int
	CacheHits       int
	CacheMisses     int
	Status          string
}

// TelemetrySink receives engine events. Implementations must be safe for
// concurrent use; the asset fan-out emits from multiple goroutines.
type TelemetrySink interface {
	Record(event TelemetryEvent)
}

// NopTelemetry discards all events.
type NopTelemetry struct{}

func (NopTelemetry) Record(TelemetryEvent) {}

// CountingTelemetry accumulates totals in memory. Used by the CLI to print
// a transfer summary after a save or load, and by tests.
type CountingTelemetry struct {
	mu     sync.Mutex
	events []TelemetryEvent

	UploadedBytes   int64
	DownloadedBytes int64
	UploadedAssets  int
	CacheHits       int
	CacheMisses     int
}

func (t *CountingTelemetry) Record(event TelemetryEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
	t.UploadedBytes += event.UploadedBytes
	t.DownloadedBytes += event.DownloadedBytes
	t.UploadedAssets += event.UploadedAssets
	t.CacheHits += event.CacheHits
	t.CacheMisses += event.CacheMisses
}

// Events returns a copy of all recorded events.
func (t *CountingTelemetry) Events() []TelemetryEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TelemetryEvent, len(t.events))
	copy(out, t.events)
	return out
}
