package cloud

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OpResult is the envelope every top-level operation returns: one request ID
// for correlating logs across client and server, wall-clock timing, and
// either data or a normalized error.
type OpResult struct {
	Status     string    `json:"status"` // "ok" or "error"
	Operation  Operation `json:"operation"`
	StatusCode int       `json:"statusCode,omitempty"`
	RequestID  string    `json:"requestId"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"durationMs"`
	Err        *Error    `json:"error,omitempty"`
}

// OK reports whether the operation succeeded.
func (r OpResult) OK() bool { return r.Status == "ok" }

// NewRequestID generates a correlation ID for one operation.
func NewRequestID(op Operation) string {
	return fmt.Sprintf("%s_%s", op, uuid.NewString())
}

// Success builds an ok envelope for op, measured from startedAt.
func Success(op Operation, requestID string, startedAt time.Time) OpResult {
	if requestID == "" {
		requestID = NewRequestID(op)
	}
	return OpResult{
		Status:     "ok",
		Operation:  op,
		RequestID:  requestID,
		Timestamp:  time.Now().UTC(),
		DurationMs: time.Since(startedAt).Milliseconds(),
	}
}

// Failure builds an error envelope for op, measured from startedAt.
func Failure(op Operation, requestID string, startedAt time.Time, cerr *Error) OpResult {
	if requestID == "" {
		requestID = NewRequestID(op)
	}
	return OpResult{
		Status:     "error",
		Operation:  op,
		StatusCode: cerr.StatusCode,
		RequestID:  requestID,
		Timestamp:  time.Now().UTC(),
		DurationMs: time.Since(startedAt).Milliseconds(),
		Err:        cerr,
	}
}

// StepStatus is the outcome of one half of a combined save.
type StepStatus string

const (
	StepSuccess      StepStatus = "success"
	StepFailed       StepStatus = "failed"
	StepNotAttempted StepStatus = "not_attempted"
)

// LocalSaveStep records the local-file half of a save.
type LocalSaveStep struct {
	Status     StepStatus `json:"status"`
	FileName   string     `json:"fileName,omitempty"`
	Bytes      int64      `json:"bytes,omitempty"`
	DurationMs int64      `json:"durationMs,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// CloudSaveStep records the cloud-sync half of a save.
type CloudSaveStep struct {
	Attempted           bool       `json:"attempted"`
	Status              StepStatus `json:"status"`
	ProjectID           string     `json:"projectId,omitempty"`
	ManifestVersion     int        `json:"manifestVersion,omitempty"`
	SyncedViewIDs       []string   `json:"syncedViewIds,omitempty"`
	UploadedAssetHashes []string   `json:"uploadedAssetHashes,omitempty"`
	DurationMs          int64      `json:"durationMs,omitempty"`
	Error               *Error     `json:"error,omitempty"`
}

// SaveOutcome combines both halves of a save for the caller's status UI.
type SaveOutcome struct {
	Local           LocalSaveStep  `json:"local"`
	Cloud           CloudSaveStep  `json:"cloud"`
	FinalMessageKey SaveMessageKey `json:"finalMessageKey"`
	Timestamp       time.Time      `json:"timestamp"`
}

// DecideFinalSaveMessageKey picks the combined message: local failure always
// wins, cloud success upgrades to the full-success message.
func DecideFinalSaveMessageKey(outcome SaveOutcome) SaveMessageKey {
	if outcome.Local.Status != StepSuccess {
		return SaveMessageFail
	}
	if outcome.Cloud.Attempted && outcome.Cloud.Status == StepSuccess {
		return SaveMessageOK
	}
	return SaveMessageLocalOnly
}

// FormatSaveOutcomeLines renders the two-line human summary of a save.
func FormatSaveOutcomeLines(outcome SaveOutcome) string {
	localLine := "Local Save: Success"
	if outcome.Local.Status != StepSuccess {
		localLine = "Local Save: Failed"
		if outcome.Local.Error != "" {
			localLine += fmt.Sprintf(" (%s)", outcome.Local.Error)
		}
	}

	cloudLine := "Cloud Sync: Not attempted"
	if outcome.Cloud.Attempted {
		switch outcome.Cloud.Status {
		case StepSuccess:
			cloudLine = "Cloud Sync: Success"
		case StepFailed:
			userMsg := MsgUnknown
			if outcome.Cloud.Error != nil && outcome.Cloud.Error.UserMessage != "" {
				userMsg = outcome.Cloud.Error.UserMessage
			}
			cloudLine = fmt.Sprintf("Cloud Sync: Failed (%s)", userMsg)
		}
	}

	return localLine + "\n" + cloudLine
}
