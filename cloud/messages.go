package cloud

// User-facing copy for sync outcomes. Kept in one table so the CLI and any
// embedding UI report identical wording.

const (
	MsgLocalSuccess       = "Local file saved (.opaint)."
	MsgLocalFailed        = "Local save failed. Your project was not downloaded."
	MsgSkippedLoggedOut   = "Cloud sync not attempted: you are not logged in."
	MsgSkippedUnavailable = "Cloud sync not attempted: cloud is unavailable."
	MsgCloudSuccess       = "Cloud sync complete."
	MsgAuthExpired        = "Cloud sync failed: session expired. Please sign in again."
	MsgAuthInvalid        = "Cloud sync failed: invalid login session. Please sign in again."
	MsgPermission         = "Cloud sync failed: you do not have permission for this project."
	MsgNotFound           = "Cloud project not found."
	MsgConflict           = "Cloud sync conflict: project changed elsewhere. Reload and retry."
	MsgNetwork            = "Cloud sync failed: network error."
	MsgServer             = "Cloud sync failed: server error."
	MsgUnknown            = "Cloud sync failed: unexpected error."
	MsgCombinedOK         = "Saved locally and synced to cloud."
	MsgCombinedLocalOnly  = "Saved locally. Cloud sync did not complete."
	MsgCombinedFail       = "Save failed."
)

// SaveMessageKey identifies the combined save outcome independently of the
// rendered copy, so callers can branch on it without string matching.
type SaveMessageKey string

const (
	SaveMessageOK        SaveMessageKey = "save.combined.ok"
	SaveMessageLocalOnly SaveMessageKey = "save.combined.local_only"
	SaveMessageFail      SaveMessageKey = "save.combined.fail"
)

// SaveMessage renders the combined save outcome copy for a key.
func SaveMessage(key SaveMessageKey) string {
	switch key {
	case SaveMessageOK:
		return MsgCombinedOK
	case SaveMessageLocalOnly:
		return MsgCombinedLocalOnly
	default:
		return MsgCombinedFail
	}
}
