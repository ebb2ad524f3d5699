package cloud

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecideFinalSaveMessageKey(t *testing.T) {
	tests := []struct {
		name    string
		outcome SaveOutcome
		want    SaveMessageKey
	}{
		{
			"both succeeded",
			SaveOutcome{
				Local: LocalSaveStep{Status: StepSuccess},
				Cloud: CloudSaveStep{Attempted: true, Status: StepSuccess},
			},
			SaveMessageOK,
		},
		{
			"local failed",
			SaveOutcome{
				Local: LocalSaveStep{Status: StepFailed},
				Cloud: CloudSaveStep{Attempted: true, Status: StepSuccess},
			},
			SaveMessageFail,
		},
		{
			"cloud failed",
			SaveOutcome{
				Local: LocalSaveStep{Status: StepSuccess},
				Cloud: CloudSaveStep{Attempted: true, Status: StepFailed},
			},
			SaveMessageLocalOnly,
		},
		{
			"cloud not attempted",
			SaveOutcome{
				Local: LocalSaveStep{Status: StepSuccess},
				Cloud: CloudSaveStep{Attempted: false, Status: StepNotAttempted},
			},
			SaveMessageLocalOnly,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DecideFinalSaveMessageKey(tt.outcome))
		})
	}
}

func TestSaveMessageCopy(t *testing.T) {
	require.Equal(t, MsgCombinedOK, SaveMessage(SaveMessageOK))
	require.Equal(t, MsgCombinedLocalOnly, SaveMessage(SaveMessageLocalOnly))
	require.Equal(t, MsgCombinedFail, SaveMessage(SaveMessageFail))
	require.Equal(t, MsgCombinedFail, SaveMessage("bogus"))
}

func TestFormatSaveOutcomeLines(t *testing.T) {
	lines := FormatSaveOutcomeLines(SaveOutcome{
		Local: LocalSaveStep{Status: StepSuccess},
		Cloud: CloudSaveStep{Attempted: true, Status: StepSuccess},
	})
	require.Equal(t, "Local Save: Success\nCloud Sync: Success", lines)

	lines = FormatSaveOutcomeLines(SaveOutcome{
		Local: LocalSaveStep{Status: StepFailed, Error: "disk full"},
		Cloud: CloudSaveStep{Attempted: false},
	})
	require.Contains(t, lines, "Local Save: Failed (disk full)")
	require.Contains(t, lines, "Cloud Sync: Not attempted")

	lines = FormatSaveOutcomeLines(SaveOutcome{
		Local: LocalSaveStep{Status: StepSuccess},
		Cloud: CloudSaveStep{
			Attempted: true,
			Status:    StepFailed,
			Error:     NormalizeError(409, "", "version mismatch"),
		},
	})
	require.Contains(t, lines, "Cloud Sync: Failed ("+MsgConflict+")")
}

func TestResultEnvelopes(t *testing.T) {
	started := time.Now().Add(-50 * time.Millisecond)

	ok := Success(OpSave, "", started)
	require.True(t, ok.OK())
	require.Equal(t, OpSave, ok.Operation)
	require.True(t, strings.HasPrefix(ok.RequestID, "save_"))
	require.GreaterOrEqual(t, ok.DurationMs, int64(50))
	require.Nil(t, ok.Err)

	cerr := NormalizeError(500, "", "boom")
	fail := Failure(OpLoad, "load_fixed-id", started, cerr)
	require.False(t, fail.OK())
	require.Equal(t, "load_fixed-id", fail.RequestID)
	require.Equal(t, 500, fail.StatusCode)
	require.Equal(t, cerr, fail.Err)
}

func TestRequestIDsUnique(t *testing.T) {
	a := NewRequestID(OpSave)
	b := NewRequestID(OpSave)
	require.NotEqual(t, a, b)
}
