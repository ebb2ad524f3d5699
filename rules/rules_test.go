package rules

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testIndex() Index {
	return BuildIndex("cm", []Measurement{
		{Key: "B1", ViewID: "front", StrokeLabel: "B1", Value: 10, Display: "Front - B1"},
		{Key: "F1", ViewID: "front", StrokeLabel: "F1", Value: 2.5, Display: "Front - F1"},
		{Key: "G1", ViewID: "side", StrokeLabel: "G1", Value: 12.5, Display: "Side - G1"},
		{Key: "side:width", ViewID: "side", StrokeLabel: "W", Value: 40, Display: "Side - W"},
		{Key: "back:width", ViewID: "back", StrokeLabel: "DUP", Value: 40, Display: "Back - DUP"},
		{Key: "front:width", ViewID: "front", StrokeLabel: "DUP", Value: 41, Display: "Front - DUP"},
	})
}

func TestCheckPassesWithinTolerance(t *testing.T) {
	results := EvaluateChecks([]Check{
		{ID: "c1", Formula: "B1 + F1 = G1", Tolerance: 0},
	}, testIndex())

	require.Len(t, results, 1)
	r := results[0]
	require.Equal(t, StatusPass, r.Status)
	require.Equal(t, "12.50 = 12.50", r.Result)
	require.NotNil(t, r.Delta)
	require.InDelta(t, 0, *r.Delta, 1e-9)
	require.Equal(t, "Within tolerance", r.Reason)
}

func TestCheckFailsOutsideTolerance(t *testing.T) {
	results := EvaluateChecks([]Check{
		{ID: "c1", Formula: "B1 = G1", Tolerance: 1},
	}, testIndex())

	r := results[0]
	require.Equal(t, StatusFail, r.Status)
	require.InDelta(t, 2.5, *r.Delta, 1e-9)
	require.Equal(t, "Outside tolerance", r.Reason)
}

func TestCheckToleranceBoundaryInclusive(t *testing.T) {
	results := EvaluateChecks([]Check{
		{ID: "c1", Formula: "B1 = G1", Tolerance: 2.5},
	}, testIndex())

	require.Equal(t, StatusPass, results[0].Status)
}

func TestCheckMissingFormulaPending(t *testing.T) {
	results := EvaluateChecks([]Check{
		{ID: "c1", Formula: ""},
		{ID: "c2", Formula: "B1 + F1"}, // no equals sign
	}, testIndex())

	for _, r := range results {
		require.Equal(t, StatusPending, r.Status)
		require.Equal(t, "Missing formula", r.Reason)
		require.Nil(t, r.Delta)
	}
}

func TestCheckUnknownTokenPending(t *testing.T) {
	results := EvaluateChecks([]Check{
		{ID: "c1", Formula: "B1 + NOPE = G1"},
	}, testIndex())

	r := results[0]
	require.Equal(t, StatusPending, r.Status)
	require.Equal(t, "Missing value for NOPE", r.Reason)
}

func TestCheckAliasResolution(t *testing.T) {
	results := EvaluateChecks([]Check{
		{
			ID:        "c1",
			Formula:   "W1 = W2",
			Tolerance: 0,
			AliasMap:  map[string]string{"W1": "side:width", "W2": "back:width"},
		},
	}, testIndex())

	require.Equal(t, StatusPass, results[0].Status)
}

func TestCheckStrokeLabelFallback(t *testing.T) {
	// "W" is not a key, but exactly one measurement carries that stroke
	// label, so it resolves.
	results := EvaluateChecks([]Check{
		{ID: "c1", Formula: "W = W", Tolerance: 0},
	}, testIndex())
	require.Equal(t, StatusPass, results[0].Status)

	// "DUP" labels two measurements: ambiguous, stays pending.
	results = EvaluateChecks([]Check{
		{ID: "c2", Formula: "DUP = DUP"},
	}, testIndex())
	require.Equal(t, StatusPending, results[0].Status)
	require.Equal(t, "Missing value for DUP", results[0].Reason)
}

func TestCheckInvalidExpressionPending(t *testing.T) {
	results := EvaluateChecks([]Check{
		{ID: "c1", Formula: "B1 + = G1"},
	}, testIndex())

	r := results[0]
	require.Equal(t, StatusPending, r.Status)
	require.Equal(t, "Invalid expression", r.Reason)
}

func TestCheckDivisionByZeroPending(t *testing.T) {
	idx := BuildIndex("cm", []Measurement{
		{Key: "A", StrokeLabel: "A", Value: 1, Display: "A"},
		{Key: "Z", StrokeLabel: "Z", Value: 0, Display: "Z"},
	})

	results := EvaluateChecks([]Check{
		{ID: "c1", Formula: "A / Z = A"},
	}, idx)

	require.Equal(t, StatusPending, results[0].Status)
}

func TestCheckArithmeticPrecedence(t *testing.T) {
	idx := BuildIndex("cm", []Measurement{
		{Key: "A", StrokeLabel: "A", Value: 2, Display: "A"},
		{Key: "B", StrokeLabel: "B", Value: 3, Display: "B"},
		{Key: "C", StrokeLabel: "C", Value: 14, Display: "C"},
	})

	results := EvaluateChecks([]Check{
		{ID: "c1", Formula: "A + B * 4 = C", Tolerance: 0},
	}, idx)

	require.Equal(t, StatusPass, results[0].Status)
}

func TestEvaluateConnections(t *testing.T) {
	lookup := testIndex().Lookup

	results := EvaluateConnections([]Connection{
		{FromKey: "side:width", ToKey: "back:width"},  // 40 vs 40
		{FromKey: "side:width", ToKey: "front:width"}, // 40 vs 41
		{FromKey: "side:width", ToKey: "missing"},
	}, lookup, 0.5)

	require.Len(t, results, 3)

	require.Equal(t, StatusPass, results[0].Status)
	require.Equal(t, "Connected values align", results[0].Reason)

	require.Equal(t, StatusFail, results[1].Status)
	require.InDelta(t, 1, *results[1].Delta, 1e-9)

	require.Equal(t, StatusPending, results[2].Status)
	require.Equal(t, "Missing measurement", results[2].Reason)
}

func TestBuildIndexGroupsByStrokeLabel(t *testing.T) {
	idx := testIndex()
	require.Equal(t, "cm", idx.Unit)
	require.Len(t, idx.ByStrokeLabel["DUP"], 2)
	// Sorted by display: "Back - DUP" before "Front - DUP".
	require.Equal(t, "back:width", idx.ByStrokeLabel["DUP"][0].Key)
}
