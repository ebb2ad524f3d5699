// Package rules evaluates measurement formula checks against a set of named
// measurements. A check like "B1 + F1 = G1" with a tolerance asserts that
// two arithmetic expressions over measured values agree. Expressions run
// through a real interpreter rather than generated code, so untrusted
// formulas can at worst fail, never execute.
package rules

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
)

// Measurement is one named measured value, addressable by key or by its
// stroke label when that label is unambiguous.
type Measurement struct {
	Key         string  `json:"key"`
	ViewID      string  `json:"viewId"`
	PartLabel   string  `json:"partLabel"`
	StrokeLabel string  `json:"strokeLabel"`
	Value       float64 `json:"value"`
	Display     string  `json:"display"`
}

// Index resolves formula tokens to measurements.
type Index struct {
	Unit          string
	Lookup        map[string]Measurement
	ByStrokeLabel map[string][]Measurement
}

// BuildIndex constructs an Index from measurements, keyed by Measurement.Key
// and grouped by stroke label. Entries sort by display name.
func BuildIndex(unit string, measurements []Measurement) Index {
	idx := Index{
		Unit:          unit,
		Lookup:        make(map[string]Measurement, len(measurements)),
		ByStrokeLabel: make(map[string][]Measurement),
	}
	for _, m := range measurements {
		idx.Lookup[m.Key] = m
		idx.ByStrokeLabel[m.StrokeLabel] = append(idx.ByStrokeLabel[m.StrokeLabel], m)
	}
	for label := range idx.ByStrokeLabel {
		entries := idx.ByStrokeLabel[label]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Display < entries[j].Display })
	}
	return idx
}

// Check is one formula assertion over measurements.
type Check struct {
	ID        string            `json:"id"`
	Formula   string            `json:"formula"`
	Tolerance float64           `json:"tolerance"`
	Note      string            `json:"note,omitempty"`
	AliasMap  map[string]string `json:"aliasMap,omitempty"`
}

// Status is a check outcome.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusPending Status = "pending"
)

// CheckResult is a Check with its evaluation outcome attached.
type CheckResult struct {
	Check
	Status Status   `json:"status"`
	Result string   `json:"result,omitempty"`
	Delta  *float64 `json:"delta,omitempty"`
	Reason string   `json:"reason"`
}

var tokenPattern = regexp.MustCompile(`[A-Za-z]\w*`)

// EvaluateChecks evaluates every check against the index. A check whose
// formula is absent, whose tokens cannot all be resolved to measured
// values, or whose sides do not evaluate to finite numbers is pending, not
// failed: pending means "cannot judge yet", fail means "judged and wrong".
func EvaluateChecks(checks []Check, index Index) []CheckResult {
	results := make([]CheckResult, 0, len(checks))
	for _, check := range checks {
		results = append(results, evaluateCheck(check, index))
	}
	return results
}

func evaluateCheck(check Check, index Index) CheckResult {
	formula := strings.TrimSpace(check.Formula)
	if formula == "" || !strings.Contains(formula, "=") {
		return pending(check, "Missing formula")
	}

	parts := strings.SplitN(formula, "=", 2)
	leftRaw := strings.TrimSpace(parts[0])
	rightRaw := strings.TrimSpace(parts[1])

	env, missingToken := resolveTokens(check, formula, index)
	if missingToken != "" {
		return pending(check, "Missing value for "+missingToken)
	}

	left, leftErr := evaluateSide(leftRaw, env)
	right, rightErr := evaluateSide(rightRaw, env)
	if leftErr != nil || rightErr != nil {
		return pending(check, "Invalid expression")
	}

	delta := math.Abs(left - right)
	result := CheckResult{
		Check:  check,
		Result: fmt.Sprintf("%.2f = %.2f", left, right),
		Delta:  &delta,
	}
	if delta <= check.Tolerance {
		result.Status = StatusPass
		result.Reason = "Within tolerance"
	} else {
		result.Status = StatusFail
		result.Reason = "Outside tolerance"
	}
	return result
}

// resolveTokens binds every identifier in formula to a measured value.
// Resolution order: the check's alias map, then the measurement key, then a
// stroke label that matches exactly one measurement. The first unresolvable
// token is returned.
func resolveTokens(check Check, formula string, index Index) (map[string]any, string) {
	env := make(map[string]any)
	seen := make(map[string]bool)

	for _, token := range tokenPattern.FindAllString(formula, -1) {
		if seen[token] {
			continue
		}
		seen[token] = true

		var measured *Measurement
		if aliasKey, ok := check.AliasMap[token]; ok {
			if m, found := index.Lookup[aliasKey]; found {
				measured = &m
			}
		}
		if measured == nil {
			if m, found := index.Lookup[token]; found {
				measured = &m
			}
		}
		if measured == nil {
			if matches := index.ByStrokeLabel[token]; len(matches) == 1 {
				measured = &matches[0]
			}
		}
		if measured == nil {
			return nil, token
		}
		env[token] = measured.Value
	}
	return env, ""
}

// evaluateSide runs one arithmetic expression against the token environment.
func evaluateSide(expression string, env map[string]any) (float64, error) {
	if expression == "" {
		return 0, fmt.Errorf("empty expression")
	}
	out, err := expr.Eval(expression, env)
	if err != nil {
		return 0, err
	}

	var value float64
	switch v := out.(type) {
	case float64:
		value = v
	case int:
		value = float64(v)
	default:
		return 0, fmt.Errorf("expression did not evaluate to a number: %T", out)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("expression evaluated to a non-finite number")
	}
	return value, nil
}

func pending(check Check, reason string) CheckResult {
	return CheckResult{Check: check, Status: StatusPending, Reason: reason}
}

// Connection asserts that two measurements that describe the same physical
// edge agree.
type Connection struct {
	FromKey string `json:"fromKey"`
	ToKey   string `json:"toKey"`
}

// ConnectionResult is a Connection with its evaluation outcome.
type ConnectionResult struct {
	Connection
	Status Status   `json:"status"`
	Delta  *float64 `json:"delta,omitempty"`
	Reason string   `json:"reason"`
}

// EvaluateConnections compares each connection's endpoints under tolerance.
func EvaluateConnections(connections []Connection, lookup map[string]Measurement, tolerance float64) []ConnectionResult {
	results := make([]ConnectionResult, 0, len(connections))
	for _, conn := range connections {
		from, fromOK := lookup[conn.FromKey]
		to, toOK := lookup[conn.ToKey]
		if !fromOK || !toOK {
			results = append(results, ConnectionResult{
				Connection: conn,
				Status:     StatusPending,
				Reason:     "Missing measurement",
			})
			continue
		}

		delta := math.Abs(from.Value - to.Value)
		result := ConnectionResult{Connection: conn, Delta: &delta}
		if delta <= tolerance {
			result.Status = StatusPass
			result.Reason = "Connected values align"
		} else {
			result.Status = StatusFail
			result.Reason = "Connected values differ"
		}
		results = append(results, result)
	}
	return results
}
