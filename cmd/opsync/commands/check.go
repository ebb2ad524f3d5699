package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/openpaint/cloudsync/errors"
	"github.com/openpaint/cloudsync/rules"
)

// checkFile is the on-disk input for `opsync check`: the measured values
// plus the formula checks to evaluate against them.
type checkFile struct {
	Unit         string              `json:"unit,omitempty"`
	Measurements []rules.Measurement `json:"measurements"`
	Checks       []rules.Check       `json:"checks"`
	Connections  []rules.Connection  `json:"connections,omitempty"`
	// Tolerance applies to connections; checks carry their own.
	Tolerance float64 `json:"tolerance,omitempty"`
}

// CheckCmd evaluates measurement formula checks.
var CheckCmd = &cobra.Command{
	Use:   "check <check-file>",
	Short: "Evaluate measurement formula checks",
	Long: `Evaluate measurement formula checks.

Reads a file of measurements and checks like "B1 + F1 = G1" with a
tolerance, evaluates both sides against the measured values, and reports
pass, fail, or pending per check. Pending means the check could not be
judged: a missing formula, an unresolvable token, or an invalid expression.

Exits non-zero when any check fails.

Examples:
  opsync check ./measurements.json
  opsync check ./measurements.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var checkJSONFlag bool

func init() {
	CheckCmd.Flags().BoolVar(&checkJSONFlag, "json", false, "Print results as JSON")
}

func runCheck(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "failed to read check file")
	}

	var cf checkFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return errors.Wrap(err, "check file is not valid JSON")
	}

	index := rules.BuildIndex(cf.Unit, cf.Measurements)
	checkResults := rules.EvaluateChecks(cf.Checks, index)
	connectionResults := rules.EvaluateConnections(cf.Connections, index.Lookup, cf.Tolerance)

	failed := 0
	for _, r := range checkResults {
		if r.Status == rules.StatusFail {
			failed++
		}
	}
	for _, r := range connectionResults {
		if r.Status == rules.StatusFail {
			failed++
		}
	}

	if checkJSONFlag {
		if err := printJSON(struct {
			Checks      []rules.CheckResult      `json:"checks"`
			Connections []rules.ConnectionResult `json:"connections,omitempty"`
			Failed      int                      `json:"failed"`
		}{checkResults, connectionResults, failed}); err != nil {
			return err
		}
	} else {
		renderCheckTable(checkResults, connectionResults, cf.Unit)
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func renderCheckTable(checks []rules.CheckResult, connections []rules.ConnectionResult, unit string) {
	rows := pterm.TableData{{"Check", "Status", "Result", "Delta", "Reason"}}
	for _, r := range checks {
		delta := ""
		if r.Delta != nil {
			delta = fmt.Sprintf("%.2f %s", *r.Delta, unit)
		}
		rows = append(rows, []string{r.Formula, statusLabel(r.Status), r.Result, delta, r.Reason})
	}
	for _, r := range connections {
		delta := ""
		if r.Delta != nil {
			delta = fmt.Sprintf("%.2f %s", *r.Delta, unit)
		}
		label := r.FromKey + " ~ " + r.ToKey
		rows = append(rows, []string{label, statusLabel(r.Status), "", delta, r.Reason})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func statusLabel(status rules.Status) string {
	switch status {
	case rules.StatusPass:
		return pterm.Green("pass")
	case rules.StatusFail:
		return pterm.Red("fail")
	default:
		return pterm.Gray("pending")
	}
}
