package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/iamez/slomix-sub001/internal/engine"
)

// Snapshot captures the coverage picture of a scenario execution.
// Rows and summaries are left to assertions; diagnostics change whenever
// matching behaviour changes, which is what golden files should catch.
type Snapshot struct {
	ScenarioName           string                                `json:"scenario_name"`
	RunID                  string                                `json:"run_id"`
	RoundIDs               []int64                               `json:"round_ids"`
	OverallCoveragePercent float64                               `json:"overall_coverage_percent"`
	TelemetryQueryFailed   bool                                  `json:"telemetry_query_failed"`
	Diagnostics            []engine.RoundTimingShadowDiagnostics `json:"diagnostics"`
}

// NewSnapshot builds the snapshot for a scenario result.
func NewSnapshot(name string, session *engine.SessionTimingShadowResult) Snapshot {
	return Snapshot{
		ScenarioName:           name,
		RunID:                  session.RunID,
		RoundIDs:               session.RoundIDs,
		OverallCoveragePercent: session.OverallCoveragePercent,
		TelemetryQueryFailed:   session.TelemetryQueryFailed,
		Diagnostics:            session.Diagnostics,
	}
}

// Marshal renders the snapshot as indented JSON.
func (s Snapshot) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's snapshot against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result.Session).Marshal()
	if err != nil {
		return err
	}

	// Compare with golden file using goldie
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
