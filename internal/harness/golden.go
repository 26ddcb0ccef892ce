package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/contend/internal/canon"
)

// TraceSnapshot is the golden-file form of a scenario trace.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunID        string       `json:"run_id,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// GoldenBytes renders a scenario trace as canonical JSON.
// Identical traces always yield identical bytes.
func GoldenBytes(scenario *Scenario, result *Result) ([]byte, error) {
	return canon.Marshal(TraceSnapshot{
		ScenarioName: scenario.Name,
		RunID:        scenario.RunID,
		Trace:        result.Trace,
	})
}

// RunWithGolden executes a scenario, fails t on any expectation or assertion
// error, and compares the trace against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	return result, AssertGolden(t, scenario, result)
}

// AssertGolden compares an existing result's trace against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := GoldenBytes(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
