package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// Serialized as indented JSON for stable, reviewable golden files.
type TraceSnapshot struct {
	Scenario string       `json:"scenario"`
	Seed     int64        `json:"seed"`
	Trace    []TraceEvent `json:"trace"`
}

// RunWithGolden executes a scenario and compares the trace against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Only scenarios whose traces are fully deterministic belong under
// goldens: updatePercent 0 or 100, and no resort over more than one
// record (resort order follows generated values).
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario, result)
}

// AssertGolden compares the given result's trace against the scenario's
// golden file. Useful when the result is also needed for further checks.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return nil
}

// MarshalSnapshot renders the golden-file byte form of a result's trace.
// Every golden comparison, in tests or from the CLI, goes through this
// one function so the byte format cannot drift.
func MarshalSnapshot(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		Scenario: scenario.Name,
		Seed:     scenario.Seed,
		Trace:    result.Trace,
	}
	return json.MarshalIndent(snapshot, "", "  ")
}
