package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the functions a scenario computed. Canonical
// strings and group counts are left out so that golden files survive
// changes to the signature catalog.
type TraceSnapshot struct {
	ScenarioName string        `json:"scenario_name"`
	Trace        []goldenEvent `json:"trace"`
}

type goldenEvent struct {
	Name  string `json:"name"`
	Expr  string `json:"expr"`
	Truth string `json:"truth,omitempty"`
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        make([]goldenEvent, len(result.Trace)),
	}
	for i, ev := range result.Trace {
		snapshot.Trace[i] = goldenEvent{Name: ev.Name, Expr: ev.Expr, Truth: ev.Truth}
	}
	// Expressions use '&' and '>', keep them readable in the fixture.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return err
	}
	data := buf.Bytes()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
