package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario, asserts its expectations, and
// compares the rendered report against testdata/golden/{name}.golden.
//
// Report rendering deliberately omits wall-clock times and the scenario
// pins the instance token, so renderings are stable across runs. To
// regenerate golden files:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}
	for _, msg := range result.Errors {
		t.Errorf("scenario %s: %s", scenario.Name, msg)
	}

	var buf bytes.Buffer
	if result.Report != nil {
		if err := result.Report.Render(&buf); err != nil {
			t.Fatalf("scenario %s: render report: %v", scenario.Name, err)
		}
	} else {
		fmt.Fprintf(&buf, "no report\nerror: %v\n", result.RunErr)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, buf.Bytes())
	return result
}
