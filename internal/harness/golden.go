package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/minq/internal/ir"
)

// Snapshot renders a run as canonical JSON: the scenario name plus every
// step output. Errors from failed expectations are not part of it, so a
// snapshot records what the engine produced rather than what was expected.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	outputs := make(ir.IRArray, len(result.Outputs))
	for i, o := range result.Outputs {
		obj := ir.IRObject{
			"step":  ir.IRInt(o.Step),
			"calls": ir.IRInt(o.Calls),
		}
		if o.Query != "" {
			obj["query"] = ir.IRString(o.Query)
		}
		if o.Mutation != "" {
			obj["mutation"] = ir.IRString(o.Mutation)
		}
		if o.Value != nil {
			obj["value"] = o.Value
		}
		if o.Error != "" {
			obj["error"] = ir.IRString(o.Error)
		}
		outputs[i] = obj
	}
	return ir.MarshalCanonical(ir.IRObject{
		"scenario_name": ir.IRString(scenarioName),
		"outputs":       outputs,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check expectations.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
