package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/viewmodel"
)

// Normalize converts a projected view into plain JSON-shaped values:
// collections become lists, mutables become {"candidates", "value"} and
// any string equal to a known fact hash becomes "@alias".
func Normalize(v any, aliases map[string]string) any {
	switch x := v.(type) {
	case viewmodel.Value:
		return Normalize(map[string]any(x), aliases)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, elem := range x {
			out[k] = Normalize(elem, aliases)
		}
		return out
	case []viewmodel.Value:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = Normalize(elem, aliases)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = Normalize(elem, aliases)
		}
		return out
	case viewmodel.Mutable:
		candidates := make([]any, 0, x.Len())
		for _, h := range x.Hashes() {
			candidates = append(candidates, Normalize(h, aliases))
		}
		return map[string]any{
			"candidates": candidates,
			"value":      Normalize(x.Value, aliases),
		}
	case string:
		if alias, ok := aliases[x]; ok {
			return "@" + alias
		}
		return x
	default:
		return x
	}
}

// snapshotDocument is the golden file content for a run.
func snapshotDocument(scenarioName string, result *Result) map[string]any {
	snaps := make([]any, len(result.Snapshots))
	for i, s := range result.Snapshots {
		snaps[i] = map[string]any{
			"step":  s.Step,
			"label": s.Label,
			"value": s.Value,
		}
	}
	return map[string]any{
		"scenario_name": scenarioName,
		"snapshots":     snaps,
	}
}

// MarshalSnapshots renders a result's snapshots as canonical JSON.
func MarshalSnapshots(scenarioName string, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(snapshotDocument(scenarioName, result))
}

// RunWithGolden executes a scenario and compares its snapshots against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshots(scenarioName, result)
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
