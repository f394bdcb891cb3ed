package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sqlcond/internal/ir"
)

// Snapshot is the part of a Result recorded in golden files.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	Name     string
	Template string
	Args     []any
	Error    string
	Warnings []string
	Rows     []map[string]any
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization. NULL row values are omitted since canonical JSON has no null.
func (s *Snapshot) toCanonicalMap() map[string]any {
	args := make([]any, len(s.Args))
	for i, a := range s.Args {
		args[i] = normalizeValue(a)
	}

	m := map[string]any{
		"name":     s.Name,
		"template": s.Template,
		"args":     args,
	}
	if s.Error != "" {
		m["error"] = s.Error
	}
	if len(s.Warnings) > 0 {
		warnings := make([]any, len(s.Warnings))
		for i, w := range s.Warnings {
			warnings[i] = w
		}
		m["warnings"] = warnings
	}
	if len(s.Rows) > 0 {
		rows := make([]any, len(s.Rows))
		for i, r := range s.Rows {
			row := make(map[string]any, len(r))
			for k, v := range r {
				if v != nil {
					row[k] = normalizeValue(v)
				}
			}
			rows[i] = row
		}
		m["rows"] = rows
	}
	return m
}

// SnapshotOf extracts the golden fields from a result.
func SnapshotOf(result *Result) Snapshot {
	return Snapshot{
		Name:     result.Name,
		Template: result.Template,
		Args:     result.Args,
		Error:    result.Error,
		Warnings: result.Warnings,
		Rows:     result.Rows,
	}
}

// MarshalSnapshot returns the canonical JSON recorded for result.
func MarshalSnapshot(result *Result) ([]byte, error) {
	snapshot := SnapshotOf(result)
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
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

// AssertGolden compares the given result's snapshot against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
