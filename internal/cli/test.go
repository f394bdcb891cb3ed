package cli

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/sqlcond/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern on the name)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run compile scenarios",
		Long: `Run the YAML compile scenarios in a directory.

Each scenario compiles a condition and checks the template, arguments or
error it expects. When <scenarios-dir>/golden/<name>.golden exists the
scenario's snapshot must also match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing directory, invalid scenario file)

Examples:
  sqlcond test ./scenarios
  sqlcond test ./scenarios --filter "nested-*"
  sqlcond test ./scenarios --update
  sqlcond test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	if ok, err := afero.DirExists(opts.Fs, dir); err != nil || !ok {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed,
			fmt.Errorf("scenarios directory not found: %s", dir), nil)
	}
	if _, err := filepath.Match(opts.Filter, ""); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalid,
			fmt.Errorf("invalid filter pattern %q: %w", opts.Filter, err), nil)
	}

	scenarios, err := harness.LoadDir(opts.Fs, dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDecode, err, nil)
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, s := range scenarios {
		if opts.Filter != "" {
			matched, err := filepath.Match(opts.Filter, s.Name)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeInvalid,
					fmt.Errorf("invalid filter pattern %q: %w", opts.Filter, err), nil)
			}
			if !matched {
				continue
			}
		}

		sr := runScenario(opts, s, filepath.Join(dir, "golden", s.Name+".golden"))
		opts.logger.Debug("scenario finished", "trace_id", formatter.TraceID, "scenario", s.Name, "pass", sr.Pass)
		if !formatter.JSON() {
			writeScenarioText(formatter, opts.Update, sr)
		}

		result.Scenarios = append(result.Scenarios, sr)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	return outputTests(formatter, result)
}

// runScenario runs one scenario and checks or rewrites its golden file.
func runScenario(opts *TestOptions, s *harness.Scenario, goldenPath string) ScenarioResult {
	fail := func(format string, args ...any) ScenarioResult {
		return ScenarioResult{Name: s.Name, Errors: []string{fmt.Sprintf(format, args...)}}
	}

	result, err := harness.Run(s)
	if err != nil {
		return fail("execution failed: %v", err)
	}

	snapshot, err := harness.MarshalSnapshot(result)
	if err != nil {
		return fail("failed to marshal snapshot: %v", err)
	}

	if opts.Update {
		if err := opts.Fs.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			return fail("failed to create golden directory: %v", err)
		}
		if err := afero.WriteFile(opts.Fs, goldenPath, snapshot, 0o644); err != nil {
			return fail("failed to write golden file: %v", err)
		}
	} else if exists, _ := afero.Exists(opts.Fs, goldenPath); exists {
		golden, err := afero.ReadFile(opts.Fs, goldenPath)
		if err != nil {
			return fail("failed to read golden file: %v", err)
		}
		if !bytes.Equal(golden, snapshot) {
			result.AddError("golden file mismatch (run with --update to regenerate)")
		}
	}

	return ScenarioResult{Name: s.Name, Pass: result.Pass, Errors: result.Errors}
}

func writeScenarioText(f *OutputFormatter, updated bool, sr ScenarioResult) {
	w := f.Writer
	if !sr.Pass {
		fmt.Fprintf(w, "%s %s\n", failMark, sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}
	if updated {
		fmt.Fprintf(w, "%s %s (golden updated)\n", okMark, sr.Name)
		return
	}
	fmt.Fprintf(w, "%s %s\n", okMark, sr.Name)
}

// outputTests writes the summary. Any failure exits 1.
func outputTests(f *OutputFormatter, result TestResult) error {
	if f.JSON() {
		if result.Failed > 0 {
			if err := f.encode(CLIResponse{
				Status:  "error",
				Data:    result,
				Error:   &CLIError{Code: ErrCodeTestFailed, Message: fmt.Sprintf("%d scenario(s) failed", result.Failed)},
				TraceID: f.TraceID,
			}); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
		}
		return f.Success(result)
	}

	w := f.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		fmt.Fprintf(w, "%s %d scenario(s) failed\n", failMark, result.Failed)
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	fmt.Fprintf(w, "%s All scenarios passed\n", okMark)
	return nil
}
