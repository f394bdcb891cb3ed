package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlcond/internal/condition"
)

// ValidationOutput holds portability results.
type ValidationOutput struct {
	Portable bool     `json:"portable"`
	Warnings []string `json:"warnings"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <condition-file>",
		Short: "Check a condition for portability",
		Long: `Check a condition document for constructs that behave differently
across MySQL, PostgreSQL and SQLite.

Exit codes:
  0 - Condition is portable
  1 - Condition compiles but is not portable
  2 - Command error (unreadable or malformed file)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	cond, err := loadCondition(opts.Fs, path)
	if err != nil {
		return report(formatter, err)
	}

	result := condition.Validate(cond)
	out := ValidationOutput{Portable: result.IsPortable, Warnings: result.Warnings}

	if formatter.JSON() {
		if !out.Portable {
			if err := formatter.encode(CLIResponse{
				Status: "error",
				Data:   out,
				Error: &CLIError{
					Code:    ErrCodeNotPortable,
					Message: fmt.Sprintf("%d portability warning(s)", len(out.Warnings)),
				},
				TraceID: formatter.TraceID,
			}); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "condition is not portable")
		}
		return formatter.Success(out)
	}

	w := formatter.Writer
	if out.Portable {
		fmt.Fprintf(w, "%s Condition is portable\n", okMark)
		return nil
	}
	for _, warning := range out.Warnings {
		fmt.Fprintf(w, "%s %s\n", warnMark, warning)
	}
	fmt.Fprintf(w, "\n%s %d portability warning(s)\n", failMark, len(out.Warnings))
	return NewExitError(ExitFailure, "condition is not portable")
}
