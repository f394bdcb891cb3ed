package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/sqlcond/internal/store"
)

// MigrateOutput is the migrate command's payload.
type MigrateOutput struct {
	Statements int `json:"statements"`
	Applied    int `json:"applied"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate <script.sql>...",
		Short: "Apply SQL scripts once",
		Long: `Apply the statements of one or more SQL scripts to the configured
database. Statements end with a semicolon at the end of a line. Each
statement is recorded by checksum and skipped on later runs.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runMigrate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	var statements []string
	for _, path := range paths {
		data, err := afero.ReadFile(opts.Fs, path)
		if err != nil {
			return report(formatter, &inputError{code: ErrCodeReadFailed, err: err})
		}
		stmts := store.SplitStatements(string(data))
		formatter.VerboseLog("Found %d statement(s) in %s", len(stmts), path)
		statements = append(statements, stmts...)
	}

	st, err := opts.openStore(ctx)
	if err != nil {
		return report(formatter, err)
	}
	defer st.Close()

	applied, err := st.Migrate(ctx, statements...)
	if err != nil {
		return report(formatter, err)
	}

	out := MigrateOutput{Statements: len(statements), Applied: applied}
	if formatter.JSON() {
		return formatter.Success(out)
	}
	fmt.Fprintf(formatter.Writer, "%s Applied %d of %d statement(s)\n", okMark, applied, len(statements))
	return nil
}
