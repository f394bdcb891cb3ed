package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InsertOutput is the insert command's payload.
type InsertOutput struct {
	Table        string `json:"table"`
	RowsAffected int64  `json:"rows_affected"`
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert <table> <row-file>",
		Short: "Insert one row from a JSON or YAML object",
		Long: `Insert one row into a table of the configured database. The row file
is a flat object mapping column names to scalar values.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runInsert(opts *RootOptions, table, path string, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	row, err := loadRow(opts.Fs, path)
	if err != nil {
		return report(formatter, err)
	}

	st, err := opts.openStore(ctx)
	if err != nil {
		return report(formatter, err)
	}
	defer st.Close()

	n, err := st.Insert(ctx, table, row)
	if err != nil {
		return report(formatter, err)
	}

	out := InsertOutput{Table: table, RowsAffected: n}
	if formatter.JSON() {
		return formatter.Success(out)
	}
	fmt.Fprintf(formatter.Writer, "%s Inserted %d row(s) into %s\n", okMark, n, table)
	return nil
}
