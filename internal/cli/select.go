package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlcond/internal/condition"
	"github.com/roach88/sqlcond/internal/store"
)

// SelectOptions holds flags for the select command.
type SelectOptions struct {
	*RootOptions
	Where   string
	Columns []string
	OrderBy []string
	Desc    bool
	Limit   int
	Offset  int
}

// SelectOutput is the select command's payload.
type SelectOutput struct {
	Table string      `json:"table"`
	Count int         `json:"count"`
	Rows  []store.Row `json:"rows"`
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SelectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "select <table>",
		Short: "Query a table with a condition document",
		Long: `Compile a condition document and run it against the configured database.

The table and every requested column must exist.

Examples:
  sqlcond select users --where active.json
  sqlcond select users --where active.yaml --columns id,name --order-by name --limit 10`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Where, "where", "w", "", "condition document (JSON or YAML)")
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "columns to select (default all)")
	cmd.Flags().StringSliceVar(&opts.OrderBy, "order-by", nil, "columns to order by")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "order descending")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows (0 = no limit)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip (requires --limit)")

	return cmd
}

func runSelect(opts *SelectOptions, table string, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	var where condition.Condition = condition.Empty{}
	if opts.Where != "" {
		c, err := loadCondition(opts.Fs, opts.Where)
		if err != nil {
			return report(formatter, err)
		}
		where = c
	}

	st, err := opts.openStore(ctx)
	if err != nil {
		return report(formatter, err)
	}
	defer st.Close()

	rows, err := st.Select(ctx, store.SelectQuery{
		Table:   table,
		Columns: opts.Columns,
		Where:   where,
		OrderBy: opts.OrderBy,
		Desc:    opts.Desc,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
	if err != nil {
		return report(formatter, err)
	}
	opts.logger.Debug("select finished", "trace_id", formatter.TraceID, "table", table, "rows", len(rows))

	out := SelectOutput{Table: table, Count: len(rows), Rows: rows}
	if formatter.JSON() {
		return formatter.Success(out)
	}
	return writeRows(formatter, out, opts.Columns)
}

// writeRows prints rows as a table. Columns follow --columns when given,
// otherwise they are sorted by name.
func writeRows(f *OutputFormatter, out SelectOutput, columns []string) error {
	w := f.Writer
	if len(out.Rows) == 0 {
		fmt.Fprintf(w, "No rows in %s matched.\n", out.Table)
		return nil
	}

	if len(columns) == 0 {
		for col := range out.Rows[0] {
			columns = append(columns, col)
		}
		sort.Strings(columns)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, row := range out.Rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			if v := row[col]; v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s %d row(s)\n", okMark, out.Count)
	return nil
}
