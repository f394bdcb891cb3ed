package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlcond/internal/condition"
	"github.com/roach88/sqlcond/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Quote  bool
	Encap  bool
	Rebind bool
}

// CompileOutput is the compile command's payload.
type CompileOutput struct {
	Dialect      string `json:"dialect"`
	Grammar      string `json:"grammar"`
	Template     string `json:"template"`
	Args         []any  `json:"args"`
	Placeholders int    `json:"placeholders"`
	Checksum     string `json:"checksum"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <condition-file>",
		Short: "Compile a condition document to a SQL fragment",
		Long: `Compile a JSON or YAML condition document to a parameterized WHERE
fragment for the configured dialect.

Values are never interpolated: the output is a template with '?'
placeholders and the argument list that binds to them.

Examples:
  sqlcond compile where.json
  sqlcond compile where.yaml --dialect mysql --quote
  sqlcond compile where.json --dialect postgres --rebind --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Quote, "quote", false, "quote identifiers with the dialect's quote characters")
	cmd.Flags().BoolVar(&opts.Encap, "encap", false, "wrap the fragment in parentheses")
	cmd.Flags().BoolVar(&opts.Rebind, "rebind", false, "number placeholders as $1, $2, ... (PostgreSQL)")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)
	logger := opts.logger.With("trace_id", formatter.TraceID, "command", "compile")

	table, err := opts.table(opts.config.Dialect)
	if err != nil {
		return report(formatter, err)
	}
	cond, err := loadCondition(opts.Fs, path)
	if err != nil {
		return report(formatter, err)
	}

	compilerOpts := []querysql.Option{querysql.WithMaxDepth(opts.config.MaxDepth)}
	if opts.Quote {
		compilerOpts = append(compilerOpts, querysql.WithQuotedIdentifiers())
	}
	if opts.Encap {
		compilerOpts = append(compilerOpts, querysql.WithEncapsulation())
	}

	frag, err := querysql.New(table, compilerOpts...).Compile(cond)
	if err != nil {
		logger.Debug("compile failed", "file", path, "error", err)
		return report(formatter, err)
	}

	checksum, err := condition.Checksum(cond)
	if err != nil {
		return report(formatter, err)
	}

	out := CompileOutput{
		Dialect:      opts.config.Dialect,
		Grammar:      table.Name(),
		Template:     frag.Template,
		Args:         frag.Args,
		Placeholders: frag.Placeholders(),
		Checksum:     checksum,
	}
	if opts.Rebind {
		out.Template = querysql.Rebind(out.Template)
	}
	logger.Debug("compiled condition", "file", path, "placeholders", out.Placeholders, "checksum", checksum)

	if formatter.JSON() {
		return formatter.Success(out)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s Compiled for %s\n\n", okMark, out.Grammar)
	if out.Template == "" {
		fmt.Fprintln(w, "  (empty: no WHERE clause)")
	} else {
		fmt.Fprintf(w, "  %s\n", out.Template)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Args (%d):\n", len(out.Args))
	for i, arg := range out.Args {
		fmt.Fprintf(w, "  %d: %#v\n", i+1, arg)
	}
	return nil
}
