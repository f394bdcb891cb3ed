package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlcond/internal/grammar"
)

// GrammarEntry is one resolved table entry.
type GrammarEntry struct {
	Token    string   `json:"token"`
	Kind     string   `json:"kind"` // "literal" | "operator"
	Literal  string   `json:"literal,omitempty"`
	Template string   `json:"template,omitempty"`
	Args     []string `json:"args,omitempty"`
	Override bool     `json:"override"`
}

// GrammarOutput is the grammar command's payload.
type GrammarOutput struct {
	Name    string         `json:"name"`
	Entries []GrammarEntry `json:"entries"`
}

// NewGrammarCommand creates the grammar command.
func NewGrammarCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grammar",
		Short: "Print the resolved grammar table",
		Long: `Print every token of the dialect's grammar table after overrides,
marking entries that come from the dialect or an override file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrammar(rootOpts, cmd)
		},
	}

	return cmd
}

func runGrammar(opts *RootOptions, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	table, err := opts.table(opts.config.Dialect)
	if err != nil {
		return report(formatter, err)
	}

	out := GrammarOutput{Name: table.Name(), Entries: []GrammarEntry{}}
	for _, tok := range table.Tokens() {
		entry, _ := table.Resolve(tok)
		ge := GrammarEntry{Token: string(tok), Override: table.IsOverride(tok)}
		switch e := entry.(type) {
		case grammar.Literal:
			ge.Kind = "literal"
			ge.Literal = string(e)
		case grammar.Operator:
			ge.Kind = "operator"
			ge.Template = e.Template
			for _, role := range e.Args {
				ge.Args = append(ge.Args, string(role))
			}
		}
		out.Entries = append(out.Entries, ge)
	}

	if formatter.JSON() {
		return formatter.Success(out)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Grammar: %s (* = override)\n\n", out.Name)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range out.Entries {
		mark := " "
		if e.Override {
			mark = "*"
		}
		if e.Kind == "literal" {
			fmt.Fprintf(tw, "%s %s\t%q\n", mark, e.Token, e.Literal)
		} else {
			fmt.Fprintf(tw, "%s %s\t%s\t[%s]\n", mark, e.Token, e.Template, strings.Join(e.Args, ", "))
		}
	}
	return tw.Flush()
}
