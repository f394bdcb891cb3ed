package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/sqlcond/internal/grammar"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Dialect    string
	Grammar    string

	// Fs is the filesystem commands read from. Defaults to the OS filesystem.
	Fs afero.Fs

	// TraceIDs generates the trace id attached to each command's output
	// and log lines. Defaults to UUIDv7Generator.
	TraceIDs TraceIDGenerator

	config *Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sqlcond CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sqlcond",
		Short: "sqlcond - portable SQL conditions",
		Long: `Compile structured condition documents into parameterized SQL WHERE
fragments for MySQL, PostgreSQL and SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./sqlcond.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect (standard|mysql|postgres|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.Grammar, "grammar", "", "grammar override file (.yaml or .cue)")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewGrammarCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
// Errors that commands already reported carry an ExitError; anything else
// (unknown flags, wrong argument counts) is printed to stderr.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitCommandError
}

// init validates global flags, loads configuration and builds the logger.
// Commands call it too so they work when executed without the root.
func (o *RootOptions) init(cmd *cobra.Command) error {
	if o.config != nil {
		return nil
	}

	if o.Format == "" {
		o.Format = "text"
	}
	if !isValidFormat(o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.TraceIDs == nil {
		o.TraceIDs = UUIDv7Generator{}
	}

	cfg, err := LoadConfig(o.Fs, o.ConfigFile)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}
	if o.Dialect != "" {
		cfg.Dialect = o.Dialect
	}
	if o.Grammar != "" {
		cfg.Grammar = o.Grammar
	}
	if _, err := grammar.NormalizeDialect(cfg.Dialect); err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	o.config = cfg
	o.logger = newLogger(cmd.ErrOrStderr(), o.Verbose)
	return nil
}

// newLogger writes text logs to w: Debug and up with verbose, Warn otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// formatter builds the output formatter for one command run.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
		TraceID:   o.TraceIDs.Generate(),
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
