package harness

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlcond/internal/grammar"
	"github.com/roach88/sqlcond/internal/querysql"
)

// Scenario defines one compile scenario.
// A scenario compiles a condition document against a dialect's grammar and
// checks the rendered template and arguments, or the error it fails with.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dialect selects the built-in grammar table. Defaults to "standard".
	Dialect string `yaml:"dialect,omitempty"`

	// Grammar is an optional YAML or CUE override file extending the
	// dialect table. Relative paths resolve against the scenario file.
	Grammar string `yaml:"grammar,omitempty"`

	// Quote, Encap and MaxDepth configure the compiler.
	Quote    bool `yaml:"quote,omitempty"`
	Encap    bool `yaml:"encap,omitempty"`
	MaxDepth int  `yaml:"max_depth,omitempty"`

	// Condition is the condition document. Missing means Empty.
	Condition any `yaml:"condition"`

	// Add and Remove are applied in order through a filter before the
	// final compile.
	Add    []any `yaml:"add,omitempty"`
	Remove []any `yaml:"remove,omitempty"`

	// Database optionally runs the compiled condition against a fresh
	// SQLite database.
	Database *Database `yaml:"database,omitempty"`

	// Expect specifies the expected output. Exactly one of Expect and
	// Error must be set.
	Expect *Expect `yaml:"expect,omitempty"`

	// Error is the expected compile error code (EMPTY_SET) or category
	// (MALFORMED_CONDITION).
	Error string `yaml:"error,omitempty"`

	table *grammar.Table
}

// Expect specifies the expected compile output.
type Expect struct {
	// Template is compared exactly. An empty template is valid.
	Template string `yaml:"template"`

	// Args are compared after normalizing numbers to int64/float64.
	Args []any `yaml:"args"`

	// Portable, when set, is compared with condition.Validate.
	Portable *bool `yaml:"portable,omitempty"`

	// Rows are the expected result rows when Database is set, in order.
	Rows []map[string]any `yaml:"rows,omitempty"`
}

// Database describes the SQLite fixture a scenario queries.
type Database struct {
	// Schema is a SQL script split on trailing semicolons.
	Schema string `yaml:"schema"`

	// Seed holds INSERT statements run after the schema.
	Seed []string `yaml:"seed,omitempty"`

	// Table, Columns and OrderBy shape the SELECT.
	Table   string   `yaml:"table"`
	Columns []string `yaml:"columns,omitempty"`
	OrderBy []string `yaml:"order_by,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file from fs.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(fs afero.Fs, path string) (*Scenario, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expected:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	table, err := scenarioTable(fs, path, &scenario)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	scenario.table = table

	return &scenario, nil
}

// LoadDir loads every .yaml/.yml scenario directly under dir, sorted by
// file name. Scenario names must be unique.
func LoadDir(fs afero.Fs, dir string) ([]*Scenario, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(info.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, info.Name()))
		}
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(fs, path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: duplicate scenario name %q (first in %s)", path, s.Name, prev)
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative")
	}

	switch {
	case s.Expect == nil && s.Error == "":
		return fmt.Errorf("one of expect or error is required")
	case s.Expect != nil && s.Error != "":
		return fmt.Errorf("expect and error are mutually exclusive")
	}

	if s.Error != "" && !knownErrorKind(s.Error) {
		return fmt.Errorf("unknown error kind %q", s.Error)
	}

	if db := s.Database; db != nil {
		if db.Table == "" {
			return fmt.Errorf("database: table is required")
		}
		if strings.TrimSpace(db.Schema) == "" {
			return fmt.Errorf("database: schema is required")
		}
		if s.Expect == nil {
			return fmt.Errorf("database: expect is required")
		}
		if s.Dialect != "" {
			dialect, err := grammar.NormalizeDialect(s.Dialect)
			if err != nil {
				return err
			}
			if dialect != grammar.DialectSQLite && dialect != grammar.DialectStandard {
				return fmt.Errorf("database: scenarios run on SQLite, dialect %q not supported", s.Dialect)
			}
		}
	}

	return nil
}

// knownErrorKind reports whether kind names a compile error code or category.
func knownErrorKind(kind string) bool {
	switch querysql.Code(kind) {
	case querysql.CodeUnknownGrammarToken,
		querysql.CodeRecursionLimit,
		querysql.CodeMissingField,
		querysql.CodeEmptySet,
		querysql.CodeNonScalarValue,
		querysql.CodeInvalidOperator,
		querysql.CodeInvalidKey,
		querysql.CodeMalformedGrammar,
		querysql.CodeUnexpectedField:
		return true
	}
	return kind == querysql.ErrMalformedCondition.Error() || kind == decodeErrorKind
}

// scenarioTable resolves the dialect table and applies the override file.
func scenarioTable(fs afero.Fs, path string, s *Scenario) (*grammar.Table, error) {
	dialect := s.Dialect
	if dialect == "" {
		dialect = grammar.DialectStandard
	}
	table, err := grammar.ForDialect(dialect)
	if err != nil {
		return nil, err
	}
	if s.Grammar == "" {
		return table, nil
	}

	grammarPath := s.Grammar
	if !filepath.IsAbs(grammarPath) {
		grammarPath = filepath.Join(filepath.Dir(path), grammarPath)
	}

	format, err := grammar.FormatForPath(grammarPath)
	if err != nil {
		return nil, fmt.Errorf("grammar %s: %w", s.Grammar, err)
	}

	data, err := afero.ReadFile(fs, grammarPath)
	if err != nil {
		return nil, fmt.Errorf("grammar %s: %w", s.Grammar, err)
	}
	return grammar.Load(grammarPath, data, format, table)
}
