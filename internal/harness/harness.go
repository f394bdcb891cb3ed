package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/roach88/sqlcond/internal/condition"
	"github.com/roach88/sqlcond/internal/filter"
	"github.com/roach88/sqlcond/internal/grammar"
	"github.com/roach88/sqlcond/internal/querysql"
	"github.com/roach88/sqlcond/internal/store"
)

// Error kinds reported for failures that are not compile errors.
const (
	decodeErrorKind   = "DECODE_ERROR"
	wildcardErrorKind = "WILDCARD_REMOVE"
)

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Resolve the grammar table and build a compiler
// 2. Parse the condition document and apply add/remove through a filter
// 3. Compare template, args or error kind and portability
// 4. If the scenario has a database, query a fresh in-memory SQLite store
//
// The returned error is reserved for infrastructure failures; expectation
// mismatches are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	table := scenario.table
	if table == nil {
		t, err := scenarioTable(afero.NewOsFs(), "", scenario)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve grammar: %w", err)
		}
		table = t
	}

	opts := []querysql.Option{querysql.WithMaxDepth(scenario.MaxDepth)}
	if scenario.Quote {
		opts = append(opts, querysql.WithQuotedIdentifiers())
	}
	if scenario.Encap {
		opts = append(opts, querysql.WithEncapsulation())
	}
	compiler := querysql.New(table, opts...)

	result := NewResult(scenario.Name)

	cond, frag, err := compileScenario(compiler, scenario)
	if err != nil {
		result.Error = errorKind(err)
		result.Message = err.Error()
		checkError(result, scenario, err)
		return result, nil
	}

	validation := condition.Validate(cond)
	result.Template = frag.Template
	result.Args = frag.Args
	result.Warnings = validation.Warnings

	if scenario.Error != "" {
		result.AddError(fmt.Sprintf("expected error %s, compiled %q", scenario.Error, frag.Template))
		return result, nil
	}
	if scenario.Expect == nil {
		result.AddError("scenario has no expectation")
		return result, nil
	}

	checkFragment(result, scenario.Expect, frag)
	if want := scenario.Expect.Portable; want != nil && *want != validation.IsPortable {
		result.AddError(fmt.Sprintf("portable: expected %t, got %t", *want, validation.IsPortable))
	}

	if scenario.Database != nil {
		rows, err := queryDatabase(context.Background(), table, scenario.Database, cond)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		result.Rows = rows
		checkRows(result, scenario.Expect.Rows, rows)
	}

	return result, nil
}

// compileScenario parses the scenario's documents and returns the final
// condition and its fragment.
func compileScenario(compiler *querysql.Compiler, s *Scenario) (condition.Condition, querysql.Fragment, error) {
	root, err := condition.Parse(s.Condition)
	if err != nil {
		return nil, querysql.Fragment{}, err
	}

	if len(s.Add) == 0 && len(s.Remove) == 0 {
		frag, err := compiler.Compile(root)
		return root, frag, err
	}

	additions, err := parseAll(s.Add, "add")
	if err != nil {
		return nil, querysql.Fragment{}, err
	}
	removals, err := parseAll(s.Remove, "remove")
	if err != nil {
		return nil, querysql.Fragment{}, err
	}

	f, err := filter.New(compiler, root)
	if err != nil {
		return nil, querysql.Fragment{}, err
	}
	if len(additions) > 0 {
		if err := f.Add(additions...); err != nil {
			return nil, querysql.Fragment{}, err
		}
	}
	if len(removals) > 0 {
		if err := f.Remove(removals...); err != nil {
			return nil, querysql.Fragment{}, err
		}
	}
	return f.Condition(), f.Fragment(), nil
}

func parseAll(docs []any, field string) ([]condition.Condition, error) {
	out := make([]condition.Condition, 0, len(docs))
	for i, doc := range docs {
		c, err := condition.Parse(doc)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// errorKind maps an error to the kind a scenario names in its error field.
func errorKind(err error) string {
	var ce *querysql.CompileError
	if errors.As(err, &ce) {
		return string(ce.Code)
	}
	var de *condition.DecodeError
	if errors.As(err, &de) {
		return decodeErrorKind
	}
	if errors.Is(err, filter.ErrWildcard) {
		return wildcardErrorKind
	}
	return "ERROR"
}

// queryDatabase builds the fixture in a fresh in-memory SQLite store and
// selects the rows matching cond.
func queryDatabase(ctx context.Context, table *grammar.Table, db *Database, cond condition.Condition) ([]map[string]any, error) {
	st, err := store.Open(ctx,
		store.Config{Dialect: grammar.DialectSQLite, Path: ":memory:"},
		store.WithGrammar(table),
		store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if _, err := st.Migrate(ctx, store.SplitStatements(db.Schema)...); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	for i, stmt := range db.Seed {
		if _, err := st.DB().ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("seed[%d]: %w", i, err)
		}
	}

	rows, err := st.Select(ctx, store.SelectQuery{
		Table:   db.Table,
		Columns: db.Columns,
		Where:   cond,
		OrderBy: db.OrderBy,
	})
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}
