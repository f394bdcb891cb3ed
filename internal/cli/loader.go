package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlcond/internal/condition"
	"github.com/roach88/sqlcond/internal/grammar"
	"github.com/roach88/sqlcond/internal/ir"
	"github.com/roach88/sqlcond/internal/querysql"
	"github.com/roach88/sqlcond/internal/store"
)

// readDocument reads a JSON or YAML document. YAML is chosen by the
// .yaml/.yml extension; everything else is parsed as JSON with numbers
// kept exact.
func readDocument(fs afero.Fs, path string) (any, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &inputError{code: ErrCodeReadFailed, err: err}
	}

	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &inputError{code: ErrCodeDecode, err: fmt.Errorf("%s: %w", path, err)}
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, &inputError{code: ErrCodeDecode, err: fmt.Errorf("%s: %w", path, err)}
		}
		if _, err := dec.Token(); err != io.EOF {
			return nil, &inputError{code: ErrCodeDecode, err: fmt.Errorf("%s: unexpected data after document", path)}
		}
	}
	return doc, nil
}

// loadCondition reads and parses a condition document.
func loadCondition(fs afero.Fs, path string) (condition.Condition, error) {
	doc, err := readDocument(fs, path)
	if err != nil {
		return nil, err
	}
	c, err := condition.Parse(doc)
	if err != nil {
		return nil, &inputError{code: ErrCodeDecode, err: fmt.Errorf("%s: %w", path, err)}
	}
	return c, nil
}

// loadRow reads a flat object of column values.
func loadRow(fs afero.Fs, path string) (map[string]ir.Value, error) {
	doc, err := readDocument(fs, path)
	if err != nil {
		return nil, err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &inputError{code: ErrCodeDecode, err: fmt.Errorf("%s: row must be an object, got %T", path, doc)}
	}

	row := make(map[string]ir.Value, len(obj))
	for col, raw := range obj {
		v, err := ir.FromAny(raw)
		if err == nil && !ir.IsScalar(v) {
			err = ir.ErrNonScalar
		}
		if err != nil {
			return nil, &inputError{code: ErrCodeDecode, err: fmt.Errorf("%s: column %q: %w", path, col, err)}
		}
		row[col] = v
	}
	return row, nil
}

// table resolves the grammar table for dialect, extended by the configured
// override file.
func (o *RootOptions) table(dialect string) (*grammar.Table, error) {
	base, err := grammar.ForDialect(dialect)
	if err != nil {
		return nil, &inputError{code: ErrCodeGrammar, err: err}
	}
	if o.config.Grammar == "" {
		return base, nil
	}

	format, err := grammar.FormatForPath(o.config.Grammar)
	if err != nil {
		return nil, &inputError{code: ErrCodeGrammar, err: err}
	}
	data, err := afero.ReadFile(o.Fs, o.config.Grammar)
	if err != nil {
		return nil, &inputError{code: ErrCodeReadFailed, err: fmt.Errorf("failed to read grammar file: %w", err)}
	}
	t, err := grammar.Load(o.config.Grammar, data, format, base)
	if err != nil {
		return nil, &inputError{code: ErrCodeGrammar, err: err}
	}
	return t, nil
}

// openStore opens the configured database. The database dialect defaults
// to the top-level dialect.
func (o *RootOptions) openStore(ctx context.Context) (*store.Store, error) {
	cfg := o.config.Database
	if cfg.Dialect == "" {
		cfg.Dialect = o.config.Dialect
	}

	t, err := o.table(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg,
		store.WithGrammar(t),
		store.WithMaxDepth(o.config.MaxDepth),
		store.WithLogger(o.logger),
	)
	if err != nil {
		return nil, &inputError{code: ErrCodeDatabase, err: err}
	}
	return st, nil
}

// inputError tags a failure with its CLI error code. Input errors are
// command errors (exit 2).
type inputError struct {
	code string
	err  error
}

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

// report outputs err with the code and exit status it maps to.
func report(f *OutputFormatter, err error) error {
	var ie *inputError
	if errors.As(err, &ie) {
		return f.Fail(ExitCommandError, ie.code, ie.err, nil)
	}

	var ce *querysql.CompileError
	if errors.As(err, &ce) {
		return f.Fail(ExitFailure, ErrCodeCompile, err, compileDetails(ce))
	}

	var se *store.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case store.KindNotFound:
			return f.Fail(ExitFailure, ErrCodeNotFound, err, nil)
		case store.KindInvalidInput:
			return f.Fail(ExitFailure, ErrCodeInvalid, err, nil)
		default:
			return f.Fail(ExitCommandError, ErrCodeDatabase, err, nil)
		}
	}

	return f.Fail(ExitFailure, ErrCodeGeneric, err, nil)
}

func compileDetails(ce *querysql.CompileError) map[string]string {
	details := map[string]string{"kind": string(ce.Code)}
	if ce.Path != "" {
		details["path"] = ce.Path
	}
	if ce.Token != "" {
		details["token"] = string(ce.Token)
	}
	return details
}
