package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/sqlcond/internal/condition"
	"github.com/roach88/sqlcond/internal/ir"
	"github.com/roach88/sqlcond/internal/querysql"
)

// SelectQuery describes a single-table read.
//
// Semantics:
//
//	SELECT <columns> FROM <table> WHERE <where> ORDER BY <order_by> [DESC] LIMIT <limit> OFFSET <offset>
//
// Empty Columns selects every column. Limit 0 means no limit; Offset
// requires a Limit.
type SelectQuery struct {
	Table   string
	Columns []string
	Where   condition.Condition
	OrderBy []string
	Desc    bool
	Limit   int
	Offset  int
}

// Row is one result row keyed by column name. []byte values are returned as strings.
type Row map[string]any

// BuildSelect renders q to SQL with '?' placeholders. Identifiers are
// validated and quoted by c; the WHERE clause is c's compiled fragment.
// It does not touch a database.
func BuildSelect(c *querysql.Compiler, q SelectQuery) (string, []any, error) {
	if q.Limit < 0 || q.Offset < 0 {
		return "", nil, errors.New("limit and offset must not be negative")
	}
	if q.Offset > 0 && q.Limit == 0 {
		return "", nil, errors.New("offset requires a limit")
	}

	table, err := c.Identifier(q.Table)
	if err != nil {
		return "", nil, fmt.Errorf("table: %w", err)
	}

	selectClause := "*"
	if len(q.Columns) > 0 {
		cols, err := identifiers(c, q.Columns)
		if err != nil {
			return "", nil, fmt.Errorf("columns: %w", err)
		}
		selectClause = strings.Join(cols, ", ")
	}

	frag, err := c.Compile(q.Where)
	if err != nil {
		return "", nil, fmt.Errorf("compile where: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s", selectClause, table, frag.Where())

	if len(q.OrderBy) > 0 {
		cols, err := identifiers(c, q.OrderBy)
		if err != nil {
			return "", nil, fmt.Errorf("order by: %w", err)
		}
		direction := " ASC"
		if q.Desc {
			direction = " DESC"
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(cols, direction+", "))
		b.WriteString(direction)
	}

	if q.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(q.Offset))
	}

	return b.String(), frag.Args, nil
}

// BuildInsert renders an INSERT for row. Columns are sorted by name so the
// same row shape always yields the same statement.
func BuildInsert(c *querysql.Compiler, table string, row map[string]ir.Value) (string, []any, error) {
	if len(row) == 0 {
		return "", nil, errors.New("row has no columns")
	}
	tbl, err := c.Identifier(table)
	if err != nil {
		return "", nil, fmt.Errorf("table: %w", err)
	}

	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)

	cols, err := identifiers(c, names)
	if err != nil {
		return "", nil, fmt.Errorf("columns: %w", err)
	}

	args := make([]any, len(names))
	for i, name := range names {
		native, err := ir.Native(row[name])
		if err != nil {
			return "", nil, fmt.Errorf("column %q: %w", name, err)
		}
		args[i] = native
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tbl, strings.Join(cols, ", "), placeholders)
	return query, args, nil
}

func identifiers(c *querysql.Compiler, names []string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		ident, err := c.Identifier(name)
		if err != nil {
			return nil, err
		}
		out[i] = ident
	}
	return out, nil
}

// checkWhereKeys rejects condition keys naming columns the table lacks.
// SQLite reads an unknown double-quoted identifier as a string literal,
// so an unchecked key would silently match or drop rows.
// A qualified key is checked by its final segment.
func checkWhereKeys(op, table string, columns map[string]bool, where condition.Condition) error {
	for _, key := range condition.Keys(where) {
		name := key
		if i := strings.LastIndexByte(key, '.'); i >= 0 {
			name = key[i+1:]
		}
		if !columns[name] {
			return notFound(op, "column %q does not exist in %q", key, table)
		}
	}
	return nil
}

// Select checks that the table, the requested columns and the condition
// keys exist, compiles the condition and returns the matching rows.
func (s *Store) Select(ctx context.Context, q SelectQuery) ([]Row, error) {
	const op = "select"

	columns, err := s.columnSet(ctx, op, q.Table)
	if err != nil {
		return nil, err
	}
	for _, name := range append(append([]string{}, q.Columns...), q.OrderBy...) {
		if !columns[name] {
			return nil, notFound(op, "column %q does not exist in %q", name, q.Table)
		}
	}
	if err := checkWhereKeys(op, q.Table, columns, q.Where); err != nil {
		return nil, err
	}

	query, args, err := BuildSelect(s.compiler, q)
	if err != nil {
		return nil, invalidInput(op, err)
	}

	stmt, release, err := s.prepare(ctx, query)
	if err != nil {
		return nil, dbError(op, fmt.Errorf("prepare: %w", err))
	}
	defer release()

	s.logger.Debug("executing select", "table", q.Table, "sql", query, "args", len(args))
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, dbError(op, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, dbError(op, fmt.Errorf("columns: %w", err))
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, dbError(op, fmt.Errorf("scan: %w", err))
		}

		row := make(Row, len(names))
		for i, name := range names {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(op, fmt.Errorf("iterate: %w", err))
	}

	return result, nil
}

// Insert checks that the table and columns exist, inserts row and returns
// the number of rows affected.
func (s *Store) Insert(ctx context.Context, table string, row map[string]ir.Value) (int64, error) {
	const op = "insert"

	columns, err := s.columnSet(ctx, op, table)
	if err != nil {
		return 0, err
	}
	for name := range row {
		if !columns[name] {
			return 0, notFound(op, "column %q does not exist in %q", name, table)
		}
	}

	query, args, err := BuildInsert(s.compiler, table, row)
	if err != nil {
		return 0, invalidInput(op, err)
	}

	stmt, release, err := s.prepare(ctx, query)
	if err != nil {
		return 0, dbError(op, fmt.Errorf("prepare: %w", err))
	}
	defer release()

	s.logger.Debug("executing insert", "table", table, "sql", query)
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, dbError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbError(op, fmt.Errorf("rows affected: %w", err))
	}
	return n, nil
}

// Count returns the number of rows in table matching where.
func (s *Store) Count(ctx context.Context, table string, where condition.Condition) (int64, error) {
	const op = "count"

	columns, err := s.columnSet(ctx, op, table)
	if err != nil {
		return 0, err
	}
	if err := checkWhereKeys(op, table, columns, where); err != nil {
		return 0, err
	}
	tbl, err := s.compiler.Identifier(table)
	if err != nil {
		return 0, invalidInput(op, err)
	}
	frag, err := s.compiler.Compile(where)
	if err != nil {
		return 0, invalidInput(op, err)
	}

	stmt, release, err := s.prepare(ctx, "SELECT COUNT(*) FROM "+tbl+frag.Where())
	if err != nil {
		return 0, dbError(op, fmt.Errorf("prepare: %w", err))
	}
	defer release()
	var n int64
	if err := stmt.QueryRowContext(ctx, frag.Args...).Scan(&n); err != nil {
		return 0, dbError(op, err)
	}
	return n, nil
}

