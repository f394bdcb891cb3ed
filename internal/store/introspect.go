package store

import (
	"context"
	"fmt"

	"github.com/roach88/sqlcond/internal/grammar"
)

// Column describes one table column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// Tables lists user tables in the current database, sorted by name.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	var query string
	switch s.dialect {
	case grammar.DialectSQLite:
		query = `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name`
	case grammar.DialectMySQL:
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = DATABASE()
			ORDER BY table_name`
	default:
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema()
			ORDER BY table_name`
	}

	rows, err := s.queryRows(ctx, query)
	if err != nil {
		return nil, dbError("tables", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, dbError("tables", fmt.Errorf("scan: %w", err))
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("tables", fmt.Errorf("iterate: %w", err))
	}
	return tables, nil
}

// Columns lists the columns of table in declaration order.
// A missing table yields an empty slice.
func (s *Store) Columns(ctx context.Context, table string) ([]Column, error) {
	var query string
	switch s.dialect {
	case grammar.DialectSQLite:
		query = `SELECT name, type, "notnull" FROM pragma_table_info(?) ORDER BY cid`
	case grammar.DialectMySQL:
		query = `SELECT column_name, data_type, is_nullable = 'NO' FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?
			ORDER BY ordinal_position`
	default:
		query = `SELECT column_name, data_type, is_nullable = 'NO' FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ?
			ORDER BY ordinal_position`
	}

	rows, err := s.queryRows(ctx, query, table)
	if err != nil {
		return nil, dbError("columns", err)
	}
	defer rows.Close()

	columns := []Column{}
	for rows.Next() {
		var (
			col     Column
			notNull bool
		)
		if err := rows.Scan(&col.Name, &col.Type, &notNull); err != nil {
			return nil, dbError("columns", fmt.Errorf("scan: %w", err))
		}
		col.Nullable = !notNull
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("columns", fmt.Errorf("iterate: %w", err))
	}
	return columns, nil
}

// TableExists reports whether table exists in the current database.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	tables, err := s.Tables(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if t == table {
			return true, nil
		}
	}
	return false, nil
}

// ColumnExists reports whether table has column.
func (s *Store) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	columns, err := s.Columns(ctx, table)
	if err != nil {
		return false, err
	}
	for _, c := range columns {
		if c.Name == column {
			return true, nil
		}
	}
	return false, nil
}

// columnSet loads the column names of table, failing with KindNotFound
// when the table does not exist.
func (s *Store) columnSet(ctx context.Context, op, table string) (map[string]bool, error) {
	exists, err := s.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound(op, "table %q does not exist", table)
	}

	columns, err := s.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c.Name] = true
	}
	return set, nil
}
