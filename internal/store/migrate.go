package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/sqlcond/internal/ir"
)

const migrationsTable = "sqlcond_migrations"

// Migrate applies each statement that has not been applied before and
// returns how many ran. Statements are identified by the checksum of their
// trimmed text, so re-running the same list is a no-op.
//
// Each statement runs on its own; a failure stops the run and leaves the
// earlier statements applied.
func (s *Store) Migrate(ctx context.Context, statements ...string) (int, error) {
	const op = "migrate"

	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
		checksum VARCHAR(64) NOT NULL PRIMARY KEY,
		statement TEXT NOT NULL
	)`); err != nil {
		return 0, dbError(op, fmt.Errorf("create %s: %w", migrationsTable, err))
	}

	applied := 0
	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		sum := ir.Checksum(ir.DomainMigration, []byte(stmt))

		var count int
		row := s.db.QueryRowContext(ctx,
			s.rebind("SELECT COUNT(*) FROM "+migrationsTable+" WHERE checksum = ?"), sum)
		if err := row.Scan(&count); err != nil {
			return applied, dbError(op, fmt.Errorf("statement %d: lookup: %w", i, err))
		}
		if count > 0 {
			s.logger.Debug("migration already applied", "checksum", sum[:12])
			continue
		}

		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return applied, dbError(op, fmt.Errorf("statement %d: %w", i, err))
		}
		if _, err := s.db.ExecContext(ctx,
			s.rebind("INSERT INTO "+migrationsTable+" (checksum, statement) VALUES (?, ?)"), sum, stmt); err != nil {
			return applied, dbError(op, fmt.Errorf("statement %d: record: %w", i, err))
		}
		applied++
		s.logger.Info("migration applied", "checksum", sum[:12])
	}
	return applied, nil
}

// SplitStatements splits a SQL script on semicolons that end a line.
// It is meant for simple DDL files, not arbitrary SQL.
func SplitStatements(script string) []string {
	var (
		out     []string
		current strings.Builder
	)
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSuffix(strings.TrimSpace(current.String()), ";")
			out = append(out, stmt)
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}
