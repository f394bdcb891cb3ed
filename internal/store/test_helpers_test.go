package store

import (
	"context"
	"testing"

	"github.com/roach88/sqlcond/internal/grammar"
	"github.com/roach88/sqlcond/internal/testutil"
)

// createTestStore creates a new SQLite store in a temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Dialect: grammar.DialectSQLite, Path: testutil.SQLitePath(t)}, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createUsersStore creates a store with a populated users table.
func createUsersStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := createTestStore(t, opts...)
	ctx := context.Background()

	if _, err := s.Migrate(ctx, SplitStatements(testutil.UsersSchema)...); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	for _, r := range testutil.UsersSeed {
		if _, err := s.DB().ExecContext(ctx, r); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
	return s
}
