package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlcond/internal/testutil"
)

func TestMigrate_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	stmts := SplitStatements(testutil.UsersSchema + "CREATE INDEX idx_users_status ON users(status);\n")
	require.Len(t, stmts, 2)

	n, err := s.Migrate(ctx, stmts...)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Migrate(ctx, stmts...)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ok, err := s.TableExists(ctx, "users")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMigrate_StopsOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	n, err := s.Migrate(ctx,
		"CREATE TABLE a (id INTEGER)",
		"CREATE TABLE broken (",
		"CREATE TABLE b (id INTEGER)",
	)
	assert.Equal(t, 1, n)
	assert.True(t, IsKind(err, KindDatabase))

	ok, err := s.TableExists(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSplitStatements(t *testing.T) {
	script := `
-- users
CREATE TABLE users (
	id INTEGER
);

CREATE INDEX i ON users(id);
SELECT 1`
	assert.Equal(t, []string{
		"CREATE TABLE users (\n\tid INTEGER\n)",
		"CREATE INDEX i ON users(id)",
		"SELECT 1",
	}, SplitStatements(script))
}
