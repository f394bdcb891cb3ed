package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlcond/internal/condition"
	"github.com/roach88/sqlcond/internal/grammar"
	"github.com/roach88/sqlcond/internal/ir"
	"github.com/roach88/sqlcond/internal/querysql"
)

func TestBuildSelect(t *testing.T) {
	c := querysql.New(grammar.MySQL(), querysql.WithQuotedIdentifiers())

	query, args, err := BuildSelect(c, SelectQuery{
		Table:   "users",
		Columns: []string{"id", "name"},
		Where:   condition.Or(condition.Eq("status", ir.String("active")), condition.In("id", ir.Int(1), ir.Int(2))),
		OrderBy: []string{"name", "id"},
		Desc:    true,
		Limit:   10,
		Offset:  20,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT `id`, `name` FROM `users` WHERE `status` = ? OR `id` IN (?, ?) ORDER BY `name` DESC, `id` DESC LIMIT 10 OFFSET 20",
		query)
	assert.Equal(t, []any{"active", int64(1), int64(2)}, args)

	query, args, err = BuildSelect(c, SelectQuery{Table: "users"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `users`", query)
	assert.Empty(t, args)
}

func TestBuildSelect_PostgresRebind(t *testing.T) {
	c := querysql.New(grammar.PostgreSQL(), querysql.WithQuotedIdentifiers())
	query, _, err := BuildSelect(c, SelectQuery{
		Table: "users",
		Where: condition.And(condition.Gt("age", ir.Int(1)), condition.Lt("age", ir.Int(9))),
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" WHERE "age" > $1 AND "age" < $2`, querysql.Rebind(query))
}

func TestBuildSelect_Invalid(t *testing.T) {
	c := querysql.New(grammar.SQLite(), querysql.WithQuotedIdentifiers())

	tests := []struct {
		name string
		q    SelectQuery
		want string
	}{
		{"negative limit", SelectQuery{Table: "t", Limit: -1}, "must not be negative"},
		{"offset without limit", SelectQuery{Table: "t", Offset: 5}, "offset requires a limit"},
		{"bad table", SelectQuery{Table: "t; DROP TABLE t"}, "table"},
		{"bad column", SelectQuery{Table: "t", Columns: []string{"a b"}}, "columns"},
		{"bad order", SelectQuery{Table: "t", OrderBy: []string{"1"}}, "order by"},
		{"bad where", SelectQuery{Table: "t", Where: condition.In("x")}, "compile where"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := BuildSelect(c, tt.q)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestBuildInsert(t *testing.T) {
	c := querysql.New(grammar.SQLite(), querysql.WithQuotedIdentifiers())

	query, args, err := BuildInsert(c, "users", map[string]ir.Value{
		"status": ir.String("active"),
		"id":     ir.Int(5),
		"score":  ir.Float(1.5),
	})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("id", "score", "status") VALUES (?, ?, ?)`, query)
	assert.Equal(t, []any{int64(5), 1.5, "active"}, args)

	_, _, err = BuildInsert(c, "users", nil)
	assert.ErrorContains(t, err, "no columns")

	_, _, err = BuildInsert(c, "users", map[string]ir.Value{"tags": ir.NewList()})
	assert.ErrorIs(t, err, ir.ErrNonScalar)
}

func TestSelect(t *testing.T) {
	s := createUsersStore(t)
	ctx := context.Background()

	rows, err := s.Select(ctx, SelectQuery{
		Table:   "users",
		Columns: []string{"id", "name"},
		Where: condition.Or(
			condition.Eq("status", ir.String("banned")),
			condition.And(condition.Eq("status", ir.String("active")), condition.NotNull("age")),
		),
		OrderBy: []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{"id": int64(1), "name": "ada"},
		{"id": int64(4), "name": "dee"},
	}, rows)
}

func TestSelect_Operators(t *testing.T) {
	s := createUsersStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		where condition.Condition
		want  []int64
	}{
		{"wildcard", condition.Wildcard{}, []int64{1, 2, 3, 4}},
		{"in", condition.In("name", ir.String("bob"), ir.String("cy")), []int64{2, 3}},
		{"not in", condition.NotIn("status", ir.String("active")), []int64{2, 4}},
		{"range inclusive", condition.Range("age", ir.Int(17), ir.Int(36)), []int64{1, 2}},
		{"range exclusive", condition.XRange("age", ir.Int(17), ir.Int(52)), []int64{1}},
		{"not range", condition.NRange("age", ir.Int(17), ir.Int(36)), []int64{4}},
		{"not exclusive range", condition.NXRange("age", ir.Int(17), ir.Int(52)), []int64{2, 4}},
		{"like", condition.Like("name", ir.String("%d%")), []int64{1, 4}},
		{"null", condition.IsNull("score"), []int64{2}},
		{"float", condition.Gte("score", ir.Float(7.25)), []int64{1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.Select(ctx, SelectQuery{Table: "users", Columns: []string{"id"}, Where: tt.where, OrderBy: []string{"id"}})
			require.NoError(t, err)

			ids := []int64{}
			for _, r := range rows {
				ids = append(ids, r["id"].(int64))
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSelect_LimitOffset(t *testing.T) {
	s := createUsersStore(t)

	rows, err := s.Select(context.Background(), SelectQuery{
		Table: "users", Columns: []string{"id"}, OrderBy: []string{"id"}, Desc: true, Limit: 2, Offset: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, []Row{{"id": int64(3)}, {"id": int64(2)}}, rows)
}

func TestSelect_Errors(t *testing.T) {
	s := createUsersStore(t)
	ctx := context.Background()

	_, err := s.Select(ctx, SelectQuery{Table: "missing"})
	assert.True(t, IsKind(err, KindNotFound))

	_, err = s.Select(ctx, SelectQuery{Table: "users", Columns: []string{"email"}})
	assert.True(t, IsKind(err, KindNotFound))
	assert.ErrorContains(t, err, `column "email" does not exist`)

	_, err = s.Select(ctx, SelectQuery{Table: "users", Where: condition.In("id")})
	assert.True(t, IsKind(err, KindInvalidInput))
	assert.ErrorIs(t, err, querysql.ErrMalformedCondition)

	_, err = s.Select(ctx, SelectQuery{Table: "users", Where: condition.Eq("email", ir.String("x"))})
	assert.True(t, IsKind(err, KindNotFound))
	assert.ErrorContains(t, err, `column "email" does not exist in "users"`)
}

func TestSelect_UnknownWhereKey(t *testing.T) {
	s := createUsersStore(t)
	ctx := context.Background()

	// A negated comparison on an unknown column would otherwise match every row.
	_, err := s.Select(ctx, SelectQuery{
		Table: "users",
		Where: condition.Or(condition.Eq("status", ir.String("active")), condition.Not("emial", ir.String("x"))),
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
	assert.ErrorContains(t, err, `column "emial"`)

	rows, err := s.Select(ctx, SelectQuery{
		Table:   "users",
		Columns: []string{"id"},
		Where:   condition.Eq("users.id", ir.Int(2)),
	})
	require.NoError(t, err)
	assert.Equal(t, []Row{{"id": int64(2)}}, rows)

	_, err = s.Select(ctx, SelectQuery{Table: "users", Where: condition.Eq("users.email", ir.Int(2))})
	assert.True(t, IsKind(err, KindNotFound))
}

func TestCount(t *testing.T) {
	s := createUsersStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx, "users", condition.Eq("status", ir.String("active")))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Count(ctx, "users", condition.Empty{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, err = s.Count(ctx, "users", condition.Not("emial", ir.String("x")))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
	assert.ErrorContains(t, err, `column "emial" does not exist in "users"`)

	_, err = s.Count(ctx, "missing", condition.Empty{})
	assert.True(t, IsKind(err, KindNotFound))
}

func TestInsert(t *testing.T) {
	s := createUsersStore(t)
	ctx := context.Background()

	n, err := s.Insert(ctx, "users", map[string]ir.Value{
		"id":     ir.Int(5),
		"name":   ir.String("eve"),
		"status": ir.String("active"),
		"score":  ir.Float(4.5),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := s.Count(ctx, "users", condition.Eq("status", ir.String("active")))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	_, err = s.Insert(ctx, "users", map[string]ir.Value{"email": ir.String("x")})
	assert.True(t, IsKind(err, KindNotFound))

	_, err = s.Insert(ctx, "nope", map[string]ir.Value{"id": ir.Int(1)})
	assert.True(t, IsKind(err, KindNotFound))

	_, err = s.Insert(ctx, "users", map[string]ir.Value{})
	assert.True(t, IsKind(err, KindInvalidInput))

	// Primary key conflict surfaces as a database error.
	_, err = s.Insert(ctx, "users", map[string]ir.Value{"id": ir.Int(5), "name": ir.String("x"), "status": ir.String("x")})
	assert.True(t, IsKind(err, KindDatabase))
}

func TestStatementCache(t *testing.T) {
	s := createUsersStore(t)
	ctx := context.Background()
	q := SelectQuery{Table: "users", Where: condition.Eq("id", ir.Int(1))}

	_, err := s.Select(ctx, q)
	require.NoError(t, err)
	before := s.Stats()

	// Same statement text with different values reuses the prepared statement.
	q.Where = condition.Eq("id", ir.Int(2))
	rows, err := s.Select(ctx, q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bob", rows[0]["name"])

	after := s.Stats()
	assert.Equal(t, before.Hits+1, after.Hits)
	assert.Equal(t, before.Misses, after.Misses)
	assert.Equal(t, before.Size, after.Size)

	q.Where = condition.In("id", ir.Int(1), ir.Int(2))
	_, err = s.Select(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, after.Misses+1, s.Stats().Misses)
}

func TestStatementCache_EvictsLeastRecentlyUsed(t *testing.T) {
	s := createUsersStore(t, WithStatementCacheSize(2))
	ctx := context.Background()
	assert.Equal(t, 2, s.Stats().Capacity)

	byID := SelectQuery{Table: "users", Where: condition.Eq("id", ir.Int(1))}
	byStatus := SelectQuery{Table: "users", Where: condition.Eq("status", ir.String("active"))}
	byName := SelectQuery{Table: "users", Where: condition.Eq("name", ir.String("cy"))}

	for _, q := range []SelectQuery{byID, byStatus, byID, byName} {
		_, err := s.Select(ctx, q)
		require.NoError(t, err)
	}

	// byStatus was least recently used when byName arrived.
	stats := s.Stats()
	assert.Equal(t, 1, stats.Evictions)
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 3, stats.Misses)
	assert.Equal(t, 1, stats.Hits)

	_, err := s.Select(ctx, byID)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Stats().Hits)

	_, err = s.Select(ctx, byStatus)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Stats().Misses)
	assert.Equal(t, 2, s.Stats().Evictions)
}

func TestStatementCache_EvictionClosesStatement(t *testing.T) {
	s := createUsersStore(t, WithStatementCacheSize(1))
	ctx := context.Background()

	first, release, err := s.prepare(ctx, "SELECT id FROM users")
	require.NoError(t, err)
	release()
	release() // second call is a no-op

	_, releaseSecond, err := s.prepare(ctx, "SELECT name FROM users")
	require.NoError(t, err)
	defer releaseSecond()

	assert.Equal(t, 1, s.Stats().Evictions)
	assert.Equal(t, 1, s.Stats().Size)

	_, err = first.QueryContext(ctx)
	assert.ErrorContains(t, err, "statement is closed")
}

func TestStatementCache_EvictionWaitsForRelease(t *testing.T) {
	s := createUsersStore(t, WithStatementCacheSize(1))
	ctx := context.Background()

	held, release, err := s.prepare(ctx, "SELECT COUNT(*) FROM users")
	require.NoError(t, err)

	_, releaseOther, err := s.prepare(ctx, "SELECT id FROM users")
	require.NoError(t, err)
	releaseOther()
	assert.Equal(t, 1, s.Stats().Evictions)

	// Evicted while borrowed: still usable until released.
	var n int64
	require.NoError(t, held.QueryRowContext(ctx).Scan(&n))
	assert.Equal(t, int64(4), n)

	release()
	err = held.QueryRowContext(ctx).Scan(&n)
	assert.ErrorContains(t, err, "statement is closed")
}

func TestSelect_Concurrent(t *testing.T) {
	s := createUsersStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := s.Select(ctx, SelectQuery{Table: "users", Where: condition.Eq("status", ir.String("active"))})
			assert.NoError(t, err)
			assert.Len(t, rows, 2)
		}()
	}
	wg.Wait()
}
