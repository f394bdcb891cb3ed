package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandard_AllOperatorsWellFormed(t *testing.T) {
	table := Standard()

	for _, tok := range []Token{
		"EQ", "NOT", "LT", "LTE", "GT", "GTE", "LIKE", "NLIKE",
		"RANGE", "NRANGE", "XRANGE", "NXRANGE", "IN", "NIN", "ISNULL", "NISNULL",
	} {
		t.Run(string(tok), func(t *testing.T) {
			op, err := table.Operator(tok)
			require.NoError(t, err)
			assert.NoError(t, op.Check())
			assert.Equal(t, RoleKey, op.Args[0], "key always comes first")
		})
	}
}

func TestStandard_RoleOrder(t *testing.T) {
	table := Standard()

	xrange, err := table.Operator("XRANGE")
	require.NoError(t, err)
	assert.Equal(t,
		[]Role{RoleKey, RoleLower, RoleUpper, RoleKey, RoleLower, RoleKey, RoleUpper},
		xrange.Args)

	in, err := table.Operator("IN")
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleKey, RoleSet}, in.Args)

	isNull, err := table.Operator("ISNULL")
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleKey}, isNull.Args)
}

func TestStandard_Joiners(t *testing.T) {
	table := Standard()

	tests := map[Token]string{
		TokenAnd:          " AND ",
		TokenOr:           " OR ",
		TokenXor:          " XOR ",
		TokenEncapLeft:    "(",
		TokenEncapRight:   ")",
		TokenSetDelimiter: ",",
	}
	for tok, want := range tests {
		got, err := table.Literal(tok)
		require.NoError(t, err, tok)
		assert.Equal(t, want, got, tok)
	}
}

func TestResolve_DialectFirst(t *testing.T) {
	table := MySQL()

	left, err := table.Literal(TokenQuoteIdentLeft)
	require.NoError(t, err)
	assert.Equal(t, "`", left)
	assert.True(t, table.IsOverride(TokenQuoteIdentLeft))

	// Not overridden: comes from the standard table unchanged.
	eq, err := table.Operator("EQ")
	require.NoError(t, err)
	assert.Equal(t, "? = ?", eq.Template)
	assert.False(t, table.IsOverride("EQ"))
}

func TestResolve_PartialTables(t *testing.T) {
	standard := map[Token]Entry{
		"EQ":     Operator{Template: "? = ?", Args: []Role{RoleKey, RoleValue}},
		TokenAnd: Literal(" AND "),
	}
	overrides := map[Token]Entry{
		TokenQuoteIdentLeft:  Literal("["),
		TokenQuoteIdentRight: Literal("]"),
	}
	table := NewWithStandard("test", overrides, standard)

	eq, err := table.Operator("EQ")
	require.NoError(t, err)
	assert.Equal(t, standard["EQ"], eq)

	_, ok := table.Resolve("LT")
	assert.False(t, ok)

	_, err = table.Operator("LT")
	assert.ErrorIs(t, err, ErrUnknownToken)

	_, err = table.Literal(TokenOr)
	assert.ErrorIs(t, err, ErrUnknownToken)

	assert.Equal(t,
		[]Token{TokenAnd, "EQ", TokenQuoteIdentLeft, TokenQuoteIdentRight},
		table.Tokens())
}

func TestResolve_WrongKind(t *testing.T) {
	table := Standard()

	_, err := table.Literal("EQ")
	assert.ErrorIs(t, err, ErrWrongEntryKind)

	_, err = table.Operator(TokenAnd)
	assert.ErrorIs(t, err, ErrWrongEntryKind)
}

func TestTable_Immutable(t *testing.T) {
	overrides := map[Token]Entry{
		"EQ": Operator{Template: "? == ?", Args: []Role{RoleKey, RoleValue}},
	}
	table := New("custom", overrides)

	// Mutating the source map after construction has no effect.
	overrides["EQ"] = Literal("broken")
	delete(overrides, "EQ")

	eq, err := table.Operator("EQ")
	require.NoError(t, err)
	assert.Equal(t, "? == ?", eq.Template)

	// Mutating a returned operator has no effect either.
	eq.Args[0] = RoleValue
	again, err := table.Operator("EQ")
	require.NoError(t, err)
	assert.Equal(t, RoleKey, again.Args[0])

	copied := table.Overrides()
	delete(copied, "EQ")
	assert.True(t, table.IsOverride("EQ"))
}

func TestTable_Extend(t *testing.T) {
	base := MySQL()
	extended := base.Extend(map[Token]Entry{
		"ILIKE": Operator{Template: "? LIKE ?", Args: []Role{RoleKey, RoleValue}},
	})

	assert.Equal(t, DialectMySQL, extended.Name())
	assert.True(t, extended.IsOverride(TokenQuoteIdentLeft))
	assert.True(t, extended.IsOverride("ILIKE"))
	assert.False(t, base.IsOverride("ILIKE"))
}

func TestOperator_Check(t *testing.T) {
	tests := []struct {
		name    string
		op      Operator
		wantErr string
	}{
		{"ok", Operator{Template: "? = ?", Args: []Role{RoleKey, RoleValue}}, ""},
		{"too few args", Operator{Template: "? = ?", Args: []Role{RoleKey}}, "2 slot(s) but 1 argument(s)"},
		{"too many args", Operator{Template: "? IS NULL", Args: []Role{RoleKey, RoleValue}}, "1 slot(s) but 2 argument(s)"},
		{"unknown role", Operator{Template: "? = ?", Args: []Role{RoleKey, "other"}}, `unknown role "other"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Check()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestForDialect(t *testing.T) {
	tests := []struct {
		in   string
		want string
		left string
	}{
		{"", DialectStandard, `"`},
		{"mysql", DialectMySQL, "`"},
		{"MariaDB", DialectMySQL, "`"},
		{"postgresql", DialectPostgreSQL, `"`},
		{"pgsql", DialectPostgreSQL, `"`},
		{"sqlite3", DialectSQLite, `"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			table, err := ForDialect(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, table.Name())
			left, err := table.Literal(TokenQuoteIdentLeft)
			require.NoError(t, err)
			assert.Equal(t, tt.left, left)
		})
	}

	_, err := ForDialect("oracle")
	assert.ErrorIs(t, err, ErrUnknownDialect)
}
