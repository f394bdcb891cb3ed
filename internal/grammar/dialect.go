package grammar

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDialect is returned by ForDialect for unsupported dialect names.
var ErrUnknownDialect = errors.New("unknown dialect")

// Dialect names.
const (
	DialectStandard   = "standard"
	DialectMySQL      = "mysql"
	DialectPostgreSQL = "postgres"
	DialectSQLite     = "sqlite"
)

// standardEntries is the dialect-neutral fallback table.
//
// NXRANGE carries its own parentheses: its OR chain would otherwise bind
// against neighbouring AND terms.
var standardEntries = map[Token]Entry{
	TokenAnd:             Literal(" AND "),
	TokenOr:              Literal(" OR "),
	TokenXor:             Literal(" XOR "),
	TokenEncapLeft:       Literal("("),
	TokenEncapRight:      Literal(")"),
	TokenSetDelimiter:    Literal(","),
	TokenQuoteIdentLeft:  Literal(`"`),
	TokenQuoteIdentRight: Literal(`"`),

	"EQ":    Operator{Template: "? = ?", Args: []Role{RoleKey, RoleValue}},
	"NOT":   Operator{Template: "? != ?", Args: []Role{RoleKey, RoleValue}},
	"LT":    Operator{Template: "? < ?", Args: []Role{RoleKey, RoleValue}},
	"LTE":   Operator{Template: "? <= ?", Args: []Role{RoleKey, RoleValue}},
	"GT":    Operator{Template: "? > ?", Args: []Role{RoleKey, RoleValue}},
	"GTE":   Operator{Template: "? >= ?", Args: []Role{RoleKey, RoleValue}},
	"LIKE":  Operator{Template: "? LIKE ?", Args: []Role{RoleKey, RoleValue}},
	"NLIKE": Operator{Template: "? NOT LIKE ?", Args: []Role{RoleKey, RoleValue}},

	"RANGE":  Operator{Template: "? BETWEEN ? AND ?", Args: []Role{RoleKey, RoleLower, RoleUpper}},
	"NRANGE": Operator{Template: "? NOT BETWEEN ? AND ?", Args: []Role{RoleKey, RoleLower, RoleUpper}},
	"XRANGE": Operator{
		Template: "? BETWEEN ? AND ? AND ? != ? AND ? != ?",
		Args:     []Role{RoleKey, RoleLower, RoleUpper, RoleKey, RoleLower, RoleKey, RoleUpper},
	},
	"NXRANGE": Operator{
		Template: "(? NOT BETWEEN ? AND ? OR ? = ? OR ? = ?)",
		Args:     []Role{RoleKey, RoleLower, RoleUpper, RoleKey, RoleLower, RoleKey, RoleUpper},
	},

	"IN":  Operator{Template: "? IN (?)", Args: []Role{RoleKey, RoleSet}},
	"NIN": Operator{Template: "? NOT IN (?)", Args: []Role{RoleKey, RoleSet}},

	"ISNULL":  Operator{Template: "? IS NULL", Args: []Role{RoleKey}},
	"NISNULL": Operator{Template: "? IS NOT NULL", Args: []Role{RoleKey}},
}

// Standard returns a table with no dialect overrides.
func Standard() *Table {
	return New(DialectStandard, nil)
}

// MySQL returns the MySQL table: backtick identifier quoting.
func MySQL() *Table {
	return New(DialectMySQL, map[Token]Entry{
		TokenQuoteIdentLeft:  Literal("`"),
		TokenQuoteIdentRight: Literal("`"),
	})
}

// PostgreSQL returns the PostgreSQL table. It follows the standard table;
// XOR is not available in PostgreSQL and falls through to the standard joiner.
func PostgreSQL() *Table {
	return New(DialectPostgreSQL, map[Token]Entry{
		TokenQuoteIdentLeft:  Literal(`"`),
		TokenQuoteIdentRight: Literal(`"`),
	})
}

// SQLite returns the SQLite table.
func SQLite() *Table {
	return New(DialectSQLite, map[Token]Entry{
		TokenQuoteIdentLeft:  Literal(`"`),
		TokenQuoteIdentRight: Literal(`"`),
	})
}

// NormalizeDialect maps accepted spellings to a canonical dialect name.
func NormalizeDialect(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DialectStandard:
		return DialectStandard, nil
	case DialectMySQL, "mariadb":
		return DialectMySQL, nil
	case DialectPostgreSQL, "postgresql", "pgsql", "pg":
		return DialectPostgreSQL, nil
	case DialectSQLite, "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("%q: %w", name, ErrUnknownDialect)
	}
}

// ForDialect returns the built-in table for a dialect name.
func ForDialect(name string) (*Table, error) {
	dialect, err := NormalizeDialect(name)
	if err != nil {
		return nil, err
	}
	switch dialect {
	case DialectMySQL:
		return MySQL(), nil
	case DialectPostgreSQL:
		return PostgreSQL(), nil
	case DialectSQLite:
		return SQLite(), nil
	default:
		return Standard(), nil
	}
}
