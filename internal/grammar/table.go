package grammar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownToken is returned when a token is in neither the dialect nor the standard table.
var ErrUnknownToken = errors.New("unknown grammar token")

// ErrWrongEntryKind is returned when a token resolves to a literal where an
// operator was expected, or the reverse.
var ErrWrongEntryKind = errors.New("grammar entry has wrong kind")

// Token names an entry in a grammar table.
type Token string

// Joiner and punctuation tokens.
const (
	TokenAnd             Token = "AND"
	TokenOr              Token = "OR"
	TokenXor             Token = "XOR"
	TokenEncapLeft       Token = "encapLeft"
	TokenEncapRight      Token = "encapRight"
	TokenSetDelimiter    Token = "setDelimiter"
	TokenQuoteIdentLeft  Token = "quoteIdentLeft"
	TokenQuoteIdentRight Token = "quoteIdentRight"
)

// Role names an argument slot in an operator template.
type Role string

// Argument roles.
const (
	RoleKey   Role = "key"
	RoleValue Role = "value"
	RoleLower Role = "lower"
	RoleUpper Role = "upper"
	RoleSet   Role = "set"
)

// ValidRoles lists every role an operator definition may reference.
var ValidRoles = map[Role]bool{
	RoleKey:   true,
	RoleValue: true,
	RoleLower: true,
	RoleUpper: true,
	RoleSet:   true,
}

// Entry is a sealed interface: a table entry is either a Literal or an Operator.
type Entry interface {
	grammarEntry() // Marker method - seals interface to this package
}

// Literal is a plain string entry such as a joiner (" AND ") or a quote character.
type Literal string

func (Literal) grammarEntry() {}

// Operator is a rendering rule for a comparison.
//
// Template contains one '?' per element of Args, in order. Each '?' is the slot
// for the role at the same position: key slots receive the column identifier,
// set slots expand to one placeholder per set element, every other slot stays a
// positional placeholder bound to the field value.
type Operator struct {
	Template string
	Args     []Role
}

func (Operator) grammarEntry() {}

// Slots returns the number of '?' characters in the template.
func (o Operator) Slots() int {
	return strings.Count(o.Template, "?")
}

// Check verifies that the template has one slot per argument and that every
// argument is a known role.
func (o Operator) Check() error {
	if n := o.Slots(); n != len(o.Args) {
		return fmt.Errorf("template %q has %d slot(s) but %d argument(s)", o.Template, n, len(o.Args))
	}
	for _, r := range o.Args {
		if !ValidRoles[r] {
			return fmt.Errorf("unknown role %q", r)
		}
	}
	return nil
}

func (o Operator) clone() Operator {
	args := make([]Role, len(o.Args))
	copy(args, o.Args)
	return Operator{Template: o.Template, Args: args}
}

// Table is an immutable two-tier grammar: dialect overrides first, then the
// standard table. A Table is safe for concurrent use.
type Table struct {
	name      string
	overrides map[Token]Entry
	standard  map[Token]Entry
}

// New builds a table named name whose overrides take precedence over the
// standard table. The overrides map is copied; later changes to it have no effect.
func New(name string, overrides map[Token]Entry) *Table {
	return newTable(name, overrides, standardEntries)
}

// NewWithStandard builds a table with an explicit fallback table instead of
// the built-in standard one. Partial tables are useful as test doubles.
func NewWithStandard(name string, overrides, standard map[Token]Entry) *Table {
	return newTable(name, overrides, standard)
}

func newTable(name string, overrides, standard map[Token]Entry) *Table {
	return &Table{
		name:      name,
		overrides: copyEntries(overrides),
		standard:  copyEntries(standard),
	}
}

func copyEntries(in map[Token]Entry) map[Token]Entry {
	out := make(map[Token]Entry, len(in))
	for tok, e := range in {
		if op, ok := e.(Operator); ok {
			e = op.clone()
		}
		out[tok] = e
	}
	return out
}

// Name returns the dialect name the table was built for.
func (t *Table) Name() string {
	return t.name
}

// Resolve looks tok up in the dialect table, then the standard table.
// The second result is false when neither table defines tok.
func (t *Table) Resolve(tok Token) (Entry, bool) {
	if e, ok := t.overrides[tok]; ok {
		return cloneEntry(e), true
	}
	if e, ok := t.standard[tok]; ok {
		return cloneEntry(e), true
	}
	return nil, false
}

func cloneEntry(e Entry) Entry {
	if op, ok := e.(Operator); ok {
		return op.clone()
	}
	return e
}

// Literal resolves tok and requires a Literal entry.
func (t *Table) Literal(tok Token) (string, error) {
	e, ok := t.Resolve(tok)
	if !ok {
		return "", fmt.Errorf("%s: %q: %w", t.name, tok, ErrUnknownToken)
	}
	lit, ok := e.(Literal)
	if !ok {
		return "", fmt.Errorf("%s: %q is an operator, not a literal: %w", t.name, tok, ErrWrongEntryKind)
	}
	return string(lit), nil
}

// Operator resolves tok and requires an Operator entry.
func (t *Table) Operator(tok Token) (Operator, error) {
	e, ok := t.Resolve(tok)
	if !ok {
		return Operator{}, fmt.Errorf("%s: %q: %w", t.name, tok, ErrUnknownToken)
	}
	op, ok := e.(Operator)
	if !ok {
		return Operator{}, fmt.Errorf("%s: %q is a literal, not an operator: %w", t.name, tok, ErrWrongEntryKind)
	}
	return op, nil
}

// Overrides returns a copy of the dialect-specific entries.
func (t *Table) Overrides() map[Token]Entry {
	return copyEntries(t.overrides)
}

// Tokens returns every token the table resolves, sorted.
func (t *Table) Tokens() []Token {
	seen := make(map[Token]bool, len(t.standard)+len(t.overrides))
	for tok := range t.standard {
		seen[tok] = true
	}
	for tok := range t.overrides {
		seen[tok] = true
	}
	toks := make([]Token, 0, len(seen))
	for tok := range seen {
		toks = append(toks, tok)
	}
	sort.Slice(toks, func(i, j int) bool { return toks[i] < toks[j] })
	return toks
}

// IsOverride reports whether tok is defined by the dialect table itself.
func (t *Table) IsOverride(tok Token) bool {
	_, ok := t.overrides[tok]
	return ok
}

// Extend returns a new table with the same name and fallback whose overrides
// are t's overrides plus entries. entries win on conflict. t is unchanged.
func (t *Table) Extend(entries map[Token]Entry) *Table {
	merged := copyEntries(t.overrides)
	for tok, e := range copyEntries(entries) {
		merged[tok] = e
	}
	return &Table{
		name:      t.name,
		overrides: merged,
		standard:  copyEntries(t.standard),
	}
}
