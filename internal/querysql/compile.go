package querysql

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/sqlcond/internal/condition"
	"github.com/roach88/sqlcond/internal/grammar"
	"github.com/roach88/sqlcond/internal/ir"
)

// DefaultMaxDepth is the deepest group nesting Compile accepts.
const DefaultMaxDepth = 64

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)*$`)

// Compiler compiles conditions to parameterized SQL fragments against one
// grammar table.
//
// CRITICAL: Values are NEVER interpolated - every value is a '?' placeholder.
// Keys are validated against the identifier grammar before they reach the template.
//
// A Compiler holds no mutable state and is safe for concurrent use.
type Compiler struct {
	table       *grammar.Table
	maxDepth    int
	quote       bool
	encapsulate bool
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithMaxDepth sets the group nesting ceiling. Values below 1 keep the default.
func WithMaxDepth(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithQuotedIdentifiers wraps every dot-separated key part in the table's
// quoteIdentLeft/quoteIdentRight literals.
func WithQuotedIdentifiers() Option {
	return func(c *Compiler) {
		c.quote = true
	}
}

// WithEncapsulation wraps the outermost non-empty fragment in
// encapLeft/encapRight, for splicing into a larger expression.
func WithEncapsulation() Option {
	return func(c *Compiler) {
		c.encapsulate = true
	}
}

// New creates a Compiler bound to table.
func New(table *grammar.Table, opts ...Option) *Compiler {
	c := &Compiler{
		table:    table,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table returns the grammar table the compiler resolves against.
func (c *Compiler) Table() *grammar.Table {
	return c.table
}

// Compile converts a condition into a Fragment.
//
// Empty and Wildcard compile to the empty fragment. Group children that are
// groups are parenthesized; children that render nothing are skipped so no
// stray joiners appear. Arguments follow placeholder order exactly.
//
// Compile either returns a complete fragment or a *CompileError, never both.
func (c *Compiler) Compile(cond condition.Condition) (Fragment, error) {
	template, args, err := c.compileNode(cond, "$", 0)
	if err != nil {
		return Fragment{}, err
	}
	if c.encapsulate && template != "" {
		left, right, err := c.encapsulation("$")
		if err != nil {
			return Fragment{}, err
		}
		template = left + template + right
	}
	return Fragment{Template: template, Args: args}, nil
}

func (c *Compiler) compileNode(cond condition.Condition, path string, depth int) (string, []any, error) {
	if depth > c.maxDepth {
		return "", nil, newError(CodeRecursionLimit, path, "",
			"nesting depth %d exceeds limit %d", depth, c.maxDepth)
	}

	switch n := condition.Normalize(cond).(type) {
	case condition.Empty, condition.Wildcard:
		return "", []any{}, nil
	case condition.Group:
		return c.compileGroup(n, path, depth)
	case condition.Leaf:
		return c.compileLeaf(n, path)
	default:
		return "", nil, newError(CodeInvalidOperator, path, "", "unsupported condition type %T", cond)
	}
}

// compileGroup joins the non-empty child fragments with the combinator.
func (c *Compiler) compileGroup(g condition.Group, path string, depth int) (string, []any, error) {
	if !g.Op.Valid() {
		return "", nil, newError(CodeInvalidOperator, path, g.Op.Token(),
			"invalid combinator %q", g.Op)
	}
	joiner, err := c.literal(g.Op.Token(), path)
	if err != nil {
		return "", nil, err
	}

	var parts []string
	args := []any{}
	for i, child := range g.Children {
		childPath := fmt.Sprintf("%s.children[%d]", path, i)
		child = condition.Normalize(child)

		sql, childArgs, err := c.compileNode(child, childPath, depth+1)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		if _, nested := child.(condition.Group); nested {
			left, right, err := c.encapsulation(childPath)
			if err != nil {
				return "", nil, err
			}
			sql = left + sql + right
		}
		parts = append(parts, sql)
		args = append(args, childArgs...)
	}

	return strings.Join(parts, joiner), args, nil
}

// compileLeaf renders the operator template, walking its '?' slots in
// step with the definition's argument roles.
func (c *Compiler) compileLeaf(l condition.Leaf, path string) (string, []any, error) {
	if l.Op == "" {
		return "", nil, newError(CodeInvalidOperator, path, "", "leaf has no operator")
	}
	tok := l.Op.Token()

	def, err := c.table.Operator(tok)
	if err != nil {
		if errors.Is(err, grammar.ErrWrongEntryKind) {
			return "", nil, newError(CodeInvalidOperator, path, tok,
				"%q is a joiner, not an operator", tok)
		}
		return "", nil, newError(CodeUnknownGrammarToken, path, tok,
			"operator %q is not defined in the %s or standard table", tok, c.table.Name())
	}
	if def.Slots() != len(def.Args) {
		return "", nil, newError(CodeMalformedGrammar, path, tok,
			"template %q has %d placeholder(s) for %d argument(s)", def.Template, def.Slots(), len(def.Args))
	}

	if err := c.checkFields(l, def, path); err != nil {
		return "", nil, err
	}

	var (
		b    strings.Builder
		args = []any{}
		slot int
	)
	for i := 0; i < len(def.Template); i++ {
		ch := def.Template[i]
		if ch != '?' {
			b.WriteByte(ch)
			continue
		}
		role := def.Args[slot]
		slot++

		switch role {
		case grammar.RoleKey:
			ident, err := c.Identifier(l.Key())
			if err != nil {
				return "", nil, withPath(err, path, tok)
			}
			b.WriteString(ident)
		case grammar.RoleSet:
			set := l.Fields[role].(ir.List)
			delim, err := c.literal(grammar.TokenSetDelimiter, path)
			if err != nil {
				return "", nil, err
			}
			for j, elem := range set {
				if j > 0 {
					b.WriteString(delim)
					b.WriteByte(' ')
				}
				b.WriteByte('?')
				native, err := ir.Native(elem)
				if err != nil {
					return "", nil, newError(CodeNonScalarValue, path, tok, "set[%d]: %v", j, err)
				}
				args = append(args, native)
			}
		default:
			b.WriteByte('?')
			native, err := ir.Native(l.Fields[role])
			if err != nil {
				return "", nil, newError(CodeNonScalarValue, path, tok, "field %q: %v", role, err)
			}
			args = append(args, native)
		}
	}

	return b.String(), args, nil
}

// checkFields verifies every role the definition needs before anything is
// rendered, and that the leaf carries no field the template would drop.
func (c *Compiler) checkFields(l condition.Leaf, def grammar.Operator, path string) error {
	tok := l.Op.Token()
	seen := make(map[grammar.Role]bool, len(def.Args))
	for _, role := range def.Args {
		if seen[role] {
			continue
		}
		seen[role] = true

		v, ok := l.Fields[role]
		if !ok || v == nil {
			return newError(CodeMissingField, path, tok, "%s requires field %q", l.Op, role)
		}

		switch role {
		case grammar.RoleKey:
			s, isString := v.(ir.String)
			if !isString {
				return newError(CodeInvalidKey, path, tok, "key must be a string, got %s", ir.Kind(v))
			}
			if !identifierPattern.MatchString(string(s)) {
				return newError(CodeInvalidKey, path, tok, "key %q is not a valid identifier", s)
			}
		case grammar.RoleSet:
			set, isList := v.(ir.List)
			if !isList {
				return newError(CodeNonScalarValue, path, tok, "set must be a list, got %s", ir.Kind(v))
			}
			if len(set) == 0 {
				return newError(CodeEmptySet, path, tok, "%s requires a non-empty set", l.Op)
			}
			for i, elem := range set {
				if !ir.IsScalar(elem) {
					return newError(CodeNonScalarValue, path, tok, "set[%d] is %s, not a scalar", i, ir.Kind(elem))
				}
			}
		default:
			if !ir.IsScalar(v) {
				return newError(CodeNonScalarValue, path, tok, "field %q is %s, not a scalar", role, ir.Kind(v))
			}
		}
	}

	var extra []string
	for role := range l.Fields {
		if !seen[role] {
			extra = append(extra, string(role))
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return newError(CodeUnexpectedField, path, tok, "%s does not take field %q", l.Op, extra[0])
	}
	return nil
}

// Identifier validates name against the identifier grammar (name(.name)*)
// and quotes each part when the compiler was built WithQuotedIdentifiers.
func (c *Compiler) Identifier(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", newError(CodeInvalidKey, "", "", "%q is not a valid identifier", name)
	}
	if !c.quote {
		return name, nil
	}

	left, err := c.literal(grammar.TokenQuoteIdentLeft, "")
	if err != nil {
		return "", err
	}
	right, err := c.literal(grammar.TokenQuoteIdentRight, "")
	if err != nil {
		return "", err
	}

	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = left + p + right
	}
	return strings.Join(parts, "."), nil
}

func (c *Compiler) literal(tok grammar.Token, path string) (string, error) {
	lit, err := c.table.Literal(tok)
	if err != nil {
		if errors.Is(err, grammar.ErrWrongEntryKind) {
			return "", newError(CodeMalformedGrammar, path, tok, "%q must be a literal", tok)
		}
		return "", newError(CodeUnknownGrammarToken, path, tok,
			"%q is not defined in the %s or standard table", tok, c.table.Name())
	}
	return lit, nil
}

func (c *Compiler) encapsulation(path string) (string, string, error) {
	left, err := c.literal(grammar.TokenEncapLeft, path)
	if err != nil {
		return "", "", err
	}
	right, err := c.literal(grammar.TokenEncapRight, path)
	if err != nil {
		return "", "", err
	}
	return left, right, nil
}

// withPath fills in the location of errors raised outside the tree walk.
func withPath(err error, path string, tok grammar.Token) error {
	var ce *CompileError
	if errors.As(err, &ce) {
		if ce.Path == "" {
			ce.Path = path
		}
		if ce.Token == "" {
			ce.Token = tok
		}
	}
	return err
}
