package condition

import (
	"github.com/roach88/sqlcond/internal/grammar"
	"github.com/roach88/sqlcond/internal/ir"
)

// Condition is a node in a filter tree.
//
// This is a sealed interface - only types in this package implement it.
// Compilers switch exhaustively over:
//   - Empty: nothing accumulated, renders no WHERE clause
//   - Wildcard: explicit "match everything", renders like Empty
//   - Group: boolean combination of children
//   - Leaf: one comparison
type Condition interface {
	conditionNode() // Marker method - seals interface to this package
}

// Empty is a condition that has accumulated nothing.
type Empty struct{}

func (Empty) conditionNode() {}

// Wildcard matches every row. It is kept distinct from Empty so stored
// filters can tell "match all" apart from "no filter yet".
type Wildcard struct{}

func (Wildcard) conditionNode() {}

// Combinator joins the children of a Group.
type Combinator string

// Combinators.
const (
	CombineAnd Combinator = "AND"
	CombineOr  Combinator = "OR"
	CombineXor Combinator = "XOR"
)

// Token returns the grammar token holding the joiner for c.
func (c Combinator) Token() grammar.Token {
	return grammar.Token(c)
}

// Valid reports whether c is AND, OR or XOR.
func (c Combinator) Valid() bool {
	switch c {
	case CombineAnd, CombineOr, CombineXor:
		return true
	default:
		return false
	}
}

// Group is a boolean combination of child conditions.
// Children are compiled in order; their arguments keep that order.
type Group struct {
	Op       Combinator
	Children []Condition
}

func (Group) conditionNode() {}

// Fields maps argument roles to values. The set role holds an ir.List,
// every other role holds an ir.Scalar.
type Fields map[grammar.Role]ir.Value

// Leaf is a single comparison.
type Leaf struct {
	Op     Operator
	Fields Fields
}

func (Leaf) conditionNode() {}

// Key returns the key field as a string, or "" when absent or not a string.
func (l Leaf) Key() string {
	if s, ok := l.Fields[grammar.RoleKey].(ir.String); ok {
		return string(s)
	}
	return ""
}

// Keys returns the distinct leaf keys of c in first-appearance order.
// Leaves without a string key are skipped.
func Keys(c Condition) []string {
	var keys []string
	seen := make(map[string]bool)
	var walk func(Condition)
	walk = func(c Condition) {
		switch n := Normalize(c).(type) {
		case Group:
			for _, child := range n.Children {
				walk(child)
			}
		case Leaf:
			if k := n.Key(); k != "" && !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	walk(c)
	return keys
}

// Normalize maps nil and pointer forms onto their value forms.
// A nil Condition or nil pointer is Empty.
func Normalize(c Condition) Condition {
	switch n := c.(type) {
	case nil:
		return Empty{}
	case *Empty:
		return Empty{}
	case *Wildcard:
		if n == nil {
			return Empty{}
		}
		return Wildcard{}
	case *Group:
		if n == nil {
			return Empty{}
		}
		return *n
	case *Leaf:
		if n == nil {
			return Empty{}
		}
		return *n
	default:
		return c
	}
}

// IsWildcard reports whether c is a Wildcard in either form.
func IsWildcard(c Condition) bool {
	_, ok := Normalize(c).(Wildcard)
	return ok
}

// IsEmpty reports whether c is Empty, nil, or a Group with no children.
func IsEmpty(c Condition) bool {
	switch n := Normalize(c).(type) {
	case Empty:
		return true
	case Group:
		return len(n.Children) == 0
	default:
		return false
	}
}
