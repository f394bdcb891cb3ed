package condition

import (
	"fmt"

	"github.com/roach88/sqlcond/internal/grammar"
	"github.com/roach88/sqlcond/internal/ir"
)

// ValidationResult contains portability analysis of a condition.
//
// A portable condition compiles to SQL that behaves the same on MySQL,
// PostgreSQL and SQLite. Non-portable conditions still compile; warnings
// tell callers which dialects may disagree.
type ValidationResult struct {
	// IsPortable is true when no warnings were raised.
	IsPortable bool

	// Warnings lists non-portable features, each prefixed with the node path.
	Warnings []string
}

// Validate checks c against the portability rules:
//  1. XOR is a MySQL-only joiner
//  2. Float comparisons depend on each engine's rounding
//  3. A Wildcard nested in a group renders nothing and is likely a mistake
//  4. LIKE patterns must be strings
//  5. Operators outside the built-in set need a grammar override
//
// Validate is a pure function with no side effects.
func Validate(c Condition) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateNode(c, "$", false)

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateNode(c Condition, path string, nested bool) {
	switch n := Normalize(c).(type) {
	case Empty:
	case Wildcard:
		if nested {
			v.addWarning("%s: wildcard inside a group renders no SQL - use it only at the top level", path)
		}
	case Group:
		if n.Op == CombineXor {
			v.addWarning("%s: XOR is only supported by MySQL", path)
		}
		for i, child := range n.Children {
			v.validateNode(child, fmt.Sprintf("%s.children[%d]", path, i), true)
		}
	case Leaf:
		v.validateLeaf(n, path)
	default:
		v.addWarning("%s: unknown condition type %T - portability cannot be verified", path, c)
	}
}

func (v *validator) validateLeaf(l Leaf, path string) {
	if !l.Op.Known() {
		v.addWarning("%s: operator %q is not built in and needs a grammar override", path, l.Op)
	}

	for _, role := range []grammar.Role{grammar.RoleValue, grammar.RoleLower, grammar.RoleUpper, grammar.RoleSet} {
		if hasFloat(l.Fields[role]) {
			v.addWarning("%s: float %s compared with %s - results depend on engine rounding", path, role, l.Op)
		}
	}

	if l.Op == OpLIKE || l.Op == OpNLIKE {
		if val, ok := l.Fields[grammar.RoleValue]; ok {
			if _, isString := val.(ir.String); !isString {
				v.addWarning("%s: %s pattern is %s, not a string", path, l.Op, ir.Kind(val))
			}
		}
	}
}

func hasFloat(val ir.Value) bool {
	switch x := val.(type) {
	case ir.Float:
		return true
	case ir.List:
		for _, elem := range x {
			if hasFloat(elem) {
				return true
			}
		}
	}
	return false
}
