package condition

import (
	"fmt"

	"github.com/roach88/sqlcond/internal/grammar"
	"github.com/roach88/sqlcond/internal/ir"
)

func compare(op Operator, key string, v ir.Scalar) Leaf {
	return Leaf{Op: op, Fields: Fields{
		grammar.RoleKey:   ir.String(key),
		grammar.RoleValue: v,
	}}
}

func between(op Operator, key string, lower, upper ir.Scalar) Leaf {
	return Leaf{Op: op, Fields: Fields{
		grammar.RoleKey:   ir.String(key),
		grammar.RoleLower: lower,
		grammar.RoleUpper: upper,
	}}
}

func membership(op Operator, key string, set []ir.Scalar) Leaf {
	return Leaf{Op: op, Fields: Fields{
		grammar.RoleKey: ir.String(key),
		grammar.RoleSet: ir.ListOf(set...),
	}}
}

// Eq matches key = v.
func Eq(key string, v ir.Scalar) Leaf { return compare(OpEQ, key, v) }

// Not matches key != v.
func Not(key string, v ir.Scalar) Leaf { return compare(OpNOT, key, v) }

// Lt matches key < v.
func Lt(key string, v ir.Scalar) Leaf { return compare(OpLT, key, v) }

// Lte matches key <= v.
func Lte(key string, v ir.Scalar) Leaf { return compare(OpLTE, key, v) }

// Gt matches key > v.
func Gt(key string, v ir.Scalar) Leaf { return compare(OpGT, key, v) }

// Gte matches key >= v.
func Gte(key string, v ir.Scalar) Leaf { return compare(OpGTE, key, v) }

// Like matches key against the SQL LIKE pattern v.
func Like(key string, v ir.Scalar) Leaf { return compare(OpLIKE, key, v) }

// NLike is the negation of Like.
func NLike(key string, v ir.Scalar) Leaf { return compare(OpNLIKE, key, v) }

// Range matches lower <= key <= upper.
func Range(key string, lower, upper ir.Scalar) Leaf { return between(OpRANGE, key, lower, upper) }

// XRange matches lower < key < upper.
func XRange(key string, lower, upper ir.Scalar) Leaf { return between(OpXRANGE, key, lower, upper) }

// NRange is the negation of Range.
func NRange(key string, lower, upper ir.Scalar) Leaf { return between(OpNRANGE, key, lower, upper) }

// NXRange is the negation of XRange.
func NXRange(key string, lower, upper ir.Scalar) Leaf {
	return between(OpNXRANGE, key, lower, upper)
}

// In matches key against set. An empty set builds a Leaf the compiler rejects.
func In(key string, set ...ir.Scalar) Leaf { return membership(OpIN, key, set) }

// NotIn is the negation of In.
func NotIn(key string, set ...ir.Scalar) Leaf { return membership(OpNIN, key, set) }

// IsNull matches rows where key is NULL.
func IsNull(key string) Leaf {
	return Leaf{Op: OpISNULL, Fields: Fields{grammar.RoleKey: ir.String(key)}}
}

// NotNull matches rows where key is not NULL.
func NotNull(key string) Leaf {
	return Leaf{Op: OpNISNULL, Fields: Fields{grammar.RoleKey: ir.String(key)}}
}

// And matches when every child matches.
func And(children ...Condition) Group { return Group{Op: CombineAnd, Children: children} }

// Or matches when any child matches.
func Or(children ...Condition) Group { return Group{Op: CombineOr, Children: children} }

// Xor combines children with the XOR joiner, which only MySQL executes.
func Xor(children ...Condition) Group { return Group{Op: CombineXor, Children: children} }

// All combines a bare sequence of conditions. The default combinator is AND.
func All(children ...Condition) Group {
	return And(children...)
}

// NewLeaf builds a Leaf from loosely typed fields, such as decoded JSON.
// Every value is converted with ir.FromAny; the set role must be a list of
// scalars and every other role a scalar. Non-scalar values fail here rather
// than at compile time.
func NewLeaf(op Operator, fields map[string]any) (Leaf, error) {
	if op == "" {
		return Leaf{}, fmt.Errorf("empty operator: %w", ErrUnknownOperator)
	}
	out := make(Fields, len(fields))
	for name, raw := range fields {
		role := grammar.Role(name)
		if !grammar.ValidRoles[role] {
			return Leaf{}, fmt.Errorf("unknown field %q", name)
		}
		v, err := ir.FromAny(raw)
		if err != nil {
			return Leaf{}, fmt.Errorf("field %q: %w", name, err)
		}
		if err := checkRole(role, v); err != nil {
			return Leaf{}, fmt.Errorf("field %q: %w", name, err)
		}
		out[role] = v
	}
	return Leaf{Op: op, Fields: out}, nil
}

// checkRole enforces the scalar shape of a role's value.
func checkRole(role grammar.Role, v ir.Value) error {
	if role != grammar.RoleSet {
		if !ir.IsScalar(v) {
			return fmt.Errorf("%s value: %w", ir.Kind(v), ir.ErrNonScalar)
		}
		return nil
	}
	list, ok := v.(ir.List)
	if !ok {
		return fmt.Errorf("set must be a list, got %s: %w", ir.Kind(v), ir.ErrNonScalar)
	}
	for i, elem := range list {
		if !ir.IsScalar(elem) {
			return fmt.Errorf("set[%d] is %s: %w", i, ir.Kind(elem), ir.ErrNonScalar)
		}
	}
	return nil
}
