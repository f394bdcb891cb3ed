// Package condition defines the filter tree compiled into WHERE clauses.
//
// A Condition is Empty, Wildcard, a Group of children joined by AND, OR or
// XOR, or a Leaf comparison. Leaves carry their values by argument role
// (key, value, lower, upper, set) so the grammar table decides how and in
// which order they are bound.
//
// Conditions can be built with typed constructors:
//
//	condition.Or(
//	    condition.Eq("k1", ir.String("v1")),
//	    condition.And(condition.Lt("k2", ir.Int(2)), condition.Eq("k3", ir.Bool(true))),
//	)
//
// or decoded from JSON and YAML documents with Parse and Unmarshal.
package condition
