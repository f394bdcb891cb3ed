// Package filter keeps a mutable condition together with its compiled fragment.
package filter

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/sqlcond/internal/condition"
	"github.com/roach88/sqlcond/internal/querysql"
)

// ErrWildcard is returned when removing conditions from a wildcard filter.
// Remove the wildcard itself (or Clear) first.
var ErrWildcard = errors.New("cannot remove conditions from a wildcard filter")

// Compiler turns a condition into a fragment. *querysql.Compiler implements it.
type Compiler interface {
	Compile(c condition.Condition) (querysql.Fragment, error)
}

// state is the top level of a filter: a wildcard, or a combinator over children.
type state struct {
	wildcard bool
	op       condition.Combinator
	children []condition.Condition
}

func (s state) condition() condition.Condition {
	switch {
	case s.wildcard:
		return condition.Wildcard{}
	case len(s.children) == 0:
		return condition.Empty{}
	default:
		return condition.Group{Op: s.op, Children: slices.Clone(s.children)}
	}
}

func (s state) contains(c condition.Condition) bool {
	for _, child := range s.children {
		if condition.Equal(child, c) {
			return true
		}
	}
	return false
}

func emptyState() state {
	return state{op: condition.CombineAnd}
}

// fromCondition splits c into top-level children: Empty has none, a Group
// contributes its children and combinator, anything else is one AND child.
func fromCondition(c condition.Condition) state {
	switch n := condition.Normalize(c).(type) {
	case condition.Empty:
		return emptyState()
	case condition.Wildcard:
		return state{wildcard: true, op: condition.CombineAnd}
	case condition.Group:
		return state{op: n.Op, children: slices.Clone(n.Children)}
	default:
		return state{op: condition.CombineAnd, children: []condition.Condition{n}}
	}
}

// Filter is a condition with a cached fragment that is recompiled on every
// successful mutation.
//
// Thread-safety: all methods serialize on one mutex per Filter.
type Filter struct {
	mu       sync.Mutex
	compiler Compiler
	state    state
	fragment querysql.Fragment
}

// New compiles root and returns a Filter holding it.
func New(compiler Compiler, root condition.Condition) (*Filter, error) {
	f := &Filter{compiler: compiler}
	if err := f.commit(fromCondition(root)); err != nil {
		return nil, err
	}
	return f, nil
}

// Add merges additions into the top-level children.
//
// Adding a Wildcard turns the whole filter into a Wildcard. Adding anything
// else to a Wildcard replaces it with an AND group of the additions.
// Otherwise additions that are not structurally equal to an existing child
// are appended in order. Empty additions contribute nothing.
func (f *Filter) Add(additions ...condition.Condition) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range additions {
		if condition.IsWildcard(a) {
			return f.commit(state{wildcard: true, op: condition.CombineAnd})
		}
	}

	next := state{op: f.state.op, children: slices.Clone(f.state.children)}
	if f.state.wildcard {
		next = emptyState()
	}
	for _, a := range additions {
		a = condition.Normalize(a)
		if condition.IsEmpty(a) || next.contains(a) {
			continue
		}
		next.children = append(next.children, a)
	}
	return f.commit(next)
}

// Remove deletes every top-level child structurally equal to a removal.
//
// Removing from a Wildcard fails with ErrWildcard unless one of the
// removals is the Wildcard itself, which clears the filter. A filter left
// without children is Empty.
func (f *Filter) Remove(removals ...condition.Condition) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.wildcard {
		for _, r := range removals {
			if condition.IsWildcard(r) {
				return f.commit(emptyState())
			}
		}
		if len(removals) == 0 {
			return nil
		}
		return ErrWildcard
	}

	next := state{op: f.state.op}
	for _, child := range f.state.children {
		removed := false
		for _, r := range removals {
			if condition.Equal(child, r) {
				removed = true
				break
			}
		}
		if !removed {
			next.children = append(next.children, child)
		}
	}
	if len(next.children) == 0 {
		next = emptyState()
	}
	return f.commit(next)
}

// Clear resets the filter to Empty.
func (f *Filter) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.commit(emptyState())
}

// Fragment returns a copy of the cached fragment.
func (f *Filter) Fragment() querysql.Fragment {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.fragment.Clone()
}

// Condition returns the current structure. A filter created from a single
// leaf reports it as a one-child AND group.
func (f *Filter) Condition() condition.Condition {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state.condition()
}

// Len returns the number of top-level children. A Wildcard has none.
func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.state.children)
}

// commit compiles next and installs it. On failure nothing changes.
// Caller must hold f.mu.
func (f *Filter) commit(next state) error {
	frag, err := f.compiler.Compile(next.condition())
	if err != nil {
		return fmt.Errorf("recompile filter: %w", err)
	}
	f.state = next
	f.fragment = frag
	return nil
}
