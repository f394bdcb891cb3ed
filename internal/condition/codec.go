package condition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/sqlcond/internal/grammar"
	"github.com/roach88/sqlcond/internal/ir"
)

// DecodeError reports where a condition document is malformed.
type DecodeError struct {
	Path    string // JSONPath-like location, e.g. $.and[1].value
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Document keys.
const (
	wildcardDoc = "*"
	opKey       = "op"
	typeKey     = "type"
)

// Unmarshal decodes a JSON condition document. Numbers without a fraction
// or exponent decode as ir.Int.
func Unmarshal(data []byte) (Condition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &DecodeError{Path: "$", Message: fmt.Sprintf("invalid JSON: %v", err), Err: err}
	}
	if dec.More() {
		return nil, &DecodeError{Path: "$", Message: "trailing data after document"}
	}
	return Parse(doc)
}

// Parse builds a Condition from a decoded JSON or YAML document:
//
//	null or {}                      Empty
//	"*"                             Wildcard
//	[c1, c2, ...]                   AND group
//	{"and"|"or"|"xor": [...]}       group
//	{"op": "EQ", "key": "k", ...}   leaf; "type" is accepted for "op"
func Parse(doc any) (Condition, error) {
	return parseNode(doc, "$")
}

func parseNode(doc any, path string) (Condition, error) {
	switch n := doc.(type) {
	case nil:
		return Empty{}, nil
	case string:
		if n == wildcardDoc {
			return Wildcard{}, nil
		}
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unexpected string %q, only \"*\" is allowed", n)}
	case []any:
		children, err := parseChildren(n, path)
		if err != nil {
			return nil, err
		}
		return All(children...), nil
	case map[string]any:
		return parseObject(n, path)
	case map[any]any:
		obj := make(map[string]any, len(n))
		for k, v := range n {
			ks, ok := k.(string)
			if !ok {
				return nil, &DecodeError{Path: path, Message: fmt.Sprintf("non-string key %v", k)}
			}
			obj[ks] = v
		}
		return parseObject(obj, path)
	default:
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unexpected %T", doc)}
	}
}

func parseChildren(items []any, path string) ([]Condition, error) {
	children := make([]Condition, 0, len(items))
	for i, item := range items {
		child, err := parseNode(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func parseObject(obj map[string]any, path string) (Condition, error) {
	if len(obj) == 0 {
		return Empty{}, nil
	}

	if len(obj) == 1 {
		for k, v := range obj {
			comb := Combinator(strings.ToUpper(k))
			if !comb.Valid() {
				break
			}
			childPath := path + "." + k
			items, ok := v.([]any)
			if !ok {
				return nil, &DecodeError{Path: childPath, Message: fmt.Sprintf("%s must be a list", k)}
			}
			children, err := parseChildren(items, childPath)
			if err != nil {
				return nil, err
			}
			return Group{Op: comb, Children: children}, nil
		}
	}

	return parseLeaf(obj, path)
}

func parseLeaf(obj map[string]any, path string) (Condition, error) {
	opText, hasOp := obj[opKey]
	if typeText, ok := obj[typeKey]; ok {
		if hasOp {
			return nil, &DecodeError{Path: path, Message: `both "op" and "type" given`}
		}
		opText, hasOp = typeText, true
	}
	if !hasOp {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unrecognized object with keys %v", sortedKeys(obj))}
	}

	text, ok := opText.(string)
	if !ok {
		return nil, &DecodeError{Path: path + "." + opKey, Message: fmt.Sprintf("operator must be a string, got %T", opText)}
	}
	op, err := parseOperatorToken(text)
	if err != nil {
		return nil, &DecodeError{Path: path + "." + opKey, Message: err.Error(), Err: err}
	}

	fields := make(map[string]any, len(obj))
	for _, k := range sortedKeys(obj) {
		if k == opKey || k == typeKey {
			continue
		}
		if !grammar.ValidRoles[grammar.Role(k)] {
			return nil, &DecodeError{Path: path + "." + k, Message: fmt.Sprintf("unknown field %q", k)}
		}
		fields[k] = obj[k]
	}

	leaf, err := NewLeaf(op, fields)
	if err != nil {
		return nil, &DecodeError{Path: path, Message: err.Error(), Err: err}
	}
	return leaf, nil
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Document converts c to the loose document shape accepted by Parse.
// Groups are always written in their explicit {"and": [...]} form.
func Document(c Condition) (any, error) {
	switch n := Normalize(c).(type) {
	case Empty:
		return map[string]any{}, nil
	case Wildcard:
		return wildcardDoc, nil
	case Group:
		if !n.Op.Valid() {
			return nil, fmt.Errorf("invalid combinator %q", n.Op)
		}
		children := make([]any, len(n.Children))
		for i, child := range n.Children {
			doc, err := Document(child)
			if err != nil {
				return nil, fmt.Errorf("children[%d]: %w", i, err)
			}
			children[i] = doc
		}
		return map[string]any{strings.ToLower(string(n.Op)): children}, nil
	case Leaf:
		obj := map[string]any{opKey: string(n.Op)}
		for role, v := range n.Fields {
			native, err := nativeDoc(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", role, err)
			}
			obj[string(role)] = native
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unknown condition type %T", c)
	}
}

func nativeDoc(v ir.Value) (any, error) {
	if list, ok := v.(ir.List); ok {
		out := make([]any, len(list))
		for i, elem := range list {
			native, err := nativeDoc(elem)
			if err != nil {
				return nil, err
			}
			out[i] = native
		}
		return out, nil
	}
	return ir.Native(v)
}

// Marshal encodes c as canonical JSON. Parse(Unmarshal(Marshal(c))) is
// structurally equal to c.
func Marshal(c Condition) ([]byte, error) {
	doc, err := Document(c)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(doc)
}

// Equal reports whether a and b are structurally identical. Strings are
// compared byte for byte, so canonically equivalent Unicode forms differ.
// Groups with an invalid combinator are never equal.
func Equal(a, b Condition) bool {
	switch x := Normalize(a).(type) {
	case Empty:
		_, ok := Normalize(b).(Empty)
		return ok
	case Wildcard:
		_, ok := Normalize(b).(Wildcard)
		return ok
	case Group:
		y, ok := Normalize(b).(Group)
		if !ok || !x.Op.Valid() || x.Op != y.Op || len(x.Children) != len(y.Children) {
			return false
		}
		for i := range x.Children {
			if !Equal(x.Children[i], y.Children[i]) {
				return false
			}
		}
		return true
	case Leaf:
		y, ok := Normalize(b).(Leaf)
		if !ok || x.Op != y.Op || len(x.Fields) != len(y.Fields) {
			return false
		}
		for role, v := range x.Fields {
			w, ok := y.Fields[role]
			if !ok || !valueEqual(v, w) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// valueEqual compares values by kind and content. nil never matches.
func valueEqual(a, b ir.Value) bool {
	if la, ok := a.(ir.List); ok {
		lb, ok := b.(ir.List)
		if !ok || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !valueEqual(la[i], lb[i]) {
				return false
			}
		}
		return true
	}
	return ir.IsScalar(a) && ir.IsScalar(b) && a == b
}

// Checksum returns the content hash of c's canonical encoding. The encoding
// NFC-normalizes strings, so conditions that differ only in Unicode
// normalization share a checksum even though Equal tells them apart.
func Checksum(c Condition) (string, error) {
	data, err := Marshal(c)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	return ir.Checksum(ir.DomainCondition, data), nil
}
