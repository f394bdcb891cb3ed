package ir

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrNonScalar is returned when a value cannot be bound as a statement argument.
var ErrNonScalar = errors.New("value is not a scalar")

// ErrUnsupportedNumber is returned for numbers that have no exact scalar form
// (NaN, infinities, unsigned values above math.MaxInt64).
var ErrUnsupportedNumber = errors.New("unsupported number")

// Value is a sealed interface over the values a condition can carry.
// String, Int, Float and Bool are scalars. List only appears in set roles.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Scalar is the subset of Value that may be bound as a single statement argument.
type Scalar interface {
	Value
	irScalar()
}

// String is a string scalar.
type String string

func (String) irValue()  {}
func (String) irScalar() {}

// Int is an integer scalar. Always int64.
type Int int64

func (Int) irValue()  {}
func (Int) irScalar() {}

// Float is a floating point scalar. NaN and infinities are never produced by FromAny.
type Float float64

func (Float) irValue()  {}
func (Float) irScalar() {}

// Bool is a boolean scalar.
type Bool bool

func (Bool) irValue()  {}
func (Bool) irScalar() {}

// List is an ordered sequence of values, used for IN/NIN sets.
type List []Value

func (List) irValue() {}

// NewList creates a List from values.
func NewList(vals ...Value) List {
	return List(vals)
}

// ListOf creates a List from scalars.
func ListOf(vals ...Scalar) List {
	out := make(List, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// IsScalar reports whether v is a String, Int, Float or Bool.
func IsScalar(v Value) bool {
	switch v.(type) {
	case String, Int, Float, Bool:
		return true
	default:
		return false
	}
}

// Native converts a scalar to the Go type handed to database/sql drivers.
func Native(v Value) (any, error) {
	switch val := v.(type) {
	case String:
		return string(val), nil
	case Int:
		return int64(val), nil
	case Float:
		return float64(val), nil
	case Bool:
		return bool(val), nil
	case nil:
		return nil, fmt.Errorf("nil: %w", ErrNonScalar)
	default:
		return nil, fmt.Errorf("%T: %w", v, ErrNonScalar)
	}
}

// FromAny converts a loosely typed Go value (as produced by encoding/json or
// yaml.v3 decoding) into a Value. Slices become Lists; nil, maps and other
// composite values are rejected with ErrNonScalar.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		if l, ok := val.(List); ok {
			return fromList(l)
		}
		if f, ok := val.(Float); ok {
			return newFloat(float64(f))
		}
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUint(val)
	case float32:
		return newFloat(float64(val))
	case float64:
		return newFloat(val)
	case json.Number:
		return fromNumber(string(val))
	case []any:
		out := make(List, len(val))
		for i, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	case []string:
		out := make(List, len(val))
		for i, s := range val {
			out[i] = String(s)
		}
		return out, nil
	case []int:
		out := make(List, len(val))
		for i, n := range val {
			out[i] = Int(n)
		}
		return out, nil
	case []int64:
		out := make(List, len(val))
		for i, n := range val {
			out[i] = Int(n)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("null: %w", ErrNonScalar)
	default:
		return nil, fmt.Errorf("%T: %w", v, ErrNonScalar)
	}
}

func fromList(l List) (Value, error) {
	out := make(List, len(l))
	for i, elem := range l {
		conv, err := FromAny(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = conv
	}
	return out, nil
}

func fromUint(n uint64) (Value, error) {
	if n > math.MaxInt64 {
		return nil, fmt.Errorf("%d exceeds int64: %w", n, ErrUnsupportedNumber)
	}
	return Int(n), nil
}

func newFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%v: %w", f, ErrUnsupportedNumber)
	}
	return Float(f), nil
}

// fromNumber keeps integers as Int and everything with a fraction or exponent as Float.
func fromNumber(s string) (Value, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("number %s: %w", s, ErrUnsupportedNumber)
	}
	return newFloat(f)
}

// Kind returns a short lowercase name for the value's type, used in messages.
func Kind(v Value) string {
	switch v.(type) {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case List:
		return "list"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
