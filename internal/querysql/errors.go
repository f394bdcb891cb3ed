package querysql

import (
	"errors"
	"fmt"

	"github.com/roach88/sqlcond/internal/grammar"
)

// Error categories. Use errors.Is to match a category and IsCode to match
// the exact kind.
var (
	ErrUnknownGrammarToken = errors.New("UNKNOWN_GRAMMAR_TOKEN")
	ErrMalformedCondition  = errors.New("MALFORMED_CONDITION")
	ErrRecursionLimit      = errors.New("RECURSION_LIMIT_EXCEEDED")
)

// Code identifies the exact kind of compile failure.
type Code string

const (
	CodeUnknownGrammarToken Code = "UNKNOWN_GRAMMAR_TOKEN"
	CodeRecursionLimit      Code = "RECURSION_LIMIT_EXCEEDED"

	// MALFORMED_CONDITION kinds.
	CodeMissingField     Code = "MISSING_FIELD"
	CodeEmptySet         Code = "EMPTY_SET"
	CodeNonScalarValue   Code = "NON_SCALAR_VALUE"
	CodeInvalidOperator  Code = "INVALID_OPERATOR"
	CodeInvalidKey       Code = "INVALID_KEY"
	CodeMalformedGrammar Code = "MALFORMED_GRAMMAR"
	CodeUnexpectedField  Code = "UNEXPECTED_FIELD"
)

// Category returns the sentinel error for the code's category.
func (c Code) Category() error {
	switch c {
	case CodeUnknownGrammarToken:
		return ErrUnknownGrammarToken
	case CodeRecursionLimit:
		return ErrRecursionLimit
	default:
		return ErrMalformedCondition
	}
}

// CompileError is returned by Compile. No fragment is produced alongside it.
type CompileError struct {
	Code    Code
	Message string
	Path    string        // node location, e.g. $.children[1].children[0]
	Token   grammar.Token // grammar token involved, if any
}

func (e *CompileError) Error() string {
	kind := string(e.Code)
	if cat := e.Code.Category(); cat == ErrMalformedCondition {
		kind = fmt.Sprintf("%s(%s)", cat, e.Code)
	}
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", kind, e.Message)
	}
	return fmt.Sprintf("%s at %s: %s", kind, e.Path, e.Message)
}

// Is matches the error's category sentinel.
func (e *CompileError) Is(target error) bool {
	return target == e.Code.Category()
}

// IsCode reports whether err is a CompileError of exactly the given code.
func IsCode(err error, code Code) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

func newError(code Code, path string, tok grammar.Token, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
		Token:   tok,
	}
}
