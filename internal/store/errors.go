package store

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes store errors.
type ErrorKind string

const (
	// KindNotFound indicates a table or column does not exist.
	KindNotFound ErrorKind = "NOT_FOUND"

	// KindInvalidInput indicates a malformed request (bad identifier,
	// negative limit, empty row, uncompilable condition).
	KindInvalidInput ErrorKind = "INVALID_INPUT"

	// KindDatabase indicates the driver or server failed.
	KindDatabase ErrorKind = "DATABASE"
)

// Error is returned by Store operations.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a store *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

func notFound(op, format string, args ...any) *Error {
	return &Error{Op: op, Kind: KindNotFound, Err: fmt.Errorf(format, args...)}
}

func invalidInput(op string, err error) *Error {
	return &Error{Op: op, Kind: KindInvalidInput, Err: err}
}

func dbError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindDatabase, Err: err}
}
