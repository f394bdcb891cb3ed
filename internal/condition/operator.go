package condition

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/sqlcond/internal/grammar"
)

// ErrUnknownOperator is returned when operator text names no known comparison.
var ErrUnknownOperator = errors.New("unknown operator")

// Operator names a comparison. Its value is the grammar token the compiler
// resolves, so tables may define operators beyond the built-in set.
type Operator string

// Built-in operators.
const (
	OpEQ      Operator = "EQ"
	OpNOT     Operator = "NOT"
	OpLT      Operator = "LT"
	OpLTE     Operator = "LTE"
	OpGT      Operator = "GT"
	OpGTE     Operator = "GTE"
	OpRANGE   Operator = "RANGE"
	OpXRANGE  Operator = "XRANGE"
	OpNRANGE  Operator = "NRANGE"
	OpNXRANGE Operator = "NXRANGE"
	OpIN      Operator = "IN"
	OpNIN     Operator = "NIN"
	OpLIKE    Operator = "LIKE"
	OpNLIKE   Operator = "NLIKE"
	OpISNULL  Operator = "ISNULL"
	OpNISNULL Operator = "NISNULL"
)

// Operators lists the built-in operators in declaration order.
var Operators = []Operator{
	OpEQ, OpNOT, OpLT, OpLTE, OpGT, OpGTE,
	OpRANGE, OpXRANGE, OpNRANGE, OpNXRANGE,
	OpIN, OpNIN, OpLIKE, OpNLIKE, OpISNULL, OpNISNULL,
}

// aliases maps symbolic and legacy spellings onto operators.
var aliases = map[string]Operator{
	"=":    OpEQ,
	"!":    OpNOT,
	"!=":   OpNOT,
	"<":    OpLT,
	"<=":   OpLTE,
	">":    OpGT,
	">=":   OpGTE,
	"<>":   OpRANGE,
	"<x>":  OpXRANGE,
	"!<>":  OpNRANGE,
	"!<x>": OpNXRANGE,
	"[]":   OpIN,
	"![]":  OpNIN,
	"~":    OpLIKE,
	"!~":   OpNLIKE,
	":0":   OpISNULL,
	"!:0":  OpNISNULL,
	"IS":   OpISNULL,
	"NIS":  OpNISNULL,
}

var tokenPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Token returns the grammar token for op.
func (op Operator) Token() grammar.Token {
	return grammar.Token(op)
}

// Known reports whether op is one of the built-in operators.
func (op Operator) Known() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// ParseOperator resolves operator names and symbolic aliases, case-insensitively.
func ParseOperator(s string) (Operator, error) {
	text := strings.ToUpper(strings.TrimSpace(s))
	if op := Operator(text); op.Known() {
		return op, nil
	}
	if op, ok := aliases[strings.ToLower(text)]; ok {
		return op, nil
	}
	if op, ok := aliases[text]; ok {
		return op, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownOperator)
}

// parseOperatorToken is ParseOperator extended to grammar-defined tokens:
// bare upper-case identifiers that are not built in are kept as-is and left
// for the grammar table to resolve.
func parseOperatorToken(s string) (Operator, error) {
	op, err := ParseOperator(s)
	if err == nil {
		return op, nil
	}
	if tokenPattern.MatchString(s) {
		return Operator(s), nil
	}
	return "", err
}
