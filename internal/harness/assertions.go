package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/sqlcond/internal/ir"
	"github.com/roach88/sqlcond/internal/querysql"
)

// checkError compares a produced error against the scenario's expectation.
// The expected kind matches the exact code, or MALFORMED_CONDITION for any
// code in that category.
func checkError(result *Result, s *Scenario, err error) {
	if s.Error == "" {
		result.AddError(fmt.Sprintf("unexpected error: %v", err))
		return
	}
	if s.Error == result.Error {
		return
	}
	if s.Error == querysql.ErrMalformedCondition.Error() && querysql.Code(result.Error).Category() == querysql.ErrMalformedCondition && isCompileCode(result.Error) {
		return
	}
	result.AddError(fmt.Sprintf("error: expected %s, got %s (%v)", s.Error, result.Error, err))
}

func isCompileCode(kind string) bool {
	return kind != decodeErrorKind && kind != wildcardErrorKind && kind != "ERROR"
}

// checkFragment compares template and args exactly, after normalizing numbers.
func checkFragment(result *Result, expect *Expect, frag querysql.Fragment) {
	if frag.Template != expect.Template {
		result.AddError(fmt.Sprintf("template:\n  Expected: %q\n  Actual:   %q", expect.Template, frag.Template))
	}

	want := normalizeValues(expect.Args)
	got := normalizeValues(frag.Args)
	if !reflect.DeepEqual(want, got) {
		result.AddError(fmt.Sprintf("args:\n  Expected: %v\n  Actual:   %v", want, got))
	}
}

// checkRows compares result rows in order. Every expected column must match;
// columns the expectation omits are ignored.
func checkRows(result *Result, expected []map[string]any, actual []map[string]any) {
	if len(expected) != len(actual) {
		result.AddError(fmt.Sprintf("rows: expected %d, got %d%s", len(expected), len(actual), formatRows(actual)))
		return
	}
	for i := range expected {
		for col, want := range expected[i] {
			got, ok := actual[i][col]
			if !ok {
				result.AddError(fmt.Sprintf("rows[%d]: column %q missing", i, col))
				continue
			}
			if !valuesEqual(want, got) {
				result.AddError(fmt.Sprintf("rows[%d].%s: expected %v, got %v", i, col, want, got))
			}
		}
	}
}

func formatRows(rows []map[string]any) string {
	if len(rows) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("\n  Actual rows:")
	for i, r := range rows {
		fmt.Fprintf(&buf, "\n  [%d] %v", i, r)
	}
	return buf.String()
}

// valuesEqual compares two loosely typed scalars. YAML decodes integers as
// int while drivers return int64, so both sides are normalized first.
func valuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}
	return reflect.DeepEqual(normalizeValue(expected), normalizeValue(actual))
}

func normalizeValues(vals []any) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = normalizeValue(v)
	}
	return out
}

// normalizeValue maps any scalar to string, int64, float64 or bool.
// Values that are not scalars are returned unchanged.
func normalizeValue(v any) any {
	if v == nil {
		return nil
	}
	val, err := ir.FromAny(v)
	if err != nil {
		return v
	}
	native, err := ir.Native(val)
	if err != nil {
		return v
	}
	return native
}
