package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/sqlcond/internal/ir"
)

func TestValidate_Portable(t *testing.T) {
	result := Validate(Or(
		Eq("status", ir.String("active")),
		And(In("id", ir.Int(1), ir.Int(2)), Like("name", ir.String("a%"))),
	))
	assert.True(t, result.IsPortable)
	assert.Empty(t, result.Warnings)

	assert.True(t, Validate(Wildcard{}).IsPortable)
	assert.True(t, Validate(nil).IsPortable)
}

func TestValidate_Warnings(t *testing.T) {
	tests := []struct {
		name string
		c    Condition
		want string
	}{
		{"xor", Xor(Eq("a", ir.Int(1))), "$: XOR is only supported by MySQL"},
		{"float value", Gt("price", ir.Float(9.99)), "$: float value compared with GT"},
		{"float in set", In("p", ir.Int(1), ir.Float(2.5)), "$: float set compared with IN"},
		{"nested wildcard", And(Eq("a", ir.Int(1)), Wildcard{}), "$.children[1]: wildcard inside a group"},
		{"like pattern", NLike("n", ir.Int(5)), "$: NLIKE pattern is int, not a string"},
		{"custom operator", Leaf{Op: "ILIKE"}, `$: operator "ILIKE" is not built in`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.c)
			assert.False(t, result.IsPortable)
			if assert.NotEmpty(t, result.Warnings) {
				assert.Contains(t, result.Warnings[0], tt.want)
			}
		})
	}
}
