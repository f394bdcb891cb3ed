package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFragment_Placeholders(t *testing.T) {
	tests := []struct {
		template string
		want     int
	}{
		{"", 0},
		{"a = ?", 1},
		{"a IN (?, ?, ?)", 3},
		{`"a?" = ?`, 1},
		{"`a?` = ? AND b = '?'", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fragment{Template: tt.template}.Placeholders(), tt.template)
	}
}

func TestFragment_Clone(t *testing.T) {
	f := Fragment{Template: "a = ?", Args: []any{int64(1)}}
	c := f.Clone()
	c.Args[0] = "x"
	assert.Equal(t, int64(1), f.Args[0])
	assert.False(t, f.IsEmpty())
	assert.True(t, Fragment{}.IsEmpty())
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)",
		Rebind("SELECT * FROM t WHERE a = ? AND b IN (?, ?)"))
	assert.Equal(t, `SELECT "a?" FROM t WHERE b = $1 AND c = '?'`,
		Rebind(`SELECT "a?" FROM t WHERE b = ? AND c = '?'`))
	assert.Equal(t, "SELECT 1", Rebind("SELECT 1"))
}
