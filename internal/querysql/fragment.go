package querysql

import (
	"strconv"
	"strings"
)

// Fragment is a compiled condition: a template with positional '?'
// placeholders and the arguments bound to them, in order.
//
// Args holds driver values (string, int64, float64, bool).
type Fragment struct {
	Template string
	Args     []any
}

// IsEmpty reports whether the fragment renders no SQL.
func (f Fragment) IsEmpty() bool {
	return f.Template == ""
}

// Where returns " WHERE <template>", or "" for an empty fragment.
func (f Fragment) Where() string {
	if f.IsEmpty() {
		return ""
	}
	return " WHERE " + f.Template
}

// Placeholders counts '?' outside quoted identifiers and string literals.
func (f Fragment) Placeholders() int {
	n := 0
	scanPlaceholders(f.Template, func() { n++ })
	return n
}

// Clone returns a copy that shares no memory with f.
func (f Fragment) Clone() Fragment {
	args := make([]any, len(f.Args))
	copy(args, f.Args)
	return Fragment{Template: f.Template, Args: args}
}

// Rebind rewrites '?' placeholders as $1, $2, ... for PostgreSQL.
// Quoted identifiers and string literals are left untouched.
func Rebind(sql string) string {
	var b strings.Builder
	b.Grow(len(sql) + 8)
	n := 0
	last := 0
	scanPlaceholdersAt(sql, func(i int) {
		n++
		b.WriteString(sql[last:i])
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
		last = i + 1
	})
	b.WriteString(sql[last:])
	return b.String()
}

func scanPlaceholders(sql string, fn func()) {
	scanPlaceholdersAt(sql, func(int) { fn() })
}

// scanPlaceholdersAt calls fn with the byte offset of every '?' that is not
// inside "...", `...` or '...'.
func scanPlaceholdersAt(sql string, fn func(int)) {
	var quote byte
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '`' || ch == '\'':
			quote = ch
		case ch == '?':
			fn(i)
		}
	}
}
