// Package querysql compiles condition trees into parameterized SQL fragments.
//
// Templates and joiners come from a grammar.Table, so one compiler serves one
// dialect. The output is a Fragment: a template with positional '?'
// placeholders and its argument list, ready to splice after WHERE and bind.
//
//	c := querysql.New(grammar.MySQL(), querysql.WithQuotedIdentifiers())
//	frag, err := c.Compile(condition.In("status", ir.String("a"), ir.String("b")))
//	// frag.Template == "`status` IN (?, ?)"
//	// frag.Args     == []any{"a", "b"}
package querysql
