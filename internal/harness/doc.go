// Package harness runs compile scenarios: YAML files that pair a condition
// document with the SQL fragment it must compile to.
//
// # Scenario Format
//
//	name: in_set_mysql
//	description: "IN expands one placeholder per element"
//	dialect: mysql
//	grammar: overrides.yaml   # optional, relative to the scenario
//	quote: true
//	encap: false
//	condition:
//	  and:
//	    - {op: EQ, key: status, value: active}
//	    - {op: IN, key: id, set: [1, 2, 3]}
//	add:                      # optional, applied through a filter
//	  - {op: ISNULL, key: deleted_at}
//	remove: []
//	expect:
//	  template: "`status` = ? AND `id` IN (?, ?, ?)"
//	  args: [active, 1, 2, 3]
//	  portable: true
//
// A scenario expecting a failure names the error kind instead of expect:
//
//	error: EMPTY_SET
//
// Kinds are compile error codes, the MALFORMED_CONDITION category,
// DECODE_ERROR for documents that do not parse, and WILDCARD_REMOVE for
// removals from a wildcard filter.
//
// # Database Scenarios
//
// A database section runs the compiled condition against a fresh in-memory
// SQLite store and compares the selected rows:
//
//	database:
//	  schema: "CREATE TABLE users (id INTEGER PRIMARY KEY, status TEXT);"
//	  seed: ["INSERT INTO users VALUES (1, 'active')"]
//	  table: users
//	  columns: [id]
//	  order_by: [id]
//	expect:
//	  template: "\"status\" = ?"
//	  args: [active]
//	  rows: [{id: 1}]
//
// # Golden Files
//
// RunWithGolden and AssertGolden compare a canonical JSON snapshot of the
// result with testdata/golden/<name>.golden using goldie. Regenerate with
// go test ./internal/harness -update.
package harness
