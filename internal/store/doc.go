// Package store executes compiled conditions against MySQL, PostgreSQL or SQLite.
//
// It is the collaborator that splices a querysql.Fragment after WHERE and
// binds its arguments. It owns:
//   - DSN construction per dialect (Config.DSN)
//   - Schema introspection: tables, columns, existence checks
//   - A bounded LRU prepared statement cache keyed by statement checksum
//   - Select and Insert orchestration with identifier validation
//   - Checksum-tracked migrations
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// PostgreSQL statements are rebound from '?' to $n before execution.
package store
