package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// UsersSchema creates the users fixture table.
const UsersSchema = `-- users fixture
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	age INTEGER,
	score REAL
);
`

// UsersSeed inserts four users. Ages and scores include NULLs.
var UsersSeed = []string{
	`INSERT INTO users (id, name, status, age, score) VALUES (1, 'ada', 'active', 36, 9.5)`,
	`INSERT INTO users (id, name, status, age, score) VALUES (2, 'bob', 'inactive', 17, NULL)`,
	`INSERT INTO users (id, name, status, age, score) VALUES (3, 'cy', 'active', NULL, 7.25)`,
	`INSERT INTO users (id, name, status, age, score) VALUES (4, 'dee', 'banned', 52, 3)`,
}

// SQLitePath returns a database file path inside a per-test temporary
// directory. The file itself is not created.
func SQLitePath(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// UnsetEnv removes key from the environment for the duration of the test
// and restores its previous value afterwards.
func UnsetEnv(t testing.TB, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}
