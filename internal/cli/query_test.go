package cli

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlcond/internal/testutil"
)

const usersIndex = "CREATE INDEX users_status ON users (status);\n"

// sqliteEnv points the database config at a fresh SQLite file and returns
// an in-memory filesystem holding the users schema.
func sqliteEnv(t *testing.T) afero.Fs {
	t.Helper()

	t.Setenv("SQLCOND_DATABASE_PATH", testutil.SQLitePath(t))
	testutil.UnsetEnv(t, "SQLCOND_DATABASE_DIALECT")

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "schema.sql", testutil.UsersSchema+usersIndex)
	return fs
}

func sqliteOptions(fs afero.Fs, format string) *RootOptions {
	opts := newTestOptions(fs, format)
	opts.Dialect = "sqlite"
	return opts
}

func seedUsers(t *testing.T, fs afero.Fs) {
	t.Helper()

	_, _, err := execute(NewMigrateCommand(sqliteOptions(fs, "json")), "schema.sql")
	require.NoError(t, err)

	rows := []string{
		`{"id": 1, "name": "ada", "status": "active"}`,
		`{"id": 2, "name": "bob", "status": "inactive"}`,
		`{"id": 3, "name": "cy", "status": "active"}`,
	}
	for _, row := range rows {
		writeFile(t, fs, "row.json", row)
		_, _, err := execute(NewInsertCommand(sqliteOptions(fs, "json")), "users", "row.json")
		require.NoError(t, err)
	}
}

func TestMigrateAppliesOnce(t *testing.T) {
	fs := sqliteEnv(t)

	out, _, err := execute(NewMigrateCommand(sqliteOptions(fs, "json")), "schema.sql")
	require.NoError(t, err)
	_, data := decodeResponse(t, out)
	assert.Equal(t, float64(2), data["statements"])
	assert.Equal(t, float64(2), data["applied"])

	out, _, err = execute(NewMigrateCommand(sqliteOptions(fs, "text")), "schema.sql")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied 0 of 2 statement(s)")
}

func TestMigrateMissingScript(t *testing.T) {
	fs := sqliteEnv(t)

	out, _, err := execute(NewMigrateCommand(sqliteOptions(fs, "text")), "nope.sql")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestMigrateBadStatement(t *testing.T) {
	fs := sqliteEnv(t)
	writeFile(t, fs, "bad.sql", "CREATE TABLE a (id INTEGER);\nCREATE TABL b;\n")

	out, _, err := execute(NewMigrateCommand(sqliteOptions(fs, "json")), "bad.sql")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp, _ := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDatabase, resp.Error.Code)
}

func TestInsert(t *testing.T) {
	fs := sqliteEnv(t)
	_, _, err := execute(NewMigrateCommand(sqliteOptions(fs, "json")), "schema.sql")
	require.NoError(t, err)

	writeFile(t, fs, "row.yaml", "id: 7\nname: eve\nstatus: active\n")
	out, _, err := execute(NewInsertCommand(sqliteOptions(fs, "json")), "users", "row.yaml")
	require.NoError(t, err)

	_, data := decodeResponse(t, out)
	assert.Equal(t, "users", data["table"])
	assert.Equal(t, float64(1), data["rows_affected"])
}

func TestInsertErrors(t *testing.T) {
	fs := sqliteEnv(t)
	_, _, err := execute(NewMigrateCommand(sqliteOptions(fs, "json")), "schema.sql")
	require.NoError(t, err)

	tests := []struct {
		name     string
		table    string
		row      string
		exitCode int
		code     string
	}{
		{"unknown table", "accounts", `{"id": 1}`, ExitFailure, ErrCodeNotFound},
		{"unknown column", "users", `{"id": 1, "email": "x"}`, ExitFailure, ErrCodeNotFound},
		{"non-scalar value", "users", `{"id": 1, "name": ["a"]}`, ExitCommandError, ErrCodeDecode},
		{"not an object", "users", `[1, 2]`, ExitCommandError, ErrCodeDecode},
		{"empty row", "users", `{}`, ExitFailure, ErrCodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeFile(t, fs, "row.json", tt.row)

			out, _, err := execute(NewInsertCommand(sqliteOptions(fs, "json")), tt.table, "row.json")
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))

			resp, _ := decodeResponse(t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestSelectJSON(t *testing.T) {
	fs := sqliteEnv(t)
	seedUsers(t, fs)
	writeFile(t, fs, "active.json", `{"op": "EQ", "key": "status", "value": "active"}`)

	out, _, err := execute(NewSelectCommand(sqliteOptions(fs, "json")),
		"users", "--where", "active.json", "--columns", "id,name", "--order-by", "id", "--desc")
	require.NoError(t, err)

	_, data := decodeResponse(t, out)
	assert.Equal(t, float64(2), data["count"])
	assert.Equal(t, []any{
		map[string]any{"id": float64(3), "name": "cy"},
		map[string]any{"id": float64(1), "name": "ada"},
	}, data["rows"])
}

func TestSelectTextWithoutWhere(t *testing.T) {
	fs := sqliteEnv(t)
	seedUsers(t, fs)

	out, _, err := execute(NewSelectCommand(sqliteOptions(fs, "text")),
		"users", "--order-by", "id", "--limit", "2", "--offset", "1")
	require.NoError(t, err)

	assert.Regexp(t, `age\s+id\s+name\s+score\s+status`, out)
	assert.Regexp(t, `NULL\s+2\s+bob\s+NULL\s+inactive`, out)
	assert.Regexp(t, `NULL\s+3\s+cy\s+NULL\s+active`, out)
	assert.NotContains(t, out, "ada")
	assert.Contains(t, out, "2 row(s)")
}

func TestSelectTextColumnOrder(t *testing.T) {
	fs := sqliteEnv(t)
	seedUsers(t, fs)

	out, _, err := execute(NewSelectCommand(sqliteOptions(fs, "text")),
		"users", "--columns", "status,name,id", "--order-by", "id", "--limit", "1")
	require.NoError(t, err)

	assert.Regexp(t, `status\s+name\s+id`, out)
	assert.Regexp(t, `active\s+ada\s+1`, out)
	assert.Contains(t, out, "1 row(s)")
}

func TestSelectNoMatches(t *testing.T) {
	fs := sqliteEnv(t)
	seedUsers(t, fs)
	writeFile(t, fs, "none.yaml", "{op: EQ, key: status, value: banned}\n")

	out, _, err := execute(NewSelectCommand(sqliteOptions(fs, "text")), "users", "--where", "none.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "No rows in users matched.")
}

func TestSelectErrors(t *testing.T) {
	fs := sqliteEnv(t)
	seedUsers(t, fs)
	writeFile(t, fs, "empty_set.json", `{"op": "IN", "key": "id", "set": []}`)

	tests := []struct {
		name     string
		args     []string
		exitCode int
		code     string
	}{
		{"unknown table", []string{"accounts"}, ExitFailure, ErrCodeNotFound},
		{"unknown column", []string{"users", "--columns", "email"}, ExitFailure, ErrCodeNotFound},
		{"offset without limit", []string{"users", "--offset", "1"}, ExitFailure, ErrCodeInvalid},
		{"uncompilable where", []string{"users", "--where", "empty_set.json"}, ExitFailure, ErrCodeCompile},
		{"missing where file", []string{"users", "--where", "nope.json"}, ExitCommandError, ErrCodeReadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(NewSelectCommand(sqliteOptions(fs, "json")), tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))

			resp, _ := decodeResponse(t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestOpenStoreRejectsStandardDialect(t *testing.T) {
	fs := sqliteEnv(t)

	out, _, err := execute(NewSelectCommand(newTestOptions(fs, "json")), "users")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp, _ := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDatabase, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "has no driver")
}
