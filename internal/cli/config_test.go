package cli

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlcond/internal/grammar"
	"github.com/roach88/sqlcond/internal/querysql"
	"github.com/roach88/sqlcond/internal/testutil"
)

func TestLoadConfigDefaults(t *testing.T) {
	testutil.UnsetEnv(t, "SQLCOND_DIALECT")
	testutil.UnsetEnv(t, "SQLCOND_MAX_DEPTH")

	cfg, err := LoadConfig(afero.NewMemMapFs(), "")
	require.NoError(t, err)

	assert.Equal(t, grammar.DialectStandard, cfg.Dialect)
	assert.Equal(t, querysql.DefaultMaxDepth, cfg.MaxDepth)
	assert.Empty(t, cfg.Grammar)
	assert.Empty(t, cfg.Database.Dialect)
}

func TestLoadConfigFile(t *testing.T) {
	testutil.UnsetEnv(t, "SQLCOND_DIALECT")
	testutil.UnsetEnv(t, "SQLCOND_DATABASE_HOST")

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/etc/sqlcond/config.yaml", `
dialect: mysql
grammar: overrides.yaml
max_depth: 8
database:
  host: db.local
  port: 3307
  name: app
  user: root
  params:
    charset: utf8mb4
`)

	cfg, err := LoadConfig(fs, "/etc/sqlcond/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Dialect)
	assert.Equal(t, "overrides.yaml", cfg.Grammar)
	assert.Equal(t, 8, cfg.MaxDepth)
	assert.Equal(t, "db.local", cfg.Database.Host)
	assert.Equal(t, 3307, cfg.Database.Port)
	assert.Equal(t, "app", cfg.Database.Name)
	assert.Equal(t, "root", cfg.Database.User)
	assert.Equal(t, map[string]string{"charset": "utf8mb4"}, cfg.Database.Params)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/cfg.yaml", "dialect: mysql\ndatabase:\n  host: file-host\n")

	t.Setenv("SQLCOND_DIALECT", "postgres")
	t.Setenv("SQLCOND_DATABASE_HOST", "env-host")

	cfg, err := LoadConfig(fs, "/cfg.yaml")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Dialect)
	assert.Equal(t, "env-host", cfg.Database.Host)
}

func TestLoadConfigDotEnv(t *testing.T) {
	testutil.UnsetEnv(t, "SQLCOND_GRAMMAR")
	t.Setenv("SQLCOND_DIALECT", "sqlite")

	fs := afero.NewMemMapFs()
	writeFile(t, fs, ".env", "SQLCOND_GRAMMAR=from-dotenv.cue\nSQLCOND_DIALECT=mysql\n")

	cfg, err := LoadConfig(fs, "")
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv.cue", cfg.Grammar)
	// Variables already set win over .env.
	assert.Equal(t, "sqlite", cfg.Dialect)
}

func TestLoadConfigExplicitPathMissing(t *testing.T) {
	_, err := LoadConfig(afero.NewMemMapFs(), "/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestFlagsOverrideConfig(t *testing.T) {
	testutil.UnsetEnv(t, "SQLCOND_DIALECT")

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/cfg.yaml", "dialect: mysql\n")

	opts := newTestOptions(fs, "json")
	opts.ConfigFile = "/cfg.yaml"
	opts.Dialect = "sqlite"

	out, _, err := execute(NewGrammarCommand(opts))
	require.NoError(t, err)

	_, data := decodeResponse(t, out)
	assert.Equal(t, "sqlite", data["name"])
}
