package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/roach88/sqlcond/internal/grammar"
	"github.com/roach88/sqlcond/internal/querysql"
	"github.com/roach88/sqlcond/internal/store"
)

// Config holds the CLI configuration.
type Config struct {
	Dialect  string       `mapstructure:"dialect"`
	Grammar  string       `mapstructure:"grammar"`
	MaxDepth int          `mapstructure:"max_depth"`
	Database store.Config `mapstructure:"database"`
}

// envKeys are the config keys that can be set through SQLCOND_* variables,
// e.g. SQLCOND_DATABASE_HOST for database.host.
var envKeys = []string{
	"dialect",
	"grammar",
	"max_depth",
	"database.dialect",
	"database.host",
	"database.port",
	"database.name",
	"database.user",
	"database.password",
	"database.path",
}

// LoadConfig loads configuration from, in increasing priority: defaults,
// the config file, a .env file and the environment.
//
// With an empty path, ./sqlcond.yaml is used when it exists. An explicit
// path that cannot be read is an error.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	if err := loadDotEnv(fs, ".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sqlcond")
		v.AddConfigPath(".")
	}

	// Set environment variable prefix
	v.SetEnvPrefix("SQLCOND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	// Set defaults
	v.SetDefault("dialect", grammar.DialectStandard)
	v.SetDefault("max_depth", querysql.DefaultMaxDepth)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv sets variables from a .env file that are not already set.
// A missing file is not an error.
func loadDotEnv(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	env, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for key, value := range env {
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}
