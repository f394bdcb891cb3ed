package store

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/roach88/sqlcond/internal/grammar"
)

// ErrMissingConfig is returned when a required connection field is empty.
var ErrMissingConfig = errors.New("missing connection setting")

// Default ports per dialect.
const (
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
)

// Config describes a database connection.
type Config struct {
	Dialect  string            `mapstructure:"dialect" yaml:"dialect"`
	Host     string            `mapstructure:"host" yaml:"host"`
	Port     int               `mapstructure:"port" yaml:"port"`
	Name     string            `mapstructure:"name" yaml:"name"`
	User     string            `mapstructure:"user" yaml:"user"`
	Password string            `mapstructure:"password" yaml:"password"`
	Path     string            `mapstructure:"path" yaml:"path"`     // SQLite only
	Params   map[string]string `mapstructure:"params" yaml:"params"` // driver parameters
}

// DSN returns the database/sql driver name and data source name.
func (c Config) DSN() (driver, dsn string, err error) {
	dialect, err := grammar.NormalizeDialect(c.Dialect)
	if err != nil {
		return "", "", err
	}

	switch dialect {
	case grammar.DialectMySQL:
		if err := c.require("host", c.Host, "name", c.Name); err != nil {
			return "", "", err
		}
		cfg := mysql.NewConfig()
		cfg.User = c.User
		cfg.Passwd = c.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.port(defaultMySQLPort)))
		cfg.DBName = c.Name
		if len(c.Params) > 0 {
			cfg.Params = make(map[string]string, len(c.Params))
			for k, v := range c.Params {
				cfg.Params[k] = v
			}
		}
		return "mysql", cfg.FormatDSN(), nil

	case grammar.DialectPostgreSQL:
		if err := c.require("host", c.Host, "name", c.Name); err != nil {
			return "", "", err
		}
		u := url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.port(defaultPostgresPort))),
			Path:   "/" + c.Name,
		}
		if c.User != "" {
			if c.Password != "" {
				u.User = url.UserPassword(c.User, c.Password)
			} else {
				u.User = url.User(c.User)
			}
		}
		u.RawQuery = c.query()
		return "postgres", u.String(), nil

	case grammar.DialectSQLite:
		if err := c.require("path", c.Path); err != nil {
			return "", "", err
		}
		dsn := c.Path
		if q := c.query(); q != "" {
			dsn = "file:" + c.Path + "?" + q
		}
		return "sqlite3", dsn, nil

	default:
		return "", "", fmt.Errorf("dialect %q has no driver", dialect)
	}
}

func (c Config) port(def int) int {
	if c.Port > 0 {
		return c.Port
	}
	return def
}

// query encodes Params sorted by key.
func (c Config) query() string {
	if len(c.Params) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range c.Params {
		values.Set(k, v)
	}
	return values.Encode()
}

// require takes name/value pairs and fails on the first empty value.
func (c Config) require(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%s: %s: %w", c.Dialect, pairs[i], ErrMissingConfig)
		}
	}
	return nil
}
