// Package config loads named connection records and resolves secret
// indirections. A record is a JSON object stored as <name>.json in the
// connections directory; the password field may use the env:VARNAME
// indirection marker, resolved from the process environment at load time
// and never written back to disk.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/datascout-labs/datascout/internal/dberr"
)

// Known connection types. Validation uses the backend factory registry as
// the source of truth; these constants exist for defaulting.
const (
	TypeMySQL    = "mysql"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// ConnectionConfig holds the parameters needed to construct a backend.
type ConnectionConfig struct {
	Name string `koanf:"-" json:"name"`

	Type string `koanf:"type" json:"type"`

	// Network engines
	Host string `koanf:"host" json:"host,omitempty"`
	Port int    `koanf:"port" json:"port,omitempty"`
	User string `koanf:"user" json:"user,omitempty"`

	// Password is either a literal secret or an env:VARNAME indirection.
	// After Resolve it holds the resolved literal; redacted views never
	// include it.
	Password string `koanf:"password" json:"-"`

	// Database is the database name, or the file path for file-based
	// engines (SQLite).
	Database string `koanf:"database" json:"database"`

	Charset        string `koanf:"charset" json:"charset,omitempty"`
	SSL            bool   `koanf:"ssl" json:"ssl,omitempty"`
	ConnectTimeout int    `koanf:"connect_timeout" json:"connect_timeout,omitempty"` // seconds
}

// Defaults by engine type, applied after load.
func applyDefaults(cfg *ConnectionConfig) {
	switch cfg.Type {
	case TypeMySQL:
		if cfg.Port == 0 {
			cfg.Port = 3306
		}
		if cfg.Charset == "" {
			cfg.Charset = "utf8mb4"
		}
	case TypePostgres:
		if cfg.Port == 0 {
			cfg.Port = 5432
		}
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10
	}
}

// Validate checks required fields for the record's engine type.
func (c *ConnectionConfig) Validate() error {
	if c.Type == "" {
		return dberr.New(dberr.ConfigInvalid, "connection %q: type is required", c.Name)
	}
	switch c.Type {
	case TypeSQLite:
		if c.Database == "" {
			return dberr.New(dberr.ConfigInvalid, "connection %q: database (file path) is required", c.Name)
		}
	case TypeMySQL, TypePostgres:
		if c.Host == "" {
			return dberr.New(dberr.ConfigInvalid, "connection %q: host is required", c.Name)
		}
		if c.Database == "" {
			return dberr.New(dberr.ConfigInvalid, "connection %q: database is required", c.Name)
		}
		if c.User == "" {
			return dberr.New(dberr.ConfigInvalid, "connection %q: user is required", c.Name)
		}
	default:
		// Unknown types are rejected later by the backend factory registry,
		// which knows the full set of registered engines.
	}
	if c.Port < 0 || c.Port > 65535 {
		return dberr.New(dberr.ConfigInvalid, "connection %q: port %d out of range", c.Name, c.Port)
	}
	return nil
}

// ConnectTimeoutDuration returns the configured connect timeout.
func (c *ConnectionConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// Redacted returns a copy safe for listings: the password is dropped
// entirely, resolved or not.
func (c ConnectionConfig) Redacted() ConnectionConfig {
	c.Password = ""
	return c
}

// envMarker is the secret indirection prefix. Parsed in exactly one place.
const envMarker = "env:"

// IsEnvRef reports whether v uses the env:VARNAME indirection form.
func IsEnvRef(v string) bool {
	return strings.HasPrefix(v, envMarker) && len(v) > len(envMarker)
}

// EnvRefName extracts the variable name from an env:VARNAME marker.
func EnvRefName(v string) string {
	return strings.TrimPrefix(v, envMarker)
}

func (c *ConnectionConfig) String() string {
	return fmt.Sprintf("%s (%s %s@%s/%s)", c.Name, c.Type, c.User, c.Host, c.Database)
}
