// Package backend defines the capability set every database engine
// implements, plus the factory registry that maps a config type onto its
// concrete variant. Adding an engine means adding a package under
// internal/backend/ and a registration entry in its init(); callers never
// change.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/datascout-labs/datascout/internal/config"
	"github.com/datascout-labs/datascout/internal/core"
)

// Backend is the uniform operation set over one database engine. Every
// native driver failure is normalized into the dberr taxonomy before it
// leaves an implementation.
type Backend interface {
	// Type returns the engine identifier (matches the config type).
	Type() string

	// Open establishes the underlying session. Connection failures are
	// classified as dberr.Connection or dberr.Authentication where the
	// wire protocol distinguishes them.
	Open(ctx context.Context, cfg *config.ConnectionConfig) error

	// Close releases the session. Idempotent: closing an already-closed
	// backend is a no-op, never an error.
	Close() error

	// Ping is a lightweight liveness check. It never returns an error;
	// transient failure reports false.
	Ping(ctx context.Context) bool

	// Run executes parameterized SQL, scanning at most rowLimit rows.
	// Caller-supplied values travel as query parameters, never
	// interpolated into the SQL text.
	Run(ctx context.Context, sqlText string, params []any, rowLimit int) (*core.QueryResult, error)

	// DescribeSchema reads the engine's catalog metadata, restricted to
	// one table when table is non-empty. Ordering is normalized by the
	// introspector, not here.
	DescribeSchema(ctx context.Context, table string) (*core.SchemaDescription, error)

	// Info returns engine-level metadata for the connected database.
	Info(ctx context.Context) (*core.DatabaseInfo, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Backend)
)

// Register adds a backend factory to the registry. Called by engine
// implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates a backend instance matching cfg.Type. The logger is passed
// to the factory (nil uses a discard logger).
func New(cfg *config.ConnectionConfig, logger *slog.Logger) (Backend, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("backend type not specified")
	}
	registryMu.RLock()
	factory, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownBackendError{Type: cfg.Type, Available: List()}
	}
	return factory(logger), nil
}

// List returns all registered backend types (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownBackendError is returned when a config names an engine type with
// no registered variant.
type UnknownBackendError struct {
	Type      string
	Available []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown backend type %q (available: %v)", e.Type, e.Available)
}
