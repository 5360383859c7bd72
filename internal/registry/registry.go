// Package registry tracks live database sessions by connection name. At
// most one open handle exists per name, and operations on the same name
// are serialized so concurrent connect calls cannot race a disconnect.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/datascout-labs/datascout/internal/backend"
	"github.com/datascout-labs/datascout/internal/config"
	"github.com/datascout-labs/datascout/internal/core"
	"github.com/datascout-labs/datascout/internal/dberr"
)

// entry holds the live state for one connection name. Its mutex
// serializes connect, disconnect and handle lookup for that name.
type entry struct {
	mu      sync.Mutex
	handle  backend.Backend
	status  core.ConnectionStatus
	lastErr string
}

// Registry owns all live sessions for the process.
type Registry struct {
	resolver *config.Resolver
	logger   *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry

	// generation increments on every successful connect or disconnect so
	// schema caches keyed on it invalidate when topology changes.
	generation atomic.Uint64
}

// New creates a registry backed by the given config resolver. If logger
// is nil, a discard logger is used.
func New(resolver *config.Resolver, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		resolver: resolver,
		logger:   logger,
		entries:  make(map[string]*entry),
	}
}

func (r *Registry) entryFor(name string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		e = &entry{status: core.StatusDisconnected}
		r.entries[name] = e
	}
	return e
}

// Connect opens a session for the named connection. Reconnecting an
// already connected name is a no-op returning the existing handle. On
// failure no handle is retained and the error is recorded on the entry.
func (r *Registry) Connect(ctx context.Context, name string) (backend.Backend, error) {
	e := r.entryFor(name)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle != nil {
		r.logger.Debug("connection already open", slog.String("name", name))
		return e.handle, nil
	}

	cfg, err := r.resolver.Resolve(name)
	if err != nil {
		e.status = core.StatusError
		e.lastErr = err.Error()
		return nil, err
	}

	b, err := backend.New(cfg, r.logger.With(slog.String("connection", name)))
	if err != nil {
		e.status = core.StatusError
		e.lastErr = err.Error()
		return nil, dberr.Wrap(dberr.ConfigInvalid, err, "connection %q", name)
	}

	e.status = core.StatusConnecting
	if err := b.Open(ctx, cfg); err != nil {
		e.status = core.StatusError
		e.lastErr = err.Error()
		return nil, err
	}

	e.handle = b
	e.status = core.StatusConnected
	e.lastErr = ""
	r.generation.Add(1)
	r.logger.Info("connected", slog.String("name", name), slog.String("type", cfg.Type))
	return b, nil
}

// Disconnect closes the named session. Disconnecting a name with no open
// session is a no-op.
func (r *Registry) Disconnect(name string) error {
	e := r.entryFor(name)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle == nil {
		return nil
	}

	err := e.handle.Close()
	e.handle = nil
	e.status = core.StatusDisconnected
	e.lastErr = ""
	r.generation.Add(1)
	r.logger.Info("disconnected", slog.String("name", name))
	if err != nil {
		return dberr.Wrap(dberr.Connection, err, "error closing connection %q", name)
	}
	return nil
}

// Get returns the open handle for name, or a not-connected error.
func (r *Registry) Get(name string) (backend.Backend, error) {
	e := r.entryFor(name)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle == nil {
		return nil, dberr.New(dberr.NotConnected, "connection %q is not connected", name)
	}
	return e.handle, nil
}

// Do runs fn with the named handle while holding the per-name lock, so
// overlapping operations on one connection never interleave on the same
// session. Returns a not-connected error when no handle is open.
func (r *Registry) Do(name string, fn func(backend.Backend) error) error {
	e := r.entryFor(name)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle == nil {
		return dberr.New(dberr.NotConnected, "connection %q is not connected", name)
	}
	return fn(e.handle)
}

// List returns the state of every known connection: all names with a
// config record, plus any live entries, sorted by name.
func (r *Registry) List() []core.ConnectionState {
	names := map[string]bool{}
	for _, n := range r.resolver.Names() {
		names[n] = true
	}
	r.mu.RLock()
	for n := range r.entries {
		names[n] = true
	}
	r.mu.RUnlock()

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	states := make([]core.ConnectionState, 0, len(sorted))
	for _, n := range sorted {
		states = append(states, r.stateOf(n))
	}
	return states
}

func (r *Registry) stateOf(name string) core.ConnectionState {
	st := core.ConnectionState{Name: name, Status: core.StatusDisconnected}

	if cfg, err := r.resolver.Peek(name); err == nil {
		st.Type = cfg.Type
		st.Database = cfg.Database
	}

	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return st
	}

	e.mu.Lock()
	st.Status = e.status
	st.LastError = e.lastErr
	if e.handle != nil {
		st.Type = e.handle.Type()
	}
	e.mu.Unlock()
	return st
}

// Test checks reachability of the named connection. An open session is
// pinged in place; otherwise a transient session is opened and closed
// without registering a handle.
func (r *Registry) Test(ctx context.Context, name string) error {
	e := r.entryFor(name)
	e.mu.Lock()
	handle := e.handle
	e.mu.Unlock()

	if handle != nil {
		if !handle.Ping(ctx) {
			return dberr.New(dberr.Connection, "connection %q failed ping", name)
		}
		return nil
	}

	cfg, err := r.resolver.Resolve(name)
	if err != nil {
		return err
	}
	b, err := backend.New(cfg, r.logger.With(slog.String("connection", name)))
	if err != nil {
		return dberr.Wrap(dberr.ConfigInvalid, err, "connection %q", name)
	}
	if err := b.Open(ctx, cfg); err != nil {
		return err
	}
	return b.Close()
}

// Generation returns a counter that changes whenever a connect or
// disconnect succeeds.
func (r *Registry) Generation() uint64 {
	return r.generation.Load()
}

// Names returns the names of currently connected sessions, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for n, e := range r.entries {
		e.mu.Lock()
		open := e.handle != nil
		e.mu.Unlock()
		if open {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// CloseAll closes every open session. Used at shutdown.
func (r *Registry) CloseAll() {
	for _, n := range r.Names() {
		if err := r.Disconnect(n); err != nil {
			r.logger.Warn("error closing connection", slog.String("name", n), slog.Any("error", err))
		}
	}
}
