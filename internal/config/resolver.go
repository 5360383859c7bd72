package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/datascout-labs/datascout/internal/dberr"
)

// EnvConnectionsDir overrides the connections directory when set.
const EnvConnectionsDir = "DATASCOUT_CONNECTIONS_DIR"

// DefaultConnectionsDir is used when neither flag nor env override it.
const DefaultConnectionsDir = "connections"

// Resolver loads connection records by name. It holds no state beyond the
// directory to read from; every Resolve call re-reads the record so config
// edits take effect on the next connect.
type Resolver struct {
	dir    string
	logger *slog.Logger
}

// NewResolver creates a resolver over the given connections directory.
// Precedence for the directory: explicit argument > DATASCOUT_CONNECTIONS_DIR
// > ./connections. A nil logger discards.
func NewResolver(dir string, logger *slog.Logger) *Resolver {
	if dir == "" {
		dir = os.Getenv(EnvConnectionsDir)
	}
	if dir == "" {
		dir = DefaultConnectionsDir
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{dir: dir, logger: logger}
}

// Dir returns the connections directory in use.
func (r *Resolver) Dir() string { return r.dir }

// Names lists the configured connection names (record files, sorted).
func (r *Resolver) Names() []string {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}

// Peek loads a record without resolving secrets, for listings.
func (r *Resolver) Peek(name string) (*ConnectionConfig, error) {
	return r.load(name, false)
}

// Resolve loads the named record, applies environment overrides, resolves
// secret indirections, and validates the result. No side effects beyond
// reads.
func (r *Resolver) Resolve(name string) (*ConnectionConfig, error) {
	return r.load(name, true)
}

func (r *Resolver) load(name string, resolveSecrets bool) (*ConnectionConfig, error) {
	path := filepath.Join(r.dir, name+".json")
	if _, err := os.Stat(path); err != nil {
		return nil, dberr.New(dberr.ConfigNotFound, "no configuration record for connection %q (looked for %s)", name, path)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return nil, dberr.Wrap(dberr.ConfigInvalid, err, "connection %q: cannot parse %s", name, path)
	}

	// Environment overrides: DATASCOUT_SHOP_HOST -> host for record "shop".
	prefix := "DATASCOUT_" + strings.ToUpper(name) + "_"
	if err := k.Load(env.Provider(prefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, prefix))
	}), nil); err != nil {
		return nil, dberr.Wrap(dberr.ConfigInvalid, err, "connection %q: cannot load env overrides", name)
	}

	var cfg ConnectionConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, dberr.Wrap(dberr.ConfigInvalid, err, "connection %q: cannot decode record", name)
	}
	cfg.Name = name
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if resolveSecrets && IsEnvRef(cfg.Password) {
		varName := EnvRefName(cfg.Password)
		secret, ok := os.LookupEnv(varName)
		if !ok || secret == "" {
			return nil, dberr.New(dberr.SecretResolution, "connection %q: environment variable %s is not set", name, varName)
		}
		cfg.Password = secret
		r.logger.Debug("resolved secret indirection", slog.String("connection", name), slog.String("var", varName))
	}

	return &cfg, nil
}
