// Package postgres provides the PostgreSQL backend for DataScout.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/datascout-labs/datascout/internal/backend"
	"github.com/datascout-labs/datascout/internal/config"
	"github.com/datascout-labs/datascout/internal/core"
	"github.com/datascout-labs/datascout/internal/dberr"
)

func init() {
	backend.Register(config.TypePostgres, func(logger *slog.Logger) backend.Backend {
		return New(logger)
	})
}

// Backend implements backend.Backend for PostgreSQL servers.
type Backend struct {
	backend.SQLBase
}

// New creates a PostgreSQL backend. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Backend{SQLBase: backend.SQLBase{Logger: logger}}
	b.Classify = classify
	return b
}

// Type returns the engine identifier for this backend.
func (b *Backend) Type() string { return config.TypePostgres }

// Open establishes a session against the configured server.
func (b *Backend) Open(ctx context.Context, cfg *config.ConnectionConfig) error {
	dsn := buildPostgresDSN(cfg)

	b.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return dberr.Wrap(dberr.Connection, err, "failed to open postgres connection")
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		kind := classify(err)
		if kind != dberr.Authentication {
			kind = dberr.Connection
		}
		return dberr.Wrap(kind, err, "failed to reach postgres at %s:%d", cfg.Host, cfg.Port)
	}

	b.DB = db
	b.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a key=value connection string.
func buildPostgresDSN(cfg *config.ConnectionConfig) string {
	sslmode := "disable"
	if cfg.SSL {
		sslmode = "require"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s connect_timeout=%d",
		cfg.Host, cfg.Port, cfg.Database, sslmode, cfg.ConnectTimeout)

	if cfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.User)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

const columnQuery = `
SELECT column_name, data_type, COALESCE(udt_name, data_type), is_nullable, column_default, ordinal_position
FROM information_schema.columns
WHERE table_schema = 'public' AND table_name = $1
ORDER BY ordinal_position`

const primaryKeyQuery = `
SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
WHERE tc.table_schema = 'public' AND tc.table_name = $1 AND tc.constraint_type = 'PRIMARY KEY'
ORDER BY kcu.ordinal_position`

const foreignKeyQuery = `
SELECT kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
WHERE tc.table_schema = 'public' AND tc.table_name = $1 AND tc.constraint_type = 'FOREIGN KEY'
ORDER BY kcu.column_name`

const indexQuery = `
SELECT i.relname, a.attname, ix.indisunique
FROM pg_class t
JOIN pg_index ix ON t.oid = ix.indrelid
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
JOIN pg_namespace n ON n.oid = t.relnamespace
WHERE n.nspname = 'public' AND t.relname = $1
ORDER BY i.relname, a.attnum`

// DescribeSchema returns all table structures, or a single table's when
// table is non-empty.
func (b *Backend) DescribeSchema(ctx context.Context, table string) (*core.SchemaDescription, error) {
	if b.DB == nil {
		return nil, dberr.New(dberr.NotConnected, "no open session")
	}

	names, err := b.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	if table != "" {
		found := false
		for _, n := range names {
			if n == table {
				found = true
				break
			}
		}
		if !found {
			return nil, dberr.New(dberr.TableNotFound, "table %q does not exist in database %q", table, b.Cfg.Database)
		}
		names = []string{table}
	}

	desc := &core.SchemaDescription{
		Database: b.Cfg.Database,
		Engine:   config.TypePostgres,
		Tables:   make([]core.TableDescription, 0, len(names)),
	}
	for _, name := range names {
		td, err := b.describeTable(ctx, name)
		if err != nil {
			return nil, err
		}
		desc.Tables = append(desc.Tables, *td)
	}
	return desc, nil
}

func (b *Backend) tableNames(ctx context.Context) ([]string, error) {
	rows, err := b.DB.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		 ORDER BY table_name`)
	if err != nil {
		return nil, dberr.Wrap(classify(err), err, "failed to list tables")
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to scan table name")
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (b *Backend) describeTable(ctx context.Context, name string) (*core.TableDescription, error) {
	td := &core.TableDescription{Name: name}

	pkRows, err := b.DB.QueryContext(ctx, primaryKeyQuery, name)
	if err != nil {
		return nil, dberr.Wrap(classify(err), err, "failed to read primary key for %s", name)
	}
	pkSet := map[string]bool{}
	for pkRows.Next() {
		var col string
		if err := pkRows.Scan(&col); err != nil {
			_ = pkRows.Close()
			return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to scan primary key for %s", name)
		}
		pkSet[col] = true
		td.PrimaryKeys = append(td.PrimaryKeys, col)
	}
	if err := pkRows.Err(); err != nil {
		_ = pkRows.Close()
		return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to read primary key for %s", name)
	}
	_ = pkRows.Close()

	rows, err := b.DB.QueryContext(ctx, columnQuery, name)
	if err != nil {
		return nil, dberr.Wrap(classify(err), err, "failed to read columns for %s", name)
	}
	for rows.Next() {
		var (
			col      core.ColumnDescription
			nullable string
			def      sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.Type, &col.FullType, &nullable, &def, &col.Position); err != nil {
			_ = rows.Close()
			return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to scan column for %s", name)
		}
		col.Nullable = nullable == "YES"
		if def.Valid {
			col.Default = &def.String
		}
		col.IsPrimaryKey = pkSet[col.Name]
		td.Columns = append(td.Columns, col)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to read columns for %s", name)
	}
	_ = rows.Close()

	fkRows, err := b.DB.QueryContext(ctx, foreignKeyQuery, name)
	if err != nil {
		return nil, dberr.Wrap(classify(err), err, "failed to read foreign keys for %s", name)
	}
	for fkRows.Next() {
		var fk core.ForeignKeyDescription
		if err := fkRows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			_ = fkRows.Close()
			return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to scan foreign key for %s", name)
		}
		td.ForeignKeys = append(td.ForeignKeys, fk)
	}
	if err := fkRows.Err(); err != nil {
		_ = fkRows.Close()
		return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to read foreign keys for %s", name)
	}
	_ = fkRows.Close()

	idxRows, err := b.DB.QueryContext(ctx, indexQuery, name)
	if err != nil {
		return nil, dberr.Wrap(classify(err), err, "failed to read indexes for %s", name)
	}
	byName := map[string]*core.IndexDescription{}
	var order []string
	for idxRows.Next() {
		var (
			idxName, colName string
			unique           bool
		)
		if err := idxRows.Scan(&idxName, &colName, &unique); err != nil {
			_ = idxRows.Close()
			return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to scan index for %s", name)
		}
		idx, ok := byName[idxName]
		if !ok {
			idx = &core.IndexDescription{Name: idxName, Unique: unique}
			byName[idxName] = idx
			order = append(order, idxName)
		}
		idx.Columns = append(idx.Columns, colName)
	}
	if err := idxRows.Err(); err != nil {
		_ = idxRows.Close()
		return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to read indexes for %s", name)
	}
	_ = idxRows.Close()
	for _, n := range order {
		td.Indexes = append(td.Indexes, *byName[n])
	}

	if err := b.DB.QueryRowContext(ctx,
		`SELECT COALESCE(reltuples::bigint, 0) FROM pg_class c
		 JOIN pg_namespace n ON n.oid = c.relnamespace
		 WHERE n.nspname = 'public' AND c.relname = $1`, name).Scan(&td.RowCount); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to read row estimate for %s", name)
	}

	return td, nil
}

// Info returns server version, encoding, collation and size statistics.
func (b *Backend) Info(ctx context.Context) (*core.DatabaseInfo, error) {
	if b.DB == nil {
		return nil, dberr.New(dberr.NotConnected, "no open session")
	}

	info := &core.DatabaseInfo{DatabaseName: b.Cfg.Database}
	if err := b.QueryValue(ctx, &info.EngineVersion, "SELECT version()"); err != nil {
		return nil, err
	}
	if err := b.QueryValue(ctx, &info.CharacterSet,
		"SELECT pg_encoding_to_char(encoding) FROM pg_database WHERE datname = current_database()"); err != nil {
		return nil, err
	}
	if err := b.QueryValue(ctx, &info.Collation,
		"SELECT datcollate FROM pg_database WHERE datname = current_database()"); err != nil {
		return nil, err
	}
	if err := b.QueryValue(ctx, &info.TableCount,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public'`); err != nil {
		return nil, err
	}
	var size sql.NullFloat64
	if err := b.QueryValue(ctx, &size,
		"SELECT pg_database_size(current_database()) / 1024.0 / 1024.0"); err != nil {
		return nil, err
	}
	if size.Valid {
		info.ApproxSizeMB = size.Float64
	}
	return info, nil
}

func classify(err error) dberr.Kind {
	var pe *pgconn.PgError
	if !errors.As(err, &pe) {
		return dberr.QueryExecution
	}
	switch pe.Code {
	case "28P01", "28000":
		return dberr.Authentication
	case "42601":
		return dberr.QuerySyntax
	case "42P01":
		return dberr.TableNotFound
	case "57014":
		return dberr.QueryTimeout
	case "3D000", "53300", "08006", "08001", "08003":
		return dberr.Connection
	default:
		if strings.HasPrefix(pe.Code, "42") {
			return dberr.QuerySyntax
		}
		if strings.HasPrefix(pe.Code, "08") {
			return dberr.Connection
		}
		return dberr.QueryExecution
	}
}
