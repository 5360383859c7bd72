// Package sqlite provides the SQLite backend for DataScout.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	sqlitedrv "modernc.org/sqlite"

	"github.com/datascout-labs/datascout/internal/backend"
	"github.com/datascout-labs/datascout/internal/config"
	"github.com/datascout-labs/datascout/internal/core"
	"github.com/datascout-labs/datascout/internal/dberr"
)

func init() {
	backend.Register(config.TypeSQLite, func(logger *slog.Logger) backend.Backend {
		return New(logger)
	})
}

// Backend implements backend.Backend for SQLite database files.
type Backend struct {
	backend.SQLBase
}

// New creates a SQLite backend. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Backend{SQLBase: backend.SQLBase{Logger: logger}}
	b.Classify = classify
	return b
}

// Type returns the engine identifier for this backend.
func (b *Backend) Type() string { return config.TypeSQLite }

// Open opens the database file named by cfg.Database. The magic name
// :memory: opens a private in-memory database.
func (b *Backend) Open(ctx context.Context, cfg *config.ConnectionConfig) error {
	path := cfg.Database

	b.Logger.Debug("opening sqlite database", slog.String("path", path))

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if _, err := os.Stat(path); err != nil {
			return dberr.Wrap(dberr.Connection, err, "sqlite database file %q not accessible", path)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return dberr.Wrap(dberr.Connection, err, "failed to open sqlite database")
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return dberr.Wrap(dberr.Connection, err, "failed to open sqlite database %q", path)
	}

	b.DB = db
	b.Cfg = cfg
	return nil
}

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
		Engine:   config.TypeSQLite,
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
		`SELECT name FROM sqlite_master
		 WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		 ORDER BY name`)
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
	quoted := quoteIdent(name)

	rows, err := b.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoted))
	if err != nil {
		return nil, dberr.Wrap(classify(err), err, "failed to read columns for %s", name)
	}
	for rows.Next() {
		var (
			cid     int
			colName string
			colType string
			notNull int
			def     sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &def, &pk); err != nil {
			_ = rows.Close()
			return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to scan column for %s", name)
		}
		col := core.ColumnDescription{
			Name:         colName,
			Type:         strings.ToLower(colType),
			FullType:     strings.ToLower(colType),
			Nullable:     notNull == 0 && pk == 0,
			IsPrimaryKey: pk > 0,
			Position:     cid + 1,
		}
		if def.Valid {
			col.Default = &def.String
		}
		if col.IsPrimaryKey {
			td.PrimaryKeys = append(td.PrimaryKeys, colName)
		}
		td.Columns = append(td.Columns, col)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to read columns for %s", name)
	}
	_ = rows.Close()

	fkRows, err := b.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoted))
	if err != nil {
		return nil, dberr.Wrap(classify(err), err, "failed to read foreign keys for %s", name)
	}
	for fkRows.Next() {
		var (
			id, seq                   int
			refTable, from            string
			to                        sql.NullString
			onUpdate, onDelete, match string
		)
		if err := fkRows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			_ = fkRows.Close()
			return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to scan foreign key for %s", name)
		}
		fk := core.ForeignKeyDescription{Column: from, ReferencedTable: refTable}
		if to.Valid {
			fk.ReferencedColumn = to.String
		}
		td.ForeignKeys = append(td.ForeignKeys, fk)
	}
	if err := fkRows.Err(); err != nil {
		_ = fkRows.Close()
		return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to read foreign keys for %s", name)
	}
	_ = fkRows.Close()

	idxRows, err := b.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoted))
	if err != nil {
		return nil, dberr.Wrap(classify(err), err, "failed to read indexes for %s", name)
	}
	type idxMeta struct {
		name   string
		unique bool
	}
	var metas []idxMeta
	for idxRows.Next() {
		var (
			seq     int
			idxName string
			unique  int
			origin  string
			partial int
		)
		if err := idxRows.Scan(&seq, &idxName, &unique, &origin, &partial); err != nil {
			_ = idxRows.Close()
			return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to scan index for %s", name)
		}
		metas = append(metas, idxMeta{name: idxName, unique: unique == 1})
	}
	if err := idxRows.Err(); err != nil {
		_ = idxRows.Close()
		return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to read indexes for %s", name)
	}
	_ = idxRows.Close()

	for _, m := range metas {
		idx := core.IndexDescription{Name: m.name, Unique: m.unique}
		colRows, err := b.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(m.name)))
		if err != nil {
			return nil, dberr.Wrap(classify(err), err, "failed to read index %s", m.name)
		}
		for colRows.Next() {
			var (
				seqno, cid int
				colName    sql.NullString
			)
			if err := colRows.Scan(&seqno, &cid, &colName); err != nil {
				_ = colRows.Close()
				return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to scan index %s", m.name)
			}
			if colName.Valid {
				idx.Columns = append(idx.Columns, colName.String)
			}
		}
		if err := colRows.Err(); err != nil {
			_ = colRows.Close()
			return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to read index %s", m.name)
		}
		_ = colRows.Close()
		td.Indexes = append(td.Indexes, idx)
	}

	if err := b.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", quoted)).Scan(&td.RowCount); err != nil {
		return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to count rows for %s", name)
	}

	var ddl sql.NullString
	if err := b.DB.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&ddl); err == nil && ddl.Valid {
		td.CreateStatement = ddl.String
	}

	return td, nil
}

// Info returns library version, encoding and file size statistics.
func (b *Backend) Info(ctx context.Context) (*core.DatabaseInfo, error) {
	if b.DB == nil {
		return nil, dberr.New(dberr.NotConnected, "no open session")
	}

	info := &core.DatabaseInfo{DatabaseName: b.Cfg.Database}
	if err := b.QueryValue(ctx, &info.EngineVersion, "SELECT sqlite_version()"); err != nil {
		return nil, err
	}
	if err := b.QueryValue(ctx, &info.CharacterSet, "PRAGMA encoding"); err != nil {
		return nil, err
	}
	// SQLite has no database collation setting; BINARY is the default
	// comparison for text columns without an explicit COLLATE clause.
	info.Collation = "BINARY"
	if err := b.QueryValue(ctx, &info.TableCount,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`); err != nil {
		return nil, err
	}
	var pageCount, pageSize float64
	if err := b.QueryValue(ctx, &pageCount, "PRAGMA page_count"); err != nil {
		return nil, err
	}
	if err := b.QueryValue(ctx, &pageSize, "PRAGMA page_size"); err != nil {
		return nil, err
	}
	info.ApproxSizeMB = pageCount * pageSize / 1024 / 1024
	return info, nil
}

// quoteIdent wraps an identifier in double quotes, escaping embedded ones.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func classify(err error) dberr.Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dberr.QueryTimeout
	}
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		// SQLITE_ERROR covers both syntax and semantic failures; the
		// message text is the only discriminator the library offers.
		msg := strings.ToLower(se.Error())
		switch {
		case strings.Contains(msg, "syntax error"):
			return dberr.QuerySyntax
		case strings.Contains(msg, "no such table"):
			return dberr.TableNotFound
		case strings.Contains(msg, "interrupted"):
			return dberr.QueryTimeout
		}
		return dberr.QueryExecution
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "syntax error"):
		return dberr.QuerySyntax
	case strings.Contains(msg, "no such table"):
		return dberr.TableNotFound
	}
	return dberr.QueryExecution
}
