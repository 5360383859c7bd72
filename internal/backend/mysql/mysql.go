// Package mysql provides the MySQL backend for DataScout.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	driver "github.com/go-sql-driver/mysql"

	"github.com/datascout-labs/datascout/internal/backend"
	"github.com/datascout-labs/datascout/internal/config"
	"github.com/datascout-labs/datascout/internal/core"
	"github.com/datascout-labs/datascout/internal/dberr"
)

func init() {
	backend.Register(config.TypeMySQL, func(logger *slog.Logger) backend.Backend {
		return New(logger)
	})
}

// Backend implements backend.Backend for MySQL and MariaDB servers.
type Backend struct {
	backend.SQLBase
}

// New creates a MySQL backend. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Backend{SQLBase: backend.SQLBase{Logger: logger}}
	b.Classify = classify
	return b
}

// Type returns the engine identifier for this backend.
func (b *Backend) Type() string { return config.TypeMySQL }

// Open establishes a session against the configured server.
func (b *Backend) Open(ctx context.Context, cfg *config.ConnectionConfig) error {
	dsn := buildMySQLDSN(cfg)

	b.Logger.Debug("connecting to mysql", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return dberr.Wrap(dberr.Connection, err, "failed to open mysql connection")
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		kind := classify(err)
		if kind != dberr.Authentication {
			kind = dberr.Connection
		}
		return dberr.Wrap(kind, err, "failed to reach mysql at %s:%d", cfg.Host, cfg.Port)
	}

	b.DB = db
	b.Cfg = cfg
	return nil
}

// buildMySQLDSN constructs a go-sql-driver connection string.
func buildMySQLDSN(cfg *config.ConnectionConfig) string {
	mc := driver.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Database
	mc.Timeout = cfg.ConnectTimeoutDuration()
	mc.ParseTime = true
	if cfg.Charset != "" {
		mc.Params = map[string]string{"charset": cfg.Charset}
	}
	if cfg.SSL {
		mc.TLSConfig = "preferred"
	}
	return mc.FormatDSN()
}

const columnQuery = `
SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT, COLUMN_KEY, EXTRA, ORDINAL_POSITION
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`

const foreignKeyQuery = `
SELECT COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
FROM information_schema.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY COLUMN_NAME`

const indexQuery = `
SELECT INDEX_NAME, COLUMN_NAME, NON_UNIQUE
FROM information_schema.STATISTICS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY INDEX_NAME, SEQ_IN_INDEX`

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
		Engine:   config.TypeMySQL,
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
		`SELECT TABLE_NAME FROM information_schema.TABLES
		 WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		 ORDER BY TABLE_NAME`, b.Cfg.Database)
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

	rows, err := b.DB.QueryContext(ctx, columnQuery, b.Cfg.Database, name)
	if err != nil {
		return nil, dberr.Wrap(classify(err), err, "failed to read columns for %s", name)
	}
	for rows.Next() {
		var (
			col      core.ColumnDescription
			nullable string
			def      sql.NullString
			key      string
		)
		if err := rows.Scan(&col.Name, &col.Type, &col.FullType, &nullable, &def, &key, &col.Extra, &col.Position); err != nil {
			_ = rows.Close()
			return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to scan column for %s", name)
		}
		col.Nullable = nullable == "YES"
		if def.Valid {
			col.Default = &def.String
		}
		col.IsPrimaryKey = key == "PRI"
		if col.IsPrimaryKey {
			td.PrimaryKeys = append(td.PrimaryKeys, col.Name)
		}
		td.Columns = append(td.Columns, col)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to read columns for %s", name)
	}
	_ = rows.Close()

	fkRows, err := b.DB.QueryContext(ctx, foreignKeyQuery, b.Cfg.Database, name)
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

	idxRows, err := b.DB.QueryContext(ctx, indexQuery, b.Cfg.Database, name)
	if err != nil {
		return nil, dberr.Wrap(classify(err), err, "failed to read indexes for %s", name)
	}
	byName := map[string]*core.IndexDescription{}
	var order []string
	for idxRows.Next() {
		var (
			idxName, colName string
			nonUnique        int
		)
		if err := idxRows.Scan(&idxName, &colName, &nonUnique); err != nil {
			_ = idxRows.Close()
			return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to scan index for %s", name)
		}
		idx, ok := byName[idxName]
		if !ok {
			idx = &core.IndexDescription{Name: idxName, Unique: nonUnique == 0}
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
		`SELECT TABLE_ROWS FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`,
		b.Cfg.Database, name).Scan(&td.RowCount); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, dberr.Wrap(dberr.QueryExecution, err, "failed to read row count for %s", name)
	}

	var tbl, ddl string
	if err := b.DB.QueryRowContext(ctx, "SHOW CREATE TABLE `"+name+"`").Scan(&tbl, &ddl); err == nil {
		td.CreateStatement = ddl
	}

	return td, nil
}

// Info returns server version, charset, collation and size statistics.
func (b *Backend) Info(ctx context.Context) (*core.DatabaseInfo, error) {
	if b.DB == nil {
		return nil, dberr.New(dberr.NotConnected, "no open session")
	}

	info := &core.DatabaseInfo{DatabaseName: b.Cfg.Database}
	if err := b.QueryValue(ctx, &info.EngineVersion, "SELECT VERSION()"); err != nil {
		return nil, err
	}
	if err := b.QueryValue(ctx, &info.CharacterSet, "SELECT @@character_set_database"); err != nil {
		return nil, err
	}
	if err := b.QueryValue(ctx, &info.Collation, "SELECT @@collation_database"); err != nil {
		return nil, err
	}
	if err := b.QueryValue(ctx, &info.TableCount,
		`SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA = ?`, b.Cfg.Database); err != nil {
		return nil, err
	}
	var size sql.NullFloat64
	if err := b.QueryValue(ctx, &size,
		`SELECT SUM(DATA_LENGTH + INDEX_LENGTH) / 1024 / 1024
		 FROM information_schema.TABLES WHERE TABLE_SCHEMA = ?`, b.Cfg.Database); err != nil {
		return nil, err
	}
	if size.Valid {
		info.ApproxSizeMB = size.Float64
	}
	return info, nil
}

// MySQL error numbers used for classification.
const (
	errAccessDenied  = 1045
	errParse         = 1064
	errNoSuchTable   = 1146
	errQueryTimeout  = 3024
	errQueryKilled   = 1317
	errBadDB         = 1049
	errTooManyConns  = 1040
	errHostNotPriv   = 1130
	errServerGone    = 2006
	errLostConn      = 2013
	errUnknownColumn = 1054
)

func classify(err error) dberr.Kind {
	var me *driver.MySQLError
	if !errors.As(err, &me) {
		if errors.Is(err, driver.ErrInvalidConn) {
			return dberr.Connection
		}
		return dberr.QueryExecution
	}
	switch me.Number {
	case errAccessDenied, errHostNotPriv:
		return dberr.Authentication
	case errParse, errUnknownColumn:
		return dberr.QuerySyntax
	case errNoSuchTable:
		return dberr.TableNotFound
	case errQueryTimeout, errQueryKilled:
		return dberr.QueryTimeout
	case errBadDB, errTooManyConns, errServerGone, errLostConn:
		return dberr.Connection
	default:
		if strings.HasPrefix(string(me.SQLState[:]), "42") {
			return dberr.QuerySyntax
		}
		return dberr.QueryExecution
	}
}
