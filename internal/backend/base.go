package backend

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/datascout-labs/datascout/internal/config"
	"github.com/datascout-labs/datascout/internal/core"
	"github.com/datascout-labs/datascout/internal/dberr"
)

// SQLBase provides the database/sql plumbing shared by the engine
// variants: row scanning with the cap-and-probe truncation check, the
// idempotent close, and the non-raising ping. Embed it and supply a
// Classify hook translating native driver errors into the taxonomy.
type SQLBase struct {
	DB     *sql.DB
	Cfg    *config.ConnectionConfig
	Logger *slog.Logger

	// Classify maps a native driver error to a dberr kind. Run wraps
	// every execution failure through it.
	Classify func(err error) dberr.Kind
}

// Close closes the database session. Safe to call repeatedly.
func (b *SQLBase) Close() error {
	if b.DB == nil {
		return nil
	}
	if b.Logger != nil {
		b.Logger.Debug("closing database session")
	}
	db := b.DB
	b.DB = nil
	return db.Close()
}

// Ping reports liveness without raising on transient failure.
func (b *SQLBase) Ping(ctx context.Context) bool {
	if b.DB == nil {
		return false
	}
	return b.DB.PingContext(ctx) == nil
}

// Connected reports whether a session is established.
func (b *SQLBase) Connected() bool { return b.DB != nil }

// Run executes parameterized SQL and scans at most rowLimit rows. After
// the cap is reached it probes for one more row to report truncation
// without fetching the remainder.
func (b *SQLBase) Run(ctx context.Context, sqlText string, params []any, rowLimit int) (*core.QueryResult, error) {
	if b.DB == nil {
		return nil, dberr.New(dberr.NotConnected, "no open session")
	}
	start := time.Now()

	rows, err := b.DB.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, b.runError(ctx, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, b.runError(ctx, err)
	}

	result := &core.QueryResult{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		if rowLimit > 0 && len(result.Rows) >= rowLimit {
			result.Truncated = true
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, b.runError(ctx, err)
		}
		for i, v := range values {
			// []byte column values become strings for JSON serialization
			if raw, ok := v.([]byte); ok {
				values[i] = string(raw)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, b.runError(ctx, err)
	}

	result.RowCount = len(result.Rows)
	result.Elapsed = time.Since(start)
	return result, nil
}

// runError classifies an execution failure. Context expiry wins over the
// driver's own rendering of the cancellation.
func (b *SQLBase) runError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return dberr.Wrap(dberr.QueryTimeout, err, "query cancelled at deadline")
	}
	kind := dberr.QueryExecution
	if b.Classify != nil {
		kind = b.Classify(err)
	}
	return dberr.Wrap(kind, err, "query failed")
}

// QueryValue runs a single-row, single-column catalog query and scans the
// value into dest. Used by the engine variants for info lookups.
func (b *SQLBase) QueryValue(ctx context.Context, dest any, sqlText string, params ...any) error {
	if b.DB == nil {
		return dberr.New(dberr.NotConnected, "no open session")
	}
	if err := b.DB.QueryRowContext(ctx, sqlText, params...).Scan(dest); err != nil {
		return b.runError(ctx, err)
	}
	return nil
}
