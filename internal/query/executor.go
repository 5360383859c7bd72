package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/datascout-labs/datascout/internal/backend"
	"github.com/datascout-labs/datascout/internal/core"
)

// Default execution bounds, overridable per call.
const (
	DefaultMaxRows = 100
	HardMaxRows    = 10000
	DefaultTimeout = 30 * time.Second
)

// Options bound a single execution.
type Options struct {
	// MaxRows caps the returned row count. Zero means DefaultMaxRows;
	// values above HardMaxRows are clamped.
	MaxRows int

	// Timeout bounds wall time. Zero means DefaultTimeout.
	Timeout time.Duration

	// ReadOnly routes the statement through the safety guard. On by
	// default at the tool surface; trusted callers may opt out.
	ReadOnly bool
}

func (o *Options) normalize() {
	if o.MaxRows <= 0 {
		o.MaxRows = DefaultMaxRows
	}
	if o.MaxRows > HardMaxRows {
		o.MaxRows = HardMaxRows
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
}

// Executor runs bounded, parameterized statements against live sessions.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor. If logger is nil, a discard logger is
// used.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{logger: logger}
}

// Execute validates, bounds and runs one statement. Parameters bind via
// driver placeholders; values never interpolate into the SQL text. The
// read-only guard runs before anything touches the server, and the
// deadline cancels server-side through the driver.
func (e *Executor) Execute(ctx context.Context, handle backend.Backend, sqlText string, params []any, opts Options) (*core.QueryResult, error) {
	opts.normalize()

	if opts.ReadOnly {
		if err := ValidateReadOnly(sqlText); err != nil {
			return nil, err
		}
	}

	runSQL := sqlText
	if limit := injectedLimit(sqlText, opts.MaxRows); limit != "" {
		runSQL = limit
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	e.logger.Debug("executing query",
		slog.String("engine", handle.Type()),
		slog.Int("max_rows", opts.MaxRows),
		slog.Duration("timeout", opts.Timeout))

	result, err := handle.Run(ctx, runSQL, params, opts.MaxRows)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("query complete",
		slog.Int("rows", result.RowCount),
		slog.Bool("truncated", result.Truncated),
		slog.Duration("elapsed", result.Elapsed))
	return result, nil
}

// injectedLimit appends LIMIT maxRows+1 to an unbounded SELECT or WITH
// statement. The extra row feeds the truncation probe without letting
// the server stream an unbounded result. Statements with their own LIMIT
// and non-SELECT forms (SHOW, EXPLAIN) are left untouched. Returns ""
// when no rewrite applies.
func injectedLimit(sqlText string, maxRows int) string {
	upper := strings.ToUpper(strings.TrimSpace(sqlText))
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return ""
	}
	if HasLimitClause(sqlText) {
		return ""
	}
	trimmed := strings.TrimRight(strings.TrimSpace(sqlText), "; \t\n")
	return fmt.Sprintf("%s LIMIT %d", trimmed, maxRows+1)
}
