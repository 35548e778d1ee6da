package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"3tcapital/correlate/internal/core/correlation"
)

type traceStartKey struct{}

type queryStart struct {
	sql     string
	started time.Time
}

// QueryTracer logs every query together with the correlation id that was
// ambient when it ran. Queries issued outside a correlated operation are
// logged without one.
type QueryTracer struct {
	accessor correlation.Accessor
	log      *slog.Logger
	slow     time.Duration
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

// NewQueryTracer creates a tracer. Queries slower than slow are logged at
// warn level; zero disables the threshold.
func NewQueryTracer(accessor correlation.Accessor, log *slog.Logger, slow time.Duration) *QueryTracer {
	return &QueryTracer{accessor: accessor, log: log, slow: slow}
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceStartKey{}, queryStart{sql: data.SQL, started: time.Now()})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(traceStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := time.Since(start.started)

	attrs := []any{
		"sql", start.sql,
		"duration_ms", elapsed.Milliseconds(),
	}
	if cc := t.accessor.Current(ctx); cc != nil {
		attrs = append(attrs, "correlation_id", cc.CorrelationID)
	}

	switch {
	case data.Err != nil:
		t.log.ErrorContext(ctx, "query failed", append(attrs, "error", data.Err)...)
	case t.slow > 0 && elapsed >= t.slow:
		t.log.WarnContext(ctx, "slow query", append(attrs, "rows", data.CommandTag.RowsAffected())...)
	default:
		t.log.DebugContext(ctx, "query executed", append(attrs, "rows", data.CommandTag.RowsAffected())...)
	}
}
