package postgres

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ctxutil "3tcapital/correlate/internal/infrastructure/context"
	"3tcapital/correlate/internal/testutil"
)

func TestQueryTracer_LogsActiveCorrelationID(t *testing.T) {
	rec := testutil.NewRecorder()
	tracer := NewQueryTracer(ctxutil.NewAccessor(), rec.Logger(), 0)

	ctx := ctxutil.WithCorrelationID(context.Background(), "req-42")
	ctx = tracer.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{SQL: "UPDATE orders SET state = $1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("UPDATE 3")})

	got, ok := rec.Find("query executed")
	require.True(t, ok)
	assert.Equal(t, slog.LevelDebug, got.Level)
	assert.Equal(t, "req-42", got.Attrs["correlation_id"])
	assert.Equal(t, "UPDATE orders SET state = $1", got.Attrs["sql"])
	assert.EqualValues(t, 3, got.Attrs["rows"])
}

func TestQueryTracer_WithoutCorrelation(t *testing.T) {
	rec := testutil.NewRecorder()
	tracer := NewQueryTracer(ctxutil.NewAccessor(), rec.Logger(), 0)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})

	got, ok := rec.Find("query executed")
	require.True(t, ok)
	assert.NotContains(t, got.Attrs, "correlation_id")
}

func TestQueryTracer_Failures(t *testing.T) {
	rec := testutil.NewRecorder()
	tracer := NewQueryTracer(ctxutil.NewAccessor(), rec.Logger(), 0)

	ctx := ctxutil.WithCorrelationID(context.Background(), "req-7")
	ctx = tracer.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{SQL: "SELECT broken"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("syntax error")})

	got, ok := rec.Find("query failed")
	require.True(t, ok)
	assert.Equal(t, slog.LevelError, got.Level)
	assert.Equal(t, "req-7", got.Attrs["correlation_id"])
}

func TestQueryTracer_SlowQuery(t *testing.T) {
	rec := testutil.NewRecorder()
	tracer := NewQueryTracer(ctxutil.NewAccessor(), rec.Logger(), time.Nanosecond)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT pg_sleep(0)"})
	time.Sleep(time.Millisecond)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})

	_, ok := rec.Find("slow query")
	assert.True(t, ok)
}

func TestQueryTracer_EndWithoutStartIsIgnored(t *testing.T) {
	rec := testutil.NewRecorder()
	tracer := NewQueryTracer(ctxutil.NewAccessor(), rec.Logger(), 0)

	tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
	assert.Empty(t, rec.Records())
}
