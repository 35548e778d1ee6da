package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"3tcapital/correlate/internal/core/correlation"
)

const insertActivitySQL = `
INSERT INTO correlation_activity (correlation_id, started_at, duration_ms)
VALUES ($1, $2, $3)`

// Execer is the subset of pgxpool.Pool used by ActivityStore.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type activityRecord struct {
	correlationID string
	startedAt     time.Time
	duration      time.Duration
}

// ActivityStore persists finished correlated activities. It is a diagnostics
// listener: notifications are queued and written by Run, and records are
// dropped when the queue is full so that correlated work never waits on the
// database.
type ActivityStore struct {
	db    Execer
	log   *slog.Logger
	queue chan activityRecord
}

func NewActivityStore(db Execer, log *slog.Logger, queueSize int) *ActivityStore {
	if queueSize < 1 {
		queueSize = 1
	}
	return &ActivityStore{db: db, log: log, queue: make(chan activityRecord, queueSize)}
}

func (s *ActivityStore) ActivityStarted(context.Context, *correlation.Context) {}

func (s *ActivityStore) ActivityStopped(ctx context.Context, cc *correlation.Context, elapsed time.Duration) {
	rec := activityRecord{
		correlationID: cc.CorrelationID,
		startedAt:     time.Now().Add(-elapsed),
		duration:      elapsed,
	}
	select {
	case s.queue <- rec:
	default:
		s.log.WarnContext(ctx, "activity store queue full, dropping record", "correlation_id", cc.CorrelationID)
	}
}

// Run writes queued records until ctx is done, then drains what is left.
func (s *ActivityStore) Run(ctx context.Context) {
	for {
		select {
		case rec := <-s.queue:
			s.write(ctx, rec)
		case <-ctx.Done():
			s.drain()
			return
		}
	}
}

func (s *ActivityStore) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case rec := <-s.queue:
			s.write(ctx, rec)
		default:
			return
		}
	}
}

func (s *ActivityStore) write(ctx context.Context, rec activityRecord) {
	_, err := s.db.Exec(ctx, insertActivitySQL, rec.correlationID, rec.startedAt, rec.duration.Milliseconds())
	if err != nil {
		s.log.ErrorContext(ctx, "failed to store correlated activity",
			"correlation_id", rec.correlationID,
			"error", err,
		)
	}
}
