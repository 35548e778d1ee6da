package correlation

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	corecorrelation "3tcapital/correlate/internal/core/correlation"
	ctxutil "3tcapital/correlate/internal/infrastructure/context"
	"3tcapital/correlate/internal/infrastructure/logger"
)

type countingScopes struct {
	enabled bool
	opened  atomic.Int32
	closed  atomic.Int32
	lastKey atomic.Value
}

func (s *countingScopes) Enabled(context.Context) bool {
	return s.enabled
}

func (s *countingScopes) BeginScope(ctx context.Context, key, _ string) (context.Context, corecorrelation.Scope) {
	s.opened.Add(1)
	s.lastKey.Store(key)
	return ctx, &countingScope{owner: s}
}

type countingScope struct {
	owner *countingScopes
}

func (c *countingScope) Close() {
	c.owner.closed.Add(1)
}

type sequenceIDs struct {
	n atomic.Int32
}

func (s *sequenceIDs) Create(context.Context) string {
	return fmt.Sprintf("gen-%d", s.n.Add(1))
}

type recordingListener struct {
	started atomic.Int32
	stopped atomic.Int32
	lastID  atomic.Value
}

func (l *recordingListener) ActivityStarted(_ context.Context, cc *corecorrelation.Context) {
	l.started.Add(1)
	l.lastID.Store(cc.CorrelationID)
}

func (l *recordingListener) ActivityStopped(context.Context, *corecorrelation.Context, time.Duration) {
	l.stopped.Add(1)
}

type fixture struct {
	accessor    ctxutil.Accessor
	scopes      corecorrelation.LoggingScopes
	diagnostics *Diagnostics
	ids         *sequenceIDs
	manager     *Manager
}

func newFixture(t *testing.T, scopes corecorrelation.LoggingScopes) *fixture {
	t.Helper()

	f := &fixture{
		accessor:    ctxutil.NewAccessor(),
		scopes:      scopes,
		diagnostics: NewDiagnostics(),
		ids:         &sequenceIDs{},
	}
	activities, err := NewActivityFactory(ctxutil.NewContextFactory(f.accessor), scopes, f.diagnostics, corecorrelation.DefaultOptions())
	require.NoError(t, err)

	f.manager, err = NewManager(ManagerOptions{
		ActivityFactory: activities,
		Accessor:        f.accessor,
		IDFactory:       f.ids,
		Scopes:          scopes,
		Diagnostics:     f.diagnostics,
		Logger:          logger.NewNoopLogger(),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) currentID(ctx context.Context) string {
	if cc := f.accessor.Current(ctx); cc != nil {
		return cc.CorrelationID
	}
	return ""
}
