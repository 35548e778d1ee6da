package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcorrelation "3tcapital/correlate/internal/application/correlation"
	"3tcapital/correlate/internal/core/correlation"
	ctxutil "3tcapital/correlate/internal/infrastructure/context"
	"3tcapital/correlate/internal/infrastructure/logger"
	"3tcapital/correlate/internal/testutil"
)

func newActivityFactory(t *testing.T, scopes correlation.LoggingScopes) correlation.ActivityFactory {
	t.Helper()
	f, err := appcorrelation.NewActivityFactory(
		ctxutil.NewContextFactory(ctxutil.NewAccessor()),
		scopes,
		appcorrelation.NewDiagnostics(),
		correlation.DefaultOptions(),
	)
	require.NoError(t, err)
	return f
}

func fixedIDs(id string) correlation.IDFactory {
	return correlation.IDFactoryFunc(func(context.Context) string { return id })
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxutil.GetCorrelationID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, seen
}

func TestCorrelation_ReusesInboundHeader(t *testing.T) {
	mw := Correlation(newActivityFactory(t, logger.NewScopes(testutil.NewTestLogger())), fixedIDs("generated"), DefaultCorrelationOptions())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DefaultCorrelationHeader, "abc")
	w, seen := serve(t, mw, req)

	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", w.Header().Get(DefaultCorrelationHeader))
}

func TestCorrelation_GeneratesWhenMissing(t *testing.T) {
	mw := Correlation(newActivityFactory(t, logger.NewScopes(testutil.NewTestLogger())), fixedIDs("generated"), DefaultCorrelationOptions())

	w, seen := serve(t, mw, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "generated", seen)
	assert.Equal(t, "generated", w.Header().Get(DefaultCorrelationHeader))
}

func TestCorrelation_HeaderPrecedence(t *testing.T) {
	opts := CorrelationOptions{
		RequestHeaders:    []string{"X-Correlation-ID", "X-Request-ID"},
		IncludeInResponse: true,
	}
	mw := Correlation(newActivityFactory(t, logger.NewScopes(testutil.NewTestLogger())), fixedIDs("generated"), opts)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "from-second")
	w, seen := serve(t, mw, req)

	assert.Equal(t, "from-second", seen)
	assert.Equal(t, "from-second", w.Header().Get("X-Request-ID"))
	assert.Empty(t, w.Header().Get("X-Correlation-ID"))
}

func TestCorrelation_ResponseHeaderDisabled(t *testing.T) {
	opts := DefaultCorrelationOptions()
	opts.IncludeInResponse = false
	mw := Correlation(newActivityFactory(t, logger.NewScopes(testutil.NewTestLogger())), fixedIDs("generated"), opts)

	w, seen := serve(t, mw, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "generated", seen)
	assert.Empty(t, w.Header().Get(DefaultCorrelationHeader))
}

func TestCorrelation_LogsInsideRequestCarryScope(t *testing.T) {
	rec := testutil.NewRecorder()
	log := rec.Logger()
	mw := Correlation(newActivityFactory(t, logger.NewScopes(log)), fixedIDs("generated"), DefaultCorrelationOptions())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DefaultCorrelationHeader, "abc")
	handler := mw(RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.InfoContext(r.Context(), "handling")
	})))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	for _, msg := range []string{"handling", "HTTP request"} {
		got, ok := rec.Find(msg)
		require.True(t, ok, msg)
		assert.Equal(t, "abc", got.Attrs[correlation.DefaultLoggingScopeKey], msg)
	}
}

type recordingActivity struct {
	started, stopped int
}

func (a *recordingActivity) Start(ctx context.Context, id string) (context.Context, *correlation.Context) {
	a.started++
	return ctx, &correlation.Context{CorrelationID: id}
}

func (a *recordingActivity) Stop() context.Context {
	a.stopped++
	return nil
}

func TestCorrelation_StopsActivityWhenHandlerPanics(t *testing.T) {
	activity := &recordingActivity{}
	factory := correlation.ActivityFactoryFunc(func() correlation.Activity { return activity })
	mw := Correlation(factory, fixedIDs("generated"), DefaultCorrelationOptions())

	handler := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler failed")
	}))

	assert.Panics(t, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, 1, activity.started)
	assert.Equal(t, 1, activity.stopped)
}

func TestHTTPRequestActivity_KeepsExistingResponseHeader(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(DefaultCorrelationHeader, "already-set")

	a := NewHTTPRequestActivity(&recordingActivity{}, w, DefaultCorrelationHeader, true)
	a.Start(context.Background(), "abc")
	a.Stop()

	assert.Equal(t, "already-set", w.Header().Get(DefaultCorrelationHeader))
}
