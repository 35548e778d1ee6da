package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"3tcapital/correlate/internal/core/correlation"
)

func TestMetrics_ActivityListener(t *testing.T) {
	m := New()
	cc := &correlation.Context{CorrelationID: "abc"}

	m.ActivityStarted(context.Background(), cc)
	m.ActivityStarted(context.Background(), cc)
	assert.InDelta(t, 2, promtest.ToFloat64(m.inFlight), 0)

	m.ActivityStopped(context.Background(), cc, 20*time.Millisecond)

	assert.InDelta(t, 2, promtest.ToFloat64(m.started), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(m.completed), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(m.inFlight), 0)
	assert.Equal(t, 1, promtest.CollectAndCount(m.duration))
}

func TestMetrics_RoundTripper(t *testing.T) {
	m := New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := &http.Client{Transport: m.NewRoundTripper(http.DefaultTransport)}
	resp, err := client.Post(server.URL, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.InDelta(t, 1, promtest.ToFloat64(m.reqTotal.WithLabelValues("202", "post")), 0)
	assert.InDelta(t, 0, promtest.ToFloat64(m.reqFlight), 0)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ActivityStarted(context.Background(), &correlation.Context{CorrelationID: "abc"})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "correlate_activity_started_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
