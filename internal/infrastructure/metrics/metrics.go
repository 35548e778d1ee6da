package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"3tcapital/correlate/internal/core/correlation"
)

const (
	namespace             = "correlate"
	activitySubsystem     = "activity"
	httpClientSubsystem   = "http_client"
	activitiesStarted     = "started_total"
	activitiesCompleted   = "completed_total"
	activitiesInFlight    = "in_flight"
	activityDuration      = "duration_seconds"
	clientRequestsTotal   = "requests_total"
	clientRequestDuration = "request_duration_seconds"
	clientInFlight        = "in_flight_requests"
)

var durationBuckets = []float64{
	0.005, /* 5ms */
	0.025, /* 25ms */
	0.1,   /* 100ms */
	0.5,   /* 500ms */
	1.0,   /* 1s */
	10.0,  /* 10s */
	30.0,  /* 30s */
	60.0,  /* 1m */
	300.0, /* 5m */
}

// Metrics owns the service's collectors. Each instance registers on its own
// registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	started    prometheus.Counter
	completed  prometheus.Counter
	inFlight   prometheus.Gauge
	duration   prometheus.Histogram
	reqTotal   *prometheus.CounterVec
	reqLatency *prometheus.HistogramVec
	reqFlight  prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		started: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: activitySubsystem,
			Name:      activitiesStarted,
			Help:      "The number of correlated activities started.",
		}),
		completed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: activitySubsystem,
			Name:      activitiesCompleted,
			Help:      "The number of correlated activities stopped.",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: activitySubsystem,
			Name:      activitiesInFlight,
			Help:      "A gauge of correlated activities currently running.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: activitySubsystem,
			Name:      activityDuration,
			Help:      "A histogram of correlated activity durations.",
			Buckets:   durationBuckets,
		}),
		reqTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: httpClientSubsystem,
			Name:      clientRequestsTotal,
			Help:      "A counter for outgoing http requests.",
		}, []string{"code", "method"}),
		reqLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: httpClientSubsystem,
			Name:      clientRequestDuration,
			Help:      "A histogram of latencies for outgoing http requests.",
			Buckets:   durationBuckets,
		}, []string{"code", "method"}),
		reqFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: httpClientSubsystem,
			Name:      clientInFlight,
			Help:      "A gauge of outgoing requests currently being performed.",
		}),
	}
}

// ActivityStarted and ActivityStopped make Metrics a diagnostics listener.
func (m *Metrics) ActivityStarted(context.Context, *correlation.Context) {
	m.started.Inc()
	m.inFlight.Inc()
}

func (m *Metrics) ActivityStopped(_ context.Context, _ *correlation.Context, elapsed time.Duration) {
	m.completed.Inc()
	m.inFlight.Dec()
	m.duration.Observe(elapsed.Seconds())
}

// NewRoundTripper instruments outgoing requests.
func (m *Metrics) NewRoundTripper(next http.RoundTripper) http.RoundTripper {
	rt := next

	rt = promhttp.InstrumentRoundTripperCounter(m.reqTotal, rt)
	rt = promhttp.InstrumentRoundTripperDuration(m.reqLatency, rt)
	return promhttp.InstrumentRoundTripperInFlight(m.reqFlight, rt)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
