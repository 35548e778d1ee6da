package middleware

import (
	"context"
	"net/http"
	"strings"

	"3tcapital/correlate/internal/core/correlation"
)

// DefaultCorrelationHeader is read from requests and written to responses
// unless other headers are configured.
const DefaultCorrelationHeader = "X-Correlation-ID"

// CorrelationOptions configures the inbound correlation middleware.
type CorrelationOptions struct {
	// RequestHeaders are tried in order; the first non-empty value becomes
	// the correlation id of the request.
	RequestHeaders []string
	// IncludeInResponse echoes the correlation id in a response header.
	IncludeInResponse bool
}

func DefaultCorrelationOptions() CorrelationOptions {
	return CorrelationOptions{
		RequestHeaders:    []string{DefaultCorrelationHeader},
		IncludeInResponse: true,
	}
}

// Correlation runs every request inside a correlated activity. The id comes
// from the first configured request header that is set, otherwise from ids.
func Correlation(activities correlation.ActivityFactory, ids correlation.IDFactory, opts CorrelationOptions) func(http.Handler) http.Handler {
	headers := opts.RequestHeaders
	if len(headers) == 0 {
		headers = []string{DefaultCorrelationHeader}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			correlationID, header := readCorrelationID(r, headers)
			if correlationID == "" {
				correlationID = ids.Create(ctx)
			}

			activity := NewHTTPRequestActivity(activities.CreateActivity(), w, header, opts.IncludeInResponse)
			ctx, _ = activity.Start(ctx, correlationID)
			defer activity.Stop()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// readCorrelationID returns the first non-empty configured header value and
// the header it came from. Without a match the header is the first configured.
func readCorrelationID(r *http.Request, headers []string) (string, string) {
	for _, h := range headers {
		if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
			return v, h
		}
	}
	return "", headers[0]
}

// HTTPRequestActivity wraps the activity of an inbound request and writes the
// correlation id to the response headers when the request starts.
type HTTPRequestActivity struct {
	inner   correlation.Activity
	w       http.ResponseWriter
	header  string
	include bool
}

var _ correlation.Activity = (*HTTPRequestActivity)(nil)

func NewHTTPRequestActivity(inner correlation.Activity, w http.ResponseWriter, header string, include bool) *HTTPRequestActivity {
	return &HTTPRequestActivity{inner: inner, w: w, header: header, include: include}
}

func (a *HTTPRequestActivity) Start(ctx context.Context, correlationID string) (context.Context, *correlation.Context) {
	ctx, cc := a.inner.Start(ctx, correlationID)
	if a.include && correlationID != "" && a.w.Header().Get(a.header) == "" {
		a.w.Header().Set(a.header, correlationID)
	}
	return ctx, cc
}

func (a *HTTPRequestActivity) Stop() context.Context {
	return a.inner.Stop()
}
