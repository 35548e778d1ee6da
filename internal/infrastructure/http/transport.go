package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"3tcapital/correlate/internal/core/correlation"
	"3tcapital/correlate/internal/infrastructure/security"
)

// DefaultCorrelationHeader is the header carrying the correlation id on
// outgoing requests unless configured otherwise.
const DefaultCorrelationHeader = "X-Correlation-ID"

// CorrelatingTransport stamps outgoing requests with the correlation id that
// is ambient in the request context and logs each call. A header that is
// already present on the request is left alone.
type CorrelatingTransport struct {
	next     http.RoundTripper
	accessor correlation.Accessor
	header   string
	log      *slog.Logger
}

var _ http.RoundTripper = (*CorrelatingTransport)(nil)

// NewCorrelatingTransport wraps next, http.DefaultTransport when nil.
func NewCorrelatingTransport(next http.RoundTripper, accessor correlation.Accessor, header string, log *slog.Logger) *CorrelatingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if header == "" {
		header = DefaultCorrelationHeader
	}
	if log == nil {
		log = slog.Default()
	}
	return &CorrelatingTransport{next: next, accessor: accessor, header: header, log: log}
}

func (t *CorrelatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	correlationID := req.Header.Get(t.header)
	if correlationID == "" && t.accessor != nil {
		if cc := t.accessor.Current(ctx); cc != nil && cc.CorrelationID != "" {
			correlationID = cc.CorrelationID
			// RoundTrippers must not modify the caller's request.
			req = req.Clone(ctx)
			req.Header.Set(t.header, correlationID)
		}
	}

	operation := extractOperation(req)
	url := security.SanitizeURL(req.URL.String())
	start := time.Now()

	if t.log.Enabled(ctx, slog.LevelDebug) {
		t.log.DebugContext(ctx, "downstream_request",
			"correlation_id", correlationID,
			"operation", operation,
			"method", req.Method,
			"url", url,
			"headers", security.SanitizeHeaders(req.Header),
		)
	}

	resp, err := t.next.RoundTrip(req)

	attrs := []any{
		"correlation_id", correlationID,
		"operation", operation,
		"method", req.Method,
		"url", url,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		t.log.ErrorContext(ctx, "downstream_request_failed", append(attrs, "error", err.Error())...)
		return nil, err
	}

	attrs = append(attrs, "status", resp.StatusCode)
	switch {
	case resp.StatusCode >= 500:
		t.log.ErrorContext(ctx, "downstream_response", attrs...)
	case resp.StatusCode >= 400:
		t.log.WarnContext(ctx, "downstream_response", attrs...)
	default:
		t.log.InfoContext(ctx, "downstream_response", attrs...)
	}
	return resp, nil
}

// extractOperation names a call after the last path segment, or the method
// and host when the path is empty.
func extractOperation(req *http.Request) string {
	parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")
	if last := parts[len(parts)-1]; last != "" {
		return last
	}
	return fmt.Sprintf("%s_%s", req.Method, req.URL.Hostname())
}
