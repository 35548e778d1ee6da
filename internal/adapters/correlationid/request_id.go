package correlationid

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5/middleware"

	"3tcapital/correlate/internal/core/correlation"
)

// Strategy names accepted by New.
const (
	StrategyGUID      = "guid"
	StrategyRequestID = "request_id"
)

// RequestIDFactory reuses the per-request id assigned by chi's RequestID
// middleware, so log lines of the host and of correlated work share an id.
// Outside a request it defers to Fallback.
type RequestIDFactory struct {
	Fallback correlation.IDFactory
}

var _ correlation.IDFactory = (*RequestIDFactory)(nil)

func NewRequestIDFactory(fallback correlation.IDFactory) *RequestIDFactory {
	if fallback == nil {
		fallback = NewGUIDFactory()
	}
	return &RequestIDFactory{Fallback: fallback}
}

func (f *RequestIDFactory) Create(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return f.Fallback.Create(ctx)
}

// New returns the factory for a configured strategy name.
func New(strategy string) (correlation.IDFactory, error) {
	switch strategy {
	case "", StrategyGUID:
		return NewGUIDFactory(), nil
	case StrategyRequestID:
		return NewRequestIDFactory(nil), nil
	default:
		return nil, fmt.Errorf("unknown correlation id strategy %q", strategy)
	}
}
