package context

import (
	"context"

	"3tcapital/correlate/internal/core/correlation"
)

// ContextFactory creates correlation contexts and, when bound to an accessor,
// publishes them as current.
type ContextFactory struct {
	accessor correlation.Accessor
}

// NewContextFactory returns a factory publishing through accessor. A nil
// accessor gives a factory that only constructs contexts.
func NewContextFactory(accessor correlation.Accessor) *ContextFactory {
	return &ContextFactory{accessor: accessor}
}

// Create builds the correlation context for correlationID and returns ctx with
// it published as current.
func (f *ContextFactory) Create(ctx context.Context, correlationID string) (context.Context, *correlation.Context) {
	cc := &correlation.Context{CorrelationID: correlationID}
	if f.accessor != nil {
		ctx = f.accessor.Set(ctx, cc)
	}
	return ctx, cc
}

// Dispose clears the value published by Create, restoring the parent.
func (f *ContextFactory) Dispose(ctx context.Context) context.Context {
	if f.accessor == nil {
		return ctx
	}
	return f.accessor.Set(ctx, nil)
}

var _ correlation.ContextFactory = (*ContextFactory)(nil)
