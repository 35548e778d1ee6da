package correlation

import "context"

// Context carries the correlation id of one logical operation.
type Context struct {
	CorrelationID string
}

// Accessor gives access to the correlation context that is current for a
// logical execution branch. The branch is identified by the context.Context it
// runs with, so values survive goroutine hand-offs and never leak into
// siblings forked from the same parent.
type Accessor interface {
	// Current returns the active correlation context, or nil.
	Current(ctx context.Context) *Context

	// Set publishes cc as current. A nil cc restores the value that was
	// current before the most recent non-nil Set.
	Set(ctx context.Context, cc *Context) context.Context
}

// ContextFactory creates correlation contexts and publishes them as current.
type ContextFactory interface {
	Create(ctx context.Context, correlationID string) (context.Context, *Context)
	Dispose(ctx context.Context) context.Context
}
