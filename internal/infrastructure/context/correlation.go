package context

import (
	"context"

	"3tcapital/correlate/internal/core/correlation"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

// scopeKey is the context key under which the correlation scope stack lives.
const scopeKey contextKey = "correlation_scope"

// scope is one cell of an immutable stack of correlation contexts. A nil
// *scope stored under scopeKey means the slot was explicitly cleared.
type scope struct {
	current *correlation.Context
	parent  *scope
}

// Accessor is the correlation.Accessor backed by context.Context values.
// Pushing allocates a new cell and popping returns to the parent cell, so a
// branch can only ever observe its own ancestry.
type Accessor struct{}

var _ correlation.Accessor = Accessor{}

// NewAccessor returns the context-backed accessor.
func NewAccessor() Accessor {
	return Accessor{}
}

// Current returns the correlation context active in ctx, or nil.
func (Accessor) Current(ctx context.Context) *correlation.Context {
	if s := stackOf(ctx); s != nil {
		return s.current
	}
	return nil
}

// Set pushes cc on top of the stack carried by ctx. A nil cc pops the most
// recent value, restoring its parent, or leaves an empty slot when nothing is
// left to restore.
func (Accessor) Set(ctx context.Context, cc *correlation.Context) context.Context {
	s := stackOf(ctx)
	if cc == nil {
		if s == nil {
			return ctx
		}
		return context.WithValue(ctx, scopeKey, s.parent)
	}
	return context.WithValue(ctx, scopeKey, &scope{current: cc, parent: s})
}

// Depth returns how many correlation contexts are stacked in ctx.
func Depth(ctx context.Context) int {
	n := 0
	for s := stackOf(ctx); s != nil; s = s.parent {
		n++
	}
	return n
}

func stackOf(ctx context.Context) *scope {
	s, _ := ctx.Value(scopeKey).(*scope)
	return s
}

// WithCorrelationID adds a correlation ID to the context.
// The correlation ID is used to track a request through the entire system,
// from the initial HTTP request through all outgoing calls.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return Accessor{}.Set(ctx, &correlation.Context{CorrelationID: correlationID})
}

// GetCorrelationID retrieves the correlation ID from the context.
// Returns an empty string if no correlation ID is present.
func GetCorrelationID(ctx context.Context) string {
	if cc := (Accessor{}).Current(ctx); cc != nil {
		return cc.CorrelationID
	}
	return ""
}
