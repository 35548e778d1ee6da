package correlation

import "context"

// IDFactory produces new correlation ids. Implementations must not block and
// must always return a non-empty id.
type IDFactory interface {
	Create(ctx context.Context) string
}

// IDFactoryFunc adapts a function to IDFactory.
type IDFactoryFunc func(ctx context.Context) string

func (f IDFactoryFunc) Create(ctx context.Context) string {
	return f(ctx)
}
