package correlation

import "context"

// Activity is one start/stop bracket bound to a correlation context.
type Activity interface {
	// Start publishes a new correlation context for correlationID and returns
	// the derived context work should run with. The returned *Context is nil
	// when nothing was published because logging and diagnostics are both off.
	Start(ctx context.Context, correlationID string) (context.Context, *Context)

	// Stop releases what Start acquired and returns the context as it was
	// before Start. Stop without Start returns nil; repeated calls are no-ops.
	Stop() context.Context
}

// ActivityFactory creates activities. Hosts can supply their own to decorate
// the default behaviour.
type ActivityFactory interface {
	CreateActivity() Activity
}

// ActivityFactoryFunc adapts a function to ActivityFactory.
type ActivityFactoryFunc func() Activity

func (f ActivityFactoryFunc) CreateActivity() Activity {
	return f()
}
