package correlation

import "context"

// Scope is an open logging scope.
type Scope interface {
	Close()
}

// LoggingScopes opens structured-logging scopes whose key/value pairs are
// attached to every record logged with the returned context.
type LoggingScopes interface {
	Enabled(ctx context.Context) bool
	BeginScope(ctx context.Context, key, value string) (context.Context, Scope)
}
