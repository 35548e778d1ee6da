package correlation

import (
	"context"
	"sync"
	"time"

	corecorrelation "3tcapital/correlate/internal/core/correlation"
)

// RootActivity publishes a correlation context and opens a logging scope for
// it. When logging is off and nobody listens for diagnostics it publishes
// nothing.
type RootActivity struct {
	contextFactory corecorrelation.ContextFactory
	scopes         corecorrelation.LoggingScopes
	diagnostics    *Diagnostics
	scopeKey       string

	mu       sync.Mutex
	started  bool
	stopped  bool
	parent   context.Context
	ctx      context.Context
	cc       *corecorrelation.Context
	scope    corecorrelation.Scope
	restored context.Context
}

var _ corecorrelation.Activity = (*RootActivity)(nil)

func NewRootActivity(contextFactory corecorrelation.ContextFactory, scopes corecorrelation.LoggingScopes, diagnostics *Diagnostics, opts corecorrelation.Options) *RootActivity {
	return &RootActivity{
		contextFactory: contextFactory,
		scopes:         scopes,
		diagnostics:    diagnostics,
		scopeKey:       opts.ScopeKey(),
	}
}

func (a *RootActivity) Start(ctx context.Context, correlationID string) (context.Context, *corecorrelation.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return a.ctx, a.cc
	}
	a.started = true
	a.parent = ctx
	a.ctx = ctx

	loggingEnabled := a.scopes != nil && a.scopes.Enabled(ctx)
	if !loggingEnabled && !a.diagnostics.IsEnabled() {
		return ctx, nil
	}

	ctx, cc := a.contextFactory.Create(ctx, correlationID)
	if loggingEnabled {
		ctx, a.scope = a.scopes.BeginScope(ctx, a.scopeKey, correlationID)
	}
	a.ctx, a.cc = ctx, cc
	return ctx, cc
}

func (a *RootActivity) Stop() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}
	if a.stopped {
		return a.restored
	}
	a.stopped = true

	if a.scope != nil {
		a.scope.Close()
	}
	if a.cc != nil {
		a.restored = a.contextFactory.Dispose(a.ctx)
	} else {
		a.restored = a.parent
	}
	return a.restored
}

// DiagnosticsActivity reports the lifecycle of the activity it wraps to the
// diagnostics listeners.
type DiagnosticsActivity struct {
	inner       corecorrelation.Activity
	diagnostics *Diagnostics

	mu      sync.Mutex
	ctx     context.Context
	cc      *corecorrelation.Context
	started time.Time
	stopped bool
}

var _ corecorrelation.Activity = (*DiagnosticsActivity)(nil)

func NewDiagnosticsActivity(inner corecorrelation.Activity, diagnostics *Diagnostics) *DiagnosticsActivity {
	return &DiagnosticsActivity{inner: inner, diagnostics: diagnostics}
}

func (a *DiagnosticsActivity) Start(ctx context.Context, correlationID string) (context.Context, *corecorrelation.Context) {
	ctx, cc := a.inner.Start(ctx, correlationID)

	a.mu.Lock()
	first := a.started.IsZero()
	if first {
		a.ctx, a.cc, a.started = ctx, cc, time.Now()
	}
	a.mu.Unlock()

	if first && cc != nil {
		a.diagnostics.activityStarted(ctx, cc)
	}
	return ctx, cc
}

func (a *DiagnosticsActivity) Stop() context.Context {
	restored := a.inner.Stop()

	a.mu.Lock()
	notify := !a.stopped && !a.started.IsZero() && a.cc != nil
	a.stopped = a.stopped || !a.started.IsZero()
	ctx, cc, started := a.ctx, a.cc, a.started
	a.mu.Unlock()

	if notify {
		a.diagnostics.activityStopped(ctx, cc, time.Since(started))
	}
	return restored
}

// ActivityFactory creates the default activity chain: a RootActivity wrapped
// in a DiagnosticsActivity.
type ActivityFactory struct {
	contextFactory corecorrelation.ContextFactory
	scopes         corecorrelation.LoggingScopes
	diagnostics    *Diagnostics
	opts           corecorrelation.Options
}

var _ corecorrelation.ActivityFactory = (*ActivityFactory)(nil)

// NewActivityFactory validates its collaborators. diagnostics may be nil.
func NewActivityFactory(contextFactory corecorrelation.ContextFactory, scopes corecorrelation.LoggingScopes, diagnostics *Diagnostics, opts corecorrelation.Options) (*ActivityFactory, error) {
	if contextFactory == nil {
		return nil, corecorrelation.ErrMissingContextFactory
	}
	if scopes == nil {
		return nil, corecorrelation.ErrMissingLoggingScopes
	}
	return &ActivityFactory{
		contextFactory: contextFactory,
		scopes:         scopes,
		diagnostics:    diagnostics,
		opts:           opts,
	}, nil
}

func (f *ActivityFactory) CreateActivity() corecorrelation.Activity {
	root := NewRootActivity(f.contextFactory, f.scopes, f.diagnostics, f.opts)
	if f.diagnostics == nil {
		return root
	}
	return NewDiagnosticsActivity(root, f.diagnostics)
}
