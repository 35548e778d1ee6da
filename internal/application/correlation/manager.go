package correlation

import (
	"context"
	"log/slog"

	corecorrelation "3tcapital/correlate/internal/core/correlation"
)

// ManagerOptions are the collaborators of a Manager. ActivityFactory,
// Accessor and IDFactory are required.
type ManagerOptions struct {
	ActivityFactory corecorrelation.ActivityFactory
	Accessor        corecorrelation.Accessor
	IDFactory       corecorrelation.IDFactory

	// Scopes and Diagnostics let the manager skip activities entirely when
	// logging is off and nobody listens. Without Scopes it never skips.
	Scopes      corecorrelation.LoggingScopes
	Diagnostics *Diagnostics
	Logger      *slog.Logger
}

// Manager runs units of work under a correlation id.
type Manager struct {
	activityFactory corecorrelation.ActivityFactory
	accessor        corecorrelation.Accessor
	idFactory       corecorrelation.IDFactory
	scopes          corecorrelation.LoggingScopes
	diagnostics     *Diagnostics
	log             *slog.Logger
}

func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.ActivityFactory == nil {
		return nil, corecorrelation.ErrMissingActivityFactory
	}
	if opts.Accessor == nil {
		return nil, corecorrelation.ErrMissingAccessor
	}
	if opts.IDFactory == nil {
		return nil, corecorrelation.ErrMissingIDFactory
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		activityFactory: opts.ActivityFactory,
		accessor:        opts.Accessor,
		idFactory:       opts.IDFactory,
		scopes:          opts.Scopes,
		diagnostics:     opts.Diagnostics,
		log:             log,
	}, nil
}

// Correlate runs work under correlationID. An empty correlationID continues
// the ambient correlation of ctx, or starts a new one.
//
// If work fails and onError marks the error handled, Correlate returns nil.
// Otherwise the error is returned tagged with the correlation id; see
// corecorrelation.ErrorCorrelationID.
func (m *Manager) Correlate(ctx context.Context, correlationID string, work func(context.Context) error, onError func(*corecorrelation.ErrorContext)) error {
	_, err := CorrelateValue(ctx, m, correlationID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, work(ctx)
	}, adaptErrorHandler(onError))
	return err
}

// CorrelateAsync is Correlate running on its own goroutine.
func (m *Manager) CorrelateAsync(ctx context.Context, correlationID string, work func(context.Context) error, onError func(*corecorrelation.ErrorContext)) *Future[struct{}] {
	return CorrelateValueAsync(ctx, m, correlationID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, work(ctx)
	}, adaptErrorHandler(onError))
}

// CorrelateValue is Correlate for work producing a result. A handler can
// recover from an error by supplying a substitute result.
func CorrelateValue[T any](ctx context.Context, m *Manager, correlationID string, work func(context.Context) (T, error), onError func(*corecorrelation.ResultErrorContext[T])) (T, error) {
	if m.disabled(ctx) {
		result, err := work(ctx)
		if err != nil {
			return handleError(nil, result, err, onError)
		}
		return result, nil
	}

	activity := m.activityFactory.CreateActivity()
	id := m.resolveID(ctx, correlationID)

	workCtx, cc := activity.Start(ctx, id)
	defer activity.Stop()

	result, err := work(workCtx)
	if err != nil {
		if cc == nil {
			cc = &corecorrelation.Context{CorrelationID: id}
		}
		return handleError(cc, result, err, onError)
	}
	return result, nil
}

// CorrelateValueAsync runs CorrelateValue on its own goroutine.
func CorrelateValueAsync[T any](ctx context.Context, m *Manager, correlationID string, work func(context.Context) (T, error), onError func(*corecorrelation.ResultErrorContext[T])) *Future[T] {
	f := newFuture[T]()
	go f.complete(func() (T, error) {
		return CorrelateValue(ctx, m, correlationID, work, onError)
	})
	return f
}

// resolveID picks the supplied id, else the ambient one, else a new one.
func (m *Manager) resolveID(ctx context.Context, correlationID string) string {
	if correlationID != "" {
		return correlationID
	}
	if cc := m.accessor.Current(ctx); cc != nil && cc.CorrelationID != "" {
		return cc.CorrelationID
	}
	return m.idFactory.Create(ctx)
}

func (m *Manager) disabled(ctx context.Context) bool {
	if m.scopes == nil {
		return false
	}
	return !m.scopes.Enabled(ctx) && !m.diagnostics.IsEnabled()
}

// handleError tags err with the active id, unless an inner operation already
// did, and lets onError recover from it.
func handleError[T any](cc *corecorrelation.Context, result T, err error, onError func(*corecorrelation.ResultErrorContext[T])) (T, error) {
	if cc != nil {
		err = corecorrelation.WithCorrelationID(err, cc.CorrelationID)
	}
	if onError != nil {
		ec := &corecorrelation.ResultErrorContext[T]{
			ErrorContext: corecorrelation.ErrorContext{CorrelationContext: cc, Err: err},
		}
		onError(ec)
		if ec.Handled() {
			return ec.Result(), nil
		}
	}
	return result, err
}

func adaptErrorHandler(onError func(*corecorrelation.ErrorContext)) func(*corecorrelation.ResultErrorContext[struct{}]) {
	if onError == nil {
		return nil
	}
	return func(ec *corecorrelation.ResultErrorContext[struct{}]) {
		onError(&ec.ErrorContext)
	}
}
