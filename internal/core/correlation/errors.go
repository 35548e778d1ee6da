package correlation

import "errors"

// Construction errors. They are returned when a required collaborator is
// missing and are never retried.
var (
	ErrMissingAccessor        = errors.New("correlation context accessor is required")
	ErrMissingContextFactory  = errors.New("correlation context factory is required")
	ErrMissingActivityFactory = errors.New("activity factory is required")
	ErrMissingIDFactory       = errors.New("correlation id factory is required")
	ErrMissingLoggingScopes   = errors.New("logging scopes are required")
)

// Error tags a work error with the correlation id that was active when it
// occurred. Its message is the message of the underlying error.
type Error struct {
	CorrelationID string
	Err           error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithCorrelationID tags err with id unless something in its chain already
// carries a correlation id, in which case err is returned unchanged.
func WithCorrelationID(err error, id string) error {
	if err == nil {
		return nil
	}
	if _, ok := ErrorCorrelationID(err); ok {
		return err
	}
	return &Error{CorrelationID: id, Err: err}
}

// ErrorCorrelationID reports the correlation id attached to err, if any.
func ErrorCorrelationID(err error) (string, bool) {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.CorrelationID, true
	}
	return "", false
}

// ErrorContext describes a failed correlated operation to an error handler.
type ErrorContext struct {
	CorrelationContext *Context
	Err                error

	handled bool
}

// MarkHandled tells the manager to swallow the error.
func (e *ErrorContext) MarkHandled() {
	e.handled = true
}

// Handled reports whether the handler recovered the error.
func (e *ErrorContext) Handled() bool {
	return e.handled
}

// ResultErrorContext is the ErrorContext of an operation that returns a
// value. Recovering with a result marks the error handled.
type ResultErrorContext[T any] struct {
	ErrorContext

	result T
}

// Recover marks the error handled and makes result the operation's return
// value.
func (e *ResultErrorContext[T]) Recover(result T) {
	e.result = result
	e.MarkHandled()
}

// Result returns the substitute result, the zero value unless Recover ran.
func (e *ResultErrorContext[T]) Result() T {
	return e.result
}
