package correlation

import "context"

// Future is the pending result of an asynchronous correlated operation.
type Future[T any] struct {
	done     chan struct{}
	result   T
	err      error
	panicked bool
	panicVal any
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(run func() (T, error)) {
	defer close(f.done)
	defer func() {
		if r := recover(); r != nil {
			f.panicked = true
			f.panicVal = r
		}
	}()
	f.result, f.err = run()
}

// Done is closed once the operation finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the operation finishes or ctx is done. A panic raised by
// the operation is re-raised in the caller.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		if f.panicked {
			panic(f.panicVal)
		}
		return f.result, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
