package correlation

import (
	"context"
	"sync"
	"time"

	corecorrelation "3tcapital/correlate/internal/core/correlation"
)

// Listener observes the lifecycle of correlated activities.
type Listener interface {
	ActivityStarted(ctx context.Context, cc *corecorrelation.Context)
	ActivityStopped(ctx context.Context, cc *corecorrelation.Context, elapsed time.Duration)
}

type subscription struct {
	listener Listener
}

// Diagnostics is the registry of activity listeners. Subscribing and
// unsubscribing are safe while activities are being notified; the lock only
// guards the subscriber list.
type Diagnostics struct {
	mu          sync.Mutex
	subscribers []*subscription
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Subscribe registers l and returns a function removing it again.
func (d *Diagnostics) Subscribe(l Listener) (unsubscribe func()) {
	sub := &subscription{listener: l}

	d.mu.Lock()
	next := make([]*subscription, 0, len(d.subscribers)+1)
	next = append(next, d.subscribers...)
	d.subscribers = append(next, sub)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(sub) })
	}
}

func (d *Diagnostics) remove(sub *subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := make([]*subscription, 0, len(d.subscribers))
	for _, s := range d.subscribers {
		if s != sub {
			next = append(next, s)
		}
	}
	d.subscribers = next
}

// IsEnabled reports whether any listener is subscribed.
func (d *Diagnostics) IsEnabled() bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subscribers) > 0
}

func (d *Diagnostics) snapshot() []*subscription {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.subscribers
}

func (d *Diagnostics) activityStarted(ctx context.Context, cc *corecorrelation.Context) {
	for _, s := range d.snapshot() {
		s.listener.ActivityStarted(ctx, cc)
	}
}

func (d *Diagnostics) activityStopped(ctx context.Context, cc *corecorrelation.Context, elapsed time.Duration) {
	for _, s := range d.snapshot() {
		s.listener.ActivityStopped(ctx, cc, elapsed)
	}
}
