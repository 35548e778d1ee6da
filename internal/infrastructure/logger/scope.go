package logger

import (
	"context"
	"log/slog"
	"sync/atomic"

	"3tcapital/correlate/internal/core/correlation"
)

type scopeKey struct{}

// Frame is one open logging scope. Frames form an immutable list through
// parent, newest first.
type Frame struct {
	attrs  []slog.Attr
	parent *Frame
	closed atomic.Bool
}

// Close ends the scope. Records logged afterwards no longer carry its
// attributes, even through a context that still references it.
func (f *Frame) Close() {
	f.closed.Store(true)
}

// BeginScope returns ctx with attrs attached as a new logging scope.
func BeginScope(ctx context.Context, attrs ...slog.Attr) (context.Context, *Frame) {
	parent, _ := ctx.Value(scopeKey{}).(*Frame)
	frame := &Frame{attrs: attrs, parent: parent}
	return context.WithValue(ctx, scopeKey{}, frame), frame
}

// ScopeAttrs returns the attributes of all open scopes in ctx, outermost first.
func ScopeAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var frames []*Frame
	for f, _ := ctx.Value(scopeKey{}).(*Frame); f != nil; f = f.parent {
		if !f.closed.Load() {
			frames = append(frames, f)
		}
	}
	var attrs []slog.Attr
	for i := len(frames) - 1; i >= 0; i-- {
		attrs = append(attrs, frames[i].attrs...)
	}
	return attrs
}

// ScopeHandler decorates records with the attributes of the logging scopes
// open in the record's context.
type ScopeHandler struct {
	next slog.Handler
}

func NewScopeHandler(next slog.Handler) *ScopeHandler {
	return &ScopeHandler{next: next}
}

func (h *ScopeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ScopeHandler) Handle(ctx context.Context, record slog.Record) error {
	if attrs := ScopeAttrs(ctx); len(attrs) > 0 {
		record = record.Clone()
		record.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, record)
}

func (h *ScopeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ScopeHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ScopeHandler) WithGroup(name string) slog.Handler {
	return &ScopeHandler{next: h.next.WithGroup(name)}
}

// Scopes opens correlation logging scopes for a logger.
type Scopes struct {
	log *slog.Logger
}

var _ correlation.LoggingScopes = (*Scopes)(nil)

func NewScopes(log *slog.Logger) *Scopes {
	return &Scopes{log: log}
}

// Enabled reports whether the logger would emit anything at all. Error is
// the threshold because a logger configured for errors only still needs the
// correlation id on the errors it writes; only a logger that is fully off
// (LevelOff or the noop logger) lets the manager skip the activity.
func (s *Scopes) Enabled(ctx context.Context) bool {
	if s.log == nil {
		return false
	}
	return s.log.Enabled(ctx, slog.LevelError)
}

func (s *Scopes) BeginScope(ctx context.Context, key, value string) (context.Context, correlation.Scope) {
	return BeginScope(ctx, slog.String(key, value))
}
