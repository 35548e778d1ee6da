package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"3tcapital/correlate/internal/infrastructure/logger"
)

// NewTestLogger creates a logger suitable for testing.
func NewTestLogger() *slog.Logger {
	return slog.New(logger.NewScopeHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
}

// NewNullLogger creates a logger that discards all output.
func NewNullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// LogRecord is a flattened slog record.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Recorder captures log records in memory. Loggers built from it carry
// correlation scopes like the production logger does.
type Recorder struct {
	mu      sync.Mutex
	records []LogRecord
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Logger() *slog.Logger {
	return slog.New(logger.NewScopeHandler(&recordingHandler{recorder: r}))
}

// Records returns a copy of everything logged so far.
func (r *Recorder) Records() []LogRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Find returns the first record with the given message.
func (r *Recorder) Find(message string) (LogRecord, bool) {
	for _, rec := range r.Records() {
		if rec.Message == message {
			return rec, true
		}
	}
	return LogRecord{}, false
}

type recordingHandler struct {
	recorder *Recorder
	attrs    []slog.Attr
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	rec := LogRecord{
		Level:   record.Level,
		Message: record.Message,
		Attrs:   make(map[string]any, len(h.attrs)+record.NumAttrs()),
	}
	for _, a := range h.attrs {
		rec.Attrs[a.Key] = a.Value.Resolve().Any()
	}
	record.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.Resolve().Any()
		return true
	})

	h.recorder.mu.Lock()
	h.recorder.records = append(h.recorder.records, rec)
	h.recorder.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &recordingHandler{recorder: h.recorder, attrs: merged}
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }
