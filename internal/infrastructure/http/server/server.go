package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-multierror"

	"3tcapital/correlate/internal/core/correlation"
	"3tcapital/correlate/internal/infrastructure/config"
	httpinfra "3tcapital/correlate/internal/infrastructure/http"
	"3tcapital/correlate/internal/infrastructure/http/middleware"
)

// Server hosts the HTTP API. Every request runs in a correlated activity.
type Server struct {
	log        *slog.Logger
	httpServer *http.Server
	cfg        config.HTTPSettings

	closeOnce sync.Once
	closers   []func() error
}

// Options wires the server. Logger, HealthHandler, ActivityFactory and
// IDFactory are required; routes without a handler answer 503.
type Options struct {
	Config          config.AppConfig
	Logger          *slog.Logger
	ActivityFactory correlation.ActivityFactory
	IDFactory       correlation.IDFactory

	HealthHandler      http.Handler
	CorrelationHandler http.Handler
	FanoutHandler      http.Handler
	MetricsHandler     http.Handler

	// Closers run on Close, in reverse order of registration.
	Closers []func() error
}

func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.HealthHandler == nil {
		return nil, errors.New("health handler is required")
	}
	if opts.ActivityFactory == nil {
		return nil, correlation.ErrMissingActivityFactory
	}
	if opts.IDFactory == nil {
		return nil, correlation.ErrMissingIDFactory
	}

	cfg := opts.Config
	corrOpts := middleware.CorrelationOptions{
		RequestHeaders:    cfg.Correlation.RequestHeaders,
		IncludeInResponse: cfg.Correlation.IncludeInResponse,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Correlation(opts.ActivityFactory, opts.IDFactory, corrOpts))
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)

	r.Method(http.MethodGet, "/health", opts.HealthHandler)

	if cfg.Metrics.Enabled && opts.MetricsHandler != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, opts.MetricsHandler)
	}

	r.Route("/v1/correlation", func(r chi.Router) {
		r.Use(middleware.RequestTimeout(cfg.HTTP.RequestTimeout))
		r.Method(http.MethodGet, "/", orUnavailable(opts.CorrelationHandler, "correlation", opts.Logger))
		r.Method(http.MethodPost, "/fanout", orUnavailable(opts.FanoutHandler, "fan-out", opts.Logger))
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Address(),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &Server{
		log:        opts.Logger,
		httpServer: srv,
		cfg:        cfg.HTTP,
		closers:    opts.Closers,
	}, nil
}

func orUnavailable(h http.Handler, name string, log *slog.Logger) http.Handler {
	if h != nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpinfra.WriteError(r.Context(), w, http.StatusServiceUnavailable, "Service unavailable",
			[]string{fmt.Sprintf("%s endpoint is not configured", name)}, log)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx := context.Background()
		if s.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.cfg.ShutdownTimeout)
			defer cancel()
		}
		s.log.Info("HTTP server shutting down")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases the registered resources. It is safe to call more than once.
func (s *Server) Close() error {
	var result *multierror.Error
	s.closeOnce.Do(func() {
		for i := len(s.closers) - 1; i >= 0; i-- {
			if err := s.closers[i](); err != nil {
				result = multierror.Append(result, err)
			}
		}
	})
	return result.ErrorOrNil()
}
