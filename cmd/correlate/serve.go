package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"3tcapital/correlate/internal/adapters/http/correlation"
	"3tcapital/correlate/internal/adapters/http/health"
	"3tcapital/correlate/internal/adapters/postgres"
	apphealth "3tcapital/correlate/internal/application/health"
	appcorrelation "3tcapital/correlate/internal/application/correlation"
	"3tcapital/correlate/internal/infrastructure/config"
	"3tcapital/correlate/internal/infrastructure/database"
	httpinfra "3tcapital/correlate/internal/infrastructure/http"
	"3tcapital/correlate/internal/infrastructure/http/server"
	"3tcapital/correlate/internal/infrastructure/logger"
	"3tcapital/correlate/internal/infrastructure/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment)

	stack, err := newCorrelationStack(cfg, log)
	if err != nil {
		return err
	}

	var (
		closers []func() error
		checks  []apphealth.Check
	)

	var metricsHandler http.Handler
	var instrument func(http.RoundTripper) http.RoundTripper
	if cfg.Metrics.Enabled {
		m := metrics.New()
		closers = append(closers, unsubscribeCloser(stack.diagnostics.Subscribe(m)))
		metricsHandler = m.Handler()
		instrument = m.NewRoundTripper
		log.Info("Metrics enabled", "path", cfg.Metrics.Path)
	}

	if cfg.Database.Enabled() {
		db, err := connectDatabase(ctx, cfg, stack, log)
		if err != nil {
			log.Warn("Database unavailable, correlated activities will not be stored",
				"error", err,
				"host", cfg.Database.Host,
				"database", cfg.Database.Database,
				"password_set", cfg.Database.Password != "")
		} else {
			closers = append(closers, func() error { db.Close(); return nil })

			store := postgres.NewActivityStore(db, log, 1024)
			storeCtx, stopStore := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				defer close(done)
				store.Run(storeCtx)
			}()
			closers = append(closers, func() error {
				stopStore()
				<-done
				return nil
			})
			closers = append(closers, unsubscribeCloser(stack.diagnostics.Subscribe(store)))

			checks = append(checks, apphealth.Check{Name: "database", Probe: db.Ping})
			log.Info("Database connection established", "database", cfg.Database.Database)
		}
	} else {
		log.Info("Database not configured, correlated activities will not be stored")
	}

	workers := appcorrelation.NewWorkerPool(ctx, cfg.WorkerPool.Size, stack.manager)
	workers.Start()
	closers = append(closers, func() error { workers.Stop(); return nil })

	var client *http.Client
	if cfg.Downstream.URL != "" {
		clientCfg := httpinfra.DefaultClientConfig()
		clientCfg.Timeout = cfg.Downstream.Timeout
		clientCfg.RetryMax = cfg.Downstream.RetryMax
		clientCfg.RetryWaitMin = cfg.Downstream.RetryWaitMin
		clientCfg.RetryWaitMax = cfg.Downstream.RetryWaitMax
		clientCfg.MaxConnsPerHost = min(cfg.WorkerPool.Size, 100)
		clientCfg.Instrument = instrument
		client = httpinfra.NewClient(clientCfg, stack.accessor, log).StandardClient()
		log.Info("Downstream configured", "url", cfg.Downstream.URL)
	}

	correlationHandler, err := correlation.NewHandler(correlation.Options{
		Accessor:      stack.accessor,
		Runner:        workers,
		Client:        client,
		DownstreamURL: cfg.Downstream.URL,
		MaxFanout:     cfg.WorkerPool.MaxJob,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("create correlation handler: %w", err)
	}

	healthService := apphealth.NewService(apphealth.Metadata{
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	}, stack.accessor, checks...)

	srv, err := server.New(server.Options{
		Config:             cfg,
		Logger:             log,
		ActivityFactory:    stack.activities,
		IDFactory:          stack.ids,
		HealthHandler:      http.HandlerFunc(health.NewHandler(healthService).Status),
		CorrelationHandler: http.HandlerFunc(correlationHandler.Current),
		FanoutHandler:      http.HandlerFunc(correlationHandler.Fanout),
		MetricsHandler:     metricsHandler,
		Closers:            closers,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Error("failed to release resources", "error", err)
		}
	}()

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}

// connectDatabase opens the pool with exponential backoff, then migrates it.
// Startup queries run correlated so the tracer tags them.
func connectDatabase(ctx context.Context, cfg config.AppConfig, stack *correlationStack, log *slog.Logger) (*pgxpool.Pool, error) {
	dbCfg := database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Database,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	tracer := postgres.NewQueryTracer(stack.accessor, log, cfg.Database.SlowQuery)
	tries := uint(max(cfg.Database.ConnectRetries, 1))

	pool, err := backoff.Retry(ctx, func() (*pgxpool.Pool, error) {
		p, err := database.NewPool(ctx, dbCfg, tracer)
		if err != nil {
			log.Warn("database connection attempt failed", "error", err)
			return nil, err
		}
		return p, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(tries))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	err = stack.manager.Correlate(ctx, "", func(ctx context.Context) error {
		return database.RunMigrations(ctx, pool, log)
	}, nil)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return pool, nil
}

func unsubscribeCloser(unsubscribe func()) func() error {
	return func() error {
		unsubscribe()
		return nil
	}
}
