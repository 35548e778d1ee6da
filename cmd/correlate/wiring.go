package main

import (
	"fmt"
	"log/slog"

	"3tcapital/correlate/internal/adapters/correlationid"
	appcorrelation "3tcapital/correlate/internal/application/correlation"
	corecorrelation "3tcapital/correlate/internal/core/correlation"
	"3tcapital/correlate/internal/infrastructure/config"
	ctxutil "3tcapital/correlate/internal/infrastructure/context"
	"3tcapital/correlate/internal/infrastructure/logger"
)

// correlationStack holds the pieces every command shares.
type correlationStack struct {
	accessor    ctxutil.Accessor
	diagnostics *appcorrelation.Diagnostics
	activities  *appcorrelation.ActivityFactory
	ids         corecorrelation.IDFactory
	manager     *appcorrelation.Manager
}

func newCorrelationStack(cfg config.AppConfig, log *slog.Logger) (*correlationStack, error) {
	accessor := ctxutil.NewAccessor()
	scopes := logger.NewScopes(log)
	diagnostics := appcorrelation.NewDiagnostics()

	activities, err := appcorrelation.NewActivityFactory(
		ctxutil.NewContextFactory(accessor),
		scopes,
		diagnostics,
		corecorrelation.Options{LoggingScopeKey: cfg.Correlation.LoggingScopeKey},
	)
	if err != nil {
		return nil, fmt.Errorf("create activity factory: %w", err)
	}

	ids, err := correlationid.New(cfg.Correlation.IDStrategy)
	if err != nil {
		return nil, fmt.Errorf("create id factory: %w", err)
	}

	manager, err := appcorrelation.NewManager(appcorrelation.ManagerOptions{
		ActivityFactory: activities,
		Accessor:        accessor,
		IDFactory:       ids,
		Scopes:          scopes,
		Diagnostics:     diagnostics,
		Logger:          log,
	})
	if err != nil {
		return nil, fmt.Errorf("create correlation manager: %w", err)
	}

	return &correlationStack{
		accessor:    accessor,
		diagnostics: diagnostics,
		activities:  activities,
		ids:         ids,
		manager:     manager,
	}, nil
}
