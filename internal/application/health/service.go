package health

import (
	"context"
	"time"

	"3tcapital/correlate/internal/core/correlation"
	corehealth "3tcapital/correlate/internal/core/health"
)

// Metadata contains immutable metadata about the running service.
type Metadata struct {
	Service     string
	Version     string
	Environment string
}

// Check probes one dependency. A nil error means the dependency is up.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Service exposes health-check use cases to adapters.
type Service struct {
	meta      Metadata
	accessor  correlation.Accessor
	checks    []Check
	startedAt time.Time
}

// NewService creates the health service. accessor may be nil, in which case
// statuses carry no correlation id.
func NewService(meta Metadata, accessor correlation.Accessor, checks ...Check) *Service {
	return &Service{
		meta:      meta,
		accessor:  accessor,
		checks:    checks,
		startedAt: time.Now().UTC(),
	}
}

// Status returns the current availability snapshot.
func (s *Service) Status(ctx context.Context) corehealth.Status {
	uptime := time.Since(s.startedAt)
	status := corehealth.Status{
		Service:     s.meta.Service,
		Version:     s.meta.Version,
		Environment: s.meta.Environment,
		Status:      corehealth.StatusUp,
		StartedAt:   s.startedAt,
		Uptime:      uptime.String(),
		UptimeSecs:  int64(uptime.Seconds()),
	}

	if s.accessor != nil {
		if cc := s.accessor.Current(ctx); cc != nil {
			status.CorrelationID = cc.CorrelationID
		}
	}

	if len(s.checks) > 0 {
		status.Components = make(map[string]string, len(s.checks))
		for _, c := range s.checks {
			if err := c.Probe(ctx); err != nil {
				status.Components[c.Name] = corehealth.StatusDown
				status.Status = corehealth.StatusDown
				continue
			}
			status.Components[c.Name] = corehealth.StatusUp
		}
	}

	return status
}
