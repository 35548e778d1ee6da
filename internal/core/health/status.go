package health

import "time"

const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// Status captures the state of the service at a moment in time.
type Status struct {
	Service       string            `json:"service"`
	Version       string            `json:"version"`
	Environment   string            `json:"environment"`
	Status        string            `json:"status"`
	StartedAt     time.Time         `json:"startedAt"`
	Uptime        string            `json:"uptime"`
	UptimeSecs    int64             `json:"uptimeSeconds"`
	Components    map[string]string `json:"components,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
}

// Up reports whether the service and all its components are available.
func (s Status) Up() bool {
	return s.Status == StatusUp
}
