package correlationid

import (
	"context"

	"github.com/google/uuid"

	"3tcapital/correlate/internal/core/correlation"
)

// GUIDFactory generates random (version 4) UUIDs in their canonical
// 36-character form.
type GUIDFactory struct{}

var _ correlation.IDFactory = GUIDFactory{}

func NewGUIDFactory() GUIDFactory {
	return GUIDFactory{}
}

func (GUIDFactory) Create(context.Context) string {
	return uuid.NewString()
}
