package availability

import (
	"context"

	"github.com/google/uuid"
)

// Store holds each doctor's recurring weekly windows. The booking engine
// only ever reads it; writes come from the doctor-profile side and must
// pass the no-overlap check.
type Store interface {
	// GetWindows returns a doctor's windows ordered by first weekday then
	// start time. No windows is an empty slice, not an error.
	GetWindows(ctx context.Context, doctorID uuid.UUID) ([]Window, error)

	CreateWindow(ctx context.Context, w Window) (*Window, error)
	DeleteWindow(ctx context.Context, id uuid.UUID) error
}
