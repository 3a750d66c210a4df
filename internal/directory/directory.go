// Package directory exposes the doctor and service catalog the booking
// engine depends on. The engine only reads it: appointment duration and the
// expected payment amount both come from the booked service record.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownDoctor   = errors.New("unknown doctor")
	ErrUnknownService  = errors.New("unknown service")
	ErrPatientNotFound = errors.New("patient not found")
)

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type HealthcareService struct {
	ID              uuid.UUID
	DoctorID        uuid.UUID
	Name            string
	DurationMinutes int
	PriceCents      int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Duration is the appointment length derived from the service.
func (s HealthcareService) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

type Directory interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetService(ctx context.Context, id uuid.UUID) (*HealthcareService, error)
}
