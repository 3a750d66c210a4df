package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrAppointmentNotFound = errors.New("appointment not found")

// Repository contains all DB interactions needed by the engine.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListBlockingInRange returns the pending/confirmed appointments for a
	// doctor whose [start,end) interval intersects [from, to). This is the
	// conflict checker's snapshot; the engine calls it under the doctor lock.
	ListBlockingInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// CreatePendingAppointment inserts appt in pending state. The storage
	// layer carries an exclusion constraint on (doctor, interval) as defense
	// in depth; a violation surfaces as ErrSlotTaken.
	CreatePendingAppointment(ctx context.Context, appt Appointment) (*Appointment, error)

	// UpdateAppointmentStatus is a compare-and-swap: it only applies when
	// the row is still in the from status, otherwise ErrAppointmentNotFound.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	SetPaymentTransaction(ctx context.Context, id uuid.UUID, transactionID string) error

	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error)

	// Reconciler sweeps
	FindExpiredPending(ctx context.Context, now time.Time) ([]Appointment, error)
	FindElapsedConfirmed(ctx context.Context, now time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
