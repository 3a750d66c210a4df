package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition can leave this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Appointment is never hard-deleted; cancellation is a status, preserving
// audit history.
type Appointment struct {
	ID                   uuid.UUID
	DoctorID             uuid.UUID
	PatientID            uuid.UUID
	ServiceID            uuid.UUID
	StartTime            time.Time
	EndTime              time.Time
	Status               Status
	PaymentTransactionID *string
	ExpiresAt            *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Blocks reports whether the appointment holds its interval against new
// bookings. Completed and cancelled appointments never block.
func (a Appointment) Blocks() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}

type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// PaymentEvent is an inbound payment notification. Delivery is
// at-least-once with no ordering guarantee; TransactionID is the
// idempotency key.
type PaymentEvent struct {
	TransactionID string
	AppointmentID uuid.UUID
	Status        PaymentStatus
	AmountCents   int64
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
