package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/symptomcheck/scheduling-engine/internal/availability"
	"github.com/symptomcheck/scheduling-engine/internal/booking"
)

type CreateAppointmentRequest struct {
	DoctorID  string    `json:"doctor_id" validate:"required,uuid"`
	PatientID string    `json:"patient_id" validate:"required,uuid"`
	ServiceID string    `json:"service_id" validate:"required,uuid"`
	StartTime time.Time `json:"start_time" validate:"required"`
}

type CancelAppointmentRequest struct {
	ActorID string `json:"actor_id" validate:"required,uuid"`
}

type CreateWindowRequest struct {
	Weekdays []int  `json:"weekdays" validate:"required,min=1,dive,gte=0,lte=6"`
	Start    string `json:"start" validate:"required"` // "09:00"
	End      string `json:"end" validate:"required"`   // "17:30"
}

type PaymentNotificationRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	Status        string `json:"status" validate:"required,oneof=SUCCEEDED FAILED"`
	AmountCents   int64  `json:"amount_cents" validate:"gte=0"`
}

type AppointmentResponse struct {
	ID                   uuid.UUID  `json:"id"`
	DoctorID             uuid.UUID  `json:"doctor_id"`
	PatientID            uuid.UUID  `json:"patient_id"`
	ServiceID            uuid.UUID  `json:"service_id"`
	StartTime            time.Time  `json:"start_time"`
	EndTime              time.Time  `json:"end_time"`
	Status               string     `json:"status"`
	PaymentTransactionID *string    `json:"payment_transaction_id,omitempty"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                   a.ID,
		DoctorID:             a.DoctorID,
		PatientID:            a.PatientID,
		ServiceID:            a.ServiceID,
		StartTime:            a.StartTime,
		EndTime:              a.EndTime,
		Status:               string(a.Status),
		PaymentTransactionID: a.PaymentTransactionID,
		ExpiresAt:            a.ExpiresAt,
		CreatedAt:            a.CreatedAt,
	}
}

type SlotResponse struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type WindowResponse struct {
	ID       uuid.UUID `json:"id"`
	DoctorID uuid.UUID `json:"doctor_id"`
	Weekdays []int     `json:"weekdays"`
	Start    string    `json:"start"`
	End      string    `json:"end"`
}

func toWindowResponse(w availability.Window) WindowResponse {
	days := make([]int, len(w.Weekdays))
	for i, d := range w.Weekdays {
		days[i] = int(d)
	}
	return WindowResponse{
		ID:       w.ID,
		DoctorID: w.DoctorID,
		Weekdays: days,
		Start:    minutesToClock(w.StartMinute),
		End:      minutesToClock(w.EndMinute),
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
