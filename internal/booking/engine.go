package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/symptomcheck/scheduling-engine/internal/availability"
	"github.com/symptomcheck/scheduling-engine/internal/config"
	"github.com/symptomcheck/scheduling-engine/internal/directory"
	redisclient "github.com/symptomcheck/scheduling-engine/internal/redis"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventPaymentIgnored       = "PAYMENT_EVENT_IGNORED"
)

var (
	// ErrInvalidSlot means the requested time is not a legally generated
	// slot for the doctor/service. Client error, not retried.
	ErrInvalidSlot = errors.New("requested time is not a bookable slot")
	// ErrSlotTaken means the slot conflicts with a pending or confirmed
	// appointment, or the caller lost a race for it.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrDoctorBusy means the per-doctor lock could not be acquired.
	ErrDoctorBusy = errors.New("doctor schedule is busy, please retry")
	// ErrInvalidTransition is a state machine violation; it is never
	// silently corrected.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Engine owns appointment state transitions. The admissibility check and
// the pending insert happen inside one per-doctor critical section, so two
// concurrent requests for overlapping time can never both succeed.
type Engine struct {
	repo    Repository
	windows availability.Store
	catalog directory.Directory
	locker  redisclient.Locker
	cfg     config.Config
	log     zerolog.Logger
	now     func() time.Time
}

func NewEngine(repo Repository, windows availability.Store, catalog directory.Directory, locker redisclient.Locker, cfg config.Config, log zerolog.Logger) *Engine {
	return &Engine{
		repo:    repo,
		windows: windows,
		catalog: catalog,
		locker:  locker,
		cfg:     cfg,
		log:     log.With().Str("component", "booking").Logger(),
		now:     time.Now,
	}
}

// CreateAppointment validates the requested start against the doctor's
// availability windows, then reserves the slot as a pending appointment
// under the doctor lock.
func (e *Engine) CreateAppointment(ctx context.Context, doctorID, patientID, serviceID uuid.UUID, start time.Time) (*Appointment, error) {
	if _, err := e.catalog.GetDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	if _, err := e.catalog.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}

	svc, err := e.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.DoctorID != doctorID {
		return nil, fmt.Errorf("%w: service %s is not offered by doctor %s", directory.ErrUnknownService, serviceID, doctorID)
	}

	now := e.now()
	start = start.UTC()
	if !start.After(now) {
		return nil, fmt.Errorf("%w: start is in the past", ErrInvalidSlot)
	}
	if start.After(now.AddDate(0, 0, e.cfg.BookingHorizonDays)) {
		return nil, fmt.Errorf("%w: start is beyond the booking horizon", ErrInvalidSlot)
	}

	windows, err := e.windows.GetWindows(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load availability windows: %w", err)
	}

	duration := svc.Duration()
	if !availability.IsSlotStart(windows, start, duration) {
		return nil, ErrInvalidSlot
	}

	slot := availability.Slot{DoctorID: doctorID, Start: start, Duration: duration}

	var created *Appointment

	err = e.locker.WithDoctorLock(ctx, doctorID, func(lockCtx context.Context) error {
		// Inside the critical section re-check against the current
		// blocking appointments.
		existing, err := e.repo.ListBlockingInRange(lockCtx, doctorID, slot.Start, slot.End())
		if err != nil {
			return fmt.Errorf("load blocking appointments: %w", err)
		}
		if !IsAdmissible(slot, existing) {
			return ErrSlotTaken
		}

		expiresAt := now.Add(e.cfg.PaymentWindow)
		appt, err := e.repo.CreatePendingAppointment(lockCtx, Appointment{
			DoctorID:  doctorID,
			PatientID: patientID,
			ServiceID: serviceID,
			StartTime: slot.Start,
			EndTime:   slot.End(),
			ExpiresAt: &expiresAt,
		})
		if err != nil {
			return fmt.Errorf("create pending appointment: %w", err)
		}

		created = appt

		e.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"doctor_id":  doctorID.String(),
			"patient_id": patientID.String(),
			"service_id": serviceID.String(),
			"start_time": slot.Start,
			"expires_at": expiresAt,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDoctorBusy
		}
		return nil, err
	}

	return created, nil
}

// CancelAppointment is allowed from pending, or from confirmed strictly
// before the scheduled start. Anything else is an invalid transition.
func (e *Engine) CancelAppointment(ctx context.Context, id, actorID uuid.UUID) (*Appointment, error) {
	appt, err := e.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch appt.Status {
	case StatusPending:
	case StatusConfirmed:
		if !e.now().Before(appt.StartTime) {
			return nil, fmt.Errorf("%w: confirmed appointment already started", ErrInvalidTransition)
		}
	default:
		return nil, fmt.Errorf("%w: cannot cancel from %s", ErrInvalidTransition, appt.Status)
	}

	updated, err := e.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with another transition.
			return nil, fmt.Errorf("%w: appointment changed state concurrently", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	e.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"reason":   "explicit_cancel",
		"actor_id": actorID.String(),
	})

	return updated, nil
}

// ApplyPaymentEvent drives pending appointments forward from asynchronous
// payment notifications. Events for non-pending appointments are benign
// no-ops: payment providers retry and duplicate.
func (e *Engine) ApplyPaymentEvent(ctx context.Context, ev PaymentEvent) error {
	appt, err := e.repo.GetAppointmentByID(ctx, ev.AppointmentID)
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}

	if appt.Status != StatusPending {
		e.ignorePayment(ctx, ev, "appointment not pending")
		return nil
	}

	// The expiry sweep holds the same lock, so a late confirmation cannot
	// race a timeout cancellation.
	err = e.locker.WithDoctorLock(ctx, appt.DoctorID, func(lockCtx context.Context) error {
		current, err := e.repo.GetAppointmentByID(lockCtx, ev.AppointmentID)
		if err != nil {
			return fmt.Errorf("reload appointment: %w", err)
		}
		if current.Status != StatusPending {
			e.ignorePayment(lockCtx, ev, "appointment not pending")
			return nil
		}

		switch ev.Status {
		case PaymentSucceeded:
			svc, err := e.catalog.GetService(lockCtx, current.ServiceID)
			if err != nil {
				return fmt.Errorf("load service: %w", err)
			}
			if ev.AmountCents != svc.PriceCents {
				e.ignorePayment(lockCtx, ev, "amount does not match service price")
				return nil
			}

			updated, err := e.repo.UpdateAppointmentStatus(lockCtx, current.ID, StatusPending, StatusConfirmed)
			if err != nil {
				return fmt.Errorf("confirm appointment: %w", err)
			}
			if err := e.repo.SetPaymentTransaction(lockCtx, updated.ID, ev.TransactionID); err != nil {
				return fmt.Errorf("record payment transaction: %w", err)
			}

			e.logEvent(lockCtx, updated.ID, EventAppointmentConfirmed, map[string]any{
				"transaction_id": ev.TransactionID,
				"amount_cents":   ev.AmountCents,
			})
			return nil

		case PaymentFailed:
			updated, err := e.repo.UpdateAppointmentStatus(lockCtx, current.ID, StatusPending, StatusCancelled)
			if err != nil {
				return fmt.Errorf("cancel appointment after failed payment: %w", err)
			}

			e.logEvent(lockCtx, updated.ID, EventAppointmentCancelled, map[string]any{
				"reason":         "payment_failed",
				"transaction_id": ev.TransactionID,
			})
			return nil

		default:
			e.ignorePayment(lockCtx, ev, "unknown payment status")
			return nil
		}
	})

	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrDoctorBusy
	}
	return err
}

// ExpireUnpaid cancels pending appointments whose payment window has
// lapsed, freeing their slots. Each cancellation takes the same per-doctor
// lock as booking and confirmation.
func (e *Engine) ExpireUnpaid(ctx context.Context) error {
	candidates, err := e.repo.FindExpiredPending(ctx, e.now())
	if err != nil {
		return fmt.Errorf("find expired pending appointments: %w", err)
	}

	for _, appt := range candidates {
		err := e.locker.WithDoctorLock(ctx, appt.DoctorID, func(lockCtx context.Context) error {
			_, err := e.repo.UpdateAppointmentStatus(lockCtx, appt.ID, StatusPending, StatusCancelled)
			if err != nil {
				if errors.Is(err, ErrAppointmentNotFound) {
					return nil // confirmed or cancelled in the meantime
				}
				return err
			}
			e.logEvent(lockCtx, appt.ID, EventAppointmentCancelled, map[string]any{
				"reason": "payment_timeout",
			})
			return nil
		})
		if err != nil {
			if errors.Is(err, redisclient.ErrLockNotAcquired) {
				continue // next sweep picks it up
			}
			e.log.Error().Err(err).Stringer("appointment_id", appt.ID).Msg("failed to expire appointment")
		}
	}

	return nil
}

// CompleteElapsed moves confirmed appointments whose start has passed to
// completed. Completion never frees or takes a slot, so it runs without
// the doctor lock.
func (e *Engine) CompleteElapsed(ctx context.Context) error {
	candidates, err := e.repo.FindElapsedConfirmed(ctx, e.now())
	if err != nil {
		return fmt.Errorf("find elapsed confirmed appointments: %w", err)
	}

	for _, appt := range candidates {
		_, err := e.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusConfirmed, StatusCompleted)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue
			}
			e.log.Error().Err(err).Stringer("appointment_id", appt.ID).Msg("failed to complete appointment")
			continue
		}
		e.logEvent(ctx, appt.ID, EventAppointmentCompleted, map[string]any{
			"reason": "start_elapsed",
		})
	}

	return nil
}

// OpenSlots is the read side: generated slots for a doctor/service over
// [from, to), minus those conflicting with blocking appointments.
func (e *Engine) OpenSlots(ctx context.Context, doctorID, serviceID uuid.UUID, from, to time.Time) ([]availability.Slot, error) {
	if _, err := e.catalog.GetDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	svc, err := e.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.DoctorID != doctorID {
		return nil, fmt.Errorf("%w: service %s is not offered by doctor %s", directory.ErrUnknownService, serviceID, doctorID)
	}

	now := e.now().UTC()
	if from.Before(now) {
		from = now
	}
	horizon := now.AddDate(0, 0, e.cfg.BookingHorizonDays)
	if to.After(horizon) {
		to = horizon
	}
	if !from.Before(to) {
		return nil, nil
	}

	windows, err := e.windows.GetWindows(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load availability windows: %w", err)
	}

	existing, err := e.repo.ListBlockingInRange(ctx, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load blocking appointments: %w", err)
	}

	var open []availability.Slot
	for slot := range availability.Slots(doctorID, windows, from, to, svc.Duration()) {
		if IsAdmissible(slot, existing) {
			open = append(open, slot)
		}
	}

	return open, nil
}

// GetAppointment retrieves an appointment by ID.
func (e *Engine) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := e.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// ListAppointmentsByPatient retrieves appointments for a specific patient.
func (e *Engine) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	appts, err := e.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appts, nil
}

// ListAppointmentsByDoctor retrieves appointments for a specific doctor.
func (e *Engine) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	appts, err := e.repo.ListByDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return appts, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (e *Engine) ignorePayment(ctx context.Context, ev PaymentEvent, reason string) {
	e.log.Info().
		Str("transaction_id", ev.TransactionID).
		Stringer("appointment_id", ev.AppointmentID).
		Str("status", string(ev.Status)).
		Str("reason", reason).
		Msg("payment event ignored")

	e.logEvent(ctx, ev.AppointmentID, EventPaymentIgnored, map[string]any{
		"transaction_id": ev.TransactionID,
		"status":         string(ev.Status),
		"reason":         reason,
	})
}

func (e *Engine) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		e.log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     e.now(),
	}

	if err := e.repo.InsertEvent(ctx, ev); err != nil {
		e.log.Error().Err(err).
			Str("event_type", eventType).
			Stringer("appointment_id", appointmentID).
			Msg("failed to insert event log")
	}
}
