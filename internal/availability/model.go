package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const minutesPerDay = 24 * 60

var (
	ErrWindowNotFound = errors.New("availability window not found")
	ErrWindowOverlap  = errors.New("availability window overlaps an existing window")
	ErrInvalidWindow  = errors.New("invalid availability window")
)

// Window is a recurring weekly range during which a doctor accepts
// bookings. Times are minutes from midnight, same-day only: a window never
// crosses midnight, and EndMinute is exclusive.
type Window struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	Weekdays    []time.Weekday
	StartMinute int
	EndMinute   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (w Window) Validate() error {
	if len(w.Weekdays) == 0 {
		return fmt.Errorf("%w: weekday set must not be empty", ErrInvalidWindow)
	}
	for _, d := range w.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidWindow, d)
		}
	}
	if w.StartMinute < 0 || w.EndMinute > minutesPerDay {
		return fmt.Errorf("%w: times must fall within a single day", ErrInvalidWindow)
	}
	if w.EndMinute <= w.StartMinute {
		return fmt.Errorf("%w: end must be after start", ErrInvalidWindow)
	}
	return nil
}

// AppliesOn reports whether the window covers the given weekday.
func (w Window) AppliesOn(day time.Weekday) bool {
	for _, d := range w.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// Overlaps reports whether two windows collide in (weekday x time) space.
// Time ranges are half-open, so back-to-back windows do not overlap.
func (w Window) Overlaps(other Window) bool {
	shared := false
	for _, d := range w.Weekdays {
		if other.AppliesOn(d) {
			shared = true
			break
		}
	}
	if !shared {
		return false
	}
	return w.StartMinute < other.EndMinute && other.StartMinute < w.EndMinute
}

// ValidateNoOverlap checks a new or updated window against a doctor's
// existing windows. A window never conflicts with itself, so updates pass
// their own stored copy.
func ValidateNoOverlap(candidate Window, existing []Window) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	for _, w := range existing {
		if w.ID == candidate.ID {
			continue
		}
		if candidate.Overlaps(w) {
			return fmt.Errorf("%w: window %s", ErrWindowOverlap, w.ID)
		}
	}
	return nil
}
