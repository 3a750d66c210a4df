package availability

import (
	"iter"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Slot is an ephemeral candidate booking interval. Slots are derived, never
// persisted; they exist only while a booking request is evaluated.
type Slot struct {
	DoctorID uuid.UUID
	Start    time.Time
	Duration time.Duration
}

func (s Slot) End() time.Time {
	return s.Start.Add(s.Duration)
}

// Slots expands a doctor's windows over [from, to) into duration-sized slot
// starts. A slot is emitted only if it fits entirely inside a window
// (start + duration <= window end); there are no partial or overhanging
// slots. The sequence is lazy and restartable, and sorted by start time as
// long as the windows honor the store's no-overlap invariant.
//
// All calendar arithmetic happens in UTC; multi-timezone rendering is the
// caller's concern.
func Slots(doctorID uuid.UUID, windows []Window, from, to time.Time, duration time.Duration) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		if duration <= 0 || !from.Before(to) || len(windows) == 0 {
			return
		}

		from = from.UTC()
		to = to.UTC()

		for day := startOfDay(from); day.Before(to); day = day.AddDate(0, 0, 1) {
			for _, w := range windowsForDay(windows, day.Weekday()) {
				winStart := day.Add(time.Duration(w.StartMinute) * time.Minute)
				winEnd := day.Add(time.Duration(w.EndMinute) * time.Minute)

				for s := winStart; !s.Add(duration).After(winEnd); s = s.Add(duration) {
					if s.Before(from) {
						continue
					}
					if !s.Before(to) {
						break
					}
					if !yield(Slot{DoctorID: doctorID, Start: s, Duration: duration}) {
						return
					}
				}
			}
		}
	}
}

// IsSlotStart reports whether start is a legal slot boundary for the given
// windows and service duration: it must sit on a duration-aligned tick from
// some window's start, and the whole interval must fit inside that window.
func IsSlotStart(windows []Window, start time.Time, duration time.Duration) bool {
	if duration <= 0 {
		return false
	}

	start = start.UTC()
	day := startOfDay(start)
	offset := start.Sub(day)
	end := offset + duration

	for _, w := range windows {
		if !w.AppliesOn(day.Weekday()) {
			continue
		}
		winStart := time.Duration(w.StartMinute) * time.Minute
		winEnd := time.Duration(w.EndMinute) * time.Minute

		if offset < winStart || end > winEnd {
			continue
		}
		if (offset-winStart)%duration == 0 {
			return true
		}
	}
	return false
}

// windowsForDay filters windows covering the weekday and orders them by
// start time, so slots within a single day come out strictly increasing.
func windowsForDay(windows []Window, day time.Weekday) []Window {
	var out []Window
	for _, w := range windows {
		if w.AppliesOn(day) {
			out = append(out, w)
		}
	}
	slices.SortFunc(out, func(a, b Window) int {
		return a.StartMinute - b.StartMinute
	})
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
