package booking

import (
	"time"

	"github.com/symptomcheck/scheduling-engine/internal/availability"
)

// intervalsOverlap uses half-open semantics: [a,b) and [c,d) conflict iff
// a < d and c < b. Touching endpoints do not conflict, so back-to-back
// bookings are allowed.
func intervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// IsAdmissible decides whether a candidate slot can become an appointment
// given a doctor's existing appointments. It is a pure predicate over the
// snapshot it is handed; the engine controls when that snapshot is taken
// and under which lock.
func IsAdmissible(candidate availability.Slot, existing []Appointment) bool {
	for _, a := range existing {
		if !a.Blocks() {
			continue
		}
		if intervalsOverlap(candidate.Start, candidate.End(), a.StartTime, a.EndTime) {
			return false
		}
	}
	return true
}
