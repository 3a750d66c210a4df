package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-06-02 is a Monday.
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func collect(seq func(yield func(Slot) bool)) []Slot {
	var out []Slot
	seq(func(s Slot) bool {
		out = append(out, s)
		return true
	})
	return out
}

func starts(slots []Slot) []time.Time {
	out := make([]time.Time, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start)
	}
	return out
}

func TestSlotsSingleWindow(t *testing.T) {
	doctorID := uuid.New()
	windows := []Window{window([]time.Weekday{time.Monday}, 9*60, 11*60)}

	got := collect(Slots(doctorID, windows, monday, monday.AddDate(0, 0, 1), 30*time.Minute))

	want := []time.Time{
		monday.Add(9 * time.Hour),
		monday.Add(9*time.Hour + 30*time.Minute),
		monday.Add(10 * time.Hour),
		monday.Add(10*time.Hour + 30*time.Minute),
	}
	assert.Equal(t, want, starts(got))

	for _, s := range got {
		assert.Equal(t, doctorID, s.DoctorID)
		assert.Equal(t, 30*time.Minute, s.Duration)
		assert.Equal(t, s.Start.Add(30*time.Minute), s.End())
	}
}

func TestSlotsDurationDoesNotDivideWindow(t *testing.T) {
	// 9:00-11:00 with 45-minute slots: 9:00 and 9:45 fit, 10:30 would end
	// at 11:15 and is dropped.
	windows := []Window{window([]time.Weekday{time.Monday}, 9*60, 11*60)}

	got := collect(Slots(uuid.New(), windows, monday, monday.AddDate(0, 0, 1), 45*time.Minute))

	want := []time.Time{
		monday.Add(9 * time.Hour),
		monday.Add(9*time.Hour + 45*time.Minute),
	}
	assert.Equal(t, want, starts(got))
}

func TestSlotsRangeClipping(t *testing.T) {
	windows := []Window{window([]time.Weekday{time.Monday}, 9*60, 11*60)}

	// from falls mid-window: earlier ticks are skipped, but the grid does
	// not shift.
	from := monday.Add(9*time.Hour + 15*time.Minute)
	got := collect(Slots(uuid.New(), windows, from, monday.AddDate(0, 0, 1), 30*time.Minute))
	want := []time.Time{
		monday.Add(9*time.Hour + 30*time.Minute),
		monday.Add(10 * time.Hour),
		monday.Add(10*time.Hour + 30*time.Minute),
	}
	assert.Equal(t, want, starts(got))

	// to is exclusive: a slot starting exactly at to is not emitted.
	to := monday.Add(10 * time.Hour)
	got = collect(Slots(uuid.New(), windows, monday, to, 30*time.Minute))
	want = []time.Time{
		monday.Add(9 * time.Hour),
		monday.Add(9*time.Hour + 30*time.Minute),
	}
	assert.Equal(t, want, starts(got))
}

func TestSlotsMultipleWindowsAndDays(t *testing.T) {
	windows := []Window{
		window([]time.Weekday{time.Monday, time.Tuesday}, 14*60, 15*60),
		window([]time.Weekday{time.Monday}, 9*60, 10*60),
	}

	got := collect(Slots(uuid.New(), windows, monday, monday.AddDate(0, 0, 2), 30*time.Minute))

	tuesday := monday.AddDate(0, 0, 1)
	want := []time.Time{
		monday.Add(9 * time.Hour),
		monday.Add(9*time.Hour + 30*time.Minute),
		monday.Add(14 * time.Hour),
		monday.Add(14*time.Hour + 30*time.Minute),
		tuesday.Add(14 * time.Hour),
		tuesday.Add(14*time.Hour + 30*time.Minute),
	}
	assert.Equal(t, want, starts(got))

	// Sorted by start within the range.
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Start.Before(got[i].Start))
	}
}

func TestSlotsDegenerateInputs(t *testing.T) {
	windows := []Window{window([]time.Weekday{time.Monday}, 9*60, 11*60)}

	assert.Empty(t, collect(Slots(uuid.New(), windows, monday, monday, 30*time.Minute)))
	assert.Empty(t, collect(Slots(uuid.New(), windows, monday.AddDate(0, 0, 1), monday, 30*time.Minute)))
	assert.Empty(t, collect(Slots(uuid.New(), windows, monday, monday.AddDate(0, 0, 1), 0)))
	assert.Empty(t, collect(Slots(uuid.New(), nil, monday, monday.AddDate(0, 0, 1), 30*time.Minute)))

	// Window shorter than the service duration yields nothing.
	short := []Window{window([]time.Weekday{time.Monday}, 9*60, 9*60+20)}
	assert.Empty(t, collect(Slots(uuid.New(), short, monday, monday.AddDate(0, 0, 1), 30*time.Minute)))
}

func TestSlotsIsRestartable(t *testing.T) {
	windows := []Window{window([]time.Weekday{time.Monday}, 9*60, 11*60)}
	seq := Slots(uuid.New(), windows, monday, monday.AddDate(0, 0, 1), 30*time.Minute)

	first := collect(seq)
	second := collect(seq)
	assert.Equal(t, first, second)

	// Early break stops the producer without a panic.
	var got []Slot
	for s := range seq {
		got = append(got, s)
		if len(got) == 2 {
			break
		}
	}
	require.Len(t, got, 2)
}

func TestIsSlotStart(t *testing.T) {
	windows := []Window{
		window([]time.Weekday{time.Monday}, 9*60, 11*60),
		window([]time.Weekday{time.Monday}, 14*60, 15*60),
	}

	tests := []struct {
		name  string
		start time.Time
		dur   time.Duration
		want  bool
	}{
		{"window start", monday.Add(9 * time.Hour), 30 * time.Minute, true},
		{"aligned tick", monday.Add(10*time.Hour + 30*time.Minute), 30 * time.Minute, true},
		{"last fitting tick", monday.Add(14*time.Hour + 30*time.Minute), 30 * time.Minute, true},
		{"off grid", monday.Add(9*time.Hour + 10*time.Minute), 30 * time.Minute, false},
		{"overhangs window end", monday.Add(10*time.Hour + 45*time.Minute), 30 * time.Minute, false},
		{"ends exactly at window end", monday.Add(10*time.Hour + 30*time.Minute), 30 * time.Minute, true},
		{"wrong weekday", monday.AddDate(0, 0, 1).Add(9 * time.Hour), 30 * time.Minute, false},
		{"before window", monday.Add(8 * time.Hour), 30 * time.Minute, false},
		{"zero duration", monday.Add(9 * time.Hour), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSlotStart(windows, tt.start, tt.dur))
		})
	}
}
