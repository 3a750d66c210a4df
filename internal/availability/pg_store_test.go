package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var windowCols = []string{
	"id", "doctor_id", "weekdays", "start_minute", "end_minute", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*PgStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgStore(mock), mock
}

func TestPgStoreGetWindows(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(windowCols).
		AddRow(uuid.New(), doctorID, []int16{1, 3, 5}, 9*60, 12*60, now, now).
		AddRow(uuid.New(), doctorID, []int16{2}, 14*60, 17*60, now, now)

	mock.ExpectQuery(`SELECT (.+) FROM availability_windows\s+WHERE doctor_id = \$1`).
		WithArgs(doctorID).
		WillReturnRows(rows)

	got, err := store.GetWindows(context.Background(), doctorID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, got[0].Weekdays)
	assert.Equal(t, 9*60, got[0].StartMinute)
	assert.Equal(t, []time.Weekday{time.Tuesday}, got[1].Weekdays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreGetWindowsEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM availability_windows`).
		WithArgs(doctorID).
		WillReturnRows(pgxmock.NewRows(windowCols))

	got, err := store.GetWindows(context.Background(), doctorID)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreCreateWindow(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	w := Window{
		DoctorID:    doctorID,
		Weekdays:    []time.Weekday{time.Tuesday},
		StartMinute: 9 * 60,
		EndMinute:   12 * 60,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(doctorID.String()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT (.+) FROM availability_windows\s+WHERE doctor_id = \$1`).
		WithArgs(doctorID).
		WillReturnRows(pgxmock.NewRows(windowCols).
			AddRow(uuid.New(), doctorID, []int16{1}, 9*60, 12*60, now, now))
	mock.ExpectQuery(`INSERT INTO availability_windows`).
		WithArgs(pgxmock.AnyArg(), doctorID, []int16{2}, 9*60, 12*60).
		WillReturnRows(pgxmock.NewRows(windowCols).
			AddRow(uuid.New(), doctorID, []int16{2}, 9*60, 12*60, now, now))
	mock.ExpectCommit()

	created, err := store.CreateWindow(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Tuesday}, created.Weekdays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreCreateWindowOverlapRejected(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	w := Window{
		DoctorID:    doctorID,
		Weekdays:    []time.Weekday{time.Monday},
		StartMinute: 10 * 60,
		EndMinute:   13 * 60,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(doctorID.String()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT (.+) FROM availability_windows\s+WHERE doctor_id = \$1`).
		WithArgs(doctorID).
		WillReturnRows(pgxmock.NewRows(windowCols).
			AddRow(uuid.New(), doctorID, []int16{1}, 9*60, 12*60, now, now))
	mock.ExpectRollback()

	_, err := store.CreateWindow(context.Background(), w)
	assert.ErrorIs(t, err, ErrWindowOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreCreateWindowLocksDoctorBeforeValidation(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	w := Window{
		DoctorID:    doctorID,
		Weekdays:    []time.Weekday{time.Monday},
		StartMinute: 9 * 60,
		EndMinute:   11 * 60,
	}

	// A doctor with zero windows has no rows to lock, so the advisory
	// lock must be taken before the validation read or two concurrent
	// creations would both validate against an empty set.
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(doctorID.String()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT (.+) FROM availability_windows\s+WHERE doctor_id = \$1`).
		WithArgs(doctorID).
		WillReturnRows(pgxmock.NewRows(windowCols))
	mock.ExpectQuery(`INSERT INTO availability_windows`).
		WithArgs(pgxmock.AnyArg(), doctorID, []int16{1}, 9*60, 11*60).
		WillReturnRows(pgxmock.NewRows(windowCols).
			AddRow(uuid.New(), doctorID, []int16{1}, 9*60, 11*60, now, now))
	mock.ExpectCommit()

	_, err := store.CreateWindow(context.Background(), w)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreCreateWindowInvalid(t *testing.T) {
	store, _ := newMockStore(t)

	_, err := store.CreateWindow(context.Background(), Window{
		DoctorID:    uuid.New(),
		Weekdays:    []time.Weekday{time.Monday},
		StartMinute: 12 * 60,
		EndMinute:   9 * 60,
	})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestPgStoreDeleteWindow(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM availability_windows`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, store.DeleteWindow(context.Background(), id))

	mock.ExpectExec(`DELETE FROM availability_windows`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := store.DeleteWindow(context.Background(), id)
	assert.ErrorIs(t, err, ErrWindowNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
