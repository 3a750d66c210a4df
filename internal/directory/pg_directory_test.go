package directory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDirectory(t *testing.T) (*PgDirectory, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgDirectory(mock), mock
}

func TestGetDoctor(t *testing.T) {
	dir, mock := newMockDirectory(t)
	id := uuid.New()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	specialty := "Dermatology"

	mock.ExpectQuery(`SELECT (.+) FROM doctors\s+WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "specialty", "created_at", "updated_at"}).
			AddRow(id, "Dr. Reyes", &specialty, now, now))

	got, err := dir.GetDoctor(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Reyes", got.Name)
	require.NotNil(t, got.Specialty)
	assert.Equal(t, "Dermatology", *got.Specialty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDoctorUnknown(t *testing.T) {
	dir, mock := newMockDirectory(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM doctors`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := dir.GetDoctor(context.Background(), id)
	assert.ErrorIs(t, err, ErrUnknownDoctor)
}

func TestGetPatientUnknown(t *testing.T) {
	dir, mock := newMockDirectory(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM patients`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := dir.GetPatient(context.Background(), id)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestGetService(t *testing.T) {
	dir, mock := newMockDirectory(t)
	id := uuid.New()
	doctorID := uuid.New()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM healthcare_services\s+WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "doctor_id", "name", "duration_minutes", "price_cents", "created_at", "updated_at"}).
			AddRow(id, doctorID, "Consultation", 30, int64(5000), now, now))

	got, err := dir.GetService(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, doctorID, got.DoctorID)
	assert.Equal(t, 30*time.Minute, got.Duration())
	assert.Equal(t, int64(5000), got.PriceCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetServiceUnknown(t *testing.T) {
	dir, mock := newMockDirectory(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM healthcare_services`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := dir.GetService(context.Background(), id)
	assert.ErrorIs(t, err, ErrUnknownService)
}
