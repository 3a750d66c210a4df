package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/symptomcheck/scheduling-engine/internal/booking"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgProcessedStore records handled transaction IDs in payment_events.
type PgProcessedStore struct {
	db DB
}

func NewPgProcessedStore(db DB) *PgProcessedStore {
	return &PgProcessedStore{db: db}
}

func (s *PgProcessedStore) Seen(ctx context.Context, transactionID string) (bool, error) {
	var one int
	err := s.db.QueryRow(ctx, `
		SELECT 1
		FROM payment_events
		WHERE transaction_id = $1
	`, transactionID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *PgProcessedStore) Mark(ctx context.Context, ev booking.PaymentEvent) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO payment_events (transaction_id, appointment_id, status, processed_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (transaction_id) DO NOTHING
	`, ev.TransactionID, ev.AppointmentID, string(ev.Status))
	if err != nil {
		return fmt.Errorf("mark payment event processed: %w", err)
	}
	return nil
}
