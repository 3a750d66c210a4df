package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the slice of pgxpool.Pool the store needs; pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgStore struct {
	db DB
}

func NewPgStore(db DB) *PgStore {
	return &PgStore{db: db}
}

const windowColumns = `id, doctor_id, weekdays, start_minute, end_minute, created_at, updated_at`

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	var days []int16

	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&days,
		&w.StartMinute,
		&w.EndMinute,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	w.Weekdays = make([]time.Weekday, len(days))
	for i, d := range days {
		w.Weekdays[i] = time.Weekday(d)
	}
	return &w, nil
}

func weekdaysToInt16(days []time.Weekday) []int16 {
	out := make([]int16, len(days))
	for i, d := range days {
		out[i] = int16(d)
	}
	return out
}

func (s *PgStore) GetWindows(ctx context.Context, doctorID uuid.UUID) ([]Window, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE doctor_id = $1
		ORDER BY weekdays[1], start_minute
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// CreateWindow validates the no-overlap invariant against the doctor's
// current windows and inserts inside one transaction, serialized per
// doctor by an advisory lock, so two concurrent authoring requests cannot
// slip past each other.
func (s *PgStore) CreateWindow(ctx context.Context, w Window) (*Window, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create window: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row locks cannot serialize authoring here: a doctor with no windows
	// has no rows to lock, and under READ COMMITTED a concurrent insert
	// stays invisible to this transaction's validation read. The advisory
	// lock is held until commit or rollback.
	if _, err := tx.Exec(ctx, `
		SELECT pg_advisory_xact_lock(hashtextextended($1, 0))
	`, w.DoctorID.String()); err != nil {
		return nil, fmt.Errorf("lock doctor availability: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE doctor_id = $1
	`, w.DoctorID)
	if err != nil {
		return nil, err
	}

	var existing []Window
	for rows.Next() {
		cur, err := scanWindow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		existing = append(existing, *cur)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := ValidateNoOverlap(w, existing); err != nil {
		return nil, err
	}

	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}

	created, err := scanWindow(tx.QueryRow(ctx, `
		INSERT INTO availability_windows (id, doctor_id, weekdays, start_minute, end_minute, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING `+windowColumns+`
	`, w.ID, w.DoctorID, weekdaysToInt16(w.Weekdays), w.StartMinute, w.EndMinute))
	if err != nil {
		return nil, fmt.Errorf("insert window: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create window: %w", err)
	}

	return created, nil
}

func (s *PgStore) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM availability_windows
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}
	return nil
}
