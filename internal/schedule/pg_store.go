package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxPool is the subset of pgxpool.Pool the store needs. pgxmock satisfies
// it in tests.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgWindowStore struct {
	pool pgxPool
}

func NewPgWindowStore(pool pgxPool) *PgWindowStore {
	return &PgWindowStore{pool: pool}
}

func scanWindow(row pgx.Row) (*WorkingWindow, error) {
	var w WorkingWindow
	var weekday int

	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&weekday,
		&w.StartMin,
		&w.EndMin,
		&w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	w.Weekday = time.Weekday(weekday)
	return &w, nil
}

func (s *PgWindowStore) Add(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday, startMin, endMin int) (*WorkingWindow, error) {
	if startMin >= endMin {
		return nil, ErrInvalidRange
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin add window: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row locks keep two concurrent Adds for the same doctor+weekday from
	// both passing the overlap check.
	rows, err := tx.Query(ctx, `
		SELECT id, doctor_id, weekday, start_min, end_min, created_at
		FROM working_windows
		WHERE doctor_id = $1 AND weekday = $2
		FOR UPDATE
	`, doctorID, int(weekday))
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}

	existing, err := collectWindows(rows)
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}

	for _, w := range existing {
		if Overlaps(startMin, endMin, w.StartMin, w.EndMin) {
			return nil, ErrOverlappingWindow
		}
	}

	id := uuid.New()
	row := tx.QueryRow(ctx, `
		INSERT INTO working_windows (id, doctor_id, weekday, start_min, end_min, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, doctor_id, weekday, start_min, end_min, created_at
	`, id, doctorID, int(weekday), startMin, endMin)

	created, err := scanWindow(row)
	if err != nil {
		return nil, fmt.Errorf("insert window: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit add window: %w", err)
	}

	return created, nil
}

func (s *PgWindowStore) Remove(ctx context.Context, id, doctorID uuid.UUID) error {
	var owner uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT doctor_id FROM working_windows WHERE id = $1
	`, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWindowNotFound
		}
		return fmt.Errorf("load window: %w", err)
	}

	if owner != doctorID {
		return ErrNotWindowOwner
	}

	if _, err := s.pool.Exec(ctx, `
		DELETE FROM working_windows WHERE id = $1
	`, id); err != nil {
		return fmt.Errorf("delete window: %w", err)
	}

	return nil
}

func (s *PgWindowStore) ForWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]WorkingWindow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, doctor_id, weekday, start_min, end_min, created_at
		FROM working_windows
		WHERE doctor_id = $1 AND weekday = $2
		ORDER BY start_min
	`, doctorID, int(weekday))
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func (s *PgWindowStore) ForDoctor(ctx context.Context, doctorID uuid.UUID) ([]WorkingWindow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, doctor_id, weekday, start_min, end_min, created_at
		FROM working_windows
		WHERE doctor_id = $1
		ORDER BY weekday, start_min
	`, doctorID)
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func collectWindows(rows pgx.Rows) ([]WorkingWindow, error) {
	defer rows.Close()

	var result []WorkingWindow
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
