package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgStore struct {
	pool pgxPool
}

func NewPgStore(pool pgxPool) *PgStore {
	return &PgStore{pool: pool}
}

const visitColumns = `id, appointment_id, patient_id, doctor_id, start_time, end_time, status, clinical_notes`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	var notes *string

	err := row.Scan(
		&v.ID,
		&v.AppointmentID,
		&v.PatientID,
		&v.DoctorID,
		&v.StartTime,
		&v.EndTime,
		&v.Status,
		&notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVisitNotFound
		}
		return nil, err
	}

	if notes != nil {
		v.ClinicalNotes = *notes
	}
	return &v, nil
}

func (s *PgStore) ByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Visit, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+visitColumns+`
		FROM visits
		WHERE appointment_id = $1
	`, appointmentID)
	return scanVisit(row)
}

func (s *PgStore) ActiveForDoctor(ctx context.Context, doctorID uuid.UUID) (*Visit, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+visitColumns+`
		FROM visits
		WHERE doctor_id = $1 AND status = 'in_progress'
		LIMIT 1
	`, doctorID)
	return scanVisit(row)
}

func (s *PgStore) Create(ctx context.Context, v Visit) (*Visit, error) {
	id := v.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO visits (id, appointment_id, patient_id, doctor_id, start_time, status, clinical_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+visitColumns+`
	`, id, v.AppointmentID, v.PatientID, v.DoctorID, v.StartTime, v.Status, v.ClinicalNotes)

	created, err := scanVisit(row)
	if err != nil {
		return nil, fmt.Errorf("insert visit: %w", err)
	}
	return created, nil
}

func (s *PgStore) Resume(ctx context.Context, id uuid.UUID, now time.Time) (*Visit, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE visits
		SET status = 'in_progress',
		    start_time = $2,
		    end_time = NULL
		WHERE id = $1
		  AND status IN ('planned', 'cancelled')
		RETURNING `+visitColumns+`
	`, id, now)

	v, err := scanVisit(row)
	if err != nil {
		if errors.Is(err, ErrVisitNotFound) {
			return nil, ErrVisitAlreadyExists
		}
		return nil, fmt.Errorf("resume visit: %w", err)
	}
	return v, nil
}

func (s *PgStore) Complete(ctx context.Context, appointmentID uuid.UUID, endTime time.Time, notes string, treatments []Treatment, total decimal.Decimal) (*Visit, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin complete visit: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+visitColumns+`
		FROM visits
		WHERE appointment_id = $1
		FOR UPDATE
	`, appointmentID)

	v, err := scanVisit(row)
	if err != nil {
		if errors.Is(err, ErrVisitNotFound) {
			return nil, ErrVisitNotStarted
		}
		return nil, fmt.Errorf("load visit: %w", err)
	}
	if v.Status != StatusInProgress {
		return nil, ErrVisitNotActive
	}

	for _, t := range treatments {
		if _, err := tx.Exec(ctx, `
			INSERT INTO treatments (id, visit_id, name, description, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, t.ID, v.ID, t.Name, t.Description, t.Quantity, t.UnitPrice, t.TotalPrice); err != nil {
			return nil, fmt.Errorf("insert treatment: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE visits
		SET status = 'completed',
		    end_time = $2,
		    clinical_notes = $3
		WHERE id = $1
	`, v.ID, endTime, notes); err != nil {
		return nil, fmt.Errorf("update visit: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'fulfilled',
		    notes = $2
		WHERE id = $1
	`, appointmentID, notes); err != nil {
		return nil, fmt.Errorf("fulfil appointment: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO invoices (visit_id, total_amount)
		VALUES ($1, $2)
		ON CONFLICT (visit_id) DO UPDATE
		SET total_amount = EXCLUDED.total_amount,
		    reviewed_by = NULL,
		    reviewed_at = NULL
	`, v.ID, total); err != nil {
		return nil, fmt.Errorf("upsert invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit complete visit: %w", err)
	}

	v.Status = StatusCompleted
	v.EndTime = &endTime
	v.ClinicalNotes = notes
	return v, nil
}

func (s *PgStore) Detail(ctx context.Context, visitID, patientID uuid.UUID) (*Detail, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+visitColumns+`
		FROM visits
		WHERE id = $1 AND patient_id = $2
	`, visitID, patientID)

	v, err := scanVisit(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, visit_id, name, description, quantity, unit_price, total_price
		FROM treatments
		WHERE visit_id = $1
		ORDER BY name
	`, visitID)
	if err != nil {
		return nil, fmt.Errorf("load treatments: %w", err)
	}
	defer rows.Close()

	var treatments []Treatment
	for rows.Next() {
		var t Treatment
		var desc *string
		if err := rows.Scan(&t.ID, &t.VisitID, &t.Name, &desc, &t.Quantity, &t.UnitPrice, &t.TotalPrice); err != nil {
			return nil, err
		}
		if desc != nil {
			t.Description = *desc
		}
		treatments = append(treatments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	detail := &Detail{Visit: *v, Treatments: treatments}

	var inv Invoice
	err = s.pool.QueryRow(ctx, `
		SELECT visit_id, total_amount, reviewed_by, reviewed_at
		FROM invoices
		WHERE visit_id = $1
	`, visitID).Scan(&inv.VisitID, &inv.TotalAmount, &inv.ReviewedBy, &inv.ReviewedAt)
	if err == nil {
		detail.Invoice = &inv
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load invoice: %w", err)
	}

	return detail, nil
}

func (s *PgStore) ListForDoctorDay(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Visit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+visitColumns+`
		FROM visits
		WHERE doctor_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
