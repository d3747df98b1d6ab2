package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// exclusionViolation is raised by the gist exclusion constraint on
// (doctor_id, time range). It is the storage-level backstop for the
// no-overlap invariant when callers bypass the doctor lock.
const exclusionViolation = "23P01"

type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgLedger struct {
	pool pgxPool
}

func NewPgLedger(pool pgxPool) *PgLedger {
	return &PgLedger{pool: pool}
}

const apptColumns = `id, patient_id, doctor_id, start_time, end_time, status, visit_type, reason, notes, created_by, created_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var reason, notes *string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.VisitType,
		&reason,
		&notes,
		&a.CreatedBy,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if reason != nil {
		a.Reason = *reason
	}
	if notes != nil {
		a.Notes = *notes
	}
	return &a, nil
}

func (r *PgLedger) HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND status <> 'cancelled'
			  AND start_time < $3
			  AND end_time > $2
		)
	`, doctorID, start, end).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check conflict: %w", err)
	}
	return exists, nil
}

func (r *PgLedger) Create(ctx context.Context, appt Appointment) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create appointment: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND status <> 'cancelled'
			  AND start_time < $3
			  AND end_time > $2
		)
	`, appt.DoctorID, appt.StartTime, appt.EndTime).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check conflict: %w", err)
	}
	if exists {
		return nil, ErrSlotTaken
	}

	id := appt.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, start_time, end_time, status, visit_type, reason, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, 'booked', $6, $7, $8, $9, now())
		RETURNING `+apptColumns+`
	`, id, appt.PatientID, appt.DoctorID, appt.StartTime, appt.EndTime, appt.VisitType, nullableString(appt.Reason), nullableString(appt.Notes), appt.CreatedBy)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("commit create appointment: %w", err)
	}

	return created, nil
}

func (r *PgLedger) Cancel(ctx context.Context, id, patientID uuid.UUID, now time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled'
		WHERE id = $1
		  AND patient_id = $2
		  AND status <> 'cancelled'
		  AND start_time > $3
		RETURNING `+apptColumns+`
	`, id, patientID, now)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrNotCancellable
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}
	return appt, nil
}

func (r *PgLedger) GetForDoctor(ctx context.Context, id, doctorID uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1 AND doctor_id = $2
	`, id, doctorID)
	return scanAppointment(row)
}

func (r *PgLedger) ListForDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND status <> 'cancelled'
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgLedger) ListForPatient(ctx context.Context, patientID uuid.UUID, when string, now time.Time, limit, offset int) ([]Appointment, error) {
	var query string
	switch when {
	case WhenPast:
		query = `
			SELECT ` + apptColumns + `
			FROM appointments
			WHERE patient_id = $1 AND start_time < $2
			ORDER BY start_time DESC
			LIMIT $3 OFFSET $4
		`
	default:
		query = `
			SELECT ` + apptColumns + `
			FROM appointments
			WHERE patient_id = $1 AND start_time >= $2
			ORDER BY start_time
			LIMIT $3 OFFSET $4
		`
	}

	rows, err := r.pool.Query(ctx, query, patientID, now, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgLedger) InsertEvent(ctx context.Context, ev AuditEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// PgDoctorStore reads the doctor directory.
type PgDoctorStore struct {
	pool pgxPool
}

func NewPgDoctorStore(pool pgxPool) *PgDoctorStore {
	return &PgDoctorStore{pool: pool}
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var specialty *string

	err := row.Scan(
		&d.ID,
		&d.FullName,
		&specialty,
		&d.SlotMinutes,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Specialty = specialty
	return &d, nil
}

func (r *PgDoctorStore) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, full_name, specialty, slot_minutes, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgDoctorStore) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, full_name, specialty, slot_minutes, created_at, updated_at
		FROM doctors
		ORDER BY full_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
