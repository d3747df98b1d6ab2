package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrNotCancellable deliberately collapses not-found, not-owner,
	// already-cancelled and already-started so a caller cannot probe for
	// other patients' appointments.
	ErrNotCancellable = errors.New("appointment not found or not cancellable")

	ErrSlotTaken = errors.New("slot already taken")
)

// When filters for patient history listings.
const (
	WhenUpcoming = "upcoming"
	WhenPast     = "past"
)

// DoctorStore resolves doctors and their configured slot size.
type DoctorStore interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
}

// Ledger owns appointment records and the no-overlap invariant. Create is
// atomic with its conflict check; callers additionally serialize per doctor
// through the Locker so two bookings for one slot cannot both commit.
type Ledger interface {
	HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (bool, error)
	Create(ctx context.Context, appt Appointment) (*Appointment, error)
	Cancel(ctx context.Context, id, patientID uuid.UUID, now time.Time) (*Appointment, error)

	GetForDoctor(ctx context.Context, id, doctorID uuid.UUID) (*Appointment, error)

	// ListForDoctorRange returns non-cancelled appointments overlapping
	// [from, to), ordered by start time.
	ListForDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// ListForPatient pages a patient's history; upcoming ascending, past
	// descending by start time.
	ListForPatient(ctx context.Context, patientID uuid.UUID, when string, now time.Time, limit, offset int) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev AuditEvent) error
}
