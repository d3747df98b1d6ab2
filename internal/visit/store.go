package visit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrVisitNotFound        = errors.New("visit not found")
	ErrVisitNotStarted      = errors.New("visit not started")
	ErrVisitNotActive       = errors.New("visit is not active")
	ErrVisitAlreadyExists   = errors.New("visit already exists for this appointment")
	ErrDoctorBusy           = errors.New("another visit is already in progress for this doctor")
	ErrAppointmentCancelled = errors.New("appointment is cancelled")
)

// Store owns visit, treatment and invoice records.
type Store interface {
	ByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Visit, error)
	ActiveForDoctor(ctx context.Context, doctorID uuid.UUID) (*Visit, error)
	Create(ctx context.Context, v Visit) (*Visit, error)

	// Resume puts a planned or cancelled visit back in progress. Fails with
	// ErrVisitAlreadyExists if the visit moved to another state meanwhile.
	Resume(ctx context.Context, id uuid.UUID, now time.Time) (*Visit, error)

	// Complete performs the completion writes (treatments insert, visit
	// update, appointment fulfilment, invoice upsert) as one atomic unit.
	// A failure partway rolls everything back.
	Complete(ctx context.Context, appointmentID uuid.UUID, endTime time.Time, notes string, treatments []Treatment, total decimal.Decimal) (*Visit, error)

	// Detail returns a patient's visit with treatments and invoice.
	Detail(ctx context.Context, visitID, patientID uuid.UUID) (*Detail, error)

	// ListForDoctorDay returns the doctor's visits started in [from, to).
	ListForDoctorDay(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Visit, error)
}
