package visit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinic-scheduler/internal/appointment"
	redisclient "github.com/clinicops/clinic-scheduler/internal/redis"
)

const (
	EventVisitStarted   = "VISIT_STARTED"
	EventVisitCompleted = "VISIT_COMPLETED"
)

// Controller drives the visit state machine: in_progress on start, completed
// on finish, with the owning appointment fulfilled and an invoice upserted
// alongside. The busy check and create-or-resume in Start run under the
// per-doctor lock so only one visit per doctor can be in progress.
type Controller struct {
	appts  appointment.Ledger
	store  Store
	locker redisclient.Locker
	log    zerolog.Logger
	now    func() time.Time
}

func NewController(appts appointment.Ledger, store Store, locker redisclient.Locker, log zerolog.Logger) *Controller {
	return &Controller{
		appts:  appts,
		store:  store,
		locker: locker,
		log:    log,
		now:    time.Now,
	}
}

// Start opens the visit for one of the doctor's appointments.
func (c *Controller) Start(ctx context.Context, doctorID, appointmentID uuid.UUID) (*Visit, error) {
	appt, err := c.appts.GetForDoctor(ctx, appointmentID, doctorID)
	if err != nil {
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status == appointment.StatusCancelled {
		return nil, ErrAppointmentCancelled
	}

	var started *Visit

	err = c.locker.WithDoctorLock(ctx, doctorID, func(lockCtx context.Context) error {
		active, err := c.store.ActiveForDoctor(lockCtx, doctorID)
		if err != nil && !errors.Is(err, ErrVisitNotFound) {
			return fmt.Errorf("check active visit: %w", err)
		}
		if active != nil {
			return ErrDoctorBusy
		}

		existing, err := c.store.ByAppointment(lockCtx, appointmentID)
		if err != nil && !errors.Is(err, ErrVisitNotFound) {
			return fmt.Errorf("load visit: %w", err)
		}

		if existing == nil {
			apptID := appointmentID
			v, err := c.store.Create(lockCtx, Visit{
				AppointmentID: &apptID,
				PatientID:     appt.PatientID,
				DoctorID:      doctorID,
				StartTime:     c.now(),
				Status:        StatusInProgress,
			})
			if err != nil {
				return fmt.Errorf("create visit: %w", err)
			}
			started = v
			return nil
		}

		switch existing.Status {
		case StatusPlanned, StatusCancelled:
			v, err := c.store.Resume(lockCtx, existing.ID, c.now())
			if err != nil {
				return err
			}
			started = v
			return nil
		default:
			return ErrVisitAlreadyExists
		}
	})
	if err != nil {
		return nil, err
	}

	c.logEvent(ctx, appointmentID, EventVisitStarted, map[string]any{
		"visit_id":  started.ID.String(),
		"doctor_id": doctorID.String(),
	})

	c.log.Info().
		Str("visit_id", started.ID.String()).
		Str("appointment_id", appointmentID.String()).
		Msg("visit started")

	return started, nil
}

// Complete finishes the doctor's active visit for an appointment: records
// the treatments, closes the visit, fulfils the appointment and upserts the
// invoice in one transaction.
func (c *Controller) Complete(ctx context.Context, doctorID, appointmentID uuid.UUID, notes string, lines []TreatmentInput) (*Receipt, error) {
	appt, err := c.appts.GetForDoctor(ctx, appointmentID, doctorID)
	if err != nil {
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	treatments, total := PriceTreatments(lines)

	v, err := c.store.Complete(ctx, appt.ID, c.now(), notes, treatments, total)
	if err != nil {
		return nil, err
	}

	c.logEvent(ctx, appointmentID, EventVisitCompleted, map[string]any{
		"visit_id":     v.ID.String(),
		"total_amount": total.String(),
	})

	c.log.Info().
		Str("visit_id", v.ID.String()).
		Str("appointment_id", appointmentID.String()).
		Str("total_amount", total.String()).
		Msg("visit completed")

	return &Receipt{
		VisitID:       v.ID,
		AppointmentID: appt.ID,
		TotalAmount:   total,
		Status:        v.Status,
	}, nil
}

// PatientVisitDetail returns a visit owned by the patient, with line items
// and invoice.
func (c *Controller) PatientVisitDetail(ctx context.Context, visitID, patientID uuid.UUID) (*Detail, error) {
	return c.store.Detail(ctx, visitID, patientID)
}

// DoctorDaySheet lists the doctor's visits for one calendar day.
func (c *Controller) DoctorDaySheet(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Visit, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)
	return c.store.ListForDoctorDay(ctx, doctorID, from, to)
}

func (c *Controller) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := appointment.AuditEvent{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     c.now(),
	}

	if err := c.appts.InsertEvent(ctx, ev); err != nil {
		c.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert audit event")
	}
}
