package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/clinicops/clinic-scheduler/internal/redis"
	"github.com/clinicops/clinic-scheduler/internal/schedule"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentFulfilled = "APPOINTMENT_FULFILLED"
)

var (
	ErrPastTime            = errors.New("selected time is in the past")
	ErrNoWorkingHours      = errors.New("doctor has no working hours on this day")
	ErrOutsideWorkingHours = errors.New("selected time is outside doctor's working hours")
	ErrNotAlignedToSlot    = errors.New("selected time is not aligned to doctor's slot size")
)

// BookingRequest carries a patient's booking intent. Date is midnight of the
// requested day in the clinic's zone; StartMin is the requested minute of day.
type BookingRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time
	StartMin  int
	VisitType VisitType
	Reason    string
	Notes     string
}

// Scheduler orchestrates slot listing and booking. Creation validates in a
// fixed order (doctor, temporal, window, alignment, conflict) and runs the
// conflict check plus insert under the per-doctor lock.
type Scheduler struct {
	doctors DoctorStore
	windows schedule.WindowStore
	ledger  Ledger
	locker  redisclient.Locker
	log     zerolog.Logger
	now     func() time.Time
}

func NewScheduler(doctors DoctorStore, windows schedule.WindowStore, ledger Ledger, locker redisclient.Locker, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		doctors: doctors,
		windows: windows,
		ledger:  ledger,
		locker:  locker,
		log:     log,
		now:     time.Now,
	}
}

// AvailableSlots lists the open "HH:MM" start times for a doctor on date.
func (s *Scheduler) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	doctor, err := s.doctors.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	windows, err := s.windows.ForWeekday(ctx, doctorID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load working windows: %w", err)
	}
	if len(windows) == 0 {
		return []string{}, nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	booked, err := s.ledger.ListForDoctorRange(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load booked ranges: %w", err)
	}

	ranges := make([]schedule.BookedRange, 0, len(booked))
	for _, a := range booked {
		st := a.StartTime.In(date.Location())
		et := a.EndTime.In(date.Location())
		ranges = append(ranges, schedule.BookedRange{
			StartMin: st.Hour()*60 + st.Minute(),
			EndMin:   et.Hour()*60 + et.Minute(),
		})
	}

	return schedule.AvailableSlots(windows, doctor.SlotMinutes, ranges, dayStart, s.now()), nil
}

// Book creates an appointment. Failure precedence: DoctorNotFound, PastTime,
// NoWorkingHours, OutsideWorkingHours, NotAlignedToSlot, SlotTaken.
func (s *Scheduler) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	doctor, err := s.doctors.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	start := time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), req.StartMin/60, req.StartMin%60, 0, 0, req.Date.Location())
	end := start.Add(time.Duration(doctor.SlotMinutes) * time.Minute)

	if !start.After(s.now()) {
		return nil, ErrPastTime
	}

	windows, err := s.windows.ForWeekday(ctx, req.DoctorID, start.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load working windows: %w", err)
	}
	if len(windows) == 0 {
		return nil, ErrNoWorkingHours
	}

	startMin := req.StartMin
	endMin := startMin + doctor.SlotMinutes

	inside := false
	aligned := false
	for _, w := range windows {
		if w.StartMin <= startMin && endMin <= w.EndMin {
			inside = true
			// Slots anchor to each window's own start, not a fixed clock.
			if (startMin-w.StartMin)%doctor.SlotMinutes == 0 {
				aligned = true
			}
		}
	}
	if !inside {
		return nil, ErrOutsideWorkingHours
	}
	if !aligned {
		return nil, ErrNotAlignedToSlot
	}

	var created *Appointment

	err = s.locker.WithDoctorLock(ctx, req.DoctorID, func(lockCtx context.Context) error {
		conflict, err := s.ledger.HasConflict(lockCtx, req.DoctorID, start, end)
		if err != nil {
			return fmt.Errorf("check conflict: %w", err)
		}
		if conflict {
			return ErrSlotTaken
		}

		appt, err := s.ledger.Create(lockCtx, Appointment{
			PatientID: req.PatientID,
			DoctorID:  req.DoctorID,
			StartTime: start,
			EndTime:   end,
			VisitType: req.VisitType,
			Reason:    req.Reason,
			Notes:     req.Notes,
			CreatedBy: req.PatientID,
		})
		if err != nil {
			return err
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"patient_id": req.PatientID.String(),
			"doctor_id":  req.DoctorID.String(),
			"start_time": start,
			"end_time":   end,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", req.DoctorID.String()).
		Time("start", start).
		Msg("appointment booked")

	return created, nil
}

// Cancel marks a patient's upcoming appointment cancelled. Not-found,
// not-owner, already-cancelled and already-started all surface as
// ErrNotCancellable.
func (s *Scheduler) Cancel(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	appt, err := s.ledger.Cancel(ctx, id, patientID, s.now())
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, appt.ID, EventAppointmentCancelled, map[string]any{
		"patient_id": patientID.String(),
	})

	s.log.Info().
		Str("appointment_id", appt.ID.String()).
		Msg("appointment cancelled")

	return appt, nil
}

// AddWorkingWindow creates a recurring availability window for the doctor.
func (s *Scheduler) AddWorkingWindow(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday, startMin, endMin int) (*schedule.WorkingWindow, error) {
	w, err := s.windows.Add(ctx, doctorID, weekday, startMin, endMin)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("doctor_id", doctorID.String()).
		Int("weekday", int(weekday)).
		Str("start", schedule.FormatHHMM(startMin)).
		Str("end", schedule.FormatHHMM(endMin)).
		Msg("working window added")

	return w, nil
}

// RemoveWorkingWindow deletes one of the doctor's own windows.
func (s *Scheduler) RemoveWorkingWindow(ctx context.Context, id, doctorID uuid.UUID) error {
	return s.windows.Remove(ctx, id, doctorID)
}

// WorkingWindows lists every window a doctor has configured.
func (s *Scheduler) WorkingWindows(ctx context.Context, doctorID uuid.UUID) ([]schedule.WorkingWindow, error) {
	return s.windows.ForDoctor(ctx, doctorID)
}

// Doctors returns the public directory.
func (s *Scheduler) Doctors(ctx context.Context) ([]Doctor, error) {
	return s.doctors.ListDoctors(ctx)
}

// DoctorAgenda lists a doctor's non-cancelled appointments in [from, to).
func (s *Scheduler) DoctorAgenda(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	return s.ledger.ListForDoctorRange(ctx, doctorID, from, to)
}

// PatientAppointments pages a patient's upcoming or past appointments.
func (s *Scheduler) PatientAppointments(ctx context.Context, patientID uuid.UUID, when string, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 25
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.ListForPatient(ctx, patientID, when, s.now(), limit, offset)
}

func (s *Scheduler) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := AuditEvent{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.ledger.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert audit event")
	}
}
