package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicops/clinic-scheduler/internal/appointment"
	redisclient "github.com/clinicops/clinic-scheduler/internal/redis"
	"github.com/clinicops/clinic-scheduler/internal/schedule"
	"github.com/clinicops/clinic-scheduler/internal/visit"
)

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

var weekdayLabels = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

func appointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Status:    string(a.Status),
		VisitType: string(a.VisitType),
		Reason:    a.Reason,
	}
}

func windowResponse(w *schedule.WorkingWindow) WorkingWindowResponse {
	return WorkingWindowResponse{
		ID:        w.ID,
		DoctorID:  w.DoctorID,
		Weekday:   weekdayLabels[int(w.Weekday)],
		StartTime: schedule.FormatHHMM(w.StartMin),
		EndTime:   schedule.FormatHHMM(w.EndMin),
	}
}

func listDoctorsHandler(svc *appointment.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.Doctors(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			specialty := ""
			if d.Specialty != nil {
				specialty = *d.Specialty
			}
			resp = append(resp, DoctorResponse{
				ID:          d.ID,
				Name:        d.FullName,
				Specialty:   specialty,
				SlotMinutes: d.SlotMinutes,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listSlotsHandler(svc *appointment.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		date, err := parseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.AvailableSlots(r.Context(), doctorID, date)
		if err != nil {
			if errors.Is(err, appointment.ErrDoctorNotFound) {
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, slots)
	}
}

func bookAppointmentHandler(svc *appointment.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		startMin, err := schedule.ParseHHMM(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "time must be HH:MM")
			return
		}
		visitType := appointment.VisitType(req.VisitType)
		if !appointment.ValidVisitType(visitType) {
			writeError(w, http.StatusBadRequest, "invalid_visit_type", "visit_type must be in-clinic, follow-up or consultation")
			return
		}

		appt, err := svc.Book(r.Context(), appointment.BookingRequest{
			PatientID: patientID,
			DoctorID:  doctorID,
			Date:      date,
			StartMin:  startMin,
			VisitType: visitType,
			Reason:    req.Reason,
			Notes:     req.Notes,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appointmentResponse(appt))
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrPastTime):
		writeError(w, http.StatusBadRequest, "time_in_past", err.Error())
	case errors.Is(err, appointment.ErrNoWorkingHours):
		writeError(w, http.StatusBadRequest, "no_working_hours", err.Error())
	case errors.Is(err, appointment.ErrOutsideWorkingHours):
		writeError(w, http.StatusBadRequest, "outside_working_hours", err.Error())
	case errors.Is(err, appointment.ErrNotAlignedToSlot):
		writeError(w, http.StatusBadRequest, "not_aligned_to_slot", err.Error())
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func cancelAppointmentHandler(svc *appointment.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req CancelAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		appt, err := svc.Cancel(r.Context(), id, patientID)
		if err != nil {
			if errors.Is(err, appointment.ErrNotCancellable) {
				writeError(w, http.StatusNotFound, "not_cancellable", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func patientAppointmentsHandler(svc *appointment.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}

		when := r.URL.Query().Get("when")
		if when == "" {
			when = appointment.WhenUpcoming
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		appts, err := svc.PatientAppointments(r.Context(), patientID, when, limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, appointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func doctorAgendaHandler(svc *appointment.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		from, err := parseDate(r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
			return
		}
		to, err := parseDate(r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
			return
		}

		appts, err := svc.DoctorAgenda(r.Context(), doctorID, from, to.AddDate(0, 0, 1))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, appointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func addWorkingWindowHandler(svc *appointment.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		var req WorkingWindowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		weekday, ok := weekdayNames[req.Weekday]
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_weekday", "weekday must be one of sun..sat")
			return
		}
		startMin, err := schedule.ParseHHMM(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
			return
		}
		endMin, err := schedule.ParseHHMM(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM")
			return
		}

		win, err := svc.AddWorkingWindow(r.Context(), doctorID, weekday, startMin, endMin)
		if err != nil {
			switch {
			case errors.Is(err, schedule.ErrInvalidRange):
				writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
			case errors.Is(err, schedule.ErrOverlappingWindow):
				writeError(w, http.StatusConflict, "overlapping_window", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusCreated, windowResponse(win))
	}
}

func removeWorkingWindowHandler(svc *appointment.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window_id", "id must be a valid UUID")
			return
		}

		if err := svc.RemoveWorkingWindow(r.Context(), id, doctorID); err != nil {
			switch {
			case errors.Is(err, schedule.ErrWindowNotFound):
				writeError(w, http.StatusNotFound, "window_not_found", err.Error())
			case errors.Is(err, schedule.ErrNotWindowOwner):
				writeError(w, http.StatusForbidden, "forbidden", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func listWorkingWindowsHandler(svc *appointment.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		windows, err := svc.WorkingWindows(r.Context(), doctorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]WorkingWindowResponse, 0, len(windows))
		for i := range windows {
			resp = append(resp, windowResponse(&windows[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func startVisitHandler(ctrl *visit.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartVisitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		appointmentID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}

		v, err := ctrl.Start(r.Context(), doctorID, appointmentID)
		if err != nil {
			handleVisitError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, VisitResponse{
			ID:        v.ID,
			StartedAt: v.StartTime,
			Status:    string(v.Status),
		})
	}
}

func completeVisitHandler(ctrl *visit.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointmentID must be a valid UUID")
			return
		}

		var req CompleteVisitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		lines := make([]visit.TreatmentInput, 0, len(req.Treatments))
		for _, t := range req.Treatments {
			lines = append(lines, visit.TreatmentInput{
				Name:        t.Name,
				Description: t.Description,
				Quantity:    t.Quantity,
				UnitPrice:   decimal.NewFromFloat(t.Cost),
			})
		}

		receipt, err := ctrl.Complete(r.Context(), doctorID, appointmentID, req.Notes, lines)
		if err != nil {
			handleVisitError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CompleteVisitResponse{
			VisitID:       receipt.VisitID,
			AppointmentID: receipt.AppointmentID,
			TotalAmount:   receipt.TotalAmount.StringFixed(2),
			Status:        string(receipt.Status),
		})
	}
}

func handleVisitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, visit.ErrAppointmentCancelled):
		writeError(w, http.StatusConflict, "appointment_cancelled", err.Error())
	case errors.Is(err, visit.ErrDoctorBusy):
		writeError(w, http.StatusConflict, "doctor_busy", err.Error())
	case errors.Is(err, visit.ErrVisitAlreadyExists):
		writeError(w, http.StatusConflict, "visit_already_exists", err.Error())
	case errors.Is(err, visit.ErrVisitNotStarted):
		writeError(w, http.StatusConflict, "visit_not_started", err.Error())
	case errors.Is(err, visit.ErrVisitNotActive):
		writeError(w, http.StatusConflict, "visit_not_active", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "doctor_locked", "doctor is busy, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func doctorDaySheetHandler(ctrl *visit.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		day, err := parseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		visits, err := ctrl.DoctorDaySheet(r.Context(), doctorID, day)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]VisitResponse, 0, len(visits))
		for _, v := range visits {
			resp = append(resp, VisitResponse{
				ID:        v.ID,
				StartedAt: v.StartTime,
				Status:    string(v.Status),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func patientVisitDetailHandler(ctrl *visit.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}
		visitID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_visit_id", "id must be a valid UUID")
			return
		}

		detail, err := ctrl.PatientVisitDetail(r.Context(), visitID, patientID)
		if err != nil {
			if errors.Is(err, visit.ErrVisitNotFound) {
				writeError(w, http.StatusNotFound, "visit_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, detail)
	}
}
