package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/clinic-scheduler/internal/appointment"
	redisclient "github.com/clinicops/clinic-scheduler/internal/redis"
	"github.com/clinicops/clinic-scheduler/internal/schedule"
	"github.com/clinicops/clinic-scheduler/internal/visit"
)

type apiFixture struct {
	handler  http.Handler
	doctors  *appointment.MemoryDoctorStore
	windows  *schedule.MemoryWindowStore
	ledger   *appointment.MemoryLedger
	doctorID uuid.UUID
	bookDate time.Time
}

// newAPIFixture serves the full router over in-memory stores, with one
// doctor available around the clock one week from now.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	locker := redisclient.NewRedisDoctorLocker(client, 2*time.Second, 5*time.Millisecond)

	doctors := appointment.NewMemoryDoctorStore()
	windows := schedule.NewMemoryWindowStore()
	ledger := appointment.NewMemoryLedger()
	visits := visit.NewMemoryStore(ledger)

	doctorID := uuid.New()
	doctors.Put(appointment.Doctor{ID: doctorID, FullName: "Dr. Ada Vale", SlotMinutes: 30})

	bookDate := time.Now().AddDate(0, 0, 7)
	_, err := windows.Add(context.Background(), doctorID, bookDate.Weekday(), 0, 1439)
	require.NoError(t, err)

	log := zerolog.Nop()
	sched := appointment.NewScheduler(doctors, windows, ledger, locker, log)
	ctrl := visit.NewController(ledger, visits, locker, log)

	handler := NewRouter(RouterConfig{
		Scheduler: sched,
		Visits:    ctrl,
		Logger:    log,
		Env:       "test",
		Version:   "test",
	})

	return &apiFixture{
		handler:  handler,
		doctors:  doctors,
		windows:  windows,
		ledger:   ledger,
		doctorID: doctorID,
		bookDate: bookDate,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) bookBody(patientID uuid.UUID, hhmm string) map[string]string {
	return map[string]string{
		"patient_id": patientID.String(),
		"doctor_id":  f.doctorID.String(),
		"date":       f.bookDate.Format("2006-01-02"),
		"time":       hhmm,
		"visit_type": "in-clinic",
		"reason":     "checkup",
	}
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestBookAppointmentEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	patientID := uuid.New()

	rec := f.do(t, http.MethodPost, "/appointments", f.bookBody(patientID, "09:00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeJSON[AppointmentResponse](t, rec)
	assert.Equal(t, patientID, resp.PatientID)
	assert.Equal(t, f.doctorID, resp.DoctorID)
	assert.Equal(t, "booked", resp.Status)
	assert.Equal(t, 30*time.Minute, resp.EndTime.Sub(resp.StartTime))
}

func TestBookAppointmentValidation(t *testing.T) {
	f := newAPIFixture(t)
	patientID := uuid.New()

	body := f.bookBody(patientID, "09:00")
	body["doctor_id"] = "nope"
	rec := f.do(t, http.MethodPost, "/appointments", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_doctor_id", decodeJSON[ErrorResponse](t, rec).Error)

	body = f.bookBody(patientID, "9 o'clock")
	rec = f.do(t, http.MethodPost, "/appointments", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_time", decodeJSON[ErrorResponse](t, rec).Error)

	body = f.bookBody(patientID, "09:00")
	body["visit_type"] = "telepathy"
	rec = f.do(t, http.MethodPost, "/appointments", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_visit_type", decodeJSON[ErrorResponse](t, rec).Error)
}

func TestBookAppointmentUnaligned(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/appointments", f.bookBody(uuid.New(), "09:15"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "not_aligned_to_slot", decodeJSON[ErrorResponse](t, rec).Error)
}

func TestBookAppointmentConflict(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/appointments", f.bookBody(uuid.New(), "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/appointments", f.bookBody(uuid.New(), "10:00"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_taken", decodeJSON[ErrorResponse](t, rec).Error)
}

func TestBookAppointmentUnknownDoctor(t *testing.T) {
	f := newAPIFixture(t)

	body := f.bookBody(uuid.New(), "09:00")
	body["doctor_id"] = uuid.NewString()
	rec := f.do(t, http.MethodPost, "/appointments", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "doctor_not_found", decodeJSON[ErrorResponse](t, rec).Error)
}

func TestListSlotsEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/appointments", f.bookBody(uuid.New(), "09:00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	path := fmt.Sprintf("/doctors/%s/slots?date=%s", f.doctorID, f.bookDate.Format("2006-01-02"))
	rec = f.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	slots := decodeJSON[[]string](t, rec)
	assert.NotContains(t, slots, "09:00")
	assert.Contains(t, slots, "09:30")
}

func TestListSlotsBadDate(t *testing.T) {
	f := newAPIFixture(t)

	path := fmt.Sprintf("/doctors/%s/slots?date=next-tuesday", f.doctorID)
	rec := f.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelAppointmentEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	patientID := uuid.New()

	rec := f.do(t, http.MethodPost, "/appointments", f.bookBody(patientID, "09:00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	appt := decodeJSON[AppointmentResponse](t, rec)

	cancelPath := fmt.Sprintf("/appointments/%s/cancel", appt.ID)
	body := map[string]string{"patient_id": patientID.String()}

	rec = f.do(t, http.MethodPost, cancelPath, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decodeJSON[AppointmentResponse](t, rec).Status)

	// second cancel and wrong owner both read as not found
	rec = f.do(t, http.MethodPost, cancelPath, body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, cancelPath, map[string]string{"patient_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkingWindowEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	doctorID := uuid.New()
	f.doctors.Put(appointment.Doctor{ID: doctorID, FullName: "Dr. Omar Reyes", SlotMinutes: 20})

	base := fmt.Sprintf("/doctors/%s/working-windows", doctorID)

	rec := f.do(t, http.MethodPost, base, map[string]string{
		"weekday": "mon", "start_time": "09:00", "end_time": "12:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	win := decodeJSON[WorkingWindowResponse](t, rec)
	assert.Equal(t, "mon", win.Weekday)
	assert.Equal(t, "09:00", win.StartTime)

	rec = f.do(t, http.MethodPost, base, map[string]string{
		"weekday": "mon", "start_time": "10:00", "end_time": "11:00",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "overlapping_window", decodeJSON[ErrorResponse](t, rec).Error)

	rec = f.do(t, http.MethodPost, base, map[string]string{
		"weekday": "mon", "start_time": "12:00", "end_time": "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, base, map[string]string{
		"weekday": "someday", "start_time": "09:00", "end_time": "12:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[[]WorkingWindowResponse](t, rec), 1)

	// remove: wrong owner is forbidden, then the owner deletes
	otherDoctorPath := fmt.Sprintf("/doctors/%s/working-windows/%s", uuid.New(), win.ID)
	rec = f.do(t, http.MethodDelete, otherDoctorPath, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("%s/%s", base, win.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("%s/%s", base, win.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVisitEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	patientID := uuid.New()

	rec := f.do(t, http.MethodPost, "/appointments", f.bookBody(patientID, "09:00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	appt := decodeJSON[AppointmentResponse](t, rec)

	startBody := map[string]string{
		"doctor_id":      f.doctorID.String(),
		"appointment_id": appt.ID.String(),
	}
	rec = f.do(t, http.MethodPost, "/visits/start", startBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	started := decodeJSON[VisitResponse](t, rec)
	assert.Equal(t, "in_progress", started.Status)

	completePath := fmt.Sprintf("/visits/%s/complete", appt.ID)
	completeBody := map[string]any{
		"doctor_id": f.doctorID.String(),
		"notes":     "responded well",
		"treatments": []map[string]any{
			{"name": "Cryotherapy", "quantity": 2, "cost": 10.005},
			{"name": "Dressing", "quantity": 1, "cost": 5},
		},
	}
	rec = f.do(t, http.MethodPost, completePath, completeBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decodeJSON[CompleteVisitResponse](t, rec)
	assert.Equal(t, started.ID, done.VisitID)
	assert.Equal(t, "25.01", done.TotalAmount)
	assert.Equal(t, "completed", done.Status)

	// completing again conflicts
	rec = f.do(t, http.MethodPost, completePath, completeBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "visit_not_active", decodeJSON[ErrorResponse](t, rec).Error)

	// patient sees the detail; a stranger gets 404
	detailPath := fmt.Sprintf("/patients/%s/visits/%s", patientID, started.ID)
	rec = f.do(t, http.MethodGet, detailPath, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	strangerPath := fmt.Sprintf("/patients/%s/visits/%s", uuid.New(), started.ID)
	rec = f.do(t, http.MethodGet, strangerPath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// the visit started today, so it shows on today's day sheet
	sheetPath := fmt.Sprintf("/doctors/%s/visits?date=%s", f.doctorID, time.Now().Format("2006-01-02"))
	rec = f.do(t, http.MethodGet, sheetPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sheet := decodeJSON[[]VisitResponse](t, rec)
	require.Len(t, sheet, 1)
	assert.Equal(t, started.ID, sheet[0].ID)
}

func TestStartVisitConflicts(t *testing.T) {
	f := newAPIFixture(t)

	first := f.do(t, http.MethodPost, "/appointments", f.bookBody(uuid.New(), "09:00"))
	require.Equal(t, http.StatusCreated, first.Code)
	second := f.do(t, http.MethodPost, "/appointments", f.bookBody(uuid.New(), "09:30"))
	require.Equal(t, http.StatusCreated, second.Code)

	firstAppt := decodeJSON[AppointmentResponse](t, first)
	secondAppt := decodeJSON[AppointmentResponse](t, second)

	rec := f.do(t, http.MethodPost, "/visits/start", map[string]string{
		"doctor_id": f.doctorID.String(), "appointment_id": firstAppt.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/visits/start", map[string]string{
		"doctor_id": f.doctorID.String(), "appointment_id": secondAppt.ID.String(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "doctor_busy", decodeJSON[ErrorResponse](t, rec).Error)

	rec = f.do(t, http.MethodPost, "/visits/start", map[string]string{
		"doctor_id": f.doctorID.String(), "appointment_id": uuid.NewString(),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "appointment_not_found", decodeJSON[ErrorResponse](t, rec).Error)
}

func TestPatientAppointmentsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	patientID := uuid.New()

	for _, hhmm := range []string{"09:00", "10:00", "11:00"} {
		rec := f.do(t, http.MethodPost, "/appointments", f.bookBody(patientID, hhmm))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	path := fmt.Sprintf("/patients/%s/appointments?when=upcoming&limit=2", patientID)
	rec := f.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	appts := decodeJSON[[]AppointmentResponse](t, rec)
	require.Len(t, appts, 2)
	assert.True(t, appts[0].StartTime.Before(appts[1].StartTime))
}

func TestListDoctorsEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/doctors", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	doctors := decodeJSON[[]DoctorResponse](t, rec)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Dr. Ada Vale", doctors[0].Name)
	assert.Equal(t, 30, doctors[0].SlotMinutes)
}
