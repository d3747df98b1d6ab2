package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinic-scheduler/internal/appointment"
	"github.com/clinicops/clinic-scheduler/internal/visit"
)

type RouterConfig struct {
	Scheduler *appointment.Scheduler
	Visits    *visit.Controller
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    zerolog.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(AccessLogMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Get("/doctors", listDoctorsHandler(cfg.Scheduler))
	r.Get("/doctors/{doctorID}/slots", listSlotsHandler(cfg.Scheduler))
	r.Get("/doctors/{doctorID}/appointments", doctorAgendaHandler(cfg.Scheduler))
	r.Get("/doctors/{doctorID}/visits", doctorDaySheetHandler(cfg.Visits))
	r.Get("/doctors/{doctorID}/working-windows", listWorkingWindowsHandler(cfg.Scheduler))
	r.Post("/doctors/{doctorID}/working-windows", addWorkingWindowHandler(cfg.Scheduler))
	r.Delete("/doctors/{doctorID}/working-windows/{id}", removeWorkingWindowHandler(cfg.Scheduler))

	r.Post("/appointments", bookAppointmentHandler(cfg.Scheduler))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Scheduler))
	r.Get("/patients/{patientID}/appointments", patientAppointmentsHandler(cfg.Scheduler))
	r.Get("/patients/{patientID}/visits/{id}", patientVisitDetailHandler(cfg.Visits))

	r.Post("/visits/start", startVisitHandler(cfg.Visits))
	r.Post("/visits/{appointmentID}/complete", completeVisitHandler(cfg.Visits))

	return r
}
