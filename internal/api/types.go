package api

import (
	"time"

	"github.com/google/uuid"
)

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // HH:MM
	VisitType string `json:"visit_type"`
	Reason    string `json:"reason,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
	VisitType string    `json:"visit_type"`
	Reason    string    `json:"reason,omitempty"`
}

type CancelAppointmentRequest struct {
	PatientID string `json:"patient_id"`
}

type WorkingWindowRequest struct {
	Weekday   string `json:"weekday"`    // sun..sat
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`   // HH:MM
}

type WorkingWindowResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Weekday   string    `json:"weekday"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}

type DoctorResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Specialty   string    `json:"specialty"`
	SlotMinutes int       `json:"slot_minutes"`
}

type StartVisitRequest struct {
	DoctorID      string `json:"doctor_id"`
	AppointmentID string `json:"appointment_id"`
}

type VisitResponse struct {
	ID        uuid.UUID `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Status    string    `json:"status"`
}

type TreatmentRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    int64   `json:"quantity,omitempty"`
	Cost        float64 `json:"cost,omitempty"`
}

type CompleteVisitRequest struct {
	DoctorID   string             `json:"doctor_id"`
	Notes      string             `json:"notes,omitempty"`
	Treatments []TreatmentRequest `json:"treatments,omitempty"`
}

type CompleteVisitResponse struct {
	VisitID       uuid.UUID `json:"visit_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	TotalAmount   string    `json:"total_amount"`
	Status        string    `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
