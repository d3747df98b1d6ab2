package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusBooked    Status = "booked"
	StatusCancelled Status = "cancelled"
	StatusFulfilled Status = "fulfilled"
)

type VisitType string

const (
	VisitInClinic     VisitType = "in-clinic"
	VisitFollowUp     VisitType = "follow-up"
	VisitConsultation VisitType = "consultation"
)

func ValidVisitType(v VisitType) bool {
	switch v {
	case VisitInClinic, VisitFollowUp, VisitConsultation:
		return true
	}
	return false
}

type Doctor struct {
	ID          uuid.UUID
	FullName    string
	Specialty   *string
	SlotMinutes int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Patient struct {
	ID        uuid.UUID
	FullName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is the scheduling record. End is always Start plus the
// doctor's slot size at creation time. Cancelled and fulfilled are
// terminal states.
type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Status    Status
	VisitType VisitType
	Reason    string
	Notes     string
	CreatedBy uuid.UUID
	CreatedAt time.Time
}

type AuditEvent struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
