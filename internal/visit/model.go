package visit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Visit is the clinical encounter record, distinct from the scheduling
// record. AppointmentID is nil for walk-ins recorded by outside systems;
// when set, at most one visit exists per appointment.
type Visit struct {
	ID            uuid.UUID
	AppointmentID *uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	StartTime     time.Time
	EndTime       *time.Time
	Status        Status
	ClinicalNotes string
}

// Treatment is one immutable line item recorded at completion.
// TotalPrice = Quantity × UnitPrice rounded to 2 decimals.
type Treatment struct {
	ID          uuid.UUID
	VisitID     uuid.UUID
	Name        string
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// TreatmentInput is the doctor-submitted line item before pricing.
type TreatmentInput struct {
	Name        string
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
}

// Invoice holds the computed total per visit. Reviewer fields are written by
// the finance system, not by this engine.
type Invoice struct {
	VisitID     uuid.UUID
	TotalAmount decimal.Decimal
	ReviewedBy  *uuid.UUID
	ReviewedAt  *time.Time
}

// Detail is a visit with its line items and invoice, for patient views.
type Detail struct {
	Visit
	Treatments []Treatment
	Invoice    *Invoice
}

// Receipt summarizes a completed visit.
type Receipt struct {
	VisitID       uuid.UUID
	AppointmentID uuid.UUID
	TotalAmount   decimal.Decimal
	Status        Status
}

// PriceTreatments turns submitted line items into priced treatments and the
// invoice total. Line totals and the sum are rounded half-up to 2 decimals.
func PriceTreatments(lines []TreatmentInput) ([]Treatment, decimal.Decimal) {
	treatments := make([]Treatment, 0, len(lines))
	total := decimal.Zero

	for _, ln := range lines {
		qty := ln.Quantity
		if qty <= 0 {
			qty = 1
		}
		lineTotal := ln.UnitPrice.Mul(decimal.NewFromInt(qty)).Round(2)
		treatments = append(treatments, Treatment{
			ID:          uuid.New(),
			Name:        ln.Name,
			Description: ln.Description,
			Quantity:    qty,
			UnitPrice:   ln.UnitPrice,
			TotalPrice:  lineTotal,
		})
		total = total.Add(lineTotal)
	}

	return treatments, total.Round(2)
}
