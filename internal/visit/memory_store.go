package visit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicops/clinic-scheduler/internal/appointment"
)

// MemoryStore is the in-memory Store. Complete flips the owning appointment
// through the injected MemoryLedger under the same lock acquisition, giving
// the same all-or-nothing effect the Postgres transaction provides.
type MemoryStore struct {
	mu         sync.RWMutex
	appts      *appointment.MemoryLedger
	visits     map[uuid.UUID]Visit
	treatments map[uuid.UUID][]Treatment
	invoices   map[uuid.UUID]Invoice
}

func NewMemoryStore(appts *appointment.MemoryLedger) *MemoryStore {
	return &MemoryStore{
		appts:      appts,
		visits:     make(map[uuid.UUID]Visit),
		treatments: make(map[uuid.UUID][]Treatment),
		invoices:   make(map[uuid.UUID]Invoice),
	}
}

func (s *MemoryStore) ByAppointment(_ context.Context, appointmentID uuid.UUID) (*Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byAppointmentLocked(appointmentID)
}

func (s *MemoryStore) byAppointmentLocked(appointmentID uuid.UUID) (*Visit, error) {
	for _, v := range s.visits {
		if v.AppointmentID != nil && *v.AppointmentID == appointmentID {
			out := v
			return &out, nil
		}
	}
	return nil, ErrVisitNotFound
}

func (s *MemoryStore) ActiveForDoctor(_ context.Context, doctorID uuid.UUID) (*Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.visits {
		if v.DoctorID == doctorID && v.Status == StatusInProgress {
			out := v
			return &out, nil
		}
	}
	return nil, ErrVisitNotFound
}

func (s *MemoryStore) Create(_ context.Context, v Visit) (*Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.AppointmentID != nil {
		if _, err := s.byAppointmentLocked(*v.AppointmentID); err == nil {
			return nil, ErrVisitAlreadyExists
		}
	}

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	s.visits[v.ID] = v

	out := v
	return &out, nil
}

func (s *MemoryStore) Resume(_ context.Context, id uuid.UUID, now time.Time) (*Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visits[id]
	if !ok || (v.Status != StatusPlanned && v.Status != StatusCancelled) {
		return nil, ErrVisitAlreadyExists
	}

	v.Status = StatusInProgress
	v.StartTime = now
	v.EndTime = nil
	s.visits[id] = v

	out := v
	return &out, nil
}

func (s *MemoryStore) Complete(_ context.Context, appointmentID uuid.UUID, endTime time.Time, notes string, treatments []Treatment, total decimal.Decimal) (*Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.byAppointmentLocked(appointmentID)
	if err != nil {
		return nil, ErrVisitNotStarted
	}
	if v.Status != StatusInProgress {
		return nil, ErrVisitNotActive
	}

	recorded := make([]Treatment, 0, len(treatments))
	for _, t := range treatments {
		t.VisitID = v.ID
		recorded = append(recorded, t)
	}
	s.treatments[v.ID] = append(s.treatments[v.ID], recorded...)

	v.Status = StatusCompleted
	v.EndTime = &endTime
	v.ClinicalNotes = notes
	s.visits[v.ID] = *v

	s.invoices[v.ID] = Invoice{VisitID: v.ID, TotalAmount: total}

	if err := s.appts.SetStatus(appointmentID, appointment.StatusFulfilled); err != nil {
		return nil, err
	}

	out := *v
	return &out, nil
}

func (s *MemoryStore) Detail(_ context.Context, visitID, patientID uuid.UUID) (*Detail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.visits[visitID]
	if !ok || v.PatientID != patientID {
		return nil, ErrVisitNotFound
	}

	detail := &Detail{Visit: v}
	detail.Treatments = append(detail.Treatments, s.treatments[visitID]...)
	if inv, ok := s.invoices[visitID]; ok {
		out := inv
		detail.Invoice = &out
	}
	return detail, nil
}

func (s *MemoryStore) ListForDoctorDay(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Visit
	for _, v := range s.visits {
		if v.DoctorID == doctorID && !v.StartTime.Before(from) && v.StartTime.Before(to) {
			result = append(result, v)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

// Treatments returns the line items recorded for a visit.
func (s *MemoryStore) Treatments(visitID uuid.UUID) []Treatment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Treatment, len(s.treatments[visitID]))
	copy(out, s.treatments[visitID])
	return out
}

// InvoiceFor returns the invoice upserted for a visit, if any.
func (s *MemoryStore) InvoiceFor(visitID uuid.UUID) (Invoice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[visitID]
	return inv, ok
}
