package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is a mutex-guarded in-memory Ledger. The overlap check and
// insert in Create run under one lock acquisition, so it upholds the
// no-overlap invariant on its own even without the doctor lock.
type MemoryLedger struct {
	mu     sync.RWMutex
	appts  map[uuid.UUID]Appointment
	events []AuditEvent
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		appts: make(map[uuid.UUID]Appointment),
	}
}

func overlapsTime(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func (l *MemoryLedger) HasConflict(_ context.Context, doctorID uuid.UUID, start, end time.Time) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.conflictLocked(doctorID, start, end), nil
}

func (l *MemoryLedger) conflictLocked(doctorID uuid.UUID, start, end time.Time) bool {
	for _, a := range l.appts {
		if a.DoctorID == doctorID && a.Status != StatusCancelled && overlapsTime(start, end, a.StartTime, a.EndTime) {
			return true
		}
	}
	return false
}

func (l *MemoryLedger) Create(_ context.Context, appt Appointment) (*Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conflictLocked(appt.DoctorID, appt.StartTime, appt.EndTime) {
		return nil, ErrSlotTaken
	}

	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	appt.Status = StatusBooked
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now()
	}

	l.appts[appt.ID] = appt

	out := appt
	return &out, nil
}

func (l *MemoryLedger) Cancel(_ context.Context, id, patientID uuid.UUID, now time.Time) (*Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.appts[id]
	if !ok || a.PatientID != patientID || a.Status == StatusCancelled || !a.StartTime.After(now) {
		return nil, ErrNotCancellable
	}

	a.Status = StatusCancelled
	l.appts[id] = a

	out := a
	return &out, nil
}

func (l *MemoryLedger) GetForDoctor(_ context.Context, id, doctorID uuid.UUID) (*Appointment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.appts[id]
	if !ok || a.DoctorID != doctorID {
		return nil, ErrAppointmentNotFound
	}

	out := a
	return &out, nil
}

// SetStatus flips an appointment's status in place. The visit ledger uses it
// to fulfil appointments inside its own critical section.
func (l *MemoryLedger) SetStatus(id uuid.UUID, status Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.appts[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.Status = status
	l.appts[id] = a
	return nil
}

func (l *MemoryLedger) ListForDoctorRange(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []Appointment
	for _, a := range l.appts {
		if a.DoctorID == doctorID && a.Status != StatusCancelled && overlapsTime(a.StartTime, a.EndTime, from, to) {
			result = append(result, a)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (l *MemoryLedger) ListForPatient(_ context.Context, patientID uuid.UUID, when string, now time.Time, limit, offset int) ([]Appointment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []Appointment
	for _, a := range l.appts {
		if a.PatientID != patientID {
			continue
		}
		if when == WhenPast {
			if a.StartTime.Before(now) {
				result = append(result, a)
			}
		} else if !a.StartTime.Before(now) {
			result = append(result, a)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if when == WhenPast {
			return result[i].StartTime.After(result[j].StartTime)
		}
		return result[i].StartTime.Before(result[j].StartTime)
	})

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (l *MemoryLedger) InsertEvent(_ context.Context, ev AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev.ID = int64(len(l.events) + 1)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	l.events = append(l.events, ev)
	return nil
}

// Events returns a copy of the recorded audit events.
func (l *MemoryLedger) Events() []AuditEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]AuditEvent, len(l.events))
	copy(out, l.events)
	return out
}

// MemoryDoctorStore is the in-memory doctor directory used in tests.
type MemoryDoctorStore struct {
	mu      sync.RWMutex
	doctors map[uuid.UUID]Doctor
}

func NewMemoryDoctorStore() *MemoryDoctorStore {
	return &MemoryDoctorStore{
		doctors: make(map[uuid.UUID]Doctor),
	}
}

func (s *MemoryDoctorStore) Put(d Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors[d.ID] = d
}

func (s *MemoryDoctorStore) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}

	out := d
	return &out, nil
}

func (s *MemoryDoctorStore) ListDoctors(_ context.Context) ([]Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		result = append(result, d)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FullName < result[j].FullName
	})
	return result, nil
}
