package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryWindowStore keeps windows in a mutex-guarded map. It enforces the
// same invariants as the Postgres store and backs tests and local runs.
type MemoryWindowStore struct {
	mu      sync.RWMutex
	windows map[uuid.UUID]WorkingWindow
}

func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{
		windows: make(map[uuid.UUID]WorkingWindow),
	}
}

func (s *MemoryWindowStore) Add(_ context.Context, doctorID uuid.UUID, weekday time.Weekday, startMin, endMin int) (*WorkingWindow, error) {
	if startMin >= endMin {
		return nil, ErrInvalidRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.windows {
		if w.DoctorID == doctorID && w.Weekday == weekday && Overlaps(startMin, endMin, w.StartMin, w.EndMin) {
			return nil, ErrOverlappingWindow
		}
	}

	w := WorkingWindow{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		Weekday:   weekday,
		StartMin:  startMin,
		EndMin:    endMin,
		CreatedAt: time.Now(),
	}
	s.windows[w.ID] = w

	out := w
	return &out, nil
}

func (s *MemoryWindowStore) Remove(_ context.Context, id, doctorID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[id]
	if !ok {
		return ErrWindowNotFound
	}
	if w.DoctorID != doctorID {
		return ErrNotWindowOwner
	}

	delete(s.windows, id)
	return nil
}

func (s *MemoryWindowStore) ForWeekday(_ context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]WorkingWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []WorkingWindow
	for _, w := range s.windows {
		if w.DoctorID == doctorID && w.Weekday == weekday {
			result = append(result, w)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartMin < result[j].StartMin
	})
	return result, nil
}

func (s *MemoryWindowStore) ForDoctor(_ context.Context, doctorID uuid.UUID) ([]WorkingWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []WorkingWindow
	for _, w := range s.windows {
		if w.DoctorID == doctorID {
			result = append(result, w)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Weekday != result[j].Weekday {
			return result[i].Weekday < result[j].Weekday
		}
		return result[i].StartMin < result[j].StartMin
	})
	return result, nil
}
