package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRange      = errors.New("start_time must be before end_time")
	ErrOverlappingWindow = errors.New("overlapping window")
	ErrWindowNotFound    = errors.New("working window not found")
	ErrNotWindowOwner    = errors.New("working window belongs to another doctor")
)

// WindowStore owns a doctor's recurring weekly availability.
type WindowStore interface {
	// Add validates the minute range against the doctor's existing windows
	// for the same weekday and inserts a new window. The validate-then-insert
	// sequence is atomic with respect to other Add calls for the doctor.
	Add(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday, startMin, endMin int) (*WorkingWindow, error)

	// Remove deletes a window; only the owning doctor may do so.
	Remove(ctx context.Context, id, doctorID uuid.UUID) error

	// ForWeekday returns the doctor's windows on one weekday, sorted by start.
	ForWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]WorkingWindow, error)

	// ForDoctor returns every window the doctor has, weekday then start order.
	ForDoctor(ctx context.Context, doctorID uuid.UUID) ([]WorkingWindow, error)
}
