package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func window(startMin, endMin int) WorkingWindow {
	return WorkingWindow{
		ID:       uuid.New(),
		DoctorID: uuid.New(),
		Weekday:  time.Monday,
		StartMin: startMin,
		EndMin:   endMin,
	}
}

func TestAvailableSlots_WalksWindowInIncrements(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC) // a Monday
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	got := AvailableSlots([]WorkingWindow{window(540, 720)}, 30, nil, date, now)

	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}, got)
}

func TestAvailableSlots_SkipsBookedRanges(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	booked := []BookedRange{{StartMin: 570, EndMin: 600}}
	got := AvailableSlots([]WorkingWindow{window(540, 720)}, 30, booked, date, now)

	assert.NotContains(t, got, "09:30")
	assert.Contains(t, got, "09:00")
	assert.Contains(t, got, "10:00")
}

func TestAvailableSlots_SameDayHidesStartedSlots(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	// 10:00 sharp: the 10:00 slot has already started and is hidden too
	now := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)

	got := AvailableSlots([]WorkingWindow{window(540, 720)}, 30, nil, date, now)

	assert.Equal(t, []string{"10:30", "11:00", "11:30"}, got)
}

func TestAvailableSlots_FutureDateIgnoresClock(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 23, 0, 0, 0, time.UTC)

	got := AvailableSlots([]WorkingWindow{window(540, 600)}, 30, nil, date, now)

	assert.Equal(t, []string{"09:00", "09:30"}, got)
}

func TestAvailableSlots_AnchorsToWindowStart(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	// 09:10-10:10 with 30-minute slots: starts land on :10 and :40
	got := AvailableSlots([]WorkingWindow{window(550, 610)}, 30, nil, date, now)

	assert.Equal(t, []string{"09:10", "09:40"}, got)
}

func TestAvailableSlots_SlotMustFitWindow(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	// 20-minute window cannot hold a 30-minute slot
	got := AvailableSlots([]WorkingWindow{window(540, 560)}, 30, nil, date, now)

	assert.Empty(t, got)
}

func TestAvailableSlots_MergesWindowsSorted(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	// afternoon window listed first; output is still chronological
	got := AvailableSlots([]WorkingWindow{window(780, 840), window(540, 600)}, 30, nil, date, now)

	assert.Equal(t, []string{"09:00", "09:30", "13:00", "13:30"}, got)
}

func TestAvailableSlots_NoWindows(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	got := AvailableSlots(nil, 30, nil, date, now)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}
