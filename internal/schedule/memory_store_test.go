package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryWindowStore_AddRejectsInvalidRange(t *testing.T) {
	store := NewMemoryWindowStore()

	_, err := store.Add(context.Background(), uuid.New(), time.Monday, 600, 540)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = store.Add(context.Background(), uuid.New(), time.Monday, 540, 540)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestMemoryWindowStore_AddRejectsOverlap(t *testing.T) {
	store := NewMemoryWindowStore()
	doctorID := uuid.New()

	_, err := store.Add(context.Background(), doctorID, time.Monday, 540, 720)
	require.NoError(t, err)

	_, err = store.Add(context.Background(), doctorID, time.Monday, 600, 660)
	assert.ErrorIs(t, err, ErrOverlappingWindow)

	// adjacent is fine, ranges are half-open
	_, err = store.Add(context.Background(), doctorID, time.Monday, 720, 780)
	assert.NoError(t, err)

	// same minutes on another weekday is fine
	_, err = store.Add(context.Background(), doctorID, time.Tuesday, 600, 660)
	assert.NoError(t, err)

	// another doctor is unaffected
	_, err = store.Add(context.Background(), uuid.New(), time.Monday, 600, 660)
	assert.NoError(t, err)
}

func TestMemoryWindowStore_Remove(t *testing.T) {
	store := NewMemoryWindowStore()
	owner := uuid.New()

	w, err := store.Add(context.Background(), owner, time.Friday, 540, 720)
	require.NoError(t, err)

	assert.ErrorIs(t, store.Remove(context.Background(), uuid.New(), owner), ErrWindowNotFound)
	assert.ErrorIs(t, store.Remove(context.Background(), w.ID, uuid.New()), ErrNotWindowOwner)

	require.NoError(t, store.Remove(context.Background(), w.ID, owner))

	windows, err := store.ForDoctor(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestMemoryWindowStore_Ordering(t *testing.T) {
	store := NewMemoryWindowStore()
	doctorID := uuid.New()

	_, err := store.Add(context.Background(), doctorID, time.Wednesday, 780, 840)
	require.NoError(t, err)
	_, err = store.Add(context.Background(), doctorID, time.Monday, 540, 600)
	require.NoError(t, err)
	_, err = store.Add(context.Background(), doctorID, time.Wednesday, 540, 600)
	require.NoError(t, err)

	all, err := store.ForDoctor(context.Background(), doctorID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, time.Monday, all[0].Weekday)
	assert.Equal(t, time.Wednesday, all[1].Weekday)
	assert.Equal(t, 540, all[1].StartMin)
	assert.Equal(t, 780, all[2].StartMin)

	wed, err := store.ForWeekday(context.Background(), doctorID, time.Wednesday)
	require.NoError(t, err)
	require.Len(t, wed, 2)
	assert.Equal(t, 540, wed[0].StartMin)
	assert.Equal(t, 780, wed[1].StartMin)
}
