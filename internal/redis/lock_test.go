package redisclient

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, ttl, retry time.Duration) Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisDoctorLocker(client, ttl, retry)
}

func TestWithDoctorLock_RunsCallback(t *testing.T) {
	locker := newTestLocker(t, 2*time.Second, 5*time.Millisecond)

	called := false
	err := locker.WithDoctorLock(context.Background(), uuid.New(), func(ctx context.Context) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestWithDoctorLock_SerializesSameDoctor(t *testing.T) {
	locker := newTestLocker(t, 2*time.Second, 5*time.Millisecond)
	doctorID := uuid.New()

	var mu sync.Mutex
	inSection := 0
	maxInSection := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithDoctorLock(context.Background(), doctorID, func(ctx context.Context) error {
				mu.Lock()
				inSection++
				if inSection > maxInSection {
					maxInSection = inSection
				}
				mu.Unlock()

				time.Sleep(10 * time.Millisecond)

				mu.Lock()
				inSection--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInSection, "critical sections overlapped")
}

func TestWithDoctorLock_DifferentDoctorsDoNotBlock(t *testing.T) {
	locker := newTestLocker(t, 2*time.Second, 5*time.Millisecond)

	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = locker.WithDoctorLock(context.Background(), uuid.New(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	defer close(release)

	done := make(chan error, 1)
	go func() {
		done <- locker.WithDoctorLock(context.Background(), uuid.New(), func(ctx context.Context) error {
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("lock for a different doctor blocked")
	}
}

func TestWithDoctorLock_GivesUpAfterTTL(t *testing.T) {
	locker := newTestLocker(t, 100*time.Millisecond, 5*time.Millisecond)
	doctorID := uuid.New()

	release := make(chan struct{})
	started := make(chan struct{})
	holderDone := make(chan struct{})

	go func() {
		defer close(holderDone)
		_ = locker.WithDoctorLock(context.Background(), doctorID, func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	err := locker.WithDoctorLock(context.Background(), doctorID, func(ctx context.Context) error {
		t.Error("callback must not run when the lock is held past the deadline")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	close(release)
	<-holderDone
}

func TestWithDoctorLock_ReleasedOnCallbackError(t *testing.T) {
	locker := newTestLocker(t, 2*time.Second, 5*time.Millisecond)
	doctorID := uuid.New()

	wantErr := assert.AnError
	err := locker.WithDoctorLock(context.Background(), doctorID, func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// the lock is free again immediately, not after TTL expiry
	err = locker.WithDoctorLock(context.Background(), doctorID, func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}
