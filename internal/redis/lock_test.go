package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSlotLocker(client, 5*time.Second), mr
}

func TestSlotLockSerializesSameSlot(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()
	providerID := uuid.New()
	at := time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)

	err := locker.WithSlotLock(ctx, providerID, at, func(ctx context.Context) error {
		// A second attempt on the same slot while the lock is held bounces.
		inner := locker.WithSlotLock(ctx, providerID, at, func(ctx context.Context) error {
			t.Fatal("critical section entered twice")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)
}

func TestSlotLockReleasedAfterCriticalSection(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()
	providerID := uuid.New()
	at := time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)

	ran := 0
	for i := 0; i < 3; i++ {
		err := locker.WithSlotLock(ctx, providerID, at, func(ctx context.Context) error {
			ran++
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, ran)
}

func TestSlotLockReleasedOnError(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()
	providerID := uuid.New()
	at := time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)

	sentinel := errors.New("insert failed")
	err := locker.WithSlotLock(ctx, providerID, at, func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	// The failed attempt must not leave the slot poisoned.
	err = locker.WithSlotLock(ctx, providerID, at, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestSlotLockDistinctSlotsAreIndependent(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()
	providerID := uuid.New()
	at := time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)

	err := locker.WithSlotLock(ctx, providerID, at, func(ctx context.Context) error {
		// Same provider, next slot.
		if err := locker.WithSlotLock(ctx, providerID, at.Add(30*time.Minute), func(ctx context.Context) error {
			return nil
		}); err != nil {
			return err
		}
		// Same instant, different provider.
		return locker.WithSlotLock(ctx, uuid.New(), at, func(ctx context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
}

func TestSlotLockExpiresWithTTL(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()
	providerID := uuid.New()
	at := time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)

	err := locker.WithSlotLock(ctx, providerID, at, func(ctx context.Context) error {
		// Simulate the holder stalling past the TTL.
		mr.FastForward(6 * time.Second)
		return locker.WithSlotLock(ctx, providerID, at, func(ctx context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
}

func TestNoopLockerRunsCriticalSection(t *testing.T) {
	var locker NoopLocker
	ran := false
	err := locker.WithSlotLock(context.Background(), uuid.New(), time.Now(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}
