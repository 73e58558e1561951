package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisBookingLocker(client, 5*time.Second), client
}

func TestWithBookingLockRunsCriticalSection(t *testing.T) {
	locker, _ := newTestLocker(t)

	ran := false
	err := locker.WithBookingLock(context.Background(), uuid.New(), func(ctx context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	require.True(t, ran)
}

func TestWithBookingLockHeldByOther(t *testing.T) {
	locker, client := newTestLocker(t)

	professionalID := uuid.New()
	key := "lock:professional:" + professionalID.String()
	require.NoError(t, client.Set(context.Background(), key, "someone-else", time.Minute).Err())

	err := locker.WithBookingLock(context.Background(), professionalID, func(ctx context.Context) error {
		t.Fatal("critical section must not run while lock is held")
		return nil
	})

	require.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestWithBookingLockReleasesAfterRun(t *testing.T) {
	locker, client := newTestLocker(t)

	professionalID := uuid.New()
	require.NoError(t, locker.WithBookingLock(context.Background(), professionalID, func(ctx context.Context) error {
		return nil
	}))

	key := "lock:professional:" + professionalID.String()
	_, err := client.Get(context.Background(), key).Result()
	require.True(t, errors.Is(err, redis.Nil), "lock key should be deleted after the critical section")
}

func TestWithBookingLockPropagatesError(t *testing.T) {
	locker, _ := newTestLocker(t)

	sentinel := errors.New("boom")
	err := locker.WithBookingLock(context.Background(), uuid.New(), func(ctx context.Context) error {
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
}
