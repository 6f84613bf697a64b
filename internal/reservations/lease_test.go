package reservations_test

import (
	"context"
	"os"
	"testing"
	"time"

	"flightbook/internal/reservations"
	"flightbook/internal/shared/constants"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Redis when REDIS_ADDR is set.
func TestRedisLease_OneHolderAtATime(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	require.NoError(t, client.Del(ctx, constants.LOCK_KEY_RESERVATION_SWEEPER).Err())

	first := reservations.NewRedisLease(client, time.Minute)
	second := reservations.NewRedisLease(client, time.Minute)

	release, ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "lease is held")

	release()
	releaseAgain, ok, err := second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// A stale release from the first holder must not drop the new owner's lease.
	release()
	exists, err := client.Exists(ctx, constants.LOCK_KEY_RESERVATION_SWEEPER).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, exists)
	releaseAgain()
}

func TestRedisLease_ReleaseFailureIsLogged(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	require.NoError(t, client.Del(ctx, constants.LOCK_KEY_RESERVATION_SWEEPER).Err())

	release, ok, err := reservations.NewRedisLease(client, time.Second).Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, client.Close())
	assert.NotPanics(t, release, "a failed release only logs")
}
