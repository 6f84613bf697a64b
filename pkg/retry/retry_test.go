package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	result := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, result.Err)
	assert.Equal(t, 3, result.Attempts)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	cause := errors.New("constraint violated")
	calls := 0
	result := Do(context.Background(), fastConfig(5), func(ctx context.Context) error {
		calls++
		return Permanent(cause)
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, cause, result.Err)
	assert.Equal(t, cause, result.LastError)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	cause := errors.New("still down")
	result := Do(context.Background(), fastConfig(2), func(ctx context.Context) error {
		return cause
	})

	assert.Equal(t, 3, result.Attempts)
	assert.ErrorIs(t, result.Err, ErrMaxRetriesExceeded)
	assert.ErrorIs(t, result.Err, cause)
	assert.Equal(t, cause, result.LastError)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cause := errors.New("down")

	result := Do(ctx, &Config{MaxRetries: 10, InitialInterval: time.Second, MaxInterval: time.Second}, func(ctx context.Context) error {
		cancel()
		return cause
	})

	assert.Equal(t, 1, result.Attempts)
	assert.ErrorIs(t, result.Err, ErrContextCanceled)
	assert.ErrorIs(t, result.Err, cause)
}

func TestCallbackSeesEveryRetry(t *testing.T) {
	var attempts []int
	New(fastConfig(2)).DoWithCallback(context.Background(), func(ctx context.Context) error {
		return errors.New("down")
	}, func(attempt int, err error, next time.Duration) {
		attempts = append(attempts, attempt)
		assert.LessOrEqual(t, next, 2*time.Millisecond)
	})

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
