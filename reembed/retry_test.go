package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func policy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: 5 * time.Millisecond}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), policy(3), func(context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), policy(5), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	err := RetryWithBackoff(context.Background(), policy(3), func(context.Context) error {
		attempts++
		return expectedErr
	})
	assert.Equal(t, expectedErr, err, "should return the last error")
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryWithBackoff(ctx, policy(10), func(context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoff_ContextErrorsNotRetried(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), policy(5), func(context.Context) error {
		attempts++
		return fmt.Errorf("embedding call: %w", context.DeadlineExceeded)
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_InvalidAttempts(t *testing.T) {
	for _, n := range []int{0, -1} {
		attempts := 0
		err := RetryWithBackoff(context.Background(), policy(n), func(context.Context) error {
			attempts++
			return nil
		})
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
		assert.Zero(t, attempts)
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}

	assert.Equal(t, 10*time.Millisecond, p.delay(1))
	assert.Equal(t, 20*time.Millisecond, p.delay(2))
	assert.Equal(t, 40*time.Millisecond, p.delay(3))
	assert.Equal(t, 50*time.Millisecond, p.delay(4), "capped")

	uncapped := RetryPolicy{BaseDelay: time.Millisecond}
	assert.Equal(t, 8*time.Millisecond, uncapped.delay(4))
}
