package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transientErr struct{ error }

func isTransient(err error) bool {
	var t transientErr
	return errors.As(err, &t)
}

func TestBoundedSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := Bounded(context.Background(), isTransient, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestBoundedGivesUpAfterBaseRetryCountOnOrdinaryError(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Bounded(context.Background(), isTransient, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, BaseRetryCount, calls)
}

func TestBoundedRetriesTransientErrorsPastBaseCount(t *testing.T) {
	calls := 0
	err := Bounded(context.Background(), isTransient, func() error {
		calls++
		if calls >= BaseRetryCount+1 {
			return nil
		}
		return transientErr{errors.New("flaky")}
	})
	require.NoError(t, err)
	assert.Equal(t, BaseRetryCount+1, calls)
}

func TestBoundedRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Bounded(ctx, isTransient, func() error {
		return transientErr{errors.New("flaky")}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnboundedRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Unbounded(context.Background(), time.Millisecond, func() error {
		calls++
		if calls < 5 {
			return errors.New("still flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, calls)
}

func TestUnboundedStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Unbounded(ctx, 5*time.Millisecond, func() error {
		return errors.New("never succeeds")
	})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestBackoffDelayIsCappedAtMaxBackoff(t *testing.T) {
	assert.Equal(t, MaxBackoff, backoffDelay(10))
}
