package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoStopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	p := New(5, time.Millisecond, 10*time.Millisecond, func(err error) bool {
		return !errors.Is(err, permanent)
	})

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestDoRetriesUpToCeiling(t *testing.T) {
	p := New(3, time.Millisecond, 5*time.Millisecond, nil)

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return errors.New("transient")
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
}

func TestDoSucceedsMidway(t *testing.T) {
	p := New(4, time.Millisecond, 5*time.Millisecond, nil)

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestShouldRetryHonorsContextErrors(t *testing.T) {
	p := New(3, time.Millisecond, 5*time.Millisecond, nil)
	require.False(t, p.ShouldRetry(context.Canceled, 0))
	require.False(t, p.ShouldRetry(context.DeadlineExceeded, 0))
	require.False(t, p.ShouldRetry(nil, 0))
}

func TestBackoffBounded(t *testing.T) {
	p := New(3, 10*time.Millisecond, 40*time.Millisecond, nil)
	for attempt := 0; attempt < 6; attempt++ {
		d := p.Backoff(attempt)
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.LessOrEqual(t, d, 40*time.Millisecond)
	}
}
