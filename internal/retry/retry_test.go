package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/streammarks/internal/retry"
)

var fastPolicy = retry.Policy{
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     2 * time.Millisecond,
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	val, err := retry.Do(context.Background(), fastPolicy, func(int) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesConflicts(t *testing.T) {
	var attempts []int
	val, err := retry.Do(context.Background(), fastPolicy, func(attempt int) (string, error) {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return "", fmt.Errorf("commit rejected: %w", retry.ErrConflict)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDo_StopsOnOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy, func(int) (int, error) {
		calls++
		return 0, boom
	})
	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy, func(int) (int, error) {
		calls++
		return 0, retry.ErrConflict
	})
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, retry.ErrConflict)
	assert.Equal(t, 3, calls)
}

func TestDo_UnboundedUntilSuccess(t *testing.T) {
	p := retry.Policy{MaxAttempts: 0}
	val, err := retry.Do(context.Background(), p, func(attempt int) (int, error) {
		if attempt < 500 {
			return 0, retry.ErrConflict
		}
		return attempt, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 500, val)
}

func TestDo_CustomRetryable(t *testing.T) {
	transient := errors.New("connection refused")
	p := fastPolicy
	p.Retryable = func(err error) bool { return errors.Is(err, transient) }

	calls := 0
	_, err := retry.Do(context.Background(), p, func(int) (struct{}, error) {
		calls++
		if calls < 2 {
			return struct{}{}, transient
		}
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_BackoffDoublesAndCaps(t *testing.T) {
	var waits []time.Duration
	p := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     3 * time.Millisecond,
		OnRetry: func(_ int, _ error, backoff time.Duration) {
			waits = append(waits, backoff)
		},
	}
	_, _ = retry.Do(context.Background(), p, func(int) (int, error) { return 0, retry.ErrConflict })

	assert.Equal(t, []time.Duration{
		time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 3 * time.Millisecond,
	}, waits)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())

	p := retry.Policy{InitialBackoff: time.Hour, Clock: clock}
	done := make(chan error, 1)
	go func() {
		_, err := retry.Do(ctx, p, func(int) (int, error) { return 0, retry.ErrConflict })
		done <- err
	}()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancel")
	}
}

func TestDo_FakeClockAdvances(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := retry.Policy{MaxAttempts: 2, InitialBackoff: time.Minute, Clock: clock}

	done := make(chan error, 1)
	go func() {
		_, err := retry.Do(context.Background(), p, func(attempt int) (int, error) {
			if attempt == 1 {
				return 0, retry.ErrConflict
			}
			return attempt, nil
		})
		done <- err
	}()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(time.Minute)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Do did not resume after the fake clock advanced")
	}
}

func TestDo_ZeroBackoffRespectsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := retry.Do(ctx, retry.Policy{}, func(int) (int, error) {
		calls++
		if calls == 3 {
			cancel()
		}
		return 0, retry.ErrConflict
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls)
}
