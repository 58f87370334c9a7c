// Package retry runs an operation until it succeeds, fails permanently, or
// runs out of attempts, waiting a doubling backoff between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	// ErrConflict is returned (possibly wrapped) by an operation to ask for another attempt.
	ErrConflict = errors.New("conflict")
	// ErrExhausted wraps the last error once MaxAttempts is reached.
	ErrExhausted = errors.New("retries exhausted")
)

type Policy struct {
	MaxAttempts    int           // 0 = unbounded
	InitialBackoff time.Duration // 0 = retry immediately
	MaxBackoff     time.Duration // 0 = no cap

	// Retryable decides which errors trigger another attempt.
	// Defaults to errors.Is(err, ErrConflict).
	Retryable func(err error) bool

	// OnRetry is called before each wait, with the attempt that just failed.
	OnRetry func(attempt int, err error, backoff time.Duration)

	// Clock drives the waits; defaults to the real clock.
	Clock clockwork.Clock
}

// Operation receives the 1-based attempt number.
type Operation[T any] func(attempt int) (T, error)

// Do runs op under p. Non-retryable errors are returned unchanged.
func Do[T any](ctx context.Context, p Policy, op Operation[T]) (T, error) {
	var zero T

	retryable := p.Retryable
	if retryable == nil {
		retryable = func(err error) bool { return errors.Is(err, ErrConflict) }
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	backoff := p.InitialBackoff
	for attempt := 1; ; attempt++ {
		val, err := op(attempt)
		if err == nil {
			return val, nil
		}
		if !retryable(err) {
			return zero, err
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		if backoff <= 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, fmt.Errorf("retry cancelled after %d attempts: %w", attempt, ctxErr)
			}
			continue
		}

		select {
		case <-clock.After(backoff):
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled after %d attempts: %w", attempt, ctx.Err())
		}

		backoff *= 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
}
