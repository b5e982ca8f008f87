// Package retry implements the two retry policies the benchmark pipeline
// needs (spec.md §4.12, §9): a bounded, capped-backoff retry for
// annotator/config calls, and a deliberately unbounded retry for SUT
// evaluate() calls that the original implementation hot-loops on for flaky
// remote APIs.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BaseRetryCount is how many attempts an ordinary (non-transient) error gets
// before Bounded gives up, mirroring the original's BASE_RETRY_COUNT
// (original_source/retry_decorator.py).
const BaseRetryCount = 3

// MaxRetryDuration bounds how long a transient error is retried for, before
// Bounded gives up and returns it. Mirrors MAX_RETRY_DURATION (1 day) in the
// original.
const MaxRetryDuration = 24 * time.Hour

// MaxBackoff caps the exponential backoff delay between attempts, mirroring
// MAX_BACKOFF (1 minute) in the original.
const MaxBackoff = time.Minute

// IsTransient classifies an error as transient (worth retrying for up to
// MaxRetryDuration) versus an ordinary error (retried only BaseRetryCount
// times). Callers supply this predicate since "transient" is a SUT/annotator
// contract concern (spec.md §7's TransientRemoteError), not something this
// package can decide on its own.
type IsTransient func(error) bool

// Bounded retries fn until it succeeds, a non-transient error exhausts
// BaseRetryCount attempts, or a transient error has been retried past
// MaxRetryDuration. Backoff is exponential (base 2s, doubling) capped at
// MaxBackoff, matching original_source/retry_decorator.py's
// `min(2**attempt, MAX_BACKOFF)`.
func Bounded(ctx context.Context, isTransient IsTransient, fn func() error) error {
	start := time.Now()
	attempt := 0
	transientAttempt := 0

	for {
		err := fn()
		if err == nil {
			return nil
		}

		var delay time.Duration
		if isTransient != nil && isTransient(err) {
			if time.Since(start) >= MaxRetryDuration {
				return err
			}
			transientAttempt++
			delay = backoffDelay(transientAttempt)
		} else {
			attempt++
			if attempt >= BaseRetryCount {
				return err
			}
			delay = backoffDelay(attempt)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func backoffDelay(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > MaxBackoff || d <= 0 {
		return MaxBackoff
	}
	return d
}

// ErrRetriesExhausted is returned by Unbounded in the rare case ctx is
// cancelled while waiting between SUT attempts.
var ErrRetriesExhausted = errors.New("retry: context cancelled during SUT retry loop")

// Unbounded retries fn forever at a fixed delay until it succeeds or ctx is
// cancelled. This preserves the original implementation's unbounded SUT
// retry loop verbatim (spec.md §9 design notes: "the SUT worker's retry
// loop has no attempt cap and no outer deadline; this is intentional — SUT
// APIs are expected to eventually recover, and a cap would turn a transient
// remote outage into a permanently failed test item"). delay defaults to
// DefaultSUTRetryDelay when 0.
func Unbounded(ctx context.Context, delay time.Duration, fn func() error) error {
	if delay <= 0 {
		delay = DefaultSUTRetryDelay
	}
	for {
		err := fn()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrRetriesExhausted
		case <-time.After(delay):
		}
	}
}

// DefaultSUTRetryDelay is the fixed delay between unbounded SUT retry
// attempts (spec.md §9: "retry_delay, default 10s").
const DefaultSUTRetryDelay = 10 * time.Second

// NewBoundedBackOff returns a cenkalti/backoff/v4 policy equivalent to
// Bounded's transient-error branch, for callers that want to compose with
// backoff.Retry directly instead of calling Bounded.
func NewBoundedBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = MaxBackoff
	b.MaxElapsedTime = MaxRetryDuration
	return b
}
