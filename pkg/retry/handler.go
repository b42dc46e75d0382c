// Package retry drives the crawl's transient-failure policy: a fetch (or
// any other classified operation) is re-attempted with exponential
// backoff until it succeeds, fails in a way not worth retrying, or
// exhausts its attempt budget. The caller always learns how many
// attempts were spent, since fetch metadata events record retry counts.
package retry

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rohmanhakim/crawlindex/pkg/failure"
	"github.com/rohmanhakim/crawlindex/pkg/timeutil"
)

// retryable is the optional capability an error advertises to opt into
// being retried. Errors without it are terminal on first failure.
type retryable interface {
	IsRetryable() bool
}

// Retry runs fn until it succeeds, returns a non-retryable error, or
// retryParam.MaxAttempts attempts have been spent. Between attempts it
// sleeps per retryParam's backoff curve plus jitter.
func Retry[T any](retryParam RetryParam, fn func() (T, failure.ClassifiedError)) Result[T] {
	var zero T

	if retryParam.MaxAttempts < 1 {
		return Result[T]{
			value: zero,
			err: &RetryError{
				Message:   "attempt budget must be at least 1",
				Retryable: false,
				Cause:     ErrCauseNoAttempt,
			},
		}
	}

	rng := rand.New(rand.NewSource(retryParam.RandomSeed))

	var lastErr failure.ClassifiedError
	for attempt := 1; attempt <= retryParam.MaxAttempts; attempt++ {
		value, err := fn()
		if err == nil {
			return NewSuccessResult(value, attempt)
		}
		lastErr = err

		r, ok := err.(retryable)
		if !ok || !r.IsRetryable() {
			return Result[T]{value: zero, err: err, attempts: attempt}
		}
		if attempt == retryParam.MaxAttempts {
			break
		}

		time.Sleep(timeutil.ExponentialBackoffDelay(
			attempt,
			retryParam.Jitter,
			rng,
			retryParam.BackoffParam,
		))
	}

	return Result[T]{
		value: zero,
		err: &RetryError{
			Message:   fmt.Sprintf("gave up after %d attempts, last error: %v", retryParam.MaxAttempts, lastErr),
			Retryable: true, // the scheduler may re-admit the URL later
			Cause:     ErrCauseExhausted,
		},
		attempts: retryParam.MaxAttempts,
	}
}
