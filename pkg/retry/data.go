package retry

import (
	"time"

	"github.com/rohmanhakim/crawlindex/pkg/failure"
	"github.com/rohmanhakim/crawlindex/pkg/timeutil"
)

// Result carries the outcome of a retried call: the value on success
// (zero value otherwise), the terminal error (nil on success), and how
// many attempts were spent — the number the fetcher reports as the retry
// field of its fetch metadata event.
type Result[T any] struct {
	value    T
	err      failure.ClassifiedError
	attempts int
}

// NewSuccessResult builds a Result for a call that succeeded on the
// given attempt.
func NewSuccessResult[T any](value T, attempts int) Result[T] {
	return Result[T]{value: value, attempts: attempts}
}

func (r Result[T]) Value() T                     { return r.value }
func (r Result[T]) Err() failure.ClassifiedError { return r.err }
func (r Result[T]) Attempts() int                { return r.attempts }
func (r Result[T]) IsSuccess() bool              { return r.err == nil }
func (r Result[T]) IsFailure() bool              { return r.err != nil }

// RetryParam is the retry policy a caller hands in: attempt budget,
// backoff curve, and the jitter/seed pair that randomizes sleeps. The
// values come from config, never from the harness itself.
type RetryParam struct {
	BaseDelay    time.Duration
	Jitter       time.Duration
	RandomSeed   int64
	MaxAttempts  int
	BackoffParam timeutil.BackoffParam
}

func NewRetryParam(
	baseDelay time.Duration,
	jitter time.Duration,
	randomSeed int64,
	maxAttempts int,
	backoffParam timeutil.BackoffParam,
) RetryParam {
	return RetryParam{
		BaseDelay:    baseDelay,
		Jitter:       jitter,
		RandomSeed:   randomSeed,
		MaxAttempts:  maxAttempts,
		BackoffParam: backoffParam,
	}
}
