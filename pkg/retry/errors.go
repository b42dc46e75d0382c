package retry

import (
	"fmt"

	"github.com/rohmanhakim/crawlindex/pkg/failure"
)

type RetryErrorCause string

const (
	// ErrCauseNoAttempt means the caller supplied an attempt budget below
	// one, so the operation was never even started.
	ErrCauseNoAttempt RetryErrorCause = "no attempt made"
	// ErrCauseExhausted means every attempt in the budget failed with a
	// retryable error.
	ErrCauseExhausted RetryErrorCause = "attempts exhausted"
)

// RetryError is the harness's own failure: it stands in for the last
// attempt's error once the budget is spent, or flags a misconfigured
// budget. The wrapped operation's errors pass through Retry untouched.
type RetryError struct {
	Message   string
	Retryable bool
	Cause     RetryErrorCause
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry: %s: %s", e.Cause, e.Message)
}

func (e *RetryError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *RetryError) IsRetryable() bool {
	return e.Retryable
}

// Is lets errors.Is match any RetryError regardless of cause.
func (e *RetryError) Is(target error) bool {
	_, ok := target.(*RetryError)
	return ok
}
