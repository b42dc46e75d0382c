package retry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rohmanhakim/crawlindex/pkg/failure"
	"github.com/rohmanhakim/crawlindex/pkg/retry"
	"github.com/rohmanhakim/crawlindex/pkg/timeutil"
)

// flakyErr is a classified error whose retryability is fixed per test.
type flakyErr struct {
	retryable bool
}

func (e *flakyErr) Error() string { return "flaky" }
func (e *flakyErr) Severity() failure.Severity {
	if e.retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
func (e *flakyErr) IsRetryable() bool { return e.retryable }

func testParam(maxAttempts int) retry.RetryParam {
	return retry.NewRetryParam(
		0,
		0,
		1,
		maxAttempts,
		timeutil.NewBackoffParam(time.Microsecond, 2.0, time.Millisecond),
	)
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	result := retry.Retry(testParam(3), func() (string, failure.ClassifiedError) {
		return "ok", nil
	})

	if !result.IsSuccess() {
		t.Fatalf("expected success, got %v", result.Err())
	}
	if result.Value() != "ok" {
		t.Errorf("value = %q", result.Value())
	}
	if result.Attempts() != 1 {
		t.Errorf("attempts = %d, want 1", result.Attempts())
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	result := retry.Retry(testParam(5), func() (int, failure.ClassifiedError) {
		calls++
		if calls < 3 {
			return 0, &flakyErr{retryable: true}
		}
		return 42, nil
	})

	if !result.IsSuccess() {
		t.Fatalf("expected eventual success, got %v", result.Err())
	}
	if result.Value() != 42 || result.Attempts() != 3 {
		t.Errorf("value=%d attempts=%d, want 42/3", result.Value(), result.Attempts())
	}
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	result := retry.Retry(testParam(5), func() (int, failure.ClassifiedError) {
		calls++
		return 0, &flakyErr{retryable: false}
	})

	if result.IsSuccess() {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call for a non-retryable error, got %d", calls)
	}
	var fe *flakyErr
	if !errors.As(result.Err(), &fe) {
		t.Errorf("expected the original error to pass through, got %v", result.Err())
	}
}

func TestRetry_ExhaustsBudget(t *testing.T) {
	calls := 0
	result := retry.Retry(testParam(3), func() (int, failure.ClassifiedError) {
		calls++
		return 0, &flakyErr{retryable: true}
	})

	if result.IsSuccess() {
		t.Fatal("expected failure")
	}
	if calls != 3 || result.Attempts() != 3 {
		t.Errorf("calls=%d attempts=%d, want 3/3", calls, result.Attempts())
	}
	var re *retry.RetryError
	if !errors.As(result.Err(), &re) {
		t.Fatalf("expected RetryError, got %v", result.Err())
	}
	if re.Cause != retry.ErrCauseExhausted {
		t.Errorf("cause = %s, want %s", re.Cause, retry.ErrCauseExhausted)
	}
}

func TestRetry_ZeroAttemptBudgetRejected(t *testing.T) {
	result := retry.Retry(testParam(0), func() (int, failure.ClassifiedError) {
		t.Fatal("fn must never run with a zero budget")
		return 0, nil
	})

	if result.IsSuccess() {
		t.Fatal("expected failure")
	}
	if result.Attempts() != 0 {
		t.Errorf("attempts = %d, want 0", result.Attempts())
	}
	var re *retry.RetryError
	if !errors.As(result.Err(), &re) || re.Cause != retry.ErrCauseNoAttempt {
		t.Errorf("expected ErrCauseNoAttempt, got %v", result.Err())
	}
}
