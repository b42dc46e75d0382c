package robots

import (
	"fmt"

	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/pkg/failure"
)

type RobotsErrorCause string

const (
	ErrCauseRequestSetup     RobotsErrorCause = "request setup failed"
	ErrCauseUnreachable      RobotsErrorCause = "robots.txt unreachable"
	ErrCauseUnreadable       RobotsErrorCause = "unreadable body"
	ErrCauseRateLimited      RobotsErrorCause = "rate limited"
	ErrCauseRedirectLoop     RobotsErrorCause = "redirect loop"
	ErrCauseServerError      RobotsErrorCause = "server error"
	ErrCauseUnexpectedStatus RobotsErrorCause = "unexpected status"
)

// RobotsError reports a failed attempt to obtain a host's robots.txt.
// The scheduler treats every one of these as "policy unavailable" and
// falls back to allow-all, so the error exists for observability, not
// to block a crawl.
type RobotsError struct {
	Message   string
	Retryable bool
	Cause     RobotsErrorCause
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("robots: %s: %s", e.Cause, e.Message)
}

func (e *RobotsError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *RobotsError) IsRetryable() bool {
	return e.Retryable
}

// mapRobotsErrorToMetadataCause renders robots-local causes onto the
// canonical observability table; never consulted for control flow.
func mapRobotsErrorToMetadataCause(err *RobotsError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseRequestSetup:
		return metadata.CauseInvariantViolation
	case ErrCauseUnreachable, ErrCauseUnreadable, ErrCauseRateLimited,
		ErrCauseRedirectLoop, ErrCauseServerError, ErrCauseUnexpectedStatus:
		return metadata.CauseRobotsUnavailable
	default:
		return metadata.CauseUnknown
	}
}
