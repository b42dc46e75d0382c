package fetcher

import (
	"fmt"

	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseTimeout               FetchErrorCause = "timeout"
	ErrCauseDNS                   FetchErrorCause = "dns"
	ErrCauseSSL                   FetchErrorCause = "ssl"
	ErrCauseNetworkOther          FetchErrorCause = "network issues"
	ErrCauseReadResponseBodyError FetchErrorCause = "failed to read response body"
	ErrCauseRequestTooMany        FetchErrorCause = "too many requests"
	ErrCauseRequest5xx            FetchErrorCause = "5xx"
)

// statusKind renders the FetchErrorCause as the fetcher's error:<kind>
// status-tag vocabulary.
func (c FetchErrorCause) statusKind() string {
	switch c {
	case ErrCauseTimeout:
		return "timeout"
	case ErrCauseDNS:
		return "dns"
	case ErrCauseSSL:
		return "ssl"
	default:
		return "urlerror"
	}
}

// FetchError is a transient, attempt-scoped outcome: it never escapes
// Fetch as a propagating error. It exists only to drive pkg/retry's retry
// loop; its terminal Cause is converted into a StatusTag once retries are
// exhausted or the error is non-retryable.
type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// mapFetchErrorToMetadataCause renders the fetcher's local causes onto
// the canonical observability table; never consulted for control flow.
func mapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout:
		return metadata.CauseNetworkTimeout
	case ErrCauseDNS:
		return metadata.CauseNetworkDNS
	case ErrCauseSSL:
		return metadata.CauseNetworkSSL
	case ErrCauseRequestTooMany:
		return metadata.CausePolicyDisallow
	case ErrCauseRequest5xx:
		return metadata.CauseNetworkFailure
	default:
		return metadata.CauseNetworkOther
	}
}
