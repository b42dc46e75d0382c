package linkextract

import (
	"fmt"

	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/pkg/failure"
)

type LinkExtractErrorCause string

const (
	ErrCauseNotHTML   LinkExtractErrorCause = "not html"
	ErrCauseMalformed LinkExtractErrorCause = "malformed markup"
)

type LinkExtractError struct {
	Message   string
	Retryable bool
	Cause     LinkExtractErrorCause
}

func (e *LinkExtractError) Error() string {
	return fmt.Sprintf("linkextract error: %s", e.Cause)
}

func (e *LinkExtractError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapLinkExtractErrorToMetadataCause maps linkextract-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapLinkExtractErrorToMetadataCause(err *LinkExtractError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseNotHTML, ErrCauseMalformed:
		return metadata.CauseParseError
	default:
		return metadata.CauseUnknown
	}
}
