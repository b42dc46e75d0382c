package storage

import (
	"fmt"

	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/pkg/failure"
)

type StorageErrorCause string

const (
	ErrCauseWriteFailure          StorageErrorCause = "write failed"
	ErrCausePathError             StorageErrorCause = "path error"
	ErrCauseHashComputationFailed StorageErrorCause = "hash computation failed"
	ErrCauseDuplicateRow          StorageErrorCause = "duplicate audit row"
)

// StorageError reports a failure in the audit sink. Write failures are
// what decide whether the crawl survives: a retryable one is logged and
// the page's row is lost, a fatal one (disk full, closed file) aborts
// the whole crawl, and a duplicate row means the scheduler's dedup
// invariant broke upstream.
type StorageError struct {
	Message   string
	Retryable bool
	Cause     StorageErrorCause
	Path      string
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("audit sink: %s: %s: %s", e.Cause, e.Path, e.Message)
	}
	return fmt.Sprintf("audit sink: %s: %s", e.Cause, e.Message)
}

func (e *StorageError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapStorageErrorToMetadataCause renders the sink's local causes onto the
// canonical observability table; never consulted for control flow.
func mapStorageErrorToMetadataCause(err *StorageError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseWriteFailure, ErrCausePathError:
		return metadata.CauseStorageFailure
	case ErrCauseHashComputationFailed, ErrCauseDuplicateRow:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
