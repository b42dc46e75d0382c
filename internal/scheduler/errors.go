package scheduler

import (
	"fmt"

	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/pkg/failure"
)

type SchedulerErrorCause string

const (
	// ErrCauseAuditWriteFailure marks a fatal failure to persist an audit
	// row, one of the few conditions that aborts the crawl outright
	// instead of being recovered from.
	ErrCauseAuditWriteFailure SchedulerErrorCause = "audit write failure"
)

// SchedulerError is a fatal, crawl-aborting condition. Network, robots,
// and parse failures never surface here: they are recovered from and
// only observed through metadata.
type SchedulerError struct {
	Message string
	Cause   SchedulerErrorCause
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("scheduler error: %s: %s", e.Cause, e.Message)
}

func (e *SchedulerError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func mapSchedulerErrorToMetadataCause(err *SchedulerError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseAuditWriteFailure:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
