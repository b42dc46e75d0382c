package merge

import (
	"fmt"

	"github.com/rohmanhakim/crawlindex/pkg/failure"
)

type MergeErrorCause string

const (
	ErrCauseRoundFailure MergeErrorCause = "round failure"
	ErrCauseEmptyInput   MergeErrorCause = "empty input"
)

// MergeError reports a failure during the external merge pipeline: a
// round's worker pool failing to reduce a group of runs, or an invalid
// (empty) set of input runs.
type MergeError struct {
	Message   string
	Retryable bool
	Cause     MergeErrorCause
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge error: %s: %s", e.Cause, e.Message)
}

func (e *MergeError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
