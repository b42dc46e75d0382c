package doclen

import (
	"fmt"

	"github.com/rohmanhakim/crawlindex/pkg/failure"
)

type DocLenErrorCause string

const (
	ErrCauseCreateFailure DocLenErrorCause = "create failure"
	ErrCauseOpenFailure   DocLenErrorCause = "open failure"
	ErrCauseWriteFailure  DocLenErrorCause = "write failure"
	ErrCauseReadFailure   DocLenErrorCause = "read failure"
)

// DocLenError reports a failure persisting or loading the document-length
// table.
type DocLenError struct {
	Message   string
	Retryable bool
	Cause     DocLenErrorCause
}

func (e *DocLenError) Error() string {
	return fmt.Sprintf("doclen error: %s: %s", e.Cause, e.Message)
}

func (e *DocLenError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
