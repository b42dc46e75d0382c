package runio

import (
	"fmt"

	"github.com/rohmanhakim/crawlindex/pkg/failure"
)

type RunIOErrorCause string

const (
	ErrCauseCreateFailure   RunIOErrorCause = "create failure"
	ErrCauseOpenFailure     RunIOErrorCause = "open failure"
	ErrCauseWriteFailure    RunIOErrorCause = "write failure"
	ErrCauseMalformedLine   RunIOErrorCause = "malformed line"
	ErrCauseBadMagic        RunIOErrorCause = "bad magic"
	ErrCauseTruncatedRecord RunIOErrorCause = "truncated record"
)

// RunIOError reports a failure reading or writing an intermediate sorted
// run file, in either the legacy TSV form or the binary RUN1 form.
type RunIOError struct {
	Message   string
	Retryable bool
	Cause     RunIOErrorCause
	Path      string
}

func (e *RunIOError) Error() string {
	return fmt.Sprintf("runio error: %s: %s: %s", e.Cause, e.Path, e.Message)
}

func (e *RunIOError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
