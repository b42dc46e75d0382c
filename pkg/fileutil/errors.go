package fileutil

import (
	"fmt"

	"github.com/rohmanhakim/crawlindex/pkg/failure"
)

type FileErrorCause string

const (
	ErrCausePathError FileErrorCause = "path error"
)

// FileError reports a failure preparing an on-disk location for an
// artifact write.
type FileError struct {
	Message   string
	Retryable bool
	Cause     FileErrorCause
	Path      string
}

func (e *FileError) Error() string {
	return fmt.Sprintf("fileutil: %s: %s: %s", e.Cause, e.Path, e.Message)
}

func (e *FileError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
