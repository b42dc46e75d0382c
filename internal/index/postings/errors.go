package postings

import (
	"fmt"

	"github.com/rohmanhakim/crawlindex/pkg/failure"
)

type PostingsErrorCause string

const (
	ErrCauseCreateFailure   PostingsErrorCause = "create failure"
	ErrCauseOpenFailure     PostingsErrorCause = "open failure"
	ErrCauseWriteFailure    PostingsErrorCause = "write failure"
	ErrCauseUnknownCodec    PostingsErrorCause = "unknown codec"
	ErrCauseIndexCorruption PostingsErrorCause = "index corruption"
)

// PostingsError reports a failure building, persisting, or reading the
// final blocked postings file or its lexicon. ErrCauseIndexCorruption is
// always fatal: it signals the on-disk block header disagrees with the
// lexicon's directory, which the searcher can never safely recover from.
type PostingsError struct {
	Message   string
	Retryable bool
	Cause     PostingsErrorCause
	Term      string
}

func (e *PostingsError) Error() string {
	if e.Term != "" {
		return fmt.Sprintf("postings error: %s: term %q: %s", e.Cause, e.Term, e.Message)
	}
	return fmt.Sprintf("postings error: %s: %s", e.Cause, e.Message)
}

func (e *PostingsError) Severity() failure.Severity {
	if e.Cause == ErrCauseIndexCorruption {
		return failure.SeverityFatal
	}
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
