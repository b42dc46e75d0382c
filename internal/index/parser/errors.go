package parser

import (
	"fmt"

	"github.com/rohmanhakim/crawlindex/pkg/failure"
)

type ParserErrorCause string

const (
	ErrCauseOpenFailure ParserErrorCause = "open failure"
	ErrCauseReadFailure ParserErrorCause = "read failure"
)

// ParserError reports a fatal failure opening or streaming a TSV corpus
// file. Malformed individual lines are not errors; they are skipped so one
// bad line in a multi-million-line corpus doesn't abort the whole build.
// This type only covers failures that abort the stream.
type ParserError struct {
	Message   string
	Retryable bool
	Cause     ParserErrorCause
	Path      string
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("parser error: %s: %s", e.Cause, e.Message)
}

func (e *ParserError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
