// Package fileutil is the shared local-disk helper for every artifact
// this repository persists: the crawl audit CSV, intermediate runs, the
// blocked postings file, lexicon, doc-length table, and build manifest.
package fileutil

import (
	"os"

	"github.com/rohmanhakim/crawlindex/pkg/failure"
)

// EnsureDir creates dir (and any missing parents) so an artifact writer
// can assume its destination directory exists. An existing directory is
// not an error.
func EnsureDir(dir string) failure.ClassifiedError {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &FileError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      dir,
		}
	}
	return nil
}
