package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/pkg/failure"
	"github.com/rohmanhakim/crawlindex/pkg/fileutil"
	"github.com/rohmanhakim/crawlindex/pkg/hashutil"
)

/*
Responsibilities
- Persist one audit row per successfully recorded fetch to a CSV file.
- Guarantee the on-disk header matches the spec column order exactly.
- Guard against the same final URL being written twice in one run.

Output Characteristics
- Single append-only CSV, header written once at creation.
- Safe for concurrent Write calls from the worker pool.
- Scores rendered at three decimal places; timestamps UTC RFC3339 with "Z".
*/

var auditHeader = []string{
	"ts_iso", "url", "status", "depth", "bytes", "domain", "superdomain",
	"domain_count_before", "super_count_before", "page_score", "super_score",
	"total_priority", "priority_at_pop",
}

// Sink is the audit trail every successfully recorded fetch is written to.
type Sink interface {
	Write(row AuditRow) failure.ClassifiedError
	Close() failure.ClassifiedError
}

// LocalCSVSink writes AuditRow records to a single CSV file on disk. The
// blake3 hash of each row's URL is kept only to assert, internally, that a
// given final URL is never written twice in a run; it is never persisted.
type LocalCSVSink struct {
	mu           sync.Mutex
	file         *os.File
	writer       *csv.Writer
	metadataSink metadata.MetadataSink
	seenURLHash  map[string]struct{}
}

// NewLocalCSVSink creates (or truncates) the CSV file at path, writes its
// header, and registers it as an artifact with metadataSink.
func NewLocalCSVSink(path string, metadataSink metadata.MetadataSink) (*LocalCSVSink, failure.ClassifiedError) {
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      path,
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteFailure,
			Path:      path,
		}
	}

	w := csv.NewWriter(f)
	if err := w.Write(auditHeader); err != nil {
		f.Close()
		return nil, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteFailure,
			Path:      path,
		}
	}
	w.Flush()

	sink := &LocalCSVSink{
		file:         f,
		writer:       w,
		metadataSink: metadataSink,
		seenURLHash:  make(map[string]struct{}),
	}

	metadataSink.RecordArtifact(
		metadata.ArtifactAuditLog,
		path,
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrWritePath, path)},
	)

	return sink, nil
}

// Write appends row to the CSV file. A final URL already seen in this run
// is an invariant violation, not a silent skip: it indicates the scheduler
// emitted a duplicate audit row for an already-visited page.
func (s *LocalCSVSink) Write(row AuditRow) failure.ClassifiedError {
	urlHash, err := hashutil.HashBytes([]byte(row.URL), hashutil.HashAlgoBLAKE3)
	if err != nil {
		storageErr := &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashComputationFailed,
		}
		s.recordError(storageErr, row.URL)
		return storageErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seenURLHash[urlHash]; dup {
		storageErr := &StorageError{
			Message:   fmt.Sprintf("final url %s already recorded this run", row.URL),
			Retryable: false,
			Cause:     ErrCauseDuplicateRow,
		}
		s.recordError(storageErr, row.URL)
		return storageErr
	}

	record := []string{
		row.TsISO,
		row.URL,
		row.Status,
		strconv.Itoa(row.Depth),
		strconv.FormatUint(row.Bytes, 10),
		row.Domain,
		row.Superdomain,
		strconv.Itoa(row.DomainCountBefore),
		strconv.Itoa(row.SuperCountBefore),
		formatScore(row.PageScore),
		formatScore(row.SuperScore),
		formatScore(row.TotalPriority),
		formatScore(row.PriorityAtPop),
	}

	if err := s.writer.Write(record); err != nil {
		storageErr := &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteFailure,
			Path:      s.file.Name(),
		}
		s.recordError(storageErr, row.URL)
		return storageErr
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		storageErr := &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteFailure,
			Path:      s.file.Name(),
		}
		s.recordError(storageErr, row.URL)
		return storageErr
	}

	s.seenURLHash[urlHash] = struct{}{}
	return nil
}

// Close flushes and closes the underlying file.
func (s *LocalCSVSink) Close() failure.ClassifiedError {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return &StorageError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure, Path: s.file.Name()}
	}
	if err := s.file.Close(); err != nil {
		return &StorageError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure, Path: s.file.Name()}
	}
	return nil
}

func (s *LocalCSVSink) recordError(storageErr *StorageError, url string) {
	s.metadataSink.RecordError(
		time.Now(),
		"storage",
		"LocalCSVSink.Write",
		mapStorageErrorToMetadataCause(storageErr),
		storageErr.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, url)},
	)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
