package metadata

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-logfmt/logfmt"
)

/*
 The metadata stream is the crawl's and index build's side channel: per-
 fetch timing/status/depth, classified errors, artifact locations, merge
 round progress, and the terminal crawl summary. Events carry primitive
 values only (strings, counts, durations) so any encoder can render
 them; this recorder emits logfmt to stderr, keeping stdout for the
 CLI's own output and the audit CSV as the primary record.
*/

// MetadataSink is the observability boundary every crawl- and index-side
// component records through. Implementations must be safe for concurrent
// use: the crawler's worker pool calls these methods from many goroutines.
type MetadataSink interface {
	RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int)
	RecordAssetFetch(fetchUrl string, httpStatus int, duration time.Duration, retryCount int)
	RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, details string, attrs []Attribute)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

// CrawlFinalizer records the terminal, derived summary of a completed
// crawl. It is called at most once, after the worker pool has stopped.
type CrawlFinalizer interface {
	RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, duration time.Duration)
}

// Recorder is the concrete MetadataSink/CrawlFinalizer used throughout this
// repository. It logfmt-encodes every event to an output stream (stderr by
// default) as it is recorded; it keeps no history beyond the terminal
// crawlStats value recorded by RecordFinalCrawlStats.
type Recorder struct {
	mu    sync.Mutex
	enc   *logfmt.Encoder
	final *crawlStats
}

// NewRecorder builds a Recorder that logfmt-encodes events to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: logfmt.NewEncoder(w)}
}

// NewStderrRecorder builds a Recorder writing to os.Stderr, the default
// destination for crawl and index-build observability.
func NewStderrRecorder() *Recorder {
	return NewRecorder(os.Stderr)
}

func (r *Recorder) encode(keyvals ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.EncodeKeyvals(keyvals...); err != nil {
		return
	}
	_ = r.enc.EndRecord()
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
	r.encode(
		"event", "fetch",
		"url", fetchUrl,
		"status", httpStatus,
		"duration_ms", duration.Milliseconds(),
		"content_type", contentType,
		"retry", retryCount,
		"depth", crawlDepth,
	)
}

func (r *Recorder) RecordAssetFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	retryCount int,
) {
	r.encode(
		"event", "asset_fetch",
		"url", fetchUrl,
		"status", httpStatus,
		"duration_ms", duration.Milliseconds(),
		"retry", retryCount,
	)
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	keyvals := []interface{}{
		"event", "error",
		"time", observedAt.UTC().Format(time.RFC3339),
		"package", packageName,
		"action", action,
		"cause", cause.String(),
		"details", details,
	}
	for _, attr := range attrs {
		keyvals = append(keyvals, string(attr.Key), attr.Value)
	}
	r.encode(keyvals...)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	keyvals := []interface{}{
		"event", "artifact",
		"kind", string(kind),
		"path", path,
	}
	for _, attr := range attrs {
		keyvals = append(keyvals, string(attr.Key), attr.Value)
	}
	r.encode(keyvals...)
}

func (r *Recorder) RecordFinalCrawlStats(
	totalPages int,
	totalErrors int,
	totalAssets int,
	duration time.Duration,
) {
	r.mu.Lock()
	r.final = &crawlStats{
		totalPages:  totalPages,
		totalErrors: totalErrors,
		totalAssets: totalAssets,
		durationMs:  duration.Milliseconds(),
	}
	r.mu.Unlock()

	r.encode(
		"event", "crawl_summary",
		"pages", totalPages,
		"errors", totalErrors,
		"assets", totalAssets,
		"duration_ms", duration.Milliseconds(),
	)
}

// RecordMergeRound logs completion of one merge round during index
// building: how many runs went in, how many groups were produced.
func (r *Recorder) RecordMergeRound(round int, inputRuns int, outputRuns int) {
	r.encode(
		"event", "merge_round",
		"round", round,
		"input_runs", inputRuns,
		"output_runs", outputRuns,
	)
}

// RecordIndexArtifact logs a terminal index-build artifact (postings file,
// lexicon, doc-lengths table) along with its term/doc counts.
func (r *Recorder) RecordIndexArtifact(kind ArtifactKind, path string, terms int, docs int) {
	r.encode(
		"event", "index_artifact",
		"kind", string(kind),
		"path", path,
		"terms", terms,
		"docs", docs,
	)
}
