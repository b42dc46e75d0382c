package storage_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/internal/storage"
)

type storageTestSink struct {
	artifacts []string
	errors    []string
}

func (s *storageTestSink) RecordFetch(string, int, time.Duration, string, int, int) {}
func (s *storageTestSink) RecordAssetFetch(string, int, time.Duration, int)         {}
func (s *storageTestSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.errors = append(s.errors, details)
}
func (s *storageTestSink) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	s.artifacts = append(s.artifacts, path)
}

func testRow(url string) storage.AuditRow {
	row := storage.NewAuditRow(time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC))
	row.URL = url
	row.Status = "200"
	row.Depth = 1
	row.Bytes = 4096
	row.Domain = "example.com"
	row.Superdomain = "example.com"
	row.DomainCountBefore = 0
	row.SuperCountBefore = 0
	row.PageScore = 0.913452
	row.SuperScore = 0.5
	row.TotalPriority = 1.0413452
	row.PriorityAtPop = 1.041
	return row
}

func TestLocalCSVSink_WriteHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.csv")

	sink := &storageTestSink{}
	csvSink, err := storage.NewLocalCSVSink(path, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := csvSink.Write(testRow("https://example.com/a")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := csvSink.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	f, ferr := os.Open(path)
	if ferr != nil {
		t.Fatalf("could not open written csv: %v", ferr)
	}
	defer f.Close()

	records, rerr := csv.NewReader(f).ReadAll()
	if rerr != nil {
		t.Fatalf("could not read csv: %v", rerr)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d records", len(records))
	}

	wantHeader := []string{
		"ts_iso", "url", "status", "depth", "bytes", "domain", "superdomain",
		"domain_count_before", "super_count_before", "page_score", "super_score",
		"total_priority", "priority_at_pop",
	}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}

	row := records[1]
	if row[0] != "2026-07-29T12:00:00Z" {
		t.Errorf("ts_iso = %q, want UTC RFC3339 with Z", row[0])
	}
	if row[1] != "https://example.com/a" {
		t.Errorf("url = %q", row[1])
	}
	if row[9] != "0.913" {
		t.Errorf("page_score = %q, want 3-decimal rounding to 0.913", row[9])
	}
	if row[11] != "1.041" {
		t.Errorf("total_priority = %q, want 1.041", row[11])
	}

	if len(sink.artifacts) != 1 || sink.artifacts[0] != path {
		t.Errorf("expected one artifact recorded at %s, got %v", path, sink.artifacts)
	}
}

func TestLocalCSVSink_DuplicateURLRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.csv")

	sink := &storageTestSink{}
	csvSink, err := storage.NewLocalCSVSink(path, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer csvSink.Close()

	if err := csvSink.Write(testRow("https://example.com/dup")); err != nil {
		t.Fatalf("first write should succeed: %v", err)
	}
	if err := csvSink.Write(testRow("https://example.com/dup")); err == nil {
		t.Fatal("expected duplicate url write to fail")
	}
	if len(sink.errors) != 1 {
		t.Errorf("expected one recorded error, got %d", len(sink.errors))
	}
}

func TestLocalCSVSink_DistinctURLsAllSucceed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.csv")

	sink := &storageTestSink{}
	csvSink, err := storage.NewLocalCSVSink(path, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer csvSink.Close()

	urls := []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"}
	for _, u := range urls {
		if err := csvSink.Write(testRow(u)); err != nil {
			t.Fatalf("write %s: %v", u, err)
		}
	}
}
