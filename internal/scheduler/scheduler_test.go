package scheduler_test

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/crawlindex/internal/config"
	"github.com/rohmanhakim/crawlindex/internal/fetcher"
	"github.com/rohmanhakim/crawlindex/internal/linkextract"
	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/internal/robots"
	"github.com/rohmanhakim/crawlindex/internal/scheduler"
	"github.com/rohmanhakim/crawlindex/internal/storage"
	"github.com/rohmanhakim/crawlindex/pkg/failure"
	"github.com/rohmanhakim/crawlindex/pkg/limiter"
	"github.com/rohmanhakim/crawlindex/pkg/retry"
)

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	return *u
}

// fakePage is one page of a small, fully in-memory site fixture.
type fakePage struct {
	status int
	body   []byte
	links  []string
}

// fakeSite is a RobotDecider + Fetcher + LinkExtractor triple driven from a
// fixed map of pages, keyed by URL string. Missing pages 404 with no body.
type fakeSite struct {
	mu            sync.Mutex
	pages         map[string]fakePage
	disallowHosts map[string]bool
	fetched       []string
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		pages:         make(map[string]fakePage),
		disallowHosts: make(map[string]bool),
	}
}

func (s *fakeSite) addPage(rawURL string, status int, body string, links ...string) {
	s.pages[rawURL] = fakePage{status: status, body: []byte(body), links: links}
}

func (s *fakeSite) disallow(host string) {
	s.disallowHosts[host] = true
}

func (s *fakeSite) Decide(candidateURL url.URL) (robots.Decision, error) {
	if s.disallowHosts[candidateURL.Hostname()] {
		return robots.Decision{Url: candidateURL, Allowed: false, Reason: robots.DisallowedByRobots}, nil
	}
	return robots.Decision{Url: candidateURL, Allowed: true, Reason: robots.AllowedByRobots}, nil
}

func (s *fakeSite) Init(httpClient *http.Client) {}

func (s *fakeSite) Fetch(
	ctx context.Context,
	crawlDepth int,
	fetchParam fetcher.FetchParam,
	retryParam retry.RetryParam,
) (fetcher.FetchResult, failure.ClassifiedError) {
	targetURL := fetchParam.URL()
	key := targetURL.String()
	s.mu.Lock()
	s.fetched = append(s.fetched, key)
	page, ok := s.pages[key]
	s.mu.Unlock()

	if !ok {
		return fetcher.NewFetchResultForTest(targetURL, nil, fetcher.HTTPStatus(404), nil), nil
	}
	return fetcher.NewFetchResultForTest(targetURL, page.body, fetcher.HTTPStatus(page.status), nil), nil
}

func (s *fakeSite) Extract(sourceURL url.URL, htmlByte []byte) (linkextract.ExtractionResult, failure.ClassifiedError) {
	s.mu.Lock()
	page := s.pages[sourceURL.String()]
	s.mu.Unlock()

	links := make([]url.URL, 0, len(page.links))
	for _, raw := range page.links {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		links = append(links, *u)
	}
	return linkextract.NewExtractionResultForTest(links), nil
}

func (s *fakeSite) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fetched)
}

// fakeSink records every audit row in memory; if failNext is set, the next
// Write fails with the given classified error exactly once.
type fakeSink struct {
	mu       sync.Mutex
	rows     []storage.AuditRow
	failNext failure.ClassifiedError
}

func (s *fakeSink) Write(row storage.AuditRow) failure.ClassifiedError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *fakeSink) Close() failure.ClassifiedError { return nil }

func (s *fakeSink) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type fatalErr struct{ msg string }

func (e *fatalErr) Error() string              { return e.msg }
func (e *fatalErr) Severity() failure.Severity { return failure.SeverityFatal }

// fakeMetadataSink is a no-op MetadataSink that records only RecordError
// calls, for assertions about observability without coupling to logfmt.
type fakeMetadataSink struct {
	mu     sync.Mutex
	errors []string
}

func (m *fakeMetadataSink) RecordFetch(string, int, time.Duration, string, int, int) {}
func (m *fakeMetadataSink) RecordAssetFetch(string, int, time.Duration, int)         {}
func (m *fakeMetadataSink) RecordError(_ time.Time, _ string, _ string, _ metadata.ErrorCause, details string, _ []metadata.Attribute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, details)
}
func (m *fakeMetadataSink) RecordArtifact(metadata.ArtifactKind, string, []metadata.Attribute) {}

func (m *fakeMetadataSink) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

type fakeFinalizer struct {
	mu       sync.Mutex
	recorded bool
}

func (f *fakeFinalizer) RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, duration time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = true
}

func buildConfig(t *testing.T, seeds []url.URL, maxDepth, maxPages, concurrency int) config.Config {
	t.Helper()
	cfg, err := config.WithDefault(seeds).
		WithMaxDepth(maxDepth).
		WithMaxPages(maxPages).
		WithConcurrency(concurrency).
		WithBaseDelay(0).
		WithJitter(0).
		WithMaxAttempt(1).
		Build()
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	return cfg
}

func TestScheduler_Run_CrawlsSeedAndChildWithinDepth(t *testing.T) {
	site := newFakeSite()
	site.addPage("https://a.com", 200, "root", "https://a.com/child")
	site.addPage("https://a.com/child", 200, "child", "https://a.com/grandchild")
	site.addPage("https://a.com/grandchild", 200, "grandchild")

	seeds := []url.URL{mustURL(t, "https://a.com/")}
	cfg := buildConfig(t, seeds, 1, 10, 2)

	metadataSink := &fakeMetadataSink{}
	finalizer := &fakeFinalizer{}
	sink := &fakeSink{}
	s := scheduler.NewScheduler(cfg, metadataSink, finalizer, site, site, site, sink, limiter.NewHostLimiter(0, 0, 1))

	summary, err := s.Run(context.Background(), seeds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.PagesCrawled != 2 {
		t.Fatalf("expected 2 pages crawled (root + depth-1 child), got %d", summary.PagesCrawled)
	}
	if sink.rowCount() != 2 {
		t.Fatalf("expected 2 audit rows, got %d", sink.rowCount())
	}
	if site.fetchCount() != 2 {
		t.Fatalf("expected grandchild never fetched past max depth, got %d fetches", site.fetchCount())
	}
	if !finalizer.recorded {
		t.Error("expected RecordFinalCrawlStats to be called")
	}
}

func TestScheduler_Run_RobotsDisallowSkipsSeed(t *testing.T) {
	site := newFakeSite()
	site.addPage("https://blocked.com", 200, "root")
	site.disallow("blocked.com")

	seeds := []url.URL{mustURL(t, "https://blocked.com/")}
	cfg := buildConfig(t, seeds, 2, 10, 2)

	s := scheduler.NewScheduler(cfg, &fakeMetadataSink{}, &fakeFinalizer{}, site, site, site, &fakeSink{}, limiter.NewHostLimiter(0, 0, 1))

	summary, err := s.Run(context.Background(), seeds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.PagesCrawled != 0 {
		t.Fatalf("expected 0 pages crawled when robots disallows the only seed, got %d", summary.PagesCrawled)
	}
}

func TestScheduler_Run_FiltersBinarySuffixChildren(t *testing.T) {
	site := newFakeSite()
	site.addPage("https://a.com", 200, "root", "https://a.com/doc.pdf", "https://a.com/page.html")
	site.addPage("https://a.com/doc.pdf", 200, "binary")
	site.addPage("https://a.com/page.html", 200, "page")

	seeds := []url.URL{mustURL(t, "https://a.com/")}
	cfg := buildConfig(t, seeds, 2, 10, 2)

	sink := &fakeSink{}
	s := scheduler.NewScheduler(cfg, &fakeMetadataSink{}, &fakeFinalizer{}, site, site, site, sink, limiter.NewHostLimiter(0, 0, 1))

	summary, err := s.Run(context.Background(), seeds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.PagesCrawled != 2 {
		t.Fatalf("expected root + page.html only (pdf filtered), got %d pages", summary.PagesCrawled)
	}
	for _, fetched := range site.fetched {
		if fetched == "https://a.com/doc.pdf" {
			t.Fatalf("expected doc.pdf to be filtered out, but it was fetched")
		}
	}
}

func TestScheduler_Run_FiltersConfiguredChildSubstrings(t *testing.T) {
	site := newFakeSite()
	site.addPage("https://a.com", 200, "root", "https://a.com/cgi-bin/form", "https://a.com/ok")
	site.addPage("https://a.com/cgi-bin/form", 200, "cgi")
	site.addPage("https://a.com/ok", 200, "ok")

	seeds := []url.URL{mustURL(t, "https://a.com/")}
	cfg := buildConfig(t, seeds, 2, 10, 2)

	s := scheduler.NewScheduler(cfg, &fakeMetadataSink{}, &fakeFinalizer{}, site, site, site, &fakeSink{}, limiter.NewHostLimiter(0, 0, 1))

	summary, err := s.Run(context.Background(), seeds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.PagesCrawled != 2 {
		t.Fatalf("expected root + /ok only (cgi filtered), got %d pages", summary.PagesCrawled)
	}
	for _, fetched := range site.fetched {
		if fetched == "https://a.com/cgi-bin/form" {
			t.Fatal("expected cgi child to be filtered out, but it was fetched")
		}
	}
}

func TestScheduler_Run_AbortsOnFatalStorageWriteFailure(t *testing.T) {
	site := newFakeSite()
	site.addPage("https://a.com", 200, "root")

	seeds := []url.URL{mustURL(t, "https://a.com/")}
	cfg := buildConfig(t, seeds, 2, 10, 1)

	sink := &fakeSink{failNext: &fatalErr{msg: "disk full"}}
	metadataSink := &fakeMetadataSink{}
	s := scheduler.NewScheduler(cfg, metadataSink, &fakeFinalizer{}, site, site, site, sink, limiter.NewHostLimiter(0, 0, 1))

	_, err := s.Run(context.Background(), seeds)
	if err == nil {
		t.Fatal("expected a fatal storage write failure to abort the crawl")
	}
	if err.Severity() != failure.SeverityFatal {
		t.Errorf("expected fatal severity, got %v", err.Severity())
	}
	if metadataSink.errorCount() == 0 {
		t.Error("expected the abort to be observed through the metadata sink")
	}
}
