package robots_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/internal/robots"
	"github.com/rohmanhakim/crawlindex/internal/robots/cache"
)

type robotTestSink struct {
	errors []string
}

func (s *robotTestSink) RecordFetch(string, int, time.Duration, string, int, int) {}
func (s *robotTestSink) RecordAssetFetch(string, int, time.Duration, int)         {}
func (s *robotTestSink) RecordError(_ time.Time, _ string, _ string, _ metadata.ErrorCause, details string, _ []metadata.Attribute) {
	s.errors = append(s.errors, details)
}
func (s *robotTestSink) RecordArtifact(metadata.ArtifactKind, string, []metadata.Attribute) {}

// robotFor builds a CachedRobot whose policy fetcher talks to server.
func robotFor(t *testing.T, server *httptest.Server, sink *robotTestSink) (robots.CachedRobot, string) {
	t.Helper()
	robot := robots.NewCachedRobot(sink)
	fetcher := robots.NewPolicyFetcherWithClient(
		"auditbot/1.0",
		server.Client(),
		cache.NewMemory[robots.FetchedPolicy](),
	)
	robot.InitWithFetcher("auditbot/1.0", fetcher)
	return robot, server.Listener.Addr().String()
}

func pageURL(t *testing.T, host, path string) url.URL {
	t.Helper()
	u, err := url.Parse("http://" + host + path)
	if err != nil {
		t.Fatal(err)
	}
	return *u
}

func TestDecide_DisallowedPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	}))
	defer server.Close()

	robot, host := robotFor(t, server, &robotTestSink{})

	decision, err := robot.Decide(pageURL(t, host, "/private/ledger"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Allowed {
		t.Error("expected /private/ to be disallowed")
	}
	if decision.Reason != robots.DisallowedByRobots {
		t.Errorf("reason = %s", decision.Reason)
	}

	decision, err = robot.Decide(pageURL(t, host, "/public/page"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Allowed {
		t.Error("expected /public/ to be allowed")
	}
}

func TestDecide_MissingPolicyAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer server.Close()

	robot, host := robotFor(t, server, &robotTestSink{})

	decision, err := robot.Decide(pageURL(t, host, "/anything"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Allowed || decision.Reason != robots.EmptyRuleSet {
		t.Errorf("expected allow-all for a host without robots.txt, got %+v", decision)
	}
}

func TestDecide_CrawlDelayCarriedOnDecision(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /x/\nCrawl-delay: 3\n"))
	}))
	defer server.Close()

	robot, host := robotFor(t, server, &robotTestSink{})

	decision, err := robot.Decide(pageURL(t, host, "/fine"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected an allowed decision")
	}
	if decision.CrawlDelay != 3*time.Second {
		t.Errorf("crawl delay = %v, want 3s", decision.CrawlDelay)
	}
}

func TestDecide_EmptyHostNeverAllowed(t *testing.T) {
	robot := robots.NewCachedRobot(&robotTestSink{})
	robot.Init("auditbot/1.0")

	decision, err := robot.Decide(url.URL{Path: "/relative"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Allowed {
		t.Error("expected an empty host to be disallowed")
	}
}

func TestDecide_ServerErrorSurfacesAndIsRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer server.Close()

	sink := &robotTestSink{}
	robot, host := robotFor(t, server, sink)

	_, err := robot.Decide(pageURL(t, host, "/page"))
	if err == nil {
		t.Fatal("expected an unobtainable policy to surface as an error")
	}
	if len(sink.errors) != 1 {
		t.Errorf("expected one recorded error, got %d", len(sink.errors))
	}
}
