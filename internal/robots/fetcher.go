package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rohmanhakim/crawlindex/internal/robots/cache"
)

// maxPolicyBytes caps how much of a robots.txt body is read; anything
// past it is ignored rather than failing the fetch.
const maxPolicyBytes = 500 * 1024

// FetchedPolicy is a PolicyFile plus the fetch metadata worth keeping
// around: when and from where it was retrieved, and what the server
// said. This is the unit the per-host cache stores.
type FetchedPolicy struct {
	File        PolicyFile
	FetchedAt   time.Time
	SourceURL   string
	HTTPStatus  int
	ContentType string
}

// PolicyFetcher retrieves and parses robots.txt for one host at a time,
// memoizing results in its cache so each host is asked at most once per
// crawl. It only fetches and parses; allow/disallow judgment lives in
// CachedRobot.
type PolicyFetcher struct {
	httpClient *http.Client
	userAgent  string
	cache      cache.Cache[FetchedPolicy]
}

// NewPolicyFetcher builds a fetcher with a default 30s-timeout client.
// c may be nil to disable memoization.
func NewPolicyFetcher(userAgent string, c cache.Cache[FetchedPolicy]) *PolicyFetcher {
	return NewPolicyFetcherWithClient(userAgent, &http.Client{Timeout: 30 * time.Second}, c)
}

// NewPolicyFetcherWithClient builds a fetcher around a caller-supplied
// HTTP client, which tests use to point at a local server.
func NewPolicyFetcherWithClient(userAgent string, httpClient *http.Client, c cache.Cache[FetchedPolicy]) *PolicyFetcher {
	return &PolicyFetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
		cache:      c,
	}
}

func policyURL(scheme, host string) string {
	return fmt.Sprintf("%s://%s/robots.txt", scheme, host)
}

// Fetch returns host's policy, from cache when possible. A 2xx response
// is parsed; any 4xx other than 429 means the host publishes no policy
// and yields an empty (allow-everything) file, which is also cached.
// Everything else is an error the caller decides how to treat.
func (f *PolicyFetcher) Fetch(ctx context.Context, scheme, host string) (FetchedPolicy, *RobotsError) {
	sourceURL := policyURL(scheme, host)

	if f.cache != nil {
		if cached, ok := f.cache.Get(sourceURL); ok {
			return cached, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return FetchedPolicy{}, &RobotsError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseRequestSetup,
		}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/plain,text/html,*/*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return FetchedPolicy{}, &RobotsError{
			Message:   fmt.Sprintf("fetch %s: %v", sourceURL, err),
			Retryable: true,
			Cause:     ErrCauseUnreachable,
		}
	}
	defer resp.Body.Close()

	policy, ferr := f.policyFromResponse(resp, host, sourceURL)
	if ferr != nil {
		return FetchedPolicy{}, ferr
	}

	if f.cache != nil {
		f.cache.Put(sourceURL, policy)
	}
	return policy, nil
}

// policyFromResponse maps one HTTP response onto a policy or an error,
// per the usual robots.txt conventions.
func (f *PolicyFetcher) policyFromResponse(resp *http.Response, host, sourceURL string) (FetchedPolicy, *RobotsError) {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxPolicyBytes))
		if err != nil {
			return FetchedPolicy{}, &RobotsError{
				Message:   fmt.Sprintf("read %s: %v", sourceURL, err),
				Retryable: true,
				Cause:     ErrCauseUnreadable,
			}
		}
		return FetchedPolicy{
			File:        ParsePolicy(string(body), host),
			FetchedAt:   time.Now(),
			SourceURL:   sourceURL,
			HTTPStatus:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
		}, nil

	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		// The client follows redirects itself; landing here means a loop
		// or an exceeded hop budget.
		return FetchedPolicy{}, &RobotsError{
			Message:   fmt.Sprintf("redirects exhausted for %s", sourceURL),
			Retryable: true,
			Cause:     ErrCauseRedirectLoop,
		}

	case resp.StatusCode == http.StatusTooManyRequests:
		return FetchedPolicy{}, &RobotsError{
			Message:   fmt.Sprintf("rate limited fetching %s", sourceURL),
			Retryable: true,
			Cause:     ErrCauseRateLimited,
		}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// No robots.txt published: an empty file, which evaluates to
		// allow-everything.
		return FetchedPolicy{
			File:        PolicyFile{Host: host},
			FetchedAt:   time.Now(),
			SourceURL:   sourceURL,
			HTTPStatus:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
		}, nil

	case resp.StatusCode >= 500:
		return FetchedPolicy{}, &RobotsError{
			Message:   fmt.Sprintf("server error %d fetching %s", resp.StatusCode, sourceURL),
			Retryable: true,
			Cause:     ErrCauseServerError,
		}

	default:
		return FetchedPolicy{}, &RobotsError{
			Message:   fmt.Sprintf("status %d fetching %s", resp.StatusCode, sourceURL),
			Retryable: true,
			Cause:     ErrCauseUnexpectedStatus,
		}
	}
}
