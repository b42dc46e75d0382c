package robots

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/internal/robots/cache"
)

/*
 CachedRobot is the crawl's robots.txt decision authority, consulted at
 seed admission and again when a frontier entry is popped.

 It fetches each host's policy lazily (at most once per crawl, via the
 per-host cache plus singleflight collapsing of concurrent first
 touches), resolves it against the crawl's user agent, and evaluates
 candidate URLs with longest-matching-rule-wins semantics. A policy that
 cannot be obtained surfaces as an error rather than a default: the
 scheduler owns the allow-all fallback.
*/

// CachedRobot answers robots.txt allow/disallow questions. Safe for
// concurrent use once initialized.
type CachedRobot struct {
	metadataSink metadata.MetadataSink
	fetcher      *PolicyFetcher
	userAgent    string
	group        *singleflight.Group
}

// NewCachedRobot builds a robot that records fetch failures to
// metadataSink. Call Init (or one of its variants) before Decide.
func NewCachedRobot(metadataSink metadata.MetadataSink) CachedRobot {
	return CachedRobot{metadataSink: metadataSink}
}

// Init prepares the robot with userAgent and a fresh in-memory policy
// cache scoped to this crawl.
func (r *CachedRobot) Init(userAgent string) {
	r.InitWithCache(userAgent, cache.NewMemory[FetchedPolicy]())
}

// InitWithCache prepares the robot with userAgent and a caller-supplied
// policy cache.
func (r *CachedRobot) InitWithCache(userAgent string, c cache.Cache[FetchedPolicy]) {
	r.InitWithFetcher(userAgent, NewPolicyFetcher(userAgent, c))
}

// InitWithFetcher prepares the robot around a fully-built PolicyFetcher;
// tests use this to point the fetcher at a local server.
func (r *CachedRobot) InitWithFetcher(userAgent string, fetcher *PolicyFetcher) {
	r.userAgent = userAgent
	r.fetcher = fetcher
	r.group = &singleflight.Group{}
}

// Decide reports whether candidateUrl may be fetched under its host's
// robots.txt. An empty host is never allowed. An unobtainable policy
// surfaces as an error instead of defaulting the decision.
// Policies are keyed by the URL's full host (port included, when one is
// present): a server on a nonstandard port serves its own robots.txt.
func (r *CachedRobot) Decide(candidateUrl url.URL) (Decision, error) {
	host := candidateUrl.Host
	if host == "" {
		return Decision{Url: candidateUrl, Allowed: false, Reason: EmptyRuleSet}, nil
	}

	rs, err := r.rulesForHost(host, candidateUrl.Scheme)
	if err != nil {
		r.recordError(host, err)
		return Decision{}, err
	}

	return evaluate(candidateUrl, rs), nil
}

// rulesForHost returns host's resolved rules, collapsing concurrent
// first-touch fetches into one request via singleflight.
func (r *CachedRobot) rulesForHost(host, scheme string) (hostRules, error) {
	if scheme == "" {
		scheme = "https"
	}

	v, err, _ := r.group.Do(host, func() (interface{}, error) {
		policy, fetchErr := r.fetcher.Fetch(context.Background(), scheme, host)
		if fetchErr != nil {
			return hostRules{}, fetchErr
		}
		return resolveRules(policy.File, r.userAgent, policy.FetchedAt), nil
	})
	if err != nil {
		return hostRules{}, err
	}
	return v.(hostRules), nil
}

func (r *CachedRobot) recordError(host string, err error) {
	var robotsErr *RobotsError
	if !errors.As(err, &robotsErr) {
		return
	}
	r.metadataSink.RecordError(
		time.Now(),
		"robots",
		"CachedRobot.Decide",
		mapRobotsErrorToMetadataCause(robotsErr),
		robotsErr.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrHost, host)},
	)
}

// evaluate applies longest-matching-rule-wins robots.txt semantics: the
// allow/disallow pattern with the longest match governs; ties between an
// allow and a disallow of equal length favor the allow. The decision
// carries the policy's crawl-delay as a pacing hint either way.
func evaluate(candidateUrl url.URL, rs hostRules) Decision {
	crawlDelay := time.Duration(0)
	if rs.crawlDelay != nil {
		crawlDelay = *rs.crawlDelay
	}

	if !rs.hasGroups {
		return Decision{Url: candidateUrl, Allowed: true, Reason: EmptyRuleSet, CrawlDelay: crawlDelay}
	}
	if !rs.matchedGroup {
		return Decision{Url: candidateUrl, Allowed: true, Reason: UserAgentNotMatched, CrawlDelay: crawlDelay}
	}

	path := candidateUrl.Path
	if path == "" {
		path = "/"
	}
	if candidateUrl.RawQuery != "" {
		path += "?" + candidateUrl.RawQuery
	}

	allowed, matched := matchRules(path, rs.allows, rs.disallows)

	reason := AllowedByRobots
	switch {
	case !matched:
		reason = NoMatchingRules
	case !allowed:
		reason = DisallowedByRobots
	}

	return Decision{Url: candidateUrl, Allowed: allowed, Reason: reason, CrawlDelay: crawlDelay}
}

// matchRules returns whether path is allowed and whether any pattern
// matched it at all. With no match, a path defaults to allowed.
func matchRules(path string, allows []string, disallows []string) (allowed bool, matched bool) {
	bestLen := -1
	bestAllow := true

	consider := func(patterns []string, isAllow bool) {
		for _, pattern := range patterns {
			if !matchesRule(path, pattern) {
				continue
			}
			if len(pattern) > bestLen || (len(pattern) == bestLen && isAllow) {
				bestLen = len(pattern)
				bestAllow = isAllow
				matched = true
			}
		}
	}
	// Disallow first so an allow pattern of equal length overrides it,
	// per the precedence tie-break above.
	consider(disallows, false)
	consider(allows, true)

	if !matched {
		return true, false
	}
	return bestAllow, true
}

// matchesRule reports whether path satisfies a robots.txt pattern,
// honoring the "*" wildcard and the "$" end-of-path anchor.
func matchesRule(path, pattern string) bool {
	if pattern == "" {
		return false
	}
	if !strings.ContainsAny(pattern, "*$") {
		return strings.HasPrefix(path, pattern)
	}

	anchored := strings.HasSuffix(pattern, "$")
	trimmed := strings.TrimSuffix(pattern, "$")
	segments := strings.Split(trimmed, "*")

	pos := 0
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		idx := strings.Index(path[pos:], segment)
		if idx == -1 {
			return false
		}
		if i == 0 && idx != 0 {
			return false
		}
		pos += idx + len(segment)
	}
	if anchored && pos != len(path) {
		return false
	}
	return true
}
