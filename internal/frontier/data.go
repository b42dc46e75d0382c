package frontier

import (
	"net/url"
	"time"
)

// CrawlAdmissionCandidate is a URL the scheduler has already admitted:
// canonicalized, robots-checked, and deduplicated. The frontier orders
// and stores candidates; it never re-evaluates admission.
type CrawlAdmissionCandidate struct {
	targetURL         url.URL
	sourceContext     SourceContext
	discoveryMetadata DiscoveryMetadata
}

func NewCrawlAdmissionCandidate(target url.URL, source SourceContext, discovery DiscoveryMetadata) CrawlAdmissionCandidate {
	return CrawlAdmissionCandidate{targetURL: target, sourceContext: source, discoveryMetadata: discovery}
}

func (c *CrawlAdmissionCandidate) TargetURL() url.URL { return c.targetURL }

func (c *CrawlAdmissionCandidate) SourceContext() SourceContext { return c.sourceContext }

func (c *CrawlAdmissionCandidate) DiscoveryMetadata() DiscoveryMetadata { return c.discoveryMetadata }

// SourceContext records whether a candidate entered the crawl as a seed
// or was discovered on a fetched page; the distinction only matters for
// observability.
type SourceContext string

const (
	SourceSeed  = "Seed"
	SourceCrawl = "Crawl"
)

// DiscoveryMetadata carries where in the crawl a candidate was found:
// its link depth from the seed (seeds are depth 0) and an optional
// pacing override.
// TODO: implement delay overriding in both scheduler and frontier
type DiscoveryMetadata struct {
	depth         int
	delayOverride *time.Duration
}

func NewDiscoveryMetadata(depth int, delayOverride *time.Duration) DiscoveryMetadata {
	return DiscoveryMetadata{depth: depth, delayOverride: delayOverride}
}

func (d DiscoveryMetadata) Depth() int { return d.depth }

func (d DiscoveryMetadata) DelayOverride() *time.Duration { return d.delayOverride }
