package robots

import (
	"net/url"
	"time"
)

// hostRules is one host's robots.txt policy resolved against this
// crawl's user agent: just the patterns that govern us, ready for the
// evaluator. Immutable once built; cached per host for the crawl's
// lifetime.
type hostRules struct {
	host  string
	agent string

	// Normalized path patterns, longest-match-wins at evaluation time.
	allows    []string
	disallows []string

	// Optional per-host pacing hint from a crawl-delay directive.
	crawlDelay *time.Duration

	fetchedAt time.Time

	// hasGroups is false when the file had no agent groups at all (404,
	// empty file); matchedGroup is false when none of them named us or
	// the wildcard. Both cases default to allow.
	hasGroups    bool
	matchedGroup bool
}

type DecisionReason string

const (
	AllowedByRobots     DecisionReason = "allowed_by_robots"
	DisallowedByRobots  DecisionReason = "disallowed_by_robots"
	UserAgentNotMatched DecisionReason = "user_agent_not_matched"
	EmptyRuleSet        DecisionReason = "empty_rule_set"
	NoMatchingRules     DecisionReason = "no_matching_rules"
)

// Decision is the robots verdict the scheduler acts on: whether the URL
// may be fetched, why, and the crawl-delay pacing hint (zero when the
// policy sets none) that the scheduler forwards to the politeness pacer.
type Decision struct {
	Url url.URL

	Allowed bool

	// Why this decision was made (for logging/debugging)
	Reason DecisionReason

	// Optional delay hint (robots crawl-delay); zero means unset.
	CrawlDelay time.Duration
}
