package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config carries every crawl-side tunable: scope (seeds, host/path
// restrictions), limits (depth, page budget), politeness (worker count,
// delays, retry/backoff shape), child admission filtering, fetch
// behavior, and output location. Fields are private; construction goes
// through WithDefault + chained With* overrides + Build, or through a
// JSON config file.
type Config struct {
	// Crawl scope
	seedURLs          []url.URL
	allowedHosts      map[string]struct{} // empty means "hosts of the seeds"
	allowedPathPrefix []string

	// Limits
	maxDepth int // link hops from a seed
	maxPages int // total pages recorded before the crawl stops

	// Politeness and retry
	concurrency            int // crawl worker goroutines
	baseDelay              time.Duration
	jitter                 time.Duration
	randomSeed             int64
	maxAttempt             int
	backoffInitialDuration time.Duration
	backoffMultiplier      float64
	backoffMaxDuration     time.Duration

	// Child admission: case-insensitive substrings that reject a child
	// link anywhere in its canonical form ("cgi" classically).
	childFilterSubstrings []string

	// Fetch
	timeout   time.Duration
	userAgent string

	// Output
	outputDir string // where the audit CSV lands by default
	dryRun    bool
}

// Frontier and priority constants. These are fixed points of the scheduling
// algorithm, not tunables exposed on Config.
const (
	// FrontierCap is the size at which the frontier is trimmed back down to
	// FrontierKeep entries by priority.
	FrontierCap = 10000
	// FrontierKeep is the number of top-priority entries retained on trim.
	FrontierKeep = 2000
	// MaxKeepChildren is the maximum number of child links admitted per page.
	MaxKeepChildren = 100
	// OversampleChildren bounds the uniform sample taken from a page's links
	// before admission filtering, when it yields more than MaxKeepChildren.
	OversampleChildren = 200
	// SuperdomainWeight (W) discounts the superdomain term of the priority
	// formula relative to the domain term.
	SuperdomainWeight = 0.1
)

// WithDefault starts a builder from the crawl defaults, seeded with the
// mandatory seed URLs.
func WithDefault(seedUrls []url.URL) *Config {
	return &Config{
		seedURLs:               seedUrls,
		allowedHosts:           map[string]struct{}{},
		allowedPathPrefix:      []string{"/"},
		maxDepth:               3,
		maxPages:               100,
		concurrency:            10,
		baseDelay:              time.Second,
		jitter:                 500 * time.Millisecond,
		randomSeed:             time.Now().UnixNano(),
		maxAttempt:             10,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		childFilterSubstrings:  []string{"cgi"},
		timeout:                10 * time.Second,
		userAgent:              "crawlindex/1.0",
		outputDir:              "output",
	}
}

func (c *Config) WithSeedUrls(urls []url.URL) *Config            { c.seedURLs = urls; return c }
func (c *Config) WithAllowedHosts(h map[string]struct{}) *Config { c.allowedHosts = h; return c }
func (c *Config) WithAllowedPathPrefix(p []string) *Config       { c.allowedPathPrefix = p; return c }
func (c *Config) WithMaxDepth(depth int) *Config                 { c.maxDepth = depth; return c }
func (c *Config) WithMaxPages(pages int) *Config                 { c.maxPages = pages; return c }
func (c *Config) WithConcurrency(n int) *Config                  { c.concurrency = n; return c }
func (c *Config) WithBaseDelay(d time.Duration) *Config          { c.baseDelay = d; return c }
func (c *Config) WithJitter(j time.Duration) *Config             { c.jitter = j; return c }
func (c *Config) WithRandomSeed(seed int64) *Config              { c.randomSeed = seed; return c }
func (c *Config) WithMaxAttempt(attempts int) *Config            { c.maxAttempt = attempts; return c }
func (c *Config) WithBackoffInitialDuration(d time.Duration) *Config {
	c.backoffInitialDuration = d
	return c
}
func (c *Config) WithBackoffMultiplier(m float64) *Config { c.backoffMultiplier = m; return c }
func (c *Config) WithBackoffMaxDuration(d time.Duration) *Config {
	c.backoffMaxDuration = d
	return c
}
func (c *Config) WithChildFilterSubstrings(s []string) *Config { c.childFilterSubstrings = s; return c }
func (c *Config) WithTimeout(t time.Duration) *Config          { c.timeout = t; return c }
func (c *Config) WithUserAgent(agent string) *Config           { c.userAgent = agent; return c }
func (c *Config) WithOutputDir(dir string) *Config             { c.outputDir = dir; return c }
func (c *Config) WithDryRun(dryRun bool) *Config               { c.dryRun = dryRun; return c }

// Build validates the builder and freezes it into a Config value. An
// empty allowed-host set defaults to the seed URLs' hosts.
func (c *Config) Build() (Config, error) {
	if len(c.seedURLs) == 0 {
		return Config{}, fmt.Errorf("%w: seedUrls cannot be empty", ErrInvalidConfig)
	}

	if len(c.allowedHosts) == 0 {
		c.allowedHosts = make(map[string]struct{})
		for _, u := range c.seedURLs {
			if u.Host != "" {
				c.allowedHosts[u.Host] = struct{}{}
			}
		}
	}

	return *c, nil
}

// configDTO is the JSON shape of a config file; zero values mean "keep
// the default".
type configDTO struct {
	SeedURLs               []url.URL           `json:"seedUrls"`
	AllowedHosts           map[string]struct{} `json:"allowedHosts,omitempty"`
	AllowedPathPrefix      []string            `json:"allowedPathPrefix,omitempty"`
	MaxDepth               int                 `json:"maxDepth,omitempty"`
	MaxPages               int                 `json:"maxPages,omitempty"`
	Concurrency            int                 `json:"concurrency,omitempty"`
	BaseDelay              time.Duration       `json:"baseDelay,omitempty"`
	Jitter                 time.Duration       `json:"jitter,omitempty"`
	RandomSeed             int64               `json:"randomSeed,omitempty"`
	MaxAttempt             int                 `json:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration       `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64             `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration       `json:"backoffMaxDuration,omitempty"`
	ChildFilterSubstrings  []string            `json:"childFilterSubstrings,omitempty"`
	Timeout                time.Duration       `json:"timeout,omitempty"`
	UserAgent              string              `json:"userAgent,omitempty"`
	OutputDir              string              `json:"outputDir,omitempty"`
	DryRun                 bool                `json:"dryRun,omitempty"`
}

// WithConfigFile loads a Config from a JSON file: defaults first, then
// every non-zero DTO field layered on top.
func WithConfigFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	var dto configDTO
	if err := json.Unmarshal(content, &dto); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(dto)
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	builder := WithDefault(dto.SeedURLs)

	if len(dto.AllowedHosts) > 0 {
		builder.WithAllowedHosts(dto.AllowedHosts)
	}
	if len(dto.AllowedPathPrefix) > 0 {
		builder.WithAllowedPathPrefix(dto.AllowedPathPrefix)
	}
	if dto.MaxDepth != 0 {
		builder.WithMaxDepth(dto.MaxDepth)
	}
	if dto.MaxPages != 0 {
		builder.WithMaxPages(dto.MaxPages)
	}
	if dto.Concurrency != 0 {
		builder.WithConcurrency(dto.Concurrency)
	}
	if dto.BaseDelay != 0 {
		builder.WithBaseDelay(dto.BaseDelay)
	}
	if dto.Jitter != 0 {
		builder.WithJitter(dto.Jitter)
	}
	if dto.RandomSeed != 0 {
		builder.WithRandomSeed(dto.RandomSeed)
	}
	if dto.MaxAttempt != 0 {
		builder.WithMaxAttempt(dto.MaxAttempt)
	}
	if dto.BackoffInitialDuration != 0 {
		builder.WithBackoffInitialDuration(dto.BackoffInitialDuration)
	}
	if dto.BackoffMultiplier != 0 {
		builder.WithBackoffMultiplier(dto.BackoffMultiplier)
	}
	if dto.BackoffMaxDuration != 0 {
		builder.WithBackoffMaxDuration(dto.BackoffMaxDuration)
	}
	if len(dto.ChildFilterSubstrings) > 0 {
		builder.WithChildFilterSubstrings(dto.ChildFilterSubstrings)
	}
	if dto.Timeout != 0 {
		builder.WithTimeout(dto.Timeout)
	}
	if dto.UserAgent != "" {
		builder.WithUserAgent(dto.UserAgent)
	}
	if dto.OutputDir != "" {
		builder.WithOutputDir(dto.OutputDir)
	}
	builder.WithDryRun(dto.DryRun)

	return builder.Build()
}

func (c Config) SeedURLs() []url.URL {
	urls := make([]url.URL, len(c.seedURLs))
	copy(urls, c.seedURLs)
	return urls
}

func (c Config) AllowedHosts() map[string]struct{} {
	hosts := make(map[string]struct{}, len(c.allowedHosts))
	for k := range c.allowedHosts {
		hosts[k] = struct{}{}
	}
	return hosts
}

func (c Config) AllowedPathPrefix() []string {
	prefixes := make([]string, len(c.allowedPathPrefix))
	copy(prefixes, c.allowedPathPrefix)
	return prefixes
}

func (c Config) ChildFilterSubstrings() []string {
	substrings := make([]string, len(c.childFilterSubstrings))
	copy(substrings, c.childFilterSubstrings)
	return substrings
}

func (c Config) MaxDepth() int                         { return c.maxDepth }
func (c Config) MaxPages() int                         { return c.maxPages }
func (c Config) Concurrency() int                      { return c.concurrency }
func (c Config) BaseDelay() time.Duration              { return c.baseDelay }
func (c Config) Jitter() time.Duration                 { return c.jitter }
func (c Config) RandomSeed() int64                     { return c.randomSeed }
func (c Config) MaxAttempt() int                       { return c.maxAttempt }
func (c Config) BackoffInitialDuration() time.Duration { return c.backoffInitialDuration }
func (c Config) BackoffMultiplier() float64            { return c.backoffMultiplier }
func (c Config) BackoffMaxDuration() time.Duration     { return c.backoffMaxDuration }
func (c Config) Timeout() time.Duration                { return c.timeout }
func (c Config) UserAgent() string                     { return c.userAgent }
func (c Config) OutputDir() string                     { return c.outputDir }
func (c Config) DryRun() bool                          { return c.dryRun }
