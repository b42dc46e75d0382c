// Package cmd wires the crawlindex CLI: a bare root command carrying the
// crawl-side persistent flags, with all behavior in subcommands.
package cmd

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/crawlindex/internal/config"
)

// Crawl-side flag state, shared by every subcommand that builds a
// config.Config. Tests drive these through the Set*ForTest seams
// instead of re-parsing os.Args.
var (
	cfgFile           string
	seedURLs          []string
	maxDepth          int
	concurrency       int
	outputDir         string
	dryRun            bool
	maxPages          int
	userAgent         string
	timeout           time.Duration
	baseDelay         time.Duration
	jitter            time.Duration
	randomSeed        int64
	allowedHosts      []string
	allowedPathPrefix []string
)

var rootCmd = &cobra.Command{
	Use:   "crawlindex",
	Short: "A politeness-aware web crawler and disk-resident search index.",
	Long: `crawlindex crawls the web from a set of seed hosts into a structured audit
log, and separately builds a disk-resident inverted index over a TSV corpus,
serving Boolean and BM25-ranked queries against it.

crawl         politeness-aware crawl of one or more seed hosts
build-runs    index a TSV corpus into sorted runs
parallel-merge  reduce runs via k-way merge
finalize      write the final blocked postings and lexicon
search        run Boolean or BM25 queries against a finalized index`,
}

// Execute runs the root command; main.main calls it exactly once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config-file", "", "JSON config file; overrides every other flag")
	flags.StringArrayVar(&seedURLs, "seed-url", []string{}, "one or more starting URLs (can be repeated)")
	flags.IntVar(&maxDepth, "max-depth", 5, "maximum link depth from a seed URL")
	flags.IntVar(&concurrency, "concurrency", 3, "number of concurrent crawl workers")
	flags.StringVar(&outputDir, "output-dir", "output", "root directory for crawl output (audit CSV)")
	flags.BoolVar(&dryRun, "dry-run", false, "crawl without writing output")
	flags.IntVar(&maxPages, "max-pages", 0, "maximum number of pages to fetch (0 keeps the config default)")
	flags.StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	flags.DurationVar(&timeout, "timeout", 0, "per-request HTTP timeout")
	flags.DurationVar(&baseDelay, "base-delay", 0, "base delay between requests to the same host")
	flags.DurationVar(&jitter, "jitter", 0, "random jitter added to the base delay")
	flags.Int64Var(&randomSeed, "random-seed", 0, "seed for random number generation (0 for current time)")
	flags.StringArrayVar(&allowedHosts, "allowed-host", []string{}, "explicit hostname allowlist (defaults to seed hosts)")
	flags.StringArrayVar(&allowedPathPrefix, "allowed-path-prefix", []string{}, "restrict the crawl to paths like `/docs`")

	rootCmd.AddCommand(crawlCmd)
}

// parseSeedURLs parses the raw --seed-url values; at least one valid
// URL is required.
func parseSeedURLs(raw []string) ([]url.URL, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("seed URLs cannot be empty")
	}
	seeds := make([]url.URL, 0, len(raw))
	for _, s := range raw {
		parsed, err := url.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse seed URL %s: %w", s, err)
		}
		seeds = append(seeds, *parsed)
	}
	return seeds, nil
}

func hostSet(hosts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if h != "" {
			set[h] = struct{}{}
		}
	}
	return set
}

// InitConfig builds the crawl config from the current flag state,
// exiting nonzero on error. seedUrls must contain at least one URL.
func InitConfig(seedUrls []url.URL) config.Config {
	cfg, err := InitConfigWithError(seedUrls)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError builds the crawl config from the current flag
// state. When --config-file is set, the file wins outright and the
// other flags are ignored; otherwise each flag with a non-zero value
// overrides the default.
func InitConfigWithError(seedUrls []url.URL) (config.Config, error) {
	if len(seedUrls) == 0 {
		return config.Config{}, fmt.Errorf("%w: seedUrls cannot be empty", config.ErrInvalidConfig)
	}

	if cfgFile != "" {
		fmt.Printf("Initializing config from file: %s\n", cfgFile)
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	builder := config.WithDefault(seedUrls)
	if maxDepth > 0 {
		builder.WithMaxDepth(maxDepth)
	}
	if concurrency > 0 {
		builder.WithConcurrency(concurrency)
	}
	if outputDir != "" && outputDir != "output" {
		builder.WithOutputDir(outputDir)
	}
	if dryRun {
		builder.WithDryRun(true)
	}
	if maxPages > 0 {
		builder.WithMaxPages(maxPages)
	}
	if userAgent != "" {
		builder.WithUserAgent(userAgent)
	}
	if timeout > 0 {
		builder.WithTimeout(timeout)
	}
	if baseDelay > 0 {
		builder.WithBaseDelay(baseDelay)
	}
	if jitter > 0 {
		builder.WithJitter(jitter)
	}
	if randomSeed != 0 {
		builder.WithRandomSeed(randomSeed)
	}
	if len(allowedHosts) > 0 {
		builder.WithAllowedHosts(hostSet(allowedHosts))
	}
	if len(allowedPathPrefix) > 0 {
		builder.WithAllowedPathPrefix(allowedPathPrefix)
	}

	return builder.Build()
}

// ResetFlags restores every crawl-side flag to its zero state; tests
// call it around each case.
func ResetFlags() {
	cfgFile = ""
	seedURLs = []string{}
	maxDepth = 0
	concurrency = 0
	outputDir = ""
	dryRun = false
	maxPages = 0
	userAgent = ""
	timeout = 0
	baseDelay = 0
	jitter = 0
	randomSeed = 0
	allowedHosts = []string{}
	allowedPathPrefix = []string{}
}

// Test seams: set individual flag values without re-parsing os.Args.

func SetConfigFileForTest(path string)              { cfgFile = path }
func SetSeedURLsForTest(urls []string)              { seedURLs = urls }
func SetMaxDepthForTest(depth int)                  { maxDepth = depth }
func SetConcurrencyForTest(conc int)                { concurrency = conc }
func SetOutputDirForTest(dir string)                { outputDir = dir }
func SetDryRunForTest(dry bool)                     { dryRun = dry }
func SetMaxPagesForTest(pages int)                  { maxPages = pages }
func SetUserAgentForTest(agent string)              { userAgent = agent }
func SetTimeoutForTest(t time.Duration)             { timeout = t }
func SetBaseDelayForTest(delay time.Duration)       { baseDelay = delay }
func SetJitterForTest(j time.Duration)              { jitter = j }
func SetRandomSeedForTest(seed int64)               { randomSeed = seed }
func SetAllowedHostsForTest(hosts []string)         { allowedHosts = hosts }
func SetAllowedPathPrefixForTest(prefixes []string) { allowedPathPrefix = prefixes }
