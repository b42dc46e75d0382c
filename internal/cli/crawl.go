package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/crawlindex/internal/fetcher"
	"github.com/rohmanhakim/crawlindex/internal/linkextract"
	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/internal/robots"
	"github.com/rohmanhakim/crawlindex/internal/scheduler"
	"github.com/rohmanhakim/crawlindex/internal/storage"
	"github.com/rohmanhakim/crawlindex/pkg/limiter"
)

var (
	seedsFile string
	query     string
	outCSV    string
	numSeeds  int
)

// crawlCmd runs a politeness-aware crawl from either a seeds file or
// --seed-url values, writing a structured audit log to --out. --query is
// rejected as unsupported.
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl one or more seed hosts and write a structured audit log",
	RunE:  runCrawl,
}

func init() {
	crawlCmd.Flags().StringVar(&seedsFile, "seeds-file", "", "path to a newline-delimited file of seed URLs")
	crawlCmd.Flags().StringVar(&query, "query", "", "discover seed URLs from a search query (requires an external seed-discovery helper; not supported)")
	crawlCmd.Flags().StringVar(&outCSV, "out", "", "path to the audit log CSV (defaults to <output-dir>/audit.csv)")
	crawlCmd.Flags().IntVar(&numSeeds, "num-seeds", 0, "cap the number of seed URLs read from --seeds-file (0 for unlimited)")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	sources := 0
	for _, set := range []bool{seedsFile != "", query != "", len(seedURLs) > 0} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("exactly one of --seeds-file, --seed-url, or --query is required")
	}
	if query != "" {
		return fmt.Errorf("--query seed discovery is not supported; pass --seeds-file or --seed-url instead")
	}

	var seeds []url.URL
	var err error
	if seedsFile != "" {
		seeds, err = readSeedsFile(seedsFile, numSeeds)
	} else {
		seeds, err = parseSeedURLs(seedURLs)
	}
	if err != nil {
		return err
	}
	if numSeeds > 0 && len(seeds) > numSeeds {
		seeds = seeds[:numSeeds]
	}

	cfg, err := InitConfigWithError(seeds)
	if err != nil {
		return err
	}

	outPath := outCSV
	if outPath == "" {
		outPath = filepath.Join(cfg.OutputDir(), "audit.csv")
	}

	recorder := metadata.NewStderrRecorder()

	robot := robots.NewCachedRobot(recorder)
	robot.Init(cfg.UserAgent())

	htmlFetcher := fetcher.NewHtmlFetcher(recorder)
	htmlFetcher.Init(&http.Client{Timeout: cfg.Timeout()})

	extractor := linkextract.NewLinkExtractor(recorder)

	sink, classifiedErr := storage.NewLocalCSVSink(outPath, recorder)
	if classifiedErr != nil {
		return fmt.Errorf("open audit sink: %w", classifiedErr)
	}
	defer sink.Close()

	rateLimiter := limiter.NewHostLimiter(cfg.BaseDelay(), cfg.Jitter(), cfg.RandomSeed())

	sched := scheduler.NewScheduler(cfg, recorder, recorder, &robot, &htmlFetcher, &extractor, sink, rateLimiter)

	summary, runErr := sched.Run(context.Background(), seeds)
	if runErr != nil {
		return fmt.Errorf("crawl aborted: %w", runErr)
	}

	fmt.Printf("Pages crawled: %d\n", summary.PagesCrawled)
	fmt.Printf("Elapsed: %.1fs\n", summary.ElapsedSeconds)
	fmt.Printf("Bytes fetched: %d\n", summary.TotalBytes)
	fmt.Printf("Unique domains: %d\n", summary.UniqueDomains)
	fmt.Printf("Unique superdomains: %d\n", summary.UniqueSuperdomain)
	for cause, count := range summary.ErrorCounts {
		fmt.Printf("Errors[%s]: %d\n", cause, count)
	}
	fmt.Printf("Audit log: %s\n", outPath)
	return nil
}

// readSeedsFile reads one seed URL per non-empty, non-comment line from
// path. A limit <= 0 means unlimited.
func readSeedsFile(path string, limit int) ([]url.URL, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seeds file: %w", err)
	}
	defer f.Close()

	var seeds []url.URL
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parsed, err := url.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("parse seed URL %q: %w", line, err)
		}
		seeds = append(seeds, *parsed)
		if limit > 0 && len(seeds) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read seeds file: %w", err)
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("seeds file %s contains no seed URLs", path)
	}
	return seeds, nil
}
