package scheduler

import (
	"context"
	"math"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohmanhakim/crawlindex/internal/config"
	"github.com/rohmanhakim/crawlindex/internal/fetcher"
	"github.com/rohmanhakim/crawlindex/internal/frontier"
	"github.com/rohmanhakim/crawlindex/internal/linkextract"
	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/internal/robots"
	"github.com/rohmanhakim/crawlindex/internal/storage"
	"github.com/rohmanhakim/crawlindex/pkg/failure"
	"github.com/rohmanhakim/crawlindex/pkg/limiter"
	"github.com/rohmanhakim/crawlindex/pkg/retry"
	"github.com/rohmanhakim/crawlindex/pkg/timeutil"
	"github.com/rohmanhakim/crawlindex/pkg/urlutil"
)

/*
 Scheduler is the sole control-plane authority of the crawl.

 It coordinates the priority frontier, a bounded worker pool, robots
 enforcement, and audit recording. Shared mutable state is split across
 exactly two mutexes:

 - frontierMu guards the priority queue and the in-frontier dedup set.
 - stateMu guards visited, the per-domain/superdomain counters, and the
   audit write, so that "visited check -> compute counts-before -> write
   audit row -> increment counters" happens atomically for one page.

 Lock ordering is frontierMu before stateMu: admitChildren takes a
 brief stateMu read inside the frontier lock for its visited check, and
 no path acquires them in the reverse order. Fetches and robots lookups
 always happen outside both locks.

 Metadata emission is observational only and MUST NOT influence
 scheduling, retries, or crawl termination.
*/

// RobotDecider is the robots.txt authority a Scheduler consults before
// admitting a seed or popping a frontier entry. Implemented by
// *robots.CachedRobot in production.
type RobotDecider interface {
	Decide(candidateUrl url.URL) (robots.Decision, error)
}

// LinkExtractor recovers outbound links from one fetched document.
// Implemented by linkextract.LinkExtractor in production.
type LinkExtractor interface {
	Extract(sourceURL url.URL, htmlByte []byte) (linkextract.ExtractionResult, failure.ClassifiedError)
}

// idlePollInterval bounds how long an idle worker sleeps before retrying
// an empty frontier.
const idlePollInterval = 20 * time.Millisecond

type Scheduler struct {
	cfg            config.Config
	metadataSink   metadata.MetadataSink
	crawlFinalizer metadata.CrawlFinalizer
	robot          RobotDecider
	htmlFetcher    fetcher.Fetcher
	extractor      LinkExtractor
	storageSink    storage.Sink
	rateLimiter    limiter.Limiter

	rngMu sync.Mutex
	rng   *rand.Rand

	frontierMu sync.Mutex
	pq         *frontier.PriorityQueue
	inFrontier frontier.Set[string]

	stateMu             sync.Mutex
	visited             frontier.Set[string]
	pagesPerDomain      map[string]int
	pagesPerSuperdomain map[string]int
	fetchedCount        int
	totalBytes          uint64
	errorCounts         map[string]int

	idleWorkers int32

	abortMu  sync.Mutex
	abortErr *SchedulerError
}

// NewScheduler wires a Scheduler from its collaborators. cfg supplies crawl
// scope, limits, and politeness tunables; the remaining arguments are the
// crawl's collaborators (F, R, L, the audit sink, and observability).
func NewScheduler(
	cfg config.Config,
	metadataSink metadata.MetadataSink,
	crawlFinalizer metadata.CrawlFinalizer,
	robot RobotDecider,
	htmlFetcher fetcher.Fetcher,
	extractor LinkExtractor,
	storageSink storage.Sink,
	rateLimiter limiter.Limiter,
) *Scheduler {
	return &Scheduler{
		cfg:                 cfg,
		metadataSink:        metadataSink,
		crawlFinalizer:      crawlFinalizer,
		robot:               robot,
		htmlFetcher:         htmlFetcher,
		extractor:           extractor,
		storageSink:         storageSink,
		rateLimiter:         rateLimiter,
		rng:                 rand.New(rand.NewSource(cfg.RandomSeed())),
		pq:                  frontier.NewPriorityQueue(),
		inFrontier:          frontier.NewSet[string](),
		visited:             frontier.NewSet[string](),
		pagesPerDomain:      make(map[string]int),
		pagesPerSuperdomain: make(map[string]int),
		errorCounts:         make(map[string]int),
	}
}

// Run seeds the frontier, drives the worker pool to completion, and
// returns the end-of-run summary. The storage sink is flushed and closed
// on every exit path, including a canceled context.
func (s *Scheduler) Run(ctx context.Context, seeds []url.URL) (Summary, failure.ClassifiedError) {
	start := time.Now()
	defer s.storageSink.Close()

	s.seedFrontier(seeds)

	workers := s.cfg.Concurrency()
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			s.workerLoop(ctx, workers)
		}()
	}
	wg.Wait()

	summary := s.summarize(time.Since(start))
	s.crawlFinalizer.RecordFinalCrawlStats(summary.PagesCrawled, totalErrors(summary.ErrorCounts), 0, time.Since(start))

	s.abortMu.Lock()
	abortErr := s.abortErr
	s.abortMu.Unlock()
	if abortErr != nil {
		return summary, abortErr
	}
	return summary, nil
}

func totalErrors(counts map[string]int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

// seedFrontier admits every seed URL: canonicalize, check robots, skip if
// already visited/queued, compute priority from the (zero) starting
// counters, and push at depth 0.
func (s *Scheduler) seedFrontier(seeds []url.URL) {
	for _, raw := range seeds {
		canon := urlutil.Canonicalize(raw)
		key := canon.String()

		s.stateMu.Lock()
		alreadyVisited := s.visited.Contains(key)
		s.stateMu.Unlock()
		if alreadyVisited {
			continue
		}

		s.frontierMu.Lock()
		alreadyQueued := s.inFrontier.Contains(key)
		s.frontierMu.Unlock()
		if alreadyQueued {
			continue
		}

		if !s.robotsAllow(canon) {
			continue
		}

		domain := urlutil.RegistrableDomain(canon)
		super := urlutil.Superdomain(canon)
		priority := s.priorityFor(domain, super)

		s.frontierMu.Lock()
		candidate := frontier.NewCrawlAdmissionCandidate(canon, frontier.SourceSeed, frontier.NewDiscoveryMetadata(0, nil))
		s.pq.Push(candidate, 0, priority)
		s.inFrontier.Add(key)
		s.frontierMu.Unlock()
	}
}

// robotsAllow wraps RobotDecider.Decide with the allow-all fallback: a
// robots.txt that cannot be fetched or parsed never blocks a crawl, it
// only loses the rule it would have enforced.
// The error is still observed (robots.CachedRobot.recordError already
// logged it); the scheduler is the caller that "decides how to treat it".
// An allowed decision's crawl-delay, when present, is handed to the
// pacer as a per-host spacing hint; it never becomes a hard scheduling
// requirement.
func (s *Scheduler) robotsAllow(candidateUrl url.URL) bool {
	if candidateUrl.Hostname() == "" {
		return false
	}
	decision, err := s.robot.Decide(candidateUrl)
	if err != nil {
		return true
	}
	if decision.Allowed && decision.CrawlDelay > 0 && s.rateLimiter != nil {
		s.rateLimiter.ApplyCrawlDelay(candidateUrl.Hostname(), decision.CrawlDelay)
	}
	return decision.Allowed
}

// priorityFor computes the crawl priority score using a read-only
// snapshot of the current per-(super)domain counters.
func (s *Scheduler) priorityFor(domain, super string) float64 {
	s.stateMu.Lock()
	domainPages := s.pagesPerDomain[domain]
	superPages := s.pagesPerSuperdomain[super]
	s.stateMu.Unlock()
	return computePriority(domainPages, superPages)
}

func computePriority(domainPages, superPages int) float64 {
	return 1/math.Log2(2+float64(domainPages)) + config.SuperdomainWeight/math.Log2(2+float64(superPages))
}

// workerLoop repeatedly pops the highest-priority frontier entry and
// processes it until max-pages is reached or the frontier stays empty
// across every worker's bounded retry window.
func (s *Scheduler) workerLoop(ctx context.Context, workerCount int) {
	for {
		if ctx.Err() != nil {
			return
		}

		s.stateMu.Lock()
		done := s.cfg.MaxPages() > 0 && s.fetchedCount >= s.cfg.MaxPages()
		s.stateMu.Unlock()
		if done || s.isAborted() {
			return
		}

		popped, ok := s.popFrontier()
		if !ok {
			// A worker that exits leaves its idle increment in place, so
			// the counter saturates and the remaining workers observe
			// "everyone is idle" on their next empty pop instead of
			// waiting on a peer that is already gone.
			idle := atomic.AddInt32(&s.idleWorkers, 1)
			if int(idle) >= workerCount {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(idlePollInterval):
			}
			atomic.AddInt32(&s.idleWorkers, -1)
			continue
		}

		s.processCandidate(ctx, popped)
	}
}

func (s *Scheduler) popFrontier() (frontier.PoppedEntry, bool) {
	s.frontierMu.Lock()
	defer s.frontierMu.Unlock()
	popped, ok := s.pq.Pop()
	if ok {
		targetURL := popped.Candidate.TargetURL()
		s.inFrontier.Remove(targetURL.String())
	}
	return popped, ok
}

// processCandidate implements one iteration of the worker loop body:
// politeness, fetch, record, and child discovery.
func (s *Scheduler) processCandidate(ctx context.Context, popped frontier.PoppedEntry) {
	candidateURL := popped.Candidate.TargetURL()
	depth := popped.Depth

	if !s.robotsAllow(candidateURL) {
		return
	}

	host := candidateURL.Hostname()
	s.applyPoliteness(ctx, host)

	result, _ := s.htmlFetcher.Fetch(ctx, depth, fetcher.NewFetchParam(candidateURL, s.cfg.UserAgent()), s.retryParam())
	s.observeFetch(host, result)

	finalURL := urlutil.Canonicalize(result.FinalURL())
	if !s.recordIfNew(finalURL, depth, result, popped.PriorityAtPop) {
		return
	}

	if s.shouldSkipChildren(result, depth) {
		return
	}

	s.discoverChildren(finalURL, depth, result.Body())
}

func (s *Scheduler) retryParam() retry.RetryParam {
	return retry.NewRetryParam(
		s.cfg.BaseDelay(),
		s.cfg.Jitter(),
		s.cfg.RandomSeed(),
		s.cfg.MaxAttempt(),
		timeutil.NewBackoffParam(s.cfg.BackoffInitialDuration(), s.cfg.BackoffMultiplier(), s.cfg.BackoffMaxDuration()),
	)
}

// applyPoliteness enforces the crawl's single inter-request pacing
// primitive for host: wait out whatever ResolveDelay still owes before
// fetching. This is plain request spacing, not Crawl-Delay policy.
func (s *Scheduler) applyPoliteness(ctx context.Context, host string) {
	if s.rateLimiter == nil || host == "" {
		return
	}
	delay := s.rateLimiter.ResolveDelay(host)
	if delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

func (s *Scheduler) observeFetch(host string, result fetcher.FetchResult) {
	if s.rateLimiter == nil || host == "" {
		return
	}
	s.rateLimiter.MarkFetch(host)
	status := result.Status()
	if status.IsError() || status.Code() >= 500 {
		s.rateLimiter.Backoff(host)
	} else {
		s.rateLimiter.ResetBackoff(host)
	}
}

// recordIfNew performs the state-lock-atomic sequence: duplicate check,
// counts-before, audit row, counter increments.
// It reports whether a row was recorded (false means finalURL had already
// been visited via another redirect chain, so no row and no children).
func (s *Scheduler) recordIfNew(finalURL url.URL, depth int, result fetcher.FetchResult, priorityAtPop float64) bool {
	finalKey := finalURL.String()

	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.visited.Contains(finalKey) {
		return false
	}

	domain := urlutil.RegistrableDomain(finalURL)
	super := urlutil.Superdomain(finalURL)
	domainBefore := s.pagesPerDomain[domain]
	superBefore := s.pagesPerSuperdomain[super]
	pageScore := 1 / math.Log2(2+float64(domainBefore))
	superScore := config.SuperdomainWeight / math.Log2(2+float64(superBefore))

	row := storage.NewAuditRow(time.Now())
	row.URL = finalURL.String()
	row.Status = result.Status().String()
	row.Depth = depth
	row.Bytes = result.SizeByte()
	row.Domain = domain
	row.Superdomain = super
	row.DomainCountBefore = domainBefore
	row.SuperCountBefore = superBefore
	row.PageScore = pageScore
	row.SuperScore = superScore
	row.TotalPriority = pageScore + superScore
	row.PriorityAtPop = priorityAtPop

	if writeErr := s.storageSink.Write(row); writeErr != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"scheduler",
			"Scheduler.recordIfNew",
			metadata.CauseStorageFailure,
			writeErr.Error(),
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, row.URL)},
		)
		if failure.IsFatal(writeErr) {
			// Only a fatal OS-level failure (disk full, cannot write) aborts
			// the crawl; everything else is recovered from and merely observed.
			s.abort(&SchedulerError{Message: writeErr.Error(), Cause: ErrCauseAuditWriteFailure})
		}
	}

	s.visited.Add(finalKey)
	s.pagesPerDomain[domain]++
	s.pagesPerSuperdomain[super]++
	s.totalBytes += result.SizeByte()

	if status := result.Status(); status.IsError() || status.Code() >= 400 {
		s.errorCounts[status.String()]++
	}

	s.fetchedCount++
	return true
}

// shouldSkipChildren reports whether a fetched page's children should be
// skipped entirely (empty body, excess depth, a status >= 400, or an
// error status tag).
func (s *Scheduler) shouldSkipChildren(result fetcher.FetchResult, depth int) bool {
	if len(result.Body()) == 0 {
		return true
	}
	if depth >= s.cfg.MaxDepth() {
		return true
	}
	status := result.Status()
	if !status.IsError() && status.Code() >= 400 {
		return true
	}
	return status.IsError()
}

// discoverChildren extracts, samples, filters, and prices outbound
// links, then admits up to MaxKeepChildren candidates and trims the
// frontier back to FrontierKeep if it grew past FrontierCap.
func (s *Scheduler) discoverChildren(sourceURL url.URL, depth int, body []byte) {
	extraction, err := s.extractor.Extract(sourceURL, body)
	if err != nil {
		return
	}

	links := s.sampleLinks(extraction.Links())
	candidates := s.priceCandidates(s.filterCandidates(links))
	s.admitChildren(candidates, depth+1)
}

// sampleLinks applies the MAX_KEEP/OVERSAMPLE rule: pages with more links
// than MaxKeepChildren are uniformly subsampled down to at most
// OversampleChildren indices before any filtering happens.
func (s *Scheduler) sampleLinks(links []url.URL) []url.URL {
	if len(links) <= config.MaxKeepChildren {
		return links
	}
	n := config.OversampleChildren
	if n > len(links) {
		n = len(links)
	}

	s.rngMu.Lock()
	perm := s.rng.Perm(len(links))
	s.rngMu.Unlock()

	sampled := make([]url.URL, n)
	for i := 0; i < n; i++ {
		sampled[i] = links[perm[i]]
	}
	return sampled
}

// filterCandidates drops binary-suffix links and any link whose canonical
// form contains one of the configured filter substrings ("cgi" by default,
// case-insensitive).
func (s *Scheduler) filterCandidates(links []url.URL) []url.URL {
	filterSubstrings := s.cfg.ChildFilterSubstrings()
	filtered := make([]url.URL, 0, len(links))
	for _, l := range links {
		if urlutil.LooksBinary(l) {
			continue
		}
		lower := strings.ToLower(l.String())
		rejected := false
		for _, sub := range filterSubstrings {
			if sub != "" && strings.Contains(lower, strings.ToLower(sub)) {
				rejected = true
				break
			}
		}
		if rejected {
			continue
		}
		filtered = append(filtered, l)
	}
	return filtered
}

// priceCandidates computes each surviving link's priority from the
// counters as they stand at discovery time.
func (s *Scheduler) priceCandidates(links []url.URL) []childCandidate {
	priced := make([]childCandidate, 0, len(links))
	for _, l := range links {
		domain := urlutil.RegistrableDomain(l)
		super := urlutil.Superdomain(l)
		priced = append(priced, childCandidate{url: l, priority: s.priorityFor(domain, super)})
	}
	return priced
}

// admitChildren pushes up to MaxKeepChildren not-yet-seen candidates onto
// the frontier, then trims the frontier back down if it overflowed its
// backpressure cap.
func (s *Scheduler) admitChildren(candidates []childCandidate, childDepth int) {
	s.frontierMu.Lock()
	defer s.frontierMu.Unlock()

	accepted := 0
	for _, cc := range candidates {
		if accepted >= config.MaxKeepChildren {
			break
		}
		key := cc.url.String()

		s.stateMu.Lock()
		seen := s.visited.Contains(key)
		s.stateMu.Unlock()
		if seen || s.inFrontier.Contains(key) {
			continue
		}

		candidate := frontier.NewCrawlAdmissionCandidate(cc.url, frontier.SourceCrawl, frontier.NewDiscoveryMetadata(childDepth, nil))
		s.pq.Push(candidate, childDepth, cc.priority)
		s.inFrontier.Add(key)
		accepted++
	}

	if s.pq.Len() <= config.FrontierCap {
		return
	}
	s.pq.Trim(config.FrontierCap, config.FrontierKeep)

	// Trim silently drops low-priority pending entries; reconcile the
	// dedup set so a future discovery of the same URL can re-admit it
	// instead of believing it is still queued.
	survivors := frontier.NewSet[string]()
	for _, u := range s.pq.URLs() {
		survivors.Add(u.String())
	}
	s.inFrontier = survivors
}

func (s *Scheduler) abort(err *SchedulerError) {
	s.abortMu.Lock()
	alreadyAborted := s.abortErr != nil
	if !alreadyAborted {
		s.abortErr = err
	}
	s.abortMu.Unlock()

	if !alreadyAborted {
		s.metadataSink.RecordError(time.Now(), "scheduler", "Scheduler.abort", mapSchedulerErrorToMetadataCause(err), err.Error(), nil)
	}
}

func (s *Scheduler) isAborted() bool {
	s.abortMu.Lock()
	defer s.abortMu.Unlock()
	return s.abortErr != nil
}

func (s *Scheduler) summarize(elapsed time.Duration) Summary {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	errCopy := make(map[string]int, len(s.errorCounts))
	for k, v := range s.errorCounts {
		errCopy[k] = v
	}

	return Summary{
		PagesCrawled:      s.fetchedCount,
		ElapsedSeconds:    elapsed.Seconds(),
		TotalBytes:        s.totalBytes,
		UniqueDomains:     len(s.pagesPerDomain),
		UniqueSuperdomain: len(s.pagesPerSuperdomain),
		ErrorCounts:       errCopy,
	}
}
