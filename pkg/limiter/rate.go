// Package limiter is the crawl's politeness pacer. It tracks, per host,
// when the last fetch happened and how much delay is currently owed, so
// a worker about to hit a host can wait out the remainder instead of
// hammering it. Three delays compete and the strictest wins: the global
// base delay, a per-host crawl-delay hint (robots.txt), and the
// exponential backoff accrued from that host's recent failures.
package limiter

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rohmanhakim/crawlindex/pkg/timeutil"
)

// Limiter is the pacing surface the scheduler drives: resolve how long a
// worker still owes a host, then report what happened so the next
// resolution reflects it.
type Limiter interface {
	// ResolveDelay returns how much longer a worker must wait before
	// fetching from host. Zero means fetch now.
	ResolveDelay(host string) time.Duration
	// MarkFetch records that a fetch to host happened just now.
	MarkFetch(host string)
	// ApplyCrawlDelay installs a per-host minimum spacing hint (from
	// robots.txt); it never overrides a stricter base or backoff delay.
	ApplyCrawlDelay(host string, delay time.Duration)
	// Backoff escalates host's failure backoff one step.
	Backoff(host string)
	// ResetBackoff clears host's failure backoff after a healthy fetch.
	ResetBackoff(host string)
}

// failureBackoff shapes the per-host penalty curve: 1s doubling to a 30s
// ceiling. These are fixed points of the pacer, not crawl tunables.
var failureBackoff = timeutil.NewBackoffParam(time.Second, 2.0, 30*time.Second)

// HostLimiter is the Limiter used by the crawl scheduler. Safe for
// concurrent use by the whole worker pool.
type HostLimiter struct {
	mu        sync.Mutex
	baseDelay time.Duration
	jitter    time.Duration
	rng       *rand.Rand
	hosts     map[string]*hostState
}

// NewHostLimiter builds a pacer enforcing baseDelay between fetches to
// one host, with up to jitter added per wait. seed fixes the jitter RNG
// so politeness timing is reproducible under test.
func NewHostLimiter(baseDelay, jitter time.Duration, seed int64) *HostLimiter {
	return &HostLimiter{
		baseDelay: baseDelay,
		jitter:    jitter,
		rng:       rand.New(rand.NewSource(seed)),
		hosts:     make(map[string]*hostState),
	}
}

// state returns host's tracking entry, creating it on first touch.
// Caller must hold l.mu.
func (l *HostLimiter) state(host string) *hostState {
	s, ok := l.hosts[host]
	if !ok {
		s = &hostState{}
		l.hosts[host] = s
	}
	return s
}

// ResolveDelay computes the strictest of base delay, crawl-delay hint,
// and failure backoff, adds jitter, and returns whatever portion of it
// has not already elapsed since host's last fetch. A host never fetched
// before owes nothing.
func (l *HostLimiter) ResolveDelay(host string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.hosts[host]
	if !ok || s.lastFetchAt.IsZero() {
		return 0
	}

	owed := timeutil.MaxDuration([]time.Duration{l.baseDelay, s.crawlDelay, s.backoffDelay})
	if l.jitter > 0 {
		owed += time.Duration(l.rng.Int63n(int64(l.jitter)))
	}

	elapsed := time.Since(s.lastFetchAt)
	if elapsed >= owed {
		return 0
	}
	return owed - elapsed
}

func (l *HostLimiter) MarkFetch(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state(host).lastFetchAt = time.Now()
}

func (l *HostLimiter) ApplyCrawlDelay(host string, delay time.Duration) {
	if delay <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state(host).crawlDelay = delay
}

func (l *HostLimiter) Backoff(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state(host)
	s.backoffCount++
	s.backoffDelay = timeutil.ExponentialBackoffDelay(s.backoffCount, 0, nil, failureBackoff)
}

func (l *HostLimiter) ResetBackoff(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.hosts[host]; ok {
		s.backoffCount = 0
		s.backoffDelay = 0
	}
}
