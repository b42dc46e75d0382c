package limiter_test

import (
	"testing"
	"time"

	"github.com/rohmanhakim/crawlindex/pkg/limiter"
)

func TestResolveDelay_UnknownHostOwesNothing(t *testing.T) {
	l := limiter.NewHostLimiter(time.Second, 0, 1)
	if d := l.ResolveDelay("never-seen.com"); d != 0 {
		t.Errorf("expected zero delay for an unfetched host, got %v", d)
	}
}

func TestResolveDelay_BaseDelayOwedAfterFetch(t *testing.T) {
	l := limiter.NewHostLimiter(time.Hour, 0, 1)
	l.MarkFetch("a.com")

	d := l.ResolveDelay("a.com")
	if d <= 0 || d > time.Hour {
		t.Errorf("expected a positive remainder up to the base delay, got %v", d)
	}
}

func TestResolveDelay_ElapsedTimeDischargesTheDebt(t *testing.T) {
	l := limiter.NewHostLimiter(time.Millisecond, 0, 1)
	l.MarkFetch("a.com")

	time.Sleep(5 * time.Millisecond)
	if d := l.ResolveDelay("a.com"); d != 0 {
		t.Errorf("expected the owed delay to have elapsed, got %v", d)
	}
}

func TestApplyCrawlDelay_StrictestDelayWins(t *testing.T) {
	l := limiter.NewHostLimiter(time.Millisecond, 0, 1)
	l.ApplyCrawlDelay("slow.com", time.Hour)
	l.MarkFetch("slow.com")
	l.MarkFetch("fast.com")

	slow := l.ResolveDelay("slow.com")
	if slow < 30*time.Minute {
		t.Errorf("expected the crawl-delay hint to dominate the base delay, got %v", slow)
	}
	time.Sleep(2 * time.Millisecond)
	if fast := l.ResolveDelay("fast.com"); fast != 0 {
		t.Errorf("expected the un-hinted host to owe only the base delay, got %v", fast)
	}
}

func TestApplyCrawlDelay_NonPositiveIgnored(t *testing.T) {
	l := limiter.NewHostLimiter(0, 0, 1)
	l.ApplyCrawlDelay("a.com", 0)
	l.ApplyCrawlDelay("a.com", -time.Second)
	l.MarkFetch("a.com")

	if d := l.ResolveDelay("a.com"); d != 0 {
		t.Errorf("expected no delay from ignored hints, got %v", d)
	}
}

func TestBackoff_EscalatesAndResets(t *testing.T) {
	l := limiter.NewHostLimiter(0, 0, 1)
	l.MarkFetch("flaky.com")

	l.Backoff("flaky.com")
	first := l.ResolveDelay("flaky.com")
	l.Backoff("flaky.com")
	second := l.ResolveDelay("flaky.com")

	if first <= 0 {
		t.Fatalf("expected a positive backoff delay, got %v", first)
	}
	if second <= first {
		t.Errorf("expected backoff to escalate: first=%v second=%v", first, second)
	}

	l.ResetBackoff("flaky.com")
	if d := l.ResolveDelay("flaky.com"); d != 0 {
		t.Errorf("expected reset to clear the backoff debt, got %v", d)
	}
}

func TestResolveDelay_JitterStaysWithinBound(t *testing.T) {
	base := 10 * time.Second
	jitter := time.Second
	l := limiter.NewHostLimiter(base, jitter, 42)
	l.MarkFetch("a.com")

	for i := 0; i < 50; i++ {
		d := l.ResolveDelay("a.com")
		if d > base+jitter {
			t.Fatalf("delay %v exceeds base+jitter", d)
		}
	}
}
