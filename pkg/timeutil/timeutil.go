// Package timeutil holds the delay arithmetic shared by the fetch retry
// loop and the per-host politeness pacer: exponential backoff with a cap,
// plus small duration helpers.
package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoffDelay computes the wait before retry attempt
// (1-indexed): param's initial duration doubled (or whatever multiplier
// param carries) per prior attempt, capped at param's max, with up to
// jitter added on top.
func ExponentialBackoffDelay(attempt int, jitter time.Duration, rng *rand.Rand, param BackoffParam) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(param.InitialDuration()) * math.Pow(param.Multiplier(), float64(attempt-1))
	if cap := float64(param.MaxDuration()); cap > 0 && delay > cap {
		delay = cap
	}
	if jitter > 0 && rng != nil {
		delay += float64(rng.Int63n(int64(jitter)))
	}
	return time.Duration(delay)
}

// MaxDuration returns the largest duration in the slice, or zero for an
// empty slice. The pacer uses it to pick the strictest of the base,
// crawl-delay, and backoff delays owed to a host.
func MaxDuration(durations []time.Duration) time.Duration {
	var max time.Duration
	for i, d := range durations {
		if i == 0 || d > max {
			max = d
		}
	}
	return max
}
