package limiter

import "time"

// hostState is everything the pacer remembers about one host: when it
// was last fetched, the robots crawl-delay hint installed for it, and
// how deep into the failure backoff curve it currently sits.
type hostState struct {
	lastFetchAt  time.Time
	crawlDelay   time.Duration
	backoffDelay time.Duration
	backoffCount int
}
