package fetcher

import (
	"context"
	"net/http"

	"github.com/rohmanhakim/crawlindex/pkg/failure"
	"github.com/rohmanhakim/crawlindex/pkg/retry"
)

// Fetcher performs a single page fetch, retrying transient failures
// internally. Fetch always returns a usable FetchResult: outcomes that
// cannot be resolved into an HTTP response are embedded as a StatusTag
// rather than propagated as a Go error, so callers can always emit an
// audit row regardless of what happened on the wire. HtmlFetcher always
// returns a nil error; even a retryParam with MaxAttempts < 1 is reported
// as an error:urlerror StatusTag.
type Fetcher interface {
	Init(httpClient *http.Client)
	Fetch(
		ctx context.Context,
		crawlDepth int,
		fetchParam FetchParam,
		retryParam retry.RetryParam,
	) (FetchResult, failure.ClassifiedError)
}
