package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/pkg/failure"
	"github.com/rohmanhakim/crawlindex/pkg/retry"
)

/*
Responsibilities

- Perform HTTP requests
- Apply headers and timeouts
- Decompress gzip/deflate bodies transparently
- Classify responses into a StatusTag, never a propagating Go error

Fetch Semantics

- Only HTML/XHTML response bodies are read; other content types are
  reported with their real status code but a nil body.
- Redirect chains follow http.Client's default (10 hops); exceeding it
  surfaces as error:urlerror.
- Transport failures are classified into timeout/dns/ssl/urlerror and,
  except for ssl failures (terminal on first attempt), retried with
  backoff together with 5xx/429 responses before becoming terminal.
- All responses are logged with metadata.

The fetcher never parses content; it only returns bytes and metadata.
*/

type HtmlFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
}

func NewHtmlFetcher(
	metadataSink metadata.MetadataSink,
) HtmlFetcher {
	return HtmlFetcher{
		metadataSink: metadataSink,
		httpClient:   &http.Client{},
	}
}

func (h *HtmlFetcher) Init(httpClient *http.Client) {
	h.httpClient = httpClient
}

func (h *HtmlFetcher) Fetch(
	ctx context.Context,
	crawlDepth int,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HtmlFetcher.Fetch"
	startTime := time.Now()

	result, retryCount, fetchErr := h.fetchWithRetry(ctx, fetchParam.fetchUrl, fetchParam.userAgent, retryParam)

	duration := time.Since(startTime)

	contentType := h.extractContentType(result.Headers())
	h.metadataSink.RecordFetch(
		fetchParam.fetchUrl.String(),
		result.Status().Code(),
		duration,
		contentType,
		retryCount,
		crawlDepth,
	)

	if fetchErr != nil {
		h.metadataSink.RecordError(
			time.Now(),
			"fetcher",
			callerMethod,
			mapFetchErrorToMetadataCause(fetchErr),
			fetchErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, fetchParam.fetchUrl.String()),
				metadata.NewAttr(metadata.AttrDepth, fmt.Sprintf("%d", crawlDepth)),
			},
		)
	}

	return result, nil
}

func (h *HtmlFetcher) extractContentType(headers map[string]string) string {
	if ct, ok := headers["Content-Type"]; ok {
		return ct
	}
	return ""
}

// fetchWithRetry drives performFetch through the generic retry harness.
// It always returns a usable FetchResult: on non-retryable or exhausted
// failure, the last attempt's classified cause is rendered as an
// error:<kind> StatusTag rather than propagated.
func (h *HtmlFetcher) fetchWithRetry(
	ctx context.Context,
	fetchUrl url.URL,
	userAgent string,
	retryParam retry.RetryParam,
) (FetchResult, int, *FetchError) {
	var lastFetchErr *FetchError

	fetchTask := func() (FetchResult, failure.ClassifiedError) {
		result, ferr := h.performFetch(ctx, fetchUrl, userAgent)
		if ferr != nil {
			lastFetchErr = ferr
			return FetchResult{}, ferr
		}
		return result, nil
	}

	retryResult := retry.Retry(retryParam, fetchTask)

	if retryResult.IsSuccess() {
		return retryResult.Value(), retryResult.Attempts(), nil
	}

	if lastFetchErr == nil {
		// retryParam itself was invalid (e.g. MaxAttempts < 1); no attempt
		// was made, so there is nothing to classify.
		lastFetchErr = &FetchError{
			Message:   "fetch never attempted",
			Retryable: false,
			Cause:     ErrCauseNetworkOther,
		}
	}

	result := FetchResult{
		finalUrl: fetchUrl,
		status:   ErrorStatus(lastFetchErr.Cause.statusKind()),
	}
	return result, retryResult.Attempts(), lastFetchErr
}

func (h *HtmlFetcher) performFetch(ctx context.Context, fetchUrl url.URL, userAgent string) (FetchResult, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkOther,
		}
	}

	for key, value := range requestHeaders(userAgent) {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	responseHeaders := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	switch {
	case resp.StatusCode >= 500:
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("server error: %d", resp.StatusCode),
			Retryable: true,
			Cause:     ErrCauseRequest5xx,
		}
	case resp.StatusCode == 429:
		return FetchResult{}, &FetchError{
			Message:   "rate limited (429)",
			Retryable: true,
			Cause:     ErrCauseRequestTooMany,
		}
	}

	// Non-HTML content: report the real status with no body, never an
	// error. 4xx responses fall through here the same way.
	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContent(contentType) {
		return FetchResult{
			finalUrl: *resp.Request.URL,
			status:   HTTPStatus(resp.StatusCode),
			headers:  responseHeaders,
		}, nil
	}

	body, decErr := readBody(resp)
	if decErr != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", decErr),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	return FetchResult{
		finalUrl: *resp.Request.URL,
		body:     body,
		status:   HTTPStatus(resp.StatusCode),
		headers:  responseHeaders,
	}, nil
}

// readBody reads resp.Body, transparently decompressing it according to
// the Content-Encoding header. The http.Client does this automatically
// only when it added the Accept-Encoding header itself; since we set our
// own Accept-Encoding (gzip, deflate), which disables the transport's
// auto-decompression, we decode ourselves for gzip and deflate.
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	return io.ReadAll(reader)
}

// classifyTransportError maps a net/http client error into the fetcher's
// timeout/dns/ssl/urlerror vocabulary.
func classifyTransportError(err error) *FetchError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{
			Message:   fmt.Sprintf("request timed out: %v", err),
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &FetchError{
			Message:   fmt.Sprintf("dns resolution failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseDNS,
		}
	}

	var certErr *tls.CertificateVerificationError
	var tlsRecordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &tlsRecordErr) || strings.Contains(strings.ToLower(err.Error()), "tls") || strings.Contains(strings.ToLower(err.Error()), "x509") {
		return &FetchError{
			Message:   fmt.Sprintf("tls/ssl error: %v", err),
			Retryable: false,
			Cause:     ErrCauseSSL,
		}
	}

	return &FetchError{
		Message:   fmt.Sprintf("request failed: %v", err),
		Retryable: true,
		Cause:     ErrCauseNetworkOther,
	}
}

func isHTMLContent(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"Accept-Encoding": "gzip, deflate",
		"DNT":             "1",
		"Connection":      "keep-alive",
	}
}
