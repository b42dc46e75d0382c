package fetcher

import (
	"net/url"
	"strconv"
)

// HTTP boundary

type FetchParam struct {
	fetchUrl  url.URL
	userAgent string
}

func NewFetchParam(fetchUrl url.URL, userAgent string) FetchParam {
	return FetchParam{
		fetchUrl:  fetchUrl,
		userAgent: userAgent,
	}
}

func (p FetchParam) URL() url.URL {
	return p.fetchUrl
}

func (p FetchParam) UserAgent() string {
	return p.userAgent
}

// StatusTag is the fetcher's status column: either a numeric HTTP status
// code, or a non-numeric error tag ("timeout", "dns", "ssl", "urlerror", or
// a generic kind). It renders as the bare code or as "error:<kind>",
// matching the crawl audit CSV's status column.
type StatusTag struct {
	code int
	kind string
}

// HTTPStatus builds a StatusTag carrying a numeric HTTP response code.
func HTTPStatus(code int) StatusTag {
	return StatusTag{code: code}
}

// ErrorStatus builds a StatusTag carrying an "error:<kind>" tag.
func ErrorStatus(kind string) StatusTag {
	return StatusTag{kind: kind}
}

func (s StatusTag) IsError() bool {
	return s.kind != ""
}

func (s StatusTag) Code() int {
	return s.code
}

func (s StatusTag) String() string {
	if s.kind != "" {
		return "error:" + s.kind
	}
	return strconv.Itoa(s.code)
}

type FetchResult struct {
	finalUrl url.URL
	body     []byte
	status   StatusTag
	headers  map[string]string
}

func (f *FetchResult) FinalURL() url.URL {
	return f.finalUrl
}

func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Status() StatusTag {
	return f.status
}

func (f *FetchResult) SizeByte() uint64 {
	return uint64(len(f.body))
}

func (f *FetchResult) Headers() map[string]string {
	return f.headers
}

// NewFetchResultForTest creates a FetchResult for testing purposes. This
// allows test packages to construct FetchResult values without accessing
// unexported fields directly.
func NewFetchResultForTest(
	finalUrl url.URL,
	body []byte,
	status StatusTag,
	headers map[string]string,
) FetchResult {
	return FetchResult{
		finalUrl: finalUrl,
		body:     body,
		status:   status,
		headers:  headers,
	}
}
