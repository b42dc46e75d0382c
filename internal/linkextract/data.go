package linkextract

import "net/url"

// ExtractionResult holds every outbound link recovered from one document,
// already resolved to absolute, canonicalized form.
type ExtractionResult struct {
	links []url.URL
}

func newExtractionResult(links []url.URL) ExtractionResult {
	return ExtractionResult{links: links}
}

func (r ExtractionResult) Links() []url.URL {
	links := make([]url.URL, len(r.links))
	copy(links, r.links)
	return links
}

// NewExtractionResultForTest creates an ExtractionResult for testing
// purposes. This allows test packages to construct ExtractionResult values
// without accessing unexported fields directly.
func NewExtractionResultForTest(links []url.URL) ExtractionResult {
	return newExtractionResult(links)
}
