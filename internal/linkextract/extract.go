package linkextract

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rohmanhakim/crawlindex/internal/metadata"
	"github.com/rohmanhakim/crawlindex/pkg/failure"
	"github.com/rohmanhakim/crawlindex/pkg/urlutil"
)

/*
Responsibilities
- Parse one fetched HTML document.
- Resolve every <a href> against the effective base (the fetched URL,
  overridden by the document's first <base href>).
- Skip fragment-only, non-navigable, and unparseable hrefs.
- Canonicalize every surviving link before returning it.

This extractor is stateless per call: one document in, one link list out.
It does not crawl, schedule, or dedupe across pages.
*/

// skippedSchemes are hrefs that are never worth enqueuing.
var skippedSchemes = map[string]bool{
	"mailto":     true,
	"javascript": true,
	"tel":        true,
	"ftp":        true,
	"file":       true,
	"data":       true,
	"blob":       true,
}

type LinkExtractor struct {
	metadataSink metadata.MetadataSink
}

func NewLinkExtractor(metadataSink metadata.MetadataSink) LinkExtractor {
	return LinkExtractor{metadataSink: metadataSink}
}

// Extract parses htmlByte (the document fetched from sourceURL) and returns
// every outbound link it contains, absolute and canonicalized.
func (e *LinkExtractor) Extract(sourceURL url.URL, htmlByte []byte) (ExtractionResult, failure.ClassifiedError) {
	result, err := e.extract(sourceURL, htmlByte)
	if err != nil {
		var linkErr *LinkExtractError
		errors.As(err, &linkErr)
		e.metadataSink.RecordError(
			time.Now(),
			"linkextract",
			"LinkExtractor.Extract",
			mapLinkExtractErrorToMetadataCause(linkErr),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, sourceURL.String()),
			},
		)
		return ExtractionResult{}, linkErr
	}
	return result, nil
}

func (e *LinkExtractor) extract(sourceURL url.URL, htmlByte []byte) (ExtractionResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlByte))
	if err != nil {
		return ExtractionResult{}, &LinkExtractError{
			Message:   fmt.Sprintf("failed to parse HTML: %v", err),
			Retryable: false,
			Cause:     ErrCauseMalformed,
		}
	}

	effectiveBase := sourceURL
	if baseHref, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved, err := resolveAgainst(sourceURL, baseHref); err == nil {
			effectiveBase = resolved
		}
	}

	var links []url.URL
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		link, ok := e.resolveLink(effectiveBase, href)
		if !ok {
			return
		}
		links = append(links, link)
	})

	return newExtractionResult(links), nil
}

// resolveLink turns href into an absolute, canonical URL relative to base,
// or reports false when href should be skipped entirely.
func (e *LinkExtractor) resolveLink(base url.URL, href string) (url.URL, bool) {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return url.URL{}, false
	}

	if scheme := schemeOf(trimmed); scheme != "" && skippedSchemes[strings.ToLower(scheme)] {
		return url.URL{}, false
	}

	resolved, err := resolveAgainst(base, trimmed)
	if err != nil {
		return url.URL{}, false
	}

	if resolved.Scheme != "" && resolved.Scheme != "http" && resolved.Scheme != "https" {
		return url.URL{}, false
	}

	return urlutil.Canonicalize(resolved), true
}

func resolveAgainst(base url.URL, ref string) (url.URL, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return url.URL{}, err
	}
	return *base.ResolveReference(refURL), nil
}

// schemeOf returns the scheme prefix of a raw href, if any, without fully
// parsing it (relative hrefs have no scheme and must not be rejected).
func schemeOf(href string) string {
	idx := strings.Index(href, ":")
	if idx <= 0 {
		return ""
	}
	scheme := href[:idx]
	for _, r := range scheme {
		if !strings.ContainsRune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789+-.", r) {
			return ""
		}
	}
	return scheme
}
