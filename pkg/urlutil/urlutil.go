package urlutil

import (
	"net/url"
	"strings"
)

// Canonicalize maps every equivalent spelling of a URL onto one
// canonical form, the key the crawler dedups and accounts by: scheme
// and host lowercased, default ports (80/443) stripped, the fragment
// dropped, tracking query keys (utm_*, fbclid, gclid) removed and the
// remaining keys sorted, well-known index filenames collapsed to their
// directory, and a bare "/" path normalized to empty.
//
// Idempotent: Canonicalize(Canonicalize(u)) == Canonicalize(u).
func Canonicalize(sourceUrl url.URL) url.URL {
	canonical := sourceUrl

	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)
	if port := canonical.Port(); (port == "80" && canonical.Scheme == "http") ||
		(port == "443" && canonical.Scheme == "https") {
		canonical.Host = canonical.Hostname()
	}

	canonical.Fragment = ""
	canonical.RawFragment = ""

	canonical.Path = collapseIndexFilename(canonical.Path)
	if canonical.Path == "/" {
		canonical.Path = ""
	}

	canonical.RawQuery = canonicalizeQuery(canonical.Query())
	canonical.ForceQuery = false

	return canonical
}

// indexFilenames collapse to the directory that contains them.
var indexFilenames = map[string]struct{}{
	"index.html": {},
	"index.htm":  {},
	"index.jsp":  {},
	"main.html":  {},
}

// collapseIndexFilename strips a trailing well-known index filename, leaving
// the enclosing directory path (including its trailing slash).
func collapseIndexFilename(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	filename := path[idx+1:]
	if _, ok := indexFilenames[filename]; ok {
		return path[:idx+1]
	}
	return path
}

// trackingParamNames, together with the "utm_" prefix checked in
// isTrackingParam, identify query keys that carry
// no canonical meaning and must be stripped before comparing URLs.
var trackingParamNames = map[string]struct{}{
	"fbclid": {},
	"gclid":  {},
}

func isTrackingParam(key string) bool {
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, "utm_") {
		return true
	}
	_, ok := trackingParamNames[lower]
	return ok
}

// canonicalizeQuery removes tracking parameters and re-encodes the remaining
// parameters in sorted key order. url.Values.Encode already sorts by key, so
// this also satisfies the "remaining query keys sorted" rule.
func canonicalizeQuery(values url.Values) string {
	for key := range values {
		if isTrackingParam(key) {
			delete(values, key)
		}
	}
	if len(values) == 0 {
		return ""
	}
	return values.Encode()
}

// RegistrableDomain returns the last two labels of the host, except that
// "co.uk" and "ac.uk" promote to three labels (e.g. "www.bbc.co.uk" ->
// "bbc.co.uk"). An empty host yields an empty string.
func RegistrableDomain(sourceUrl url.URL) string {
	host := lowerASCII(sourceUrl.Hostname())
	if host == "" {
		return ""
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}
	lastTwo := strings.Join(labels[len(labels)-2:], ".")
	if (lastTwo == "co.uk" || lastTwo == "ac.uk") && len(labels) >= 3 {
		return strings.Join(labels[len(labels)-3:], ".")
	}
	return lastTwo
}

// Superdomain returns the final label of the host (the effective TLD
// segment used as a coarse diversity bucket). An empty host yields an empty
// string.
func Superdomain(sourceUrl url.URL) string {
	host := lowerASCII(sourceUrl.Hostname())
	if host == "" {
		return ""
	}
	labels := strings.Split(host, ".")
	return labels[len(labels)-1]
}

// binarySuffixes is the fixed suffix set used to classify a URL as pointing
// at non-HTML content: images, archives, audio/video, fonts, stylesheets
// and scripts.
var binarySuffixes = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".ico", ".webp",
	".zip", ".tar", ".gz", ".tgz", ".rar", ".7z",
	".mp3", ".mp4", ".avi", ".mov", ".wav", ".flac", ".ogg", ".webm",
	".woff", ".woff2", ".ttf", ".eot",
	".css", ".js",
	".exe", ".dmg", ".iso",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
}

// LooksBinary reports whether the lowercased URL path ends with any suffix
// in the fixed binary-suffix set.
func LooksBinary(sourceUrl url.URL) bool {
	path := lowerASCII(sourceUrl.Path)
	for _, suffix := range binarySuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// lowerASCII lowercases A-Z bytes only, leaving percent-escapes and
// non-ASCII bytes untouched; schemes and hosts are ASCII in practice
// and full Unicode folding would be wrong for them anyway.
func lowerASCII(s string) string {
	lowered := []byte(s)
	changed := false
	for i, b := range lowered {
		if 'A' <= b && b <= 'Z' {
			lowered[i] = b + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(lowered)
}
