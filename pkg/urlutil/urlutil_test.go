package urlutil

import (
	"net/url"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "trailing slash preserved",
			input:    "https://news.example.org/story/",
			expected: "https://news.example.org/story/",
		},
		{
			name:     "no trailing slash stays same",
			input:    "https://news.example.org/story",
			expected: "https://news.example.org/story",
		},
		{
			name:     "fragment removed",
			input:    "https://news.example.org/story#index",
			expected: "https://news.example.org/story",
		},
		{
			name:     "tracking query parameter removed",
			input:    "https://news.example.org/story?utm_source=twitter",
			expected: "https://news.example.org/story",
		},
		{
			name:     "non-tracking query parameter kept",
			input:    "https://news.example.org/story?id=1",
			expected: "https://news.example.org/story?id=1",
		},
		{
			name:     "remaining query params sorted",
			input:    "HTTP://EXAMPLE.com:80/path/?utm_source=x&b=2&a=1",
			expected: "http://example.com/path/?a=1&b=2",
		},
		{
			name:     "fbclid and gclid stripped",
			input:    "https://news.example.org/story?fbclid=abc&gclid=def&q=x",
			expected: "https://news.example.org/story?q=x",
		},
		{
			name:     "both fragment and tracking query removed",
			input:    "https://news.example.org/story?utm_source=twitter#index",
			expected: "https://news.example.org/story",
		},
		{
			name:     "scheme lowercased",
			input:    "HTTPS://news.example.org/story",
			expected: "https://news.example.org/story",
		},
		{
			name:     "host lowercased",
			input:    "https://NEWS.EXAMPLE.ORG/story",
			expected: "https://news.example.org/story",
		},
		{
			name:     "scheme and host lowercased, path preserved",
			input:    "HTTPS://NEWS.EXAMPLE.ORG/STORY",
			expected: "https://news.example.org/STORY",
		},
		{
			name:     "default http port removed",
			input:    "http://news.example.org:80/story",
			expected: "http://news.example.org/story",
		},
		{
			name:     "default https port removed",
			input:    "https://news.example.org:443/story",
			expected: "https://news.example.org/story",
		},
		{
			name:     "non-default port preserved",
			input:    "https://news.example.org:8080/story",
			expected: "https://news.example.org:8080/story",
		},
		{
			name:     "root path collapses to empty",
			input:    "https://news.example.org/",
			expected: "https://news.example.org",
		},
		{
			name:     "root path without slash stays same",
			input:    "https://news.example.org",
			expected: "https://news.example.org",
		},
		{
			name:     "index.html collapses to directory",
			input:    "https://news.example.org/story/index.html",
			expected: "https://news.example.org/story/",
		},
		{
			name:     "index.htm collapses to directory",
			input:    "https://news.example.org/story/index.htm",
			expected: "https://news.example.org/story/",
		},
		{
			name:     "main.html at root collapses to empty path",
			input:    "https://news.example.org/main.html",
			expected: "https://news.example.org",
		},
		{
			name:     "complex path with fragment and tracking query",
			input:    "https://news.example.org/api/v1/users?utm_campaign=x#section",
			expected: "https://news.example.org/api/v1/users",
		},
		{
			name:     "empty query removed",
			input:    "https://news.example.org/story?",
			expected: "https://news.example.org/story",
		},
		{
			name:     "empty fragment removed",
			input:    "https://news.example.org/story#",
			expected: "https://news.example.org/story",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := url.Parse(tt.input)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.input, err)
			}
			canonical := Canonicalize(*in)
			if got := canonical.String(); got != tt.expected {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	testURLs := []string{
		"https://news.example.org/story/",
		"https://news.example.org/story?utm_source=twitter",
		"https://news.example.org/story#index",
		"HTTPS://NEWS.EXAMPLE.ORG:443/STORY/?#",
		"http://example.com:80/path///",
		"https://news.example.org/story/index.html?b=2&a=1",
	}

	for _, urlStr := range testURLs {
		t.Run(urlStr, func(t *testing.T) {
			in, err := url.Parse(urlStr)
			if err != nil {
				t.Fatalf("parse %q: %v", urlStr, err)
			}
			first := Canonicalize(*in)
			second := Canonicalize(first)
			if first.String() != second.String() {
				t.Errorf("not idempotent: first=%q, second=%q", first.String(), second.String())
			}
		})
	}
}

func TestCanonicalizeDoesNotMutateInput(t *testing.T) {
	input, _ := url.Parse("https://example.com/path/?query=1#frag")
	original := *input

	_ = Canonicalize(*input)

	if input.String() != original.String() {
		t.Error("Canonicalize mutated the input URL")
	}
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"http://cs.nyu.edu/path", "nyu.edu"},
		{"https://www.guardian.co.uk/news", "guardian.co.uk"},
		{"http://bbc.co.uk", "bbc.co.uk"},
		{"http://ox.ac.uk", "ox.ac.uk"},
		{"http://example.com", "example.com"},
		{"http://a.b.example.com", "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			u, err := url.Parse(tt.input)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", tt.input, err)
			}
			got := RegistrableDomain(*u)
			if got != tt.expected {
				t.Errorf("RegistrableDomain(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSuperdomain(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"http://cs.nyu.edu/path", "edu"},
		{"https://www.guardian.co.uk/news", "uk"},
		{"http://bbc.co.uk", "uk"},
		{"http://ox.ac.uk", "uk"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			u, err := url.Parse(tt.input)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", tt.input, err)
			}
			got := Superdomain(*u)
			if got != tt.expected {
				t.Errorf("Superdomain(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLooksBinary(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://example.com/a.pdf", true},
		{"https://example.com/b.html", false},
		{"https://example.com/style.CSS", true},
		{"https://example.com/doc", false},
		{"https://example.com/archive.tar.gz", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			u, err := url.Parse(tt.input)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", tt.input, err)
			}
			got := LooksBinary(*u)
			if got != tt.want {
				t.Errorf("LooksBinary(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLowerASCII(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello", "hello"},
		{"HELLO", "hello"},
		{"hello", "hello"},
		{"HTTPS", "https"},
		{"MixedCASE", "mixedcase"},
		{"already-lower", "already-lower"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := lowerASCII(tt.input)
			if result != tt.expected {
				t.Errorf("lowerASCII(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
