// Package parser streams (docid, tokens) pairs from the TSV corpus the
// indexer builds from. It is the tokenization ground truth shared by both
// index building and query time: a query is tokenized with the exact same
// Tokenize function a document's text is.
package parser

import (
	"bufio"
	"html"
	"iter"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// tokenPattern keeps dotted/hyphenated runs ("u.s", "3.14") as one token,
// the same shape as the Python original's findall regex.
var tokenPattern = regexp.MustCompile(`[a-z0-9]+(?:[.-][a-z0-9]+)*`)

// Tokenize cleans and tokenizes a raw text string: repairs invalid UTF-8
// byte sequences, unescapes HTML entities, lowercases, then extracts
// tokens matching [a-z0-9]+([.-][a-z0-9]+)*. Returns nil if nothing
// survives.
func Tokenize(text string) []string {
	repaired := repairUTF8(text)
	unescaped := html.UnescapeString(repaired)
	lower := strings.ToLower(unescaped)
	return tokenPattern.FindAllString(lower, -1)
}

// repairUTF8 drops invalid byte sequences instead of propagating them into
// html.UnescapeString/strings.ToLower. It stands in for the Python
// original's ftfy mojibake repair: since the tokenization regex only ever
// keeps ASCII letters, digits, '.', and '-', any non-ASCII byte is dropped
// by the regex regardless, so only encoding-level invalidity needs fixing
// up front.
func repairUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

// ParseLine parses a single TSV line "<docid>\t<text>" into (docid,
// tokens). ok is false if the line has no tab, the docid is not an
// unsigned integer, or tokenization yields nothing.
func ParseLine(line string) (docid uint32, tokens []string, ok bool) {
	line = strings.TrimRight(line, "\n")
	idx := strings.IndexByte(line, '\t')
	if idx < 0 {
		return 0, nil, false
	}
	docidStr, text := line[:idx], line[idx+1:]
	parsed, err := strconv.ParseUint(docidStr, 10, 32)
	if err != nil {
		return 0, nil, false
	}
	tokens = Tokenize(text)
	if len(tokens) == 0 {
		return 0, nil, false
	}
	return uint32(parsed), tokens, true
}

// Doc is one streamed (docid, tokens) record yielded by IterDocs.
type Doc struct {
	DocID  uint32
	Tokens []string
}

// IterDocs streams (docid, tokens) pairs from the TSV file at path without
// retaining the corpus in memory, matching the streaming contract of the
// Python original's iter_docs (as opposed to its deprecated parse_docs,
// which this repo does not carry). limit <= 0 scans every line; a
// positive limit bounds the number of lines scanned, not the number of
// docs yielded, matching the original's enumerate-based cutoff.
//
// The returned errFn reports any fatal read error observed once the
// sequence has been (fully or partially) consumed; callers must check it
// after ranging over seq.
func IterDocs(path string, limit int) (seq iter.Seq[Doc], errFn func() error) {
	f, err := os.Open(path)
	if err != nil {
		openErr := &ParserError{Message: err.Error(), Cause: ErrCauseOpenFailure, Path: path}
		return func(func(Doc) bool) {}, func() error { return openErr }
	}

	var readErr error
	seq = func(yield func(Doc) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

		i := 0
		for scanner.Scan() {
			if limit > 0 && i >= limit {
				break
			}
			i++
			docid, tokens, ok := ParseLine(scanner.Text())
			if !ok {
				continue
			}
			if !yield(Doc{DocID: docid, Tokens: tokens}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			readErr = &ParserError{Message: err.Error(), Cause: ErrCauseReadFailure, Path: path}
		}
	}
	errFn = func() error { return readErr }
	return seq, errFn
}
