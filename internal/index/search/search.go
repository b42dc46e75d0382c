// Package search is the query-time entry point over a finalized index: it
// opens the blocked postings file, lexicon, and doc-length table, then
// exposes Boolean and BM25-ranked search over them via DAAT execution.
package search

import (
	"errors"
	"strings"

	"github.com/rohmanhakim/crawlindex/internal/config"
	"github.com/rohmanhakim/crawlindex/internal/index/cursor"
	"github.com/rohmanhakim/crawlindex/internal/index/daat"
	"github.com/rohmanhakim/crawlindex/internal/index/doclen"
	"github.com/rohmanhakim/crawlindex/internal/index/parser"
	"github.com/rohmanhakim/crawlindex/internal/index/postings"
)

// Searcher answers Boolean and BM25 queries over a finalized index.
type Searcher struct {
	reader  *postings.ListReader
	lex     *postings.Lexicon
	lengths *doclen.Table
}

// NewSearcher opens the postings file at postingsPath (decoded with
// codec), loads the lexicon, and returns a ready Searcher. Callers must
// call Close when done.
//
// The doc-length table at doclenPath is optional: BM25 needs doc lengths
// to normalize its score but Boolean search never touches them, so a
// missing doc-lengths file yields a Searcher with an empty table instead
// of a construction error — SearchBM25 against it then naturally returns
// no results, while SearchBoolean is unaffected.
func NewSearcher(postingsPath, lexiconPath, doclenPath string, codec config.Codec) (*Searcher, error) {
	reader, err := postings.NewListReader(postingsPath, codec)
	if err != nil {
		return nil, err
	}
	lex, err := postings.LoadLexicon(lexiconPath)
	if err != nil {
		reader.Close()
		return nil, err
	}
	lengths, err := doclen.Load(doclenPath)
	if err != nil {
		if !isMissingDocLenFile(err) {
			reader.Close()
			return nil, err
		}
		lengths = doclen.New()
	}
	return &Searcher{reader: reader, lex: lex, lengths: lengths}, nil
}

// isMissingDocLenFile reports whether err came from doclen.Load failing to
// open doclenPath, as opposed to a truncated or corrupt file it did
// manage to open.
func isMissingDocLenFile(err error) bool {
	var dlErr *doclen.DocLenError
	if errors.As(err, &dlErr) {
		return dlErr.Cause == doclen.ErrCauseOpenFailure
	}
	return false
}

// Close releases the underlying postings file handle.
func (s *Searcher) Close() error {
	return s.reader.Close()
}

// matchedTerms tokenizes query and keeps only the terms present in the
// lexicon, in query order; cursorsFor sorts the resulting cursors
// ascending by document frequency.
func (s *Searcher) matchedTerms(query string) []string {
	tokens := parser.Tokenize(query)
	seen := make(map[string]bool)
	var terms []string
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		if _, ok := s.lex.Map[t]; !ok {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	return terms
}

func (s *Searcher) cursorsFor(terms []string) ([]*cursor.Cursor, error) {
	cursors := make([]*cursor.Cursor, 0, len(terms))
	for _, t := range terms {
		c, err := cursor.New(s.reader, t, s.lex.Map[t])
		if err != nil {
			return nil, err
		}
		cursors = append(cursors, c)
	}
	daat.SortCursorsByDF(cursors)
	return cursors, nil
}

// SearchBoolean runs a Boolean AND/OR query and returns matching docids
// ascending.
func (s *Searcher) SearchBoolean(query string, mode daat.Mode) ([]uint32, error) {
	terms := s.matchedTerms(strings.TrimSpace(query))
	if len(terms) == 0 {
		return nil, nil
	}
	cursors, err := s.cursorsFor(terms)
	if err != nil {
		return nil, err
	}
	if mode == daat.ModeAND {
		return daat.BooleanAND(cursors), nil
	}
	return daat.BooleanOR(cursors), nil
}

// SearchBM25 runs a BM25-ranked query and returns the top-K results,
// highest score first.
func (s *Searcher) SearchBM25(query string, topK int, mode daat.Mode) ([]daat.ScoredDoc, error) {
	terms := s.matchedTerms(strings.TrimSpace(query))
	if len(terms) == 0 {
		return nil, nil
	}
	cursors, err := s.cursorsFor(terms)
	if err != nil {
		return nil, err
	}
	return daat.RankBM25(cursors, s.lengths.Len, s.lengths.N(), s.lengths.AvgDL(), topK, mode), nil
}
