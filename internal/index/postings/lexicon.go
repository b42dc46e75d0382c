// Package postings implements the final, disk-resident blocked postings
// file and its lexicon: the format the merge pipeline commits to and the
// DAAT query engine reads from.
package postings

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/rohmanhakim/crawlindex/internal/config"
)

// BlockMeta describes one on-disk posting block well enough to seek
// straight to it without reading any earlier block.
type BlockMeta struct {
	Offset    int64
	N         int
	LastDocID uint32
	DocBytes  int
	FreqBytes int
}

// LexiconEntry is a term's on-disk posting metadata: where its first
// block starts, its document frequency, the codec its blocks were encoded
// with, and (when present) a full block directory enabling binary-search
// seeks. Blocks is nil only for entries that predate the directory, which
// fall back to a linear block scan; an empty Codec likewise defers to the
// reader's index-wide codec.
type LexiconEntry struct {
	Offset  int64
	DF      int
	NBlocks int
	Codec   config.Codec
	Blocks  []BlockMeta
}

// Lexicon maps terms to their on-disk posting metadata.
type Lexicon struct {
	Map map[string]LexiconEntry
}

// NewLexicon returns an empty lexicon ready for Add calls.
func NewLexicon() *Lexicon {
	return &Lexicon{Map: make(map[string]LexiconEntry)}
}

// Add records term's on-disk metadata.
func (l *Lexicon) Add(term string, entry LexiconEntry) {
	l.Map[term] = entry
}

// SaveLexicon persists lex to path via gob, the stdlib's binary
// serialization, used here because no third-party serialization library
// appears anywhere in the reference stack this module draws its
// dependencies from.
func SaveLexicon(path string, lex *Lexicon) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &PostingsError{Message: err.Error(), Cause: ErrCauseCreateFailure}
	}
	f, err := os.Create(path)
	if err != nil {
		return &PostingsError{Message: err.Error(), Cause: ErrCauseCreateFailure}
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(lex.Map); err != nil {
		return &PostingsError{Message: err.Error(), Cause: ErrCauseWriteFailure}
	}
	return nil
}

// LoadLexicon reads a lexicon previously written by SaveLexicon.
func LoadLexicon(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PostingsError{Message: err.Error(), Cause: ErrCauseOpenFailure}
	}
	defer f.Close()
	m := make(map[string]LexiconEntry)
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, &PostingsError{Message: err.Error(), Cause: ErrCauseIndexCorruption}
	}
	return &Lexicon{Map: m}, nil
}
