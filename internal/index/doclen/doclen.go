// Package doclen persists and rebuilds the document-length table BM25
// scoring needs: total token count per docid, plus the corpus size and
// average document length derived from it.
package doclen

import (
	"encoding/gob"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/rohmanhakim/crawlindex/internal/index/runio"
)

// Table is the document-length lookup BM25 scoring reads from.
type Table struct {
	Lengths map[uint32]uint32
}

// New returns an empty table.
func New() *Table {
	return &Table{Lengths: make(map[uint32]uint32)}
}

// N is the number of documents in the table.
func (t *Table) N() int { return len(t.Lengths) }

// AvgDL is the corpus's average document length, or 0 for an empty table.
func (t *Table) AvgDL() float64 {
	if len(t.Lengths) == 0 {
		return 0
	}
	var total uint64
	for _, l := range t.Lengths {
		total += uint64(l)
	}
	return float64(total) / float64(len(t.Lengths))
}

// Len returns docid's document length, or 0 if unknown.
func (t *Table) Len(docid uint32) uint32 {
	return t.Lengths[docid]
}

// Save persists t to path via gob.
func Save(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &DocLenError{Message: err.Error(), Cause: ErrCauseCreateFailure}
	}
	f, err := os.Create(path)
	if err != nil {
		return &DocLenError{Message: err.Error(), Cause: ErrCauseCreateFailure}
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(t.Lengths); err != nil {
		return &DocLenError{Message: err.Error(), Cause: ErrCauseWriteFailure}
	}
	return nil
}

// Load reads a table previously written by Save.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DocLenError{Message: err.Error(), Cause: ErrCauseOpenFailure}
	}
	defer f.Close()
	lengths := make(map[uint32]uint32)
	if err := gob.NewDecoder(f).Decode(&lengths); err != nil {
		return nil, &DocLenError{Message: err.Error(), Cause: ErrCauseReadFailure}
	}
	return &Table{Lengths: lengths}, nil
}

// RebuildFromRuns reconstructs a document-length table directly from a set
// of intermediate sorted runs, by summing each docid's term frequencies
// across every (term, docid, tf) record. This lets doc lengths survive
// even when the original corpus file is no longer available once the
// merge pipeline has consumed it into runs.
func RebuildFromRuns(runPaths []string) (*Table, error) {
	t := New()
	for _, path := range runPaths {
		r, err := runio.OpenReader(path)
		if err != nil {
			return nil, err
		}
		readErr := error(nil)
		for {
			rec, err := r.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				readErr = err
				break
			}
			t.Lengths[rec.DocID] += rec.TF
		}
		closeErr := r.Close()
		if readErr != nil {
			return nil, readErr
		}
		if closeErr != nil {
			return nil, closeErr
		}
	}
	return t, nil
}
