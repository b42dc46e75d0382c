// Package runio writes and reads the intermediate sorted posting runs
// consumed by the external merge pipeline. A run is a flat, globally
// (term, docid)-sorted stream of postings; the merger never needs to hold
// more than one run's current record in memory.
//
// Two wire forms exist: a human-inspectable TSV form ("term\tdocid\ttf\n")
// and a binary RUN1 form that groups postings by term to avoid re-encoding
// the term string once per posting. OpenReader auto-detects which form a
// file is in by its leading magic bytes, so callers never need to track
// which writer produced a given run.
package runio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rohmanhakim/crawlindex/internal/index/shard"
)

// Record is one (term, docid, term-frequency) posting as it appears in a
// run file.
type Record struct {
	Term  string
	DocID uint32
	TF    uint32
}

// Writer accepts successive shard batches and appends their postings to a
// run file in sorted order. A single run file may be built from one
// WriteShard call (the common case: one shard per run) or several, as
// long as each call's postings already sort after everything previously
// written.
type Writer interface {
	WriteShard(idx shard.Index) error
	Close() error
}

// Reader streams Records from a run file in ascending (term, docid) order.
type Reader interface {
	// Next returns the next record, or io.EOF once the run is exhausted.
	Next() (Record, error)
	Close() error
}

// sortedTerms returns idx's terms in ascending order.
func sortedTerms(idx shard.Index) []string {
	terms := make([]string, 0, len(idx))
	for term := range idx {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// sortedDocIDs returns postings' docids in ascending order.
func sortedDocIDs(postings map[uint32]uint32) []uint32 {
	docids := make([]uint32, 0, len(postings))
	for docid := range postings {
		docids = append(docids, docid)
	}
	sort.Slice(docids, func(i, j int) bool { return docids[i] < docids[j] })
	return docids
}

// --- TSV form ---

// TextWriter writes a run in the "term\tdocid\ttf\n" TSV form.
type TextWriter struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

func NewTextWriter(path string) (*TextWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &RunIOError{Message: err.Error(), Cause: ErrCauseCreateFailure, Path: path}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, &RunIOError{Message: err.Error(), Cause: ErrCauseCreateFailure, Path: path}
	}
	return &TextWriter{path: path, f: f, w: bufio.NewWriterSize(f, 1<<20)}, nil
}

func (w *TextWriter) WriteShard(idx shard.Index) error {
	for _, term := range sortedTerms(idx) {
		postings := idx[term]
		for _, docid := range sortedDocIDs(postings) {
			if _, err := fmt.Fprintf(w.w, "%s\t%d\t%d\n", term, docid, postings[docid]); err != nil {
				return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
			}
		}
	}
	return nil
}

func (w *TextWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
	}
	if err := w.f.Close(); err != nil {
		return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
	}
	return nil
}

// TextReader sequentially reads a run file produced by TextWriter.
type TextReader struct {
	path    string
	f       *os.File
	scanner *bufio.Scanner
}

func NewTextReader(path string) (*TextReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &RunIOError{Message: err.Error(), Cause: ErrCauseOpenFailure, Path: path}
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &TextReader{path: path, f: f, scanner: scanner}, nil
}

func (r *TextReader) Next() (Record, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return Record{}, &RunIOError{Message: err.Error(), Cause: ErrCauseTruncatedRecord, Path: r.path}
		}
		return Record{}, io.EOF
	}
	line := r.scanner.Text()
	parts := strings.Split(line, "\t")
	if len(parts) != 3 {
		return Record{}, &RunIOError{Message: line, Cause: ErrCauseMalformedLine, Path: r.path}
	}
	docid, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Record{}, &RunIOError{Message: line, Cause: ErrCauseMalformedLine, Path: r.path}
	}
	tf, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return Record{}, &RunIOError{Message: line, Cause: ErrCauseMalformedLine, Path: r.path}
	}
	return Record{Term: parts[0], DocID: uint32(docid), TF: uint32(tf)}, nil
}

func (r *TextReader) Close() error {
	return r.f.Close()
}

// --- Binary RUN1 form ---

var runMagic = [4]byte{'R', 'U', 'N', '1'}

// BinaryWriter writes a run in the grouped binary RUN1 form:
// [MAGIC] then, for each term in ascending order:
// [len_term u32][term utf8][n u32][docid u32 * n][freq u32 * n].
type BinaryWriter struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

func NewBinaryWriter(path string) (*BinaryWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &RunIOError{Message: err.Error(), Cause: ErrCauseCreateFailure, Path: path}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, &RunIOError{Message: err.Error(), Cause: ErrCauseCreateFailure, Path: path}
	}
	w := bufio.NewWriterSize(f, 1<<20)
	if _, err := w.Write(runMagic[:]); err != nil {
		f.Close()
		return nil, &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: path}
	}
	return &BinaryWriter{path: path, f: f, w: w}, nil
}

func writeU32(w io.Writer, x uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], x)
	_, err := w.Write(buf[:])
	return err
}

func (w *BinaryWriter) WriteShard(idx shard.Index) error {
	for _, term := range sortedTerms(idx) {
		postings := idx[term]
		docids := sortedDocIDs(postings)
		termBytes := []byte(term)
		if err := writeU32(w.w, uint32(len(termBytes))); err != nil {
			return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
		}
		if _, err := w.w.Write(termBytes); err != nil {
			return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
		}
		if err := writeU32(w.w, uint32(len(docids))); err != nil {
			return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
		}
		for _, docid := range docids {
			if err := writeU32(w.w, docid); err != nil {
				return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
			}
		}
		for _, docid := range docids {
			if err := writeU32(w.w, postings[docid]); err != nil {
				return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
			}
		}
	}
	return nil
}

func (w *BinaryWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
	}
	if err := w.f.Close(); err != nil {
		return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
	}
	return nil
}

// BinaryReader iterates (term, docid, freq) from a RUN1 run file,
// streaming group-by-group.
type BinaryReader struct {
	path string
	f    *os.File
	r    *bufio.Reader

	term   string
	docids []uint32
	freqs  []uint32
	i      int
}

func NewBinaryReader(path string) (*BinaryReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &RunIOError{Message: err.Error(), Cause: ErrCauseOpenFailure, Path: path}
	}
	r := bufio.NewReaderSize(f, 1<<20)
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		f.Close()
		return nil, &RunIOError{Message: err.Error(), Cause: ErrCauseBadMagic, Path: path}
	}
	if hdr != runMagic {
		f.Close()
		return nil, &RunIOError{Message: fmt.Sprintf("got %q", hdr), Cause: ErrCauseBadMagic, Path: path}
	}
	return &BinaryReader{path: path, f: f, r: r}, nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (r *BinaryReader) loadNextGroup() (bool, error) {
	lenTerm, err := readU32(r.r)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, &RunIOError{Message: err.Error(), Cause: ErrCauseTruncatedRecord, Path: r.path}
	}
	termBytes := make([]byte, lenTerm)
	if _, err := io.ReadFull(r.r, termBytes); err != nil {
		return false, &RunIOError{Message: err.Error(), Cause: ErrCauseTruncatedRecord, Path: r.path}
	}
	n, err := readU32(r.r)
	if err != nil {
		return false, &RunIOError{Message: err.Error(), Cause: ErrCauseTruncatedRecord, Path: r.path}
	}
	docids := make([]uint32, n)
	for i := range docids {
		d, err := readU32(r.r)
		if err != nil {
			return false, &RunIOError{Message: err.Error(), Cause: ErrCauseTruncatedRecord, Path: r.path}
		}
		docids[i] = d
	}
	freqs := make([]uint32, n)
	for i := range freqs {
		fv, err := readU32(r.r)
		if err != nil {
			return false, &RunIOError{Message: err.Error(), Cause: ErrCauseTruncatedRecord, Path: r.path}
		}
		freqs[i] = fv
	}
	r.term = string(termBytes)
	r.docids = docids
	r.freqs = freqs
	r.i = 0
	return true, nil
}

func (r *BinaryReader) Next() (Record, error) {
	for r.i >= len(r.docids) {
		ok, err := r.loadNextGroup()
		if err != nil {
			return Record{}, err
		}
		if !ok {
			return Record{}, io.EOF
		}
	}
	rec := Record{Term: r.term, DocID: r.docids[r.i], TF: r.freqs[r.i]}
	r.i++
	return rec, nil
}

func (r *BinaryReader) Close() error {
	return r.f.Close()
}

// OpenReader opens path and returns a Reader for whichever run form it is
// in, auto-detected from the leading 4 bytes: "RUN1" selects BinaryReader,
// anything else falls back to TextReader.
func OpenReader(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &RunIOError{Message: err.Error(), Cause: ErrCauseOpenFailure, Path: path}
	}
	var hdr [4]byte
	n, _ := io.ReadFull(f, hdr[:])
	f.Close()
	if n == 4 && hdr == runMagic {
		return NewBinaryReader(path)
	}
	return NewTextReader(path)
}
