package runio

import (
	"bufio"
	"fmt"
	"os"
)

// StreamWriter appends (term, docid, tf) records one at a time, in the
// caller's order. Callers must present records in non-decreasing (term,
// docid) order: the merge pipeline is the only producer of this ordering,
// since it is exactly what a k-way merge over sorted runs already
// guarantees.
type StreamWriter interface {
	Add(term string, docid uint32, tf uint32) error
	Close() error
}

// BinaryStreamWriter incrementally writes the grouped binary RUN1 form,
// flushing the buffered group each time the term changes.
type BinaryStreamWriter struct {
	path string
	f    *os.File
	w    *bufio.Writer

	curTerm string
	hasTerm bool
	docids  []uint32
	freqs   []uint32
}

func NewBinaryStreamWriter(path string) (*BinaryStreamWriter, error) {
	bw, err := NewBinaryWriter(path)
	if err != nil {
		return nil, err
	}
	return &BinaryStreamWriter{path: bw.path, f: bw.f, w: bw.w}, nil
}

func (w *BinaryStreamWriter) flushGroup() error {
	if !w.hasTerm {
		return nil
	}
	termBytes := []byte(w.curTerm)
	if err := writeU32(w.w, uint32(len(termBytes))); err != nil {
		return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
	}
	if _, err := w.w.Write(termBytes); err != nil {
		return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
	}
	if err := writeU32(w.w, uint32(len(w.docids))); err != nil {
		return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
	}
	for _, d := range w.docids {
		if err := writeU32(w.w, d); err != nil {
			return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
		}
	}
	for _, f := range w.freqs {
		if err := writeU32(w.w, f); err != nil {
			return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
		}
	}
	w.docids = w.docids[:0]
	w.freqs = w.freqs[:0]
	return nil
}

func (w *BinaryStreamWriter) Add(term string, docid uint32, tf uint32) error {
	if !w.hasTerm || term != w.curTerm {
		if err := w.flushGroup(); err != nil {
			return err
		}
		w.curTerm = term
		w.hasTerm = true
	}
	w.docids = append(w.docids, docid)
	w.freqs = append(w.freqs, tf)
	return nil
}

func (w *BinaryStreamWriter) Close() error {
	if err := w.flushGroup(); err != nil {
		w.f.Close()
		return err
	}
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
	}
	if err := w.f.Close(); err != nil {
		return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
	}
	return nil
}

// TextStreamWriter incrementally writes the "term\tdocid\ttf\n" TSV form.
type TextStreamWriter struct {
	*TextWriter
}

func NewTextStreamWriter(path string) (*TextStreamWriter, error) {
	w, err := NewTextWriter(path)
	if err != nil {
		return nil, err
	}
	return &TextStreamWriter{TextWriter: w}, nil
}

func (w *TextStreamWriter) Add(term string, docid uint32, tf uint32) error {
	if _, err := fmt.Fprintf(w.w, "%s\t%d\t%d\n", term, docid, tf); err != nil {
		return &RunIOError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: w.path}
	}
	return nil
}
