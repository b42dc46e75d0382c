// Package merge implements the external k-way merge pipeline that turns a
// set of intermediate sorted runs into the final blocked postings file:
// a bounded-fanin round reduction stage (ReduceRounds) followed by a
// single distinct final stage (Finalize) that commits straight to the
// on-disk postings file and lexicon.
package merge

import (
	"container/heap"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rohmanhakim/crawlindex/internal/config"
	"github.com/rohmanhakim/crawlindex/internal/index/postings"
	"github.com/rohmanhakim/crawlindex/internal/index/runio"
)

// RoundRecorder is the observability hook ReduceRounds reports each
// round's fan-in through.
type RoundRecorder interface {
	RecordMergeRound(round int, inputRuns int, outputRuns int)
}

// kWayMerge opens every path in paths and streams their records merged
// into strict (term, docid) order, aggregating term frequency across runs
// that share a (term, docid) pair. visit is called once per merged
// (term, docid, tf); a non-nil error from visit stops the merge early and
// is returned.
func kWayMerge(paths []string, visit func(term string, docid uint32, tf uint32) error) error {
	readers := make([]runio.Reader, len(paths))
	for i, p := range paths {
		r, err := runio.OpenReader(p)
		if err != nil {
			return err
		}
		readers[i] = r
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	h := &recordHeap{}
	heap.Init(h)
	for i, r := range readers {
		rec, err := r.Next()
		if err == io.EOF {
			continue
		}
		if err != nil {
			return err
		}
		heap.Push(h, heapItem{rec: rec, src: i})
	}

	currentTerm := ""
	currentDocID := uint32(0)
	currentTF := uint32(0)
	hasCurrent := false

	flush := func() error {
		if !hasCurrent {
			return nil
		}
		return visit(currentTerm, currentDocID, currentTF)
	}

	for h.Len() > 0 {
		item := heap.Pop(h).(heapItem)
		rec := item.rec

		switch {
		case !hasCurrent:
			currentTerm, currentDocID, currentTF = rec.Term, rec.DocID, rec.TF
			hasCurrent = true
		case rec.Term != currentTerm:
			if err := flush(); err != nil {
				return err
			}
			currentTerm, currentDocID, currentTF = rec.Term, rec.DocID, rec.TF
		case rec.DocID == currentDocID:
			currentTF += rec.TF
		default:
			if err := flush(); err != nil {
				return err
			}
			currentDocID, currentTF = rec.DocID, rec.TF
		}

		next, err := readers[item.src].Next()
		if err == io.EOF {
			continue
		}
		if err != nil {
			return err
		}
		heap.Push(h, heapItem{rec: next, src: item.src})
	}

	return flush()
}

// MergeRunsToRun k-way merges inPaths into a single new run file at
// outPath, aggregating term frequency for identical (term, docid) pairs
// across inputs. Returns the number of distinct (term, docid) rows
// written.
func MergeRunsToRun(inPaths []string, outPath string) (int, error) {
	if len(inPaths) == 0 {
		return 0, &MergeError{Message: outPath, Cause: ErrCauseEmptyInput}
	}
	w, err := runio.NewBinaryStreamWriter(outPath)
	if err != nil {
		return 0, err
	}

	rows := 0
	mergeErr := kWayMerge(inPaths, func(term string, docid uint32, tf uint32) error {
		rows++
		return w.Add(term, docid, tf)
	})
	closeErr := w.Close()
	if mergeErr != nil {
		return 0, mergeErr
	}
	if closeErr != nil {
		return 0, closeErr
	}
	return rows, nil
}

// ReduceRounds repeatedly fan-in-merges runPaths, cfg.Fanin() runs at a
// time, until at most cfg.Fanin() runs remain (or, if cfg.Rounds() > 0, a
// bounded number of rounds have executed). It does not produce the final
// index: the last, bounded set of runs is left for Finalize. Each round's
// group merges run concurrently, bounded by cfg.Workers().
func ReduceRounds(runPaths []string, cfg config.IndexConfig, recorder RoundRecorder) ([]string, error) {
	current := append([]string(nil), runPaths...)
	sort.Strings(current)

	round := 0
	for len(current) > cfg.Fanin() {
		if cfg.Rounds() > 0 && round >= cfg.Rounds() {
			break
		}

		groups := chunk(current, cfg.Fanin())
		outputs := make([]string, len(groups))

		g := new(errgroup.Group)
		g.SetLimit(cfg.Workers())
		for i, group := range groups {
			i, group := i, group
			g.Go(func() error {
				outPath := filepath.Join(cfg.TmpDir(), fmt.Sprintf("round-%d-group-%d.run", round, i))
				if _, err := MergeRunsToRun(group, outPath); err != nil {
					return err
				}
				outputs[i] = outPath
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, &MergeError{Message: err.Error(), Cause: ErrCauseRoundFailure}
		}

		if recorder != nil {
			recorder.RecordMergeRound(round, len(current), len(outputs))
		}
		current = outputs
		round++
	}

	return current, nil
}

func chunk(paths []string, size int) [][]string {
	var groups [][]string
	for i := 0; i < len(paths); i += size {
		end := i + size
		if end > len(paths) {
			end = len(paths)
		}
		groups = append(groups, paths[i:end])
	}
	return groups
}

// Finalize performs the single distinct final merge stage: a k-way merge
// over runPaths that accumulates one term's complete postings map at a
// time before committing it to the blocked postings writer and lexicon.
func Finalize(runPaths []string, postingsPath string, lexiconPath string, cfg config.IndexConfig) (*postings.Lexicon, error) {
	if len(runPaths) == 0 {
		return nil, &MergeError{Message: postingsPath, Cause: ErrCauseEmptyInput}
	}

	w, err := postings.NewListWriter(postingsPath, cfg.BlockSize(), cfg.Codec())
	if err != nil {
		return nil, err
	}
	lex := postings.NewLexicon()

	currentTerm := ""
	hasCurrentTerm := false
	accum := make(map[uint32]uint32)

	flush := func() error {
		if !hasCurrentTerm || len(accum) == 0 {
			return nil
		}
		entry, err := w.AddTerm(currentTerm, accum)
		if err != nil {
			return err
		}
		lex.Add(currentTerm, entry)
		for k := range accum {
			delete(accum, k)
		}
		return nil
	}

	mergeErr := kWayMerge(runPaths, func(term string, docid uint32, tf uint32) error {
		if !hasCurrentTerm {
			currentTerm, hasCurrentTerm = term, true
		} else if term != currentTerm {
			if err := flush(); err != nil {
				return err
			}
			currentTerm = term
		}
		accum[docid] += tf
		return nil
	})
	if mergeErr == nil {
		mergeErr = flush()
	}

	closeErr := w.Close()
	if mergeErr != nil {
		return nil, mergeErr
	}
	if closeErr != nil {
		return nil, closeErr
	}

	if err := postings.SaveLexicon(lexiconPath, lex); err != nil {
		return nil, err
	}
	return lex, nil
}
