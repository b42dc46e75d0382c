package daat

import (
	"container/heap"
	"math"
	"sort"

	"github.com/rohmanhakim/crawlindex/internal/index/cursor"
)

const (
	defaultK1 = 1.2
	defaultB  = 0.75
)

// ScoredDoc is one ranked result: a docid and its accumulated BM25 score.
type ScoredDoc struct {
	DocID uint32
	Score float64
}

// bm25IDF is the standard BM25 inverse document frequency, shifted by +1
// inside the log to keep it non-negative for common df/N ratios.
func bm25IDF(n int, df int) float64 {
	return math.Log((float64(n)-float64(df)+0.5)/(float64(df)+0.5) + 1.0)
}

func bm25TermScore(tf uint32, idf float64, dl uint32, avgdl float64, k1 float64, b float64) float64 {
	denom := float64(tf) + k1*(1.0-b+b*(float64(dl)/avgdl))
	return idf * (float64(tf) * (k1 + 1.0)) / denom
}

type scoreHeapItem struct {
	score float64
	docid uint32
}

type scoreHeap []scoreHeapItem

func (h scoreHeap) Len() int            { return len(h) }
func (h scoreHeap) Less(i, j int) bool  { return h[i].score < h[j].score }
func (h scoreHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoreHeap) Push(x interface{}) { *h = append(*h, x.(scoreHeapItem)) }
func (h *scoreHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// RankBM25 streams documents matching cursors' terms in increasing docid
// order, accumulates each one's BM25 score across matched terms, and
// returns the top-K results sorted by score descending (ties broken by
// ascending docid). n is the corpus size and avgdl its average document
// length; docLen resolves a docid's length, and a document it reports as
// zero-length is dropped rather than ranked.
func RankBM25(
	cursors []*cursor.Cursor,
	docLen func(docid uint32) uint32,
	n int,
	avgdl float64,
	topK int,
	mode Mode,
) []ScoredDoc {
	if len(cursors) == 0 || n == 0 || avgdl == 0 {
		return nil
	}

	idfs := make([]float64, len(cursors))
	for i, c := range cursors {
		idfs[i] = bm25IDF(n, c.DF())
	}

	h := &orHeap{}
	heap.Init(h)
	for i, c := range cursors {
		if d, ok := c.DocID(); ok {
			heap.Push(h, orHeapItem{docid: d, idx: i})
		}
	}

	top := &scoreHeap{}
	heap.Init(top)

	for h.Len() > 0 {
		d := (*h)[0].docid
		var tied []int
		for h.Len() > 0 && (*h)[0].docid == d {
			item := heap.Pop(h).(orHeapItem)
			tied = append(tied, item.idx)
		}

		advanceTied := func() {
			for _, idx := range tied {
				if nxt, ok := cursors[idx].Advance(); ok {
					heap.Push(h, orHeapItem{docid: nxt, idx: idx})
				}
			}
		}

		if mode == ModeAND && len(tied) < len(cursors) {
			advanceTied()
			continue
		}

		dl := docLen(d)
		if dl == 0 {
			// Unknown or empty document: contributes nothing, so it never
			// earns a top-K slot.
			advanceTied()
			continue
		}

		sc := 0.0
		for _, idx := range tied {
			tf := cursors[idx].Freq()
			sc += bm25TermScore(tf, idfs[idx], dl, avgdl, defaultK1, defaultB)
		}

		if top.Len() < topK {
			heap.Push(top, scoreHeapItem{score: sc, docid: d})
		} else if top.Len() > 0 && sc > (*top)[0].score {
			heap.Pop(top)
			heap.Push(top, scoreHeapItem{score: sc, docid: d})
		}

		advanceTied()
	}

	results := make([]ScoredDoc, 0, top.Len())
	for _, item := range *top {
		results = append(results, ScoredDoc{DocID: item.docid, Score: item.score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	return results
}
