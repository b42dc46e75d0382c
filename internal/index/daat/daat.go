// Package daat implements document-at-a-time query execution over
// per-term postings cursors: Boolean AND/OR set operations and BM25
// top-K ranking, both streaming in increasing docid order without ever
// materializing a full postings list.
package daat

import (
	"container/heap"
	"sort"

	"github.com/rohmanhakim/crawlindex/internal/index/cursor"
)

// Mode selects how a multi-term query's per-document matches combine.
type Mode string

const (
	// ModeAND requires a document to match every query term.
	ModeAND Mode = "AND"
	// ModeOR accepts a document matching at least one query term.
	ModeOR Mode = "OR"
)

// SortCursorsByDF reorders cursors ascending by document frequency, the
// classic heuristic that lets AND intersection skip over the most
// selective term's postings first.
func SortCursorsByDF(cursors []*cursor.Cursor) {
	sort.Slice(cursors, func(i, j int) bool { return cursors[i].DF() < cursors[j].DF() })
}

// BooleanAND returns the docids present in every cursor's postings,
// ascending, by always advancing every cursor that trails the current
// maximum head docid until all heads align.
func BooleanAND(cursors []*cursor.Cursor) []uint32 {
	if len(cursors) == 0 {
		return nil
	}

	heads := make([]uint32, len(cursors))
	for i, c := range cursors {
		d, ok := c.DocID()
		if !ok {
			return nil
		}
		heads[i] = d
	}

	var out []uint32
	for {
		target := heads[0]
		for _, h := range heads[1:] {
			if h > target {
				target = h
			}
		}

		aligned := true
		for i, c := range cursors {
			if heads[i] < target {
				nxt, ok := c.NextGE(target)
				if !ok {
					return out
				}
				heads[i] = nxt
				aligned = false
			}
		}
		if !aligned {
			continue
		}

		out = append(out, target)
		for i, c := range cursors {
			nxt, ok := c.Advance()
			if !ok {
				return out
			}
			heads[i] = nxt
		}
	}
}

type orHeapItem struct {
	docid uint32
	idx   int
}

type orHeap []orHeapItem

func (h orHeap) Len() int            { return len(h) }
func (h orHeap) Less(i, j int) bool  { return h[i].docid < h[j].docid }
func (h orHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *orHeap) Push(x interface{}) { *h = append(*h, x.(orHeapItem)) }
func (h *orHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// BooleanOR returns the union of docids across every cursor's postings,
// ascending, emitting each docid once via a multiway merge.
func BooleanOR(cursors []*cursor.Cursor) []uint32 {
	h := &orHeap{}
	heap.Init(h)
	for i, c := range cursors {
		if d, ok := c.DocID(); ok {
			heap.Push(h, orHeapItem{docid: d, idx: i})
		}
	}

	var out []uint32
	for h.Len() > 0 {
		item := heap.Pop(h).(orHeapItem)
		out = append(out, item.docid)

		if nxt, ok := cursors[item.idx].Advance(); ok {
			heap.Push(h, orHeapItem{docid: nxt, idx: item.idx})
		}
		for h.Len() > 0 && (*h)[0].docid == item.docid {
			tied := heap.Pop(h).(orHeapItem)
			if nxt, ok := cursors[tied.idx].Advance(); ok {
				heap.Push(h, orHeapItem{docid: nxt, idx: tied.idx})
			}
		}
	}
	return out
}
