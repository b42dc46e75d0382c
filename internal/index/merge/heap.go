package merge

import "github.com/rohmanhakim/crawlindex/internal/index/runio"

// heapItem pairs a record with the index of the reader it came from, so
// the source can be advanced once its current record is consumed.
type heapItem struct {
	rec runio.Record
	src int
}

// recordHeap orders items by (term, docid), the strict ordering every
// input run already satisfies individually.
type recordHeap []heapItem

func (h recordHeap) Len() int { return len(h) }
func (h recordHeap) Less(i, j int) bool {
	if h[i].rec.Term != h[j].rec.Term {
		return h[i].rec.Term < h[j].rec.Term
	}
	return h[i].rec.DocID < h[j].rec.DocID
}
func (h recordHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *recordHeap) Push(x interface{}) {
	*h = append(*h, x.(heapItem))
}

func (h *recordHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
