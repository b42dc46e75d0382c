package frontier

import (
	"container/heap"
	"net/url"
)

// entry is one frontier slot: a pending crawl candidate ordered by
// descending priority, ties broken by ascending sequence (FIFO among
// equal-priority pushes).
type entry struct {
	candidate      CrawlAdmissionCandidate
	depth          int
	priority       float64
	priorityAtPush float64
	sequence       int64
}

// entryHeap is a container/heap.Interface over entry, max-priority-first.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].sequence < h[j].sequence
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(*entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// PriorityQueue is the crawl frontier: a priority-ordered, FIFO-on-ties
// heap of admitted URLs, with a fixed capacity enforced by Trim.
type PriorityQueue struct {
	h        entryHeap
	sequence int64
}

// NewPriorityQueue returns an empty frontier.
func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{}
}

// Push admits candidate at depth with the given priority, returning the
// sequence number assigned to it.
func (q *PriorityQueue) Push(candidate CrawlAdmissionCandidate, depth int, priority float64) int64 {
	q.sequence++
	heap.Push(&q.h, &entry{
		candidate:      candidate,
		depth:          depth,
		priority:       priority,
		priorityAtPush: priority,
		sequence:       q.sequence,
	})
	return q.sequence
}

// Pop removes and returns the highest-priority entry. The second return
// value is false when the frontier is empty.
func (q *PriorityQueue) Pop() (PoppedEntry, bool) {
	if q.h.Len() == 0 {
		return PoppedEntry{}, false
	}
	e := heap.Pop(&q.h).(*entry)
	return PoppedEntry{
		Candidate:      e.candidate,
		Depth:          e.depth,
		PriorityAtPop:  e.priority,
		PriorityAtPush: e.priorityAtPush,
	}, true
}

// Len returns the number of entries currently queued.
func (q *PriorityQueue) Len() int {
	return q.h.Len()
}

// Trim enforces the frontier cap: once the queue exceeds cap entries, only
// the top keep entries by priority are retained. It never discards an
// entry that has already been popped, since pops remove entries from the
// heap outright.
func (q *PriorityQueue) Trim(cap int, keep int) {
	if q.h.Len() <= cap {
		return
	}
	retained := make(entryHeap, 0, keep)
	for i := 0; i < keep && q.h.Len() > 0; i++ {
		e := heap.Pop(&q.h).(*entry)
		retained = append(retained, e)
	}
	q.h = retained
	heap.Init(&q.h)
}

// URLs returns the target URL of every entry still pending in the queue, in
// no particular order. Callers use this to reconcile an external
// membership set (e.g. a scheduler's in-frontier dedup set) after Trim
// has silently dropped low-priority entries.
func (q *PriorityQueue) URLs() []url.URL {
	urls := make([]url.URL, 0, len(q.h))
	for _, e := range q.h {
		urls = append(urls, e.candidate.TargetURL())
	}
	return urls
}

// PoppedEntry is what Pop hands back to the caller: enough to resume
// scheduling a candidate without re-exposing heap internals.
type PoppedEntry struct {
	Candidate      CrawlAdmissionCandidate
	Depth          int
	PriorityAtPop  float64
	PriorityAtPush float64
}
