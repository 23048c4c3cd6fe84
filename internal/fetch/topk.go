package fetch

import "container/heap"

// entry is one scored candidate: a global vector id and its distance in
// min-heap polarity (IP distances already negated by internal/kernel).
type entry struct {
	id   uint32
	dist float32
}

// topKHeap is a bounded max-heap keeping the k smallest-distance entries
// seen so far; its root is always the current worst of the kept set, so a
// new candidate only needs one comparison against the root to decide
// whether it displaces anything.
type topKHeap struct {
	k     int
	items []entry
}

func newTopKHeap(k int) *topKHeap {
	return &topKHeap{k: k, items: make([]entry, 0, k)}
}

func (h *topKHeap) Len() int            { return len(h.items) }
func (h *topKHeap) Less(i, j int) bool  { return h.items[i].dist > h.items[j].dist }
func (h *topKHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topKHeap) Push(x interface{})  { h.items = append(h.items, x.(entry)) }
func (h *topKHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}

// offer inserts e if the heap has room or e beats the current worst kept
// entry.
func (h *topKHeap) offer(e entry) {
	if h.Len() < h.k {
		heap.Push(h, e)
		return
	}
	if h.Len() > 0 && e.dist < h.items[0].dist {
		heap.Pop(h)
		heap.Push(h, e)
	}
}

// sortedAscending drains the heap into ascending-distance order, matching
// the original's save_answers reordering before results are returned.
func (h *topKHeap) sortedAscending() ([]uint32, []float32) {
	n := h.Len()
	ids := make([]uint32, n)
	dists := make([]float32, n)
	for i := n - 1; i >= 0; i-- {
		e := heap.Pop(h).(entry)
		ids[i] = e.id
		dists[i] = e.dist
	}
	return ids, dists
}
