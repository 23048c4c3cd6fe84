package fetch

import "testing"

func TestTopKHeapKeepsSmallestDistances(t *testing.T) {
	h := newTopKHeap(2)
	h.offer(entry{id: 1, dist: 5})
	h.offer(entry{id: 2, dist: 1})
	h.offer(entry{id: 3, dist: 3})
	h.offer(entry{id: 4, dist: 0.5})

	ids, dists := h.sortedAscending()
	if len(ids) != 2 {
		t.Fatalf("len(ids) = %d, want 2", len(ids))
	}
	if ids[0] != 4 || ids[1] != 2 {
		t.Fatalf("ids = %v, want [4 2]", ids)
	}
	if dists[0] != 0.5 || dists[1] != 1 {
		t.Fatalf("dists = %v, want [0.5 1]", dists)
	}
}
