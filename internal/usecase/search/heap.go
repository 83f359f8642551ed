package search

import "container/heap"

// entry is one (corpus id, score) candidate in a query's running top-k.
type entry struct {
	id    string
	score float64
}

// resultHeap is a bounded min-heap of size capacity keyed by score. The root
// is the weakest retained candidate; a full heap admits a challenger only if
// it beats the root. On equal scores the lower corpus id wins retention, so
// the selected set is deterministic regardless of chunking or push order.
type resultHeap struct {
	entries  []entry
	capacity int
}

func newResultHeap(capacity int) *resultHeap {
	return &resultHeap{entries: make([]entry, 0, capacity), capacity: capacity}
}

func (h *resultHeap) Len() int { return len(h.entries) }

// Less orders by score ascending; on ties the higher id sorts first so it is
// evicted before the lower id.
func (h *resultHeap) Less(i, j int) bool {
	if h.entries[i].score != h.entries[j].score {
		return h.entries[i].score < h.entries[j].score
	}
	return h.entries[i].id > h.entries[j].id
}

func (h *resultHeap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *resultHeap) Push(x any) { h.entries = append(h.entries, x.(entry)) }

func (h *resultHeap) Pop() any {
	last := len(h.entries) - 1
	e := h.entries[last]
	h.entries = h.entries[:last]
	return e
}

// Add offers a candidate: push while under capacity, otherwise replace the
// root when the candidate beats it.
func (h *resultHeap) Add(id string, score float64) {
	if len(h.entries) < h.capacity {
		heap.Push(h, entry{id: id, score: score})
		return
	}
	root := h.entries[0]
	if score > root.score || (score == root.score && id < root.id) {
		h.entries[0] = entry{id: id, score: score}
		heap.Fix(h, 0)
	}
}

// Drain empties the heap into an id -> score mapping. Heap order is not
// preserved; callers needing ranked order sort downstream.
func (h *resultHeap) Drain() map[string]float64 {
	out := make(map[string]float64, len(h.entries))
	for _, e := range h.entries {
		out[e.id] = e.score
	}
	h.entries = h.entries[:0]
	return out
}
