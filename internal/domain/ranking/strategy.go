package ranking

import (
	"container/heap"
	"sort"

	"github.com/okian/storefront/internal/domain/product"
)

// scored references an input item by position together with its score.
type scored struct {
	index int
	score float64
}

// ranksBefore returns true if a should appear before b in the result
// (higher score first, earlier input position on ties).
func ranksBefore(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.index < b.index
}

// fullSort scores every item, sorts the whole collection and keeps the first limit.
func fullSort(items []product.Product, s scorer, limit int) []scored {
	all := make([]scored, len(items))
	for i := range items {
		all[i] = scored{index: i, score: s.score(&items[i])}
	}

	sort.Slice(all, func(i, j int) bool {
		return ranksBefore(all[i], all[j])
	})

	if limit < len(all) {
		all = all[:limit]
	}
	return all
}

// boundedTopK keeps at most limit candidates in a min-heap whose root is the
// weakest candidate. A new item replaces the root only when it ranks before
// it, which for a later input position means a strictly greater score.
func boundedTopK(items []product.Product, s scorer, limit int) []scored {
	capacity := limit
	if len(items) < capacity {
		capacity = len(items)
	}
	h := make(candidateHeap, 0, capacity)

	for i := range items {
		c := scored{index: i, score: s.score(&items[i])}
		if h.Len() < limit {
			heap.Push(&h, c)
			continue
		}
		if ranksBefore(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	out := make([]scored, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(scored)
	}
	return out
}

// candidateHeap is a min-heap ordered so the root ranks last.
type candidateHeap []scored

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool { return ranksBefore(h[j], h[i]) }

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) {
	*h = append(*h, x.(scored))
}

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
