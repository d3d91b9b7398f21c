package detector

import "container/heap"

// slidingWindow is a fixed-capacity FIFO of the last N numeric readings,
// used by the anomaly detector to bootstrap and maintain its rolling
// window (spec.md §4.7). Push/Pop operations run in O(log N) via
// container/heap, mirroring the original source's min_heap_reading.rs,
// which keeps the window ordered for efficient oldest-eviction.
type slidingWindow struct {
	capacity int
	items    minHeap
}

func newSlidingWindow(capacity int) *slidingWindow {
	return &slidingWindow{capacity: capacity}
}

// Len reports how many values are currently held (<= capacity).
func (w *slidingWindow) Len() int { return len(w.items) }

// Push inserts v with sequence number seq (used as the heap's ordering key
// so the oldest value is always at the root) and, once the window is at
// capacity, pops and returns the evicted oldest value.
func (w *slidingWindow) Push(seq uint64, v float64) (evicted float64, didEvict bool) {
	heap.Push(&w.items, windowItem{seq: seq, value: v})
	if len(w.items) > w.capacity {
		old := heap.Pop(&w.items).(windowItem)
		return old.value, true
	}
	return 0, false
}

// Values returns the window's current contents in insertion order. The
// detector does not call it; its mean/variance bootstrap goes through
// Anomaly.fill.
func (w *slidingWindow) Values() []float64 {
	sorted := make(minHeap, len(w.items))
	copy(sorted, w.items)
	out := make([]float64, 0, len(sorted))
	for len(sorted) > 0 {
		out = append(out, heap.Pop(&sorted).(windowItem).value)
	}
	return out
}

type windowItem struct {
	seq   uint64
	value float64
}

type minHeap []windowItem

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].seq < h[j].seq }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(windowItem)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
