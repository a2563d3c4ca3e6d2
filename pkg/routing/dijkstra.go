// Package routing implements the shortest-route engine (original §4.4,
// "C4 Shortest-Route Engine"): single-source Dijkstra over a per-trace
// roadgraph.Graph, from a point snapped mid-feature to another point
// snapped mid-feature.
package routing

import "math"

// MinHeap is a concrete-typed min-heap for the Dijkstra priority queue,
// adapted from teacher's pkg/routing/dijkstra.go. Node identity changes
// from a dense uint32 CSR index to a connector id string, and Dist from
// uint32 millimeters to float64 meters — this matcher's routing graph is
// rebuilt fresh per trace over a handful of candidates rather than loaded
// once from a persisted planet-scale binary, so there is no external
// format forcing an integer encoding.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node string
	Dist float64
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node string, dist float64) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) PeekDist() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].Dist
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].Dist >= h.items[parent].Dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.items[left].Dist < h.items[smallest].Dist {
			smallest = left
		}
		if right < n && h.items[right].Dist < h.items[smallest].Dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
