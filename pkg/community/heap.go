package community

import "container/heap"

// gain is one ΔQ entry: merging row into col changes Q by dq.
type gain struct {
	row, col int
	dq       float64
	index    int
}

// before orders gains by dq, highest first. Equal gains fall back to the
// lower (min, max) community pair.
func (g *gain) before(o *gain) bool {
	if g.dq != o.dq {
		return g.dq > o.dq
	}
	a1, b1 := ordered(g.row, g.col)
	a2, b2 := ordered(o.row, o.col)
	if a1 != a2 {
		return a1 < a2
	}
	return b1 < b2
}

func ordered(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}

// gainHeap is a max-heap of gains that tracks each entry's position so
// entries can be updated and removed in O(log n).
type gainHeap []*gain

func (h gainHeap) Len() int           { return len(h) }
func (h gainHeap) Less(i, j int) bool { return h[i].before(h[j]) }

func (h gainHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *gainHeap) Push(x any) {
	g := x.(*gain)
	g.index = len(*h)
	*h = append(*h, g)
}

func (h *gainHeap) Pop() any {
	old := *h
	n := len(old)
	g := old[n-1]
	old[n-1] = nil
	g.index = -1
	*h = old[:n-1]
	return g
}

// row holds the ΔQ entries of one community keyed by neighbor. Within a
// row every entry has the same row field, so ties resolve to the lower
// column.
type row struct {
	heap  gainHeap
	byCol map[int]*gain
}

func newRow() *row {
	return &row{byCol: make(map[int]*gain)}
}

func (r *row) get(col int) (float64, bool) {
	g, ok := r.byCol[col]
	if !ok {
		return 0, false
	}
	return g.dq, true
}

func (r *row) set(owner, col int, dq float64) {
	if g, ok := r.byCol[col]; ok {
		g.dq = dq
		heap.Fix(&r.heap, g.index)
		return
	}
	g := &gain{row: owner, col: col, dq: dq}
	heap.Push(&r.heap, g)
	r.byCol[col] = g
}

func (r *row) remove(col int) {
	g, ok := r.byCol[col]
	if !ok {
		return
	}
	heap.Remove(&r.heap, g.index)
	delete(r.byCol, col)
}

func (r *row) top() *gain {
	if len(r.heap) == 0 {
		return nil
	}
	return r.heap[0]
}

// cols returns the neighbors of the row. Order is unspecified.
func (r *row) cols() []int {
	out := make([]int, 0, len(r.byCol))
	for c := range r.byCol {
		out = append(out, c)
	}
	return out
}

// maxima is the global heap holding the best entry of every non-empty row.
type maxima struct {
	heap  gainHeap
	byRow map[int]*gain
}

func newMaxima() *maxima {
	return &maxima{byRow: make(map[int]*gain)}
}

// refresh replaces the entry for rowID with the current top of r, or drops
// it when r is empty.
func (m *maxima) refresh(rowID int, r *row) {
	var best *gain
	if r != nil {
		best = r.top()
	}
	cur, ok := m.byRow[rowID]
	switch {
	case best == nil && ok:
		heap.Remove(&m.heap, cur.index)
		delete(m.byRow, rowID)
	case best == nil:
	case ok:
		cur.col, cur.dq = best.col, best.dq
		heap.Fix(&m.heap, cur.index)
	default:
		g := &gain{row: rowID, col: best.col, dq: best.dq}
		heap.Push(&m.heap, g)
		m.byRow[rowID] = g
	}
}

func (m *maxima) top() *gain {
	if len(m.heap) == 0 {
		return nil
	}
	return m.heap[0]
}
