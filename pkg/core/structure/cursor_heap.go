package structure

import "slabindex/pkg/common"

// Cursor is a read position into one partition's sorted scan result.
type Cursor struct {
	Worker  int
	Entries []common.Entry
	Pos     int
}

func (c *Cursor) head() common.Entry {
	return c.Entries[c.Pos]
}

// CursorHeap is a min-heap of cursors ordered by their current key, ties
// going to the lowest worker id. Exhausted cursors are never stored.
type CursorHeap struct {
	items []*Cursor
}

func NewCursorHeap(capacity int) *CursorHeap {
	return &CursorHeap{items: make([]*Cursor, 0, capacity)}
}

func (h *CursorHeap) Len() int {
	return len(h.items)
}

// Push adds c unless it has nothing left to read.
func (h *CursorHeap) Push(c *Cursor) {
	if c.Pos >= len(c.Entries) {
		return
	}
	h.items = append(h.items, c)
	h.siftUp(len(h.items) - 1)
}

// Next pops the smallest entry and advances its cursor.
func (h *CursorHeap) Next() (common.Entry, bool) {
	if len(h.items) == 0 {
		return common.Entry{}, false
	}
	top := h.items[0]
	e := top.head()
	top.Pos++
	if top.Pos < len(top.Entries) {
		h.siftDown(0)
		return e, true
	}

	n := len(h.items)
	h.items[0] = h.items[n-1]
	h.items[n-1] = nil
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return e, true
}

func (h *CursorHeap) less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	ka, kb := a.head().Key, b.head().Key
	if ka != kb {
		return ka < kb
	}
	return a.Worker < b.Worker
}

func (h *CursorHeap) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !h.less(i, p) {
			return
		}
		h.items[i], h.items[p] = h.items[p], h.items[i]
		i = p
	}
}

func (h *CursorHeap) siftDown(i int) {
	n := len(h.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && h.less(r, l) {
			best = r
		}
		if !h.less(best, i) {
			return
		}
		h.items[i], h.items[best] = h.items[best], h.items[i]
		i = best
	}
}
