package core

import (
	"fmt"

	"slabindex/pkg/common"
	"slabindex/pkg/item"
)

// Worker is the exclusive handle on one partition. Only one Worker exists per
// partition, and while it exists index-level Insert/Delete/Add on that
// partition are refused, so the handle's goroutine is the partition's only
// writer. A Worker must not be shared between goroutines.
type Worker struct {
	idx *Index
	p   *partition
}

// Worker claims partition id. It fails if the partition is already claimed.
func (idx *Index) Worker(id int) (*Worker, error) {
	p, err := idx.partition(id)
	if err != nil {
		return nil, err
	}
	if err := p.claim(); err != nil {
		return nil, err
	}
	idx.log.Debug("partition claimed", "worker", id)
	return &Worker{idx: idx, p: p}, nil
}

func (w *Worker) ID() int {
	return w.p.id
}

// Lookup reads the partition without taking its lock. This is safe because
// every write to the partition comes from this handle, and scans running
// elsewhere only read.
func (w *Worker) Lookup(buf []byte) (common.Location, bool, error) {
	key, err := item.SortKey(buf)
	if err != nil {
		return common.Location{}, false, err
	}
	loc, ok := w.p.tree.Get(key)
	w.idx.stats.RecordLookup(ok)
	return loc, ok, nil
}

func (w *Worker) Insert(buf []byte, loc common.Location) error {
	return w.idx.insert(w.p, buf, loc, false)
}

func (w *Worker) Delete(buf []byte) (bool, error) {
	return w.idx.delete(w.p, buf, false)
}

// Add indexes a freshly written item. The slab must belong to this worker.
func (w *Worker) Add(res common.WriteResult, buf []byte) error {
	if owner := w.idx.ownerOf(res.Slab); owner != w.p.id {
		return fmt.Errorf("%w: slab %d belongs to worker %d, not %d", ErrNotOwner, res.Slab, owner, w.p.id)
	}
	return w.idx.insert(w.p, buf, res.Location(), false)
}
