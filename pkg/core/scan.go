package core

import (
	"slabindex/pkg/common"
	"slabindex/pkg/core/structure"
	"slabindex/pkg/item"
)

// Scan returns up to bound entries with sort key >= the sort key of buf, in
// ascending order, across every partition. buf need not be indexed itself.
func (idx *Index) Scan(buf []byte, bound int) ([]common.Entry, error) {
	key, err := item.SortKey(buf)
	if err != nil {
		return nil, err
	}
	return idx.ScanKey(key, bound), nil
}

// ScanKey asks each partition, one lock at a time, for its first bound
// entries >= from and merges the sorted answers. Equal keys from different
// partitions come out lowest worker first. Partitions are read one after
// another, so the result is not a single atomic snapshot of the index.
func (idx *Index) ScanKey(from common.SortKey, bound int) []common.Entry {
	if bound <= 0 {
		idx.stats.RecordScan(0)
		return nil
	}

	h := structure.NewCursorHeap(len(idx.partitions))
	gathered := 0
	for _, p := range idx.partitions {
		part := p.findN(from, bound)
		gathered += len(part)
		h.Push(&structure.Cursor{Worker: p.id, Entries: part})
	}

	res := make([]common.Entry, 0, min(bound, gathered))
	for len(res) < bound {
		e, ok := h.Next()
		if !ok {
			break
		}
		res = append(res, e)
	}

	idx.stats.RecordScan(len(res))
	return res
}
