package common

import "fmt"

// SortKey is the 8-byte key prefix the index orders items by.
type SortKey uint64

// SlabID identifies a slab. Which worker owns a slab is decided by the slab
// layer, not by the index.
type SlabID uint32

// Location is where the current value of a sort key lives.
type Location struct {
	Slab  SlabID
	Index uint64
}

func (l Location) String() string {
	return fmt.Sprintf("Location{Slab: %d, Index: %d}", l.Slab, l.Index)
}

// Entry is one (key, location) pair returned by scans. The location is a
// copy; the index keeps its own.
type Entry struct {
	Key SortKey
	Loc Location
}

// WriteResult is what the write path hands over once an item is stored.
type WriteResult struct {
	Slab   SlabID
	Offset uint64
}

// Location 由写入结果构造索引记录
func (w WriteResult) Location() Location {
	return Location{Slab: w.Slab, Index: w.Offset}
}
