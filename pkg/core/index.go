package core

import "slabindex/pkg/common"

// LocationIndex maps item sort keys to the location of their latest value,
// split into one partition per worker.
type LocationIndex interface {
	Lookup(worker int, item []byte) (common.Location, bool, error)
	Insert(worker int, item []byte, loc common.Location) error
	Delete(worker int, item []byte) (bool, error)
	Add(res common.WriteResult, item []byte) error
	Scan(item []byte, bound int) ([]common.Entry, error)
	Workers() int
	Type() string // "btree"
}

var _ LocationIndex = (*Index)(nil)
