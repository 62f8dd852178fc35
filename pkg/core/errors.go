package core

import "errors"

var (
	ErrInvalidWorkerCount = errors.New("worker count must be positive")
	ErrInvalidWorker      = errors.New("worker id out of range")
	// ErrPartitionClaimed is returned by index-level mutations on a partition
	// that a Worker handle owns; mutate through the handle instead.
	ErrPartitionClaimed = errors.New("partition is owned by a worker handle")
	ErrNotOwner         = errors.New("slab is owned by another worker")
)
