package core

import (
	"fmt"
	"sync"

	"slabindex/pkg/common"
	"slabindex/pkg/core/memory"
)

// partition is one worker's tree plus the lock guarding it. Critical sections
// are a single tree operation.
type partition struct {
	id   int
	mu   sync.Mutex
	tree *memory.Tree
	// owned is set once a Worker handle holds the partition; after that only
	// the handle writes. Guarded by mu so that no index-level write can slip
	// in after the claim.
	owned bool
}

func newPartition(id, degree int) *partition {
	return &partition{
		id:   id,
		tree: memory.NewTree(degree),
	}
}

func (p *partition) claim() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.owned {
		return fmt.Errorf("%w: %d", ErrPartitionClaimed, p.id)
	}
	p.owned = true
	return nil
}

func (p *partition) isOwned() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owned
}

func (p *partition) get(key common.SortKey) (common.Location, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tree.Get(key)
}

// put writes key. shared marks a write coming from outside the owning
// Worker, which is refused once the partition is owned.
func (p *partition) put(key common.SortKey, loc common.Location, shared bool) (common.Location, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if shared && p.owned {
		return common.Location{}, false, fmt.Errorf("%w: %d", ErrPartitionClaimed, p.id)
	}
	old, replaced := p.tree.Put(key, loc)
	return old, replaced, nil
}

func (p *partition) delete(key common.SortKey, shared bool) (common.Location, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if shared && p.owned {
		return common.Location{}, false, fmt.Errorf("%w: %d", ErrPartitionClaimed, p.id)
	}
	old, found := p.tree.Delete(key)
	return old, found, nil
}

func (p *partition) findN(from common.SortKey, n int) []common.Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tree.FindN(from, n)
}

func (p *partition) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tree.Len()
}
