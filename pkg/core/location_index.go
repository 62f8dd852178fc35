package core

import (
	"fmt"
	"log/slog"

	"slabindex/pkg/common"
	"slabindex/pkg/item"
	"slabindex/pkg/logging"
	"slabindex/pkg/monitor"
)

const defaultDegree = 32

type Options struct {
	// Workers is the number of partitions. Fixed for the life of the index.
	Workers   int
	// Degree is the btree degree of every partition. Defaults to 32.
	Degree    int
	// OwnerOf maps a slab to the worker that owns it. Defaults to
	// slab % Workers.
	OwnerOf   func(common.SlabID) int
	// OnRelease receives every location displaced by an overwrite or removed
	// by a delete, exactly once, after the partition lock is dropped.
	OnRelease func(common.Location)
	Logger    *slog.Logger
}

// Index is the partitioned location index: one ordered tree per worker, each
// behind its own lock.
type Index struct {
	partitions []*partition
	ownerOf    func(common.SlabID) int
	onRelease  func(common.Location)
	stats      *monitor.IndexStats
	log        *slog.Logger
}

// New creates opts.Workers empty partitions. It is the only way to build an
// Index and there is no way to resize one.
func New(opts Options) (*Index, error) {
	if opts.Workers < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, opts.Workers)
	}
	if opts.Degree <= 0 {
		opts.Degree = defaultDegree
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}

	idx := &Index{
		partitions: make([]*partition, opts.Workers),
		ownerOf:    opts.OwnerOf,
		onRelease:  opts.OnRelease,
		stats:      monitor.NewIndexStats(),
		log:        opts.Logger,
	}
	if idx.ownerOf == nil {
		workers := opts.Workers
		idx.ownerOf = func(slab common.SlabID) int {
			return int(slab) % workers
		}
	}
	for i := 0; i < opts.Workers; i++ {
		idx.partitions[i] = newPartition(i, opts.Degree)
	}

	idx.log.Info("location index initialised", "workers", opts.Workers, "degree", opts.Degree)
	return idx, nil
}

func (idx *Index) Type() string {
	return "btree"
}

func (idx *Index) Workers() int {
	return len(idx.partitions)
}

func (idx *Index) partition(worker int) (*partition, error) {
	if worker < 0 || worker >= len(idx.partitions) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidWorker, worker, len(idx.partitions))
	}
	return idx.partitions[worker], nil
}

// Lookup returns the location stored for item in the given partition. It
// takes the partition lock, so any goroutine may call it; the owning
// worker's lock-free path is Worker.Lookup.
func (idx *Index) Lookup(worker int, buf []byte) (common.Location, bool, error) {
	p, err := idx.partition(worker)
	if err != nil {
		return common.Location{}, false, err
	}
	key, err := item.SortKey(buf)
	if err != nil {
		return common.Location{}, false, err
	}
	loc, ok := p.get(key)
	idx.stats.RecordLookup(ok)
	return loc, ok, nil
}

// Insert maps item to loc in the given partition, replacing any previous
// location for the same sort key.
func (idx *Index) Insert(worker int, buf []byte, loc common.Location) error {
	p, err := idx.partition(worker)
	if err != nil {
		return err
	}
	return idx.insert(p, buf, loc, true)
}

// Delete removes item from the given partition. It reports whether an entry
// was present.
func (idx *Index) Delete(worker int, buf []byte) (bool, error) {
	p, err := idx.partition(worker)
	if err != nil {
		return false, err
	}
	return idx.delete(p, buf, true)
}

// Add indexes a freshly written item in the partition of the worker that owns
// the slab it was written to.
func (idx *Index) Add(res common.WriteResult, buf []byte) error {
	return idx.Insert(idx.ownerOf(res.Slab), buf, res.Location())
}

// OwnerOf reports which worker owns slab.
func (idx *Index) OwnerOf(slab common.SlabID) int {
	return idx.ownerOf(slab)
}

func (idx *Index) insert(p *partition, buf []byte, loc common.Location, shared bool) error {
	key, err := item.SortKey(buf)
	if err != nil {
		return err
	}
	old, replaced, err := p.put(key, loc, shared)
	if err != nil {
		return err
	}
	idx.stats.RecordInsert(replaced)
	if replaced {
		idx.release(old)
	}
	return nil
}

func (idx *Index) delete(p *partition, buf []byte, shared bool) (bool, error) {
	key, err := item.SortKey(buf)
	if err != nil {
		return false, err
	}
	old, found, err := p.delete(key, shared)
	if err != nil || !found {
		return false, err
	}
	idx.stats.RecordDelete()
	idx.release(old)
	return true, nil
}

func (idx *Index) release(loc common.Location) {
	idx.stats.RecordRelease()
	if idx.onRelease != nil {
		idx.onRelease(loc)
	}
}

// Len counts entries across all partitions, locking each in turn.
func (idx *Index) Len() int {
	total := 0
	for _, p := range idx.partitions {
		total += p.size()
	}
	return total
}

func (idx *Index) Stats() map[string]interface{} {
	sizes := make([]int, len(idx.partitions))
	claimed := 0
	total := 0
	for i, p := range idx.partitions {
		sizes[i] = p.size()
		total += sizes[i]
		if p.isOwned() {
			claimed++
		}
	}
	s := idx.stats.Snapshot()
	return map[string]interface{}{
		"type":             idx.Type(),
		"workers":          len(idx.partitions),
		"claimed_workers":  claimed,
		"entry_count":      total,
		"partition_sizes":  sizes,
		"lookups":          s.LookupCount,
		"hit_ratio":        idx.stats.HitRatio(),
		"inserts":          s.InsertCount,
		"overwrites":       s.OverwriteCount,
		"deletes":          s.DeleteCount,
		"released_records": s.ReleaseCount,
		"scans":            s.ScanCount,
		"scanned_entries":  s.ScannedEntries,
	}
}
