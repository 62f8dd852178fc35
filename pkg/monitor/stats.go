package monitor

import (
	"sync/atomic"
)

type IndexStats struct {
	LookupCount    uint64
	HitCount       uint64
	InsertCount    uint64
	OverwriteCount uint64
	DeleteCount    uint64
	ReleaseCount   uint64
	ScanCount      uint64
	ScannedEntries uint64
}

func NewIndexStats() *IndexStats {
	return &IndexStats{}
}

func (s *IndexStats) RecordLookup(hit bool) {
	atomic.AddUint64(&s.LookupCount, 1)
	if hit {
		atomic.AddUint64(&s.HitCount, 1)
	}
}

func (s *IndexStats) RecordInsert(overwrite bool) {
	atomic.AddUint64(&s.InsertCount, 1)
	if overwrite {
		atomic.AddUint64(&s.OverwriteCount, 1)
	}
}

func (s *IndexStats) RecordDelete() {
	atomic.AddUint64(&s.DeleteCount, 1)
}

func (s *IndexStats) RecordRelease() {
	atomic.AddUint64(&s.ReleaseCount, 1)
}

func (s *IndexStats) RecordScan(n int) {
	atomic.AddUint64(&s.ScanCount, 1)
	atomic.AddUint64(&s.ScannedEntries, uint64(n))
}

// Snapshot copies the counters; each field is read atomically but the set is
// not a consistent cut.
func (s *IndexStats) Snapshot() IndexStats {
	return IndexStats{
		LookupCount:    atomic.LoadUint64(&s.LookupCount),
		HitCount:       atomic.LoadUint64(&s.HitCount),
		InsertCount:    atomic.LoadUint64(&s.InsertCount),
		OverwriteCount: atomic.LoadUint64(&s.OverwriteCount),
		DeleteCount:    atomic.LoadUint64(&s.DeleteCount),
		ReleaseCount:   atomic.LoadUint64(&s.ReleaseCount),
		ScanCount:      atomic.LoadUint64(&s.ScanCount),
		ScannedEntries: atomic.LoadUint64(&s.ScannedEntries),
	}
}

func (s *IndexStats) HitRatio() float64 {
	lookups := atomic.LoadUint64(&s.LookupCount)
	if lookups == 0 {
		return 0.0
	}
	return float64(atomic.LoadUint64(&s.HitCount)) / float64(lookups)
}
