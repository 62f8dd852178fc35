package monitor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexStatsCounters(t *testing.T) {
	s := NewIndexStats()
	assert.Equal(t, 0.0, s.HitRatio())

	s.RecordLookup(true)
	s.RecordLookup(false)
	s.RecordInsert(false)
	s.RecordInsert(true)
	s.RecordDelete()
	s.RecordRelease()
	s.RecordScan(5)

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.LookupCount)
	assert.Equal(t, uint64(1), snap.HitCount)
	assert.Equal(t, uint64(2), snap.InsertCount)
	assert.Equal(t, uint64(1), snap.OverwriteCount)
	assert.Equal(t, uint64(1), snap.DeleteCount)
	assert.Equal(t, uint64(1), snap.ReleaseCount)
	assert.Equal(t, uint64(1), snap.ScanCount)
	assert.Equal(t, uint64(5), snap.ScannedEntries)
	assert.InDelta(t, 0.5, s.HitRatio(), 1e-9)
}

func TestIndexStatsConcurrent(t *testing.T) {
	s := NewIndexStats()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.RecordInsert(false)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(8000), s.Snapshot().InsertCount)
}
