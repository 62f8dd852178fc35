package core

import (
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"slabindex/pkg/common"
	"slabindex/pkg/item"
)

func newTestIndex(t *testing.T, workers int) *Index {
	t.Helper()
	idx, err := New(Options{Workers: workers, Degree: 4})
	require.NoError(t, err)
	return idx
}

func loc(slab, off int) common.Location {
	return common.Location{Slab: common.SlabID(slab), Index: uint64(off)}
}

func keysOf(entries []common.Entry) []common.SortKey {
	out := make([]common.SortKey, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

func TestNewRejectsBadWorkerCount(t *testing.T) {
	_, err := New(Options{Workers: 0})
	require.ErrorIs(t, err, ErrInvalidWorkerCount)
	_, err = New(Options{Workers: -3})
	require.ErrorIs(t, err, ErrInvalidWorkerCount)
}

func TestNewStartsEmpty(t *testing.T) {
	idx := newTestIndex(t, 4)
	assert.Equal(t, 4, idx.Workers())
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.ScanKey(0, 10))
}

func TestInsertLookupRoundTrip(t *testing.T) {
	idx := newTestIndex(t, 3)
	for w := 0; w < 3; w++ {
		require.NoError(t, idx.Insert(w, item.KeyFromUint64(uint64(100+w)), loc(w, w*10)))
	}
	for w := 0; w < 3; w++ {
		got, ok, err := idx.Lookup(w, item.KeyFromUint64(uint64(100+w)))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, loc(w, w*10), got)
	}

	// partitions are independent
	_, ok, err := idx.Lookup(1, item.KeyFromUint64(100))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteRemovesAndReleases(t *testing.T) {
	var released []common.Location
	idx, err := New(Options{Workers: 2, OnRelease: func(l common.Location) {
		released = append(released, l)
	}})
	require.NoError(t, err)

	key := item.KeyFromUint64(42)
	require.NoError(t, idx.Insert(1, key, loc(9, 1)))

	found, err := idx.Delete(1, key)
	require.NoError(t, err)
	assert.True(t, found)

	_, ok, err := idx.Lookup(1, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []common.Location{loc(9, 1)}, released)

	// nothing left to release the second time
	found, err = idx.Delete(1, key)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Len(t, released, 1)
}

func TestOverwriteReleasesDisplacedOnce(t *testing.T) {
	var released []common.Location
	idx, err := New(Options{Workers: 1, OnRelease: func(l common.Location) {
		released = append(released, l)
	}})
	require.NoError(t, err)

	key := item.KeyFromUint64(7)
	require.NoError(t, idx.Insert(0, key, loc(1, 1))) // A
	require.NoError(t, idx.Insert(0, key, loc(1, 2))) // B

	got, ok, err := idx.Lookup(0, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, loc(1, 2), got)
	assert.Equal(t, []common.Location{loc(1, 1)}, released)
	assert.Equal(t, 1, idx.Len())
}

func TestPrefixAliasing(t *testing.T) {
	idx := newTestIndex(t, 1)
	a := item.Encode([]byte("samepref-alpha"), []byte("1"))
	b := item.Encode([]byte("samepref-beta"), []byte("2"))

	require.NoError(t, idx.Insert(0, a, loc(0, 1)))
	require.NoError(t, idx.Insert(0, b, loc(0, 2)))

	for _, buf := range [][]byte{a, b} {
		got, ok, err := idx.Lookup(0, buf)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, loc(0, 2), got)
	}
	assert.Equal(t, 1, idx.Len())
}

func TestPreconditions(t *testing.T) {
	idx := newTestIndex(t, 2)
	key := item.KeyFromUint64(1)

	_, _, err := idx.Lookup(2, key)
	assert.ErrorIs(t, err, ErrInvalidWorker)
	assert.ErrorIs(t, idx.Insert(-1, key, loc(0, 0)), ErrInvalidWorker)
	_, err = idx.Delete(5, key)
	assert.ErrorIs(t, err, ErrInvalidWorker)
	_, err = idx.Worker(2)
	assert.ErrorIs(t, err, ErrInvalidWorker)

	short := make([]byte, item.MinSize-1)
	assert.ErrorIs(t, idx.Insert(0, short, loc(0, 0)), item.ErrShortItem)
	_, _, err = idx.Lookup(0, short)
	assert.ErrorIs(t, err, item.ErrShortItem)
	_, err = idx.Scan(short, 10)
	assert.ErrorIs(t, err, item.ErrShortItem)
	assert.Equal(t, 0, idx.Len())
}

func TestAddRoutesToSlabOwner(t *testing.T) {
	idx, err := New(Options{
		Workers: 4,
		OwnerOf: func(slab common.SlabID) int { return int(slab >> 16) },
	})
	require.NoError(t, err)

	key := item.KeyFromUint64(77)
	require.NoError(t, idx.Add(common.WriteResult{Slab: 2<<16 | 5, Offset: 12}, key))

	got, ok, err := idx.Lookup(2, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, common.Location{Slab: 2<<16 | 5, Index: 12}, got)

	for _, w := range []int{0, 1, 3} {
		_, ok, err := idx.Lookup(w, key)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestAddDefaultOwnerIsModulo(t *testing.T) {
	idx := newTestIndex(t, 3)
	require.NoError(t, idx.Add(common.WriteResult{Slab: 7, Offset: 1}, item.KeyFromUint64(5)))
	_, ok, err := idx.Lookup(1, item.KeyFromUint64(5))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStatsReflectOperations(t *testing.T) {
	idx := newTestIndex(t, 2)
	key := item.KeyFromUint64(3)
	require.NoError(t, idx.Insert(0, key, loc(0, 1)))
	require.NoError(t, idx.Insert(0, key, loc(0, 2)))
	_, _, _ = idx.Lookup(0, key)
	_, _ = idx.Delete(0, key)
	idx.ScanKey(0, 5)

	st := idx.Stats()
	assert.Equal(t, "btree", st["type"])
	assert.Equal(t, 2, st["workers"])
	assert.Equal(t, 0, st["entry_count"])
	assert.Equal(t, uint64(2), st["inserts"])
	assert.Equal(t, uint64(1), st["overwrites"])
	assert.Equal(t, uint64(1), st["deletes"])
	assert.Equal(t, uint64(2), st["released_records"])
	assert.Equal(t, uint64(1), st["scans"])
	assert.Equal(t, []int{0, 0}, st["partition_sizes"])
}

func TestConcurrentWorkersAndScanner(t *testing.T) {
	const (
		workers   = 4
		perWorker = 2000
	)
	var releasedMu sync.Mutex
	released := 0
	idx, err := New(Options{Workers: workers, Degree: 8, OnRelease: func(common.Location) {
		releasedMu.Lock()
		released++
		releasedMu.Unlock()
	}})
	require.NoError(t, err)

	handles := make([]*Worker, workers)
	for w := range handles {
		handles[w], err = idx.Worker(w)
		require.NoError(t, err)
	}

	stop := make(chan struct{})
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		h := handles[w]
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				// keys interleave across workers: w, w+workers, ...
				key := item.KeyFromUint64(uint64(i*workers + h.ID()))
				if err := h.Insert(key, loc(h.ID(), i)); err != nil {
					return err
				}
				got, ok, err := h.Lookup(key)
				if err != nil {
					return err
				}
				if !ok || got != loc(h.ID(), i) {
					t.Errorf("worker %d key %d: got %v %v", h.ID(), i, got, ok)
				}
				if i%2 == 1 {
					if err := h.Insert(key, loc(h.ID(), i+perWorker)); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}

	var scanner errgroup.Group
	scanner.Go(func() error {
		for {
			select {
			case <-stop:
				return nil
			default:
			}
			res := idx.ScanKey(0, 64)
			if len(res) > 64 {
				t.Errorf("scan returned %d entries", len(res))
			}
			for i := 1; i < len(res); i++ {
				if res[i-1].Key > res[i].Key {
					t.Errorf("scan out of order at %d", i)
				}
			}
		}
	})

	require.NoError(t, g.Wait())
	close(stop)
	require.NoError(t, scanner.Wait())

	assert.Equal(t, workers*perWorker, idx.Len())
	assert.Equal(t, workers*perWorker/2, released)

	all := idx.ScanKey(0, workers*perWorker)
	require.Len(t, all, workers*perWorker)
	for i, e := range all {
		assert.Equal(t, common.SortKey(i), e.Key)
	}
}

func TestScanMatchesSortedModel(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const workers = 5
	idx := newTestIndex(t, workers)

	model := map[common.SortKey]common.Location{}
	for i := 0; i < 3000; i++ {
		k := common.SortKey(rng.Intn(5000))
		w := int(k) % workers
		l := loc(w, i)
		require.NoError(t, idx.Insert(w, item.KeyFromUint64(uint64(k)), l))
		model[k] = l
	}
	var keys []common.SortKey
	for k := range model {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, tc := range []struct {
		from  common.SortKey
		bound int
	}{
		{0, 10}, {0, len(keys)}, {0, len(keys) + 50}, {2500, 100}, {4999, 5}, {5000, 5}, {1234, 1},
	} {
		want := []common.SortKey{}
		for _, k := range keys {
			if k >= tc.from && len(want) < tc.bound {
				want = append(want, k)
			}
		}
		got := idx.ScanKey(tc.from, tc.bound)
		assert.Equal(t, want, keysOf(got), "from=%d bound=%d", tc.from, tc.bound)
		for _, e := range got {
			assert.Equal(t, model[e.Key], e.Loc)
		}
	}
}
