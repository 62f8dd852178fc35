package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	_ "modernc.org/sqlite"

	"slabindex/pkg/common"
	"slabindex/pkg/logging"
)

// Items are grouped into slabs by size class, one set of slabs per worker.
// Anything above the last class goes to the last slab.
var sizeClasses = []int{64, 128, 256, 512, 1024, 2048, 4096, 8192}

const (
	classBits  = 16
	MaxWorkers = 1 << (32 - classBits)
)

var (
	ErrNotFound      = errors.New("slab item not found")
	ErrInvalidWorker = errors.New("worker id out of range")
)

// SlabFor returns the slab a worker writes items of the given size to.
func SlabFor(worker, size int) common.SlabID {
	class := len(sizeClasses) - 1
	for i, c := range sizeClasses {
		if size <= c {
			class = i
			break
		}
	}
	return common.SlabID(uint32(worker)<<classBits | uint32(class))
}

// OwnerOf returns the worker a slab belongs to.
func OwnerOf(slab common.SlabID) int {
	return int(uint32(slab) >> classBits)
}

// SlabStore keeps item bytes in SQLite, addressed by (slab, index). It hands
// out indexes per slab and reuses freed ones.
type SlabStore struct {
	db      *sql.DB
	mu      sync.Mutex // guards next, free and writes
	workers int
	next    map[common.SlabID]uint64
	free    map[common.SlabID][]uint64
	cache   *lru.Cache
	log     *slog.Logger
}

func Open(path string, workers, cacheSize int, logger *slog.Logger) (*SlabStore, error) {
	if workers < 1 || workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d workers", ErrInvalidWorker, workers)
	}
	if logger == nil {
		logger = logging.Noop()
	}
	if cacheSize <= 0 {
		cacheSize = 1
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	query := `
	CREATE TABLE IF NOT EXISTS slab_items (
		slab INTEGER NOT NULL,
		idx  INTEGER NOT NULL,
		item BLOB,
		PRIMARY KEY (slab, idx)
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("init table: %w", err)
	}

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`)
	if err != nil {
		logger.Warn("failed to set pragma", "error", err)
	}

	cache, err := lru.New(cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("item cache: %w", err)
	}

	s := &SlabStore{
		db:      db,
		workers: workers,
		next:    make(map[common.SlabID]uint64),
		free:    make(map[common.SlabID][]uint64),
		cache:   cache,
		log:     logger,
	}
	if err := s.restoreCounters(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// restoreCounters continues numbering after the highest index of each slab.
// Holes left by frees before a restart are not reused.
func (s *SlabStore) restoreCounters() error {
	rows, err := s.db.Query("SELECT slab, MAX(idx) FROM slab_items GROUP BY slab")
	if err != nil {
		return fmt.Errorf("restore slab counters: %w", err)
	}
	defer rows.Close()

	restored := 0
	for rows.Next() {
		var slab, maxIdx int64
		if err := rows.Scan(&slab, &maxIdx); err != nil {
			return fmt.Errorf("restore slab counters: %w", err)
		}
		s.next[common.SlabID(slab)] = uint64(maxIdx) + 1
		restored++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("restore slab counters: %w", err)
	}
	if restored > 0 {
		s.log.Info("restored slab counters", "slabs", restored)
	}
	return nil
}

func (s *SlabStore) Workers() int {
	return s.workers
}

// Write stores an item in one of the worker's slabs and reports where it went.
func (s *SlabStore) Write(worker int, item []byte) (common.WriteResult, error) {
	if worker < 0 || worker >= s.workers {
		return common.WriteResult{}, fmt.Errorf("%w: %d", ErrInvalidWorker, worker)
	}
	slab := SlabFor(worker, len(item))

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, reused := s.allocLocked(slab)
	_, err := s.db.Exec("INSERT OR REPLACE INTO slab_items (slab, idx, item) VALUES (?, ?, ?)", int64(slab), int64(idx), item)
	if err != nil {
		s.undoAllocLocked(slab, idx, reused)
		return common.WriteResult{}, fmt.Errorf("write slab %d: %w", slab, err)
	}

	res := common.WriteResult{Slab: slab, Offset: idx}
	s.cache.Add(res.Location(), item)
	return res, nil
}

func (s *SlabStore) allocLocked(slab common.SlabID) (uint64, bool) {
	if fl := s.free[slab]; len(fl) > 0 {
		idx := fl[len(fl)-1]
		s.free[slab] = fl[:len(fl)-1]
		return idx, true
	}
	idx := s.next[slab]
	s.next[slab] = idx + 1
	return idx, false
}

func (s *SlabStore) undoAllocLocked(slab common.SlabID, idx uint64, reused bool) {
	if reused {
		s.free[slab] = append(s.free[slab], idx)
		return
	}
	s.next[slab] = idx
}

// Read returns the item stored at loc.
func (s *SlabStore) Read(loc common.Location) ([]byte, error) {
	if v, ok := s.cache.Get(loc); ok {
		return v.([]byte), nil
	}

	var item []byte
	err := s.db.QueryRow("SELECT item FROM slab_items WHERE slab = ? AND idx = ?", int64(loc.Slab), int64(loc.Index)).Scan(&item)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	s.cache.Add(loc, item)
	return item, nil
}

// Free drops the item at loc and makes its index available again.
func (s *SlabStore) Free(loc common.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Remove(loc)
	res, err := s.db.Exec("DELETE FROM slab_items WHERE slab = ? AND idx = ?", int64(loc.Slab), int64(loc.Index))
	if err != nil {
		return fmt.Errorf("free %s: %w", loc, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	s.free[loc.Slab] = append(s.free[loc.Slab], loc.Index)
	return nil
}

// Release is Free for use as the index's release hook; failures are logged.
func (s *SlabStore) Release(loc common.Location) {
	if err := s.Free(loc); err != nil {
		s.log.Warn("release slab item", "location", loc.String(), "error", err)
	}
}

func (s *SlabStore) Close() error {
	return s.db.Close()
}
