// Package kv wires the location index to the reference slab store and
// dispatcher so the tools can put, get, delete and scan real keys.
package kv

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"slabindex/pkg/common"
	"slabindex/pkg/config"
	"slabindex/pkg/core"
	"slabindex/pkg/dispatch"
	"slabindex/pkg/item"
	"slabindex/pkg/logging"
	"slabindex/pkg/storage"
)

var ErrNotFound = errors.New("key not found")

type Record struct {
	Key   []byte
	Value []byte
	Loc   common.Location
}

type Store struct {
	index    *core.Index
	slabs    *storage.SlabStore
	dispatch *dispatch.Dispatcher
	conf     *config.Config
	log      *slog.Logger
}

func Open(cfg *config.Config) (*Store, error) {
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err := os.MkdirAll(cfg.Storage.Path, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	slabs, err := storage.Open(filepath.Join(cfg.Storage.Path, "slabs.db"), cfg.Index.Workers, cfg.Storage.CacheSize, logger)
	if err != nil {
		return nil, err
	}
	idx, err := core.New(core.Options{
		Workers:   cfg.Index.Workers,
		Degree:    cfg.Index.Degree,
		OwnerOf:   storage.OwnerOf,
		OnRelease: slabs.Release,
		Logger:    logger,
	})
	if err != nil {
		slabs.Close()
		return nil, err
	}

	return &Store{
		index:    idx,
		slabs:    slabs,
		dispatch: dispatch.New(cfg.Index.Workers),
		conf:     cfg,
		log:      logger,
	}, nil
}

func (s *Store) Index() *core.Index {
	return s.index
}

func (s *Store) Put(key, value []byte) (common.Location, error) {
	buf := item.Encode(key, value)
	res, err := s.slabs.Write(s.dispatch.WorkerFor(key), buf)
	if err != nil {
		return common.Location{}, err
	}
	if err := s.index.Add(res, buf); err != nil {
		s.slabs.Release(res.Location())
		return common.Location{}, err
	}
	return res.Location(), nil
}

// Get resolves key through the index and checks the full key of the stored
// item, since the index only knows the 8-byte prefix.
func (s *Store) Get(key []byte) (Record, error) {
	worker := s.dispatch.WorkerFor(key)
	loc, ok, err := s.index.Lookup(worker, item.Encode(key, nil))
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, ErrNotFound
	}
	rec, err := s.read(loc)
	if err != nil {
		return Record{}, err
	}
	if !bytes.Equal(rec.Key, key) {
		return Record{}, fmt.Errorf("%w: prefix is held by %q", ErrNotFound, rec.Key)
	}
	return rec, nil
}

func (s *Store) Delete(key []byte) error {
	if _, err := s.Get(key); err != nil {
		return err
	}
	found, err := s.index.Delete(s.dispatch.WorkerFor(key), item.Encode(key, nil))
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// Scan returns up to bound records whose sort key is >= from.
func (s *Store) Scan(from common.SortKey, bound int) ([]Record, error) {
	entries := s.index.ScanKey(from, bound)
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		rec, err := s.read(e.Loc)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) read(loc common.Location) (Record, error) {
	buf, err := s.slabs.Read(loc)
	if err != nil {
		return Record{}, err
	}
	key, err := item.Key(buf)
	if err != nil {
		return Record{}, err
	}
	val, err := item.Value(buf)
	if err != nil {
		return Record{}, err
	}
	return Record{Key: key, Value: val, Loc: loc}, nil
}

func (s *Store) Stats() map[string]interface{} {
	st := s.index.Stats()
	st["scan_limit"] = s.conf.Index.ScanLimit
	st["data_path"] = s.conf.Storage.Path
	return st
}

func (s *Store) Close() error {
	return s.slabs.Close()
}
