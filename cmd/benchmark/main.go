package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"slabindex/pkg/common"
	"slabindex/pkg/core"
	"slabindex/pkg/dispatch"
	"slabindex/pkg/item"
)

func main() {
	workers := flag.Int("workers", 4, "Number of workers (partitions)")
	nKeys := flag.Int("n", 200000, "Number of keys inserted per worker")
	scanSize := flag.Int("scan", 100, "Bound of each background scan")
	flag.Parse()

	idx, err := core.New(core.Options{Workers: *workers})
	if err != nil {
		log.Fatalf("Failed to create index: %v", err)
	}
	d := dispatch.New(*workers)

	fmt.Printf("slabindex benchmark (workers=%d, keys/worker=%d, scan=%d)\n", *workers, *nKeys, *scanSize)
	fmt.Println("---------------------------------------------------")

	keys := make([][][]byte, *workers)
	total := *workers * *nKeys
	rng := rand.New(rand.NewSource(1))
	var prefix [8]byte
	for !allFull(keys, *nKeys) {
		binary.BigEndian.PutUint64(prefix[:], rng.Uint64())
		w := d.WorkerFor(prefix[:])
		if len(keys[w]) < *nKeys {
			keys[w] = append(keys[w], item.Encode(prefix[:], nil))
		}
	}

	var scans, scanned atomic.Uint64
	stop := make(chan struct{})
	var scanner errgroup.Group
	scanner.Go(func() error {
		for {
			select {
			case <-stop:
				return nil
			default:
			}
			res := idx.ScanKey(common.SortKey(rng2()), *scanSize)
			scans.Add(1)
			scanned.Add(uint64(len(res)))
		}
	})

	fmt.Println(">> Insert phase (one goroutine per worker, lock per insert)...")
	start := time.Now()
	var g errgroup.Group
	for w := 0; w < *workers; w++ {
		h, err := idx.Worker(w)
		if err != nil {
			log.Fatalf("Claim failed: %v", err)
		}
		mine := keys[w]
		g.Go(func() error {
			for i, buf := range mine {
				if err := h.Insert(buf, common.Location{Slab: common.SlabID(h.ID()), Index: uint64(i)}); err != nil {
					return err
				}
			}
			for _, buf := range mine {
				if _, ok, err := h.Lookup(buf); err != nil || !ok {
					return fmt.Errorf("worker %d lost a key (err=%v)", h.ID(), err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
	elapsed := time.Since(start)
	close(stop)
	if err := scanner.Wait(); err != nil {
		log.Fatalf("Scanner failed: %v", err)
	}

	fmt.Printf("   Inserted+looked up %s keys in %v | %s ops/s\n",
		humanize.Comma(int64(total)), elapsed, humanize.Comma(int64(float64(2*total)/elapsed.Seconds())))
	fmt.Printf("   Concurrent scans: %s (%s entries)\n",
		humanize.Comma(int64(scans.Load())), humanize.Comma(int64(scanned.Load())))

	fmt.Println(">> Full ordered scan...")
	start = time.Now()
	all := idx.ScanKey(0, total)
	fmt.Printf("   %s entries in %v\n", humanize.Comma(int64(len(all))), time.Since(start))
	fmt.Println("---------------------------------------------------")
}

func allFull(keys [][][]byte, n int) bool {
	for _, k := range keys {
		if len(k) < n {
			return false
		}
	}
	return true
}

var scanSeed atomic.Uint64

// rng2 feeds scan start keys to the scanner goroutine, which must not share
// the key generator.
func rng2() uint64 {
	x := scanSeed.Add(0x9E3779B97F4A7C15)
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	return x
}
