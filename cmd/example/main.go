package main

import (
	"fmt"
	"log"

	"slabindex/pkg/common"
	"slabindex/pkg/core"
	"slabindex/pkg/item"
	"slabindex/pkg/logging"
)

func main() {
	idx, err := core.New(core.Options{
		Workers: 2,
		Logger:  logging.New("info", "text"),
		OnRelease: func(loc common.Location) {
			fmt.Printf("  released %s\n", loc)
		},
	})
	if err != nil {
		log.Fatalf("Failed to create index: %v", err)
	}

	recA := common.Location{Slab: 0, Index: 1}
	recB := common.Location{Slab: 1, Index: 1}

	fmt.Println("Insert key 5 -> A on worker 0, key 3 -> B on worker 1")
	if err := idx.Insert(0, item.KeyFromUint64(5), recA); err != nil {
		log.Fatalf("Insert failed: %v", err)
	}
	if err := idx.Insert(1, item.KeyFromUint64(3), recB); err != nil {
		log.Fatalf("Insert failed: %v", err)
	}

	res := idx.ScanKey(0, 10)
	fmt.Printf("Scan(0, 10) = %v\n", res)

	fmt.Println("Insert key 7 twice on worker 0 (A then B)")
	w0, err := idx.Worker(0)
	if err != nil {
		log.Fatalf("Claim failed: %v", err)
	}
	key7 := item.KeyFromUint64(7)
	if err := w0.Insert(key7, recA); err != nil {
		log.Fatalf("Insert failed: %v", err)
	}
	if err := w0.Insert(key7, recB); err != nil {
		log.Fatalf("Insert failed: %v", err)
	}
	got, ok, err := w0.Lookup(key7)
	if err != nil {
		log.Fatalf("Lookup failed: %v", err)
	}
	fmt.Printf("Lookup(0, 7) = %s (found=%v)\n", got, ok)
}
