package dispatch

import (
	"github.com/spaolacci/murmur3"
)

// Dispatcher decides which worker handles a key. The same key always goes to
// the same worker, so that worker's slabs and partition hold it.
type Dispatcher struct {
	workers int
}

func New(workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{workers: workers}
}

func (d *Dispatcher) Workers() int {
	return d.workers
}

func (d *Dispatcher) WorkerFor(key []byte) int {
	return int(murmur3.Sum64(key) % uint64(d.workers))
}
