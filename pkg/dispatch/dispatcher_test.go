package dispatch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerForIsStableAndInRange(t *testing.T) {
	d := New(5)
	counts := make([]int, 5)
	for i := 0; i < 5000; i++ {
		key := []byte(fmt.Sprintf("user:%d", i))
		w := d.WorkerFor(key)
		assert.GreaterOrEqual(t, w, 0)
		assert.Less(t, w, 5)
		assert.Equal(t, w, d.WorkerFor(key))
		counts[w]++
	}
	for w, c := range counts {
		assert.Greater(t, c, 500, "worker %d got %d keys", w, c)
	}
}

func TestNewClampsWorkers(t *testing.T) {
	d := New(0)
	assert.Equal(t, 1, d.Workers())
	assert.Equal(t, 0, d.WorkerFor([]byte("anything")))
}
