package memory

import (
	"slabindex/pkg/common"

	"github.com/google/btree"
)

type entry struct {
	key common.SortKey
	loc common.Location
}

func less(a, b entry) bool {
	return a.key < b.key
}

// Tree is one partition's ordered map from sort key to location. It does no
// locking of its own; the owning partition decides who may touch it.
type Tree struct {
	tree *btree.BTreeG[entry]
}

func NewTree(degree int) *Tree {
	if degree < 2 {
		degree = 2
	}
	return &Tree{
		tree: btree.NewG(degree, less),
	}
}

func (t *Tree) Get(key common.SortKey) (common.Location, bool) {
	e, ok := t.tree.Get(entry{key: key})
	if !ok {
		return common.Location{}, false
	}
	return e.loc, true
}

// Put stores loc under key and returns the location it displaced, if any.
func (t *Tree) Put(key common.SortKey, loc common.Location) (common.Location, bool) {
	old, replaced := t.tree.ReplaceOrInsert(entry{key: key, loc: loc})
	return old.loc, replaced
}

// Delete removes key and returns the location that was stored for it.
func (t *Tree) Delete(key common.SortKey) (common.Location, bool) {
	old, found := t.tree.Delete(entry{key: key})
	return old.loc, found
}

// FindN returns up to n entries with key >= from, in ascending key order.
func (t *Tree) FindN(from common.SortKey, n int) []common.Entry {
	if n <= 0 {
		return nil
	}
	res := make([]common.Entry, 0, min(n, t.tree.Len()))
	t.tree.AscendGreaterOrEqual(entry{key: from}, func(e entry) bool {
		res = append(res, common.Entry{Key: e.key, Loc: e.loc})
		return len(res) < n
	})
	return res
}

func (t *Tree) Ascend(fn func(key common.SortKey, loc common.Location) bool) {
	t.tree.Ascend(func(e entry) bool {
		return fn(e.key, e.loc)
	})
}

func (t *Tree) Len() int {
	return t.tree.Len()
}
