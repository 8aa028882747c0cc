package registry

import (
	"slices"
	"sync/atomic"

	"github.com/joshuapare/slabkit/arena/spinlock"
)

// cellsPerChunk is the number of item cells allocated together.
const cellsPerChunk = 256

type chunk[T any] [cellsPerChunk]spinlock.Lock[T]

// cellTable holds the item cells of a registry, indexed by slot id.
//
// Chunks never move once allocated, so a cell pointer stays valid for the
// life of the registry. The directory is replaced wholesale on growth and
// read without locks.
type cellTable[T any] struct {
	dir atomic.Pointer[[]*chunk[T]]
}

// at returns the cell for id. id must be below the slot count.
func (c *cellTable[T]) at(id uint64) *spinlock.Lock[T] {
	dir := *c.dir.Load()
	return &dir[id/cellsPerChunk][id%cellsPerChunk]
}

// ensure makes room for n cells. Callers serialize through the registry's
// bookkeeping lock.
func (c *cellTable[T]) ensure(n uint64) {
	var dir []*chunk[T]
	if p := c.dir.Load(); p != nil {
		dir = *p
	}
	want := int((n + cellsPerChunk - 1) / cellsPerChunk)
	if want <= len(dir) {
		return
	}

	grown := slices.Grow(slices.Clone(dir), want-len(dir))
	for len(grown) < want {
		grown = append(grown, new(chunk[T]))
	}
	c.dir.Store(&grown)
}
