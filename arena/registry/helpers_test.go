package registry

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/arena/pfa"
	"github.com/joshuapare/slabkit/arena/segment"
	"github.com/joshuapare/slabkit/arena/spinlock"
	"github.com/joshuapare/slabkit/internal/format"
)

var nextIndex atomic.Int32

// newSegment reserves a fresh segment of pages pages at its own top-level
// index.
func newSegment(t *testing.T, pages int) *segment.Reserved {
	t.Helper()
	idx := segment.FirstRegistryIndex + int(nextIndex.Add(1)%100)
	seg, err := segment.NewReserved(t.Name(), segment.IndexBase(idx), pages*format.PageSize, nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, seg.Release()) })
	return seg
}

// newFrames returns a locked tracker over n frames, plus the tracker for
// leak checks.
func newFrames(t *testing.T, n int) (*spinlock.Lock[pfa.Allocator], *pfa.Tracker) {
	t.Helper()
	fl, err := pfa.NewFreeList(0x10_0000, n)
	require.NoError(t, err)
	tr := pfa.NewTracker(fl)
	return spinlock.New[pfa.Allocator](tr), tr
}

// counted records how many times its Drop ran.
type counted struct {
	name  string
	drops *atomic.Int32
}

func (c *counted) Drop() { c.drops.Add(1) }

func newRegistry[T any](t *testing.T, pages, frames int, opts ...Option) (*Registry[T], *pfa.Tracker) {
	t.Helper()
	lock, tr := newFrames(t, frames)
	reg, err := New[T](newSegment(t, pages), lock, opts...)
	require.NoError(t, err)
	return reg, tr
}
