package segment

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/arena/pfa"
	"github.com/joshuapare/slabkit/internal/format"
)

func newAlloc(t *testing.T, frames int) *pfa.Tracker {
	t.Helper()
	fl, err := pfa.NewFreeList(0x20_0000, frames)
	require.NoError(t, err)
	return pfa.NewTracker(fl)
}

func newSegment(t *testing.T, span int) *Reserved {
	t.Helper()
	seg, err := NewReserved("test", IndexBase(FirstRegistryIndex), span, pfa.OffsetTranslator{Offset: 0xFFFF_8000_0000_0000})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, seg.Release()) })
	return seg
}

func TestRangeIsInclusive(t *testing.T) {
	seg := newSegment(t, 4*format.PageSize)
	lo, hi := seg.Range()
	require.Equal(t, uint64(0xFFFF_C800_0000_0000), lo)
	require.Equal(t, lo+4*format.PageSize-1, hi)
}

func TestProvisionTwiceFails(t *testing.T) {
	seg := newSegment(t, format.PageSize)
	alloc := newAlloc(t, 4)

	require.NoError(t, seg.ProvisionAsShared(alloc))
	require.ErrorIs(t, seg.ProvisionAsShared(alloc), ErrExists)
	require.Len(t, alloc.Outstanding(), 1, "only one root table frame")
}

func TestMapRequiresProvisioning(t *testing.T) {
	seg := newSegment(t, format.PageSize)
	lo, _ := seg.Range()
	require.ErrorIs(t, seg.Map(newAlloc(t, 2), lo, 0x1000), ErrNotProvisioned)
}

func TestMapAndWord(t *testing.T) {
	seg := newSegment(t, 2*format.PageSize)
	alloc := newAlloc(t, 8)
	require.NoError(t, seg.ProvisionAsShared(alloc))

	lo, _ := seg.Range()
	require.NoError(t, seg.Map(alloc, lo+format.PageSize, 0x7000))

	w := seg.Word(lo + format.PageSize + 16)
	atomic.StoreUint64(w, 42)
	require.Equal(t, uint64(42), atomic.LoadUint64(seg.Word(lo+format.PageSize+16)))

	phys, direct, ok := seg.Resolve(lo + format.PageSize + 16)
	require.True(t, ok)
	require.Equal(t, uint64(0x7010), phys)
	require.Equal(t, uint64(0xFFFF_8000_0000_7010), direct)

	_, _, ok = seg.Resolve(lo)
	require.False(t, ok, "first page was never mapped")

	u := seg.Usage()
	require.Equal(t, 1, u.DataPages)
	require.Equal(t, 2, u.TableFrames, "root plus one leaf table")
}

func TestMapRejectsRemapAndBadAddresses(t *testing.T) {
	seg := newSegment(t, format.PageSize)
	alloc := newAlloc(t, 8)
	require.NoError(t, seg.ProvisionAsShared(alloc))
	lo, hi := seg.Range()

	require.NoError(t, seg.Map(alloc, lo, 0x3000))
	require.ErrorIs(t, seg.Map(alloc, lo, 0x4000), ErrExists)
	require.ErrorIs(t, seg.Map(alloc, hi+1, 0x4000), ErrOutOfRange)
	require.ErrorIs(t, seg.Map(alloc, lo+8, 0x4000), ErrMisaligned)
	require.ErrorIs(t, seg.Map(alloc, lo, 0x4008), ErrMisaligned)
	require.ErrorIs(t, seg.ProvisionAsShared(alloc), ErrExists)
}

func TestMapOutOfTableMemory(t *testing.T) {
	seg := newSegment(t, format.PageSize)
	alloc := newAlloc(t, 1)
	require.NoError(t, seg.ProvisionAsShared(alloc)) // consumes the only frame

	lo, _ := seg.Range()
	require.ErrorIs(t, seg.Map(alloc, lo, 0x9000), ErrOutOfMemory)
	require.Equal(t, 0, seg.Usage().DataPages)
}

func TestLayout(t *testing.T) {
	l, err := NewLayout(format.PageSize*4, nil, "ring", "ring.lists", "ring.items")
	require.NoError(t, err)
	defer func() { require.NoError(t, l.Release()) }()

	segs := l.Segments()
	require.Len(t, segs, 3)
	for i, seg := range segs {
		lo, _ := seg.Range()
		require.Equal(t, IndexBase(FirstRegistryIndex+i), lo)
	}

	items, ok := l.Segment("ring.items")
	require.True(t, ok)
	require.Equal(t, "ring.items", items.Name())

	_, ok = l.Segment("port")
	require.False(t, ok)
}

func TestLayoutRejectsDuplicatesAndHugeSpans(t *testing.T) {
	_, err := NewLayout(format.PageSize, nil, "a", "a")
	require.ErrorIs(t, err, ErrExists)

	_, err = NewLayout(TopLevelSpan+format.PageSize, nil, "a")
	require.ErrorIs(t, err, ErrOutOfRange)
}
