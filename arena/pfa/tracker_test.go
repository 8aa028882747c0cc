package pfa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// scripted hands out a fixed sequence of frames and accepts any free,
// so the tracker can be fed misuse the real FreeList would panic on.
type scripted struct {
	frames []uint64
	freed  []uint64
}

func (s *scripted) Allocate() (uint64, bool) {
	if len(s.frames) == 0 {
		return 0, false
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, true
}

func (s *scripted) Free(frame uint64) { s.freed = append(s.freed, frame) }

func TestTrackerCleanLifecycle(t *testing.T) {
	fl, err := NewFreeList(0, 4)
	require.NoError(t, err)
	tr := NewTracker(fl)

	a, ok := tr.Allocate()
	require.True(t, ok)
	b, ok := tr.Allocate()
	require.True(t, ok)
	require.Equal(t, []uint64{a, b}, tr.Outstanding())

	tr.Free(a)
	require.Equal(t, []uint64{b}, tr.Outstanding())
	require.Empty(t, tr.Issues())

	allocs, frees := tr.Counts()
	require.Equal(t, 2, allocs)
	require.Equal(t, 1, frees)
}

func TestTrackerReportsMisuse(t *testing.T) {
	inner := &scripted{frames: []uint64{0x1000, 0x1000}}
	tr := NewTracker(inner)

	_, _ = tr.Allocate()
	_, _ = tr.Allocate() // same frame handed out twice
	tr.Free(0x1000)
	tr.Free(0x1000) // already free
	tr.Free(0x5000) // never allocated
	tr.Free(0x1008) // misaligned

	kinds := make([]IssueKind, 0, 4)
	for _, is := range tr.Issues() {
		kinds = append(kinds, is.Kind)
	}
	require.Equal(t, []IssueKind{IssueDoubleAlloc, IssueDoubleFree, IssueUnknownFree, IssueMisalignedFree}, kinds)
	require.Len(t, inner.freed, 4, "tracker reports but never swallows calls")
	require.Equal(t, "double free: 0x0000000000001000", tr.Issues()[1].String())
}

func TestTrackerExhaustion(t *testing.T) {
	tr := NewTracker(&scripted{})
	_, ok := tr.Allocate()
	require.False(t, ok)
	allocs, _ := tr.Counts()
	require.Equal(t, 0, allocs)
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker(&scripted{frames: []uint64{0x2000}})
	_, _ = tr.Allocate()
	tr.Free(0x9000)
	tr.Reset()
	require.Empty(t, tr.Outstanding())
	require.Empty(t, tr.Issues())
}
