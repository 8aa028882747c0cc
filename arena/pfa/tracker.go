package pfa

import (
	"fmt"
	"slices"

	"github.com/joshuapare/slabkit/internal/format"
	"github.com/joshuapare/slabkit/internal/logger"
)

// IssueKind classifies a misuse detected by a Tracker.
type IssueKind uint8

const (
	// IssueDoubleAlloc means a frame was handed out while already allocated.
	IssueDoubleAlloc IssueKind = iota + 1
	// IssueDoubleFree means a frame was freed while already free.
	IssueDoubleFree
	// IssueUnknownFree means a frame was freed that was never allocated.
	IssueUnknownFree
	// IssueMisalignedFree means a non page aligned address was freed.
	IssueMisalignedFree
)

func (k IssueKind) String() string {
	switch k {
	case IssueDoubleAlloc:
		return "double alloc"
	case IssueDoubleFree:
		return "double free"
	case IssueUnknownFree:
		return "free of never-allocated frame"
	case IssueMisalignedFree:
		return "misaligned free"
	default:
		return fmt.Sprintf("IssueKind(%d)", uint8(k))
	}
}

// Issue is one recorded misuse.
type Issue struct {
	Kind  IssueKind
	Frame uint64
}

func (i Issue) String() string { return fmt.Sprintf("%s: 0x%016X", i.Kind, i.Frame) }

// Tracker wraps an Allocator and records the allocation state of every frame
// that passes through it. It is a debugging aid: it never blocks a misuse,
// it only reports it, so the wrapped allocator still sees every call.
//
// Like the allocators it wraps, a Tracker is not internally synchronized.
type Tracker struct {
	inner  Allocator
	live   map[uint64]bool // frame -> currently allocated
	issues []Issue

	allocs int
	frees  int

	// Verbose logs every allocation and free at debug level.
	Verbose bool
}

// NewTracker wraps inner.
func NewTracker(inner Allocator) *Tracker {
	return &Tracker{inner: inner, live: make(map[uint64]bool)}
}

// Allocate forwards to the wrapped allocator and records the frame.
func (t *Tracker) Allocate() (uint64, bool) {
	frame, ok := t.inner.Allocate()
	if !ok {
		return 0, false
	}
	t.allocs++
	if t.live[frame] {
		t.report(IssueDoubleAlloc, frame)
	} else if t.Verbose {
		logger.Debug("pfa_tracker: alloc", "frame", fmt.Sprintf("0x%016X", frame))
	}
	t.live[frame] = true
	return frame, true
}

// Free records the release and forwards to the wrapped allocator.
func (t *Tracker) Free(frame uint64) {
	t.frees++
	switch allocated, seen := t.live[frame]; {
	case frame&format.PageMask != 0:
		t.report(IssueMisalignedFree, frame)
	case !seen:
		t.report(IssueUnknownFree, frame)
	case !allocated:
		t.report(IssueDoubleFree, frame)
	default:
		if t.Verbose {
			logger.Debug("pfa_tracker: free", "frame", fmt.Sprintf("0x%016X", frame))
		}
	}
	t.live[frame] = false
	t.inner.Free(frame)
}

func (t *Tracker) report(kind IssueKind, frame uint64) {
	issue := Issue{Kind: kind, Frame: frame}
	t.issues = append(t.issues, issue)
	logger.Warn("pfa_tracker: "+kind.String(), "frame", fmt.Sprintf("0x%016X", frame))
}

// Issues returns every misuse recorded so far.
func (t *Tracker) Issues() []Issue { return slices.Clone(t.issues) }

// Outstanding returns the frames currently allocated, sorted.
func (t *Tracker) Outstanding() []uint64 {
	var out []uint64
	for frame, allocated := range t.live {
		if allocated {
			out = append(out, frame)
		}
	}
	slices.Sort(out)
	return out
}

// Counts returns the number of successful allocations and of frees observed.
func (t *Tracker) Counts() (allocs, frees int) { return t.allocs, t.frees }

// Reset forgets all recorded state, as after a fresh boot.
func (t *Tracker) Reset() {
	clear(t.live)
	t.issues = nil
	t.allocs, t.frees = 0, 0
}

var _ Allocator = (*Tracker)(nil)
