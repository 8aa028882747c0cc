// Package pfa defines the page-frame allocator boundary consumed by registries
// and provides the hosted implementations used for bring-up and tests.
//
// A kernel supplies its own allocator; registries only ever call Allocate
// while growing and Free when a freshly allocated frame could not be mapped.
// Allocators are not internally synchronized: callers share one behind a
// spinlock.Lock so that every PFA access happens inside a critical section.
package pfa

import (
	"fmt"

	"github.com/joshuapare/slabkit/internal/format"
)

// Allocator hands out and takes back 4 KiB physical frames.
type Allocator interface {
	// Allocate returns the physical address of a free frame, or false when
	// the allocator is exhausted.
	Allocate() (uint64, bool)
	// Free returns a frame previously obtained from Allocate.
	Free(frame uint64)
}

// FreeList is a LIFO frame allocator over a contiguous physical range. The
// most recently freed frame is handed out first.
type FreeList struct {
	base  uint64
	limit uint64
	free  []uint64
}

// NewFreeList returns an allocator owning frames frames starting at base.
// base must be page aligned.
func NewFreeList(base uint64, frames int) (*FreeList, error) {
	if base&format.PageMask != 0 {
		return nil, fmt.Errorf("pfa: base 0x%x is not page aligned", base)
	}
	if frames < 0 {
		return nil, fmt.Errorf("pfa: negative frame count %d", frames)
	}

	fl := &FreeList{
		base:  base,
		limit: base + uint64(frames)*format.PageSize,
		free:  make([]uint64, 0, frames),
	}
	// Push highest first so allocation starts at base.
	for f := fl.limit; f > base; f -= format.PageSize {
		fl.free = append(fl.free, f-format.PageSize)
	}
	return fl, nil
}

// Allocate pops the most recently freed frame.
func (fl *FreeList) Allocate() (uint64, bool) {
	n := len(fl.free)
	if n == 0 {
		return 0, false
	}
	frame := fl.free[n-1]
	fl.free = fl.free[:n-1]
	return frame, true
}

// Free pushes frame back. A misaligned or foreign frame is a programming
// error and panics.
func (fl *FreeList) Free(frame uint64) {
	if frame&format.PageMask != 0 || frame < fl.base || frame >= fl.limit {
		panic(fmt.Sprintf("pfa: free of invalid frame 0x%x (range 0x%x-0x%x)", frame, fl.base, fl.limit))
	}
	fl.free = append(fl.free, frame)
}

// Available returns the number of frames that can still be allocated.
func (fl *FreeList) Available() int { return len(fl.free) }

// Total returns the number of frames the allocator manages.
func (fl *FreeList) Total() int { return int((fl.limit - fl.base) / format.PageSize) }

// Translator maps a physical frame address to a virtual address the CPU can
// dereference.
type Translator interface {
	ToVirtual(phys uint64) uint64
}

// OffsetTranslator translates by adding a fixed offset, for direct-mapped
// physical memory.
type OffsetTranslator struct {
	Offset uint64
}

// ToVirtual returns phys + Offset.
func (t OffsetTranslator) ToVirtual(phys uint64) uint64 {
	return phys + t.Offset
}

var (
	_ Allocator  = (*FreeList)(nil)
	_ Translator = OffsetTranslator{}
)
