// Package segment defines the address-space segment a registry grows into and
// provides a hosted implementation backed by reserved virtual memory.
//
// A segment is an exclusive, page-granular virtual range. A registry claims it
// once with ProvisionAsShared and then maps one physical frame per page as it
// grows. Mapping a page may itself need frames for intermediate page tables;
// those come from the same allocator the registry passes in, which is already
// locked by the caller.
package segment

import (
	"errors"

	"github.com/joshuapare/slabkit/arena/pfa"
)

var (
	// ErrExists indicates the segment (or a page in it) is already populated.
	ErrExists = errors.New("segment: already mapped")

	// ErrOutOfRange indicates a virtual address outside the segment.
	ErrOutOfRange = errors.New("segment: address out of range")

	// ErrMisaligned indicates a virtual address or frame that is not page aligned.
	ErrMisaligned = errors.New("segment: misaligned address")

	// ErrOutOfMemory indicates no frame was available for a page table.
	ErrOutOfMemory = errors.New("segment: out of memory for page tables")

	// ErrNotProvisioned indicates Map was called before ProvisionAsShared.
	ErrNotProvisioned = errors.New("segment: not provisioned")
)

// Segment is the boundary a registry consumes.
type Segment interface {
	// Range returns the inclusive virtual bounds of the segment.
	Range() (lo, hi uint64)

	// ProvisionAsShared prepares the segment's top-level tables so every core
	// observes the same mappings. It fails with ErrExists if the segment is
	// already populated.
	ProvisionAsShared(alloc pfa.Allocator) error

	// Map maps the physical frame phys at virt. alloc is used for any
	// intermediate tables. On error the frame is not referenced by the
	// segment and remains owned by the caller.
	Map(alloc pfa.Allocator, virt, phys uint64) error

	// Word returns direct access to the 8-byte aligned word at virt, which
	// must lie in a mapped page.
	Word(virt uint64) *uint64
}
