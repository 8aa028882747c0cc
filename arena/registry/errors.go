package registry

import "errors"

var (
	// ErrOutOfMemory indicates the page-frame allocator could not supply a
	// frame while the registry was growing.
	ErrOutOfMemory = errors.New("registry: out of memory")

	// ErrRangeExhausted indicates the segment has no room for another slot.
	// The registry is full; more physical memory would not help.
	ErrRangeExhausted = errors.New("registry: segment range exhausted")

	// ErrBadSlotSize indicates a slot size below the header size or not a
	// multiple of 8.
	ErrBadSlotSize = errors.New("registry: invalid slot size")

	// ErrDetached indicates a list operation on a node that is not linked
	// into any list.
	ErrDetached = errors.New("registry: node is not in a list")

	// ErrCorrupt indicates list linkage that violates the list invariants.
	ErrCorrupt = errors.New("registry: list linkage corrupt")
)
