// Package format holds the memory layout constants shared by the arena
// packages: page geometry, the in-segment slot header, and alignment masks.
// Nothing here allocates; the values describe how registries carve their
// segments so that the registry, segment, and PFA packages agree on sizes.
package format

const (
	// PageSize is the granularity of every mapping a registry requests.
	// Physical frames handed out by the PFA are exactly one page.
	PageSize = 0x1000

	// PageShift is log2(PageSize).
	PageShift = 12

	// PageMask is the bitmask used for aligning to page boundaries (PageSize - 1).
	PageMask = PageSize - 1

	// SlotAlignment is the required alignment of every slot stride.
	// The slot header is accessed with 64-bit atomics, so strides must be
	// multiples of 8.
	SlotAlignment = 8

	// SlotAlignmentMask is the bitmask used for aligning to 8-byte boundaries.
	SlotAlignmentMask = SlotAlignment - 1

	// SlotHeaderSize is the number of bytes at the start of every slot that
	// hold the slot's bookkeeping. The remainder of the stride is accounted
	// for the payload.
	//
	// Layout (native endian, 8-byte aligned):
	//   0x00  reference count (uint64, atomic)
	//   0x08  next free slot id (uint64), valid only when the count is zero
	SlotHeaderSize = 0x10

	// SlotRefCountOffset is the offset of the reference count within a slot.
	SlotRefCountOffset = 0x00

	// SlotNextFreeOffset is the offset of the next-free link within a slot.
	SlotNextFreeOffset = 0x08

	// MinSlotSize is the smallest legal stride.
	MinSlotSize = SlotHeaderSize

	// NoFreeSlot marks an empty free list.
	NoFreeSlot = ^uint64(0)
)
