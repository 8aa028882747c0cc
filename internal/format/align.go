package format

// Alignment utilities for registry segments.
// Slots are 8-byte aligned; backing memory is grown one page at a time.

// Align8 returns n aligned up to the next 8-byte boundary.
// Used for slot strides so the in-segment header stays atomically addressable.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
//	Align8(16) = 16
func Align8(n int) int {
	return (n + SlotAlignmentMask) & ^SlotAlignmentMask
}

// AlignPage returns n aligned up to the next page boundary.
//
// Example:
//
//	AlignPage(1)    = 4096
//	AlignPage(4096) = 4096
//	AlignPage(4097) = 8192
func AlignPage(n int) int {
	return (n + PageMask) & ^PageMask
}

// PagesFor returns the number of pages needed to back n bytes.
func PagesFor(n int) int {
	return AlignPage(n) >> PageShift
}
