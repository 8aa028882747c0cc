// Package buf provides overflow-safe arithmetic and bounds checks used when
// computing slot and page offsets inside a segment.
package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies a and b, returning ok = false when the result would overflow int.
// Used for index * stride when locating a slot.
func MulOverflowSafe(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	// For positive numbers, check if result would overflow
	if a > 0 && b > 0 {
		if a > math.MaxInt/b {
			return 0, false
		}
	}
	// For negative numbers
	if a < 0 && b < 0 {
		if a < math.MaxInt/b {
			return 0, false
		}
	}
	// Mixed signs - check against MinInt
	if a > 0 && b < 0 {
		if b < math.MinInt/a {
			return 0, false
		}
	}
	if a < 0 && b > 0 {
		if a < math.MinInt/b {
			return 0, false
		}
	}
	return a * b, true
}

// SlotSpan returns the byte range [start, end) occupied by slot index of
// stride bytes, or an error describing the specific failure (overflow or
// exceeding limit).
//
// Registries use it before growing so that an exhausted segment is reported
// without touching the page allocator:
//
//	start, end, err := buf.SlotSpan(segLen, int(id), stride)
//	if err != nil {
//	    return fmt.Errorf("registry: %w", err)
//	}
func SlotSpan(limit, index, stride int) (int, int, error) {
	if index < 0 {
		return 0, 0, fmt.Errorf("negative slot index: %d", index)
	}
	if stride <= 0 {
		return 0, 0, fmt.Errorf("non-positive stride: %d", stride)
	}

	start, ok := MulOverflowSafe(index, stride)
	if !ok {
		return 0, 0, fmt.Errorf("overflow: index=%d * stride=%d", index, stride)
	}

	end, ok := AddOverflowSafe(start, stride)
	if !ok {
		return 0, 0, fmt.Errorf("overflow: start=%d + stride=%d", start, stride)
	}

	if end > limit {
		return 0, 0, fmt.Errorf("bounds: end=%d > limit=%d", end, limit)
	}

	return start, end, nil
}
