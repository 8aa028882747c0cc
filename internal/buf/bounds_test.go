package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if sum, ok := AddOverflowSafe(10, 5); !ok || sum != 15 {
		t.Fatalf("AddOverflowSafe(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxInt, 1); ok {
		t.Fatalf("expected overflow when adding to MaxInt")
	}
	if _, ok := AddOverflowSafe(math.MinInt, -1); ok {
		t.Fatalf("expected underflow when subtracting from MinInt")
	}
}

func TestMulOverflowSafe(t *testing.T) {
	if got, ok := MulOverflowSafe(512, 4096); !ok || got != 512*4096 {
		t.Fatalf("MulOverflowSafe(512,4096)=%d,%v", got, ok)
	}
	if _, ok := MulOverflowSafe(math.MaxInt/2, 3); ok {
		t.Fatalf("expected overflow for MaxInt/2 * 3")
	}
	if got, ok := MulOverflowSafe(0, math.MaxInt); !ok || got != 0 {
		t.Fatalf("zero factor should never overflow")
	}
}

func TestSlotSpan(t *testing.T) {
	start, end, err := SlotSpan(4096, 1, 2048)
	if err != nil || start != 2048 || end != 4096 {
		t.Fatalf("SlotSpan(4096,1,2048)=%d,%d,%v want 2048,4096,nil", start, end, err)
	}
	if _, _, err := SlotSpan(4096, 2, 2048); err == nil {
		t.Fatalf("third 2KiB slot must not fit in one page")
	}
	if _, _, err := SlotSpan(math.MaxInt, math.MaxInt/8, 16); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, _, err := SlotSpan(4096, -1, 16); err == nil {
		t.Fatalf("negative index must be rejected")
	}
	if _, _, err := SlotSpan(4096, 0, 0); err == nil {
		t.Fatalf("zero stride must be rejected")
	}
}
