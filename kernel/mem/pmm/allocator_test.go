package pmm

import (
	"armkernel/kernel/mem"
	"testing"
)

func TestBumpAllocatorLinear(t *testing.T) {
	a := NewBumpAllocator(uintptr(mem.PageSize), 16*uintptr(mem.PageSize), nil)

	f0, err := a.Allocate(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f0 != FrameFromAddress(uintptr(mem.PageSize)) {
		t.Errorf("expected first frame to be frame 1; got %v", f0)
	}

	f1, err := a.Allocate(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f1 != f0+1 {
		t.Errorf("expected second allocation to follow the first; got %v", f1)
	}
}

func TestBumpAllocatorSkipsReservedRanges(t *testing.T) {
	pageSize := uintptr(mem.PageSize)
	reserved := []Range{{Start: 2 * pageSize, End: 5 * pageSize}}
	a := NewBumpAllocator(pageSize, 16*pageSize, reserved)

	f0, err := a.Allocate(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f0 != FrameFromAddress(pageSize) {
		t.Errorf("expected first frame at page 1; got %v", f0)
	}

	// the second allocation would land inside [2,5) and must be pushed to 5
	f1, err := a.Allocate(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f1 != FrameFromAddress(5*pageSize) {
		t.Errorf("expected allocator to skip the reserved range and return page 5; got %v", f1)
	}
}

func TestBumpAllocatorExhaustion(t *testing.T) {
	pageSize := uintptr(mem.PageSize)
	a := NewBumpAllocator(pageSize, 2*pageSize, nil)

	if _, err := a.Allocate(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := a.Allocate(1); err == nil {
		t.Error("expected allocation beyond max to fail")
	}
}

func TestBumpAllocatorRejectsNonPositiveCount(t *testing.T) {
	a := NewBumpAllocator(0, 16, nil)
	if _, err := a.Allocate(0); err == nil {
		t.Error("expected Allocate(0) to fail")
	}
}
