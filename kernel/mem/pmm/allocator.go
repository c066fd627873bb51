package pmm

import (
	"armkernel/kernel"
	"armkernel/kernel/mem"
)

// Range describes a half-open physical address range, in bytes, that the
// allocator must never hand out: the kernel image, a boot stub's scratch
// tables, reserved board memory, anything already spoken for before the
// allocator existed to track it.
type Range struct {
	Start uintptr
	End   uintptr
}

func (r Range) overlaps(start, end uintptr) bool {
	return start < r.End && r.Start < end
}

// BumpAllocator is a linear, never-reclaiming frame allocator: it hands out
// frames in increasing address order and only ever moves forward. There is
// no free list; Deallocate exists to satisfy the allocator's read side of
// the Unmap path but does nothing, matching the bootstrap-era allocator this
// kernel has today.
type BumpAllocator struct {
	next     uintptr
	max      uintptr
	reserved []Range
}

// NewBumpAllocator creates an allocator that will serve frames starting at
// the first page boundary at or above start, refusing to exceed max, and
// skipping any of the given reserved ranges.
func NewBumpAllocator(start, max uintptr, reserved []Range) *BumpAllocator {
	return &BumpAllocator{
		next:     alignUp(start),
		max:      max,
		reserved: reserved,
	}
}

// Allocate reserves count contiguous frames and returns the first one. It
// fails when the allocator cannot find count contiguous frames before max.
func (a *BumpAllocator) Allocate(count int) (Frame, *kernel.Error) {
	if count <= 0 {
		return InvalidFrame, errInvalidFrameCount
	}

	size := uintptr(count) << mem.PageShift

	for {
		if a.next >= a.max {
			return InvalidFrame, errOutOfMemory
		}

		candidateEnd := a.next + size
		if candidateEnd > a.max {
			return InvalidFrame, errOutOfMemory
		}

		moved := false
		for _, r := range a.reserved {
			if r.overlaps(a.next, candidateEnd) {
				if r.End > a.next {
					a.next = r.End
				}
				moved = true
				break
			}
		}
		if moved {
			continue
		}

		frame := FrameFromAddress(a.next)
		a.next = candidateEnd
		return frame, nil
	}
}

// Deallocate is a no-op: this allocator never reclaims frames.
func (a *BumpAllocator) Deallocate(Frame, int) {}

func alignUp(addr uintptr) uintptr {
	if rem := addr & (uintptr(mem.PageSize) - 1); rem != 0 {
		return addr + uintptr(mem.PageSize) - rem
	}
	return addr
}

var (
	errInvalidFrameCount = &kernel.Error{Module: "pmm", Message: "frame count must be positive"}
	errOutOfMemory       = &kernel.Error{Module: "pmm", Message: "out of physical memory"}
)
