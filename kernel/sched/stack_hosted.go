//go:build !arm

package sched

import (
	"armkernel/kernel"
	"armkernel/kernel/mem/vmm"
)

type hostedStackAllocator struct{}

func newHostedStackAllocator() *hostedStackAllocator { return &hostedStackAllocator{} }

// NewStackAllocator builds the stack allocator kmain hands to sched.New. A
// hosted build has no real page table to map stacks through, so pt and
// alloc are accepted only for signature parity with the arm build's
// constructor and are otherwise unused.
func NewStackAllocator(pt *vmm.PageTable, alloc vmm.FrameAllocator) stackAllocator {
	return newHostedStackAllocator()
}

func (hostedStackAllocator) allocate(size int) ([]byte, *kernel.Error) {
	return make([]byte, size), nil
}

// free does nothing: the garbage collector reclaims a hosted thread's stack
// slice once the reaper drops the last reference to it.
func (hostedStackAllocator) free(stack []byte) {}
