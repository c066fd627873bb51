//go:build arm

package sched

import (
	"armkernel/kernel"
	"armkernel/kernel/mem"
	"armkernel/kernel/mem/pmm"
	"armkernel/kernel/mem/vmm"
	"unsafe"
)

// threadStackBase is the first virtual address handed out for a spawned
// thread's stack; each later stack claims the next span above it. There is
// no reuse of a freed span: a kernel long-lived enough to exhaust this
// region needs a real virtual address space allocator, which is out of
// scope here.
const threadStackBase = mem.VirtualAddress(0xC000_0000)

type armStackAllocator struct {
	pt    *vmm.PageTable
	alloc vmm.FrameAllocator
	next  mem.VirtualAddress
}

func newArmStackAllocator(pt *vmm.PageTable, alloc vmm.FrameAllocator) *armStackAllocator {
	return &armStackAllocator{pt: pt, alloc: alloc, next: threadStackBase}
}

// NewStackAllocator builds the stack allocator kmain hands to sched.New on
// the real target: thread stacks come from freshly mapped kernel pages
// rather than the Go heap.
func NewStackAllocator(pt *vmm.PageTable, alloc vmm.FrameAllocator) stackAllocator {
	return newArmStackAllocator(pt, alloc)
}

func (a *armStackAllocator) allocate(size int) ([]byte, *kernel.Error) {
	pages := (size + int(mem.PageSize) - 1) / int(mem.PageSize)
	base := a.next
	for i := 0; i < pages; i++ {
		frame, err := a.alloc.Allocate(1)
		if err != nil {
			return nil, err
		}
		va := a.next
		if err := a.pt.MapSingle(mem.PhysicalAddress(frame.Address()), va); err != nil {
			return nil, err
		}
		a.next = a.next.Add(uintptr(mem.PageSize))
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(base))), pages*int(mem.PageSize)), nil
}

// free unmaps and releases every page backing stack. The underlying
// pmm.BumpAllocator never actually reclaims a frame (see its own doc
// comment), so on this target the only real effect is removing the page
// table mappings; a future allocator with a free list would make this
// reclaim physical memory too.
func (a *armStackAllocator) free(stack []byte) {
	if len(stack) == 0 {
		return
	}
	base := mem.VirtualAddress(uintptr(unsafe.Pointer(&stack[0])))
	pages := len(stack) / int(mem.PageSize)
	for i := 0; i < pages; i++ {
		va := base.Add(uintptr(i) * uintptr(mem.PageSize))
		phys, err := a.pt.V2P(va)
		if err != nil {
			continue
		}
		if err := a.pt.Unmap(va); err != nil {
			continue
		}
		a.alloc.Deallocate(pmm.FrameFromAddress(uintptr(phys)), 1)
	}
}
