package vmm

import (
	"armkernel/kernel/mem"
	"armkernel/kernel/mem/pmm"
)

// L1 first-level descriptor bits. Bit[1:0] == 0b01 identifies a coarse page
// table descriptor: every L1 slot this kernel uses points at an L2 table
// rather than describing a 1MB section directly.
// http://infocenter.arm.com/help/index.jsp?topic=/com.arm.doc.ddi0333h/Babifihd.html
const (
	l1CoarseType = 1 << 0
	l1PhysMask   = ^uintptr(0x3FF)
)

// l1Descriptor is a first-level page table entry. It is always a coarse
// page table descriptor in this kernel: there is no use for 1MB sections.
type l1Descriptor uint32

func newL1Descriptor(l2Frame pmm.Frame) l1Descriptor {
	return l1Descriptor(uint32(l2Frame.Address()) | l1CoarseType)
}

func (d l1Descriptor) present() bool { return d != 0 }

func (d l1Descriptor) l2Frame() pmm.Frame {
	return pmm.FrameFromAddress(uintptr(d) &^ 0x3FF)
}

// L2 second-level (small page) descriptor bits.
// http://infocenter.arm.com/help/index.jsp?topic=/com.arm.doc.ddi0211k/Caceaije.html
const (
	l2XPageType  = 1 << 1
	l2Bufferable = 1 << 2
	l2Cacheable  = 1 << 3
	l2APAllAccess = 0b11 << 4
)

// l2Descriptor is a second-level (4KiB small page) page table entry.
type l2Descriptor uint32

// newL2Descriptor builds a cacheable, bufferable, fully-accessible small
// page descriptor pointing at frame. Used for normal kernel/thread memory.
func newL2Descriptor(frame pmm.Frame) l2Descriptor {
	return l2Descriptor(uint32(frame.Address()) | l2XPageType | l2Cacheable | l2Bufferable | l2APAllAccess)
}

// newDeviceL2Descriptor builds an uncached, unbuffered descriptor suitable
// for memory-mapped device registers, where caching would hide side
// effects of a read or write.
func newDeviceL2Descriptor(frame pmm.Frame) l2Descriptor {
	return l2Descriptor(uint32(frame.Address()) | l2XPageType | l2APAllAccess)
}

func (d l2Descriptor) present() bool { return d != 0 }

func (d l2Descriptor) frame() pmm.Frame {
	return pmm.FrameFromAddress(uintptr(d) &^ (uintptr(mem.PageSize) - 1))
}
