// Package vmm implements the two-level ARMv6 page-table engine: a
// self-mapping L1/L2 structure bootstrapped from a boot stub's identity map,
// with on-demand map/unmap of individual 4 KiB pages afterwards.
package vmm

import (
	"armkernel/kernel"
	"armkernel/kernel/cpu"
	"armkernel/kernel/mem"
	"armkernel/kernel/mem/pmm"
)

// L1Self is the virtual address at which the page table maps its own L1 and
// L2 tables, so the running kernel can edit its own translation structures
// without a separate "physical memory window".
const L1Self = mem.VirtualAddress(0xE000_0000)

// scratchL2Index is the free slot in the self-map's own L2 table (the five
// fixed entries are the four L1 frames plus the self-map L2 frame itself).
// Steady-state map/unmap install whichever L2 frame they need to edit here.
const scratchL2Index = 5

var (
	// ErrNotMapped is returned when V2P or Unmap is given a virtual
	// address with no current mapping.
	ErrNotMapped = &kernel.Error{Module: "vmm", Message: "virtual address is not mapped"}

	// ErrNoReverseMapping is returned by P2V for any physical address
	// that isn't one of the page table's own self-map frames. A general
	// physical-to-virtual reverse lookup would require either a reverse
	// index this design doesn't keep, or a linear scan of every L1/L2
	// entry, which is not an operation the hot path can afford.
	ErrNoReverseMapping = &kernel.Error{Module: "vmm", Message: "physical address has no known reverse mapping"}
)

// FrameAllocator is the subset of pmm.BumpAllocator the page-table engine
// depends on, kept as an interface so tests can supply a fake.
type FrameAllocator interface {
	Allocate(count int) (pmm.Frame, *kernel.Error)
	Deallocate(pmm.Frame, int)
}

// PageTable is a fully bootstrapped, self-mapped ARMv6 two-level page
// table. The zero value is not usable; construct one with Init.
type PageTable struct {
	alloc        FrameAllocator
	selfMapFrame [5]pmm.Frame

	// owned records which mapped frames came from alloc, as opposed to a
	// fixed physical address (a device register window, for instance)
	// the table merely exposes. Every descriptor bit on an ARMv6 small
	// page is either address or a hardware-meaningful permission/cache
	// bit, so this bookkeeping has to live in software rather than
	// borrowed from an otherwise-unused descriptor bit. Unmap returns a
	// frame to the allocator only when it is present here.
	owned map[pmm.Frame]bool
}

// MemLayout describes the physical/virtual spans Init needs to map the
// running kernel image and its current stack into the new table.
type MemLayout struct {
	KernelStartPhys mem.PhysicalAddress
	KernelStartVirt mem.VirtualAddress
	KernelEndVirt   mem.VirtualAddress
	StackPhys       mem.PhysicalAddress
	StackVirt       mem.VirtualAddress
}

func up(size mem.MemorySize, align uint64) uint64 {
	b := size.ToBytes()
	return (b + align - 1) &^ (align - 1)
}

func barriers() {
	cpu.DataMemoryBarrier()
	cpu.InvalidateCaches()
	cpu.InvalidateTLB()
}

// Init bootstraps a new, self-mapped page table. l1Id and l2Id are the
// virtual addresses (identity-mapped by the boot stub) of an existing L1
// table and a blank, 4 KiB-aligned L2 table; both remain readable/writable
// through the currently active table for the duration of this call.
func Init(l1Id, l2Id mem.VirtualAddress, layout MemLayout, alloc FrameAllocator) (*PageTable, *kernel.Error) {
	const initFrameCount = 7

	base, err := alloc.Allocate(initFrameCount)
	if err != nil {
		return nil, err
	}

	// Rotate the 7 contiguous frames so the first 4 land on a 16 KiB (L1
	// table) boundary, then give back the two we don't need.
	l1Start := (4 - (uintptr(base) & 3)) & 3
	var rotated [initFrameCount]pmm.Frame
	for i := 0; i < initFrameCount; i++ {
		rotated[i] = base + pmm.Frame((i+int(l1Start))%initFrameCount)
	}
	alloc.Deallocate(rotated[5], 1)
	alloc.Deallocate(rotated[6], 1)
	chosen := [5]pmm.Frame{rotated[0], rotated[1], rotated[2], rotated[3], rotated[4]}

	// Install a temporary L1->L2 entry for L1Self in the currently active
	// (identity) table, and populate l2Id with the five chosen frames.
	// Until TTBR0 switches below, l2Id is what actually governs the
	// L1Self section, so every self-map edit made before the switch goes
	// through it rather than through the new table's own L2.
	l1SelfIdx := uintptr(L1Self) >> mem.SectionShift
	write32(uintptr(l1Id)+l1SelfIdx*4, uint32(newL1Descriptor(pmm.FrameFromAddress(uintptr(l2Id)))))
	for i, f := range chosen {
		write32(uintptr(l2Id)+uintptr(i)*4, uint32(newL2Descriptor(f)))
	}

	barriers()

	// The new L1 (chosen[0..3]) and the new self-map L2 (chosen[4]) are
	// now reachable at L1Self / L1Self+4*PageSize. Write the new table's
	// own self-map into them, identical in shape to l2Id's.
	newL1Base := uintptr(L1Self)
	newL2Base := uintptr(L1Self) + 4*uintptr(mem.PageSize)
	write32(newL1Base+l1SelfIdx*4, uint32(newL1Descriptor(chosen[4])))
	for i, f := range chosen {
		write32(newL2Base+uintptr(i)*4, uint32(newL2Descriptor(f)))
	}

	pt := &PageTable{alloc: alloc, selfMapFrame: chosen, owned: make(map[pmm.Frame]bool)}

	// Map the kernel image, one fresh L2 per megabyte, via l2Id's scratch
	// slot (index 5) since that is still the only live view into L1Self.
	kernelSize := up(layout.KernelEndVirt.Sub(layout.KernelStartVirt), uint64(mem.PageSize))
	// Each section's L2 starts at the physical page matching the section's
	// first virtual page, so every kernel page lands at its own L2 index.
	kernelSecOff := uintptr(layout.KernelStartVirt) & (uintptr(mem.SectionSize) - 1)
	numMB := (uint64(kernelSecOff) + kernelSize + uint64(mem.SectionSize) - 1) / uint64(mem.SectionSize)
	kernelStartSection := uintptr(layout.KernelStartVirt) >> mem.SectionShift

	for i := uint64(0); i < numMB; i++ {
		kL2, err := alloc.Allocate(1)
		if err != nil {
			return nil, err
		}

		barriers()
		write32(uintptr(l2Id)+scratchL2Index*4, uint32(newL2Descriptor(kL2)))
		barriers()

		windowBase := uintptr(L1Self) + scratchL2Index*uintptr(mem.PageSize)
		zeroWindow(windowBase)

		secStart := layout.KernelStartPhys.Offset(-int(kernelSecOff)).Add(uintptr(i) << mem.SectionShift)
		secEnd := secStart.Add(uintptr(mem.SectionSize))
		kernelPhysEnd := layout.KernelStartPhys.Add(uintptr(kernelSize))
		if i+1 == numMB && kernelPhysEnd < secEnd {
			secEnd = kernelPhysEnd
		}

		frameAddr := secStart
		for l2idx := 0; frameAddr < secEnd; l2idx++ {
			frame := pmm.FrameFromAddress(uintptr(frameAddr))
			write32(windowBase+uintptr(l2idx)*4, uint32(newL2Descriptor(frame)))
			pt.owned[frame] = true
			frameAddr = frameAddr.Add(uintptr(mem.PageSize))
		}
		// fill the remainder of the section with fresh, unused-but-mapped
		// frames so a tail megabyte that overshoots the kernel's actual
		// size is still fully populated rather than partially unmapped.
		for l2idx := int((secEnd.Sub(secStart)).ToBytes() / uint64(mem.PageSize)); l2idx < mem.L2Entries; l2idx++ {
			fillFrame, err := alloc.Allocate(1)
			if err != nil {
				return nil, err
			}
			write32(windowBase+uintptr(l2idx)*4, uint32(newL2Descriptor(fillFrame)))
			pt.owned[fillFrame] = true
		}

		barriers()
		write32(newL1Base+(kernelStartSection+uintptr(i))*4, uint32(newL1Descriptor(kL2)))
	}

	// Map the current stack page.
	stackSection := uintptr(layout.StackVirt) >> mem.SectionShift
	stackL1 := l1Descriptor(read32(newL1Base + stackSection*4))
	var stackL2Frame pmm.Frame
	if !stackL1.present() {
		stackL2Frame, err = alloc.Allocate(1)
		if err != nil {
			return nil, err
		}
		write32(newL1Base+stackSection*4, uint32(newL1Descriptor(stackL2Frame)))
	} else {
		stackL2Frame = stackL1.l2Frame()
	}

	barriers()
	write32(uintptr(l2Id)+scratchL2Index*4, uint32(newL2Descriptor(stackL2Frame)))
	barriers()

	stackWindow := uintptr(L1Self) + scratchL2Index*uintptr(mem.PageSize)
	stackL2Idx := (uintptr(layout.StackVirt) >> mem.PageShift) & (mem.L2Entries - 1)
	stackFrame := pmm.FrameFromAddress(uintptr(layout.StackPhys) &^ (uintptr(mem.PageSize) - 1))
	write32(stackWindow+stackL2Idx*4, uint32(newL2Descriptor(stackFrame)))

	// Switch over: new table becomes authoritative for every translation.
	cpu.DataMemoryBarrier()
	cpu.WriteDomainAccessControlRegister(1)
	cpu.SetTTBR0(chosen[0].Address())
	cpu.InvalidateCaches()
	cpu.InvalidateTLB()

	return pt, nil
}

func (pt *PageTable) l1Index(v mem.VirtualAddress) uintptr {
	return uintptr(v) >> mem.SectionShift
}

func (pt *PageTable) l2Index(v mem.VirtualAddress) uintptr {
	return (uintptr(v) >> mem.PageShift) & (mem.L2Entries - 1)
}

// installScratch installs l2Frame's physical frame into the self-map's
// scratch slot, executing the barrier/invalidate sequence the ARM reference
// manual requires before the new window can be trusted, and returns the
// virtual address of the resulting 256-entry window.
func (pt *PageTable) installScratch(l2Frame pmm.Frame) uintptr {
	selfL2 := uintptr(L1Self) + 4*uintptr(mem.PageSize)
	write32(selfL2+scratchL2Index*4, uint32(newL2Descriptor(l2Frame)))
	barriers()
	cpu.DataSynchronizationBarrier()
	return uintptr(L1Self) + scratchL2Index*uintptr(mem.PageSize)
}

// mapSingleDescriptor is the shared path for MapSingle and MapDevice: both
// just differ in which leaf descriptor bits they ask for and whether the
// frame is allocator-owned.
func (pt *PageTable) mapSingleDescriptor(v mem.VirtualAddress, leaf l2Descriptor, owned bool) *kernel.Error {
	l1idx := pt.l1Index(v)
	l1Word := read32(uintptr(L1Self) + l1idx*4)
	l1d := l1Descriptor(l1Word)

	justAllocated := false
	if !l1d.present() {
		frame, err := pt.alloc.Allocate(1)
		if err != nil {
			return err
		}
		l1d = newL1Descriptor(frame)
		write32(uintptr(L1Self)+l1idx*4, uint32(l1d))
		justAllocated = true
	}

	window := pt.installScratch(l1d.l2Frame())
	if justAllocated {
		zeroWindow(window)
	}

	l2idx := pt.l2Index(v)
	write32(window+l2idx*4, uint32(leaf))
	if owned {
		pt.owned[leaf.frame()] = true
	}
	barriers()
	cpu.FlushTLBEntry(uintptr(v))
	return nil
}

// MapSingle maps one 4 KiB page at v to physical frame p. The frame is
// assumed to be allocator-owned: Unmap will return it to the allocator.
func (pt *PageTable) MapSingle(p mem.PhysicalAddress, v mem.VirtualAddress) *kernel.Error {
	leaf := newL2Descriptor(pmm.FrameFromAddress(uintptr(p)))
	return pt.mapSingleDescriptor(v, leaf, true)
}

// MapDevice maps one 4 KiB page at v to a fixed, uncached physical address,
// such as a memory-mapped peripheral's register window. The frame is never
// considered allocator-owned.
func (pt *PageTable) MapDevice(p mem.PhysicalAddress, v mem.VirtualAddress) *kernel.Error {
	leaf := newDeviceL2Descriptor(pmm.FrameFromAddress(uintptr(p)))
	return pt.mapSingleDescriptor(v, leaf, false)
}

// Map maps a run of contiguous pages, one MapSingle call per page.
func (pt *PageTable) Map(p mem.PhysicalAddress, v mem.VirtualAddress, size mem.MemorySize) *kernel.Error {
	pages, err := size.ToPages()
	if err != nil {
		return err
	}
	for i := uint64(0); i < pages; i++ {
		off := uintptr(i) * uintptr(mem.PageSize)
		if err := pt.MapSingle(p.Add(off), v.Add(off)); err != nil {
			return err
		}
	}
	return nil
}

// V2P translates a mapped virtual address to its backing physical address.
func (pt *PageTable) V2P(v mem.VirtualAddress) (mem.PhysicalAddress, *kernel.Error) {
	l1d := l1Descriptor(read32(uintptr(L1Self) + pt.l1Index(v)*4))
	if !l1d.present() {
		return 0, ErrNotMapped
	}

	window := pt.installScratch(l1d.l2Frame())
	l2d := l2Descriptor(read32(window + pt.l2Index(v)*4))
	if !l2d.present() {
		return 0, ErrNotMapped
	}

	offset := uintptr(v) & (uintptr(mem.PageSize) - 1)
	return mem.PhysicalAddress(l2d.frame().Address() + offset), nil
}

// P2V inverts V2P for the handful of physical addresses this page table
// knows how to reach directly: its own L1/L2 self-map frames. Any other
// physical address returns ErrNoReverseMapping.
func (pt *PageTable) P2V(p mem.PhysicalAddress) (mem.VirtualAddress, *kernel.Error) {
	frame := pmm.FrameFromAddress(uintptr(p) &^ (uintptr(mem.PageSize) - 1))
	for i, f := range pt.selfMapFrame {
		if f == frame {
			return L1Self.Add(uintptr(i) * uintptr(mem.PageSize)), nil
		}
	}
	return 0, ErrNoReverseMapping
}

// Unmap clears the leaf mapping for v, invalidates the TLB entry, and
// returns the former frame to the allocator if the mapping owned it.
func (pt *PageTable) Unmap(v mem.VirtualAddress) *kernel.Error {
	l1d := l1Descriptor(read32(uintptr(L1Self) + pt.l1Index(v)*4))
	if !l1d.present() {
		return ErrNotMapped
	}

	window := pt.installScratch(l1d.l2Frame())
	l2idx := pt.l2Index(v)
	l2d := l2Descriptor(read32(window + l2idx*4))
	if !l2d.present() {
		return ErrNotMapped
	}

	write32(window+l2idx*4, 0)
	barriers()
	cpu.FlushTLBEntry(uintptr(v))

	frame := l2d.frame()
	if pt.owned[frame] {
		delete(pt.owned, frame)
		pt.alloc.Deallocate(frame, 1)
	}
	return nil
}
