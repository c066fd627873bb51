//go:build !arm

package vmm

import (
	"armkernel/kernel/cpu"
	"armkernel/kernel/mem"
	"armkernel/kernel/mem/pmm"
	"testing"
)

// buildIdentityMap writes L1/L2 descriptors directly (bypassing any table
// walk) so that every page in [start, end) translates to itself, exactly as
// a boot stub's identity map would. l2Scratch hands out fresh L2 frames for
// any section not yet covered.
func buildIdentityMap(l1Phys uintptr, start, end uintptr, l2Scratch *pmm.Frame) {
	for addr := start &^ (uintptr(mem.PageSize) - 1); addr < end; addr += uintptr(mem.PageSize) {
		l1idx := addr >> mem.SectionShift
		l1Word := readPhysDirect(l1Phys + l1idx*4)
		var l2Frame pmm.Frame
		if l1Word == 0 {
			l2Frame = *l2Scratch
			*l2Scratch++
			writePhysDirect(l1Phys+l1idx*4, uint32(newL1Descriptor(l2Frame)))
		} else {
			l2Frame = l1Descriptor(l1Word).l2Frame()
		}
		l2idx := (addr >> mem.PageShift) & (mem.L2Entries - 1)
		writePhysDirect(l2Frame.Address()+l2idx*4, uint32(newL2Descriptor(pmm.FrameFromAddress(addr))))
	}
}

func TestInitBootstrapsSelfMappedTable(t *testing.T) {
	resetHostedMemory()

	const (
		identityL1Phys = 0x10_0000 // 1 MiB, 16KiB aligned
		l2IdPhys       = 0x10_8000
		poolStart      = 0x20_0000
		poolEnd        = 0x40_0000
		kernelPhys     = 0x10_9000
		kernelVirt     = 0x10_9000
		kernelSize     = 3000 // spans less than one section
		stackPhys      = 0x10_A000
		stackVirt      = 0x10_A000
	)

	l2Scratch := pmm.Frame((poolStart - 0x1000) >> mem.PageShift) // carve below pool, won't collide
	buildIdentityMap(identityL1Phys, identityL1Phys, identityL1Phys+uintptr(mem.L1TableAlign), &l2Scratch)
	buildIdentityMap(identityL1Phys, l2IdPhys, l2IdPhys+uintptr(mem.PageSize), &l2Scratch)

	cpu.SetTTBR0(identityL1Phys)

	alloc := pmm.NewBumpAllocator(poolStart, poolEnd, nil)

	layout := MemLayout{
		KernelStartPhys: mem.PhysicalAddress(kernelPhys),
		KernelStartVirt: mem.VirtualAddress(kernelVirt),
		KernelEndVirt:   mem.VirtualAddress(kernelVirt + kernelSize),
		StackPhys:       mem.PhysicalAddress(stackPhys),
		StackVirt:       mem.VirtualAddress(stackVirt),
	}

	pt, err := Init(mem.VirtualAddress(identityL1Phys), mem.VirtualAddress(l2IdPhys), layout, alloc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := cpu.ActiveTTBR0(); got == identityL1Phys {
		t.Fatal("expected TTBR0 to switch away from the identity table")
	}

	gotPhys, verr := pt.V2P(mem.VirtualAddress(kernelVirt))
	if verr != nil {
		t.Fatalf("unexpected error translating kernel address: %v", verr)
	}
	if gotPhys != mem.PhysicalAddress(kernelPhys) {
		t.Errorf("expected kernel start to translate to %x; got %x", kernelPhys, gotPhys)
	}

	if _, verr := pt.V2P(mem.VirtualAddress(stackVirt)); verr != nil {
		t.Errorf("expected stack page to be mapped: %v", verr)
	}
}

func TestMapSingleAndUnmapRoundTrip(t *testing.T) {
	pt, alloc := newTestPageTable(t)

	const va = mem.VirtualAddress(0x5000_0000)
	frame, err := alloc.Allocate(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pa := mem.PhysicalAddress(frame.Address())

	if err := pt.MapSingle(pa, va); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, verr := pt.V2P(va)
	if verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}
	if got != pa {
		t.Errorf("expected V2P(%x) to return %x; got %x", va, pa, got)
	}

	if err := pt.Unmap(va); err != nil {
		t.Fatalf("unexpected error unmapping: %v", err)
	}
	if _, verr := pt.V2P(va); verr != ErrNotMapped {
		t.Errorf("expected V2P after Unmap to return ErrNotMapped; got %v", verr)
	}
}

func TestMapDeviceDoesNotReturnFrameOnUnmap(t *testing.T) {
	pt, _ := newTestPageTable(t)

	const (
		va = mem.VirtualAddress(0x5000_1000)
		pa = mem.PhysicalAddress(0xFFFF_0000) // outside any allocator pool
	)

	deviceFrame := pmm.FrameFromAddress(uintptr(pa))
	if err := pt.MapDevice(pa, va); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pt.owned[deviceFrame] {
		t.Error("expected a device mapping to never be tracked as owned")
	}
	if err := pt.Unmap(va); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestV2PUnmappedAddress(t *testing.T) {
	pt, _ := newTestPageTable(t)
	if _, err := pt.V2P(mem.VirtualAddress(0x9000_0000)); err != ErrNotMapped {
		t.Errorf("expected ErrNotMapped for an address with no L1 entry; got %v", err)
	}
}

func TestP2VSelfMapFrames(t *testing.T) {
	pt, _ := newTestPageTable(t)

	for i, f := range pt.selfMapFrame {
		v, err := pt.P2V(mem.PhysicalAddress(f.Address()))
		if err != nil {
			t.Fatalf("unexpected error for self-map frame %d: %v", i, err)
		}
		if want := L1Self.Add(uintptr(i) * uintptr(mem.PageSize)); v != want {
			t.Errorf("expected P2V of self-map frame %d to be %x; got %x", i, want, v)
		}
	}

	if _, err := pt.P2V(mem.PhysicalAddress(0xBADF_0000)); err != ErrNoReverseMapping {
		t.Errorf("expected ErrNoReverseMapping for an untracked frame; got %v", err)
	}
}

// newTestPageTable bootstraps a PageTable through the real Init path against
// a fresh, reset hosted memory image, returning the allocator used so tests
// can hand out frames the same way the table itself does.
func newTestPageTable(t *testing.T) (*PageTable, *pmm.BumpAllocator) {
	t.Helper()
	resetHostedMemory()

	const (
		identityL1Phys = 0x10_0000
		l2IdPhys       = 0x10_8000
		poolStart      = 0x20_0000
		poolEnd        = 0x80_0000
	)

	l2Scratch := pmm.Frame((poolStart - 0x1000) >> mem.PageShift)
	buildIdentityMap(identityL1Phys, identityL1Phys, identityL1Phys+uintptr(mem.L1TableAlign), &l2Scratch)
	buildIdentityMap(identityL1Phys, l2IdPhys, l2IdPhys+uintptr(mem.PageSize), &l2Scratch)

	cpu.SetTTBR0(identityL1Phys)
	alloc := pmm.NewBumpAllocator(poolStart, poolEnd, nil)

	layout := MemLayout{
		KernelStartPhys: mem.PhysicalAddress(identityL1Phys),
		KernelStartVirt: mem.VirtualAddress(identityL1Phys),
		KernelEndVirt:   mem.VirtualAddress(identityL1Phys + 100),
		StackPhys:       mem.PhysicalAddress(l2IdPhys),
		StackVirt:       mem.VirtualAddress(l2IdPhys),
	}

	pt, err := Init(mem.VirtualAddress(identityL1Phys), mem.VirtualAddress(l2IdPhys), layout, alloc)
	if err != nil {
		t.Fatalf("unexpected error bootstrapping test page table: %v", err)
	}
	return pt, alloc
}
