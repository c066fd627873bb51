//go:build !arm

package vmm

import (
	"armkernel/kernel/cpu"
	"armkernel/kernel/mem"
	"armkernel/kernel/mem/pmm/hostmem"
	"sync"
)

// hostedMemSize is sized comfortably past the highest physical address any
// hosted test fixture constructs (allocators in this package top out
// around 8 MiB of simulated RAM).
const hostedMemSize = 16 << 20

var (
	hostedArenaOnce sync.Once
	hostedArena     *hostmem.Arena
)

// arena lazily mmaps the simulated physical address space on first use. A
// real target has actual RAM at these addresses; a hosted build stands
// that in with an anonymous mapping via hostmem so reads and writes behave
// like real memory (including the zero-fill a real board gets at power-on)
// rather than a sparse map's implicit zero value.
func arena() *hostmem.Arena {
	hostedArenaOnce.Do(func() {
		a, err := hostmem.NewArena(hostedMemSize)
		if err != nil {
			panic(err)
		}
		hostedArena = a
	})
	return hostedArena
}

// readPhysWord/writePhysWord simulate physical RAM as a byte-addressed
// buffer. A real target has no software MMU to speak of: dereferencing a
// virtual address just works because the hardware walks the active table.
// A hosted build has no such hardware, so read32/write32 below perform
// that walk by hand against the currently active table (tracked via
// cpu.ActiveTTBR0), which is the only way self-map aliasing can be
// exercised without real silicon.
func readPhysWord(addr uintptr) uint32 {
	s := arena().Slice(addr&^3, 4)
	return uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24
}

func writePhysWord(addr uintptr, val uint32) {
	s := arena().Slice(addr&^3, 4)
	s[0] = byte(val)
	s[1] = byte(val >> 8)
	s[2] = byte(val >> 16)
	s[3] = byte(val >> 24)
}

// writePhysDirect/readPhysDirect bypass the table walk. Test fixtures use
// them to lay down the boot stub's initial identity-mapped L1/L2 before any
// translation exists for hostedWalk to follow.
func writePhysDirect(addr uintptr, val uint32) { writePhysWord(addr, val) }
func readPhysDirect(addr uintptr) uint32       { return readPhysWord(addr) }

// resetHostedMemory zeroes all simulated physical memory. Tests call this
// between cases so allocator/page-table state does not leak across them.
func resetHostedMemory() {
	s := arena().Slice(0, hostedMemSize)
	for i := range s {
		s[i] = 0
	}
}

func hostedWalk(vaddr uintptr) (uintptr, bool) {
	l1Base := cpu.ActiveTTBR0()
	l1idx := vaddr >> mem.SectionShift
	l1Word := readPhysWord(l1Base + l1idx*4)
	if l1Word == 0 {
		return 0, false
	}
	l2FrameAddr := uintptr(l1Word &^ 0x3FF)

	l2idx := (vaddr >> mem.PageShift) & (mem.L2Entries - 1)
	l2Word := readPhysWord(l2FrameAddr + l2idx*4)
	if l2Word == 0 {
		return 0, false
	}
	pageBase := uintptr(l2Word) &^ (uintptr(mem.PageSize) - 1)

	return pageBase | (vaddr & (uintptr(mem.PageSize) - 1)), true
}

func read32(vaddr uintptr) uint32 {
	if phys, ok := hostedWalk(vaddr); ok {
		return readPhysWord(phys)
	}
	return 0
}

func write32(vaddr uintptr, val uint32) {
	if phys, ok := hostedWalk(vaddr); ok {
		writePhysWord(phys, val)
	}
}

// zeroWindow clears an L2Entries*4-byte scratch window one word at a time.
// Unlike the real target, a hosted vaddr is not directly addressable memory
// (see hostedWalk), so mem.Memset cannot be used here; each word still has
// to go through the same translation write32 performs.
func zeroWindow(vaddr uintptr) {
	for w := 0; w < mem.L2Entries; w++ {
		write32(vaddr+uintptr(w)*4, 0)
	}
}
