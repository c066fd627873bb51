//go:build arm

package vmm

import (
	"armkernel/kernel/mem"
	"unsafe"
)

// read32/write32 operate on virtual addresses directly: once the MMU is
// live, dereferencing a mapped virtual address is exactly what hardware
// does for us, self-map aliasing included. There is nothing to walk in
// software on the real target.
func read32(vaddr uintptr) uint32              { return *(*uint32)(unsafe.Pointer(vaddr)) }
func write32(vaddr uintptr, val uint32)        { *(*uint32)(unsafe.Pointer(vaddr)) = val }
func writePhysDirect(addr uintptr, val uint32) { write32(addr, val) }
func readPhysDirect(addr uintptr) uint32       { return read32(addr) }

// zeroWindow clears an L2Entries*4-byte scratch window. Once the window is
// mapped it is ordinary directly-addressable memory on the real target, so
// this goes through mem.Memset instead of a word-at-a-time loop.
func zeroWindow(vaddr uintptr) {
	mem.Memset(vaddr, 0, uintptr(mem.L2Entries)*4)
}
