// Package hostmem backs the kernel's physical-address space with an
// anonymous mmap region when running under go test on a development
// machine, standing in for the board's actual RAM. Nothing in this package
// is reachable from an arm build; it exists purely so kernel/mem/vmm and
// kernel/sched can be exercised without QEMU.
package hostmem

import (
	"armkernel/kernel"

	"golang.org/x/sys/unix"
)

// Arena is a fixed-size byte region obtained via mmap that simulates a
// physical address space starting at address zero.
type Arena struct {
	bytes []byte
}

// NewArena maps size bytes of anonymous memory to serve as simulated
// physical RAM. size is rounded to the system page size by mmap itself.
func NewArena(size int) (*Arena, *kernel.Error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, &kernel.Error{Module: "hostmem", Message: "mmap failed: " + err.Error()}
	}
	return &Arena{bytes: b}, nil
}

// Close unmaps the arena. Safe to call once.
func (a *Arena) Close() *kernel.Error {
	if a.bytes == nil {
		return nil
	}
	err := unix.Munmap(a.bytes)
	a.bytes = nil
	if err != nil {
		return &kernel.Error{Module: "hostmem", Message: "munmap failed: " + err.Error()}
	}
	return nil
}

// Len returns the arena size in bytes.
func (a *Arena) Len() int { return len(a.bytes) }

// At returns a pointer to simulated physical address addr, interpreting it
// as an offset into the arena. Panics if addr falls outside the arena,
// mirroring the fault a real out-of-range physical access would trigger.
func (a *Arena) At(addr uintptr) *byte {
	return &a.bytes[addr]
}

// Slice returns the arena bytes spanning [addr, addr+length).
func (a *Arena) Slice(addr uintptr, length int) []byte {
	return a.bytes[addr : addr+uintptr(length)]
}
