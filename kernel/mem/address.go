package mem

// PhysicalAddress is a physical memory address. It never implicitly
// converts to or from a VirtualAddress: the two live in disjoint address
// spaces and mixing them up is exactly the class of bug this type split
// exists to catch at compile time.
type PhysicalAddress uintptr

// VirtualAddress is a virtual memory address, as seen through whatever page
// table is currently active.
type VirtualAddress uintptr

// Offset returns the address shifted by a signed byte count.
func (a PhysicalAddress) Offset(off int) PhysicalAddress { return PhysicalAddress(int(a) + off) }

// Add returns the address advanced by an unsigned byte count.
func (a PhysicalAddress) Add(off uintptr) PhysicalAddress { return a + PhysicalAddress(off) }

// Sub returns the byte distance between two physical addresses.
func (a PhysicalAddress) Sub(b PhysicalAddress) MemorySize { return Bytes(uint64(a - b)) }

// Aligned returns true if the address is a multiple of align, which must be
// a power of two.
func (a PhysicalAddress) Aligned(align uintptr) bool { return uintptr(a)&(align-1) == 0 }

// Offset returns the address shifted by a signed byte count.
func (a VirtualAddress) Offset(off int) VirtualAddress { return VirtualAddress(int(a) + off) }

// Add returns the address advanced by an unsigned byte count.
func (a VirtualAddress) Add(off uintptr) VirtualAddress { return a + VirtualAddress(off) }

// Sub returns the byte distance between two virtual addresses.
func (a VirtualAddress) Sub(b VirtualAddress) MemorySize { return Bytes(uint64(a - b)) }

// Aligned returns true if the address is a multiple of align, which must be
// a power of two.
func (a VirtualAddress) Aligned(align uintptr) bool { return uintptr(a)&(align-1) == 0 }
