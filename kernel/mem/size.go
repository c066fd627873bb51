package mem

import "armkernel/kernel"

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// sizeKind identifies which unit a MemorySize value was expressed in.
type sizeKind uint8

const (
	kindBytes sizeKind = iota
	kindKiloBytes
	kindMegaBytes
	kindGigaBytes
	kindPageSizes
)

// MemorySize is a tagged memory quantity: a PageSizes(3) and a Bytes(12288)
// both describe the same amount of memory but the constructor used is
// meaningful to callers that need to reason about page alignment, so the
// tag is kept rather than collapsing everything to a byte count up front.
type MemorySize struct {
	kind  sizeKind
	value uint64
}

// Bytes constructs a MemorySize expressed as a raw byte count.
func Bytes(n uint64) MemorySize { return MemorySize{kindBytes, n} }

// KiloBytes constructs a MemorySize expressed in KiB.
func KiloBytes(n uint64) MemorySize { return MemorySize{kindKiloBytes, n} }

// MegaBytes constructs a MemorySize expressed in MiB.
func MegaBytes(n uint64) MemorySize { return MemorySize{kindMegaBytes, n} }

// GigaBytes constructs a MemorySize expressed in GiB.
func GigaBytes(n uint64) MemorySize { return MemorySize{kindGigaBytes, n} }

// PageSizes constructs a MemorySize expressed as a count of PageSize pages.
func PageSizes(n uint64) MemorySize { return MemorySize{kindPageSizes, n} }

// ToBytes returns the byte count this MemorySize represents. The conversion
// is total: every MemorySize has a well-defined byte count.
func (s MemorySize) ToBytes() uint64 {
	switch s.kind {
	case kindKiloBytes:
		return s.value * uint64(Kb)
	case kindMegaBytes:
		return s.value * uint64(Mb)
	case kindGigaBytes:
		return s.value * uint64(Gb)
	case kindPageSizes:
		return s.value * uint64(PageSize)
	default:
		return s.value
	}
}

// ToPages returns the number of whole PageSize pages this MemorySize spans.
// It fails when the byte count is not page-aligned.
func (s MemorySize) ToPages() (uint64, *kernel.Error) {
	b := s.ToBytes()
	if b&(uint64(PageSize)-1) != 0 {
		return 0, errMisalignedSize
	}
	return b >> PageShift, nil
}

var errMisalignedSize = &kernel.Error{Module: "mem", Message: "memory size is not a whole number of pages"}
