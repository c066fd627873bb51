package mem

import "testing"

func TestMemorySizeToBytes(t *testing.T) {
	specs := []struct {
		size     MemorySize
		expBytes uint64
	}{
		{Bytes(42), 42},
		{KiloBytes(2), 2048},
		{MegaBytes(1), 1 << 20},
		{GigaBytes(1), 1 << 30},
		{PageSizes(3), 3 * uint64(PageSize)},
	}

	for specIndex, spec := range specs {
		if got := spec.size.ToBytes(); got != spec.expBytes {
			t.Errorf("[spec %d] expected ToBytes() to return %d; got %d", specIndex, spec.expBytes, got)
		}
	}
}

func TestMemorySizeToPages(t *testing.T) {
	if pages, err := PageSizes(4).ToPages(); err != nil || pages != 4 {
		t.Errorf("expected PageSizes(4).ToPages() to return (4, nil); got (%d, %v)", pages, err)
	}

	if _, err := Bytes(uint64(PageSize) + 1).ToPages(); err == nil {
		t.Error("expected ToPages() to fail for a non-page-aligned byte count")
	}
}
