package layout

import "unsafe"

// PointerSize is the width of a dispatch-table slot on the running platform.
const PointerSize = unsafe.Sizeof(uintptr(0))

// AlignTo rounds offset up to the next multiple of align.
// align must be a power of two; zero and one leave offset unchanged.
func AlignTo(offset, align uintptr) uintptr {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// IsAligned reports whether offset is a multiple of align.
func IsAligned(offset, align uintptr) bool {
	return align <= 1 || offset%align == 0
}
