package gen

import (
	"runtime"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/layout"
)

// Target describes the C data model the header was written for.
type Target struct {
	// PointerSize is the width of pointers and dispatch-table slots.
	PointerSize int
	// LongSize is the width of long and unsigned long: 4 on Windows and
	// 32-bit platforms, 8 on 64-bit Unix.
	LongSize int
}

// HostTarget returns the data model of the platform comgen runs on.
func HostTarget() Target {
	t := Target{PointerSize: int(layout.PointerSize), LongSize: 8}
	if runtime.GOOS == "windows" || t.PointerSize == 4 {
		t.LongSize = 4
	}
	return t
}

func (t Target) orHost() Target {
	h := HostTarget()
	if t.PointerSize == 0 {
		t.PointerSize = h.PointerSize
	}
	if t.LongSize == 0 {
		t.LongSize = h.LongSize
	}
	return t
}

func (t Target) validate() error {
	if t.PointerSize != 4 && t.PointerSize != 8 {
		return errors.InvalidInput(errors.PhaseEmit, "pointer size must be 4 or 8", t.PointerSize)
	}
	if t.LongSize != 4 && t.LongSize != 8 {
		return errors.InvalidInput(errors.PhaseEmit, "long size must be 4 or 8", t.LongSize)
	}
	return nil
}
