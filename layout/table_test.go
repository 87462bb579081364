package layout

import (
	"testing"

	comruntime "github.com/wippyai/com-runtime"
	"github.com/wippyai/com-runtime/errors"
)

var (
	iidBase      = comruntime.MustParseGUID("11111111-0000-0000-0000-000000000001")
	iidA         = comruntime.MustParseGUID("11111111-0000-0000-0000-00000000000a")
	iidB         = comruntime.MustParseGUID("11111111-0000-0000-0000-00000000000b")
	iidC         = comruntime.MustParseGUID("11111111-0000-0000-0000-00000000000c")
	iidUnrelated = comruntime.MustParseGUID("22222222-0000-0000-0000-000000000000")
)

func inherits(ids ...comruntime.GUID) func(comruntime.GUID) bool {
	return func(iid comruntime.GUID) bool {
		if iid == comruntime.IIDUnknown {
			return true
		}
		for _, id := range ids {
			if id == iid {
				return true
			}
		}
		return false
	}
}

func entryA(off uintptr) Entry {
	return Entry{Name: "A", IID: iidA, Inherits: inherits(iidA, iidBase), Ancestors: []comruntime.GUID{iidBase}, Offset: off}
}

func entryB(off uintptr) Entry {
	return Entry{Name: "B", IID: iidB, Inherits: inherits(iidB), Offset: off}
}

func TestBuild_Lookup(t *testing.T) {
	table, err := NewBuilder("O", 2*PointerSize).
		Add(entryA(0)).
		Add(entryB(PointerSize)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	tests := []struct {
		name string
		iid  comruntime.GUID
		off  uintptr
		ok   bool
	}{
		{"base resolves to A", iidBase, 0, true},
		{"A", iidA, 0, true},
		{"B", iidB, PointerSize, true},
		{"unknown resolves to first", comruntime.IIDUnknown, 0, true},
		{"unrelated", iidUnrelated, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			off, ok := table.Lookup(tc.iid)
			if ok != tc.ok {
				t.Fatalf("ok: got %v, want %v", ok, tc.ok)
			}
			if ok && off != tc.off {
				t.Errorf("offset: got %d, want %d", off, tc.off)
			}
		})
	}
}

func TestLookup_DeclarationOrderWins(t *testing.T) {
	// C also inherits Base; whichever is declared first answers Base.
	entryC := func(off uintptr) Entry {
		return Entry{Name: "C", IID: iidC, Inherits: inherits(iidC, iidBase), Ancestors: []comruntime.GUID{iidBase}, Offset: off}
	}

	first, err := NewBuilder("AC", 2*PointerSize).Add(entryA(0)).Add(entryC(PointerSize)).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if off, _ := first.Lookup(iidBase); off != 0 {
		t.Errorf("A first: Base offset got %d, want 0", off)
	}

	second, err := NewBuilder("CA", 2*PointerSize).Add(entryC(0)).Add(entryA(PointerSize)).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if idx, _ := second.Index(iidBase); second.Entry(idx).Name != "C" {
		t.Errorf("C first: Base resolved to %s, want C", second.Entry(idx).Name)
	}

	amb := first.Ambiguities()
	if len(amb) != 1 {
		t.Fatalf("ambiguities: got %d, want 1 (%v)", len(amb), amb)
	}
	if amb[0].IID != iidBase || amb[0].Winner != "A" || len(amb[0].Candidates) != 2 {
		t.Errorf("ambiguity: got %v", amb[0])
	}
}

func TestBuild_NoAmbiguityForDisjointInterfaces(t *testing.T) {
	table, err := NewBuilder("O", 2*PointerSize).Add(entryA(0)).Add(entryB(PointerSize)).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if amb := table.Ambiguities(); len(amb) != 0 {
		t.Errorf("expected no ambiguities, got %v", amb)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		kind    errors.Kind
	}{
		{
			name:    "empty",
			builder: NewBuilder("E", PointerSize),
			kind:    errors.KindInvalidLayout,
		},
		{
			name:    "misaligned",
			builder: NewBuilder("M", 2*PointerSize).Add(entryA(1)),
			kind:    errors.KindInvalidLayout,
		},
		{
			name:    "outside header",
			builder: NewBuilder("O", PointerSize).Add(entryA(PointerSize)),
			kind:    errors.KindInvalidLayout,
		},
		{
			name:    "overlap",
			builder: NewBuilder("X", 2*PointerSize).Add(entryA(0)).Add(entryB(0)),
			kind:    errors.KindInvalidLayout,
		},
		{
			name:    "duplicate iid",
			builder: NewBuilder("D", 2*PointerSize).Add(entryA(0)).Add(entryA(PointerSize)),
			kind:    errors.KindDuplicate,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.builder.Build()
			if err == nil {
				t.Fatal("expected error")
			}
			e, ok := err.(*errors.Error)
			if !ok {
				t.Fatalf("expected *errors.Error, got %T", err)
			}
			if e.Kind != tc.kind {
				t.Errorf("Kind = %v, want %v", e.Kind, tc.kind)
			}
		})
	}
}

func TestBuild_ForeignPointerSize(t *testing.T) {
	table, err := NewBuilder("W32", 8).WithPointerSize(4).
		Add(entryA(0)).
		Add(entryB(4)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if off, _ := table.Lookup(iidB); off != 4 {
		t.Errorf("B offset: got %d, want 4", off)
	}
}

func TestEntries_ReturnsCopy(t *testing.T) {
	table, err := NewBuilder("O", PointerSize).Add(entryA(0)).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	entries := table.Entries()
	entries[0].Name = "mutated"
	if table.Entry(0).Name != "A" {
		t.Error("Entries should return a copy")
	}
}

func TestAlignTo(t *testing.T) {
	tests := []struct {
		offset, align, want uintptr
	}{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 4, 12},
		{5, 1, 5},
		{5, 0, 5},
	}
	for _, tc := range tests {
		if got := AlignTo(tc.offset, tc.align); got != tc.want {
			t.Errorf("AlignTo(%d, %d) = %d, want %d", tc.offset, tc.align, got, tc.want)
		}
	}
}
