package layout

import (
	"fmt"
	"sort"

	comruntime "github.com/wippyai/com-runtime"
	"github.com/wippyai/com-runtime/errors"
)

// Entry describes one interface slot of a composite header.
type Entry struct {
	// Inherits answers whether the slot's interface is-a the given identity.
	Inherits func(comruntime.GUID) bool
	Name     string
	// Ancestors lists the identities the interface inherits from, if known.
	// Only used to report ambiguities.
	Ancestors []comruntime.GUID
	Offset    uintptr
	IID       comruntime.GUID
}

func (e Entry) satisfies(iid comruntime.GUID) bool {
	if e.Inherits == nil {
		return e.IID == iid
	}
	return e.Inherits(iid)
}

// Ambiguity is an identity satisfied by more than one slot.
type Ambiguity struct {
	Winner     string
	Candidates []string
	IID        comruntime.GUID
}

func (a Ambiguity) String() string {
	return fmt.Sprintf("%s satisfied by %v; %s wins", a.IID, a.Candidates, a.Winner)
}

// Builder collects slots in declaration order.
type Builder struct {
	name    string
	entries []Entry
	size    uintptr
	ptrSize uintptr
}

// NewBuilder starts a layout for a header of headerSize bytes.
func NewBuilder(name string, headerSize uintptr) *Builder {
	return &Builder{
		name:    name,
		size:    headerSize,
		ptrSize: PointerSize,
	}
}

// WithPointerSize overrides the slot width, for describing foreign targets.
func (b *Builder) WithPointerSize(size uintptr) *Builder {
	b.ptrSize = size
	return b
}

// Add appends a slot. Order of Add calls is declaration order.
func (b *Builder) Add(e Entry) *Builder {
	b.entries = append(b.entries, e)
	return b
}

// Build validates the slots and returns the immutable table.
func (b *Builder) Build() (*Table, error) {
	path := []string{b.name}

	if len(b.entries) == 0 {
		return nil, errors.InvalidLayout(path, "a composite header needs at least one interface")
	}

	seenIID := make(map[comruntime.GUID]string, len(b.entries))
	for _, e := range b.entries {
		if !IsAligned(e.Offset, b.ptrSize) {
			return nil, errors.InvalidLayout(append(path, e.Name),
				fmt.Sprintf("slot offset %d is not aligned to %d", e.Offset, b.ptrSize))
		}
		if e.Offset+b.ptrSize > b.size {
			return nil, errors.InvalidLayout(append(path, e.Name),
				fmt.Sprintf("slot at offset %d exceeds header size %d", e.Offset, b.size))
		}
		if prev, ok := seenIID[e.IID]; ok {
			return nil, errors.Duplicate(errors.PhaseDefine, path, "interface", e.Name+" (same IID as "+prev+")")
		}
		seenIID[e.IID] = e.Name
	}

	sorted := make([]Entry, len(b.entries))
	copy(sorted, b.entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Offset < sorted[i-1].Offset+b.ptrSize {
			return nil, errors.InvalidLayout(append(path, sorted[i].Name),
				fmt.Sprintf("slot at offset %d overlaps %s", sorted[i].Offset, sorted[i-1].Name))
		}
	}

	entries := make([]Entry, len(b.entries))
	copy(entries, b.entries)

	t := &Table{
		name:    b.name,
		size:    b.size,
		entries: entries,
	}
	t.ambiguities = t.findAmbiguities()
	return t, nil
}

// Table is the immutable slot table of one concrete type.
type Table struct {
	name        string
	entries     []Entry
	ambiguities []Ambiguity
	size        uintptr
}

// Name returns the concrete type name the table was built for.
func (t *Table) Name() string { return t.name }

// Size returns the header size in bytes.
func (t *Table) Size() uintptr { return t.size }

// Len returns the number of slots.
func (t *Table) Len() int { return len(t.entries) }

// Entry returns slot i in declaration order.
func (t *Table) Entry(i int) Entry { return t.entries[i] }

// Entries returns a copy of the slots in declaration order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Lookup returns the header offset of the first slot, in declaration order,
// whose interface inherits iid.
func (t *Table) Lookup(iid comruntime.GUID) (uintptr, bool) {
	for i := range t.entries {
		if t.entries[i].satisfies(iid) {
			return t.entries[i].Offset, true
		}
	}
	return 0, false
}

// Index is Lookup returning the slot index instead of its offset.
func (t *Table) Index(iid comruntime.GUID) (int, bool) {
	for i := range t.entries {
		if t.entries[i].satisfies(iid) {
			return i, true
		}
	}
	return -1, false
}

// Ambiguities returns identities, other than IUnknown, satisfied by more
// than one slot.
func (t *Table) Ambiguities() []Ambiguity {
	out := make([]Ambiguity, len(t.ambiguities))
	copy(out, t.ambiguities)
	return out
}

func (t *Table) findAmbiguities() []Ambiguity {
	var candidates []comruntime.GUID
	seen := make(map[comruntime.GUID]bool)
	add := func(iid comruntime.GUID) {
		if iid == comruntime.IIDUnknown || seen[iid] {
			return
		}
		seen[iid] = true
		candidates = append(candidates, iid)
	}
	for _, e := range t.entries {
		add(e.IID)
		for _, a := range e.Ancestors {
			add(a)
		}
	}

	var out []Ambiguity
	for _, iid := range candidates {
		var names []string
		for _, e := range t.entries {
			if e.satisfies(iid) {
				names = append(names, e.Name)
			}
		}
		if len(names) > 1 {
			out = append(out, Ambiguity{IID: iid, Winner: names[0], Candidates: names})
		}
	}
	return out
}
