package gen

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/header"
	"github.com/wippyai/com-runtime/layout"
)

// Info is the C layout of a type.
type Info struct {
	// FieldOffs maps named fields, including the members of anonymous
	// structs and unions, to their byte offsets.
	FieldOffs map[string]uintptr
	Size      uintptr
	Align     uintptr
	// Vptr reports whether the record starts with its own dispatch-table
	// pointer.
	Vptr bool
}

// Calculator computes C record layouts for a parsed header.
type Calculator struct {
	idx    *index
	cache  map[*header.Record]Info
	active map[*header.Record]bool
	target Target
}

// NewCalculator returns a calculator for the records of ns laid out for
// target. A zero target means the host.
func NewCalculator(ns *header.Namespace, target Target) *Calculator {
	return newCalculator(newIndex(ns), target.orHost())
}

func newCalculator(idx *index, target Target) *Calculator {
	return &Calculator{
		idx:    idx,
		target: target,
		cache:  make(map[*header.Record]Info),
		active: make(map[*header.Record]bool),
	}
}

// Calculate returns the size and alignment of t.
func (c *Calculator) Calculate(t header.Type) (Info, error) {
	switch t.Kind {
	case header.KindVoid:
		return Info{Size: 0, Align: 1}, nil
	case header.KindPointer, header.KindReference:
		ps := uintptr(c.target.PointerSize)
		return Info{Size: ps, Align: ps}, nil
	case header.KindRecord:
		r, ok := c.idx.records[t.Name]
		if !ok {
			return Info{}, errors.NotFound(errors.PhaseEmit, []string{t.Name}, "record definition")
		}
		return c.Record(r)
	case header.KindUnnamedRecord:
		return c.Record(t.Record)
	case header.KindTypedef:
		if isTargetTypedef(t.Name) {
			ps := uintptr(c.target.PointerSize)
			return Info{Size: ps, Align: ps}, nil
		}
		next, ok := c.idx.typedefs[t.Name]
		if !ok {
			return Info{}, errors.NotFound(errors.PhaseEmit, []string{t.Name}, "typedef")
		}
		return c.Calculate(next)
	case header.KindArray:
		elem, err := c.Calculate(*t.Elem)
		if err != nil {
			return Info{}, err
		}
		return Info{Size: elem.Size * uintptr(t.Size), Align: elem.Align}, nil
	}

	w, ok := t.WithLong(c.target.LongSize).Primitive()
	if !ok {
		return Info{}, errors.Unsupported(errors.PhaseEmit, "no layout for "+t.String())
	}
	return primitiveInfo(w), nil
}

func primitiveInfo(w wit.Type) Info {
	switch w.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	default:
		return Info{Size: 0, Align: 1}
	}
}

// Record returns the layout of r: dispatch-table pointer, bases in order,
// then fields. Unions overlay every field at offset zero.
func (c *Calculator) Record(r *header.Record) (Info, error) {
	if cached, ok := c.cache[r]; ok {
		return cached, nil
	}
	if c.active[r] {
		return Info{}, errors.New(errors.PhaseEmit, errors.KindInvalidLayout).
			Path(r.Name).
			At(r.Loc).
			Detail("record contains itself").
			Build()
	}
	c.active[r] = true
	defer delete(c.active, r)

	info := Info{FieldOffs: make(map[string]uintptr), Align: 1}
	var offset uintptr

	if c.ownsVptr(r) {
		ps := uintptr(c.target.PointerSize)
		info.Vptr = true
		info.Align = ps
		offset = ps
	}

	for _, name := range r.Bases {
		base, ok := c.idx.records[name]
		if !ok {
			return Info{}, errors.NotFound(errors.PhaseEmit, []string{r.Name, name}, "base record")
		}
		bi, err := c.Record(base)
		if err != nil {
			return Info{}, err
		}
		if len(base.Fields) == 0 && !c.polymorphic(base) {
			// Empty base optimization.
			continue
		}
		offset = layout.AlignTo(offset, bi.Align)
		for f, off := range bi.FieldOffs {
			info.FieldOffs[f] = offset + off
		}
		info.Align = max(info.Align, bi.Align)
		offset += bi.Size
	}

	for _, f := range r.Fields {
		fi, err := c.Calculate(f.Type)
		if err != nil {
			return Info{}, err
		}
		if r.Kind == header.Union {
			offset = 0
		} else {
			offset = layout.AlignTo(offset, fi.Align)
		}
		if f.Name == "" {
			for name, off := range fi.FieldOffs {
				info.FieldOffs[name] = offset + off
			}
		} else {
			info.FieldOffs[f.Name] = offset
		}
		info.Align = max(info.Align, fi.Align)

		end := offset + fi.Size
		if r.Kind == header.Union {
			info.Size = max(info.Size, end)
		} else {
			offset = end
		}
	}
	if r.Kind != header.Union {
		info.Size = offset
	}

	info.Size = layout.AlignTo(info.Size, info.Align)
	if info.Size == 0 {
		// C++ gives every complete object a distinct address.
		info.Size = 1
	}

	c.cache[r] = info
	return info, nil
}

// polymorphic reports whether r or any of its bases declares a virtual
// method.
func (c *Calculator) polymorphic(r *header.Record) bool {
	if len(r.VirtualMethods) > 0 {
		return true
	}
	for _, name := range r.Bases {
		if b, ok := c.idx.records[name]; ok && c.polymorphic(b) {
			return true
		}
	}
	return false
}

// ownsVptr reports whether r needs a dispatch-table pointer that its
// primary base does not already provide.
func (c *Calculator) ownsVptr(r *header.Record) bool {
	if !c.polymorphic(r) {
		return false
	}
	if len(r.Bases) == 0 {
		return true
	}
	first, ok := c.idx.records[r.Bases[0]]
	return !ok || !c.polymorphic(first)
}

func isTargetTypedef(name string) bool {
	switch name {
	case "size_t", "ptrdiff_t", "intptr_t", "uintptr_t":
		return true
	}
	return false
}
