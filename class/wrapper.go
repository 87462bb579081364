package class

import (
	"unsafe"

	comruntime "github.com/wippyai/com-runtime"
)

// Wrapper is an owning handle to an instance, holding one count unit.
// The zero Wrapper holds nothing.
type Wrapper[C any] struct {
	cls  *Class[C]
	base unsafe.Pointer
}

// IsNil reports whether w holds no instance.
func (w Wrapper[C]) IsNil() bool {
	return w.base == nil
}

// Class returns the class of the instance.
func (w Wrapper[C]) Class() *Class[C] {
	return w.cls
}

// Data returns the instance data.
func (w Wrapper[C]) Data() *C {
	return (*C)(unsafe.Add(w.base, int(w.cls.dataOff)))
}

// Refs returns the current shared count. The value may be stale as soon as
// it is returned if other goroutines hold pointers to the instance.
func (w Wrapper[C]) Refs() uint32 {
	return (*control)(w.base).refs.Load()
}

// Clone acquires another count unit for the same instance.
func (w Wrapper[C]) Clone() Wrapper[C] {
	w.cls.addRef(w.base)
	return w
}

// Release gives back w's count unit and clears w. It returns the resulting
// count, or 0 when w was already empty.
func (w *Wrapper[C]) Release() uint32 {
	if w.base == nil {
		return 0
	}
	n := w.cls.release(w.base)
	w.base = nil
	return n
}

// Query is the identity cast: it returns an owned pointer for the first
// slot satisfying iid, or false when no slot does.
func (w Wrapper[C]) Query(iid comruntime.GUID) (unsafe.Pointer, bool) {
	return w.cls.query(w.base, iid)
}

// Lookup is Query without the count increment. The pointer is only valid
// while w is held.
func (w Wrapper[C]) Lookup(iid comruntime.GUID) (unsafe.Pointer, bool) {
	off, ok := w.cls.table.Lookup(iid)
	if !ok {
		return nil, false
	}
	return w.cls.slot(w.base, off), true
}

// AsRef borrows the instance as interface I. The count is unchanged and the
// Ref must not outlive w.
func AsRef[I comruntime.Interface, C any](w Wrapper[C]) (comruntime.Ref[I], bool) {
	p, ok := w.Lookup(comruntime.IIDOf[I]())
	if !ok {
		return comruntime.Ref[I]{}, false
	}
	return comruntime.RefFromRawUnchecked[I](p), true
}

// ToPtr returns an owning pointer to the instance as interface I. The count
// is incremented; the caller must eventually release the pointer.
func ToPtr[I comruntime.Interface, C any](w Wrapper[C]) (comruntime.Ptr[I], bool) {
	p, ok := w.Query(comruntime.IIDOf[I]())
	if !ok {
		return comruntime.Ptr[I]{}, false
	}
	return comruntime.PtrFromRawUnchecked[I](p), true
}

// Resolve recovers the instance data behind p. p must be a pointer of
// interface I produced by this class, as returned by AsRef, ToPtr or a
// QueryInterface for I; any other pointer is undefined behavior.
func Resolve[I comruntime.Interface, C any](c *Class[C], p *I) (*C, bool) {
	if p == nil {
		return nil, false
	}
	off, ok := c.table.Lookup(comruntime.IIDOf[I]())
	if !ok {
		return nil, false
	}
	r := Resolver[C]{cls: c, offset: off}
	return r.Data(unsafe.Pointer(p)), true
}

// Adopt moves the count unit held by p into a Wrapper and clears p. p must
// point at slot I of an instance of c.
func Adopt[I comruntime.Interface, C any](c *Class[C], p *comruntime.Ptr[I]) (Wrapper[C], bool) {
	off, ok := c.table.Lookup(comruntime.IIDOf[I]())
	if !ok || p.IsNil() {
		return Wrapper[C]{}, false
	}
	r := Resolver[C]{cls: c, offset: off}
	raw := p.IntoRaw()
	return Wrapper[C]{cls: c, base: r.Base(raw)}, true
}
