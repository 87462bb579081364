package comruntime

import "unsafe"

// Ptr is an owning interface pointer: it holds one unit of the object's
// reference count and gives it back on Release.
//
// Use PtrFromRaw for pointers received as return values or out parameters,
// AsRaw to pass the pointer as an argument, and IntoRaw to return it to a
// caller.
type Ptr[I Interface] struct {
	raw *I
}

// PtrFromRaw takes ownership of a pointer whose count the callee already
// incremented on the caller's behalf. The count is not changed. It reports
// false for nil.
func PtrFromRaw[I Interface](raw unsafe.Pointer) (Ptr[I], bool) {
	if raw == nil {
		return Ptr[I]{}, false
	}
	return Ptr[I]{raw: (*I)(raw)}, true
}

// PtrFromRawUnchecked is PtrFromRaw for a pointer known to be non-nil.
func PtrFromRawUnchecked[I Interface](raw unsafe.Pointer) Ptr[I] {
	return Ptr[I]{raw: (*I)(raw)}
}

// IsNil reports whether p holds no pointer.
func (p Ptr[I]) IsNil() bool {
	return p.raw == nil
}

// Get returns the typed interface pointer for calling methods. The count is
// not changed.
func (p Ptr[I]) Get() *I {
	return p.raw
}

// AsRaw returns the raw pointer without changing the count. The result must
// not be used to build a second Ptr.
func (p Ptr[I]) AsRaw() unsafe.Pointer {
	return unsafe.Pointer(p.raw)
}

// IntoRaw gives up ownership: p is cleared and the held count unit moves to
// whoever receives the returned pointer.
func (p *Ptr[I]) IntoRaw() unsafe.Pointer {
	raw := unsafe.Pointer(p.raw)
	p.raw = nil
	return raw
}

// Release gives back the held count unit and clears p. It returns the
// resulting count, or 0 when p was already empty.
func (p *Ptr[I]) Release() uint32 {
	if p.raw == nil {
		return 0
	}
	n := AsUnknown(p.raw).Release()
	p.raw = nil
	return n
}

// Clone acquires another count unit for the same interface pointer.
func (p Ptr[I]) Clone() Ptr[I] {
	if p.raw != nil {
		AsUnknown(p.raw).AddRef()
	}
	return p
}

// AsRef borrows p. The Ref must not outlive p.
func (p Ptr[I]) AsRef() Ref[I] {
	return Ref[I]{raw: p.raw}
}

// Cast asks the object for interface J. On success the result owns a new
// count unit and p is untouched.
func Cast[J, I Interface](p Ptr[I]) (Ptr[J], bool) {
	if p.raw == nil {
		return Ptr[J]{}, false
	}
	return queryPtr[J](AsUnknown(p.raw))
}

// Upcast moves ownership of p to a pointer of an interface I is-a. No
// dispatch happens and the count is unchanged. It reports false, leaving p
// intact, when p is empty or I does not inherit from J.
func Upcast[J, I Interface](p *Ptr[I]) (Ptr[J], bool) {
	if p.IsNil() || !Implements[I, J]() {
		return Ptr[J]{}, false
	}
	return Ptr[J]{raw: (*J)(p.IntoRaw())}, true
}

func queryPtr[J Interface](u *IUnknown) (Ptr[J], bool) {
	obj, ok := u.QueryInterface(IIDOf[J]())
	if !ok {
		return Ptr[J]{}, false
	}
	return Ptr[J]{raw: (*J)(obj)}, true
}
