package comruntime

import "unsafe"

// Ref is a borrowed interface pointer. It never touches the reference count
// and is only valid while whoever lent it keeps the object alive, typically
// for the duration of the call that received it.
type Ref[I Interface] struct {
	raw *I
}

// RefFromRaw borrows a pointer received as an incoming parameter. It reports
// false for nil.
func RefFromRaw[I Interface](raw unsafe.Pointer) (Ref[I], bool) {
	if raw == nil {
		return Ref[I]{}, false
	}
	return Ref[I]{raw: (*I)(raw)}, true
}

// RefFromRawUnchecked is RefFromRaw for a pointer known to be non-nil.
func RefFromRawUnchecked[I Interface](raw unsafe.Pointer) Ref[I] {
	return Ref[I]{raw: (*I)(raw)}
}

// IsNil reports whether r holds no pointer.
func (r Ref[I]) IsNil() bool {
	return r.raw == nil
}

// Get returns the typed interface pointer for calling methods.
func (r Ref[I]) Get() *I {
	return r.raw
}

// AsRaw returns the raw pointer for passing as an argument.
func (r Ref[I]) AsRaw() unsafe.Pointer {
	return unsafe.Pointer(r.raw)
}

// ToPtr upgrades the borrow to an owning pointer by acquiring a count unit.
// Use it when the pointer has to outlive the current call.
func (r Ref[I]) ToPtr() Ptr[I] {
	if r.raw != nil {
		AsUnknown(r.raw).AddRef()
	}
	return Ptr[I]{raw: r.raw}
}

// CastRef asks the object behind r for interface J. The result owns a new
// count unit.
func CastRef[J, I Interface](r Ref[I]) (Ptr[J], bool) {
	if r.raw == nil {
		return Ptr[J]{}, false
	}
	return queryPtr[J](AsUnknown(r.raw))
}

// UpcastRef reinterprets r as a borrow of an interface I is-a. It reports
// false for an empty r.
func UpcastRef[J, I Interface](r Ref[I]) (Ref[J], bool) {
	if r.raw == nil || !Implements[I, J]() {
		return Ref[J]{}, false
	}
	return Ref[J]{raw: (*J)(unsafe.Pointer(r.raw))}, true
}
