package class

import (
	"unsafe"

	comruntime "github.com/wippyai/com-runtime"
)

// Resolver turns the this pointer a dispatch-table function receives back
// into the instance it belongs to. Each slot of a class gets its own
// Resolver carrying that slot's header offset.
type Resolver[C any] struct {
	cls    *Class[C]
	errs   *[]error
	offset uintptr
}

// Offset returns the slot's byte offset within the composite header.
func (r Resolver[C]) Offset() uintptr {
	return r.offset
}

// Base returns the allocation address for a pointer to this slot.
func (r Resolver[C]) Base(this unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(this, -int(r.cls.headerOff+r.offset))
}

// Data returns the instance data for a pointer to this slot.
func (r Resolver[C]) Data(this unsafe.Pointer) *C {
	return (*C)(unsafe.Add(r.Base(this), int(r.cls.dataOff)))
}

// Export returns the C-ABI entry point for fn, a dispatch-table function
// whose first argument is the interface pointer. Signatures without a
// callback form make Define fail; the slot is left zero.
func (r Resolver[C]) Export(fn any) uintptr {
	addr, err := comruntime.NewCallback(fn)
	if err != nil {
		if r.errs == nil {
			panic(err)
		}
		*r.errs = append(*r.errs, err)
		return 0
	}
	return addr
}

// Unknown returns the IUnknown part of this slot's dispatch table. Every
// slot of a class shares one reference count.
func (r Resolver[C]) Unknown() comruntime.UnknownVtbl {
	c := r.cls
	var qi comruntime.QueryInterfaceFunc = func(this unsafe.Pointer, iid *comruntime.GUID, obj *unsafe.Pointer) comruntime.HResult {
		if obj == nil {
			return comruntime.EPointer
		}
		if iid == nil {
			*obj = nil
			return comruntime.EPointer
		}
		p, ok := c.query(r.Base(this), *iid)
		if !ok {
			*obj = nil
			return comruntime.ENoInterface
		}
		*obj = p
		return comruntime.SOK
	}
	var addRef comruntime.RefCountFunc = func(this unsafe.Pointer) uint32 {
		return c.addRef(r.Base(this))
	}
	var release comruntime.RefCountFunc = func(this unsafe.Pointer) uint32 {
		return c.release(r.Base(this))
	}
	return comruntime.UnknownVtbl{
		QueryInterface: r.Export(qi),
		AddRef:         r.Export(addRef),
		Release:        r.Export(release),
	}
}
