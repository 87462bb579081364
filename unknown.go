package comruntime

import "unsafe"

// HResult is the status word returned by QueryInterface slots.
type HResult int32

const (
	SOK          HResult = 0
	ENoInterface HResult = -0x7FFFBFFE // 0x80004002
	EPointer     HResult = -0x7FFFBFFD // 0x80004003
)

// Succeeded reports whether r is a success code.
func (r HResult) Succeeded() bool {
	return r >= 0
}

// IIDUnknown identifies IUnknown, the root of every interface.
var IIDUnknown = MustParseGUID("00000000-0000-0000-C000-000000000046")

// UnknownVtbl is the dispatch-table prefix every interface's table starts
// with. Every slot is the address of a C-ABI function receiving the
// interface pointer as its first argument.
type UnknownVtbl struct {
	QueryInterface uintptr
	AddRef         uintptr
	Release        uintptr
}

// Signatures of the UnknownVtbl entry points.
type (
	QueryInterfaceFunc = func(this unsafe.Pointer, iid *GUID, obj *unsafe.Pointer) HResult
	RefCountFunc       = func(this unsafe.Pointer) uint32
)

// Unknown is the capability contract every foreign object exposes.
type Unknown interface {
	// QueryInterface returns a pointer for the interface identified by iid
	// and increments the reference count, or reports false.
	QueryInterface(iid GUID) (unsafe.Pointer, bool)
	// AddRef increments the reference count and returns the result.
	AddRef() uint32
	// Release decrements the reference count and returns the result. The
	// object is destroyed when the result is zero.
	Release() uint32
}

// Interface is implemented by the value type of every foreign interface.
// The type must have the layout of a single pointer to its dispatch table,
// and both methods must not depend on the receiver's value.
//
// Inherits(iid) must be true for the interface's own IID and for every
// interface whose dispatch table is a prefix of this one's.
type Interface interface {
	IID() GUID
	Inherits(iid GUID) bool
}

// IUnknown is the layout every interface pointer points at.
type IUnknown struct {
	Vtbl *UnknownVtbl
}

var _ Unknown = (*IUnknown)(nil)

func (IUnknown) IID() GUID { return IIDUnknown }

func (IUnknown) Inherits(iid GUID) bool { return iid == IIDUnknown }

func (u *IUnknown) QueryInterface(iid GUID) (unsafe.Pointer, bool) {
	var obj unsafe.Pointer
	hr := Func[QueryInterfaceFunc](u.Vtbl.QueryInterface)(unsafe.Pointer(u), &iid, &obj)
	if !hr.Succeeded() || obj == nil {
		return nil, false
	}
	return obj, true
}

func (u *IUnknown) AddRef() uint32 {
	return Func[RefCountFunc](u.Vtbl.AddRef)(unsafe.Pointer(u))
}

func (u *IUnknown) Release() uint32 {
	return Func[RefCountFunc](u.Vtbl.Release)(unsafe.Pointer(u))
}

// AsUnknown reinterprets any interface pointer as an IUnknown pointer. This
// is valid for every interface because all dispatch tables start with
// UnknownVtbl.
func AsUnknown[I Interface](p *I) *IUnknown {
	return (*IUnknown)(unsafe.Pointer(p))
}

// Implements reports whether interface I is-a interface J.
func Implements[I, J Interface]() bool {
	var i I
	var j J
	return i.Inherits(j.IID())
}

// IIDOf returns the identifier of interface I.
func IIDOf[I Interface]() GUID {
	var i I
	return i.IID()
}
