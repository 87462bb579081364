// Package comtest provides a small interface family and a class
// implementing it, shared by tests across the module.
//
//	IUnknown <- IBase <- IA
//	IUnknown <- IBase <- IC
//	IUnknown <- IB
//	IUnknown <- IUnrelated
package comtest

import (
	"sync/atomic"
	"unsafe"

	comruntime "github.com/wippyai/com-runtime"
	"github.com/wippyai/com-runtime/class"
)

var (
	IIDBase      = comruntime.MustParseGUID("8a4c6f10-2b3d-4e5f-9a1b-0c2d3e4f5a01")
	IIDA         = comruntime.MustParseGUID("8a4c6f10-2b3d-4e5f-9a1b-0c2d3e4f5a0a")
	IIDB         = comruntime.MustParseGUID("8a4c6f10-2b3d-4e5f-9a1b-0c2d3e4f5a0b")
	IIDC         = comruntime.MustParseGUID("8a4c6f10-2b3d-4e5f-9a1b-0c2d3e4f5a0c")
	IIDUnrelated = comruntime.MustParseGUID("f00dface-0000-4000-8000-000000000000")
)

// PingValue is what Object.Ping returns.
const PingValue = 7

type IBaseVtbl struct {
	comruntime.UnknownVtbl
	Ping uintptr
}

type IBase struct {
	Vtbl *IBaseVtbl
}

func (IBase) IID() comruntime.GUID { return IIDBase }

func (IBase) Inherits(iid comruntime.GUID) bool {
	return iid == IIDBase || iid == comruntime.IIDUnknown
}

func (IBase) Ancestors() []comruntime.GUID {
	return []comruntime.GUID{comruntime.IIDUnknown}
}

func (i *IBase) Ping() int32 {
	return comruntime.Func[func(unsafe.Pointer) int32](i.Vtbl.Ping)(unsafe.Pointer(i))
}

func (i *IBase) QueryInterface(iid comruntime.GUID) (unsafe.Pointer, bool) {
	return comruntime.AsUnknown(i).QueryInterface(iid)
}
func (i *IBase) AddRef() uint32  { return comruntime.AsUnknown(i).AddRef() }
func (i *IBase) Release() uint32 { return comruntime.AsUnknown(i).Release() }

type IAVtbl struct {
	IBaseVtbl
	Add uintptr
}

type IA struct {
	Vtbl *IAVtbl
}

func (IA) IID() comruntime.GUID { return IIDA }

func (IA) Inherits(iid comruntime.GUID) bool {
	return iid == IIDA || IBase{}.Inherits(iid)
}

func (IA) Ancestors() []comruntime.GUID {
	return []comruntime.GUID{IIDBase, comruntime.IIDUnknown}
}

func (i *IA) AsIBase() *IBase { return (*IBase)(unsafe.Pointer(i)) }

func (i *IA) Ping() int32 { return i.AsIBase().Ping() }

func (i *IA) Add(x int32) int32 {
	return comruntime.Func[func(unsafe.Pointer, int32) int32](i.Vtbl.Add)(unsafe.Pointer(i), x)
}

func (i *IA) QueryInterface(iid comruntime.GUID) (unsafe.Pointer, bool) {
	return comruntime.AsUnknown(i).QueryInterface(iid)
}
func (i *IA) AddRef() uint32  { return comruntime.AsUnknown(i).AddRef() }
func (i *IA) Release() uint32 { return comruntime.AsUnknown(i).Release() }

type ICVtbl struct {
	IBaseVtbl
	Scale uintptr
}

type IC struct {
	Vtbl *ICVtbl
}

func (IC) IID() comruntime.GUID { return IIDC }

func (IC) Inherits(iid comruntime.GUID) bool {
	return iid == IIDC || IBase{}.Inherits(iid)
}

func (IC) Ancestors() []comruntime.GUID {
	return []comruntime.GUID{IIDBase, comruntime.IIDUnknown}
}

func (i *IC) Scale(factor int32) int32 {
	return comruntime.Func[func(unsafe.Pointer, int32) int32](i.Vtbl.Scale)(unsafe.Pointer(i), factor)
}

type IBVtbl struct {
	comruntime.UnknownVtbl
	Value uintptr
}

type IB struct {
	Vtbl *IBVtbl
}

func (IB) IID() comruntime.GUID { return IIDB }

func (IB) Inherits(iid comruntime.GUID) bool {
	return iid == IIDB || iid == comruntime.IIDUnknown
}

func (i *IB) Value() int32 {
	return comruntime.Func[func(unsafe.Pointer) int32](i.Vtbl.Value)(unsafe.Pointer(i))
}

func (i *IB) QueryInterface(iid comruntime.GUID) (unsafe.Pointer, bool) {
	return comruntime.AsUnknown(i).QueryInterface(iid)
}
func (i *IB) AddRef() uint32  { return comruntime.AsUnknown(i).AddRef() }
func (i *IB) Release() uint32 { return comruntime.AsUnknown(i).Release() }

// IUnrelated is implemented by nothing in this package.
type IUnrelated struct {
	Vtbl *comruntime.UnknownVtbl
}

func (IUnrelated) IID() comruntime.GUID { return IIDUnrelated }

func (IUnrelated) Inherits(iid comruntime.GUID) bool {
	return iid == IIDUnrelated || iid == comruntime.IIDUnknown
}

type BaseMethods interface {
	Ping() int32
}

type AMethods interface {
	BaseMethods
	Add(x int32) int32
}

type BMethods interface {
	Value() int32
}

type CMethods interface {
	BaseMethods
	Scale(factor int32) int32
}

func fillIBase[C any, P interface {
	*C
	BaseMethods
}](v *IBaseVtbl, r class.Resolver[C]) {
	v.UnknownVtbl = r.Unknown()
	v.Ping = r.Export(func(this unsafe.Pointer) int32 {
		return P(r.Data(this)).Ping()
	})
}

func NewIAVtbl[C any, P interface {
	*C
	AMethods
}](r class.Resolver[C]) *IAVtbl {
	v := &IAVtbl{}
	fillIBase[C, P](&v.IBaseVtbl, r)
	v.Add = r.Export(func(this unsafe.Pointer, x int32) int32 {
		return P(r.Data(this)).Add(x)
	})
	return v
}

func NewICVtbl[C any, P interface {
	*C
	CMethods
}](r class.Resolver[C]) *ICVtbl {
	v := &ICVtbl{}
	fillIBase[C, P](&v.IBaseVtbl, r)
	v.Scale = r.Export(func(this unsafe.Pointer, factor int32) int32 {
		return P(r.Data(this)).Scale(factor)
	})
	return v
}

func NewIBVtbl[C any, P interface {
	*C
	BMethods
}](r class.Resolver[C]) *IBVtbl {
	return &IBVtbl{
		UnknownVtbl: r.Unknown(),
		Value: r.Export(func(this unsafe.Pointer) int32 {
			return P(r.Data(this)).Value()
		}),
	}
}

// Object implements IA, IB and IC.
type Object struct {
	Drops *atomic.Int32
	Total int32
}

func (o *Object) Ping() int32 { return PingValue }

func (o *Object) Add(x int32) int32 {
	o.Total += x
	return o.Total
}

func (o *Object) Value() int32 { return o.Total }

func (o *Object) Scale(factor int32) int32 {
	o.Total *= factor
	return o.Total
}

func (o *Object) Drop() {
	if o.Drops != nil {
		o.Drops.Add(1)
	}
}

// Header is the composite header for A then B.
type Header struct {
	A IA
	B IB
}

// NewClass defines Object with slots A then B.
func NewClass() *class.Class[Object] {
	return class.MustDefine[Object, Header](
		class.Implement[IA](unsafe.Offsetof(Header{}.A), NewIAVtbl[Object, *Object]),
		class.Implement[IB](unsafe.Offsetof(Header{}.B), NewIBVtbl[Object, *Object]),
	)
}

// SiblingHeader has two slots that both inherit IBase.
type SiblingHeader struct {
	C IC
	A IA
}

// NewSiblingClass defines Object with slots C then A.
func NewSiblingClass() *class.Class[Object] {
	return class.MustDefine[Object, SiblingHeader](
		class.Implement[IC](unsafe.Offsetof(SiblingHeader{}.C), NewICVtbl[Object, *Object]),
		class.Implement[IA](unsafe.Offsetof(SiblingHeader{}.A), NewIAVtbl[Object, *Object]),
	)
}

// GuestWasm is a WebAssembly module that imports the three host functions
// from module "com" and re-exports each under the same name:
//
//	(module
//	  (import "com" "query_interface" (func $qi (param i32 i64 i64) (result i32)))
//	  (import "com" "add_ref" (func $add_ref (param i32) (result i32)))
//	  (import "com" "release" (func $release (param i32) (result i32)))
//	  (func (export "query_interface") (param i32 i64 i64) (result i32)
//	    local.get 0 local.get 1 local.get 2 call $qi)
//	  (func (export "add_ref") (param i32) (result i32)
//	    local.get 0 call $add_ref)
//	  (func (export "release") (param i32) (result i32)
//	    local.get 0 call $release))
var GuestWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: 0 = (i32) -> i32, 1 = (i32, i64, i64) -> i32
	0x01, 0x0d, 0x02,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x03, 0x7f, 0x7e, 0x7e, 0x01, 0x7f,
	// import section
	0x02, 0x33, 0x03,
	0x03, 'c', 'o', 'm',
	0x0f, 'q', 'u', 'e', 'r', 'y', '_', 'i', 'n', 't', 'e', 'r', 'f', 'a', 'c', 'e',
	0x00, 0x01,
	0x03, 'c', 'o', 'm',
	0x07, 'a', 'd', 'd', '_', 'r', 'e', 'f',
	0x00, 0x00,
	0x03, 'c', 'o', 'm',
	0x07, 'r', 'e', 'l', 'e', 'a', 's', 'e',
	0x00, 0x00,
	// function section: funcs 3, 4, 5
	0x03, 0x04, 0x03, 0x01, 0x00, 0x00,
	// export section
	0x07, 0x27, 0x03,
	0x0f, 'q', 'u', 'e', 'r', 'y', '_', 'i', 'n', 't', 'e', 'r', 'f', 'a', 'c', 'e', 0x00, 0x03,
	0x07, 'a', 'd', 'd', '_', 'r', 'e', 'f', 0x00, 0x04,
	0x07, 'r', 'e', 'l', 'e', 'a', 's', 'e', 0x00, 0x05,
	// code section
	0x0a, 0x1a, 0x03,
	0x0a, 0x00, 0x20, 0x00, 0x20, 0x01, 0x20, 0x02, 0x10, 0x00, 0x0b,
	0x06, 0x00, 0x20, 0x00, 0x10, 0x01, 0x0b,
	0x06, 0x00, 0x20, 0x00, 0x10, 0x02, 0x0b,
}
