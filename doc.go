// Package comruntime implements the binary object model used by COM-style
// plugin ABIs: objects reached only through pointers to dispatch tables,
// identified by 16-byte GUIDs and kept alive by a shared reference count.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	comruntime/          GUID, the IUnknown contract, Ptr and Ref smart pointers
//	├── layout/          Composite header slot tables and identity lookup
//	├── class/           Go-implemented objects: allocation, counting, dispatch
//	├── resource/        Handle table of owned interface pointers
//	├── wasmhost/        Exposes the handle table to WebAssembly guests
//	├── header/          Parser for C++ interface headers
//	├── gen/             Binding generator from parsed headers
//	├── errors/          Structured error types for debugging
//	└── cmd/comgen/      Command-line front end for gen
//
// # Consuming Foreign Objects
//
// A pointer received from foreign code is wrapped according to who owns the
// count unit:
//
//	p, ok := comruntime.PtrFromRaw[IPlugin](raw) // callee already AddRef'd
//	defer p.Release()
//
//	r, ok := comruntime.RefFromRaw[IHost](arg)   // borrowed for this call
//
// Cast asks the object for another interface through QueryInterface; Upcast
// reuses the same pointer when the interface statically inherits the target.
//
// Every dispatch-table entry is the address of a C-ABI function. Func binds
// one to a Go signature for calling; NewCallback goes the other way.
//
// # Implementing Objects
//
// Go types become foreign objects through package class:
//
//	type header struct {
//		Plugin IPlugin
//		Edit   IEditController
//	}
//
//	var pluginClass = class.MustDefine[Plugin, header](
//		class.Implement[IPlugin](unsafe.Offsetof(header{}.Plugin), NewIPluginVtbl[Plugin, *Plugin]),
//		class.Implement[IEditController](unsafe.Offsetof(header{}.Edit), NewIEditControllerVtbl[Plugin, *Plugin]),
//	)
//
//	w := pluginClass.New(Plugin{})
//	p, _ := class.ToPtr[IPlugin](w)
//	w.Release()
//	return p.IntoRaw()
//
// The interface types and dispatch-table constructors are normally produced
// by cmd/comgen from the SDK's C++ headers.
package comruntime
