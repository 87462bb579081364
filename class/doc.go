// Package class defines Go types whose instances are foreign objects.
//
// A class is a Go data type C plus an ordered list of interfaces it
// implements. Each instance lives in one allocation holding a shared
// reference count, a composite header with one dispatch-table slot per
// interface, and the data itself:
//
//	+---------+------------------------+-----------+
//	| control |  header H              |  data C   |
//	|  refs   |  IPlugin | IEditor |.. |           |
//	+---------+------------------------+-----------+
//
// An interface pointer is the address of its slot. Dispatch-table functions
// recover the data by subtracting the slot's offset and adding the data's,
// so one allocation answers to every interface it implements with plain
// pointer arithmetic.
//
// # Defining a Class
//
// The header type is declared with one field per interface, normally by
// generated code:
//
//	type pluginHeader struct {
//		IPlugin IPlugin
//		IEditor IEditor
//	}
//
//	var pluginClass = class.MustDefine[Plugin, pluginHeader](
//		class.Implement[IPlugin](unsafe.Offsetof(pluginHeader{}.IPlugin), NewIPluginVtbl[Plugin]),
//		class.Implement[IEditor](unsafe.Offsetof(pluginHeader{}.IEditor), NewIEditorVtbl[Plugin]),
//	)
//
// Table constructors fill each entry with Resolver.Export, which turns a Go
// func into a C-ABI entry point. Dispatch tables are built once per class
// and pinned for its lifetime; each block stays pinned until it is
// destroyed. The slot order is the lookup order: when two slots both
// satisfy a requested identity, the first declared wins (see package layout).
//
// # Instances
//
//	w := pluginClass.New(Plugin{})
//	defer w.Release()
//
//	ref, ok := class.AsRef[IEditor](w) // borrowed, count unchanged
//	ptr, ok := class.ToPtr[IPlugin](w) // owned, count incremented
//
// The instance is destroyed when the count drops from one to zero, whether
// that happens through a Wrapper, a Ptr or a foreign caller invoking
// Release through the dispatch table. Destruction calls Drop if *C
// implements Dropper and happens exactly once.
//
// # Thread Safety
//
// The reference count is atomic and the header is immutable, so interface
// pointers may be used from several goroutines. Access to the data itself
// is the class author's responsibility.
package class
