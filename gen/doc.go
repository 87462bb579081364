// Package gen turns a parsed header into Go bindings for the class and
// comruntime packages.
//
// Build classifies records: a record whose first-base chain reaches a root
// beginning with QueryInterface, AddRef and Release is an interface. A root
// without an identity, or with the IUnknown identity, maps onto
// comruntime.IUnknown; a framework root with its own identity is emitted
// like any other interface. Every other record becomes a plain Go struct.
//
// For each interface I, Emit writes:
//
//	IIDI             the identity, parsed from the header
//	IVtbl            the dispatch table of entry-point addresses, base first
//	I                the pointer target, a single *IVtbl field
//	IID/Inherits     the comruntime.Interface contract
//	Ancestors        base identities, nearest first, for ambiguity reports
//	AsBase           upcasts to every ancestor
//	I.Method         call wrappers for every slot
//	IMethods         the Go interface class data implements
//	NewIVtbl[C, P]   a table constructor for class.Implement
//
// Target selects pointer and long widths. The Calculator reports C record
// sizes and field offsets for that target; dispatch-table slot offsets come
// from Interface.Slots.
package gen
