// Package layout computes and queries composite header layouts.
//
// A concrete type that implements several foreign interfaces carries one
// composite header: a struct with one dispatch-table slot per interface, in
// declaration order. Each slot is a single pointer, so a pointer to the slot
// is a valid interface pointer. The Table built here records the byte offset
// of every slot and answers identity lookups:
//
//	b := layout.NewBuilder("Plugin", unsafe.Sizeof(pluginHeader{}))
//	b.Add(layout.Entry{Name: "IPlugin", IID: iidPlugin, Inherits: IPlugin{}.Inherits,
//		Offset: unsafe.Offsetof(pluginHeader{}.IPlugin)})
//	b.Add(layout.Entry{Name: "IEditor", IID: iidEditor, Inherits: IEditor{}.Inherits,
//		Offset: unsafe.Offsetof(pluginHeader{}.IEditor)})
//	table, err := b.Build()
//
//	off, ok := table.Lookup(iid) // offset of the first slot satisfying iid
//
// # Lookup Policy
//
// Lookup scans slots in declaration order and returns the first whose
// interface inherits the requested identity. When two implemented interfaces
// both satisfy a common ancestor, the first declared one wins. Such cases
// are reported by Table.Ambiguities so a generator can flag them; the policy
// itself never changes.
//
// The table is immutable after Build and safe for concurrent use.
package layout
