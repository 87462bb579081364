// Package resource maps small integer handles to owned interface pointers.
//
// Callers that cannot hold native addresses, such as WebAssembly guests,
// refer to foreign objects through handles. Each live handle owns exactly
// one unit of its object's reference count; dropping the handle gives that
// unit back.
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	// Ownership of p moves into the table
//	h, err := resource.Insert(table, &p)
//
//	// Borrowed view, valid while the handle is live
//	ref, ok := resource.Lookup[IPlugin](table, h)
//
//	// Give the count unit back
//	remaining, err := table.Drop(h)
//
// Handle 0 is never issued. Freed handles are reused.
//
// # Borrows
//
// Borrow pins a handle so that Drop refuses to release it until the matching
// ReturnBorrow:
//
//	obj, ok := table.Borrow(h)
//	defer table.ReturnBorrow(h)
//
// # Observers
//
// Register observers to track handle lifecycle events:
//
//	sub := table.Subscribe(observer)
//	defer table.Unsubscribe(sub)
//
// # Closing
//
// Close releases every object still held and makes further inserts fail.
package resource
