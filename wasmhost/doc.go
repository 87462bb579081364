// Package wasmhost exposes foreign objects to WebAssembly guests running on
// wazero.
//
// Guests cannot hold native interface pointers, so a Host keeps them in a
// resource.Table and hands out integer handles. The host module (named
// "com" by default) exports:
//
//	query_interface(handle i32, iid_lo i64, iid_hi i64) -> i32
//	add_ref(handle i32) -> i32
//	release(handle i32) -> i32
//
// query_interface and add_ref return a new handle, or 0 on failure. The IID
// is passed as the two little-endian halves returned by GUID.Halves.
// release returns the object's resulting count, or -1 for an invalid handle.
//
// Usage:
//
//	host := wasmhost.New(wasmhost.DefaultConfig())
//	defer host.Close(ctx)
//
//	if _, err := host.Instantiate(ctx, rt); err != nil {
//		return err
//	}
//	h, err := wasmhost.Export(host, &plugin)
package wasmhost
