package resource

import (
	"sync"
	"unsafe"

	comruntime "github.com/wippyai/com-runtime"
	"github.com/wippyai/com-runtime/errors"
)

// Table maps handles to owned interface pointers and releases them when
// handles are dropped.
type Table struct {
	backend   *LocalBackend
	observers []subscriber
	lastSub   Subscription
	obsMu     sync.RWMutex
}

type subscriber struct {
	obs Observer
	id  Subscription
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert moves the count unit held by p into a new handle and clears p. On
// error p is left untouched.
func Insert[I comruntime.Interface](t *Table, p *comruntime.Ptr[I]) (Handle, error) {
	if p.IsNil() {
		return 0, errors.InvalidInput(errors.PhaseHost, "cannot insert a nil interface pointer", nil)
	}
	var i I
	h, err := t.insert(Entry{
		Object:   comruntime.AsUnknown(p.Get()),
		IID:      i.IID(),
		Inherits: i.Inherits,
	})
	if err != nil {
		return 0, err
	}
	p.IntoRaw()
	return h, nil
}

// InsertRaw stores a raw interface pointer for iid. The table takes over the
// count unit the caller holds. On error the caller still owns it.
func (t *Table) InsertRaw(iid comruntime.GUID, raw unsafe.Pointer) (Handle, error) {
	if raw == nil {
		return 0, errors.InvalidInput(errors.PhaseHost, "cannot insert a nil interface pointer", nil)
	}
	return t.insert(Entry{Object: (*comruntime.IUnknown)(raw), IID: iid})
}

func (t *Table) insert(e Entry) (Handle, error) {
	h, err := t.backend.Create(e)
	if err != nil {
		return 0, err
	}
	t.notify(Event{Type: EventCreated, Handle: h, IID: e.IID, Object: e.Object})
	return h, nil
}

// Get retrieves the entry for a handle. The object stays owned by the table.
func (t *Table) Get(handle Handle) (Entry, bool) {
	return t.backend.Get(handle)
}

// Lookup borrows the object behind handle as interface I. It fails if the
// handle is invalid or the stored pointer cannot be viewed as I without
// dispatch.
func Lookup[I comruntime.Interface](t *Table, handle Handle) (comruntime.Ref[I], bool) {
	e, ok := t.backend.Get(handle)
	if !ok || !e.Satisfies(comruntime.IIDOf[I]()) {
		return comruntime.Ref[I]{}, false
	}
	return comruntime.RefFromRawUnchecked[I](unsafe.Pointer(e.Object)), true
}

// Clone acquires another count unit for the object behind handle and
// stores it under a new handle with the same interface.
func (t *Table) Clone(handle Handle) (Handle, error) {
	e, ok := t.backend.Get(handle)
	if !ok {
		return 0, errors.InvalidHandle(errors.PhaseHost, uint32(handle))
	}
	e.Object.AddRef()
	h, err := t.insert(e)
	if err != nil {
		e.Object.Release()
		return 0, err
	}
	return h, nil
}

// Borrow pins handle until ReturnBorrow and returns its object.
func (t *Table) Borrow(handle Handle) (*comruntime.IUnknown, bool) {
	e, ok := t.backend.Borrow(handle)
	if !ok {
		return nil, false
	}
	t.notify(Event{Type: EventBorrowed, Handle: handle, IID: e.IID, Object: e.Object})
	return e.Object, true
}

// ReturnBorrow releases one pin taken by Borrow.
func (t *Table) ReturnBorrow(handle Handle) bool {
	if !t.backend.ReturnBorrow(handle) {
		return false
	}
	t.notify(Event{Type: EventBorrowReturned, Handle: handle})
	return true
}

// Drop frees handle and gives its count unit back. It returns the object's
// resulting count.
func (t *Table) Drop(handle Handle) (uint32, error) {
	e, err := t.backend.Remove(handle)
	if err != nil {
		return 0, err
	}
	n := e.Object.Release()
	t.notify(Event{Type: EventDropped, Handle: handle, IID: e.IID, Object: e.Object, Refs: n})
	return n, nil
}

// Subscribe adds an observer for lifecycle events. The same observer may
// be subscribed more than once; each call gets its own Subscription.
func (t *Table) Subscribe(o Observer) Subscription {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.lastSub++
	t.observers = append(t.observers, subscriber{obs: o, id: t.lastSub})
	return t.lastSub
}

// Unsubscribe removes the observer registered under s. It reports false if
// s is not subscribed.
func (t *Table) Unsubscribe(s Subscription) bool {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, sub := range t.observers {
		if sub.id == s {
			t.observers = append(t.observers[:i:i], t.observers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over all live handles. fn must not call back into t.
func (t *Table) Each(fn func(Handle, Entry) bool) {
	t.backend.Each(fn)
}

// Close releases every object still held and stops accepting inserts.
// Outstanding borrows are ignored. Close is idempotent.
func (t *Table) Close() error {
	for _, e := range t.backend.Drain() {
		e.Object.Release()
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, sub := range t.observers {
		sub.obs.OnResourceEvent(e)
	}
}
