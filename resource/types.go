package resource

import (
	comruntime "github.com/wippyai/com-runtime"
)

// Handle is an opaque reference to an object in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType identifies a handle lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventBorrowed
	EventBorrowReturned
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventBorrowed:
		return "borrowed"
	case EventBorrowReturned:
		return "borrow_returned"
	default:
		return "unknown"
	}
}

// Event represents a handle lifecycle event. Refs is the object's count
// after the release for EventDropped and zero otherwise.
type Event struct {
	Object *comruntime.IUnknown
	IID    comruntime.GUID
	Handle Handle
	Refs   uint32
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Subscription identifies one Subscribe call.
type Subscription uint64

// Backend provides the underlying storage for handles. It never touches
// reference counts; the Table owns that.
type Backend interface {
	// Create stores an object and returns a handle.
	Create(e Entry) (Handle, error)

	// Get retrieves the entry for a handle.
	Get(handle Handle) (Entry, bool)

	// Remove frees a handle and returns its entry. It fails if the handle
	// is invalid or has outstanding borrows.
	Remove(handle Handle) (Entry, error)

	// Borrow increments the borrow count for a handle.
	Borrow(handle Handle) (Entry, bool)

	// ReturnBorrow decrements the borrow count for a handle.
	ReturnBorrow(handle Handle) bool

	// Drain frees every handle and returns the entries that were live.
	Drain() []Entry
}

// Entry is what a handle refers to: the object and the interface it was
// stored under.
type Entry struct {
	Object *comruntime.IUnknown
	// Inherits reports the interfaces the stored pointer can be viewed as
	// without dispatch. Nil means only IID itself and IUnknown.
	Inherits func(comruntime.GUID) bool
	IID      comruntime.GUID
}

// Satisfies reports whether the stored pointer is usable as iid directly.
func (e Entry) Satisfies(iid comruntime.GUID) bool {
	if iid == e.IID || iid == comruntime.IIDUnknown {
		return true
	}
	return e.Inherits != nil && e.Inherits(iid)
}
