package class

// EventType identifies an instance lifecycle event.
type EventType int

const (
	EventCreated EventType = iota
	EventAcquired
	EventReleased
	EventDestroyed
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventAcquired:
		return "acquired"
	case EventReleased:
		return "released"
	case EventDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Event describes a change to one instance's reference count.
type Event struct {
	Class string
	// Object is the address of the instance's allocation, for correlation.
	Object uintptr
	Type   EventType
	// Refs is the count after the change.
	Refs uint32
}

// Observer is called synchronously on the goroutine that caused the event.
// It must not call back into the instance.
type Observer func(Event)

// Dropper is implemented by data types that release resources when their
// instance is destroyed.
type Dropper interface {
	Drop()
}
