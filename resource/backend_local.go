package resource

import (
	"sync"

	"github.com/wippyai/com-runtime/errors"
)

var (
	ErrClosed            = errors.New(errors.PhaseHost, errors.KindClosed).Detail("handle table closed").Build()
	ErrOutstandingBorrow = errors.New(errors.PhaseHost, errors.KindBorrowed).Detail("cannot drop handle with outstanding borrows").Build()
)

// LocalBackend is an in-memory handle store with borrow tracking.
type LocalBackend struct {
	entries  []slot
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type slot struct {
	entry       Entry
	borrowCount uint32
	valid       bool
}

var _ Backend = (*LocalBackend)(nil)

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]slot, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create stores an entry and returns a handle.
func (b *LocalBackend) Create(e Entry) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	s := slot{entry: e, valid: true}

	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = s
		return handle, nil
	}

	b.entries = append(b.entries, s)
	return Handle(len(b.entries)), nil
}

// lookup returns the live slot for handle. Callers hold mu.
func (b *LocalBackend) lookup(handle Handle) *slot {
	if handle == 0 {
		return nil
	}
	idx := int(handle - 1)
	if idx >= len(b.entries) {
		return nil
	}
	s := &b.entries[idx]
	if !s.valid {
		return nil
	}
	return s
}

// Get retrieves the entry for a handle.
func (b *LocalBackend) Get(handle Handle) (Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := b.lookup(handle)
	if s == nil {
		return Entry{}, false
	}
	return s.entry, true
}

// Remove frees a handle and returns its entry.
func (b *LocalBackend) Remove(handle Handle) (Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.lookup(handle)
	if s == nil {
		return Entry{}, errors.InvalidHandle(errors.PhaseHost, uint32(handle))
	}
	if s.borrowCount > 0 {
		return Entry{}, ErrOutstandingBorrow
	}

	e := s.entry
	*s = slot{}
	b.freeList = append(b.freeList, handle)
	return e, nil
}

// Borrow increments the borrow count for a handle.
func (b *LocalBackend) Borrow(handle Handle) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.lookup(handle)
	if s == nil {
		return Entry{}, false
	}
	s.borrowCount++
	return s.entry, true
}

// ReturnBorrow decrements the borrow count for a handle.
func (b *LocalBackend) ReturnBorrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.lookup(handle)
	if s == nil || s.borrowCount == 0 {
		return false
	}
	s.borrowCount--
	return true
}

// Drain frees every handle, ignoring borrows, and marks the backend closed.
func (b *LocalBackend) Drain() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var out []Entry
	for i := range b.entries {
		if b.entries[i].valid {
			out = append(out, b.entries[i].entry)
		}
	}
	b.entries = nil
	b.freeList = nil
	return out
}

// Len returns the number of live handles.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, s := range b.entries {
		if s.valid {
			count++
		}
	}
	return count
}

// Each iterates over all live handles in handle order.
func (b *LocalBackend) Each(fn func(Handle, Entry) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, s := range b.entries {
		if s.valid {
			if !fn(Handle(i+1), s.entry) {
				break
			}
		}
	}
}
