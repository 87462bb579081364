package class

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	comruntime "github.com/wippyai/com-runtime"
	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/layout"
)

type control struct {
	refs atomic.Uint32
}

// block is the single allocation behind an instance. control must stay the
// first field so a block address is also its control address.
type block[C, H any] struct {
	ctl    control
	header H
	data   C
}

// Slot binds one interface to a header field and its dispatch-table
// constructor.
type Slot[C any] struct {
	build func(Resolver[C]) unsafe.Pointer
	entry layout.Entry
}

type ancestry interface {
	Ancestors() []comruntime.GUID
}

// Implement binds interface I to the header field at offset. build is
// called once per class to construct the slot's dispatch table; it must
// return a table of C-ABI entry points starting with comruntime.UnknownVtbl,
// normally filled from Resolver.Unknown and Resolver.Export.
func Implement[I comruntime.Interface, C, V any](offset uintptr, build func(Resolver[C]) *V) Slot[C] {
	var i I
	e := layout.Entry{
		Name:     reflect.TypeFor[I]().Name(),
		IID:      i.IID(),
		Inherits: i.Inherits,
		Offset:   offset,
	}
	if a, ok := any(i).(ancestry); ok {
		e.Ancestors = a.Ancestors()
	}
	return Slot[C]{
		entry: e,
		build: func(r Resolver[C]) unsafe.Pointer {
			return unsafe.Pointer(build(r))
		},
	}
}

// Class is the immutable description of a concrete foreign type.
type Class[C any] struct {
	table     *layout.Table
	alloc     func() unsafe.Pointer
	observers atomic.Pointer[[]Observer]
	live      sync.Map // block address -> *runtime.Pinner
	name      string
	vtbls     []unsafe.Pointer
	liveCount atomic.Int64
	headerOff uintptr
	dataOff   uintptr
	pins      runtime.Pinner
	obsMu     sync.Mutex
}

// Define builds the class for data type C with composite header H. H must
// be a struct with one pointer-sized field per slot; slot offsets are the
// offsets of those fields, in the order the slots are given.
func Define[C, H any](slots ...Slot[C]) (*Class[C], error) {
	var blk block[C, H]
	name := reflect.TypeFor[C]().String()

	b := layout.NewBuilder(name, unsafe.Sizeof(blk.header))
	for _, s := range slots {
		b.Add(s.entry)
	}
	table, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := checkHeader(reflect.TypeFor[H](), table); err != nil {
		return nil, err
	}

	c := &Class[C]{
		name:      name,
		table:     table,
		headerOff: unsafe.Offsetof(blk.header),
		dataOff:   unsafe.Offsetof(blk.data),
		alloc: func() unsafe.Pointer {
			return unsafe.Pointer(new(block[C, H]))
		},
	}

	c.vtbls = make([]unsafe.Pointer, len(slots))
	for i, s := range slots {
		var errs []error
		vt := s.build(Resolver[C]{cls: c, offset: s.entry.Offset, errs: &errs})
		if len(errs) > 0 {
			return nil, errors.New(errors.PhaseDefine, errors.KindUnsupported).
				Path(name, s.entry.Name).
				Cause(errs[0]).
				Detail("dispatch table entry has no C-ABI form").
				Build()
		}
		if vt == nil {
			return nil, errors.InvalidLayout([]string{name, s.entry.Name}, "dispatch table constructor returned nil")
		}
		if u := (*comruntime.UnknownVtbl)(vt); u.QueryInterface == 0 || u.AddRef == 0 || u.Release == 0 {
			return nil, errors.InvalidLayout([]string{name, s.entry.Name}, "dispatch table does not start with IUnknown entry points")
		}
		c.vtbls[i] = vt
	}

	// Entry points are never freed, so the class and its tables stay
	// reachable and pinned for the life of the process.
	for _, vt := range c.vtbls {
		c.pins.Pin(vt)
	}

	for _, a := range table.Ambiguities() {
		Logger().Warn("ambiguous interface identity, first declared slot wins",
			zap.String("class", name),
			zap.Stringer("iid", a.IID),
			zap.String("winner", a.Winner),
			zap.Strings("candidates", a.Candidates))
	}

	Logger().Debug("class defined",
		zap.String("class", name),
		zap.Int("slots", table.Len()),
		zap.Uintptr("header_offset", c.headerOff),
		zap.Uintptr("data_offset", c.dataOff))

	return c, nil
}

// MustDefine is Define for package-level class variables. It panics on error.
func MustDefine[C, H any](slots ...Slot[C]) *Class[C] {
	c, err := Define[C, H](slots...)
	if err != nil {
		panic(err)
	}
	return c
}

// checkHeader verifies every slot offset names a pointer-shaped field of h.
// Offsets come from the caller; reflection only confirms them.
func checkHeader(h reflect.Type, table *layout.Table) error {
	if h.Kind() != reflect.Struct {
		return errors.New(errors.PhaseDefine, errors.KindInvalidLayout).
			Path(table.Name()).
			GoType(h.String()).
			Detail("composite header must be a struct").
			Build()
	}

	fields := make(map[uintptr]reflect.StructField, h.NumField())
	for i := 0; i < h.NumField(); i++ {
		f := h.Field(i)
		fields[f.Offset] = f
	}

	for _, e := range table.Entries() {
		f, ok := fields[e.Offset]
		if !ok {
			return errors.New(errors.PhaseDefine, errors.KindInvalidLayout).
				Path(table.Name(), e.Name).
				GoType(h.String()).
				Detail("no header field at offset %d", e.Offset).
				Build()
		}
		if !isSlotType(f.Type) {
			return errors.New(errors.PhaseDefine, errors.KindInvalidLayout).
				Path(table.Name(), e.Name).
				GoType(h.String()).
				Detail("field %s (%s) is not a dispatch-table pointer", f.Name, f.Type).
				Build()
		}
	}
	return nil
}

func isSlotType(t reflect.Type) bool {
	if t.Size() != layout.PointerSize {
		return false
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer:
		return true
	case reflect.Struct:
		return t.NumField() == 1 && isSlotType(t.Field(0).Type)
	}
	return false
}

// Name returns the Go type name of the class data.
func (c *Class[C]) Name() string { return c.name }

// Table returns the class's slot table.
func (c *Class[C]) Table() *layout.Table { return c.table }

// Offsets returns the byte offsets of the composite header and of the data
// within an instance's allocation.
func (c *Class[C]) Offsets() (header, data uintptr) {
	return c.headerOff, c.dataOff
}

// Live returns the number of instances not yet destroyed.
func (c *Class[C]) Live() int {
	return int(c.liveCount.Load())
}

// Observe registers an observer for lifecycle events of every instance.
func (c *Class[C]) Observe(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()

	var next []Observer
	if cur := c.observers.Load(); cur != nil {
		next = append(next, (*cur)...)
	}
	next = append(next, o)
	c.observers.Store(&next)
}

// New moves data into a fresh instance. The returned wrapper holds the
// instance's first count unit.
func (c *Class[C]) New(data C) Wrapper[C] {
	base := c.alloc()

	hdr := unsafe.Add(base, int(c.headerOff))
	for i := 0; i < c.table.Len(); i++ {
		*(*unsafe.Pointer)(unsafe.Add(hdr, int(c.table.Entry(i).Offset))) = c.vtbls[i]
	}
	*(*C)(unsafe.Add(base, int(c.dataOff))) = data
	(*control)(base).refs.Store(1)

	// Foreign holders keep only addresses. The block stays pinned and in the
	// live set until the count reaches zero.
	pin := new(runtime.Pinner)
	pin.Pin(base)
	c.live.Store(base, pin)
	c.liveCount.Add(1)

	c.notify(EventCreated, base, 1)
	return Wrapper[C]{cls: c, base: base}
}

func (c *Class[C]) addRef(base unsafe.Pointer) uint32 {
	n := (*control)(base).refs.Add(1)
	c.notify(EventAcquired, base, n)
	return n
}

func (c *Class[C]) release(base unsafe.Pointer) uint32 {
	n := (*control)(base).refs.Add(^uint32(0))
	c.notify(EventReleased, base, n)
	if n == 0 {
		c.destroy(base)
	}
	return n
}

func (c *Class[C]) destroy(base unsafe.Pointer) {
	data := (*C)(unsafe.Add(base, int(c.dataOff)))
	if d, ok := any(data).(Dropper); ok {
		d.Drop()
	}
	var zero C
	*data = zero

	if pin, ok := c.live.LoadAndDelete(base); ok {
		pin.(*runtime.Pinner).Unpin()
	}
	c.liveCount.Add(-1)

	c.notify(EventDestroyed, base, 0)
	Logger().Debug("instance destroyed", zap.String("class", c.name), zap.Uintptr("object", uintptr(base)))
}

// query resolves iid against the slot table and, on success, returns the
// interface pointer with the count already incremented.
func (c *Class[C]) query(base unsafe.Pointer, iid comruntime.GUID) (unsafe.Pointer, bool) {
	off, ok := c.table.Lookup(iid)
	if !ok {
		return nil, false
	}
	c.addRef(base)
	return c.slot(base, off), true
}

func (c *Class[C]) slot(base unsafe.Pointer, off uintptr) unsafe.Pointer {
	return unsafe.Add(base, int(c.headerOff+off))
}

func (c *Class[C]) notify(t EventType, base unsafe.Pointer, refs uint32) {
	obs := c.observers.Load()
	if obs == nil {
		return
	}
	ev := Event{Class: c.name, Object: uintptr(base), Type: t, Refs: refs}
	for _, o := range *obs {
		o(ev)
	}
}

func (c *Class[C]) String() string {
	return fmt.Sprintf("class %s (%d interfaces)", c.name, c.table.Len())
}
