package comruntime

import (
	"reflect"
	"sync"

	"github.com/ebitengine/purego"

	"github.com/wippyai/com-runtime/errors"
)

type funcKey struct {
	typ  reflect.Type
	addr uintptr
}

var funcs sync.Map // funcKey -> F

// Func returns a Go function of type F that calls the C-ABI entry point at
// addr. The first argument of every dispatch-table entry is the interface
// pointer. Bindings are built once per address and signature. addr must
// not be zero.
func Func[F any](addr uintptr) F {
	key := funcKey{typ: reflect.TypeFor[F](), addr: addr}
	if f, ok := funcs.Load(key); ok {
		return f.(F)
	}
	var f F
	purego.RegisterFunc(&f, addr)
	actual, _ := funcs.LoadOrStore(key, f)
	return actual.(F)
}

// NewCallback returns a C-ABI entry point that calls fn, for storing in a
// dispatch-table slot. fn may take integers, booleans, floats and pointers
// and return at most one integer, boolean or pointer.
//
// Entry points are never freed and a process can hold only a limited number
// of them (at least 2000), so they belong in tables built once per class.
func NewCallback(fn any) (uintptr, error) {
	if err := checkCallback(reflect.TypeOf(fn)); err != nil {
		return 0, err
	}
	if reflect.ValueOf(fn).IsNil() {
		return 0, errors.InvalidInput(errors.PhaseDefine, "nil callback", nil)
	}
	return purego.NewCallback(fn), nil
}

func checkCallback(t reflect.Type) error {
	if t == nil || t.Kind() != reflect.Func {
		return errors.InvalidInput(errors.PhaseDefine, "callback must be a function", t)
	}
	if t.IsVariadic() {
		return errors.New(errors.PhaseDefine, errors.KindUnsupported).
			GoType(t.String()).
			Detail("variadic callback").
			Build()
	}
	for i := 0; i < t.NumIn(); i++ {
		if !isScalar(t.In(i), true) {
			return errors.New(errors.PhaseDefine, errors.KindUnsupported).
				GoType(t.String()).
				Detail("argument %d has type %s, which has no C-ABI callback form", i, t.In(i)).
				Build()
		}
	}
	switch {
	case t.NumOut() > 1:
		return errors.New(errors.PhaseDefine, errors.KindUnsupported).
			GoType(t.String()).
			Detail("callback returns %d values", t.NumOut()).
			Build()
	case t.NumOut() == 1 && !isScalar(t.Out(0), false):
		return errors.New(errors.PhaseDefine, errors.KindUnsupported).
			GoType(t.String()).
			Detail("result type %s cannot be returned from a callback", t.Out(0)).
			Build()
	}
	return nil
}

func isScalar(t reflect.Type, floats bool) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Pointer, reflect.UnsafePointer:
		return true
	case reflect.Float32, reflect.Float64:
		return floats
	}
	return false
}
