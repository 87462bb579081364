package header

import (
	"go.bytecodealliance.org/wit"
)

// Primitive returns the WIT primitive with the same width and signedness as
// t. It reports false for types whose width depends on the target (long,
// unsigned long) and for everything that is not a scalar.
func (t Type) Primitive() (wit.Type, bool) {
	switch t.Kind {
	case KindBool:
		return wit.Bool{}, true
	case KindChar, KindSChar:
		return wit.S8{}, true
	case KindUChar:
		return wit.U8{}, true
	case KindShort:
		return wit.S16{}, true
	case KindUShort:
		return wit.U16{}, true
	case KindInt:
		return wit.S32{}, true
	case KindUInt:
		return wit.U32{}, true
	case KindLongLong:
		return wit.S64{}, true
	case KindULongLong:
		return wit.U64{}, true
	case KindFloat:
		return wit.F32{}, true
	case KindDouble:
		return wit.F64{}, true
	case KindSigned:
		return sized(t.Size, true)
	case KindUnsigned:
		return sized(t.Size, false)
	}
	return nil, false
}

func sized(size int, signed bool) (wit.Type, bool) {
	switch size {
	case 1:
		if signed {
			return wit.S8{}, true
		}
		return wit.U8{}, true
	case 2:
		if signed {
			return wit.S16{}, true
		}
		return wit.U16{}, true
	case 4:
		if signed {
			return wit.S32{}, true
		}
		return wit.U32{}, true
	case 8:
		if signed {
			return wit.S64{}, true
		}
		return wit.U64{}, true
	}
	return nil, false
}

// WithLong resolves the target-dependent long types to fixed-width
// integers of size bytes. Other types are returned unchanged.
func (t Type) WithLong(size int) Type {
	switch t.Kind {
	case KindLong:
		return Signed(size)
	case KindULong:
		return Unsigned(size)
	}
	return t
}
