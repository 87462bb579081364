package header

import (
	"reflect"
	"strings"
	"testing"

	"go.bytecodealliance.org/wit"
)

func TestType_String(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{Void, "void"},
		{ULongLong, "unsigned long long"},
		{Signed(4), "int32_t"},
		{Unsigned(2), "uint16_t"},
		{PointerTo(Char, true), "const char*"},
		{PointerTo(PointerTo(Void, false), false), "void**"},
		{ReferenceTo(RecordNamed("IFoo"), true), "const IFoo&"},
		{ArrayOf(16, Char), "char[16]"},
		{TypedefNamed("tresult"), "tresult"},
		{Type{Kind: KindUnnamedRecord, Record: &Record{Kind: Union}}, "union {...}"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestType_Primitive(t *testing.T) {
	tests := []struct {
		typ  Type
		want wit.Type
		ok   bool
	}{
		{Bool, wit.Bool{}, true},
		{Char, wit.S8{}, true},
		{UChar, wit.U8{}, true},
		{Short, wit.S16{}, true},
		{UShort, wit.U16{}, true},
		{Int, wit.S32{}, true},
		{UInt, wit.U32{}, true},
		{LongLong, wit.S64{}, true},
		{ULongLong, wit.U64{}, true},
		{Float, wit.F32{}, true},
		{Double, wit.F64{}, true},
		{Signed(2), wit.S16{}, true},
		{Unsigned(8), wit.U64{}, true},
		{Unsigned(3), nil, false},
		{Long, nil, false},
		{ULong, nil, false},
		{Void, nil, false},
		{PointerTo(Int, false), nil, false},
		{RecordNamed("Point"), nil, false},
	}
	for _, tt := range tests {
		got, ok := tt.typ.Primitive()
		if ok != tt.ok || got != tt.want {
			t.Errorf("%v.Primitive() = %v, %v; want %v, %v", tt.typ, got, ok, tt.want, tt.ok)
		}
	}
}

func TestType_WithLong(t *testing.T) {
	if got := Long.WithLong(4); got != Signed(4) {
		t.Errorf("Long.WithLong(4) = %v", got)
	}
	if got := ULong.WithLong(8); got != Unsigned(8) {
		t.Errorf("ULong.WithLong(8) = %v", got)
	}
	if got := Int.WithLong(8); got != Int {
		t.Errorf("Int.WithLong(8) = %v, want int", got)
	}
}

func TestNamespace_Walk(t *testing.T) {
	root := NewNamespace()
	root.child("b").child("inner")
	root.child("a")

	var visited []string
	root.Walk(func(path []string, ns *Namespace) {
		visited = append(visited, "/"+strings.Join(path, "/"))
	})

	want := []string{"/", "/a", "/b", "/b/inner"}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("Walk order = %v, want %v", visited, want)
	}
}
