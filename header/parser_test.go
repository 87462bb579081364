package header_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	comruntime "github.com/wippyai/com-runtime"
	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/header"
)

func mustParse(t *testing.T, src string, opts header.Options) *header.Namespace {
	t.Helper()
	ns, err := header.Parse(src, opts)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ns
}

func mustRecord(t *testing.T, ns *header.Namespace, name string) *header.Record {
	t.Helper()
	r, ok := ns.Record(name)
	if !ok {
		t.Fatalf("record %s not found", name)
	}
	return r
}

func assertType(t *testing.T, what string, got, want header.Type) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

const pluginHeader = `#pragma once
#include <stdint.h>

namespace Steinberg {
typedef int32_t int32;
typedef int32 tresult;
typedef char TUID[16];

class FUnknown {
public:
	virtual tresult PLUGIN_API queryInterface(const TUID _iid, void** obj) = 0;
	virtual uint32_t PLUGIN_API addRef() = 0;
	virtual uint32_t PLUGIN_API release() = 0;
};

namespace Vst {
/** Component base interface. */
struct IComponent : public FUnknown {
	virtual tresult PLUGIN_API getControllerClassId(TUID classId) = 0;
	virtual tresult PLUGIN_API setIoMode(int32 mode) = 0;
	virtual int32 PLUGIN_API getBusCount(int32 type, int32 dir) const = 0;
	virtual ~IComponent() {}
};
} // namespace Vst
} // namespace Steinberg
`

func TestParse_Interfaces(t *testing.T) {
	root := mustParse(t, pluginHeader, header.Options{})

	if got := root.ChildNames(); !reflect.DeepEqual(got, []string{"Steinberg"}) {
		t.Fatalf("ChildNames() = %v, want [Steinberg]", got)
	}
	sb := root.Children["Steinberg"]

	wantTypedefs := []header.Typedef{
		{Name: "int32", Type: header.Signed(4)},
		{Name: "tresult", Type: header.TypedefNamed("int32")},
		{Name: "TUID", Type: header.ArrayOf(16, header.Char)},
	}
	if !reflect.DeepEqual(sb.Typedefs, wantTypedefs) {
		t.Errorf("Typedefs = %+v, want %+v", sb.Typedefs, wantTypedefs)
	}

	unk := mustRecord(t, sb, "FUnknown")
	if len(unk.Bases) != 0 {
		t.Errorf("FUnknown bases = %v, want none", unk.Bases)
	}
	if len(unk.VirtualMethods) != 3 {
		t.Fatalf("FUnknown has %d methods, want 3", len(unk.VirtualMethods))
	}
	qi := unk.VirtualMethods[0]
	if qi.Name != "queryInterface" || len(qi.Arguments) != 2 {
		t.Fatalf("method 0 = %+v", qi)
	}
	assertType(t, "queryInterface result", qi.Result, header.TypedefNamed("tresult"))
	assertType(t, "_iid", qi.Arguments[0].Type, header.TypedefNamed("TUID"))
	assertType(t, "obj", qi.Arguments[1].Type, header.PointerTo(header.PointerTo(header.Void, false), false))
	if qi.Arguments[1].Name != "obj" {
		t.Errorf("argument name = %q, want obj", qi.Arguments[1].Name)
	}
	assertType(t, "addRef result", unk.VirtualMethods[1].Result, header.Unsigned(4))
	if unk.Loc.Line != 9 {
		t.Errorf("FUnknown line = %d, want 9", unk.Loc.Line)
	}

	vst, ok := sb.Children["Vst"]
	if !ok {
		t.Fatal("namespace Vst not found")
	}
	comp := mustRecord(t, vst, "IComponent")
	if !reflect.DeepEqual(comp.Bases, []string{"FUnknown"}) {
		t.Errorf("IComponent bases = %v, want [FUnknown]", comp.Bases)
	}

	var names []string
	for _, m := range comp.VirtualMethods {
		names = append(names, m.Name)
	}
	want := []string{"getControllerClassId", "setIoMode", "getBusCount"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("methods = %v, want %v (destructor excluded)", names, want)
	}
	if !comp.VirtualMethods[2].Const {
		t.Error("getBusCount should be const")
	}
	if comp.VirtualMethods[0].Const {
		t.Error("getControllerClassId should not be const")
	}
}

func TestParse_Identity(t *testing.T) {
	src := `
struct __declspec(uuid("00000000-0000-0000-C000-000000000046")) __declspec(novtable) IUnknown {
	virtual long __stdcall QueryInterface(void* riid, void** ppv) = 0;
	virtual unsigned long __stdcall AddRef() = 0;
	virtual unsigned long __stdcall Release() = 0;
};

MIDL_INTERFACE("6d5140c1-7436-11ce-8034-00aa006009fa")
IServiceProvider : public IUnknown {
public:
	virtual long STDMETHODCALLTYPE QueryService(void* sid, void* riid, void** obj) = 0;
};

DEFINE_GUID(IID_IPlain, 0x12345678, 0x9abc, 0xdef0, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef);

struct IPlain : IUnknown {
	virtual void Touch() = 0;
};

struct INone : IUnknown {};
`
	ns := mustParse(t, src, header.Options{})

	tests := []struct {
		name string
		want comruntime.GUID
	}{
		{"IUnknown", comruntime.IIDUnknown},
		{"IServiceProvider", comruntime.MustParseGUID("6d5140c1-7436-11ce-8034-00aa006009fa")},
		{"IPlain", comruntime.MustParseGUID("12345678-9abc-def0-0123-456789abcdef")},
		{"INone", comruntime.GUID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustRecord(t, ns, tt.name)
			if r.IID != tt.want {
				t.Errorf("IID = %v, want %v", r.IID, tt.want)
			}
		})
	}

	sp := mustRecord(t, ns, "IServiceProvider")
	if len(sp.VirtualMethods) != 1 || sp.VirtualMethods[0].Name != "QueryService" {
		t.Errorf("IServiceProvider methods = %+v", sp.VirtualMethods)
	}
	assertType(t, "QueryInterface result", mustRecord(t, ns, "IUnknown").VirtualMethods[0].Result, header.Long)
}

func TestParse_Enums(t *testing.T) {
	src := `
enum Flags : uint8_t { kNone = 0, kA = 1 << 0, kB = 1 << 1, kAB = kA | kB, };
enum class Mode { Off, On = 5, Auto };
typedef enum { RED, GREEN = -2, BLUE } Color;
enum { kMax = (kAB + 1) * 4, kMask = ~0, kChar = 'A' };

struct Holder {
	Flags f;
	Mode m;
	Color c;
	char buf[kMax];
	int mode[Mode::Auto - Mode::On];
};
`
	ns := mustParse(t, src, header.Options{})

	if len(ns.Enums) != 4 {
		t.Fatalf("got %d enums, want 4", len(ns.Enums))
	}

	tests := []struct {
		name   string
		typ    header.Type
		values []header.EnumValue
	}{
		{"Flags", header.Unsigned(1), []header.EnumValue{{"kNone", 0}, {"kA", 1}, {"kB", 2}, {"kAB", 3}}},
		{"Mode", header.Int, []header.EnumValue{{"Off", 0}, {"On", 5}, {"Auto", 6}}},
		{"Color", header.Int, []header.EnumValue{{"RED", 0}, {"GREEN", -2}, {"BLUE", -1}}},
		{"", header.Int, []header.EnumValue{{"kMax", 16}, {"kMask", -1}, {"kChar", 65}}},
	}
	for i, tt := range tests {
		e := ns.Enums[i]
		if e.Name != tt.name {
			t.Errorf("enum %d name = %q, want %q", i, e.Name, tt.name)
		}
		assertType(t, "enum "+tt.name+" type", e.Type, tt.typ)
		if !reflect.DeepEqual(e.Values, tt.values) {
			t.Errorf("enum %q values = %v, want %v", tt.name, e.Values, tt.values)
		}
	}

	if len(ns.Typedefs) != 0 {
		t.Errorf("typedef enum should not add a typedef, got %+v", ns.Typedefs)
	}

	h := mustRecord(t, ns, "Holder")
	want := []header.Field{
		{Name: "f", Type: header.Unsigned(1)},
		{Name: "m", Type: header.Int},
		{Name: "c", Type: header.Int},
		{Name: "buf", Type: header.ArrayOf(16, header.Char)},
		{Name: "mode", Type: header.ArrayOf(1, header.Int)},
	}
	if !reflect.DeepEqual(h.Fields, want) {
		t.Errorf("Holder fields = %+v, want %+v", h.Fields, want)
	}
}

func TestParse_Records(t *testing.T) {
	src := `
struct Point { float x, y; };
union Value { int i; double d; void* p; };

struct Outer {
	struct Inner { int a; } inner;
	union { int asInt; float asFloat; };
	Inner* next;
	int (*callback)(int, void*);
	const char* name;
	static const int kCount = 3;
	int size() const { return 0; }
	Outer();
	~Outer();
	typedef Inner* InnerPtr;
private:
	unsigned long long id;
	Point pts[2][3];
	bool flag = false;
	InnerPtr cursor;
};

typedef struct { short w, h; } Size;
typedef struct Point Point;
`
	ns := mustParse(t, src, header.Options{})

	var order []string
	for _, r := range ns.Records {
		order = append(order, r.Name)
	}
	if want := []string{"Point", "Value", "Outer", "Inner", "Size"}; !reflect.DeepEqual(order, want) {
		t.Errorf("record order = %v, want %v", order, want)
	}

	if v := mustRecord(t, ns, "Value"); v.Kind != header.Union || len(v.Fields) != 3 {
		t.Errorf("Value = %+v, want union with 3 fields", v)
	}

	outer := mustRecord(t, ns, "Outer")
	if len(outer.VirtualMethods) != 0 {
		t.Errorf("non-virtual members became methods: %+v", outer.VirtualMethods)
	}

	var names []string
	for _, f := range outer.Fields {
		names = append(names, f.Name)
	}
	if want := []string{"inner", "", "next", "callback", "name", "id", "pts", "flag", "cursor"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("Outer fields = %q, want %q", names, want)
	}

	fields := outer.Fields
	assertType(t, "inner", fields[0].Type, header.RecordNamed("Inner"))
	if fields[1].Type.Kind != header.KindUnnamedRecord || fields[1].Type.Record.Kind != header.Union {
		t.Errorf("anonymous member type = %v, want unnamed union", fields[1].Type)
	} else if len(fields[1].Type.Record.Fields) != 2 {
		t.Errorf("anonymous union has %d fields, want 2", len(fields[1].Type.Record.Fields))
	}
	assertType(t, "next", fields[2].Type, header.PointerTo(header.RecordNamed("Inner"), false))
	assertType(t, "callback", fields[3].Type, header.PointerTo(header.Void, false))
	assertType(t, "name", fields[4].Type, header.PointerTo(header.Char, true))
	assertType(t, "id", fields[5].Type, header.ULongLong)
	assertType(t, "pts", fields[6].Type, header.ArrayOf(2, header.ArrayOf(3, header.RecordNamed("Point"))))
	assertType(t, "flag", fields[7].Type, header.Bool)
	assertType(t, "cursor", fields[8].Type, header.TypedefNamed("InnerPtr"))

	if len(ns.Typedefs) != 1 || ns.Typedefs[0].Name != "InnerPtr" {
		t.Errorf("Typedefs = %+v, want only InnerPtr", ns.Typedefs)
	}

	size := mustRecord(t, ns, "Size")
	if len(size.Fields) != 2 || size.Fields[1].Name != "h" {
		t.Errorf("Size fields = %+v", size.Fields)
	}
}

func TestParse_MethodArguments(t *testing.T) {
	src := `
struct IThing {
	virtual void Configure(int, float scale = 1.0f, const char name[8] = nullptr) = 0;
	virtual void Reset(void) = 0;
	virtual const IThing& Self() const = 0;
	virtual int Inline() { return Helper(1, 2); }
};
`
	ns := mustParse(t, src, header.Options{})
	r := mustRecord(t, ns, "IThing")
	if len(r.VirtualMethods) != 4 {
		t.Fatalf("got %d methods, want 4", len(r.VirtualMethods))
	}

	cfg := r.VirtualMethods[0]
	want := []header.Argument{
		{Name: "", Type: header.Int},
		{Name: "scale", Type: header.Float},
		{Name: "name", Type: header.PointerTo(header.Char, true)},
	}
	if !reflect.DeepEqual(cfg.Arguments, want) {
		t.Errorf("Configure arguments = %+v, want %+v", cfg.Arguments, want)
	}
	if len(r.VirtualMethods[1].Arguments) != 0 {
		t.Errorf("(void) should mean no arguments, got %+v", r.VirtualMethods[1].Arguments)
	}

	self := r.VirtualMethods[2]
	assertType(t, "Self result", self.Result, header.ReferenceTo(header.RecordNamed("IThing"), true))
	if !self.Const {
		t.Error("Self should be const")
	}
	if r.VirtualMethods[3].Name != "Inline" {
		t.Errorf("inline virtual = %q, want Inline", r.VirtualMethods[3].Name)
	}
}

func TestParse_SkipAndIgnore(t *testing.T) {
	src := `
#define MY_EXPORT __attribute__((visibility("default")))
namespace Internal { struct Hidden { int x; }; }
namespace Public {
struct Secret { int y; };
struct MY_EXPORT Visible { Secret* s; };
typedef int Handle;
typedef long Cookie;
}
`
	ns := mustParse(t, src, header.Options{
		Skip:   []string{"Internal", "Secret", "Handle"},
		Ignore: []string{"MY_EXPORT"},
	})

	if _, ok := ns.Children["Internal"]; ok {
		t.Error("skipped namespace should not be present")
	}
	pub := ns.Children["Public"]
	if pub == nil {
		t.Fatal("namespace Public not found")
	}
	if len(pub.Records) != 1 || pub.Records[0].Name != "Visible" {
		t.Fatalf("Public records = %+v, want only Visible", pub.Records)
	}
	assertType(t, "s", pub.Records[0].Fields[0].Type, header.PointerTo(header.RecordNamed("Secret"), false))
	if len(pub.Typedefs) != 1 || pub.Typedefs[0].Name != "Cookie" {
		t.Errorf("Public typedefs = %+v, want only Cookie", pub.Typedefs)
	}
}

func TestParse_CharacterWidths(t *testing.T) {
	src := `struct S { wchar_t c; char16_t d; size_t n; signed char e; unsigned short f; };`

	tests := []struct {
		name  string
		wchar int
		want  header.Type
	}{
		{"default", 0, header.Unsigned(2)},
		{"four", 4, header.Unsigned(4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := mustParse(t, src, header.Options{WCharSize: tt.wchar})
			f := mustRecord(t, ns, "S").Fields
			assertType(t, "wchar_t", f[0].Type, tt.want)
			assertType(t, "char16_t", f[1].Type, header.Short)
			assertType(t, "size_t", f[2].Type, header.TypedefNamed("size_t"))
			assertType(t, "signed char", f[3].Type, header.SChar)
			assertType(t, "unsigned short", f[4].Type, header.UShort)
		})
	}
}

func TestParse_TopLevelNoise(t *testing.T) {
	src := `
extern "C" {
struct CApi { int v; };
int c_function(int a, int b);
}
template <typename T> struct Box { T value; };
template <typename T, int N = (1 > 2)> T* make();
using Alias = const CApi*;
using namespace std;
namespace fs = std::filesystem;
namespace { struct Local { int z; }; }
static inline int helper() { return 1; }
extern int counter;
static_assert(sizeof(int) == 4, "int");
struct CApi* lookup(const char* key);
`
	ns := mustParse(t, src, header.Options{})

	if len(ns.Records) != 1 || ns.Records[0].Name != "CApi" {
		t.Errorf("records = %+v, want only CApi", ns.Records)
	}
	want := []header.Typedef{{Name: "Alias", Type: header.PointerTo(header.RecordNamed("CApi"), true)}}
	if !reflect.DeepEqual(ns.Typedefs, want) {
		t.Errorf("Typedefs = %+v, want %+v", ns.Typedefs, want)
	}
	if len(ns.Children) != 0 {
		t.Errorf("anonymous namespace produced children: %v", ns.ChildNames())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind errors.Kind
		line int
		col  int
	}{
		{"unknown type", "struct X { Foo f; };", errors.KindUnknownType, 1, 12},
		{"unknown type later line", "struct X {\n\tint a;\n\tFoo f;\n};", errors.KindUnknownType, 3, 2},
		{"missing semicolon", "struct X { int a };", errors.KindSyntax, 1, 18},
		{"unterminated comment", "struct X { /* int a; };", errors.KindSyntax, 1, 12},
		{"bitfield", "struct X { int a : 3; };", errors.KindUnsupported, 1, 18},
		{"variadic", "struct X { virtual void f(int, ...) = 0; };", errors.KindUnsupported, 1, 32},
		{"bad uuid", `struct __declspec(uuid("zz")) X {};`, errors.KindInvalidInput, 1, 24},
		{"stray brace", "};", errors.KindSyntax, 1, 1},
		{"template base", "struct X : Base<int> {};", errors.KindUnsupported, 1, 16},
		{"unknown constant", "struct X { char b[kSize]; };", errors.KindUnsupported, 1, 19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := header.Parse(tt.src, header.Options{File: "plugin.h"})
			if err == nil {
				t.Fatal("expected error")
			}
			e, ok := err.(*errors.Error)
			if !ok {
				t.Fatalf("expected *errors.Error, got %T: %v", err, err)
			}
			if e.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v (%v)", e.Kind, tt.kind, e)
			}
			if e.Phase != errors.PhaseParse {
				t.Errorf("Phase = %v, want %v", e.Phase, errors.PhaseParse)
			}
			want := errors.Location{File: "plugin.h", Line: tt.line, Col: tt.col}
			if e.Location != want {
				t.Errorf("Location = %v, want %v", e.Location, want)
			}
		})
	}

	t.Run("unclosed namespace", func(t *testing.T) {
		_, err := header.Parse("namespace A {\nstruct X { int a; };\n", header.Options{})
		if err == nil {
			t.Fatal("expected error")
		}
		if e, ok := err.(*errors.Error); !ok || e.Kind != errors.KindSyntax {
			t.Errorf("got %v, want syntax error", err)
		}
	})
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.h")
	if err := os.WriteFile(path, []byte(pluginHeader), 0o644); err != nil {
		t.Fatal(err)
	}

	ns, err := header.ParseFile(path, header.Options{})
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	r := mustRecord(t, ns.Children["Steinberg"], "FUnknown")
	if r.Loc.File != path {
		t.Errorf("Loc.File = %q, want %q", r.Loc.File, path)
	}

	if _, err := header.ParseFile(filepath.Join(dir, "missing.h"), header.Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}
