package gen_test

import (
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/com-runtime/gen"
	"github.com/wippyai/com-runtime/header"
)

const pluginHeader = `
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
DEFINE_GUID(IID_FUnknown, 0x00000000, 0x0000, 0x0000, 0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46);

struct ViewRect {
	int32 left;
	int32 top;
	int32 right;
	int32 bottom;
};

union Sample {
	float f;
	double d;
	int32 i;
};

enum MediaTypes : int32_t { kAudio = 0, kEvent, kNumMediaTypes };

struct __declspec(uuid("367faf01-afa9-4693-8d4d-a2a0ed0882a3")) IPluginBase : public FUnknown {
	virtual tresult PLUGIN_API initialize(FUnknown* context) = 0;
	virtual tresult PLUGIN_API terminate() = 0;
};

MIDL_INTERFACE("e831ff31-f2d5-4301-928e-bbee25697802")
IComponent : public IPluginBase {
	virtual tresult PLUGIN_API getControllerClassId(TUID classId) = 0;
	virtual tresult PLUGIN_API setActive(bool state) = 0;
	virtual tresult PLUGIN_API getSize(ViewRect* size) = 0;
};
}
`

// norm collapses whitespace so gofmt alignment does not matter.
func norm(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func emit(t *testing.T, src string, cfg gen.Config) string {
	t.Helper()
	ns, err := header.Parse(src, header.Options{File: "plugin.h"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := gen.Emit(ns, cfg)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if _, err := parser.ParseFile(token.NewFileSet(), "bindings.go", out, parser.AllErrors); err != nil {
		t.Fatalf("generated source does not parse: %v\n%s", err, out)
	}
	return string(out)
}

func TestEmit(t *testing.T) {
	out := emit(t, pluginHeader, gen.Config{Package: "vst", Source: "plugin.h", Target: gen.Target{PointerSize: 8, LongSize: 8}})
	got := norm(out)

	fragments := []string{
		"// Code generated by comgen from plugin.h. DO NOT EDIT.",
		"package vst",
		`comruntime "github.com/wippyai/com-runtime"`,
		`"github.com/wippyai/com-runtime/class"`,
		"KAudio int32 = 0 // MediaTypes",
		"KNumMediaTypes int32 = 2 // MediaTypes",
		"type Int32 = int32",
		"type Tresult = Int32",
		"type TUID = [16]int8",
		"// ViewRect is the C record ViewRect (16 bytes, align 4).",
		"type ViewRect struct { Left Int32 Top Int32 Right Int32 Bottom Int32 }",
		"// Sample is the C union Sample (8 bytes, align 8).",
		"type Sample struct { Data [1]uint64 }",
		`IIDIPluginBase = comruntime.MustParseGUID("367faf01-afa9-4693-8d4d-a2a0ed0882a3")`,
		`IIDIComponent = comruntime.MustParseGUID("e831ff31-f2d5-4301-928e-bbee25697802")`,
		"type IPluginBaseVtbl struct { comruntime.UnknownVtbl Initialize uintptr Terminate uintptr }",
		"type IComponentVtbl struct { IPluginBaseVtbl GetControllerClassId uintptr SetActive uintptr GetSize uintptr }",
		"type IComponent struct { Vtbl *IComponentVtbl }",
		"func (IComponent) IID() comruntime.GUID { return IIDIComponent }",
		"return iid == IIDIComponent || IPluginBase{}.Inherits(iid)",
		"return iid == IIDIPluginBase || comruntime.IUnknown{}.Inherits(iid)",
		"return []comruntime.GUID{IIDIPluginBase, comruntime.IIDUnknown}",
		"func (i *IComponent) AsIPluginBase() *IPluginBase { return (*IPluginBase)(unsafe.Pointer(i)) }",
		"func (i *IComponent) Initialize(context *comruntime.IUnknown) Tresult { return comruntime.Func[func(this unsafe.Pointer, context *comruntime.IUnknown) Tresult](i.Vtbl.Initialize)(unsafe.Pointer(i), context) }",
		"func (i *IComponent) Terminate() Tresult { return comruntime.Func[func(this unsafe.Pointer) Tresult](i.Vtbl.Terminate)(unsafe.Pointer(i)) }",
		"func (i *IComponent) Release() uint32 { return comruntime.AsUnknown(i).Release() }",
		"type IComponentMethods interface { IPluginBaseMethods GetControllerClassId(classId *int8) Tresult SetActive(state bool) Tresult GetSize(size *ViewRect) Tresult }",
		"fillIPluginBase[C, P](&v.IPluginBaseVtbl, r)",
		"v.UnknownVtbl = r.Unknown()",
		"v.SetActive = r.Export(func(this unsafe.Pointer, state bool) Tresult { return P(r.Data(this)).SetActive(state) })",
		"func NewIComponentVtbl[C any, P interface { *C IComponentMethods }](r class.Resolver[C]) *IComponentVtbl {",
	}
	for _, f := range fragments {
		if !strings.Contains(got, norm(f)) {
			t.Errorf("output missing %q", f)
		}
	}

	for _, absent := range []string{"type FUnknown", "IIDFUnknown", "AsFUnknown"} {
		if strings.Contains(got, absent) {
			t.Errorf("output should not contain %q", absent)
		}
	}

	if strings.Index(got, "type IPluginBaseVtbl") > strings.Index(got, "type IComponentVtbl") {
		t.Error("base interface should be emitted before derived")
	}
}

// componentMain defines a class from the pluginHeader bindings and calls it
// through its dispatch tables.
const componentMain = `package main

import (
	"fmt"
	"os"
	"unsafe"

	comruntime "github.com/wippyai/com-runtime"
	"github.com/wippyai/com-runtime/class"
)

type component struct {
	active      bool
	terminated  bool
}

func (c *component) Initialize(context *comruntime.IUnknown) Tresult { return 0 }
func (c *component) Terminate() Tresult                               { c.terminated = true; return 0 }
func (c *component) GetControllerClassId(classId *int8) Tresult       { *classId = 7; return 0 }
func (c *component) SetActive(state bool) Tresult                     { c.active = state; return 1 }

func (c *component) GetSize(size *ViewRect) Tresult {
	size.Right, size.Bottom = 640, 480
	return 0
}

type componentHeader struct {
	Component IComponent
}

func fail(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}

func main() {
	cls, err := class.Define[component, componentHeader](
		class.Implement[IComponent](unsafe.Offsetof(componentHeader{}.Component), NewIComponentVtbl[component, *component]),
	)
	if err != nil {
		fail("define: %v", err)
	}
	w := cls.New(component{})
	p, ok := class.ToPtr[IComponent](w)
	if !ok {
		fail("ToPtr failed")
	}

	if got := p.Get().SetActive(true); got != 1 || !w.Data().active {
		fail("SetActive: got %d, active %v", got, w.Data().active)
	}
	var size ViewRect
	p.Get().GetSize(&size)
	if size.Right != 640 || size.Bottom != 480 {
		fail("GetSize: got %+v", size)
	}
	var id int8
	p.Get().GetControllerClassId(&id)
	if id != 7 {
		fail("GetControllerClassId: got %d", id)
	}

	base, ok := comruntime.Cast[IPluginBase](p)
	if !ok {
		fail("Cast to IPluginBase failed")
	}
	base.Get().Terminate()
	if !w.Data().terminated {
		fail("Terminate did not reach the data")
	}
	base.Release()
	p.Release()
	if n := w.Release(); n != 0 {
		fail("final release: got %d", n)
	}
	if cls.Live() != 0 {
		fail("live instances: %d", cls.Live())
	}
	fmt.Println("ok")
}
`

// TestEmit_CompilesAndDefines builds the pluginHeader bindings together with
// a class using them and runs the result.
func TestEmit_CompilesAndDefines(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a program")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go command not available")
	}

	src := emit(t, pluginHeader, gen.Config{Package: "main", Source: "plugin.h"})

	// The program must live inside the module to import it.
	dir, err := os.MkdirTemp(".", "emitcheck")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	if err := os.WriteFile(filepath.Join(dir, "bindings.go"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte(componentMain), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(goBin, "run", "./"+filepath.Base(dir))
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go run failed: %v\n%s", err, out)
	}
	if got := strings.TrimSpace(string(out)); got != "ok" {
		t.Errorf("program output: %q", got)
	}
}

func TestEmit_FrameworkRoot(t *testing.T) {
	src := `
struct __declspec(uuid("11111111-2222-3333-4444-555555555555")) FUnknown {
	virtual int queryInterface(const char* iid, void** obj) = 0;
	virtual unsigned addRef() = 0;
	virtual unsigned release() = 0;
};
struct __declspec(uuid("11111111-2222-3333-4444-666666666666")) IHost : FUnknown {
	virtual void notify(unsigned long code) = 0;
};`
	got := norm(emit(t, src, gen.Config{Target: gen.Target{PointerSize: 4, LongSize: 4}}))

	for _, f := range []string{
		"package bindings",
		"// Code generated by comgen from C++ headers. DO NOT EDIT.",
		"type FUnknownVtbl struct { comruntime.UnknownVtbl }",
		"type IHostVtbl struct { FUnknownVtbl Notify uintptr }",
		"return []comruntime.GUID{IIDFUnknown, comruntime.IIDUnknown}",
		"func (i *IHost) Notify(code uint32) { comruntime.Func[func(this unsafe.Pointer, code uint32)](i.Vtbl.Notify)(unsafe.Pointer(i), code) }",
	} {
		if !strings.Contains(got, norm(f)) {
			t.Errorf("output missing %q", f)
		}
	}
}

func TestEmit_RecordsOnly(t *testing.T) {
	src := `
typedef struct {
	unsigned short id;
	void* data;
	struct { float x, y; } pos;
	union { int i; float f; };
} Entry, *PEntry;`
	out := emit(t, src, gen.Config{Target: gen.Target{PointerSize: 8, LongSize: 8}})
	got := norm(out)

	if strings.Contains(got, "comruntime") || strings.Contains(got, "class") {
		t.Error("records-only output should not import the runtime")
	}
	for _, f := range []string{
		`import ( "unsafe" )`,
		"// Entry is the C record Entry (32 bytes, align 8).",
		"type Entry struct { Id uint16 Data unsafe.Pointer Pos EntryAnon2 Anon3 EntryAnon3 }",
		"type EntryAnon2 struct { X float32 Y float32 }",
		"type EntryAnon3 struct { Data [1]uint32 }",
		"type PEntry = *Entry",
	} {
		if !strings.Contains(got, norm(f)) {
			t.Errorf("output missing %q\n%s", f, out)
		}
	}
}

func TestEmit_Empty(t *testing.T) {
	got := norm(emit(t, "", gen.Config{Package: "empty"}))
	if got != norm("// Code generated by comgen from C++ headers. DO NOT EDIT.\n\npackage empty") {
		t.Errorf("unexpected output %q", got)
	}
}
