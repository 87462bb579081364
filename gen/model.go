package gen

import (
	"go/token"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	comruntime "github.com/wippyai/com-runtime"
	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/header"
)

// Model is the Go view of a parsed header: everything Emit writes, in
// declaration order.
type Model struct {
	Consts     []Const
	Aliases    []Alias
	Structs    []*Struct
	Interfaces []*Interface

	idx     *index
	calc    *Calculator
	names   map[*header.Record]string
	ifaces  map[*header.Record]*Interface
	aliases map[string]string
	types   map[string]bool
	target  Target
	unsafe  bool
}

// Interface is a foreign interface with a dispatch table rooted at
// IUnknown.
type Interface struct {
	// Base is the interface this one extends, nil when it extends IUnknown
	// directly.
	Base    *Interface
	Record  *header.Record
	Name    string
	CName   string
	Path    []string
	Methods []Method
	IID     comruntime.GUID
}

// Method is one dispatch-table slot declared by an interface.
type Method struct {
	Name   string
	CName  string
	Result string
	Params []Param
	Const  bool
}

// Param is a method parameter with its Go type.
type Param struct {
	Name string
	Type string
}

// Slot is a dispatch-table entry with its byte offset.
type Slot struct {
	Name   string
	Owner  string
	Index  int
	Offset uintptr
}

// Struct is a plain record emitted as a Go struct.
type Struct struct {
	Name    string
	CName   string
	Fields  []Param
	Members []Param
	Info    Info
	Union   bool
}

// Alias is a typedef emitted as a Go type alias.
type Alias struct {
	Name  string
	CName string
	Type  string
}

// Const is an enumerator.
type Const struct {
	Name  string
	Enum  string
	Type  string
	Value int64
}

// Build maps a parsed header onto Go declarations for target. A zero
// target means the host.
func Build(ns *header.Namespace, target Target) (*Model, error) {
	target = target.orHost()
	if err := target.validate(); err != nil {
		return nil, err
	}

	idx := newIndex(ns)
	m := &Model{
		idx:     idx,
		calc:    newCalculator(idx, target),
		target:  target,
		names:   make(map[*header.Record]string),
		ifaces:  make(map[*header.Record]*Interface),
		aliases: make(map[string]string),
		types:   make(map[string]bool),
	}

	m.nameTypes()
	if err := m.buildInterfaces(); err != nil {
		return nil, err
	}
	if err := m.buildAliases(); err != nil {
		return nil, err
	}
	if err := m.buildStructs(); err != nil {
		return nil, err
	}
	if err := m.buildConsts(); err != nil {
		return nil, err
	}
	return m, nil
}

// nameTypes assigns Go names to records and typedefs before any type is
// mapped, so references resolve regardless of declaration order.
func (m *Model) nameTypes() {
	for _, r := range m.idx.order {
		if root, ok := m.rootOf(r); ok && root == r && isUnknown(r) {
			m.names[r] = "comruntime.IUnknown"
			continue
		}
		name := exportName(r.Name)
		m.names[r] = name
		m.types[name] = true
	}
	for _, td := range m.idx.aliases {
		if td.Type.Kind == header.KindUnnamedRecord {
			// typedef struct { ... } Name, *PName;
			if _, ok := m.names[td.Type.Record]; !ok {
				name := exportName(td.Name)
				m.names[td.Type.Record] = name
				m.types[name] = true
				continue
			}
		}
		name := exportName(td.Name)
		if m.types[name] {
			continue
		}
		m.aliases[td.Name] = name
		m.types[name] = true
	}
}

// rootOf follows the first-base chain of r to a record with no bases and
// reports whether that record starts with the IUnknown methods.
func (m *Model) rootOf(r *header.Record) (*header.Record, bool) {
	for depth := 0; depth < 64; depth++ {
		switch len(r.Bases) {
		case 0:
			return r, isUnknownShaped(r)
		case 1:
			base, ok := m.idx.records[r.Bases[0]]
			if !ok {
				return nil, false
			}
			r = base
		default:
			return nil, false
		}
	}
	return nil, false
}

func isUnknownShaped(r *header.Record) bool {
	if len(r.VirtualMethods) < 3 {
		return false
	}
	want := [3]string{"queryinterface", "addref", "release"}
	for i, w := range want {
		if strings.ToLower(r.VirtualMethods[i].Name) != w {
			return false
		}
	}
	return true
}

// isUnknown reports whether a root record is IUnknown itself rather than
// a framework root with its own identity.
func isUnknown(r *header.Record) bool {
	return r.IID.IsZero() || r.IID == comruntime.IIDUnknown
}

// buildInterfaces classifies every record first, so method signatures can
// refer to interfaces declared later, then maps methods base first.
func (m *Model) buildInterfaces() error {
	for _, r := range m.idx.order {
		m.classify(r)
	}
	for _, i := range m.Interfaces {
		declared := i.Record.VirtualMethods
		if len(i.Record.Bases) == 0 {
			declared = declared[3:]
		}

		used := reservedMethodNames(i)
		for b := i.Base; b != nil; b = b.Base {
			for _, mm := range b.Methods {
				used[mm.Name] = true
			}
		}
		for _, hm := range declared {
			mm, err := m.method(i, hm, used)
			if err != nil {
				return err
			}
			i.Methods = append(i.Methods, mm)
		}
	}
	return nil
}

// classify returns the interface model of r, classifying its bases first.
// Records that take part in an IUnknown hierarchy but are not emitted map
// to nil; records outside any hierarchy are left out of m.ifaces.
func (m *Model) classify(r *header.Record) *Interface {
	if i, ok := m.ifaces[r]; ok {
		return i
	}
	root, ok := m.rootOf(r)
	if !ok {
		if len(r.VirtualMethods) > 0 && !r.IID.IsZero() {
			Logger().Warn("interface identity without an IUnknown root, skipped",
				zap.String("record", m.idx.qualified(r)))
		}
		return nil
	}
	if r == root && isUnknown(r) {
		m.ifaces[r] = nil
		return nil
	}
	if r.IID.IsZero() {
		Logger().Warn("interface has no identifier, skipped", zap.String("record", m.idx.qualified(r)))
		m.ifaces[r] = nil
		return nil
	}

	i := &Interface{
		Record: r,
		Name:   m.names[r],
		CName:  r.Name,
		Path:   m.idx.paths[r],
		IID:    r.IID,
	}
	if r != root {
		base := m.idx.records[r.Bases[0]]
		b := m.classify(base)
		if b == nil && !(base == root && isUnknown(base)) {
			Logger().Warn("base interface was skipped, skipping derived",
				zap.String("record", m.idx.qualified(r)),
				zap.String("base", base.Name))
			m.ifaces[r] = nil
			return nil
		}
		i.Base = b
	}

	m.ifaces[r] = i
	m.Interfaces = append(m.Interfaces, i)
	return i
}

func reservedMethodNames(i *Interface) map[string]bool {
	used := map[string]bool{
		"IID": true, "Inherits": true, "Ancestors": true, "Vtbl": true,
		"QueryInterface": true, "AddRef": true, "Release": true, "UnknownVtbl": true,
	}
	for b := i.Base; b != nil; b = b.Base {
		used["As"+b.Name] = true
		used[b.Name+"Vtbl"] = true
	}
	return used
}

func (m *Model) method(i *Interface, hm header.Method, used map[string]bool) (Method, error) {
	name := exportName(hm.Name)
	for n := 2; used[name]; n++ {
		name = exportName(hm.Name) + strconv.Itoa(n)
	}
	used[name] = true

	mm := Method{Name: name, CName: hm.Name, Const: hm.Const}

	if !hm.Result.IsVoid() {
		res, err := m.goType(hm.Result, false)
		if err != nil {
			return Method{}, m.wrapType(err, i, hm.Name)
		}
		mm.Result = res
	}

	taken := make(map[string]bool, len(hm.Arguments))
	for n, a := range hm.Arguments {
		typ, err := m.goType(a.Type, true)
		if err != nil {
			return Method{}, m.wrapType(err, i, hm.Name, a.Name)
		}
		pname := m.paramName(a.Name, n, taken)
		mm.Params = append(mm.Params, Param{Name: pname, Type: typ})
	}
	return mm, nil
}

func (m *Model) wrapType(err error, i *Interface, path ...string) error {
	e, ok := err.(*errors.Error)
	if !ok {
		return err
	}
	e.Path = append(append([]string{i.CName}, path...), e.Path...)
	e.Location = i.Record.Loc
	return e
}

// Identifiers the generated method bodies use.
var localNames = map[string]bool{
	"i": true, "r": true, "v": true, "this": true, "iid": true,
	"unsafe": true, "comruntime": true, "class": true, "C": true, "P": true,
	"bool": true, "byte": true, "int": true, "int8": true, "int16": true, "int32": true,
	"int64": true, "uint": true, "uint8": true, "uint16": true, "uint32": true,
	"uint64": true, "uintptr": true, "float32": true, "float64": true,
	"string": true, "error": true, "any": true, "nil": true, "true": true, "false": true,
}

func (m *Model) paramName(name string, n int, taken map[string]bool) string {
	if name == "" {
		name = "arg" + strconv.Itoa(n)
	}
	for token.IsKeyword(name) || localNames[name] || m.types[name] || taken[name] {
		name += "_"
	}
	taken[name] = true
	return name
}

// goType maps a header type to Go. Parameters decay arrays to pointers.
func (m *Model) goType(t header.Type, param bool) (string, error) {
	switch t.Kind {
	case header.KindVoid:
		return "", errors.Unsupported(errors.PhaseEmit, "void value")
	case header.KindPointer, header.KindReference:
		elem := *t.Elem
		if elem.IsVoid() {
			m.unsafe = true
			return "unsafe.Pointer", nil
		}
		if resolved := m.idx.resolve(elem); resolved.Kind == header.KindPointer && resolved.Elem.IsVoid() {
			m.unsafe = true
			return "*unsafe.Pointer", nil
		}
		s, err := m.goType(elem, false)
		if err != nil {
			return "", err
		}
		return "*" + s, nil
	case header.KindRecord:
		r, ok := m.idx.records[t.Name]
		if !ok {
			// Forward declared only: usable behind a pointer.
			m.unsafe = true
			return "unsafe.Pointer", nil
		}
		if i, ok := m.ifaces[r]; ok && i == nil {
			return "comruntime.IUnknown", nil
		}
		return m.names[r], nil
	case header.KindUnnamedRecord:
		if name, ok := m.names[t.Record]; ok {
			return name, nil
		}
		return "", errors.Unsupported(errors.PhaseEmit, "unnamed record outside a struct")
	case header.KindTypedef:
		if param {
			if r := m.idx.resolve(t); r.Kind == header.KindArray {
				return m.goType(r, true)
			}
		}
		switch t.Name {
		case "size_t", "uintptr_t":
			return "uintptr", nil
		case "ptrdiff_t", "intptr_t":
			return "int", nil
		}
		if name, ok := m.aliases[t.Name]; ok {
			return name, nil
		}
		td, ok := m.idx.typedefs[t.Name]
		if !ok {
			return "", errors.NotFound(errors.PhaseEmit, []string{t.Name}, "typedef")
		}
		return m.goType(td, param)
	case header.KindArray:
		elem, err := m.goType(*t.Elem, false)
		if err != nil {
			return "", err
		}
		if param {
			return "*" + elem, nil
		}
		return "[" + strconv.Itoa(t.Size) + "]" + elem, nil
	}

	w, ok := t.WithLong(m.target.LongSize).Primitive()
	if !ok {
		return "", errors.Unsupported(errors.PhaseEmit, "no Go type for "+t.String())
	}
	return witGoNames[w], nil
}

var witGoNames = map[wit.Type]string{
	wit.Bool{}: "bool",
	wit.S8{}:   "int8",
	wit.U8{}:   "uint8",
	wit.S16{}:  "int16",
	wit.U16{}:  "uint16",
	wit.S32{}:  "int32",
	wit.U32{}:  "uint32",
	wit.S64{}:  "int64",
	wit.U64{}:  "uint64",
	wit.F32{}:  "float32",
	wit.F64{}:  "float64",
}

func (m *Model) buildAliases() error {
	for _, td := range m.idx.aliases {
		name, ok := m.aliases[td.Name]
		if !ok {
			continue
		}
		typ, err := m.goType(td.Type, false)
		if err != nil {
			return wrapPath(err, td.Name)
		}
		m.Aliases = append(m.Aliases, Alias{Name: name, CName: td.Name, Type: typ})
	}
	return nil
}

func (m *Model) buildStructs() error {
	for _, r := range m.idx.order {
		if _, ok := m.ifaces[r]; ok {
			continue
		}
		if err := m.addStruct(r, m.names[r]); err != nil {
			return err
		}
	}
	for _, td := range m.idx.aliases {
		if td.Type.Kind != header.KindUnnamedRecord || m.names[td.Type.Record] != exportName(td.Name) {
			continue
		}
		if err := m.addStruct(td.Type.Record, m.names[td.Type.Record]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) addStruct(r *header.Record, name string) error {
	info, err := m.calc.Record(r)
	if err != nil {
		return err
	}
	s := &Struct{Name: name, CName: r.Name, Info: info, Union: r.Kind == header.Union}
	if s.CName == "" {
		s.CName = name
	}

	taken := map[string]bool{}
	var nested []*header.Record
	var nestedNames []string

	var fields []Param
	if info.Vptr {
		m.unsafe = true
		fields = append(fields, Param{Name: "Vtbl", Type: "unsafe.Pointer"})
		taken["Vtbl"] = true
	}
	for _, b := range r.Bases {
		base, ok := m.idx.records[b]
		if !ok {
			return errors.NotFound(errors.PhaseEmit, []string{r.Name, b}, "base record")
		}
		fields = append(fields, Param{Name: "", Type: m.names[base]})
		taken[m.names[base]] = true
	}

	for n, f := range r.Fields {
		fname := exportName(f.Name)
		typ := ""
		if f.Type.Kind == header.KindUnnamedRecord {
			if _, named := m.names[f.Type.Record]; !named {
				inner := name + "Anon" + strconv.Itoa(n)
				m.names[f.Type.Record] = inner
				nested = append(nested, f.Type.Record)
				nestedNames = append(nestedNames, inner)
			}
			if f.Name == "" {
				fname = "Anon" + strconv.Itoa(n)
			}
		}
		t, err := m.goType(f.Type, false)
		if err != nil {
			return wrapPath(err, r.Name, f.Name)
		}
		typ = t
		for taken[fname] {
			fname += "_"
		}
		taken[fname] = true
		fields = append(fields, Param{Name: fname, Type: typ})
	}

	if s.Union {
		s.Members = fields
		unit, n := unionStorage(info)
		s.Fields = []Param{{Name: "Data", Type: "[" + strconv.Itoa(n) + "]" + unit}}
	} else {
		s.Fields = fields
	}
	m.Structs = append(m.Structs, s)

	for k, inner := range nested {
		if err := m.addStruct(inner, nestedNames[k]); err != nil {
			return err
		}
	}
	return nil
}

// unionStorage picks an element type with the union's alignment and the
// count that covers its size.
func unionStorage(info Info) (string, int) {
	unit := map[uintptr]string{1: "uint8", 2: "uint16", 4: "uint32", 8: "uint64"}[info.Align]
	if unit == "" {
		unit = "uint8"
		return unit, int(info.Size)
	}
	return unit, int(info.Size / info.Align)
}

func (m *Model) buildConsts() error {
	seen := make(map[string]bool)
	for _, e := range m.idx.enums {
		typ, err := m.goType(e.Type, false)
		if err != nil {
			return wrapPath(err, e.Name)
		}
		for _, v := range e.Values {
			name := exportName(v.Name)
			if seen[name] || m.types[name] {
				Logger().Warn("enumerator name collides, skipped", zap.String("enum", e.Name), zap.String("name", v.Name))
				continue
			}
			seen[name] = true
			m.Consts = append(m.Consts, Const{Name: name, Enum: e.Name, Type: typ, Value: v.Value})
		}
	}
	return nil
}

func wrapPath(err error, path ...string) error {
	if e, ok := err.(*errors.Error); ok {
		e.Path = append(append([]string(nil), path...), e.Path...)
	}
	return err
}

// exportName returns the exported Go spelling of a C identifier.
func exportName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || !unicode.IsLetter(r) {
		return "X" + name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// Ancestors returns the interfaces i extends, nearest first, not
// including IUnknown.
func (i *Interface) Ancestors() []*Interface {
	var out []*Interface
	for b := i.Base; b != nil; b = b.Base {
		out = append(out, b)
	}
	return out
}

// AllMethods returns the methods of every ancestor followed by i's own, in
// dispatch-table order after the three IUnknown slots.
func (i *Interface) AllMethods() []Method {
	var chain []*Interface
	for c := i; c != nil; c = c.Base {
		chain = append(chain, c)
	}
	var out []Method
	for k := len(chain) - 1; k >= 0; k-- {
		out = append(out, chain[k].Methods...)
	}
	return out
}

// Slots returns every dispatch-table slot of i with its byte offset for
// target.
func (i *Interface) Slots(target Target) []Slot {
	target = target.orHost()
	root := "IUnknown"
	for c := i; c != nil; c = c.Base {
		if c.Base == nil && c.Record != nil && len(c.Record.Bases) == 0 {
			root = c.CName
		}
	}
	slots := []Slot{
		{Name: "QueryInterface", Owner: root},
		{Name: "AddRef", Owner: root},
		{Name: "Release", Owner: root},
	}

	var chain []*Interface
	for c := i; c != nil; c = c.Base {
		chain = append(chain, c)
	}
	for k := len(chain) - 1; k >= 0; k-- {
		for _, mm := range chain[k].Methods {
			slots = append(slots, Slot{Name: mm.CName, Owner: chain[k].CName})
		}
	}
	for n := range slots {
		slots[n].Index = n
		slots[n].Offset = uintptr(n * target.PointerSize)
	}
	return slots
}

// BaseName returns the Go type i extends.
func (i *Interface) BaseName() string {
	if i.Base == nil {
		return "comruntime.IUnknown"
	}
	return i.Base.Name
}

// BaseVtbl returns the dispatch-table type i's table embeds.
func (i *Interface) BaseVtbl() string {
	if i.Base == nil {
		return "comruntime.UnknownVtbl"
	}
	return i.Base.Name + "Vtbl"
}

// AncestorIIDs returns the identifier expressions of every ancestor,
// nearest first, ending with IUnknown.
func (i *Interface) AncestorIIDs() []string {
	var out []string
	for _, a := range i.Ancestors() {
		out = append(out, "IID"+a.Name)
	}
	return append(out, "comruntime.IIDUnknown")
}

// Signature returns the parameter list and result of m as Go source.
func (mm Method) Signature() string {
	var b strings.Builder
	b.WriteString("(")
	for n, p := range mm.Params {
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name + " " + p.Type)
	}
	b.WriteString(")")
	if mm.Result != "" {
		b.WriteString(" " + mm.Result)
	}
	return b.String()
}

// FuncType returns the Go signature of m's dispatch-table entry point.
func (mm Method) FuncType() string {
	var b strings.Builder
	b.WriteString("func(this unsafe.Pointer")
	for _, p := range mm.Params {
		b.WriteString(", " + p.Name + " " + p.Type)
	}
	b.WriteString(")")
	if mm.Result != "" {
		b.WriteString(" " + mm.Result)
	}
	return b.String()
}

// Args returns the parameter names of m as a call argument list.
func (mm Method) Args() string {
	names := make([]string, len(mm.Params))
	for n, p := range mm.Params {
		names[n] = p.Name
	}
	return strings.Join(names, ", ")
}
