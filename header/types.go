package header

import (
	"sort"
	"strconv"
	"strings"

	comruntime "github.com/wippyai/com-runtime"
	"github.com/wippyai/com-runtime/errors"
)

// Namespace holds the declarations of one C++ namespace. Records, typedefs
// and enums keep declaration order.
type Namespace struct {
	Children map[string]*Namespace
	Typedefs []Typedef
	Records  []*Record
	Enums    []Enum
}

// NewNamespace returns an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{Children: make(map[string]*Namespace)}
}

func (ns *Namespace) child(name string) *Namespace {
	c, ok := ns.Children[name]
	if !ok {
		c = NewNamespace()
		ns.Children[name] = c
	}
	return c
}

// ChildNames returns the names of nested namespaces in sorted order.
func (ns *Namespace) ChildNames() []string {
	names := make([]string, 0, len(ns.Children))
	for name := range ns.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Record returns the record declared directly in ns with the given name.
func (ns *Namespace) Record(name string) (*Record, bool) {
	for _, r := range ns.Records {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Walk calls fn for ns and every nested namespace, parents first and
// children in sorted order. path is nil for ns itself.
func (ns *Namespace) Walk(fn func(path []string, ns *Namespace)) {
	ns.walk(nil, fn)
}

func (ns *Namespace) walk(path []string, fn func([]string, *Namespace)) {
	fn(path, ns)
	for _, name := range ns.ChildNames() {
		p := make([]string, len(path)+1)
		copy(p, path)
		p[len(path)] = name
		ns.Children[name].walk(p, fn)
	}
}

// Typedef is a typedef or using alias.
type Typedef struct {
	Name string
	Type Type
}

// Enum is an enumeration. Uses of the enum type resolve to Type.
type Enum struct {
	Name   string
	Type   Type
	Values []EnumValue
}

// EnumValue is one enumerator with its evaluated value.
type EnumValue struct {
	Name  string
	Value int64
}

// RecordKind distinguishes structs and classes from unions.
type RecordKind uint8

const (
	Struct RecordKind = iota
	Union
)

func (k RecordKind) String() string {
	if k == Union {
		return "union"
	}
	return "struct"
}

// Record is a struct, class or union definition.
type Record struct {
	Name           string
	Kind           RecordKind
	Fields         []Field
	Bases          []string
	VirtualMethods []Method
	// IID is the record's interface identity, zero when none was declared.
	IID comruntime.GUID
	Loc errors.Location
}

// Field is a data member. Anonymous nested records have an empty name.
type Field struct {
	Name string
	Type Type
}

// Method is a virtual member function.
type Method struct {
	Name      string
	Arguments []Argument
	Result    Type
	Const     bool
}

// Argument is a method parameter. Unnamed parameters have an empty name.
type Argument struct {
	Name string
	Type Type
}

// Kind identifies the shape of a Type.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindChar
	KindUChar
	KindUShort
	KindUInt
	KindULong
	KindULongLong
	KindSChar
	KindShort
	KindInt
	KindLong
	KindLongLong
	KindUnsigned
	KindSigned
	KindFloat
	KindDouble
	KindPointer
	KindReference
	KindRecord
	KindUnnamedRecord
	KindTypedef
	KindArray
)

var kindNames = [...]string{
	KindVoid:          "void",
	KindBool:          "bool",
	KindChar:          "char",
	KindUChar:         "unsigned char",
	KindUShort:        "unsigned short",
	KindUInt:          "unsigned int",
	KindULong:         "unsigned long",
	KindULongLong:     "unsigned long long",
	KindSChar:         "signed char",
	KindShort:         "short",
	KindInt:           "int",
	KindLong:          "long",
	KindLongLong:      "long long",
	KindUnsigned:      "unsigned",
	KindSigned:        "signed",
	KindFloat:         "float",
	KindDouble:        "double",
	KindPointer:       "pointer",
	KindReference:     "reference",
	KindRecord:        "record",
	KindUnnamedRecord: "unnamed record",
	KindTypedef:       "typedef",
	KindArray:         "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Type is a C type as written in a declaration.
type Type struct {
	// Elem is the pointee of a pointer or reference and the element of an array.
	Elem *Type
	// Record is the definition of an unnamed record.
	Record *Record
	// Name is the unqualified name of a record or typedef.
	Name string
	// Size is the byte width of KindUnsigned and KindSigned and the length
	// of KindArray.
	Size int
	Kind Kind
	// Const marks a pointer or reference to const.
	Const bool
}

// Primitive types without payload.
var (
	Void      = Type{Kind: KindVoid}
	Bool      = Type{Kind: KindBool}
	Char      = Type{Kind: KindChar}
	UChar     = Type{Kind: KindUChar}
	UShort    = Type{Kind: KindUShort}
	UInt      = Type{Kind: KindUInt}
	ULong     = Type{Kind: KindULong}
	ULongLong = Type{Kind: KindULongLong}
	SChar     = Type{Kind: KindSChar}
	Short     = Type{Kind: KindShort}
	Int       = Type{Kind: KindInt}
	Long      = Type{Kind: KindLong}
	LongLong  = Type{Kind: KindLongLong}
	Float     = Type{Kind: KindFloat}
	Double    = Type{Kind: KindDouble}
)

// Unsigned returns a fixed-width unsigned integer of size bytes.
func Unsigned(size int) Type { return Type{Kind: KindUnsigned, Size: size} }

// Signed returns a fixed-width signed integer of size bytes.
func Signed(size int) Type { return Type{Kind: KindSigned, Size: size} }

// PointerTo returns a pointer to elem.
func PointerTo(elem Type, isConst bool) Type {
	return Type{Kind: KindPointer, Elem: &elem, Const: isConst}
}

// ReferenceTo returns a reference to elem.
func ReferenceTo(elem Type, isConst bool) Type {
	return Type{Kind: KindReference, Elem: &elem, Const: isConst}
}

// ArrayOf returns a fixed-length array.
func ArrayOf(n int, elem Type) Type {
	return Type{Kind: KindArray, Elem: &elem, Size: n}
}

// RecordNamed refers to a named struct, class or union.
func RecordNamed(name string) Type { return Type{Kind: KindRecord, Name: name} }

// TypedefNamed refers to a typedef.
func TypedefNamed(name string) Type { return Type{Kind: KindTypedef, Name: name} }

// IsVoid reports whether t is void.
func (t Type) IsVoid() bool { return t.Kind == KindVoid }

// IsPointer reports whether t is a pointer or reference.
func (t Type) IsPointer() bool {
	return t.Kind == KindPointer || t.Kind == KindReference
}

// String returns a C-like spelling of t.
func (t Type) String() string {
	switch t.Kind {
	case KindUnsigned:
		return "uint" + strconv.Itoa(t.Size*8) + "_t"
	case KindSigned:
		return "int" + strconv.Itoa(t.Size*8) + "_t"
	case KindPointer, KindReference:
		var b strings.Builder
		if t.Const {
			b.WriteString("const ")
		}
		b.WriteString(t.Elem.String())
		if t.Kind == KindPointer {
			b.WriteString("*")
		} else {
			b.WriteString("&")
		}
		return b.String()
	case KindRecord, KindTypedef:
		return t.Name
	case KindUnnamedRecord:
		if t.Record != nil {
			return t.Record.Kind.String() + " {...}"
		}
		return "struct {...}"
	case KindArray:
		return t.Elem.String() + "[" + strconv.Itoa(t.Size) + "]"
	}
	return t.Kind.String()
}
