package header

import (
	"os"
	"strconv"
	"strings"

	comruntime "github.com/wippyai/com-runtime"
	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/header/internal/token"
)

// Options configures Parse.
type Options struct {
	// File names the input in error locations.
	File string
	// Skip lists namespace, record, typedef and enum names to leave out of
	// the result. Skipped types may still be referenced.
	Skip []string
	// Ignore lists identifiers that expand to nothing, in addition to the
	// built-in calling convention and specifier macros.
	Ignore []string
	// WCharSize is the width of wchar_t in bytes. Zero means 2.
	WCharSize int
}

// ignoredIdents expand to nothing in the headers this package reads.
var ignoredIdents = []string{
	"__stdcall", "__cdecl", "__fastcall", "__thiscall", "__vectorcall",
	"STDMETHODCALLTYPE", "WINAPI", "APIENTRY", "CALLBACK",
	"PLUGIN_API", "SMTG_OVERRIDE",
	"override", "final", "volatile", "inline", "explicit", "mutable", "noexcept",
	"DECLSPEC_NOVTABLE",
}

// fixedWidth are the <cstdint> typedefs, resolved as if declared in a
// system header.
var fixedWidth = map[string]Type{
	"int8_t":   Signed(1),
	"int16_t":  Signed(2),
	"int32_t":  Signed(4),
	"int64_t":  Signed(8),
	"uint8_t":  Unsigned(1),
	"uint16_t": Unsigned(2),
	"uint32_t": Unsigned(4),
	"uint64_t": Unsigned(8),
}

// Builtin typedefs whose width depends on the target. They stay typedef
// references for the consumer to resolve.
var targetTypedefs = map[string]bool{
	"size_t":    true,
	"ptrdiff_t": true,
	"intptr_t":  true,
	"uintptr_t": true,
}

// Parse reads header source into a namespace tree.
func Parse(src string, opts Options) (*Namespace, error) {
	p := newParser(src, opts)
	ns := NewNamespace()
	if err := p.parseItems(ns, false); err != nil {
		return nil, err
	}
	p.assignGUIDs()
	return ns, nil
}

// ParseFile reads and parses the header at path.
func ParseFile(path string, opts Options) (*Namespace, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidInput, err, "read "+path)
	}
	if opts.File == "" {
		opts.File = path
	}
	return Parse(string(src), opts)
}

type symbolKind uint8

const (
	symRecord symbolKind = iota
	symTypedef
	symEnum
)

type symbol struct {
	enumType Type
	kind     symbolKind
}

type parser struct {
	skip      map[string]bool
	symbols   map[string]symbol
	constants map[string]int64
	guids     map[string]comruntime.GUID
	records   []*Record
	file      string
	tokens    []token.Token
	pos       int
	wcharSize int
}

func newParser(src string, opts Options) *parser {
	ignore := make(map[string]bool, len(ignoredIdents)+len(opts.Ignore))
	for _, s := range ignoredIdents {
		ignore[s] = true
	}
	for _, s := range opts.Ignore {
		ignore[s] = true
	}

	var tokens []token.Token
	for _, t := range token.Tokenize(src) {
		if t.Type == token.Ident && ignore[t.Value] {
			continue
		}
		tokens = append(tokens, t)
	}

	skip := make(map[string]bool, len(opts.Skip))
	for _, s := range opts.Skip {
		skip[s] = true
	}

	wchar := opts.WCharSize
	if wchar == 0 {
		wchar = 2
	}

	return &parser{
		tokens:    tokens,
		file:      opts.File,
		skip:      skip,
		wcharSize: wchar,
		symbols:   make(map[string]symbol),
		constants: make(map[string]int64),
		guids:     make(map[string]comruntime.GUID),
	}
}

func (p *parser) peek() *token.Token {
	return p.peekAt(0)
}

func (p *parser) peekAt(n int) *token.Token {
	if p.pos+n >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos+n]
}

func (p *parser) next() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

// is reports whether the next token is the punctuation or keyword s.
func (p *parser) is(s string) bool {
	t := p.peek()
	return t != nil && t.Is(s)
}

// accept consumes the next token if it is s.
func (p *parser) accept(s string) bool {
	if p.is(s) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(s string) error {
	t := p.next()
	if t == nil {
		return p.errorf(nil, "expected %q, got end of input", s)
	}
	if !t.Is(s) {
		return p.errorf(t, "expected %q, got %q", s, t.Value)
	}
	return nil
}

func (p *parser) expectIdent() (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, p.errorf(nil, "expected identifier, got end of input")
	}
	if t.Type != token.Ident {
		return nil, p.errorf(t, "expected identifier, got %q", t.Value)
	}
	return t, nil
}

func (p *parser) loc(t *token.Token) errors.Location {
	if t == nil {
		if len(p.tokens) == 0 {
			return errors.Location{File: p.file, Line: 1, Col: 1}
		}
		t = &p.tokens[len(p.tokens)-1]
	}
	return errors.Location{File: p.file, Line: t.Line, Col: t.Col}
}

func (p *parser) errorf(t *token.Token, format string, args ...any) error {
	if t != nil && t.Type == token.Invalid {
		return errors.Syntax(p.loc(t), "%s", t.Value)
	}
	return errors.Syntax(p.loc(t), format, args...)
}

func (p *parser) unsupported(t *token.Token, format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindUnsupported).
		At(p.loc(t)).
		Detail(format, args...).
		Build()
}

// parseItems parses namespace-scope declarations until EOF, or until the
// closing brace when nested is set.
func (p *parser) parseItems(ns *Namespace, nested bool) error {
	for {
		t := p.peek()
		if t == nil {
			if nested {
				return p.errorf(nil, "expected \"}\", got end of input")
			}
			return nil
		}
		if nested && t.Is("}") {
			p.pos++
			return nil
		}
		if err := p.parseItem(ns); err != nil {
			return err
		}
	}
}

func (p *parser) parseItem(ns *Namespace) error {
	t := p.peek()
	if t.Type == token.Invalid {
		return p.errorf(t, "")
	}

	switch {
	case t.Is(";"):
		p.pos++
		return nil
	case t.Is("}"):
		return p.errorf(t, "unexpected \"}\"")
	case t.Is("namespace"):
		return p.parseNamespace(ns)
	case t.Is("extern"):
		p.pos++
		if s := p.peek(); s != nil && s.Type == token.String {
			p.pos++
			if p.accept("{") {
				return p.parseItems(ns, true)
			}
		}
		return p.parseItem(ns)
	case t.Is("template"):
		p.pos++
		if err := p.skipAngles(); err != nil {
			return err
		}
		return p.skipDeclaration()
	case t.Is("typedef"):
		return p.parseTypedef(ns)
	case t.Is("using"):
		return p.parseUsing(ns)
	case isRecordKeyword(t):
		if _, _, err := p.parseRecordDecl(ns); err != nil {
			return err
		}
		// Variables declared with the record type are not interesting.
		return p.skipDeclaration()
	case t.Is("enum"):
		if _, err := p.parseEnum(ns, ""); err != nil {
			return err
		}
		return p.skipDeclaration()
	case t.Is("DEFINE_GUID"):
		return p.parseDefineGUID()
	}
	return p.skipDeclaration()
}

func isRecordKeyword(t *token.Token) bool {
	return t.Is("struct") || t.Is("class") || t.Is("union") ||
		t.Is("interface") || t.Is("MIDL_INTERFACE")
}

func (p *parser) parseNamespace(ns *Namespace) error {
	p.pos++ // namespace

	var path []string
	for {
		t := p.peek()
		if t == nil || t.Type != token.Ident {
			break
		}
		path = append(path, t.Value)
		p.pos++
		if !p.accept("::") {
			break
		}
	}

	if p.accept("=") {
		return p.skipDeclaration()
	}
	if !p.is("{") {
		return p.errorf(p.peek(), "expected \"{\" after namespace")
	}

	// Anonymous namespaces have internal linkage and hold nothing to bind.
	if len(path) == 0 {
		return p.skipBalanced()
	}
	for _, name := range path {
		if p.skip[name] {
			return p.skipBalanced()
		}
	}
	p.pos++

	child := ns
	for _, name := range path {
		child = child.child(name)
	}
	return p.parseItems(child, true)
}

// skipDeclaration consumes tokens up to and including the next ';' at
// nesting depth zero. A brace block at depth zero ends the declaration too,
// as for function definitions.
func (p *parser) skipDeclaration() error {
	depth := 0
	for {
		t := p.peek()
		if t == nil {
			if depth == 0 {
				return nil
			}
			return p.errorf(nil, "unbalanced brackets at end of input")
		}
		if t.Type == token.Invalid {
			return p.errorf(t, "")
		}
		switch {
		case t.Is("(") || t.Is("["):
			depth++
		case t.Is(")") || t.Is("]"):
			depth--
		case t.Is("{"):
			if depth == 0 {
				if err := p.skipBalanced(); err != nil {
					return err
				}
				p.accept(";")
				return nil
			}
			depth++
		case t.Is("}"):
			if depth == 0 {
				// End of the enclosing scope; leave it for the caller.
				return nil
			}
			depth--
		case t.Is(";"):
			if depth == 0 {
				p.pos++
				return nil
			}
		}
		p.pos++
	}
}

// skipBalanced consumes a bracketed group starting at the current token.
func (p *parser) skipBalanced() error {
	open := p.next()
	if open == nil {
		return p.errorf(nil, "unexpected end of input")
	}
	stack := []string{closer(open.Value)}
	for len(stack) > 0 {
		t := p.next()
		if t == nil {
			return p.errorf(open, "unclosed %q", open.Value)
		}
		if t.Type == token.Invalid {
			return p.errorf(t, "")
		}
		if t.Type != token.Punct {
			continue
		}
		switch t.Value {
		case "(", "[", "{":
			stack = append(stack, closer(t.Value))
		case ")", "]", "}":
			if t.Value != stack[len(stack)-1] {
				return p.errorf(t, "unexpected %q", t.Value)
			}
			stack = stack[:len(stack)-1]
		}
	}
	return nil
}

func closer(open string) string {
	switch open {
	case "(":
		return ")"
	case "[":
		return "]"
	}
	return "}"
}

// skipAngles consumes a template argument or parameter list.
func (p *parser) skipAngles() error {
	start := p.peek()
	if err := p.expect("<"); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		t := p.next()
		if t == nil {
			return p.errorf(start, "unclosed template brackets")
		}
		switch {
		case t.Is("<"):
			depth++
		case t.Is(">"):
			depth--
		case t.Is(">>"):
			depth -= 2
		case t.Is("(") || t.Is("{") || t.Is("["):
			p.pos--
			if err := p.skipBalanced(); err != nil {
				return err
			}
		}
	}
	return nil
}

// skipAttributes consumes attribute syntax in front of a declaration name
// and returns any identity found in it.
func (p *parser) skipAttributes() (comruntime.GUID, error) {
	var iid comruntime.GUID
	for {
		t := p.peek()
		if t == nil {
			return iid, nil
		}
		switch {
		case t.Is("__declspec"):
			p.pos++
			g, err := p.parseDeclspec()
			if err != nil {
				return iid, err
			}
			if !g.IsZero() {
				iid = g
			}
		case t.Is("DECLSPEC_UUID"):
			p.pos++
			g, err := p.parseUUIDArg()
			if err != nil {
				return iid, err
			}
			iid = g
		case t.Is("__attribute__") || t.Is("alignas"):
			p.pos++
			if err := p.skipBalanced(); err != nil {
				return iid, err
			}
		case t.Is("[") && p.peekAt(1) != nil && p.peekAt(1).Is("["):
			if err := p.skipBalanced(); err != nil {
				return iid, err
			}
		default:
			return iid, nil
		}
	}
}

// parseDeclspec parses the parenthesised part of __declspec(...).
func (p *parser) parseDeclspec() (comruntime.GUID, error) {
	var iid comruntime.GUID
	if err := p.expect("("); err != nil {
		return iid, err
	}
	for !p.is(")") {
		t := p.next()
		if t == nil {
			return iid, p.errorf(nil, "unclosed __declspec")
		}
		if t.Is("uuid") {
			g, err := p.parseUUIDArg()
			if err != nil {
				return iid, err
			}
			iid = g
			continue
		}
		if t.Is("(") {
			p.pos--
			if err := p.skipBalanced(); err != nil {
				return iid, err
			}
		}
	}
	p.pos++
	return iid, nil
}

// parseUUIDArg parses ("xxxxxxxx-xxxx-...").
func (p *parser) parseUUIDArg() (comruntime.GUID, error) {
	if err := p.expect("("); err != nil {
		return comruntime.GUID{}, err
	}
	t := p.next()
	if t == nil || t.Type != token.String {
		return comruntime.GUID{}, p.errorf(t, "expected interface identifier string")
	}
	g, err := comruntime.ParseGUID(t.Value)
	if err != nil {
		return comruntime.GUID{}, errors.New(errors.PhaseParse, errors.KindInvalidInput).
			At(p.loc(t)).
			Value(t.Value).
			Cause(err).
			Detail("malformed interface identifier").
			Build()
	}
	if err := p.expect(")"); err != nil {
		return comruntime.GUID{}, err
	}
	return g, nil
}

// parseQualifiedName reads A::B::C and returns C.
func (p *parser) parseQualifiedName() (*token.Token, error) {
	p.accept("::")
	for {
		t, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if !p.is("::") {
			if p.is("<") {
				return nil, p.unsupported(p.peek(), "template arguments on %s", t.Value)
			}
			return t, nil
		}
		p.pos++
	}
}

// parseRecordDecl parses a record head and, when present, its body. It
// returns the record for a definition and nil for a forward declaration or
// elaborated type use, along with the declared name. The current token is
// left after the closing brace.
func (p *parser) parseRecordDecl(ns *Namespace) (*Record, string, error) {
	head := p.next()
	kind := Struct
	var iid comruntime.GUID

	switch {
	case head.Is("union"):
		kind = Union
	case head.Is("MIDL_INTERFACE"):
		g, err := p.parseUUIDArg()
		if err != nil {
			return nil, "", err
		}
		iid = g
	}

	g, err := p.skipAttributes()
	if err != nil {
		return nil, "", err
	}
	if !g.IsZero() {
		iid = g
	}

	var name string
	nameTok := head
	if t := p.peek(); t != nil && (t.Type == token.Ident || t.Is("::")) {
		nt, err := p.parseQualifiedName()
		if err != nil {
			return nil, "", err
		}
		name = nt.Value
		nameTok = nt
		p.symbols[name] = symbol{kind: symRecord}
	}

	var bases []string
	if p.is(":") {
		p.pos++
		for {
			for p.accept("public") || p.accept("protected") || p.accept("private") || p.accept("virtual") {
			}
			bt, err := p.parseQualifiedName()
			if err != nil {
				return nil, "", err
			}
			bases = append(bases, bt.Value)
			if !p.accept(",") {
				break
			}
		}
	}

	if !p.is("{") {
		return nil, name, nil
	}
	p.pos++

	rec := &Record{
		Name:  name,
		Kind:  kind,
		Bases: bases,
		IID:   iid,
		Loc:   p.loc(nameTok),
	}
	if name != "" && !p.skip[name] {
		ns.Records = append(ns.Records, rec)
		p.records = append(p.records, rec)
	}

	if err := p.parseRecordBody(ns, rec); err != nil {
		return nil, "", err
	}
	return rec, name, nil
}

func (p *parser) parseRecordBody(ns *Namespace, rec *Record) error {
	for {
		t := p.peek()
		if t == nil {
			return p.errorf(nil, "unclosed record %s", rec.Name)
		}
		if t.Type == token.Invalid {
			return p.errorf(t, "")
		}

		switch {
		case t.Is("}"):
			p.pos++
			return nil
		case t.Is(";"):
			p.pos++
		case (t.Is("public") || t.Is("protected") || t.Is("private")) && p.peekAt(1) != nil && p.peekAt(1).Is(":"):
			p.pos += 2
		case t.Is("virtual"):
			m, ok, err := p.parseVirtual()
			if err != nil {
				return err
			}
			if ok {
				rec.VirtualMethods = append(rec.VirtualMethods, m)
			}
		case t.Is("typedef"):
			if err := p.parseTypedef(ns); err != nil {
				return err
			}
		case t.Is("using"):
			if err := p.parseUsing(ns); err != nil {
				return err
			}
		case t.Is("static") || t.Is("friend") || t.Is("template") || t.Is("static_assert") || t.Is("~"):
			if t.Is("template") {
				p.pos++
				if err := p.skipAngles(); err != nil {
					return err
				}
			}
			if err := p.skipDeclaration(); err != nil {
				return err
			}
		case t.Type == token.Ident && t.Value == rec.Name && p.peekAt(1) != nil && p.peekAt(1).Is("("):
			// Constructor
			if err := p.skipDeclaration(); err != nil {
				return err
			}
		case isRecordKeyword(t):
			if err := p.parseNestedRecord(ns, rec); err != nil {
				return err
			}
		case t.Is("enum"):
			e, err := p.parseEnum(ns, "")
			if err != nil {
				return err
			}
			if p.accept(";") {
				continue
			}
			if err := p.parseFields(rec, e.Type, false); err != nil {
				return err
			}
		default:
			base, isConst, err := p.parseDeclSpec()
			if err != nil {
				return err
			}
			if err := p.parseFields(rec, base, isConst); err != nil {
				return err
			}
		}
	}
}

func (p *parser) parseNestedRecord(ns *Namespace, outer *Record) error {
	inner, name, err := p.parseRecordDecl(ns)
	if err != nil {
		return err
	}

	var typ Type
	switch {
	case inner == nil:
		// Elaborated type use or forward declaration.
		if p.accept(";") {
			return nil
		}
		typ = RecordNamed(name)
	case inner.Name == "":
		typ = Type{Kind: KindUnnamedRecord, Record: inner}
		if p.accept(";") {
			outer.Fields = append(outer.Fields, Field{Type: typ})
			return nil
		}
	default:
		typ = RecordNamed(inner.Name)
		if p.accept(";") {
			return nil
		}
	}
	return p.parseFields(outer, typ, false)
}

// parseFields parses the declarators of a member declaration after its
// specifiers, through the terminating ';'.
func (p *parser) parseFields(rec *Record, base Type, isConst bool) error {
	for {
		start := p.peek()
		d, err := p.parseDeclarator(base, isConst, false)
		if err != nil {
			return err
		}
		if d.isFunc {
			// Non-virtual member function.
			return p.skipDeclaration()
		}
		if d.name == "" {
			return p.errorf(start, "expected member name")
		}
		if p.is(":") {
			return p.unsupported(p.peek(), "bitfield %s", d.name)
		}
		rec.Fields = append(rec.Fields, Field{Name: d.name, Type: d.typ})

		if p.is("=") || p.is("{") {
			if err := p.skipInitializer(); err != nil {
				return err
			}
		}
		if p.accept(",") {
			continue
		}
		return p.expect(";")
	}
}

// skipInitializer consumes a default member initializer up to the next ','
// or ';' at depth zero.
func (p *parser) skipInitializer() error {
	for {
		t := p.peek()
		if t == nil {
			return p.errorf(nil, "unexpected end of input in initializer")
		}
		if t.Is(",") || t.Is(";") {
			return nil
		}
		if t.Is("(") || t.Is("{") || t.Is("[") {
			if err := p.skipBalanced(); err != nil {
				return err
			}
			continue
		}
		p.pos++
	}
}

// parseVirtual parses a virtual member function. Destructors are skipped
// and reported with ok false.
func (p *parser) parseVirtual() (Method, bool, error) {
	p.pos++ // virtual
	if p.is("~") {
		return Method{}, false, p.skipDeclaration()
	}

	start := p.peek()
	result, isConst, err := p.parseDeclSpec()
	if err != nil {
		return Method{}, false, err
	}
	result = p.applyPointers(result, isConst)

	nameTok := p.peek()
	if nameTok == nil || nameTok.Type != token.Ident {
		return Method{}, false, p.errorf(nameTok, "expected method name")
	}
	if nameTok.Is("operator") {
		return Method{}, false, p.unsupported(nameTok, "virtual operator")
	}
	p.pos++

	if !p.is("(") {
		return Method{}, false, p.errorf(start, "expected parameter list after virtual %s", nameTok.Value)
	}
	args, err := p.parseParams()
	if err != nil {
		return Method{}, false, err
	}

	m := Method{Name: nameTok.Value, Arguments: args, Result: result}
	if p.accept("const") {
		m.Const = true
	}

	switch {
	case p.accept("="):
		// = 0, = default, = delete
		p.next()
		if err := p.expect(";"); err != nil {
			return Method{}, false, err
		}
	case p.is("{"):
		if err := p.skipBalanced(); err != nil {
			return Method{}, false, err
		}
		p.accept(";")
	default:
		if err := p.expect(";"); err != nil {
			return Method{}, false, err
		}
	}
	return m, true, nil
}

// applyPointers consumes pointer and reference operators after a type.
func (p *parser) applyPointers(typ Type, pointeeConst bool) Type {
	for {
		switch {
		case p.accept("*"):
			typ = PointerTo(typ, pointeeConst)
			pointeeConst = false
		case p.accept("&") || p.accept("&&"):
			typ = ReferenceTo(typ, pointeeConst)
			pointeeConst = false
		case p.accept("const"):
			pointeeConst = true
		default:
			return typ
		}
	}
}

func (p *parser) parseParams() ([]Argument, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	if p.accept(")") {
		return nil, nil
	}
	if p.is("void") && p.peekAt(1) != nil && p.peekAt(1).Is(")") {
		p.pos += 2
		return nil, nil
	}

	var args []Argument
	for {
		if t := p.peek(); t != nil && t.Is("...") {
			return nil, p.unsupported(t, "variadic parameters")
		}
		base, isConst, err := p.parseDeclSpec()
		if err != nil {
			return nil, err
		}
		d, err := p.parseDeclarator(base, isConst, true)
		if err != nil {
			return nil, err
		}
		typ := d.typ
		if typ.Kind == KindArray {
			// Array parameters decay to pointers.
			typ = PointerTo(*typ.Elem, isConst)
		}
		args = append(args, Argument{Name: d.name, Type: typ})

		if p.accept("=") {
			if err := p.skipDefaultArg(); err != nil {
				return nil, err
			}
		}
		if p.accept(",") {
			continue
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return args, nil
	}
}

func (p *parser) skipDefaultArg() error {
	for {
		t := p.peek()
		if t == nil {
			return p.errorf(nil, "unexpected end of input in default argument")
		}
		if t.Is(",") || t.Is(")") {
			return nil
		}
		if t.Is("(") || t.Is("{") || t.Is("[") {
			if err := p.skipBalanced(); err != nil {
				return err
			}
			continue
		}
		p.pos++
	}
}

type declarator struct {
	name   string
	typ    Type
	isFunc bool
}

// parseDeclarator parses pointer operators, an optional name, array
// bounds and a trailing parameter list. Function pointers become void
// pointers. Abstract declarators are allowed when abstract is set.
func (p *parser) parseDeclarator(base Type, isConst, abstract bool) (declarator, error) {
	typ := p.applyPointers(base, isConst)

	var d declarator
	t := p.peek()
	switch {
	case t != nil && t.Is("(") && p.peekAt(1) != nil && (p.peekAt(1).Is("*") || p.peekAt(1).Is("&")):
		// Function pointer: (*name)(params)
		p.pos += 2
		for p.accept("*") || p.accept("const") {
		}
		if n := p.peek(); n != nil && n.Type == token.Ident {
			d.name = n.Value
			p.pos++
		}
		if err := p.expect(")"); err != nil {
			return d, err
		}
		if p.is("(") {
			if err := p.skipBalanced(); err != nil {
				return d, err
			}
		}
		d.typ = PointerTo(Void, false)
		return d, nil
	case t != nil && t.Type == token.Ident:
		d.name = t.Value
		p.pos++
	case !abstract:
		return d, p.errorf(t, "expected declarator")
	}

	var dims []int
	for p.is("[") {
		open := p.next()
		if p.accept("]") {
			if !abstract {
				return d, p.unsupported(open, "array without bound")
			}
			dims = append(dims, 0)
			continue
		}
		n, err := p.parseExpr()
		if err != nil {
			return d, err
		}
		if n < 0 {
			return d, p.errorf(open, "negative array bound %d", n)
		}
		if err := p.expect("]"); err != nil {
			return d, err
		}
		dims = append(dims, int(n))
	}
	for i := len(dims) - 1; i >= 0; i-- {
		typ = ArrayOf(dims[i], typ)
	}

	if p.is("(") {
		d.isFunc = true
	}
	d.typ = typ
	return d, nil
}

// parseDeclSpec parses declaration specifiers into a base type. The bool
// result reports a const qualifier, which the first pointer declarator
// attaches to its pointee.
func (p *parser) parseDeclSpec() (Type, bool, error) {
	start := p.peek()
	if start == nil {
		return Type{}, false, p.errorf(nil, "expected type, got end of input")
	}

	var (
		isConst, seen                 bool
		unsigned, signed, short, char bool
		boolKw, void, float, double   bool
		char8, char16, char32, wchar  bool
		longs                         int
		named                         *Type
	)

loop:
	for {
		t := p.peek()
		if t == nil {
			break
		}
		if t.Type == token.Invalid {
			return Type{}, false, p.errorf(t, "")
		}
		if t.Type != token.Ident && !t.Is("::") {
			break
		}

		switch t.Value {
		case "const":
			isConst = true
			p.pos++
			continue
		case "typename":
			p.pos++
			continue
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "short":
			short = true
		case "long":
			longs++
		case "int":
		case "char":
			char = true
		case "bool":
			boolKw = true
		case "void":
			void = true
		case "float":
			float = true
		case "double":
			double = true
		case "char16_t":
			char16 = true
		case "char32_t":
			char32 = true
		case "char8_t":
			char8 = true
		case "wchar_t":
			wchar = true
		case "struct", "class", "union", "enum":
			if seen {
				return Type{}, false, p.errorf(t, "unexpected %q", t.Value)
			}
			p.pos++
			nt, err := p.parseQualifiedName()
			if err != nil {
				return Type{}, false, err
			}
			typ := RecordNamed(nt.Value)
			if t.Value == "enum" {
				typ = p.enumType(nt.Value)
			}
			named = &typ
			seen = true
			continue
		default:
			if seen {
				break loop
			}
			nt, err := p.parseQualifiedName()
			if err != nil {
				return Type{}, false, err
			}
			typ, err := p.resolveName(nt)
			if err != nil {
				return Type{}, false, err
			}
			named = &typ
			seen = true
			continue
		}
		seen = true
		p.pos++
	}

	if !seen {
		return Type{}, false, p.errorf(start, "expected type, got %q", start.Value)
	}
	if named != nil {
		return *named, isConst, nil
	}

	switch {
	case void:
		return Void, isConst, nil
	case boolKw:
		return Bool, isConst, nil
	case float:
		return Float, isConst, nil
	case double:
		if longs > 0 {
			return Type{}, false, p.unsupported(start, "long double")
		}
		return Double, isConst, nil
	case char16:
		return Short, isConst, nil
	case char32:
		return Unsigned(4), isConst, nil
	case char8:
		return UChar, isConst, nil
	case wchar:
		return Unsigned(p.wcharSize), isConst, nil
	case char:
		switch {
		case unsigned:
			return UChar, isConst, nil
		case signed:
			return SChar, isConst, nil
		}
		return Char, isConst, nil
	case short:
		if unsigned {
			return UShort, isConst, nil
		}
		return Short, isConst, nil
	case longs == 1:
		if unsigned {
			return ULong, isConst, nil
		}
		return Long, isConst, nil
	case longs >= 2:
		if unsigned {
			return ULongLong, isConst, nil
		}
		return LongLong, isConst, nil
	case unsigned:
		return UInt, isConst, nil
	}
	return Int, isConst, nil
}

func (p *parser) resolveName(t *token.Token) (Type, error) {
	if fw, ok := fixedWidth[t.Value]; ok {
		return fw, nil
	}
	if sym, ok := p.symbols[t.Value]; ok {
		switch sym.kind {
		case symRecord:
			return RecordNamed(t.Value), nil
		case symEnum:
			return sym.enumType, nil
		}
		return TypedefNamed(t.Value), nil
	}
	if targetTypedefs[t.Value] {
		return TypedefNamed(t.Value), nil
	}
	return Type{}, errors.UnknownType(p.loc(t), t.Value)
}

func (p *parser) enumType(name string) Type {
	if sym, ok := p.symbols[name]; ok && sym.kind == symEnum {
		return sym.enumType
	}
	return Int
}

func (p *parser) parseTypedef(ns *Namespace) error {
	p.pos++ // typedef

	var base Type
	var isConst bool
	t := p.peek()
	switch {
	case t != nil && isRecordKeyword(t):
		rec, name, err := p.parseRecordDecl(ns)
		if err != nil {
			return err
		}
		switch {
		case rec == nil:
			base = RecordNamed(name)
		case rec.Name == "":
			// typedef struct { ... } Name;
			if n := p.peek(); n != nil && n.Type == token.Ident && p.peekAt(1) != nil && p.peekAt(1).Is(";") {
				rec.Name = n.Value
				p.symbols[rec.Name] = symbol{kind: symRecord}
				if !p.skip[rec.Name] {
					ns.Records = append(ns.Records, rec)
					p.records = append(p.records, rec)
				}
				p.pos += 2
				return nil
			}
			base = Type{Kind: KindUnnamedRecord, Record: rec}
		default:
			base = RecordNamed(rec.Name)
		}
	case t != nil && t.Is("enum"):
		name := ""
		if n := p.peekAt(1); n != nil && n.Is("{") {
			// typedef enum { ... } Name;
			if end := p.findClosing(1); end > 0 {
				if nt := p.peekAt(end + 1); nt != nil && nt.Type == token.Ident {
					name = nt.Value
				}
			}
		}
		e, err := p.parseEnum(ns, name)
		if err != nil {
			return err
		}
		if name != "" && p.is(name) && p.peekAt(1) != nil && p.peekAt(1).Is(";") {
			p.pos += 2
			return nil
		}
		base = e.Type
	default:
		var err error
		base, isConst, err = p.parseDeclSpec()
		if err != nil {
			return err
		}
	}

	for {
		start := p.peek()
		d, err := p.parseDeclarator(base, isConst, false)
		if err != nil {
			return err
		}
		if d.isFunc {
			return p.unsupported(start, "function type typedef %s", d.name)
		}
		p.addTypedef(ns, d.name, d.typ)
		if p.accept(",") {
			continue
		}
		return p.expect(";")
	}
}

func (p *parser) addTypedef(ns *Namespace, name string, typ Type) {
	if typ.Kind == KindRecord && typ.Name == name {
		// typedef struct Foo Foo;
		return
	}
	if _, ok := p.symbols[name]; !ok {
		p.symbols[name] = symbol{kind: symTypedef}
	}
	if !p.skip[name] {
		ns.Typedefs = append(ns.Typedefs, Typedef{Name: name, Type: typ})
	}
}

// findClosing returns the offset from the current token of the brace
// matching the one at offset open, or -1.
func (p *parser) findClosing(open int) int {
	depth := 0
	for i := open; ; i++ {
		t := p.peekAt(i)
		if t == nil {
			return -1
		}
		switch {
		case t.Is("{"):
			depth++
		case t.Is("}"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
}

func (p *parser) parseUsing(ns *Namespace) error {
	p.pos++ // using
	if p.is("namespace") {
		return p.skipDeclaration()
	}
	name := p.peek()
	if name == nil || name.Type != token.Ident || p.peekAt(1) == nil || !p.peekAt(1).Is("=") {
		// using-declaration
		return p.skipDeclaration()
	}
	p.pos += 2

	base, isConst, err := p.parseDeclSpec()
	if err != nil {
		return err
	}
	d, err := p.parseDeclarator(base, isConst, true)
	if err != nil {
		return err
	}
	if d.isFunc {
		return p.unsupported(name, "function type alias %s", name.Value)
	}
	p.addTypedef(ns, name.Value, d.typ)
	return p.expect(";")
}

// parseEnum parses an enum declaration. An unnamed enum takes fallback as
// its name. The current token is left after the closing brace.
func (p *parser) parseEnum(ns *Namespace, fallback string) (Enum, error) {
	p.pos++ // enum
	if !p.accept("class") {
		p.accept("struct")
	}
	if _, err := p.skipAttributes(); err != nil {
		return Enum{}, err
	}

	e := Enum{Name: fallback, Type: Int}
	if t := p.peek(); t != nil && (t.Type == token.Ident || t.Is("::")) {
		nt, err := p.parseQualifiedName()
		if err != nil {
			return Enum{}, err
		}
		e.Name = nt.Value
	}
	if p.accept(":") {
		typ, _, err := p.parseDeclSpec()
		if err != nil {
			return Enum{}, err
		}
		e.Type = typ
	}
	if e.Name != "" {
		p.symbols[e.Name] = symbol{kind: symEnum, enumType: e.Type}
	}

	if !p.accept("{") {
		return e, nil
	}

	next := int64(0)
	for !p.accept("}") {
		nt, err := p.expectIdent()
		if err != nil {
			return Enum{}, err
		}
		v := next
		if p.accept("=") {
			v, err = p.parseExpr()
			if err != nil {
				return Enum{}, err
			}
		}
		e.Values = append(e.Values, EnumValue{Name: nt.Value, Value: v})
		p.constants[nt.Value] = v
		next = v + 1

		if !p.accept(",") {
			if err := p.expect("}"); err != nil {
				return Enum{}, err
			}
			break
		}
	}

	if !p.skip[e.Name] {
		ns.Enums = append(ns.Enums, e)
	}
	return e, nil
}

// parseDefineGUID parses DEFINE_GUID(IID_Name, l, w1, w2, b1, ..., b8).
func (p *parser) parseDefineGUID() error {
	start := p.next()
	if err := p.expect("("); err != nil {
		return err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}

	var parts [11]int64
	for i := range parts {
		if err := p.expect(","); err != nil {
			return err
		}
		v, err := p.parseExpr()
		if err != nil {
			return err
		}
		parts[i] = v
	}
	if err := p.expect(")"); err != nil {
		return err
	}
	p.accept(";")

	var d4 [8]byte
	for i := range d4 {
		if parts[3+i] < 0 || parts[3+i] > 0xFF {
			return p.errorf(start, "DEFINE_GUID byte %d out of range", i)
		}
		d4[i] = byte(parts[3+i])
	}
	p.guids[nameTok.Value] = comruntime.GUIDFromFields(uint32(parts[0]), uint16(parts[1]), uint16(parts[2]), d4)
	return nil
}

// assignGUIDs attaches DEFINE_GUID identities named IID_<Record> to
// records that did not declare one inline.
func (p *parser) assignGUIDs() {
	for _, r := range p.records {
		if !r.IID.IsZero() {
			continue
		}
		if g, ok := p.guids["IID_"+r.Name]; ok {
			r.IID = g
		}
	}
}

// parseExpr evaluates an integer constant expression.
func (p *parser) parseExpr() (int64, error) {
	return p.parseBinary(0)
}

var binaryPrec = map[string]int{
	"|":  1,
	"^":  2,
	"&":  3,
	"<<": 4, ">>": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

func (p *parser) parseBinary(minPrec int) (int64, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		t := p.peek()
		if t == nil || t.Type != token.Punct {
			return lhs, nil
		}
		prec, ok := binaryPrec[t.Value]
		if !ok || prec <= minPrec {
			return lhs, nil
		}
		p.pos++
		rhs, err := p.parseBinary(prec)
		if err != nil {
			return 0, err
		}
		switch t.Value {
		case "|":
			lhs |= rhs
		case "^":
			lhs ^= rhs
		case "&":
			lhs &= rhs
		case "<<":
			lhs <<= uint(rhs)
		case ">>":
			lhs >>= uint(rhs)
		case "+":
			lhs += rhs
		case "-":
			lhs -= rhs
		case "*":
			lhs *= rhs
		case "/", "%":
			if rhs == 0 {
				return 0, p.errorf(t, "division by zero in constant expression")
			}
			if t.Value == "/" {
				lhs /= rhs
			} else {
				lhs %= rhs
			}
		}
	}
}

func (p *parser) parseUnary() (int64, error) {
	t := p.next()
	if t == nil {
		return 0, p.errorf(nil, "expected constant expression")
	}
	switch {
	case t.Is("-"):
		v, err := p.parseUnary()
		return -v, err
	case t.Is("+"):
		return p.parseUnary()
	case t.Is("~"):
		v, err := p.parseUnary()
		return ^v, err
	case t.Is("("):
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		return v, p.expect(")")
	case t.Type == token.Number:
		return p.parseNumber(t)
	case t.Type == token.Char:
		s, err := strconv.Unquote("'" + t.Value + "'")
		if err != nil || len(s) == 0 {
			return 0, p.errorf(t, "bad character literal '%s'", t.Value)
		}
		return int64([]rune(s)[0]), nil
	case t.Type == token.Ident || t.Is("::"):
		p.pos--
		nt, err := p.parseQualifiedName()
		if err != nil {
			return 0, err
		}
		v, ok := p.constants[nt.Value]
		if !ok {
			return 0, p.unsupported(nt, "unknown constant %s", nt.Value)
		}
		return v, nil
	}
	return 0, p.errorf(t, "unexpected %q in constant expression", t.Value)
}

func (p *parser) parseNumber(t *token.Token) (int64, error) {
	s := strings.ReplaceAll(t.Value, "'", "")
	s = strings.TrimRight(s, "uUlL")
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return v, nil
	}
	u, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, p.errorf(t, "bad integer literal %q", t.Value)
	}
	return int64(u), nil
}
