package gen

import (
	"bytes"
	"go/format"
	"strconv"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/header"
)

// Config controls Emit.
type Config struct {
	// Package is the package clause of the output. Defaults to "bindings".
	Package string
	// Source names the header in the generated banner.
	Source string
	// Target is the C data model. The zero value means the host.
	Target Target
}

// Emit writes Go bindings for every interface, record, typedef and enum in
// ns. The output is gofmt-formatted.
func Emit(ns *header.Namespace, cfg Config) ([]byte, error) {
	m, err := Build(ns, cfg.Target)
	if err != nil {
		return nil, err
	}
	return m.Emit(cfg)
}

// Emit renders m as Go source.
func (m *Model) Emit(cfg Config) ([]byte, error) {
	if cfg.Package == "" {
		cfg.Package = "bindings"
	}
	if cfg.Source == "" {
		cfg.Source = "C++ headers"
	}

	data := struct {
		*Model
		Package    string
		Source     string
		NeedUnsafe bool
		NeedCOM    bool
	}{
		Model:      m,
		Package:    cfg.Package,
		Source:     cfg.Source,
		NeedUnsafe: m.unsafe || len(m.Interfaces) > 0,
		NeedCOM:    len(m.Interfaces) > 0 || m.usesIUnknown(),
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, errors.Wrap(errors.PhaseEmit, errors.KindInvalidInput, err, "execute template")
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		Logger().Debug("unformatted output", zap.ByteString("source", buf.Bytes()))
		return nil, errors.Wrap(errors.PhaseEmit, errors.KindSyntax, err, "format generated source")
	}

	Logger().Debug("bindings emitted",
		zap.String("package", cfg.Package),
		zap.Int("interfaces", len(m.Interfaces)),
		zap.Int("structs", len(m.Structs)),
		zap.Int("aliases", len(m.Aliases)),
		zap.Int("consts", len(m.Consts)))
	return src, nil
}

func (m *Model) usesIUnknown() bool {
	var types []string
	for _, s := range m.Structs {
		for _, f := range s.Fields {
			types = append(types, f.Type)
		}
	}
	for _, a := range m.Aliases {
		types = append(types, a.Type)
	}
	for _, t := range types {
		if strings.Contains(t, "comruntime.") {
			return true
		}
	}
	return false
}

var fileTemplate = template.Must(template.New("file").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).Parse(`// Code generated by comgen from {{.Source}}. DO NOT EDIT.

package {{.Package}}
{{if or .NeedUnsafe .NeedCOM}}
import (
{{- if .NeedUnsafe}}
	"unsafe"
{{end}}
{{- if .NeedCOM}}
	comruntime "github.com/wippyai/com-runtime"
{{- if .Interfaces}}
	"github.com/wippyai/com-runtime/class"
{{- end}}
{{- end}}
)
{{end}}
{{- if .Consts}}
const (
{{- range .Consts}}
	{{.Name}} {{.Type}} = {{.Value}}{{if .Enum}} // {{.Enum}}{{end}}
{{- end}}
)
{{end}}
{{- range .Aliases}}
// {{.Name}} is the C type {{.CName}}.
type {{.Name}} = {{.Type}}
{{end}}
{{- range .Structs}}
{{- if .Union}}
// {{.Name}} is the C union {{.CName}} ({{.Info.Size}} bytes, align {{.Info.Align}}).
// Members overlay Data:
{{- range .Members}}
//	{{.Name}} {{.Type}}
{{- end}}
{{- else}}
// {{.Name}} is the C record {{.CName}} ({{.Info.Size}} bytes, align {{.Info.Align}}).
{{- end}}
type {{.Name}} struct {
{{- range .Fields}}
	{{if .Name}}{{.Name}} {{end}}{{.Type}}
{{- end}}
}
{{end}}
{{- if .Interfaces}}
var (
{{- range .Interfaces}}
	IID{{.Name}} = comruntime.MustParseGUID({{quote .IID.String}})
{{- end}}
)
{{end}}
{{- range .Interfaces}}
{{template "interface" .}}
{{- end}}
{{- define "interface"}}
{{- $i := .}}
// {{.Name}}Vtbl is the dispatch table of {{.CName}}. Each entry is the
// address of a C-ABI function.
type {{.Name}}Vtbl struct {
	{{.BaseVtbl}}
{{- range .Methods}}
	{{.Name}} uintptr
{{- end}}
}

// {{.Name}} is a pointer target for the {{.CName}} interface.
type {{.Name}} struct {
	Vtbl *{{.Name}}Vtbl
}

func ({{.Name}}) IID() comruntime.GUID { return IID{{.Name}} }

func ({{.Name}}) Inherits(iid comruntime.GUID) bool {
	return iid == IID{{.Name}} || {{.BaseName}}{}.Inherits(iid)
}

func ({{.Name}}) Ancestors() []comruntime.GUID {
	return []comruntime.GUID{ {{- range $n, $a := .AncestorIIDs}}{{if $n}}, {{end}}{{$a}}{{end -}} }
}
{{range .Ancestors}}
func (i *{{$i.Name}}) As{{.Name}}() *{{.Name}} { return (*{{.Name}})(unsafe.Pointer(i)) }
{{end}}
{{- range .AllMethods}}
func (i *{{$i.Name}}) {{.Name}}{{.Signature}} {
	{{if .Result}}return {{end}}comruntime.Func[{{.FuncType}}](i.Vtbl.{{.Name}})(unsafe.Pointer(i){{if .Params}}, {{.Args}}{{end}})
}
{{end}}
func (i *{{.Name}}) QueryInterface(iid comruntime.GUID) (unsafe.Pointer, bool) {
	return comruntime.AsUnknown(i).QueryInterface(iid)
}

func (i *{{.Name}}) AddRef() uint32 { return comruntime.AsUnknown(i).AddRef() }

func (i *{{.Name}}) Release() uint32 { return comruntime.AsUnknown(i).Release() }

// {{.Name}}Methods is implemented by class data serving {{.CName}}.
type {{.Name}}Methods interface {
{{- if .Base}}
	{{.Base.Name}}Methods
{{- end}}
{{- range .Methods}}
	{{.Name}}{{.Signature}}
{{- end}}
}

func fill{{.Name}}[C any, P interface {
	*C
	{{.Name}}Methods
}](v *{{.Name}}Vtbl, r class.Resolver[C]) {
{{- if .Base}}
	fill{{.Base.Name}}[C, P](&v.{{.Base.Name}}Vtbl, r)
{{- else}}
	v.UnknownVtbl = r.Unknown()
{{- end}}
{{- range .Methods}}
	v.{{.Name}} = r.Export(func(this unsafe.Pointer{{range .Params}}, {{.Name}} {{.Type}}{{end}}){{if .Result}} {{.Result}}{{end}} {
		{{if .Result}}return {{end}}P(r.Data(this)).{{.Name}}({{.Args}})
	})
{{- end}}
}

// New{{.Name}}Vtbl builds the {{.CName}} dispatch table for class data C
// whose pointer type implements {{.Name}}Methods.
func New{{.Name}}Vtbl[C any, P interface {
	*C
	{{.Name}}Methods
}](r class.Resolver[C]) *{{.Name}}Vtbl {
	v := &{{.Name}}Vtbl{}
	fill{{.Name}}[C, P](v, r)
	return v
}
{{- end}}
`))
