package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDefine Phase = "define" // class and header definition
	PhaseGUID   Phase = "guid"   // interface identifier parsing
	PhaseParse  Phase = "parse"  // header ingestion
	PhaseEmit   Phase = "emit"   // code generation
	PhaseHost   Phase = "host"   // foreign host bridging
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidLayout Kind = "invalid_layout"
	KindDuplicate     Kind = "duplicate"
	KindInvalidInput  Kind = "invalid_input"
	KindSyntax        Kind = "syntax"
	KindUnknownType   Kind = "unknown_type"
	KindUnsupported   Kind = "unsupported"
	KindNotFound      Kind = "not_found"
	KindInvalidHandle Kind = "invalid_handle"
	KindClosed        Kind = "closed"
	KindBorrowed      Kind = "borrowed"
)

// Location is a position in header input.
type Location struct {
	File string
	Line int
	Col  int
}

// IsZero reports whether the location is unset.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0
}

func (l Location) String() string {
	var b strings.Builder
	if l.File != "" {
		b.WriteString(l.File)
	} else {
		b.WriteString("<input>")
	}
	if l.Line > 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(l.Line))
		if l.Col > 0 {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(l.Col))
		}
	}
	return b.String()
}

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	Detail   string
	Path     []string
	Location Location
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if !e.Location.IsZero() {
		b.WriteString(e.Location.String())
		b.WriteString(": ")
	}

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "::"))
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the declaration path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// At sets the source location
func (b *Builder) At(loc Location) *Builder {
	b.err.Location = loc
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidLayout creates a composite header layout error
func InvalidLayout(path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseDefine,
		Kind:   KindInvalidLayout,
		Path:   path,
		Detail: detail,
	}
}

// Duplicate creates an error for a name or identity declared twice
func Duplicate(phase Phase, path []string, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Path:   path,
		Detail: fmt.Sprintf("duplicate %s %q", what, name),
		Value:  name,
	}
}

// Syntax creates a header syntax error at loc
func Syntax(loc Location, format string, args ...any) *Error {
	return &Error{
		Phase:    PhaseParse,
		Kind:     KindSyntax,
		Location: loc,
		Detail:   fmt.Sprintf(format, args...),
	}
}

// UnknownType creates an error for an unrecognized foreign type construct
func UnknownType(loc Location, spelling string) *Error {
	return &Error{
		Phase:    PhaseParse,
		Kind:     KindUnknownType,
		Location: loc,
		Detail:   fmt.Sprintf("unhandled type %q", spelling),
		Value:    spelling,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string, value any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
		Value:  value,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a lookup failure error
func NotFound(phase Phase, path []string, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Path:   path,
		Detail: what + " not found",
	}
}

// InvalidHandle creates an error for a handle that is zero, stale or unknown
func InvalidHandle(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Detail: fmt.Sprintf("invalid handle %d", handle),
		Value:  handle,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
