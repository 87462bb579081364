package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseParse,
				Kind:     KindSyntax,
				Location: Location{File: "plugin.h", Line: 12, Col: 4},
				Path:     []string{"Steinberg", "IPluginBase"},
				Detail:   "expected ';'",
			},
			contains: []string{"plugin.h:12:4", "[parse]", "syntax", "Steinberg::IPluginBase", "expected ';'"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDefine,
				Kind:  KindInvalidLayout,
			},
			contains: []string{"[define]", "invalid_layout"},
		},
		{
			name: "go type",
			err: &Error{
				Phase:  PhaseDefine,
				Kind:   KindInvalidLayout,
				GoType: "class.fooHeader",
				Detail: "offset 3 not aligned",
			},
			contains: []string{"Go type class.fooHeader", " - offset 3 not aligned"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseGUID,
				Kind:   KindInvalidInput,
				Detail: "bad guid",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[guid]", "invalid_input", "bad guid", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		loc  Location
		want string
	}{
		{Location{File: "a.h", Line: 3, Col: 7}, "a.h:3:7"},
		{Location{File: "a.h", Line: 3}, "a.h:3"},
		{Location{Line: 9, Col: 1}, "<input>:9:1"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if !(Location{}).IsZero() {
		t.Error("zero Location should report IsZero")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseHost,
		Kind:  KindClosed,
		Cause: cause,
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should follow the cause chain")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDefine,
		Kind:  KindDuplicate,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseDefine, Kind: KindDuplicate}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseParse, Kind: KindDuplicate}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDefine, Kind: KindInvalidLayout}) {
		t.Error("Is should not match different kind")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	loc := Location{File: "x.h", Line: 2, Col: 1}
	err := New(PhaseParse, KindUnknownType).
		Path("ns", "IFoo").
		GoType("header.Type").
		At(loc).
		Value("wchar_t").
		Cause(cause).
		Detail("cannot map %s", "wchar_t").
		Build()

	if err.Phase != PhaseParse {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseParse)
	}
	if err.Kind != KindUnknownType {
		t.Errorf("Kind = %v, want %v", err.Kind, KindUnknownType)
	}
	if len(err.Path) != 2 || err.Path[1] != "IFoo" {
		t.Errorf("Path = %v, want [ns IFoo]", err.Path)
	}
	if err.Location != loc {
		t.Errorf("Location = %v, want %v", err.Location, loc)
	}
	if err.Value != "wchar_t" {
		t.Errorf("Value = %v, want wchar_t", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "cannot map wchar_t" {
		t.Errorf("Detail = %q, want 'cannot map wchar_t'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InvalidLayout", func(t *testing.T) {
		err := InvalidLayout([]string{"Foo"}, "overlap")
		if err.Phase != PhaseDefine || err.Kind != KindInvalidLayout {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		err := Duplicate(PhaseDefine, nil, "interface", "IFoo")
		if err.Kind != KindDuplicate {
			t.Errorf("Kind = %v, want %v", err.Kind, KindDuplicate)
		}
		if !strings.Contains(err.Detail, `"IFoo"`) {
			t.Errorf("Detail = %q, should quote the name", err.Detail)
		}
	})

	t.Run("Syntax", func(t *testing.T) {
		err := Syntax(Location{Line: 4}, "unexpected %q", "}")
		if err.Kind != KindSyntax || err.Location.Line != 4 {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("UnknownType", func(t *testing.T) {
		err := UnknownType(Location{Line: 1}, "__int128")
		if err.Kind != KindUnknownType || err.Value != "__int128" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("InvalidHandle", func(t *testing.T) {
		err := InvalidHandle(PhaseHost, 7)
		if err.Kind != KindInvalidHandle || err.Value != uint32(7) {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("io")
		err := Wrap(PhaseEmit, KindInvalidInput, cause, "format")
		if !errors.Is(err, cause) {
			t.Error("Wrap should keep cause")
		}
	})
}
