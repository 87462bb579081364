// Package errors provides structured error types for the com-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries context: declaration path, Go type name, source location
// for header input, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseParse, errors.KindSyntax).
//		At(errors.Location{File: "plugin.h", Line: 12, Col: 5}).
//		Path("Steinberg", "IPluginBase").
//		Detail("expected ';' after field").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidLayout(path, "slot offset 3 is not pointer aligned")
//	err := errors.Duplicate(errors.PhaseDefine, path, "interface", "IPluginBase")
//
// Unsupported interfaces are never reported through this package: identity
// casts return a boolean. All errors implement the standard error interface
// and support errors.Is/As.
package errors
