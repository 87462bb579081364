package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/class"
	"github.com/wippyai/com-runtime/gen"
	"github.com/wippyai/com-runtime/header"
	"github.com/wippyai/com-runtime/wasmhost"
)

func main() {
	var (
		inFile      = flag.String("in", "", "Path to the C++ header")
		pkg         = flag.String("pkg", "bindings", "Package name of the generated file")
		outFile     = flag.String("out", "", "Output file (default stdout)")
		skip        = flag.String("skip", "", "Namespaces and records to skip (comma-separated)")
		ignore      = flag.String("ignore", "", "Extra macros to ignore (comma-separated)")
		ptrSize     = flag.Int("ptr", 0, "Target pointer size in bytes (default host)")
		longSize    = flag.Int("long", 0, "Target size of long in bytes (default host)")
		wcharSize   = flag.Int("wchar", 2, "Size of wchar_t in bytes")
		list        = flag.Bool("list", false, "List interfaces and their dispatch slots, then exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Log classification and layout decisions to stderr")
	)
	flag.Parse()

	if *inFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: comgen -in <header.h> [-pkg name] [-out file.go] [-skip A,B] [-long 4|8]")
		fmt.Fprintln(os.Stderr, "       comgen -in <header.h> -list")
		fmt.Fprintln(os.Stderr, "       comgen -in <header.h> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = logger.Sync() }()
		gen.SetLogger(logger.Named("gen"))
		class.SetLogger(logger.Named("class"))
		wasmhost.SetLogger(logger.Named("wasmhost"))
	}

	opts := header.Options{
		Skip:      splitList(*skip),
		Ignore:    splitList(*ignore),
		WCharSize: *wcharSize,
	}
	target := gen.Target{PointerSize: *ptrSize, LongSize: *longSize}

	if *interactive {
		if err := runInteractive(*inFile, opts, target); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*inFile, *pkg, *outFile, opts, target, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(inFile, pkg, outFile string, opts header.Options, target gen.Target, listOnly bool) error {
	ns, err := header.ParseFile(inFile, opts)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	model, err := gen.Build(ns, target)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	if listOnly {
		printModel(os.Stdout, inFile, model, target)
		return nil
	}

	src, err := model.Emit(gen.Config{Package: pkg, Source: inFile, Target: target})
	if err != nil {
		return fmt.Errorf("emit: %w", err)
	}

	if outFile == "" {
		_, err = os.Stdout.Write(src)
		return err
	}
	if err := os.WriteFile(outFile, src, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outFile, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s: %d interfaces, %d records, %d aliases, %d constants\n",
		outFile, len(model.Interfaces), len(model.Structs), len(model.Aliases), len(model.Consts))
	return nil
}

func printModel(w io.Writer, inFile string, model *gen.Model, target gen.Target) {
	fmt.Fprintf(w, "Header: %s\n", inFile)
	fmt.Fprintf(w, "Interfaces: %d\n", len(model.Interfaces))
	fmt.Fprintf(w, "Records: %d\n", len(model.Structs))

	for _, i := range model.Interfaces {
		base := "IUnknown"
		if i.Base != nil {
			base = i.Base.CName
		}
		fmt.Fprintf(w, "\n%s : %s  {%s}\n", qualifiedName(i), base, i.IID)
		for _, s := range i.Slots(target) {
			fmt.Fprintf(w, "  [%2d] +%-4d %s::%s\n", s.Index, s.Offset, s.Owner, s.Name)
		}
	}
}

func qualifiedName(i *gen.Interface) string {
	return strings.Join(append(append([]string(nil), i.Path...), i.CName), "::")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
