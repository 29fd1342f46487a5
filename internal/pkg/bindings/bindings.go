// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package bindings generates Go bindings for the functions of a probe
// library.
package bindings

import (
	"embed"
	"errors"
	"fmt"
	"go/format"
	"log/slog"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"

	"go.opentelemetry.io/usdt/internal/pkg/generate"
	"go.opentelemetry.io/usdt/internal/pkg/native"
	"go.opentelemetry.io/usdt/internal/pkg/render"
)

// Style is the mechanism generated bindings call native code with.
type Style string

const (
	// StylePurego loads the library at run time without cgo.
	StylePurego Style = "purego"
	// StyleCgo links the library with cgo.
	StyleCgo Style = "cgo"
)

// UnmarshalText decodes text into s. Empty text is StylePurego.
func (s *Style) UnmarshalText(text []byte) error {
	switch v := Style(strings.ToLower(string(text))); v {
	case StylePurego, StyleCgo:
		*s = v
	case "":
		*s = StylePurego
	default:
		return fmt.Errorf("invalid binding style: %q", string(text))
	}
	return nil
}

//go:embed templates/*.tmpl
var templates embed.FS

// Options configure the generated bindings.
type Options struct {
	Style Style
	// Package is the Go package name of the bindings.
	Package string
	// Library is the library base name, "probes" for libprobes.so.
	Library string
	// LibDir is the library directory passed to the cgo linker.
	LibDir string

	// Allow holds glob patterns of the exposed function names. Defaults to
	// "<provider>_*" for every provider of the manifest.
	Allow []string

	Logger *slog.Logger
}

// AllowListError is returned when the allow-list excludes a generated
// function.
type AllowListError struct {
	Name  string
	Allow []string
}

func (e *AllowListError) Error() string {
	return fmt.Sprintf("generated function %s is not matched by the allow-list %v", e.Name, e.Allow)
}

// Generate returns the gofmt'ed Go source of the bindings of the functions
// declared in header. Every function of m must be declared in header.
func Generate(header []byte, m generate.Manifest, opts Options) ([]byte, error) {
	if opts.Style == "" {
		opts.Style = StylePurego
	}
	if opts.Package == "" {
		return nil, errors.New("missing bindings package name")
	}
	if opts.Library == "" {
		return nil, errors.New("missing library name")
	}
	allow := opts.Allow
	if len(allow) == 0 {
		for _, p := range m.Providers() {
			allow = append(allow, p+"_*")
		}
	}

	funcs, err := selectFuncs(ParseHeader(header), m, allow)
	if err != nil {
		return nil, err
	}

	data := model{
		Package: opts.Package,
		Library: opts.Library,
		LibDir:  opts.LibDir,
		Funcs:   funcs,
	}
	for _, f := range funcs {
		for _, p := range f.Params {
			switch p.Kind {
			case native.KindString:
				data.Unsafe = true
			case native.KindBool:
				data.Bool = true
			}
		}
	}

	r := render.NewRenderer(opts.Logger, templates, "templates/"+string(opts.Style)+".go.tmpl", helpers)
	files, err := r.Render(data)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s bindings: %w", opts.Style, err)
	}
	src, ok := files[string(opts.Style)+".go"]
	if !ok {
		return nil, fmt.Errorf("unsupported binding style %q", opts.Style)
	}

	out, err := format.Source(src)
	if err != nil {
		return nil, fmt.Errorf("failed to format bindings: %w", err)
	}
	return out, nil
}

// WriteFile writes bindings source src to path.
func WriteFile(fsys afero.Fs, path string, src []byte) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fsys, tmp, src, 0o644); err != nil {
		return err
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	return nil
}

type param struct {
	Name string
	native.Type
}

type function struct {
	// Name is the C function name.
	Name string
	// Field is the Go name of the function.
	Field     string
	Prototype string
	Params    []param
	// Return is nil for functions without result.
	Return *native.Type
}

type model struct {
	Package string
	Library string
	LibDir  string
	Funcs   []function

	// Unsafe and Bool are set when a parameter of that kind needs a
	// conversion in cgo bindings.
	Unsafe bool
	Bool   bool
}

func selectFuncs(protos []Prototype, m generate.Manifest, allow []string) ([]function, error) {
	globs := make([]glob.Glob, len(allow))
	for i, a := range allow {
		g, err := glob.Compile(a)
		if err != nil {
			return nil, fmt.Errorf("invalid allow-list pattern %q: %w", a, err)
		}
		globs[i] = g
	}
	allowed := func(name string) bool {
		for _, g := range globs {
			if g.Match(name) {
				return true
			}
		}
		return false
	}

	byName := make(map[string]Prototype, len(protos))
	for _, p := range protos {
		byName[p.Name] = p
	}

	var (
		out    []function
		errs   []error
		fields = make(map[string]string)
		used   = make(map[string]bool)
	)
	add := func(f function) {
		if other, ok := fields[f.Field]; ok {
			errs = append(errs, fmt.Errorf("functions %s and %s have the same Go name %s", other, f.Name, f.Field))
			return
		}
		fields[f.Field] = f.Name
		out = append(out, f)
	}

	for _, sym := range m.Symbols() {
		name := sym.Name()
		proto, ok := byName[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s not declared in header", generate.ErrSymbolMissing, name))
			continue
		}
		if !allowed(name) {
			errs = append(errs, &AllowListError{Name: name, Allow: allow})
			continue
		}
		used[name] = true

		f, err := fromSymbol(sym, proto)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		add(f)
	}

	// Allowed functions the manifest does not know are bound with the
	// header types.
	for _, proto := range protos {
		if used[proto.Name] || !allowed(proto.Name) {
			continue
		}
		used[proto.Name] = true
		f, err := fromPrototype(proto)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		add(f)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func fromSymbol(sym generate.Symbol, proto Prototype) (function, error) {
	f := function{Name: sym.Name(), Field: goName(sym.Name()), Prototype: proto.String()}
	if len(proto.Params) != len(sym.Params) {
		return f, fmt.Errorf("%s declares %d parameters, want %d: header is out of date", f.Name, len(proto.Params), len(sym.Params))
	}
	for i, t := range sym.Params {
		f.Params = append(f.Params, param{Name: fmt.Sprintf("arg%d", i), Type: t})
	}
	if sym.Kind == generate.EnabledQuery {
		ret := native.Enabled
		f.Return = &ret
	}
	return f, nil
}

func fromPrototype(proto Prototype) (function, error) {
	f := function{Name: proto.Name, Field: goName(proto.Name), Prototype: proto.String()}
	for i, c := range proto.Params {
		t, ok := native.LookupC(c)
		if !ok {
			return f, fmt.Errorf("%s: argument %d: unsupported C type %q", proto.Name, i, c)
		}
		f.Params = append(f.Params, param{Name: fmt.Sprintf("arg%d", i), Type: t})
	}
	if proto.Return != "void" {
		t, ok := native.LookupC(proto.Return)
		if !ok {
			return f, fmt.Errorf("%s: unsupported C return type %q", proto.Name, proto.Return)
		}
		f.Return = &t
	}
	return f, nil
}

// goName returns the exported Go name of a C identifier.
func goName(c string) string {
	var b strings.Builder
	for _, part := range strings.Split(c, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

var helpers = template.FuncMap{
	"goparams": goParams,
	"goresult": goResult,
	"cgoargs":  cgoArgs,
}

func goParams(f function) string {
	out := make([]string, len(f.Params))
	for i, p := range f.Params {
		out[i] = p.Name + " " + p.Go
	}
	return strings.Join(out, ", ")
}

func goResult(f function) string {
	if f.Return == nil {
		return ""
	}
	return " " + f.Return.Go
}

// cgoArgs returns the arguments of the cgo call of f.
func cgoArgs(f function) string {
	out := make([]string, len(f.Params))
	for i, p := range f.Params {
		switch p.Kind {
		case native.KindString:
			out[i] = fmt.Sprintf("(%s)(unsafe.Pointer(%s))", p.CGo, p.Name)
		case native.KindBool:
			out[i] = fmt.Sprintf("cbool(%s)", p.Name)
		default:
			out[i] = fmt.Sprintf("%s(%s)", p.CGo, p.Name)
		}
	}
	return strings.Join(out, ", ")
}
