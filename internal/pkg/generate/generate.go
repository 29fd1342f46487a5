// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package generate renders the native wrapper sources for a set of probe
// providers.
package generate

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/afero"

	"go.opentelemetry.io/usdt/internal/pkg/native"
	"go.opentelemetry.io/usdt/internal/pkg/render"
	"go.opentelemetry.io/usdt/internal/pkg/schema"
)

// Names of the generated files.
const (
	ProviderFile = "provider.d"
	HeaderFile   = "wrapper.h"
	SourceFile   = "wrapper.c"

	// ProviderHeader is produced by the probe-definition compiler from
	// ProviderFile and included by SourceFile.
	ProviderHeader = "provider.h"
)

//go:embed templates/*.tmpl
var templates embed.FS

// CollisionError is returned when two generated names clash.
type CollisionError struct {
	Name   string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("generated name %s of %s collides with %s", e.Name, e.Second, e.First)
}

// Output is the rendered wrapper sources.
type Output struct {
	// Files maps file names to their content.
	Files    map[string][]byte
	Manifest Manifest
}

// Generate renders the wrapper sources of providers. No file is produced: the
// returned Output is written with WriteTo.
func Generate(l *slog.Logger, providers []schema.Provider) (*Output, error) {
	if len(providers) == 0 {
		return nil, schema.ErrNoProviders
	}

	data, symbols, err := newModel(providers)
	if err != nil {
		return nil, err
	}

	r := render.NewRenderer(l, templates, "templates/*.tmpl", funcs)
	files, err := r.Render(data)
	if err != nil {
		return nil, fmt.Errorf("failed to render wrapper sources: %w", err)
	}
	return &Output{Files: files, Manifest: NewManifest(symbols)}, nil
}

// WriteTo writes the Output files into dir of fsys. Files are written under a
// temporary name first so an interrupted write never leaves a truncated
// source behind.
func (o *Output) WriteTo(fsys afero.Fs, dir string) error {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var written []string
	for _, name := range []string{ProviderFile, HeaderFile, SourceFile} {
		content, ok := o.Files[name]
		if !ok {
			continue
		}
		dest := filepath.Join(dir, name)
		tmp := dest + ".tmp"
		err := afero.WriteFile(fsys, tmp, content, 0o644)
		if err == nil {
			err = fsys.Rename(tmp, dest)
		}
		if err != nil {
			_ = fsys.Remove(tmp)
			for _, w := range written {
				_ = fsys.Remove(w)
			}
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		written = append(written, dest)
	}
	return nil
}

type probeData struct {
	Name    string
	Entry   string
	Enabled string
	Macro   string
	Params  []native.Type
}

type providerData struct {
	Name   string
	Probes []probeData
}

type model struct {
	Providers []providerData
}

func newModel(providers []schema.Provider) (model, []Symbol, error) {
	var (
		m       model
		symbols []Symbol
		errs    []error
	)
	owners := make(map[string]string)
	claim := func(name, owner string) {
		if first, ok := owners[name]; ok {
			errs = append(errs, &CollisionError{Name: name, First: first, Second: owner})
			return
		}
		owners[name] = owner
	}

	for _, p := range providers {
		pd := providerData{Name: p.Name}
		for _, probe := range p.Probes {
			params, err := native.MapProbe(p.Name, probe)
			if err != nil {
				errs = append(errs, err)
				continue
			}

			owner := p.Name + ":" + probe.Name
			pr := probeData{
				Name:    probe.Name,
				Entry:   EntryName(p.Name, probe.Name),
				Enabled: EnabledName(p.Name, probe.Name),
				Macro:   MacroName(p.Name, probe.Name),
				Params:  params,
			}
			claim(pr.Entry, owner)
			claim(pr.Enabled, owner)
			claim(pr.Macro, owner+" (macro)")

			pd.Probes = append(pd.Probes, pr)
			symbols = append(symbols,
				Symbol{Provider: p.Name, Probe: probe.Name, Kind: Entry, Params: params},
				Symbol{Provider: p.Name, Probe: probe.Name, Kind: EnabledQuery},
			)
		}
		m.Providers = append(m.Providers, pd)
	}

	if err := errors.Join(errs...); err != nil {
		return model{}, nil, err
	}
	return m, symbols, nil
}

var funcs = template.FuncMap{
	"cparams": cParams,
	"cargs":   cArgs,
	"dargs":   dArgs,
}

func cParams(params []native.Type) string {
	if len(params) == 0 {
		return "void"
	}
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = fmt.Sprintf("%s arg%d", p.C, i)
	}
	return strings.Join(out, ", ")
}

func cArgs(params []native.Type) string {
	out := make([]string, len(params))
	for i := range params {
		out[i] = fmt.Sprintf("arg%d", i)
	}
	return strings.Join(out, ", ")
}

func dArgs(params []native.Type) string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.D
	}
	return strings.Join(out, ", ")
}
