// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package build compiles generated probe wrappers into a shared library.
//
// A build runs the probe-definition compiler and the C compiler in a staging
// directory and only moves the outputs into place once every step succeeded
// and the library exports every generated symbol.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/zoobzio/clockz"

	"go.opentelemetry.io/usdt/internal/pkg/generate"
	"go.opentelemetry.io/usdt/internal/pkg/render"
	"go.opentelemetry.io/usdt/internal/pkg/schema"
)

// ErrMissingOutput is returned when a step succeeded without producing its
// declared output.
var ErrMissingOutput = errors.New("step did not produce its output")

// Step names.
const (
	StepHeader  = "header"
	StepCompile = "compile"
	StepLink    = "link-probes"
	StepShared  = "shared-library"
)

// Object files left in the staging directory.
const (
	wrapperObject  = "wrapper.o"
	providerObject = "provider.o"
)

// Pipeline builds probe libraries.
type Pipeline struct {
	log     *slog.Logger
	fs      afero.Fs
	runner  Runner
	clock   clockz.Clock
	version string

	toolchain Toolchain
	platform  Platform
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger of the Pipeline.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithFs sets the filesystem sources and outputs are written to. External
// tools see the same paths, so anything other than the OS filesystem is only
// useful with a Runner that does not start processes.
func WithFs(fsys afero.Fs) Option {
	return func(p *Pipeline) { p.fs = fsys }
}

// WithRunner sets the Runner used to start external tools.
func WithRunner(r Runner) Option {
	return func(p *Pipeline) { p.runner = r }
}

// WithClock sets the clock used to time steps.
func WithClock(c clockz.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithGeneratorVersion sets the generator version recorded in stamps.
func WithGeneratorVersion(v string) Option {
	return func(p *Pipeline) { p.version = v }
}

// New returns a Pipeline building with the resolved toolchain tc for
// platform.
func New(tc Toolchain, platform Platform, opts ...Option) *Pipeline {
	p := &Pipeline{
		log:       render.Discard(),
		fs:        afero.NewOsFs(),
		runner:    ExecRunner{},
		clock:     clockz.RealClock,
		toolchain: tc,
		platform:  platform,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Request is the input of a build.
type Request struct {
	// SchemaName names the schema in messages.
	SchemaName string
	// Source is the provider definition.
	Source    []byte
	Selection schema.Selection

	// OutDir receives the library and the generated sources.
	OutDir string
	// Library is the library base name. Defaults to the first selected
	// provider name.
	Library string
	// Force rebuilds even if the outputs are up to date.
	Force bool
}

// StepResult is the outcome of one step.
type StepResult struct {
	Name     string
	Command  []string
	Output   string
	Duration time.Duration
}

// Result is the outcome of a build.
type Result struct {
	// Artifact is the path of the shared library.
	Artifact string
	// Header is the path of the generated wrapper header.
	Header string
	// Dir is the directory holding the outputs.
	Dir     string
	Library string

	Providers []schema.Provider
	Manifest  generate.Manifest

	Steps []StepResult
	Size  int64

	// UpToDate is true when nothing was rebuilt.
	UpToDate bool
}

// SearchPathHints returns the settings needed to find the library at run
// and link time.
func (r *Result) SearchPathHints(p Platform) []string {
	return []string{
		fmt.Sprintf("%s=%s", p.LibraryPathEnv, r.Dir),
		fmt.Sprintf("#cgo LDFLAGS: -L%s -l%s", r.Dir, r.Library),
	}
}

// Generate parses and renders the sources of req without building them.
func (p *Pipeline) Generate(req Request) ([]schema.Provider, *generate.Output, error) {
	f, err := schema.Parse(req.SchemaName, req.Source)
	if err != nil {
		return nil, nil, err
	}
	selected, ignored := f.Select(req.Selection)
	if len(ignored) > 0 {
		p.log.Warn("ignoring providers, only the first one is used", "used", selected[0].Name, "ignored", ignored)
	}

	out, err := generate.Generate(p.log, selected)
	if err != nil {
		return nil, nil, err
	}
	return selected, out, nil
}

// Build generates the wrapper sources of req and builds them into a shared
// library. On failure the previous outputs in req.OutDir are left untouched.
func (p *Pipeline) Build(ctx context.Context, req Request) (*Result, error) {
	providers, out, err := p.Generate(req)
	if err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(req.OutDir)
	if err != nil {
		return nil, err
	}
	lib := req.Library
	if lib == "" {
		lib = providers[0].Name
	}

	res := &Result{
		Artifact:  filepath.Join(dir, p.platform.LibraryFile(lib)),
		Header:    filepath.Join(dir, generate.HeaderFile),
		Dir:       dir,
		Library:   lib,
		Providers: providers,
		Manifest:  out.Manifest,
	}
	stamp := Stamp{
		SchemaSHA256: schemaHash(req.Source),
		Generator:    p.version,
		Platform:     p.platform.OS + "/" + runtime.GOARCH,
		Library:      lib,
		Symbols:      out.Manifest.Names(),
		Toolchain:    p.toolchain.inputs(),
	}
	stamp.Machine, stamp.Host = hostInfo()

	if !req.Force && p.upToDate(dir, res.Artifact, stamp) {
		p.log.Info("probe library is up to date", "library", res.Artifact)
		res.UpToDate = true
		return res, nil
	}

	if err := p.toolchain.Check(ctx, p.runner); err != nil {
		return nil, err
	}

	if err := p.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	stage, err := afero.TempDir(p.fs, dir, ".usdt-stage-")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := p.fs.RemoveAll(stage); err != nil {
			p.log.Error("failed to remove staging directory", "dir", stage, "error", err)
		}
	}()

	if err := p.buildIn(ctx, stage, lib, out, res); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to build %s", p.platform.LibraryFile(lib))
	}

	if err := p.install(stage, dir, lib); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to install build outputs")
	}
	if err := writeStamp(p.fs, dir, stamp); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to write stamp")
	}

	p.log.Info(
		"built probe library",
		"library", res.Artifact,
		"size", humanize.Bytes(uint64(res.Size)),
		"symbols", out.Manifest.Len(),
		"providers", len(providers),
	)
	return res, nil
}

func (p *Pipeline) upToDate(dir, artifact string, want Stamp) bool {
	if ok, _ := afero.Exists(p.fs, artifact); !ok {
		return false
	}
	got, ok, err := readStamp(p.fs, dir)
	if err != nil {
		p.log.Warn("ignoring unreadable stamp", "dir", dir, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if !got.matches(want) {
		p.log.Debug("stale stamp", "dir", dir, "stamp", got, "want", want)
		return false
	}
	return true
}

func (p *Pipeline) buildIn(ctx context.Context, stage, lib string, out *generate.Output, res *Result) error {
	if err := out.WriteTo(p.fs, stage); err != nil {
		return err
	}

	path := func(name string) string { return filepath.Join(stage, name) }
	var (
		def     = path(generate.ProviderFile)
		header  = path(generate.ProviderHeader)
		source  = path(generate.SourceFile)
		wrapper = path(wrapperObject)
		probes  = path(providerObject)
		shared  = path(p.platform.LibraryFile(lib))
	)

	tc := p.toolchain
	steps := []struct {
		name   string
		argv   []string
		output string
		skip   bool
	}{
		{
			name:   StepHeader,
			argv:   []string{tc.DTrace, "-h", "-s", def, "-o", header},
			output: header,
		},
		{
			name: StepCompile,
			argv: concat(
				[]string{tc.CC},
				tc.CFlags,
				[]string{"-fPIC", "-I", stage, "-c", source, "-o", wrapper},
			),
			output: wrapper,
		},
		{
			name:   StepLink,
			argv:   []string{tc.DTrace, "-G", "-s", def, wrapper, "-o", probes},
			output: probes,
			skip:   !p.platform.LinkProbes,
		},
		{
			name: StepShared,
			argv: concat(
				[]string{tc.CC},
				tc.CFlags,
				p.platform.SharedFlags,
				[]string{"-o", shared, wrapper},
				optional(p.platform.LinkProbes, probes),
			),
			output: shared,
		},
	}

	for _, s := range steps {
		if s.skip {
			p.log.Debug("skipping step", "step", s.name, "platform", p.platform.OS)
			continue
		}
		r, err := p.run(ctx, stage, s.name, s.argv, s.output)
		if err != nil {
			return err
		}
		res.Steps = append(res.Steps, r)
	}

	if err := verifySymbols(p.fs, shared, p.platform, out.Manifest.Names()); err != nil {
		return err
	}
	info, err := p.fs.Stat(shared)
	if err != nil {
		return err
	}
	res.Size = info.Size()
	return nil
}

func (p *Pipeline) run(ctx context.Context, dir, name string, argv []string, output string) (StepResult, error) {
	p.log.Debug("running step", "step", name, "cmd", argv)

	start := p.clock.Now()
	stdout, stderr, err := p.runner.Run(ctx, dir, argv[0], argv[1:]...)
	d := p.clock.Now().Sub(start)
	if err != nil {
		return StepResult{}, newStepError(name, argv, stdout, stderr, err)
	}
	if ok, _ := afero.Exists(p.fs, output); !ok {
		return StepResult{}, newStepError(name, argv, stdout, stderr, fmt.Errorf("%w: %s", ErrMissingOutput, output))
	}

	p.log.Debug("step done", "step", name, "duration", d, "output", output)
	return StepResult{Name: name, Command: argv, Output: output, Duration: d}, nil
}

// install moves the generated sources and the library from stage to dir.
func (p *Pipeline) install(stage, dir, lib string) error {
	for _, name := range []string{
		generate.ProviderFile,
		generate.ProviderHeader,
		generate.HeaderFile,
		generate.SourceFile,
		p.platform.LibraryFile(lib),
	} {
		src := filepath.Join(stage, name)
		if _, err := p.fs.Stat(src); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := p.fs.Rename(src, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func optional(ok bool, s string) []string {
	if ok {
		return []string{s}
	}
	return nil
}
