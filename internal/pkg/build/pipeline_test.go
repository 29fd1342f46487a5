// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	"go.opentelemetry.io/usdt/internal/pkg/generate"
	"go.opentelemetry.io/usdt/internal/pkg/schema"
)

const demoSchema = `provider demo {
	probe tick(int32_t, bool);
};`

// fakeRunner records commands and writes the file following "-o".
type fakeRunner struct {
	fs    afero.Fs
	clock *clockz.FakeClock

	calls [][]string
	// failStep makes the call at this index (1-based) fail.
	failStep int
	// noOutput makes the call at this index (1-based) succeed without
	// producing its output.
	noOutput int
	stdout   string
}

func (r *fakeRunner) Run(_ context.Context, _, name string, args ...string) (string, string, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	n := len(r.calls)
	if r.clock != nil {
		r.clock.Advance(time.Duration(n) * time.Second)
	}
	if n == r.failStep {
		return "", "fatal error: boom", errors.New("exit status 1")
	}
	if n == r.noOutput {
		return "", "", nil
	}
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			if err := afero.WriteFile(r.fs, args[i+1], []byte(name), 0o644); err != nil {
				return "", "", err
			}
		}
	}
	return r.stdout, "", nil
}

func stubSymbols(t *testing.T, drop ...string) {
	t.Helper()
	orig := readSymbols
	t.Cleanup(func() { readSymbols = orig })
	readSymbols = func(afero.Fs, string, Platform) (map[string]bool, error) {
		syms := map[string]bool{"demo_tick": true, "demo_tick_enabled": true, "unrelated": true}
		for _, d := range drop {
			delete(syms, d)
		}
		return syms, nil
	}
}

func newTestPipeline(t *testing.T, goos string) (*Pipeline, *fakeRunner, afero.Fs) {
	t.Helper()
	plat, err := LookupPlatform(goos)
	require.NoError(t, err)

	fsys := afero.NewMemMapFs()
	r := &fakeRunner{fs: fsys, clock: clockz.NewFakeClock()}
	tc := Toolchain{CC: "/usr/bin/cc", DTrace: "/usr/bin/dtrace", CFlags: []string{"-O2"}}
	p := New(tc, plat,
		WithFs(fsys),
		WithRunner(r),
		WithClock(r.clock),
		WithGeneratorVersion("v0.0.0-test"),
	)
	return p, r, fsys
}

func demoRequest() Request {
	return Request{SchemaName: "provider.d", Source: []byte(demoSchema), OutDir: "/out"}
}

func assertNoStage(t *testing.T, fsys afero.Fs) {
	t.Helper()
	entries, err := afero.ReadDir(fsys, "/out")
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".usdt-stage-"), "staging directory left behind: %s", e.Name())
	}
}

func TestBuildLinux(t *testing.T) {
	stubSymbols(t)
	p, r, fsys := newTestPipeline(t, "linux")

	res, err := p.Build(context.Background(), demoRequest())
	require.NoError(t, err)

	assert.False(t, res.UpToDate)
	assert.Equal(t, "/out/libdemo.so", res.Artifact)
	assert.Equal(t, "/out/wrapper.h", res.Header)
	assert.Equal(t, "demo", res.Library)
	assert.Equal(t, []string{"demo_tick", "demo_tick_enabled"}, res.Manifest.Names())

	require.Len(t, r.calls, 4)
	stage := filepath.Dir(r.calls[0][len(r.calls[0])-1])
	assert.Equal(t, []string{"/usr/bin/dtrace", "-h", "-s", stage + "/provider.d", "-o", stage + "/provider.h"}, r.calls[0])
	assert.Equal(t, []string{
		"/usr/bin/cc", "-O2", "-fPIC", "-I", stage, "-c", stage + "/wrapper.c", "-o", stage + "/wrapper.o",
	}, r.calls[1])
	assert.Equal(t, []string{
		"/usr/bin/dtrace", "-G", "-s", stage + "/provider.d", stage + "/wrapper.o", "-o", stage + "/provider.o",
	}, r.calls[2])
	assert.Equal(t, []string{
		"/usr/bin/cc", "-O2", "-shared", "-fPIC", "-o", stage + "/libdemo.so", stage + "/wrapper.o", stage + "/provider.o",
	}, r.calls[3])

	var names []string
	for i, s := range res.Steps {
		names = append(names, s.Name)
		assert.Equal(t, time.Duration(i+1)*time.Second, s.Duration, s.Name)
	}
	assert.Equal(t, []string{StepHeader, StepCompile, StepLink, StepShared}, names)

	for _, name := range []string{"libdemo.so", "provider.d", "provider.h", "wrapper.h", "wrapper.c", StampFile} {
		ok, err := afero.Exists(fsys, filepath.Join("/out", name))
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	assertNoStage(t, fsys)

	stamp, ok, err := readStamp(fsys, "/out")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, schemaHash([]byte(demoSchema)), stamp.SchemaSHA256)
	assert.Equal(t, "v0.0.0-test", stamp.Generator)
	assert.Equal(t, []string{"demo_tick", "demo_tick_enabled"}, stamp.Symbols)

	assert.Equal(t, []string{
		"LD_LIBRARY_PATH=/out",
		"#cgo LDFLAGS: -L/out -ldemo",
	}, res.SearchPathHints(p.platform))
}

func TestBuildDarwin(t *testing.T) {
	stubSymbols(t)
	p, r, fsys := newTestPipeline(t, "darwin")

	res, err := p.Build(context.Background(), demoRequest())
	require.NoError(t, err)
	assert.Equal(t, "/out/libdemo.dylib", res.Artifact)

	require.Len(t, r.calls, 3, "darwin has no probe link step")
	last := r.calls[2]
	assert.Contains(t, last, "-dynamiclib")
	assert.NotContains(t, strings.Join(last, " "), "provider.o")

	ok, err := afero.Exists(fsys, "/out/libdemo.dylib")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuildStepFailure(t *testing.T) {
	stubSymbols(t)
	p, r, fsys := newTestPipeline(t, "linux")
	require.NoError(t, afero.WriteFile(fsys, "/out/libdemo.so", []byte("previous"), 0o644))
	r.failStep = 2

	_, err := p.Build(context.Background(), demoRequest())
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepCompile, stepErr.Step)
	assert.Equal(t, "fatal error: boom", stepErr.Stderr)
	assert.Equal(t, -1, stepErr.ExitCode)
	assert.Contains(t, err.Error(), "failed to build libdemo.so")

	assert.Len(t, r.calls, 2, "steps after a failure must not run")

	got, err := afero.ReadFile(fsys, "/out/libdemo.so")
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got))
	for _, name := range []string{StampFile, "wrapper.c", "provider.h"} {
		ok, _ := afero.Exists(fsys, filepath.Join("/out", name))
		assert.False(t, ok, name)
	}
	assertNoStage(t, fsys)
}

func TestBuildMissingOutput(t *testing.T) {
	stubSymbols(t)
	p, r, fsys := newTestPipeline(t, "linux")
	r.noOutput = 1

	_, err := p.Build(context.Background(), demoRequest())
	assert.ErrorIs(t, err, ErrMissingOutput)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepHeader, stepErr.Step)
	assertNoStage(t, fsys)
}

func TestBuildMissingSymbol(t *testing.T) {
	stubSymbols(t, "demo_tick_enabled")
	p, _, fsys := newTestPipeline(t, "linux")

	_, err := p.Build(context.Background(), demoRequest())
	assert.ErrorIs(t, err, generate.ErrSymbolMissing)
	assert.Contains(t, err.Error(), "demo_tick_enabled")

	ok, _ := afero.Exists(fsys, "/out/libdemo.so")
	assert.False(t, ok)
}

func TestBuildUpToDate(t *testing.T) {
	stubSymbols(t)
	p, r, _ := newTestPipeline(t, "linux")
	ctx := context.Background()

	_, err := p.Build(ctx, demoRequest())
	require.NoError(t, err)
	require.Len(t, r.calls, 4)

	res, err := p.Build(ctx, demoRequest())
	require.NoError(t, err)
	assert.True(t, res.UpToDate)
	assert.Len(t, r.calls, 4, "unchanged schema must not rebuild")
	assert.Equal(t, 2, res.Manifest.Len())

	req := demoRequest()
	req.Force = true
	res, err = p.Build(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.UpToDate)
	assert.Len(t, r.calls, 8)

	req = demoRequest()
	req.Source = []byte(demoSchema + "\n// changed\n")
	res, err = p.Build(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.UpToDate)
	assert.Len(t, r.calls, 12)
}

func TestBuildUpToDateSelectionChange(t *testing.T) {
	p, r, fsys := newTestPipeline(t, "linux")
	orig := readSymbols
	t.Cleanup(func() { readSymbols = orig })
	readSymbols = func(afero.Fs, string, Platform) (map[string]bool, error) {
		return map[string]bool{"a_x": true, "a_x_enabled": true, "b_y": true, "b_y_enabled": true}, nil
	}
	ctx := context.Background()

	req := Request{
		SchemaName: "provider.d",
		Source:     []byte(`provider a { probe x(); }; provider b { probe y(); };`),
		OutDir:     "/out",
		Library:    "probes",
	}
	_, err := p.Build(ctx, req)
	require.NoError(t, err)
	require.Len(t, r.calls, 4)

	req.Selection = schema.SelectAll
	res, err := p.Build(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.UpToDate, "a new provider selection must rebuild")
	assert.Len(t, r.calls, 8)

	header, err := afero.ReadFile(fsys, "/out/wrapper.h")
	require.NoError(t, err)
	for _, name := range res.Manifest.Names() {
		assert.Contains(t, string(header), name)
	}
}

func TestBuildUpToDateToolchainChange(t *testing.T) {
	stubSymbols(t)
	p, r, fsys := newTestPipeline(t, "linux")
	ctx := context.Background()

	_, err := p.Build(ctx, demoRequest())
	require.NoError(t, err)
	require.Len(t, r.calls, 4)

	tc := p.toolchain
	tc.CFlags = []string{"-O0", "-g"}
	p2 := New(tc, p.platform, WithFs(fsys), WithRunner(r), WithGeneratorVersion("v0.0.0-test"))
	res, err := p2.Build(ctx, demoRequest())
	require.NoError(t, err)
	assert.False(t, res.UpToDate, "changed compiler flags must rebuild")
	assert.Len(t, r.calls, 8)

	res, err = p2.Build(ctx, demoRequest())
	require.NoError(t, err)
	assert.True(t, res.UpToDate)
}

func TestBuildUpToDateMachineChange(t *testing.T) {
	stubSymbols(t)
	orig := hostInfo
	t.Cleanup(func() { hostInfo = orig })
	machine := "x86_64"
	hostInfo = func() (string, string) { return machine, "Linux 6.1 " + machine }

	p, r, fsys := newTestPipeline(t, "linux")
	ctx := context.Background()

	_, err := p.Build(ctx, demoRequest())
	require.NoError(t, err)

	s, ok, err := readStamp(fsys, "/out")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x86_64", s.Machine)
	assert.Equal(t, "Linux 6.1 x86_64", s.Host)

	machine = "aarch64"
	res, err := p.Build(ctx, demoRequest())
	require.NoError(t, err)
	assert.False(t, res.UpToDate, "a library built on another machine must rebuild")
	assert.Len(t, r.calls, 8)
}

func TestBuildInvalidSchema(t *testing.T) {
	p, r, fsys := newTestPipeline(t, "linux")

	req := demoRequest()
	req.Source = []byte(`provider demo { probe tick(double); };`)
	_, err := p.Build(context.Background(), req)
	assert.Error(t, err)
	assert.Empty(t, r.calls)

	ok, _ := afero.DirExists(fsys, "/out")
	assert.False(t, ok)
}

func TestBuildSelection(t *testing.T) {
	stubSymbols(t)
	p, _, fsys := newTestPipeline(t, "linux")

	req := demoRequest()
	req.Source = []byte(demoSchema + "\nprovider other { probe x(); };")
	res, err := p.Build(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Providers, 1)
	assert.Equal(t, "demo", res.Providers[0].Name)

	def, err := afero.ReadFile(fsys, "/out/provider.d")
	require.NoError(t, err)
	assert.NotContains(t, string(def), "other")

	readSymbols = func(afero.Fs, string, Platform) (map[string]bool, error) {
		return map[string]bool{
			"demo_tick": true, "demo_tick_enabled": true,
			"other_x": true, "other_x_enabled": true,
		}, nil
	}
	req.Selection = schema.SelectAll
	req.Library = "probes"
	res, err = p.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Providers, 2)
	assert.Equal(t, "/out/libprobes.so", res.Artifact)
}

func TestPipelineGenerate(t *testing.T) {
	p, r, _ := newTestPipeline(t, "linux")
	providers, out, err := p.Generate(demoRequest())
	require.NoError(t, err)
	assert.Len(t, providers, 1)
	assert.Contains(t, string(out.Files[generate.SourceFile]), "DEMO_TICK(arg0, arg1);")
	assert.Empty(t, r.calls)
}

func TestLookupPlatform(t *testing.T) {
	p, err := LookupPlatform("freebsd")
	require.NoError(t, err)
	assert.True(t, p.LinkProbes)
	assert.Equal(t, "libx.so", p.LibraryFile("x"))

	_, err = LookupPlatform("windows")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)

	assert.Contains(t, Platforms(), "darwin")
}

func TestExportedSymbolsNotABinary(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/lib.so", []byte("not a library"), 0o644))

	for _, goos := range []string{"linux", "darwin"} {
		p, err := LookupPlatform(goos)
		require.NoError(t, err)
		_, err = exportedSymbols(fsys, "/lib.so", p)
		assert.Error(t, err, goos)
	}
}
