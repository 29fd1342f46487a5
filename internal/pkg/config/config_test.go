// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/usdt/internal/pkg/bindings"
	"go.opentelemetry.io/usdt/internal/pkg/build"
	"go.opentelemetry.io/usdt/internal/pkg/schema"
)

func env(kv map[string]string) func(string) string {
	return func(k string) string { return kv[k] }
}

const fullConfig = `schema: probes/tracing.d
out_dir: build/usdt
library: tracing
providers: all
platform: freebsd
toolchain:
  cc: clang
  dtrace: /usr/sbin/dtrace
  cflags: ["-O2", "-g"]
  cc_version: ">= 14"
bindings:
  style: cgo
  package: tracingprobes
  output: tracing/bindings.go
  allow: ["tracing_*"]
  lib_dir: /usr/local/lib
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().WithFs(afero.NewMemMapFs()).WithEnv(env(nil)).Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, runtime.GOOS, cfg.Platform)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "custom.yaml", []byte(fullConfig), 0o644))

	cfg, err := NewLoader().WithFs(fsys).WithEnv(env(nil)).Load("custom.yaml")
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Schema:    "probes/tracing.d",
		OutDir:    "build/usdt",
		Library:   "tracing",
		Providers: schema.SelectAll,
		Platform:  "freebsd",
		Toolchain: Toolchain{
			CC:        "clang",
			DTrace:    "/usr/sbin/dtrace",
			CFlags:    []string{"-O2", "-g"},
			CCVersion: ">= 14",
		},
		Bindings: Bindings{
			Style:   bindings.StyleCgo,
			Package: "tracingprobes",
			Output:  "tracing/bindings.go",
			Allow:   []string{"tracing_*"},
			LibDir:  "/usr/local/lib",
		},
	}, cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, build.Toolchain{
		CC:        "clang",
		DTrace:    "/usr/sbin/dtrace",
		CFlags:    []string{"-O2", "-g"},
		CCVersion: ">= 14",
	}, cfg.Toolchain.Build())
}

func TestLoadDefaultFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, DefaultFile, []byte("out_dir: gen\n"), 0o644))

	cfg, err := NewLoader().WithFs(fsys).WithEnv(env(nil)).Load("")
	require.NoError(t, err)
	assert.Equal(t, "gen", cfg.OutDir)
	assert.Equal(t, "provider.d", cfg.Schema, "unset keys keep their default")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, DefaultFile, []byte(fullConfig), 0o644))

	cfg, err := NewLoader().WithFs(fsys).WithEnv(env(map[string]string{
		"CC":           "gcc-13",
		"USDT_OUT_DIR": "/tmp/usdt",
	})).Load("")
	require.NoError(t, err)
	assert.Equal(t, "gcc-13", cfg.Toolchain.CC)
	assert.Equal(t, "/usr/sbin/dtrace", cfg.Toolchain.DTrace)
	assert.Equal(t, "/tmp/usdt", cfg.OutDir)
}

func TestLoadErrors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "bad.yaml", []byte("providers: some\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "style.yaml", []byte("bindings:\n  style: swig\n"), 0o644))
	l := NewLoader().WithFs(fsys).WithEnv(env(nil))

	for _, path := range []string{"bad.yaml", "style.yaml", "missing.yaml"} {
		_, err := l.Load(path)
		var cErr *Error
		require.ErrorAs(t, err, &cErr, path)
		assert.Equal(t, path, cErr.Path)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Library = "lib-tracing"
	cfg.Platform = "windows"
	cfg.Bindings.Package = ""
	cfg.Schema = ""

	err := cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{"schema", "library", "platform", "bindings.package"} {
		assert.ErrorContains(t, err, "config field "+field)
	}
	assert.ErrorIs(t, err, build.ErrUnsupportedPlatform)
}
