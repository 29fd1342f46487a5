// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the usdtgen configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"go.opentelemetry.io/usdt/internal/pkg/bindings"
	"go.opentelemetry.io/usdt/internal/pkg/build"
	"go.opentelemetry.io/usdt/internal/pkg/schema"
)

// DefaultFile is the configuration file loaded when none is named.
const DefaultFile = "usdtgen.yaml"

const (
	envCC     = "CC"
	envDTrace = "DTRACE"
	envOutDir = "USDT_OUT_DIR"
)

// Config is the usdtgen configuration.
type Config struct {
	// Schema is the path of the provider definition.
	Schema string `yaml:"schema"`
	// OutDir receives the generated sources and the library.
	OutDir string `yaml:"out_dir"`
	// Library is the library base name. Defaults to the first provider name.
	Library   string           `yaml:"library"`
	Providers schema.Selection `yaml:"providers"`
	// Platform is the target operating system.
	Platform string `yaml:"platform"`

	Toolchain Toolchain `yaml:"toolchain"`
	Bindings  Bindings  `yaml:"bindings"`
}

// Toolchain configures the external build tools.
type Toolchain struct {
	CC            string   `yaml:"cc"`
	DTrace        string   `yaml:"dtrace"`
	CFlags        []string `yaml:"cflags"`
	CCVersion     string   `yaml:"cc_version"`
	DTraceVersion string   `yaml:"dtrace_version"`
}

// Build returns the build toolchain described by t.
func (t Toolchain) Build() build.Toolchain {
	return build.Toolchain{
		CC:            t.CC,
		DTrace:        t.DTrace,
		CFlags:        t.CFlags,
		CCVersion:     t.CCVersion,
		DTraceVersion: t.DTraceVersion,
	}
}

// Bindings configures the generated Go bindings.
type Bindings struct {
	Style   bindings.Style `yaml:"style"`
	Package string         `yaml:"package"`
	// Output is the path of the generated Go file.
	Output string   `yaml:"output"`
	Allow  []string `yaml:"allow"`
	// LibDir is the library directory of cgo bindings. Defaults to OutDir.
	LibDir string `yaml:"lib_dir"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Schema:    "provider.d",
		OutDir:    "usdt",
		Providers: schema.SelectFirst,
		Platform:  runtime.GOOS,
		Bindings: Bindings{
			Style:   bindings.StylePurego,
			Package: "probes",
			Output:  "probes/probes.go",
		},
	}
}

// Error is a configuration problem.
type Error struct {
	Path  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	case e.Field != "":
		return fmt.Sprintf("config field %s: %v", e.Field, e.Err)
	default:
		return fmt.Sprintf("config: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks c is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Schema == "" {
		errs = append(errs, &Error{Field: "schema", Err: errors.New("required")})
	}
	if c.OutDir == "" {
		errs = append(errs, &Error{Field: "out_dir", Err: errors.New("required")})
	}
	if c.Library != "" && !identRe.MatchString(c.Library) {
		errs = append(errs, &Error{Field: "library", Err: fmt.Errorf("invalid name %q", c.Library)})
	}
	if _, err := build.LookupPlatform(c.Platform); err != nil {
		errs = append(errs, &Error{Field: "platform", Err: err})
	}
	if !identRe.MatchString(c.Bindings.Package) {
		errs = append(errs, &Error{Field: "bindings.package", Err: fmt.Errorf("invalid package name %q", c.Bindings.Package)})
	}
	return errors.Join(errs...)
}

// Loader loads configuration from a file and the environment.
type Loader struct {
	fs     afero.Fs
	getenv func(string) string
}

// NewLoader returns a Loader reading the OS filesystem and environment.
func NewLoader() *Loader {
	return &Loader{fs: afero.NewOsFs(), getenv: os.Getenv}
}

// WithFs sets the filesystem configuration files are read from.
func (l *Loader) WithFs(fsys afero.Fs) *Loader {
	l.fs = fsys
	return l
}

// WithEnv sets the environment lookup function.
func (l *Loader) WithEnv(getenv func(string) string) *Loader {
	l.getenv = getenv
	return l
}

// Load returns the configuration with precedence defaults, file at path,
// environment. If path is empty DefaultFile is used when it exists.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := afero.ReadFile(l.fs, path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &Error{Path: path, Err: err}
		}
	case !explicit && errors.Is(err, os.ErrNotExist):
	default:
		return nil, &Error{Path: path, Err: err}
	}

	l.applyEnv(cfg)
	return cfg, nil
}

func (l *Loader) applyEnv(cfg *Config) {
	if v := l.getenv(envCC); v != "" {
		cfg.Toolchain.CC = v
	}
	if v := l.getenv(envDTrace); v != "" {
		cfg.Toolchain.DTrace = v
	}
	if v := l.getenv(envOutDir); v != "" {
		cfg.OutDir = v
	}
}
