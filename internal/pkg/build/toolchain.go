// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"

	"github.com/hashicorp/go-version"
)

var (
	// ErrToolchainMissing is returned when a required tool cannot be found.
	ErrToolchainMissing = errors.New("toolchain missing")
	// ErrToolchainVersion is returned when a tool does not satisfy its
	// version constraint.
	ErrToolchainVersion = errors.New("toolchain version not supported")
)

const (
	envCC     = "CC"
	envDTrace = "DTRACE"

	defaultCC     = "cc"
	defaultDTrace = "dtrace"
)

// Overridden in tests.
var (
	lookPath = exec.LookPath
	getenv   = os.Getenv
)

// Toolchain is the set of external tools used to build a probe library.
type Toolchain struct {
	// CC is the C compiler.
	CC string
	// DTrace is the probe-definition compiler.
	DTrace string
	// CFlags are extra flags passed to every compiler invocation.
	CFlags []string

	// CCVersion and DTraceVersion are optional version constraints, e.g.
	// ">= 9.0".
	CCVersion     string
	DTraceVersion string
}

// inputs returns the tools and flags that shape the built library.
func (t Toolchain) inputs() []string {
	return append([]string{"cc=" + t.CC, "dtrace=" + t.DTrace}, t.CFlags...)
}

// Resolve returns a copy of t with CC and DTrace resolved to executable
// paths. Unset tools are taken from the CC and DTRACE environment variables,
// then from the default tool names.
func (t Toolchain) Resolve() (Toolchain, error) {
	var err error
	if t.CC, err = resolveTool(t.CC, envCC, defaultCC); err != nil {
		return t, err
	}
	if t.DTrace, err = resolveTool(t.DTrace, envDTrace, defaultDTrace); err != nil {
		return t, err
	}
	return t, nil
}

func resolveTool(configured, env, def string) (string, error) {
	name := configured
	if name == "" {
		name = getenv(env)
	}
	if name == "" {
		name = def
	}
	path, err := lookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrToolchainMissing, name, err)
	}
	return path, nil
}

var versionRe = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

// parseToolVersion returns the first version number found in out.
func parseToolVersion(out string) (*version.Version, error) {
	m := versionRe.FindString(out)
	if m == "" {
		return nil, errors.New("no version found in tool output")
	}
	return version.NewVersion(m)
}

type tool struct {
	name       string
	path       string
	args       []string
	constraint string
}

func (t Toolchain) tools() []tool {
	return []tool{
		{defaultCC, t.CC, []string{"--version"}, t.CCVersion},
		{defaultDTrace, t.DTrace, []string{"-V"}, t.DTraceVersion},
	}
}

func (c tool) version(ctx context.Context, r Runner) (*version.Version, error) {
	stdout, stderr, err := r.Run(ctx, "", c.path, c.args...)
	if err != nil {
		return nil, newStepError("version", append([]string{c.path}, c.args...), stdout, stderr, err)
	}
	v, err := parseToolVersion(stdout + stderr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.path, err)
	}
	return v, nil
}

// Check verifies the versions of t satisfy its constraints. Tools without a
// constraint are not run.
func (t Toolchain) Check(ctx context.Context, r Runner) error {
	for _, c := range t.tools() {
		if c.constraint == "" {
			continue
		}
		constraints, err := version.NewConstraint(c.constraint)
		if err != nil {
			return fmt.Errorf("invalid version constraint %q for %s: %w", c.constraint, c.path, err)
		}
		v, err := c.version(ctx, r)
		if err != nil {
			return err
		}
		if !constraints.Check(v) {
			return fmt.Errorf("%w: %s %s does not satisfy %s", ErrToolchainVersion, c.path, v, constraints)
		}
	}
	return nil
}

// UnknownVersion is reported for tools whose version cannot be determined.
const UnknownVersion = "unknown"

// ToolVersion is the version reported by one tool of a Toolchain.
type ToolVersion struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version"`
}

// Versions runs every tool of t and reports its version. Unset tools and
// tools that fail or print no version number report UnknownVersion.
func (t Toolchain) Versions(ctx context.Context, r Runner) []ToolVersion {
	var out []ToolVersion
	for _, c := range t.tools() {
		tv := ToolVersion{Name: c.name, Path: c.path, Version: UnknownVersion}
		if c.path != "" {
			if v, err := c.version(ctx, r); err == nil {
				tv.Version = v.String()
			}
		}
		out = append(out, tv)
	}
	return out
}
