// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnsupportedPlatform is returned for an operating system without static
// tracepoint support.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Binary format of produced artifacts.
const (
	FormatELF   = "elf"
	FormatMachO = "macho"
)

// Platform describes how to build a probe library for an operating system.
type Platform struct {
	OS string

	// LinkProbes is true when provider definitions must be linked into an
	// object of their own with the probe-definition compiler.
	LinkProbes bool

	// SharedFlags are the compiler flags producing a shared library.
	SharedFlags []string
	// Ext is the shared library file extension.
	Ext string
	// Format is the binary format of the shared library.
	Format string
	// SymbolPrefix is prepended to C names in the symbol table.
	SymbolPrefix string
	// LibraryPathEnv is the loader search path variable.
	LibraryPathEnv string
}

// LibraryFile returns the file name of the shared library called name.
func (p Platform) LibraryFile(name string) string {
	return "lib" + name + p.Ext
}

func elfPlatform(os string) Platform {
	return Platform{
		OS:             os,
		LinkProbes:     true,
		SharedFlags:    []string{"-shared", "-fPIC"},
		Ext:            ".so",
		Format:         FormatELF,
		LibraryPathEnv: "LD_LIBRARY_PATH",
	}
}

var platforms = map[string]Platform{
	"linux":   elfPlatform("linux"),
	"freebsd": elfPlatform("freebsd"),
	"illumos": elfPlatform("illumos"),
	"solaris": elfPlatform("solaris"),
	"darwin": {
		OS:             "darwin",
		SharedFlags:    []string{"-dynamiclib", "-fPIC"},
		Ext:            ".dylib",
		Format:         FormatMachO,
		SymbolPrefix:   "_",
		LibraryPathEnv: "DYLD_LIBRARY_PATH",
	},
}

// LookupPlatform returns the Platform of goos.
func LookupPlatform(goos string) (Platform, error) {
	p, ok := platforms[goos]
	if !ok {
		return Platform{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
	return p, nil
}

// Platforms returns the supported operating systems.
func Platforms() []string {
	out := make([]string, 0, len(platforms))
	for os := range platforms {
		out = append(out, os)
	}
	sort.Strings(out)
	return out
}
