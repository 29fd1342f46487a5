// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"debug/elf"
	"debug/macho"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"go.opentelemetry.io/usdt/internal/pkg/generate"
)

// Overridden in tests.
var readSymbols = exportedSymbols

// exportedSymbols returns the names of the symbols defined by the library at
// path, without the platform symbol prefix.
func exportedSymbols(fsys afero.Fs, path string, p Platform) (map[string]bool, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]bool)
	switch p.Format {
	case FormatELF:
		ef, err := elf.NewFile(f)
		if err != nil {
			return nil, err
		}
		syms, err := ef.DynamicSymbols()
		if err != nil {
			return nil, err
		}
		for _, s := range syms {
			if s.Section != elf.SHN_UNDEF {
				out[s.Name] = true
			}
		}
	case FormatMachO:
		mf, err := macho.NewFile(f)
		if err != nil {
			return nil, err
		}
		if mf.Symtab == nil {
			return out, nil
		}
		for _, s := range mf.Symtab.Syms {
			if s.Sect != 0 {
				out[strings.TrimPrefix(s.Name, p.SymbolPrefix)] = true
			}
		}
	default:
		return nil, fmt.Errorf("unknown binary format %q", p.Format)
	}
	return out, nil
}

// verifySymbols checks the library at path exports every name.
func verifySymbols(fsys afero.Fs, path string, p Platform, names []string) error {
	syms, err := readSymbols(fsys, path, p)
	if err != nil {
		return fmt.Errorf("failed to read symbols of %s: %w", path, err)
	}
	var missing []string
	for _, n := range names {
		if !syms[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", generate.ErrSymbolMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Verify checks the library at path of fsys, built for p, exports every
// symbol of m.
func Verify(fsys afero.Fs, path string, p Platform, m generate.Manifest) error {
	return verifySymbols(fsys, path, p, m.Names())
}
