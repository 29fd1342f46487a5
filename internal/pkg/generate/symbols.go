// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/usdt/internal/pkg/native"
)

// ErrSymbolMissing is returned when a generated symbol cannot be found where
// it is expected, in a built library or a header.
var ErrSymbolMissing = errors.New("generated symbol missing")

// SymbolKind is the kind of a generated native function.
type SymbolKind int

const (
	// Entry fires a probe.
	Entry SymbolKind = iota
	// EnabledQuery reports whether a probe is enabled.
	EnabledQuery
)

func (k SymbolKind) String() string {
	switch k {
	case Entry:
		return "entry"
	case EnabledQuery:
		return "enabled"
	default:
		return fmt.Sprintf("SymbolKind(%d)", int(k))
	}
}

// Symbol is a native function exported by the generated wrapper.
type Symbol struct {
	Provider string
	Probe    string
	Kind     SymbolKind

	// Params are the native parameter types in order. Empty for
	// EnabledQuery symbols.
	Params []native.Type
}

// Name returns the exported symbol name.
func (s Symbol) Name() string {
	if s.Kind == EnabledQuery {
		return EnabledName(s.Provider, s.Probe)
	}
	return EntryName(s.Provider, s.Probe)
}

// EntryName returns the entry symbol name of a probe.
func EntryName(provider, probe string) string {
	return provider + "_" + probe
}

// EnabledName returns the enabled query symbol name of a probe.
func EnabledName(provider, probe string) string {
	return provider + "_" + probe + "_enabled"
}

// MacroName returns the name of the fire macro the probe-definition compiler
// emits for a probe. Double underscores in probe names collapse to one.
func MacroName(provider, probe string) string {
	return strings.ToUpper(provider) + "_" + strings.ToUpper(strings.ReplaceAll(probe, "__", "_"))
}

// Manifest lists every symbol generated for a set of providers.
type Manifest struct {
	symbols []Symbol
}

// Symbols returns the generated symbols sorted by name.
func (m Manifest) Symbols() []Symbol {
	out := make([]Symbol, len(m.symbols))
	copy(out, m.symbols)
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns the sorted symbol names.
func (m Manifest) Names() []string {
	syms := m.Symbols()
	names := make([]string, len(syms))
	for i, s := range syms {
		names[i] = s.Name()
	}
	return names
}

// Providers returns the distinct provider names in declaration order.
func (m Manifest) Providers() []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range m.symbols {
		if !seen[s.Provider] {
			seen[s.Provider] = true
			out = append(out, s.Provider)
		}
	}
	return out
}

// Lookup returns the symbol named name.
func (m Manifest) Lookup(name string) (Symbol, bool) {
	for _, s := range m.symbols {
		if s.Name() == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// Len returns the number of symbols in m.
func (m Manifest) Len() int { return len(m.symbols) }

// NewManifest returns a Manifest of symbols.
func NewManifest(symbols []Symbol) Manifest {
	return Manifest{symbols: symbols}
}
