// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema parses DTrace provider definitions into the probe model used
// by the generators.
package schema

import (
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
)

// Type is a probe argument type as written in a provider definition.
type Type int

const (
	// Invalid is the zero Type, it is never produced by the parser.
	Invalid Type = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Bool
	String
	// Float32, Float64 and Pointer are recognized so they can be reported
	// precisely, but no native mapping exists for them.
	Float32
	Float64
	Pointer
)

var typeNames = [...]string{
	Invalid: "invalid",
	Int8:    "int8_t",
	Int16:   "int16_t",
	Int32:   "int32_t",
	Int64:   "int64_t",
	Uint8:   "uint8_t",
	Uint16:  "uint16_t",
	Uint32:  "uint32_t",
	Uint64:  "uint64_t",
	Bool:    "bool",
	String:  "string",
	Float32: "float",
	Float64: "double",
	Pointer: "void *",
}

// String returns the canonical spelling of t.
func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Probe is a single probe declaration.
type Probe struct {
	Name string
	// Args are the argument types in declaration order. The order is the
	// parameter order of every generated entry point.
	Args []Type

	Pos lexer.Position
}

// Provider is a named group of probes.
type Provider struct {
	Name   string
	Probes []Probe

	Pos lexer.Position
}

// File is a parsed provider definition source. Providers are kept in
// declaration order.
type File struct {
	Name      string
	Providers []Provider
}

// Selection determines which providers of a File are used for generation.
type Selection string

const (
	// SelectFirst uses only the first declared provider.
	SelectFirst Selection = "first"
	// SelectAll uses every declared provider.
	SelectAll Selection = "all"
)

// UnmarshalText decodes text into s.
func (s *Selection) UnmarshalText(text []byte) error {
	switch v := Selection(text); v {
	case SelectFirst, SelectAll:
		*s = v
	case "":
		*s = SelectFirst
	default:
		return fmt.Errorf("invalid provider selection: %q", string(text))
	}
	return nil
}

// Select returns the providers chosen by sel and the names of the providers
// that were not selected.
func (f *File) Select(sel Selection) (selected []Provider, ignored []string) {
	if len(f.Providers) == 0 {
		return nil, nil
	}
	if sel == SelectAll {
		return f.Providers, nil
	}
	for _, p := range f.Providers[1:] {
		ignored = append(ignored, p.Name)
	}
	return f.Providers[:1], ignored
}
