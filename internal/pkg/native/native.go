// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package native maps provider argument types to their native calling
// convention representation.
package native

import (
	"fmt"

	"go.opentelemetry.io/usdt/internal/pkg/schema"
)

// Kind classifies how a native value is passed across the FFI boundary.
type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindString
)

// Type is the native representation of a schema.Type.
type Type struct {
	// C is the C parameter type of generated entry points.
	C string
	// D is the type written in the normalized provider definition handed to
	// the probe-definition compiler.
	D string
	// Go is the Go parameter type used by generated bindings.
	Go string
	// CGo is the cgo type the Go value is converted to in cgo bindings.
	CGo string

	Kind Kind
}

// UnsupportedTypeError is returned when a schema type has no native mapping.
type UnsupportedTypeError struct {
	Type     schema.Type
	Provider string
	Probe    string
	Index    int
}

func (e *UnsupportedTypeError) Error() string {
	if e.Probe == "" {
		return fmt.Sprintf("unsupported probe argument type %s", e.Type)
	}
	return fmt.Sprintf("%s:%s: argument %d: unsupported probe argument type %s", e.Provider, e.Probe, e.Index, e.Type)
}

// The mapping is fixed so regenerated sources stay byte-identical.
var table = map[schema.Type]Type{
	schema.Int8:   {C: "int8_t", D: "int8_t", Go: "int8", CGo: "C.int8_t", Kind: KindInt},
	schema.Int16:  {C: "int16_t", D: "int16_t", Go: "int16", CGo: "C.int16_t", Kind: KindInt},
	schema.Int32:  {C: "int32_t", D: "int32_t", Go: "int32", CGo: "C.int32_t", Kind: KindInt},
	schema.Int64:  {C: "int64_t", D: "int64_t", Go: "int64", CGo: "C.int64_t", Kind: KindInt},
	schema.Uint8:  {C: "uint8_t", D: "uint8_t", Go: "uint8", CGo: "C.uint8_t", Kind: KindInt},
	schema.Uint16: {C: "uint16_t", D: "uint16_t", Go: "uint16", CGo: "C.uint16_t", Kind: KindInt},
	schema.Uint32: {C: "uint32_t", D: "uint32_t", Go: "uint32", CGo: "C.uint32_t", Kind: KindInt},
	schema.Uint64: {C: "uint64_t", D: "uint64_t", Go: "uint64", CGo: "C.uint64_t", Kind: KindInt},
	// bool shares uint8_t with Uint8: both are passed as a zero-extended
	// 8-bit integer.
	schema.Bool:   {C: "uint8_t", D: "uint8_t", Go: "bool", CGo: "C.uint8_t", Kind: KindBool},
	schema.String: {C: "const char *", D: "char *", Go: "*byte", CGo: "*C.char", Kind: KindString},
}

// Enabled is the return type of every enabled query.
var Enabled = Type{C: "int", D: "int", Go: "int32", CGo: "C.int", Kind: KindInt}

// Map returns the native representation of t.
func Map(t schema.Type) (Type, error) {
	nt, ok := table[t]
	if !ok {
		return Type{}, &UnsupportedTypeError{Type: t}
	}
	return nt, nil
}

// MapProbe maps every argument of p in order.
func MapProbe(provider string, p schema.Probe) ([]Type, error) {
	out := make([]Type, len(p.Args))
	for i, arg := range p.Args {
		nt, err := Map(arg)
		if err != nil {
			return nil, &UnsupportedTypeError{Type: arg, Provider: provider, Probe: p.Name, Index: i}
		}
		out[i] = nt
	}
	return out, nil
}

// LookupC returns the native type whose C spelling is c. It is used to
// recover Go types from prototypes found in generated headers.
func LookupC(c string) (Type, bool) {
	if c == Enabled.C {
		return Enabled, true
	}
	for _, t := range []schema.Type{
		schema.Int8, schema.Int16, schema.Int32, schema.Int64,
		schema.Uint8, schema.Uint16, schema.Uint32, schema.Uint64,
		schema.String,
	} {
		if nt := table[t]; nt.C == c {
			return nt, true
		}
	}
	return Type{}, false
}
