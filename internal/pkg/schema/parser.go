// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/hashicorp/go-multierror"
)

// ErrNoProviders is returned when a source does not declare any provider.
var ErrNoProviders = errors.New("no provider declared")

// ParseError is a problem found at a position of a provider definition.
type ParseError struct {
	Pos lexer.Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

var dLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `/\*([^*]|\*+[^*/])*\*+/|//[^\n]*`},
	{Name: "Pragma", Pattern: `#[^\n]*`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[{}();,*]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type fileAST struct {
	Providers []*providerAST `@@*`
}

type providerAST struct {
	Pos lexer.Position

	Name   string      `"provider" @Ident "{"`
	Probes []*probeAST `@@* "}" ";"?`
}

type probeAST struct {
	Pos lexer.Position

	Name string    `"probe" @Ident "("`
	Args []*argAST `( @@ ( "," @@ )* )? ")" ";"`
}

type argAST struct {
	Pos lexer.Position

	Words []string `@Ident+`
	Stars []string `@"*"*`
	Name  string   `@Ident?`
}

var dParser = participle.MustBuild[fileAST](
	participle.Lexer(dLexer),
	participle.Elide("Comment", "Pragma", "Whitespace"),
)

var typeTokens = map[string]Type{
	"int8_t":             Int8,
	"i8":                 Int8,
	"char":               Int8,
	"signed char":        Int8,
	"int16_t":            Int16,
	"i16":                Int16,
	"short":              Int16,
	"int32_t":            Int32,
	"i32":                Int32,
	"int":                Int32,
	"int64_t":            Int64,
	"i64":                Int64,
	"long":               Int64,
	"long long":          Int64,
	"uint8_t":            Uint8,
	"u8":                 Uint8,
	"unsigned char":      Uint8,
	"uint16_t":           Uint16,
	"u16":                Uint16,
	"unsigned short":     Uint16,
	"uint32_t":           Uint32,
	"u32":                Uint32,
	"unsigned":           Uint32,
	"unsigned int":       Uint32,
	"uint64_t":           Uint64,
	"u64":                Uint64,
	"unsigned long":      Uint64,
	"unsigned long long": Uint64,
	"bool":               Bool,
	"_Bool":              Bool,
	"string":             String,
	"char *":             String,
	"const char *":       String,
	"float":              Float32,
	"f32":                Float32,
	"double":             Float64,
	"f64":                Float64,
	"void *":             Pointer,
	"const void *":       Pointer,
}

// ParseFile parses the provider definition stored at path.
func ParseFile(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, src)
}

// Parse parses src, a provider definition named filename.
//
// Every validation problem found in src is reported, the returned error is
// then a *multierror.Error of *ParseError.
func Parse(filename string, src []byte) (*File, error) {
	ast, err := dParser.ParseBytes(filename, src)
	if err != nil {
		var pErr participle.Error
		if errors.As(err, &pErr) {
			return nil, &ParseError{Pos: pErr.Position(), Msg: pErr.Message()}
		}
		return nil, err
	}

	if len(ast.Providers) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, ErrNoProviders)
	}

	var result *multierror.Error
	f := &File{Name: filename}
	for _, pAST := range ast.Providers {
		p, err := convertProvider(pAST)
		result = multierror.Append(result, err)
		f.Providers = append(f.Providers, p)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return f, nil
}

func convertProvider(pAST *providerAST) (Provider, error) {
	var result *multierror.Error

	p := Provider{Name: pAST.Name, Pos: pAST.Pos}
	if len(pAST.Probes) == 0 {
		result = multierror.Append(result, &ParseError{
			Pos: pAST.Pos,
			Msg: fmt.Sprintf("provider %q declares no probes", pAST.Name),
		})
	}

	seen := make(map[string]lexer.Position, len(pAST.Probes))
	for _, prAST := range pAST.Probes {
		if first, ok := seen[prAST.Name]; ok {
			result = multierror.Append(result, &ParseError{
				Pos: prAST.Pos,
				Msg: fmt.Sprintf("duplicate probe %q in provider %q (first declared at %s)", prAST.Name, pAST.Name, first),
			})
			continue
		}
		seen[prAST.Name] = prAST.Pos

		probe := Probe{Name: prAST.Name, Pos: prAST.Pos, Args: make([]Type, 0, len(prAST.Args))}
		for _, arg := range prAST.Args {
			t, ok := resolveType(arg)
			if !ok {
				result = multierror.Append(result, &ParseError{
					Pos: arg.Pos,
					Msg: fmt.Sprintf("unknown type %q for probe %q", arg.spelling(), prAST.Name),
				})
				continue
			}
			probe.Args = append(probe.Args, t)
		}
		p.Probes = append(p.Probes, probe)
	}
	return p, result.ErrorOrNil()
}

func (a *argAST) spelling() string {
	s := strings.Join(a.Words, " ")
	if len(a.Stars) > 0 {
		s += " " + strings.Join(a.Stars, "")
	}
	if a.Name != "" {
		s += " " + a.Name
	}
	return s
}

// resolveType looks up the type spelled by a. A trailing identifier is
// treated as an argument name when the remaining words spell a known type.
func resolveType(a *argAST) (Type, bool) {
	stars := strings.Repeat(" *", len(a.Stars))
	if t, ok := typeTokens[strings.Join(a.Words, " ")+stars]; ok {
		return t, true
	}
	if len(a.Stars) == 0 && a.Name == "" && len(a.Words) > 1 {
		t, ok := typeTokens[strings.Join(a.Words[:len(a.Words)-1], " ")]
		return t, ok
	}
	return Invalid, false
}
