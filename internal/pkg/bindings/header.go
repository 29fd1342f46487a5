// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package bindings

import (
	"regexp"
	"strings"
)

// Prototype is a C function declaration.
type Prototype struct {
	Name string
	// Return is the C return type, "void" for none.
	Return string
	// Params are the C parameter types without parameter names.
	Params []string
}

// String returns the C declaration of p without the trailing semicolon.
func (p Prototype) String() string {
	params := "void"
	if len(p.Params) > 0 {
		params = strings.Join(p.Params, ", ")
	}
	return p.Return + " " + p.Name + "(" + params + ")"
}

var (
	commentRe   = regexp.MustCompile(`(?s)/\*.*?\*/|//[^\n]*`)
	prototypeRe = regexp.MustCompile(`(?m)^[ \t]*((?:[A-Za-z_]\w*[ \t]+)*?[A-Za-z_]\w*)([ \t*]+)([A-Za-z_]\w*)[ \t]*\(([^)]*)\)[ \t]*;`)
	spacesRe    = regexp.MustCompile(`\s+`)
	paramNameRe = regexp.MustCompile(`^(.*?[\s*])[A-Za-z_]\w*$`)
)

// ParseHeader returns the function prototypes declared in a C header, in
// declaration order. Preprocessor lines are ignored.
func ParseHeader(src []byte) []Prototype {
	text := commentRe.ReplaceAllString(string(src), "")

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(l), "#") {
			lines = append(lines, l)
		}
	}
	text = strings.Join(lines, "\n")

	var out []Prototype
	for _, m := range prototypeRe.FindAllStringSubmatch(text, -1) {
		p := Prototype{Name: m[3], Return: normalizeType(m[1] + m[2])}
		args := strings.TrimSpace(m[4])
		if args != "" && args != "void" {
			for _, a := range strings.Split(args, ",") {
				p.Params = append(p.Params, paramType(a))
			}
		}
		out = append(out, p)
	}
	return out
}

// paramType strips the parameter name from a C parameter declaration.
func paramType(decl string) string {
	decl = normalizeType(decl)
	if !strings.Contains(decl, " ") {
		return decl
	}
	if m := paramNameRe.FindStringSubmatch(decl); m != nil {
		if t := normalizeType(m[1]); !isQualifierOnly(t) {
			return t
		}
	}
	return decl
}

func isQualifierOnly(t string) bool {
	switch t {
	case "const", "unsigned", "signed", "long", "short":
		return true
	}
	return false
}

// normalizeType collapses whitespace and writes pointers as "T *".
func normalizeType(t string) string {
	t = strings.ReplaceAll(t, "*", " * ")
	t = spacesRe.ReplaceAllString(strings.TrimSpace(t), " ")
	return strings.ReplaceAll(t, "* *", "**")
}
