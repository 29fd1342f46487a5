// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package render renders embedded code templates.
package render

import (
	"bytes"
	"io"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"text/template"
)

// Renderer renders templates from an fs.FS.
type Renderer struct {
	log *slog.Logger

	fs    fs.FS
	src   string
	funcs template.FuncMap
}

// NewRenderer returns a new Renderer used to render the template files found
// in f matching the src pattern. The funcs are made available to every
// template.
func NewRenderer(l *slog.Logger, f fs.FS, src string, funcs template.FuncMap) Renderer {
	if l == nil {
		l = Discard()
	}
	return Renderer{log: l.With("renderer", src), fs: f, src: src, funcs: funcs}
}

// Render renders the Renderer's templates using data. The returned map is
// keyed by template name with any ".tmpl" suffix removed.
//
// Nothing is written anywhere: callers decide where, and whether, the
// rendered content is stored.
func (r Renderer) Render(data any) (map[string][]byte, error) {
	r.log.Debug("rendering...")

	tmpls, err := template.New("render").Funcs(r.funcs).ParseFS(r.fs, r.src)
	if err != nil {
		return nil, err
	}

	list := tmpls.Templates()
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })

	out := make(map[string][]byte, len(list))
	for _, tmpl := range list {
		if !strings.HasSuffix(tmpl.Name(), ".tmpl") {
			continue
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(tmpl.Name(), ".tmpl")
		out[name] = buf.Bytes()
		r.log.Debug("rendered template", "template", name, "bytes", buf.Len())
	}
	return out, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
