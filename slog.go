// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"go.opentelemetry.io/usdt/internal/pkg/transfer"
)

type slogHandler struct {
	t    *Translator
	next slog.Handler

	prefix string
	attrs  fieldList
}

var _ slog.Handler = (*slogHandler)(nil)

// NewSlogHandler returns a slog.Handler firing the probes of t for every
// record, then passing the record to next. A nil next only fires probes.
//
// Records are only formatted when a probe they would fire is enabled or
// next accepts them.
func NewSlogHandler(t *Translator, next slog.Handler) slog.Handler {
	return &slogHandler{t: t, next: next}
}

func (h *slogHandler) Enabled(ctx context.Context, l slog.Level) bool {
	if h.t.EventEnabled() {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, l)
}

func (h *slogHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.t.EventEnabled() {
		fields := make(fieldList, 0, 1+len(h.attrs)+r.NumAttrs())
		fields = append(fields, field{transfer.MessageKey, r.Message})
		fields = append(fields, h.attrs...)
		r.Attrs(func(a slog.Attr) bool {
			fields = fields.appendAttr(h.prefix, a)
			return true
		})

		name, target := caller(r.PC)
		h.t.OnEvent(&Event{
			Metadata: Metadata{Name: name, Target: target, Level: levelOf(r.Level)},
			Fields:   fields,
		}, nil)
	}

	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = make(fieldList, len(h.attrs), len(h.attrs)+len(attrs))
	copy(h2.attrs, h.attrs)
	for _, a := range attrs {
		h2.attrs = h2.attrs.appendAttr(h.prefix, a)
	}
	if h.next != nil {
		h2.next = h.next.WithAttrs(attrs)
	}
	return &h2
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	if h.next != nil {
		h2.next = h.next.WithGroup(name)
	}
	return &h2
}

// caller returns the event name and target of the call site pc.
func caller(pc uintptr) (name, target string) {
	if pc == 0 {
		return "event", ""
	}
	f, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return fmt.Sprintf("event %s:%d", f.File, f.Line), f.Function
}

type field struct {
	key   string
	value any
}

// fieldList is Fields holding flattened slog attributes.
type fieldList []field

func (l fieldList) Range(f func(key string, value any) bool) {
	for _, fld := range l {
		if !f(fld.key, fld.value) {
			return
		}
	}
}

func (l fieldList) appendAttr(prefix string, a slog.Attr) fieldList {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			l = l.appendAttr(prefix, ga)
		}
		return l
	}
	if a.Key == "" {
		return l
	}
	return append(l, field{prefix + a.Key, a.Value.Any()})
}
