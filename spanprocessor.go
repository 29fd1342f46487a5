// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type spanProcessor struct {
	t *Translator
}

var _ sdktrace.SpanProcessor = spanProcessor{}

// NewSpanProcessor returns a SpanProcessor firing the enter probe of t when
// a span starts and its exit probe when the span ends.
//
// Spans are translated at LevelInfo with the instrumentation scope name as
// target. The exit probe carries the attributes the span ended with.
func NewSpanProcessor(t *Translator) sdktrace.SpanProcessor {
	return spanProcessor{t: t}
}

func (p spanProcessor) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	if !p.t.EnterEnabled() {
		return
	}
	id := s.SpanContext().SpanID()
	attrs := spanAttributes(s)
	p.t.OnNewSpan(attrs, id, nil)
	p.t.OnEnter(id, nil)
}

func (p spanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	if !p.t.ExitEnabled() {
		return
	}
	id := s.SpanContext().SpanID()
	p.t.OnExit(id, endedSpan{id: id, span: s})
}

func (spanProcessor) Shutdown(context.Context) error   { return nil }
func (spanProcessor) ForceFlush(context.Context) error { return nil }

func spanAttributes(s sdktrace.ReadOnlySpan) *Attributes {
	return &Attributes{
		Metadata: Metadata{
			Name:   s.Name(),
			Target: s.InstrumentationScope().Name,
			Level:  LevelInfo,
		},
		Fields: kvFields(s.Attributes()),
	}
}

// endedSpan is the Context of a span that ended.
type endedSpan struct {
	id   trace.SpanID
	span sdktrace.ReadOnlySpan
}

func (e endedSpan) Span(id trace.SpanID) (*Attributes, bool) {
	if id != e.id {
		return nil, false
	}
	return spanAttributes(e.span), true
}

// kvFields is Fields holding OpenTelemetry attributes.
type kvFields []attribute.KeyValue

func (l kvFields) Range(f func(key string, value any) bool) {
	for _, kv := range l {
		if !f(string(kv.Key), kv.Value.Emit()) {
			return
		}
	}
}
