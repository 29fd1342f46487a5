// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"go.opentelemetry.io/otel/trace"
)

// Metadata describes the call site of an event or span.
type Metadata struct {
	Name string
	// Target is the component the event or span originates from.
	Target string
	Level  Level
}

// Fields is the set of fields of an event or span.
type Fields interface {
	// Range calls f for every field until f returns false.
	Range(f func(key string, value any) bool)
}

// Map is Fields backed by a map.
type Map map[string]any

// Range implements Fields.
func (m Map) Range(f func(key string, value any) bool) {
	for k, v := range m {
		if !f(k, v) {
			return
		}
	}
}

// Event is a tracing event.
type Event struct {
	Metadata
	Fields Fields
}

// Attributes are the attributes of a span.
type Attributes struct {
	Metadata
	Fields Fields
}

// Context gives access to the spans known to the event source.
type Context interface {
	// Span returns the attributes stored for the span id.
	Span(id trace.SpanID) (*Attributes, bool)
}

// Layer receives the events and span transitions of an event source. Every
// method is called synchronously on the goroutine that produced the event.
type Layer interface {
	OnEvent(e *Event, ctx Context)
	OnNewSpan(attrs *Attributes, id trace.SpanID, ctx Context)
	OnEnter(id trace.SpanID, ctx Context)
	OnExit(id trace.SpanID, ctx Context)
}
