// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"go.opentelemetry.io/otel/trace"

	"go.opentelemetry.io/usdt/internal/pkg/transfer"
	"go.opentelemetry.io/usdt/probe"
)

// Translator is a Layer firing native probes.
//
// Nothing is formatted unless a probe that would fire is enabled: the
// enabled queries are the only work done while no tracer is attached.
type Translator struct {
	probes probe.Table
	mode   LevelMode
	// events are the probes an event may fire, in firing order.
	events []probe.Event

	close func() error
}

var _ Layer = (*Translator)(nil)

// NewTranslator returns a Translator firing the probes of t.
func NewTranslator(t probe.Table, mode LevelMode) *Translator {
	if mode == "" {
		mode = LevelsSixWay
	}
	events := []probe.Event{t.Event}
	if mode == LevelsSixWay {
		events = append(events, t.Trace, t.Debug, t.Info, t.Warn, t.Error)
	}
	return &Translator{probes: t, mode: mode, events: events, close: func() error { return nil }}
}

// EventEnabled reports whether any event probe is enabled.
func (t *Translator) EventEnabled() bool {
	for _, p := range t.events {
		if p.On() {
			return true
		}
	}
	return false
}

// EnterEnabled reports whether new spans fire the enter probe.
func (t *Translator) EnterEnabled() bool { return t.probes.Enter.On() }

// ExitEnabled reports whether exited spans fire the exit probe.
func (t *Translator) ExitEnabled() bool { return t.probes.Exit.On() }

// OnEvent fires every enabled event probe. The level of e does not select
// probes: a tracer attached to the info probe sees events of every level.
func (t *Translator) OnEvent(e *Event, _ Context) {
	var (
		fire [6]probe.Event
		n    int
	)
	for _, p := range t.events {
		if p.On() {
			fire[n] = p
			n++
		}
	}
	if n == 0 {
		return
	}

	s := transfer.NewScope()
	defer s.Release()

	fs := collect(s, e.Fields)
	name := s.CString(e.Name).Ptr()
	msg := s.CString(fs.Message()).Ptr()
	fields := s.JSON(fs).Ptr()
	for _, p := range fire[:n] {
		p.Fire(name, msg, fields)
	}
}

// OnNewSpan fires the enter probe with the span attributes.
func (t *Translator) OnNewSpan(attrs *Attributes, _ trace.SpanID, _ Context) {
	if attrs == nil || !t.probes.Enter.On() {
		return
	}
	fireSpan(t.probes.Enter, attrs)
}

// OnEnter does nothing: the enter probe fires when the span is created.
func (t *Translator) OnEnter(trace.SpanID, Context) {}

// OnExit fires the exit probe with the attributes stored for span id.
func (t *Translator) OnExit(id trace.SpanID, ctx Context) {
	if ctx == nil || !t.probes.Exit.On() {
		return
	}
	attrs, ok := ctx.Span(id)
	if !ok {
		return
	}
	fireSpan(t.probes.Exit, attrs)
}

// Close releases the probe library acquired by New, if any.
func (t *Translator) Close() error {
	return t.close()
}

func fireSpan(p probe.Span, attrs *Attributes) {
	s := transfer.NewScope()
	defer s.Release()

	fs := collect(s, attrs.Fields)
	p.Fire(s.CString(attrs.Name).Ptr(), s.JSON(fs).Ptr())
}

func collect(s *transfer.Scope, fields Fields) *transfer.FieldSet {
	fs := s.Fields()
	if fields != nil {
		fields.Range(func(k string, v any) bool {
			fs.Set(k, v)
			return true
		})
	}
	return fs
}
