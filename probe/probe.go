// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package probe defines the table of native probes a translator fires.
//
// A probe is a pair of functions: an enabled query, cheap enough to call on
// every event, and an entry point that fires the probe. String arguments are
// pointers to NUL-terminated buffers that are only valid for the duration of
// the call; an entry point must not retain them.
package probe

// Event is a probe fired for tracing events.
type Event struct {
	Enabled func() bool
	Fire    func(name, message, fields *byte)
}

// On reports whether e exists and is enabled.
func (e Event) On() bool {
	return e.Enabled != nil && e.Fire != nil && e.Enabled()
}

// Span is a probe fired when a span is entered or exited.
type Span struct {
	Enabled func() bool
	Fire    func(name, fields *byte)
}

// On reports whether s exists and is enabled.
func (s Span) On() bool {
	return s.Enabled != nil && s.Fire != nil && s.Enabled()
}

// Table holds every probe of a tracing provider. A zero probe is treated as
// a probe that is never enabled.
type Table struct {
	// Event fires for every event regardless of its level.
	Event Event

	Trace Event
	Debug Event
	Info  Event
	Warn  Event
	Error Event

	Enter Span
	Exit  Span
}
