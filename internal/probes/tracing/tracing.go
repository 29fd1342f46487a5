// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || freebsd || linux

// Package tracing provides the probes of the built-in tracing provider.
package tracing

import (
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/usdt/probe"
)

var (
	mu      sync.Mutex
	lib     *Library
	libPath string
	refs    int
)

// Overridden in tests.
var (
	open         = Open
	closeLibrary = (*Library).Close
)

// Acquire loads the tracing probe library at path and returns its probes.
//
// The library is loaded once per process: later calls with the same path
// share it, a different path is an error. Every successful Acquire must be
// paired with a Release.
func Acquire(path string) (probe.Table, error) {
	mu.Lock()
	defer mu.Unlock()

	if lib != nil {
		if path != libPath {
			return probe.Table{}, fmt.Errorf("tracing probes already loaded from %s, cannot load %s", libPath, path)
		}
		refs++
		return table(lib), nil
	}

	l, err := open(path)
	if err != nil {
		return probe.Table{}, err
	}
	lib, libPath, refs = l, path, 1
	return table(lib), nil
}

// Release releases a library acquired with Acquire. The library is unloaded
// once every acquisition is released.
func Release() error {
	mu.Lock()
	defer mu.Unlock()

	if lib == nil {
		return errors.New("tracing probes not loaded")
	}
	refs--
	if refs > 0 {
		return nil
	}
	err := closeLibrary(lib)
	lib, libPath = nil, ""
	return err
}

func table(l *Library) probe.Table {
	return probe.Table{
		Event: event(l.TracingEventEnabled, l.TracingEvent),
		Trace: event(l.TracingTraceEnabled, l.TracingTrace),
		Debug: event(l.TracingDebugEnabled, l.TracingDebug),
		Info:  event(l.TracingInfoEnabled, l.TracingInfo),
		Warn:  event(l.TracingWarnEnabled, l.TracingWarn),
		Error: event(l.TracingErrorEnabled, l.TracingError),
		Enter: span(l.TracingEnterEnabled, l.TracingEnter),
		Exit:  span(l.TracingExitEnabled, l.TracingExit),
	}
}

func event(enabled func() int32, fire func(name, message, fields *byte)) probe.Event {
	if enabled == nil || fire == nil {
		return probe.Event{}
	}
	return probe.Event{Enabled: func() bool { return enabled() != 0 }, Fire: fire}
}

func span(enabled func() int32, fire func(name, fields *byte)) probe.Span {
	if enabled == nil || fire == nil {
		return probe.Span{}
	}
	return probe.Span{Enabled: func() bool { return enabled() != 0 }, Fire: fire}
}
