// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !(darwin || freebsd || linux)

// Package tracing provides the probes of the built-in tracing provider.
package tracing

import (
	"fmt"
	"runtime"

	"go.opentelemetry.io/usdt/probe"
)

// Acquire always fails: static tracepoints are not supported on this
// platform.
func Acquire(string) (probe.Table, error) {
	return probe.Table{}, fmt.Errorf("tracing probes are not supported on %s", runtime.GOOS)
}

// Release does nothing.
func Release() error { return nil }
