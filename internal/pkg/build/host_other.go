// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !(linux || darwin || freebsd || illumos || solaris)

package build

import "runtime"

// Overridden in tests.
var hostInfo = func() (machine, desc string) { return runtime.GOARCH, "" }
