// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin || freebsd || illumos || solaris

package build

import (
	"runtime"
	"strings"

	"golang.org/x/sys/unix"
)

// Overridden in tests.
var hostInfo = uname

// uname returns the machine hardware name and the uname summary of the
// building host.
func uname() (machine, desc string) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return runtime.GOARCH, ""
	}
	machine = unix.ByteSliceToString(u.Machine[:])
	parts := []string{
		unix.ByteSliceToString(u.Sysname[:]),
		unix.ByteSliceToString(u.Release[:]),
		machine,
	}
	return machine, strings.Join(parts, " ")
}
