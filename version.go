// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

// Version is the current release version of the USDT bridge in use.
func Version() string {
	return "v0.1.0"
}
