// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventOn(t *testing.T) {
	var e Event
	assert.False(t, e.On(), "zero probe")

	e.Enabled = func() bool { return true }
	assert.False(t, e.On(), "probe without entry point")

	e.Fire = func(_, _, _ *byte) {}
	assert.True(t, e.On())

	e.Enabled = func() bool { return false }
	assert.False(t, e.On())
}

func TestSpanOn(t *testing.T) {
	var s Span
	assert.False(t, s.On(), "zero probe")

	s.Fire = func(_, _ *byte) {}
	assert.False(t, s.On(), "probe without enabled query")

	s.Enabled = func() bool { return true }
	assert.True(t, s.On())
}
