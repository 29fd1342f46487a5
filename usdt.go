// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package usdt translates tracing events and span transitions into native
// statically defined tracepoints.
//
// A [Translator] fires the probes of a [probe.Table]. When no external tracer
// has a probe enabled, the only work done per event is the enabled query of
// each candidate probe.
package usdt

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.opentelemetry.io/usdt/internal/probes/tracing"
)

// Overridden in tests.
var (
	acquire = tracing.Acquire
	release = tracing.Release
)

// New returns a Translator configured with opts. Without WithProbes the
// built-in tracing provider library is loaded; Close releases it.
func New(opts ...Option) (*Translator, error) {
	c, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	if c.probes != nil {
		c.logger.Debug("using provided probes", "levels", c.levels)
		return NewTranslator(*c.probes, c.levels), nil
	}

	tbl, err := acquire(c.library)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracing probes: %w", err)
	}
	c.logger.Info("loaded tracing probes", "library", c.library, "levels", c.levels)

	t := NewTranslator(tbl, c.levels)
	t.close = sync.OnceValue(release)
	return t, nil
}

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
