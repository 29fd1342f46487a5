// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"log/slog"
	"os"
	"runtime"

	"go.opentelemetry.io/usdt/probe"
)

const (
	// envLibraryPathKey is the key for the environment variable value
	// containing the path of the tracing probe library.
	envLibraryPathKey = "USDT_LIBRARY_PATH"
	// envLevelsKey is the key for the environment variable value containing
	// the LevelMode to use.
	envLevelsKey = "USDT_LEVELS"
)

// Option applies a configuration option to the Translator returned by New.
type Option interface {
	apply(config) config
}

type config struct {
	probes  *probe.Table
	levels  LevelMode
	library string
	logger  *slog.Logger
}

func newConfig(opts []Option) (config, error) {
	c := config{levels: LevelsSixWay}
	for _, opt := range opts {
		if opt != nil {
			c = opt.apply(c)
		}
	}
	if c.library == "" {
		c.library = defaultLibrary()
	}
	if c.levels == "" {
		c.levels = LevelsSixWay
	}
	if c.logger == nil {
		c.logger = newDiscardLogger()
	}
	// Decoding normalizes the case of values read from the environment.
	err := c.levels.UnmarshalText([]byte(c.levels))
	return c, err
}

type fnOpt func(config) config

func (o fnOpt) apply(c config) config { return o(c) }

// WithProbes returns an Option using the probes of t instead of the built-in
// tracing provider.
func WithProbes(t probe.Table) Option {
	return fnOpt(func(c config) config {
		c.probes = &t
		return c
	})
}

// WithLevels returns an Option setting the LevelMode of the Translator. The
// default is LevelsSixWay.
func WithLevels(m LevelMode) Option {
	return fnOpt(func(c config) config {
		c.levels = m
		return c
	})
}

// WithLibrary returns an Option setting the path of the built-in tracing
// probe library. The default is the platform library name, resolved by the
// dynamic loader search path.
func WithLibrary(path string) Option {
	return fnOpt(func(c config) config {
		c.library = path
		return c
	})
}

// WithLogger returns an Option setting the logger used while setting up the
// Translator. Nothing is logged once events flow.
func WithLogger(l *slog.Logger) Option {
	return fnOpt(func(c config) config {
		c.logger = l
		return c
	})
}

// WithEnv returns an Option that will configure the Translator using the
// values defined by the following environment variables:
//
//   - USDT_LIBRARY_PATH: sets the tracing probe library path
//   - USDT_LEVELS: sets the LevelMode ("single" or "six-way")
//
// An invalid USDT_LEVELS value is reported by New.
//
// This option may conflict with WithLibrary and WithLevels if their
// respective environment variable is defined. If more than one of these
// options are used, the last one provided to New will be used.
func WithEnv() Option {
	return fnOpt(func(c config) config {
		if v, ok := lookupEnv(envLibraryPathKey); ok && v != "" {
			c.library = v
		}
		if v, ok := lookupEnv(envLevelsKey); ok && v != "" {
			c.levels = LevelMode(v)
		}
		return c
	})
}

// Overridden in tests.
var lookupEnv = os.LookupEnv

func defaultLibrary() string {
	if runtime.GOOS == "darwin" {
		return "libtracing.dylib"
	}
	return "libtracing.so"
}
