// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
)

// Level is the severity of a tracing event.
type Level string

const (
	// levelUndefined is an unset level, it should not be used.
	levelUndefined Level = ""
	// LevelTrace is the most verbose level.
	LevelTrace Level = "trace"
	// LevelDebug is the level of debugging events.
	LevelDebug Level = "debug"
	// LevelInfo is the level of informational events.
	LevelInfo Level = "info"
	// LevelWarn is the level of warnings.
	LevelWarn Level = "warn"
	// LevelError is the level of errors.
	LevelError Level = "error"
)

var errInvalidLevel = errors.New("invalid Level")

// String returns the string encoding of the Level l.
func (l Level) String() string {
	switch l {
	case LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, levelUndefined:
		return string(l)
	default:
		return fmt.Sprintf("Level(%s)", string(l))
	}
}

// UnmarshalText applies the Level type when inputted text is valid.
func (l *Level) UnmarshalText(text []byte) error {
	*l = Level(bytes.ToLower(text))

	return l.validate()
}

func (l *Level) validate() error {
	if l == nil {
		return errors.New("nil Level")
	}

	switch *l {
	case LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError:
		// Valid.
	default:
		return fmt.Errorf("%w: %s", errInvalidLevel, l.String())
	}
	return nil
}

// ParseLevel return a new Level parsed from text. A non-nil error is
// returned if text is not a valid Level.
func ParseLevel(text string) (Level, error) {
	var level Level

	err := level.UnmarshalText([]byte(text))

	return level, err
}

// levelOf returns the Level of a slog level.
func levelOf(l slog.Level) Level {
	switch {
	case l < slog.LevelDebug:
		return LevelTrace
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}

// LevelMode selects the probes events are fired on.
type LevelMode string

const (
	// LevelsSingle fires every event on the generic event probe only.
	LevelsSingle LevelMode = "single"
	// LevelsSixWay also fires events on the probe of their level.
	LevelsSixWay LevelMode = "six-way"
)

var errInvalidLevelMode = errors.New("invalid LevelMode")

// UnmarshalText decodes text into m.
func (m *LevelMode) UnmarshalText(text []byte) error {
	switch v := LevelMode(bytes.ToLower(text)); v {
	case LevelsSingle, LevelsSixWay:
		*m = v
		return nil
	default:
		return fmt.Errorf("%w: %s", errInvalidLevelMode, string(text))
	}
}
