// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelString(t *testing.T) {
	testCases := []struct {
		name  string
		level Level
		str   string
	}{
		{
			name:  "LevelUndefined",
			level: levelUndefined,
			str:   "",
		},
		{
			name:  "LevelTrace",
			level: LevelTrace,
			str:   "trace",
		},
		{
			name:  "LevelInfo",
			level: LevelInfo,
			str:   "info",
		},
		{
			name:  "LevelError",
			level: LevelError,
			str:   "error",
		},
		{
			name:  "Invalid",
			level: Level("fatal"),
			str:   "Level(fatal)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.str, tc.level.String(), "string does not match")
		})
	}
}

func TestValidate(t *testing.T) {
	l := Level("notexist")
	assert.ErrorIs(t, l.validate(), errInvalidLevel)
}

func TestParseLevel(t *testing.T) {
	for _, str := range []string{"trace", "DEBUG", "Info", "warn", "error"} {
		t.Run(str, func(t *testing.T) {
			l, err := ParseLevel(str)
			require.NoError(t, err)
			assert.NotEqual(t, levelUndefined, l)
		})
	}

	_, err := ParseLevel("critical")
	assert.ErrorIs(t, err, errInvalidLevel)
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, LevelTrace, levelOf(slog.LevelDebug-4))
	assert.Equal(t, LevelDebug, levelOf(slog.LevelDebug))
	assert.Equal(t, LevelInfo, levelOf(slog.LevelInfo))
	assert.Equal(t, LevelInfo, levelOf(slog.LevelInfo+2))
	assert.Equal(t, LevelWarn, levelOf(slog.LevelWarn))
	assert.Equal(t, LevelError, levelOf(slog.LevelError+4))
}

func TestLevelMode(t *testing.T) {
	var m LevelMode
	require.NoError(t, m.UnmarshalText([]byte("Six-Way")))
	assert.Equal(t, LevelsSixWay, m)
	assert.ErrorIs(t, m.UnmarshalText([]byte("three")), errInvalidLevelMode)
}
