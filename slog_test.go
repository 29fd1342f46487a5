// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogHandler(t *testing.T) {
	r := newRecorder("info")
	h := NewSlogHandler(NewTranslator(r.table(t), LevelsSixWay), nil)
	logger := slog.New(h)

	logger.Info("Even called", "arg0", 4)
	logger.Debug("verbose")

	require.Len(t, r.calls, 2, "an enabled probe sees events of every level")
	assert.Equal(t, "verbose", r.calls[1].Message)
	c := r.calls[0]
	assert.Equal(t, "info", c.Probe)
	assert.Equal(t, "Even called", c.Message)
	assert.Equal(t, map[string]string{"message": "Even called", "arg0": "4"}, c.Fields)
	assert.True(t, strings.HasPrefix(c.Name, "event "), c.Name)
	assert.Contains(t, c.Name, "slog_test.go:")
}

func TestSlogHandlerGroups(t *testing.T) {
	r := newRecorder("event")
	h := NewSlogHandler(NewTranslator(r.table(t), LevelsSingle), nil)
	logger := slog.New(h).With("svc", "demo").WithGroup("req").With("id", 7)

	logger.Warn("done", slog.Group("resp", "code", 200), "ok", true)

	require.Len(t, r.calls, 1)
	assert.Equal(t, map[string]string{
		"message":       "done",
		"svc":           "demo",
		"req.id":        "7",
		"req.resp.code": "200",
		"req.ok":        "true",
	}, r.calls[0].Fields)
}

func TestSlogHandlerEnabled(t *testing.T) {
	ctx := context.Background()

	r := newRecorder()
	tr := NewTranslator(r.table(t), LevelsSixWay)

	h := NewSlogHandler(tr, nil)
	assert.False(t, h.Enabled(ctx, slog.LevelError), "no probe enabled")

	var buf bytes.Buffer
	next := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	h = NewSlogHandler(tr, next)
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))
	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
}

func TestSlogHandlerForwards(t *testing.T) {
	r := newRecorder("info")
	var buf bytes.Buffer
	next := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := slog.New(NewSlogHandler(NewTranslator(r.table(t), LevelsSixWay), next))

	logger.Info("Odd called")
	assert.Empty(t, buf.String(), "info is below the sink level")
	assert.Equal(t, []string{"info"}, r.probes())

	logger.Warn("careful", "n", 1)
	assert.Contains(t, buf.String(), "msg=careful n=1")
	assert.Equal(t, []string{"info", "info"}, r.probes())
}
