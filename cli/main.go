// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package main is usdtgen, the generator of native probe libraries and their
// Go bindings.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

const (
	// envLogLevelKey is the key for the environment variable value containing
	// the log level.
	envLogLevelKey = "USDT_LOG_LEVEL"
)

func newLogger(w io.Writer, lvlStr string, getenv func(string) string) *slog.Logger {
	levelVar := new(slog.LevelVar) // Default value of info.
	opts := &slog.HandlerOptions{AddSource: true, Level: levelVar}
	h := slog.NewJSONHandler(w, opts)
	logger := slog.New(h)

	if lvlStr == "" {
		lvlStr = getenv(envLogLevelKey)
	}

	if lvlStr == "" {
		return logger
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(lvlStr)); err != nil {
		logger.Error("failed to parse log level", "error", err, "log-level", lvlStr)
	} else {
		levelVar.Set(level)
	}

	return logger
}

func main() {
	// Trap Ctrl+C and SIGTERM so running tools are stopped.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCmd(newApp())
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "usdtgen:", err)
		cancel()
		os.Exit(1)
	}
}
