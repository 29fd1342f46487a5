// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner runs external commands.
type Runner interface {
	// Run runs name with args in dir and returns its captured output. A
	// command exiting with a non-zero status returns an *exec.ExitError.
	Run(ctx context.Context, dir, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner is a Runner starting real processes.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, string, error) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// StepError is returned when a pipeline step fails.
type StepError struct {
	Step    string
	Command []string
	// ExitCode is the exit status of the command, -1 if it did not exit.
	ExitCode int
	Stdout   string
	Stderr   string

	Err error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("step %s failed: %s", e.Step, strings.Join(e.Command, " "))
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(": exit status %d", e.ExitCode)
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := strings.TrimSpace(e.Stderr); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *StepError) Unwrap() error { return e.Err }

func newStepError(step string, argv []string, stdout, stderr string, err error) *StepError {
	e := &StepError{
		Step:     step,
		Command:  argv,
		ExitCode: -1,
		Stdout:   stdout,
		Stderr:   stderr,
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		e.ExitCode = exitErr.ExitCode()
	}
	return e
}
