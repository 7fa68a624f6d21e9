// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"
)

// commandResult captures one subprocess execution.
type commandResult struct {
	stdout    string
	stderr    string
	exitCode  int
	timedOut  bool
	truncated bool
	duration  time.Duration

	// startErr holds failures other than a non-zero exit: the binary
	// could not start, or wait plumbing broke.
	startErr error
}

// commandFunc executes a subprocess. The indirection lets tests
// substitute a fake without spawning real framework binaries.
type commandFunc func(ctx context.Context, dir string, timeout time.Duration, maxOutput int64, name string, args ...string) *commandResult

// runSubprocess is the production commandFunc.
//
// # Description
//
// Runs the command under a timeout-derived context so the process is
// killed when the deadline passes. Stdout and stderr are captured
// through capped writers; a chatty test suite cannot balloon memory.
// A deadline hit is reported via timedOut, not startErr, because a
// killed process also surfaces a meaningless exit error.
func runSubprocess(ctx context.Context, dir string, timeout time.Duration, maxOutput int64, name string, args ...string) *commandResult {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	outWriter := &limitedWriter{w: &stdout, limit: maxOutput}
	errWriter := &limitedWriter{w: &stderr, limit: maxOutput}
	cmd.Stdout = outWriter
	cmd.Stderr = errWriter

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	res := &commandResult{
		stdout:    stdout.String(),
		stderr:    stderr.String(),
		duration:  duration,
		truncated: outWriter.truncated || errWriter.truncated,
	}

	if execCtx.Err() == context.DeadlineExceeded {
		res.timedOut = true
		res.exitCode = -1
		return res
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.exitCode = exitErr.ExitCode()
		} else {
			res.exitCode = -1
			res.startErr = err
		}
	}
	return res
}

// limitedWriter caps bytes written to the underlying writer. Writes
// past the cap report full success so the writing process keeps
// running; only retention stops.
type limitedWriter struct {
	w         io.Writer
	limit     int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.written >= lw.limit {
		lw.truncated = true
		return len(p), nil
	}
	remaining := lw.limit - lw.written
	if int64(len(p)) > remaining {
		lw.truncated = true
		n, err := lw.w.Write(p[:remaining])
		lw.written += int64(n)
		if err != nil {
			return n, err
		}
		return len(p), nil
	}
	n, err := lw.w.Write(p)
	lw.written += int64(n)
	return n, err
}
