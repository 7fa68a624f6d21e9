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
	"bufio"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// cargoEvent is one libtest JSON line. Non-test lines (suite
// bookkeeping, compiler progress) carry other types and are skipped.
type cargoEvent struct {
	Type     string   `json:"type"`
	Event    string   `json:"event"`
	Name     string   `json:"name"`
	ExecTime *float64 `json:"exec_time"` // seconds
}

// cargoStatus normalizes a terminal libtest event. Anything that is
// neither ok nor failed (ignored, bench, timeout notices) reads as
// skipped.
func cargoStatus(event string) Status {
	switch event {
	case "ok":
		return StatusPassed
	case "failed":
		return StatusFailed
	default:
		return StatusSkipped
	}
}

// cargoAdapter runs cargo test with the libtest JSON format. Narrowed
// files map to --test targets by stem, matching cargo's integration
// test naming.
type cargoAdapter struct{}

func (cargoAdapter) buildInvocation(req *Request, files []string) invocation {
	args := []string{"test"}
	if req.Verbose {
		args = append(args, "--verbose")
	}
	switch {
	case len(files) > 0:
		for _, f := range files {
			args = append(args, "--test", cargoTestTarget(f))
		}
	case req.TestFile != "":
		args = append(args, "--test", cargoTestTarget(req.TestFile))
	case req.TestPattern != "":
		args = append(args, req.TestPattern)
	}
	args = append(args, "--", "-Z", "unstable-options", "--format", "json")
	return invocation{command: "cargo", args: args}
}

func (cargoAdapter) parseOutput(res *commandResult, _ []byte) ([]TestResult, error) {
	tests := parseCargoOutput(res.stdout)
	if len(tests) == 0 && res.exitCode != 0 {
		return tests, fmt.Errorf("cargo test output not recognized (exit code %d)", res.exitCode)
	}
	return tests, nil
}

// cargoTestTarget maps a test file path to its cargo target name:
// tests/payment_test.rs runs as --test payment_test.
func cargoTestTarget(file string) string {
	return strings.TrimSuffix(filepath.Base(file), ".rs")
}

// parseCargoOutput scans stdout for libtest JSON lines. Lines that do
// not decode (cargo's own build output) are skipped, as are started
// events, which announce a test rather than resolve one.
func parseCargoOutput(out string) []TestResult {
	var tests []TestResult
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var ev cargoEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		if ev.Type != "test" || ev.Event == "started" {
			continue
		}
		var duration float64
		if ev.ExecTime != nil {
			duration = *ev.ExecTime
		}
		tests = append(tests, TestResult{
			Name:     ev.Name,
			Status:   cargoStatus(ev.Event),
			Duration: duration,
		})
	}
	return tests
}
