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
	"fmt"
	"regexp"
	"strings"
)

// tapResultLine matches a TAP test point: "ok 1 - name" or
// "not ok 2 name". The number and dash are both optional in the wild.
var tapResultLine = regexp.MustCompile(`^(not )?ok\b\s*\d*\s*-?\s*(.*)$`)

// mochaAdapter runs mocha with the TAP reporter, the most stable of
// mocha's machine-readable outputs across major versions.
type mochaAdapter struct{}

func (mochaAdapter) buildInvocation(req *Request, files []string) invocation {
	args := []string{"mocha", "--reporter", "tap"}
	switch {
	case len(files) > 0:
		args = append(args, files...)
	case req.TestFile != "":
		args = append(args, req.TestFile)
	case req.TestPattern != "":
		args = append(args, "--grep", req.TestPattern)
	}
	return invocation{command: "npx", args: args}
}

func (mochaAdapter) parseOutput(res *commandResult, _ []byte) ([]TestResult, error) {
	tests := parseTAPOutput(res.stdout)
	if len(tests) == 0 && res.exitCode != 0 {
		return tests, fmt.Errorf("mocha TAP output not recognized (exit code %d)", res.exitCode)
	}
	return tests, nil
}

// parseTAPOutput scans TAP test points. Plan lines, version headers
// and diagnostics are ignored. A SKIP directive downgrades an ok
// point to skipped.
func parseTAPOutput(out string) []TestResult {
	var tests []TestResult
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		m := tapResultLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		name := m[2]
		status := StatusPassed
		if m[1] != "" {
			status = StatusFailed
		}
		if idx := strings.Index(name, "#"); idx >= 0 {
			directive := name[idx:]
			name = strings.TrimSpace(name[:idx])
			if status == StatusPassed && strings.Contains(strings.ToUpper(directive), "SKIP") {
				status = StatusSkipped
			}
		}
		tests = append(tests, TestResult{Name: name, Status: status})
	}
	return tests
}
