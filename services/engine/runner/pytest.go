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

// pytest exits 5 when collection found no tests. That is an empty
// run, not a failure.
const pytestExitNoTests = 5

// pytestResultLine matches one verbose-mode result line, for example:
//
//	tests/test_payment.py::test_process PASSED [ 50%]
var pytestResultLine = regexp.MustCompile(`^(\S+::\S+)\s+(PASSED|FAILED|SKIPPED|ERROR|XFAIL|XPASS)\b`)

// pytestStatuses maps pytest's six verbose outcomes one-to-one onto
// the normalized statuses.
var pytestStatuses = map[string]Status{
	"PASSED":  StatusPassed,
	"FAILED":  StatusFailed,
	"SKIPPED": StatusSkipped,
	"ERROR":   StatusError,
	"XFAIL":   StatusXFail,
	"XPASS":   StatusXPass,
}

// pytestAdapter runs pytest and parses its verbose line protocol.
// Verbose mode is forced even for quiet requests because the per-test
// lines are the only stable per-test record pytest emits without a
// plugin.
type pytestAdapter struct{}

func (pytestAdapter) buildInvocation(req *Request, files []string) invocation {
	args := []string{"-v", "--tb=short"}
	if req.Verbose {
		args = append(args, "-rA")
	}
	switch {
	case len(files) > 0:
		args = append(args, files...)
	case req.TestFile != "":
		args = append(args, req.TestFile)
	case req.TestPattern != "":
		args = append(args, "-k", req.TestPattern)
	}
	return invocation{command: "pytest", args: args}
}

func (pytestAdapter) parseOutput(res *commandResult, _ []byte) ([]TestResult, error) {
	tests := parsePytestOutput(res.stdout)
	if len(tests) == 0 && res.exitCode != 0 && res.exitCode != pytestExitNoTests {
		return tests, fmt.Errorf("pytest output not recognized (exit code %d)", res.exitCode)
	}
	return tests, nil
}

// parsePytestOutput scans verbose output for result lines. Everything
// else (headers, tracebacks, the summary footer) is ignored.
func parsePytestOutput(out string) []TestResult {
	var tests []TestResult
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		m := pytestResultLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		nodeID := m[1]
		file := nodeID
		if idx := strings.Index(nodeID, "::"); idx >= 0 {
			file = nodeID[:idx]
		}
		tests = append(tests, TestResult{
			Name:   nodeID,
			Status: pytestStatuses[m[2]],
			File:   file,
		})
	}
	return tests
}
