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
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/SeismicAI/SeismicFOSS/services/engine/frameworks"
)

type execCall struct {
	dir     string
	timeout time.Duration
	name    string
	args    []string
}

// fakeRunner builds a Runner whose PATH lookups succeed and whose
// subprocess returns res without spawning anything.
func fakeRunner(t *testing.T, res *commandResult) (*Runner, *[]execCall) {
	t.Helper()

	calls := &[]execCall{}
	r := NewRunner()
	r.lookPath = func(string) (string, error) { return "/usr/bin/fake", nil }
	r.run = func(_ context.Context, dir string, timeout time.Duration, _ int64, name string, args ...string) *commandResult {
		*calls = append(*calls, execCall{dir: dir, timeout: timeout, name: name, args: args})
		if res != nil {
			return res
		}
		return &commandResult{}
	}
	return r, calls
}

// writeFile creates one file under root, making parent directories.
func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestRunTests_NilContext(t *testing.T) {
	r, _ := fakeRunner(t, nil)

	_, err := r.RunTests(nil, &Request{ProjectPath: t.TempDir()})
	if !errors.Is(err, ErrNilContext) {
		t.Errorf("RunTests() error = %v, want ErrNilContext", err)
	}
}

func TestRunTests_NilRequest(t *testing.T) {
	r, _ := fakeRunner(t, nil)

	_, err := r.RunTests(context.Background(), nil)
	if !errors.Is(err, ErrNilRequest) {
		t.Errorf("RunTests() error = %v, want ErrNilRequest", err)
	}
}

func TestRunTests_InvalidFramework(t *testing.T) {
	r, _ := fakeRunner(t, nil)

	_, err := r.RunTests(context.Background(),
		&Request{ProjectPath: t.TempDir(), Framework: "rspec"})
	if !errors.Is(err, frameworks.ErrUnknownFramework) {
		t.Errorf("RunTests() error = %v, want ErrUnknownFramework", err)
	}
}

// TestRunTests_UnknownFramework pins the nothing-to-run shape: an
// undetectable framework is an empty result, not a failure.
func TestRunTests_UnknownFramework(t *testing.T) {
	r, calls := fakeRunner(t, nil)

	results, err := r.RunTests(context.Background(),
		&Request{ProjectPath: t.TempDir()})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if results.Framework != frameworks.Unknown {
		t.Errorf("Framework = %s, want unknown", results.Framework)
	}
	if results.Tests == nil || len(results.Tests) != 0 {
		t.Errorf("Tests = %v, want empty non-nil", results.Tests)
	}
	if results.Error != nil {
		t.Errorf("Error = %v, want nil", results.Error)
	}
	if results.Summary.SuccessRate != 100.0 {
		t.Errorf("SuccessRate = %v, want 100.0", results.Summary.SuccessRate)
	}
	if len(*calls) != 0 {
		t.Errorf("no subprocess should run, got %d calls", len(*calls))
	}
}

func TestRunTests_PinnedFramework(t *testing.T) {
	r, calls := fakeRunner(t, &commandResult{stdout: "tests/test_a.py::test_one PASSED\n"})

	results, err := r.RunTests(context.Background(),
		&Request{ProjectPath: t.TempDir(), Framework: "pytest"})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if results.Framework != frameworks.Pytest {
		t.Errorf("Framework = %s, want pytest", results.Framework)
	}
	if len(*calls) != 1 || (*calls)[0].name != "pytest" {
		t.Fatalf("calls = %+v, want one pytest call", *calls)
	}
}

func TestRunTests_DetectedFramework(t *testing.T) {
	project := t.TempDir()
	writeFile(t, project, "Cargo.toml", "[package]\nname = \"demo\"\n")

	r, calls := fakeRunner(t, &commandResult{})

	results, err := r.RunTests(context.Background(), &Request{ProjectPath: project})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if results.Framework != frameworks.Cargo {
		t.Errorf("Framework = %s, want cargo", results.Framework)
	}
	if len(*calls) != 1 || (*calls)[0].name != "cargo" {
		t.Fatalf("calls = %+v, want one cargo call", *calls)
	}
}

func TestRunTests_ToolMissing(t *testing.T) {
	r, calls := fakeRunner(t, nil)
	r.lookPath = func(name string) (string, error) {
		return "", errors.New(name + " not found")
	}

	results, err := r.RunTests(context.Background(),
		&Request{ProjectPath: t.TempDir(), Framework: "pytest"})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if results.Error == nil || results.Error.Kind != KindToolMissing {
		t.Fatalf("Error = %+v, want tool_missing", results.Error)
	}
	if results.Error.Message != "pytest not found on PATH" {
		t.Errorf("Message = %q", results.Error.Message)
	}
	if len(results.Tests) != 0 || results.Tests == nil {
		t.Errorf("Tests = %v, want empty non-nil", results.Tests)
	}
	if len(*calls) != 0 {
		t.Error("subprocess must not run when the tool is missing")
	}
}

func TestRunTests_Timeout(t *testing.T) {
	r, _ := fakeRunner(t, &commandResult{
		timedOut: true,
		exitCode: -1,
		duration: 1500 * time.Millisecond,
	})

	results, err := r.RunTests(context.Background(),
		&Request{ProjectPath: t.TempDir(), Framework: "pytest", TimeoutSeconds: 1})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if results.Error == nil || results.Error.Kind != KindTimeout {
		t.Fatalf("Error = %+v, want timeout", results.Error)
	}
	if results.Tests == nil || len(results.Tests) != 0 {
		t.Errorf("Tests = %v, want empty non-nil", results.Tests)
	}
	if results.Summary.Duration != 1.5 {
		t.Errorf("Duration = %v, want 1.5", results.Summary.Duration)
	}
}

func TestRunTests_SuccessfulRun(t *testing.T) {
	stdout := "tests/test_a.py::test_one PASSED\n" +
		"tests/test_a.py::test_two PASSED\n" +
		"tests/test_a.py::test_three PASSED\n" +
		"tests/test_b.py::test_four FAILED\n"
	r, _ := fakeRunner(t, &commandResult{stdout: stdout, exitCode: 1, duration: time.Second})

	results, err := r.RunTests(context.Background(),
		&Request{ProjectPath: t.TempDir(), Framework: "pytest"})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if results.Error != nil {
		t.Fatalf("Error = %+v, want nil", results.Error)
	}
	s := results.Summary
	if s.Total != 4 || s.Passed != 3 || s.Failed != 1 {
		t.Errorf("summary = %+v, want 4/3/1", s)
	}
	if s.SuccessRate != 75.0 {
		t.Errorf("SuccessRate = %v, want 75.0", s.SuccessRate)
	}
}

func TestRunTests_ParseError(t *testing.T) {
	r, _ := fakeRunner(t, &commandResult{
		stdout:   "Traceback (most recent call last):\n",
		exitCode: 2,
	})

	results, err := r.RunTests(context.Background(),
		&Request{ProjectPath: t.TempDir(), Framework: "pytest"})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if results.Error == nil || results.Error.Kind != KindParseError {
		t.Fatalf("Error = %+v, want parse_error", results.Error)
	}
	if results.Tests == nil {
		t.Error("Tests must stay non-nil on parse errors")
	}
}

func TestRunTests_InternalOnStartFailure(t *testing.T) {
	r, _ := fakeRunner(t, &commandResult{
		startErr: errors.New("permission denied"),
		exitCode: -1,
	})

	results, err := r.RunTests(context.Background(),
		&Request{ProjectPath: t.TempDir(), Framework: "pytest"})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if results.Error == nil || results.Error.Kind != KindInternal {
		t.Fatalf("Error = %+v, want internal", results.Error)
	}
}

// artifactWritingRunner fakes a jest run that writes its reporter
// artifact the way the real binary would.
func artifactWritingRunner(t *testing.T, payload string) *Runner {
	t.Helper()

	r := NewRunner()
	r.lookPath = func(string) (string, error) { return "/usr/bin/fake", nil }
	r.run = func(_ context.Context, dir string, _ time.Duration, _ int64, _ string, args ...string) *commandResult {
		out := argAfter(args, "--outputFile")
		if out == "" {
			t.Fatal("jest invocation carries no --outputFile")
		}
		if err := os.WriteFile(filepath.Join(dir, out), []byte(payload), 0o644); err != nil {
			t.Fatalf("write artifact: %v", err)
		}
		return &commandResult{}
	}
	return r
}

func TestRunTests_ArtifactParsedAndRemoved(t *testing.T) {
	project := t.TempDir()
	r := artifactWritingRunner(t, jestArtifact)

	results, err := r.RunTests(context.Background(),
		&Request{ProjectPath: project, Framework: "jest"})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if results.Error != nil {
		t.Fatalf("Error = %+v, want nil", results.Error)
	}
	if results.Summary.Total != 5 {
		t.Errorf("Total = %d, want 5", results.Summary.Total)
	}

	leftover, err := filepath.Glob(filepath.Join(project, ".seismic-jest-*.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(leftover) != 0 {
		t.Errorf("artifact not cleaned up: %v", leftover)
	}
}

func TestRunTests_ArtifactRemovedOnParseError(t *testing.T) {
	project := t.TempDir()
	r := artifactWritingRunner(t, "{not valid json")

	results, err := r.RunTests(context.Background(),
		&Request{ProjectPath: project, Framework: "jest"})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if results.Error == nil || results.Error.Kind != KindParseError {
		t.Fatalf("Error = %+v, want parse_error", results.Error)
	}

	leftover, _ := filepath.Glob(filepath.Join(project, ".seismic-jest-*.json"))
	if len(leftover) != 0 {
		t.Errorf("artifact must be removed on parse errors too: %v", leftover)
	}
}

func TestRunTests_NarrowsToImpactedTests(t *testing.T) {
	project := t.TempDir()
	writeFile(t, project, "src/payment.py", "def charge(): pass\n")
	writeFile(t, project, "tests/test_payment.py", "def test_charge(): pass\n")

	r, calls := fakeRunner(t, nil)

	_, err := r.RunTests(context.Background(), &Request{
		ProjectPath:       project,
		Framework:         "pytest",
		UseImpactAnalysis: true,
		ChangedFiles:      []string{"src/payment.py"},
	})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if len(*calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(*calls))
	}
	if !hasArg((*calls)[0].args, "tests/test_payment.py") {
		t.Errorf("args = %v, want narrowed test file", (*calls)[0].args)
	}
}

func TestRunTests_ExplicitScopeDisablesNarrowing(t *testing.T) {
	project := t.TempDir()
	writeFile(t, project, "tests/test_payment.py", "def test_charge(): pass\n")
	writeFile(t, project, "tests/test_user.py", "def test_user(): pass\n")

	r, calls := fakeRunner(t, nil)

	_, err := r.RunTests(context.Background(), &Request{
		ProjectPath:       project,
		Framework:         "pytest",
		TestFile:          "tests/test_user.py",
		UseImpactAnalysis: true,
		ChangedFiles:      []string{"src/payment.py"},
	})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	args := (*calls)[0].args
	if !hasArg(args, "tests/test_user.py") {
		t.Errorf("args = %v, want explicit test file", args)
	}
	if hasArg(args, "tests/test_payment.py") {
		t.Errorf("explicit scope must disable narrowing: %v", args)
	}
}

func TestRunTests_NarrowingRequiresOptIn(t *testing.T) {
	project := t.TempDir()
	writeFile(t, project, "tests/test_payment.py", "def test_charge(): pass\n")

	r, calls := fakeRunner(t, nil)

	_, err := r.RunTests(context.Background(), &Request{
		ProjectPath:  project,
		Framework:    "pytest",
		ChangedFiles: []string{"src/payment.py"},
	})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	want := []string{"-v", "--tb=short"}
	if !reflect.DeepEqual((*calls)[0].args, want) {
		t.Errorf("args = %v, want full suite %v", (*calls)[0].args, want)
	}
}

// staticDrift is a canned drift source.
type staticDrift struct {
	files []string
	ok    bool
	err   error
}

func (s staticDrift) ChangedFiles(context.Context) ([]string, bool, error) {
	return s.files, s.ok, s.err
}

func TestRunTests_DriftSourceNarrowing(t *testing.T) {
	project := t.TempDir()
	writeFile(t, project, "tests/test_payment.py", "def test_charge(): pass\n")

	r, calls := fakeRunner(t, nil)
	r.driftSrc = staticDrift{files: []string{"src/payment.py"}, ok: true}

	_, err := r.RunTests(context.Background(), &Request{
		ProjectPath:       project,
		Framework:         "pytest",
		UseImpactAnalysis: true,
	})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if !hasArg((*calls)[0].args, "tests/test_payment.py") {
		t.Errorf("args = %v, want drift-derived test file", (*calls)[0].args)
	}
}

func TestRunTests_DriftFailureRunsFullSuite(t *testing.T) {
	project := t.TempDir()
	writeFile(t, project, "tests/test_payment.py", "def test_charge(): pass\n")

	for _, src := range []staticDrift{
		{err: errors.New("corrupt drift report")},
		{ok: false},
	} {
		r, calls := fakeRunner(t, nil)
		r.driftSrc = src

		results, err := r.RunTests(context.Background(), &Request{
			ProjectPath:       project,
			Framework:         "pytest",
			UseImpactAnalysis: true,
		})
		if err != nil {
			t.Fatalf("RunTests() error = %v", err)
		}
		if results.Error != nil {
			t.Errorf("drift problems must not fail the run: %+v", results.Error)
		}
		want := []string{"-v", "--tb=short"}
		if !reflect.DeepEqual((*calls)[0].args, want) {
			t.Errorf("args = %v, want full suite %v", (*calls)[0].args, want)
		}
	}
}

func TestRunTests_SubprocessReceivesRequestSettings(t *testing.T) {
	project := t.TempDir()
	r, calls := fakeRunner(t, nil)

	_, err := r.RunTests(context.Background(), &Request{
		ProjectPath:    project,
		Framework:      "pytest",
		TimeoutSeconds: 7,
	})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	call := (*calls)[0]
	if call.dir != project {
		t.Errorf("dir = %q, want project root", call.dir)
	}
	if call.timeout != 7*time.Second {
		t.Errorf("timeout = %v, want 7s", call.timeout)
	}
}

func TestRunTests_ConcurrentRunRejected(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("advisory locking is a no-op on windows")
	}

	project := t.TempDir()
	lock, err := acquireRunLock(project)
	if err != nil {
		t.Fatalf("acquireRunLock() error = %v", err)
	}
	defer lock.release()

	r, calls := fakeRunner(t, nil)

	results, err := r.RunTests(context.Background(),
		&Request{ProjectPath: project, Framework: "pytest"})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if results.Error == nil || results.Error.Kind != KindInternal {
		t.Fatalf("Error = %+v, want internal", results.Error)
	}
	if len(*calls) != 0 {
		t.Error("subprocess must not run while another run holds the lock")
	}
}

func TestRunTests_LockingDisabled(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("advisory locking is a no-op on windows")
	}

	project := t.TempDir()
	lock, err := acquireRunLock(project)
	if err != nil {
		t.Fatalf("acquireRunLock() error = %v", err)
	}
	defer lock.release()

	r, calls := fakeRunner(t, nil)
	r.config = NewConfig(WithRunLocking(false))

	results, err := r.RunTests(context.Background(),
		&Request{ProjectPath: project, Framework: "pytest"})
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if results.Error != nil {
		t.Errorf("Error = %+v, want nil with locking off", results.Error)
	}
	if len(*calls) != 1 {
		t.Errorf("calls = %d, want 1", len(*calls))
	}
}
