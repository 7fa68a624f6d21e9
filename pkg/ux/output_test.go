// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// Helper to capture stdout
func captureStdout(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// Helper to capture stderr
func captureStderr(f func()) string {
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	f()

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render_Success(t *testing.T) {
	result := IconSuccess.Render()
	if result == "" {
		t.Error("expected non-empty result for IconSuccess")
	}
}

func TestIcon_Render_Warning(t *testing.T) {
	result := IconWarning.Render()
	if result == "" {
		t.Error("expected non-empty result for IconWarning")
	}
}

func TestIcon_Render_Error(t *testing.T) {
	result := IconError.Render()
	if result == "" {
		t.Error("expected non-empty result for IconError")
	}
}

func TestIcon_Render_Skipped(t *testing.T) {
	result := IconSkipped.Render()
	if result == "" {
		t.Error("expected non-empty result for IconSkipped")
	}
}

func TestIcon_Render_Default(t *testing.T) {
	// Test icons that don't have specific styling
	icons := []Icon{IconArrow, IconBullet, IconPulse, IconDelta, IconTarget}
	for _, icon := range icons {
		result := icon.Render()
		if result != string(icon) {
			t.Errorf("expected %q for %q, got %q", string(icon), icon, result)
		}
	}
}

// =============================================================================
// Title Tests
// =============================================================================

func TestTitle_MachineMode(t *testing.T) {
	// Save and restore personality
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMachine)

	output := captureStdout(func() {
		Title("Impact Report")
	})

	// In machine mode, Title should output nothing
	if output != "" {
		t.Errorf("expected no output in machine mode, got %q", output)
	}
}

func TestTitle_FullMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityFull)

	output := captureStdout(func() {
		Title("Impact Report")
	})

	if output == "" {
		t.Error("expected styled output in full mode")
	}
}

// =============================================================================
// Success Tests
// =============================================================================

func TestSuccess_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMachine)

	output := captureStdout(func() {
		Success("All tests passed")
	})

	if output != "OK: All tests passed\n" {
		t.Errorf("expected 'OK: All tests passed', got %q", output)
	}
}

func TestSuccess_MinimalMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMinimal)

	output := captureStdout(func() {
		Success("All tests passed")
	})

	if output == "" {
		t.Error("expected output in minimal mode")
	}
	if !strings.Contains(output, "All tests passed") {
		t.Errorf("expected message in output, got %q", output)
	}
}

func TestSuccess_FullMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityFull)

	output := captureStdout(func() {
		Success("All tests passed")
	})

	if output == "" {
		t.Error("expected output in full mode")
	}
}

// =============================================================================
// Warning Tests
// =============================================================================

func TestWarning_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMachine)

	output := captureStderr(func() {
		Warning("element not found in index")
	})

	if output != "WARN: element not found in index\n" {
		t.Errorf("expected 'WARN: ...' on stderr, got %q", output)
	}
}

func TestWarning_FullMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityFull)

	output := captureStdout(func() {
		Warning("element not found in index")
	})

	if !strings.Contains(output, "element not found in index") {
		t.Errorf("expected message in output, got %q", output)
	}
}

// =============================================================================
// Error Tests
// =============================================================================

func TestError_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMachine)

	output := captureStderr(func() {
		Error("test run failed")
	})

	if output != "ERROR: test run failed\n" {
		t.Errorf("expected 'ERROR: ...' on stderr, got %q", output)
	}
}

func TestError_FullMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityFull)

	output := captureStdout(func() {
		Error("test run failed")
	})

	if !strings.Contains(output, "test run failed") {
		t.Errorf("expected message in output, got %q", output)
	}
}

// =============================================================================
// Info and Muted Tests
// =============================================================================

func TestInfo_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMachine)

	output := captureStdout(func() {
		Info("using pytest")
	})

	if output != "using pytest\n" {
		t.Errorf("expected plain message, got %q", output)
	}
}

func TestInfo_FullMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityFull)

	output := captureStdout(func() {
		Info("using pytest")
	})

	if !strings.Contains(output, "using pytest") {
		t.Errorf("expected message in output, got %q", output)
	}
}

func TestMuted_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMachine)

	output := captureStdout(func() {
		Muted("12 tests collected")
	})

	if output != "" {
		t.Errorf("expected no output in machine mode, got %q", output)
	}
}

func TestMuted_FullMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityFull)

	output := captureStdout(func() {
		Muted("12 tests collected")
	})

	if output == "" {
		t.Error("expected output in full mode")
	}
}

// =============================================================================
// Box Tests
// =============================================================================

func TestBox_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMachine)

	output := captureStdout(func() {
		Box("Impact", "3 elements affected")
	})

	if output != "Impact: 3 elements affected\n" {
		t.Errorf("expected plain 'title: content', got %q", output)
	}
}

func TestBox_FullMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityFull)

	output := captureStdout(func() {
		Box("Impact", "3 elements affected")
	})

	if !strings.Contains(output, "3 elements affected") {
		t.Errorf("expected content in output, got %q", output)
	}
}

func TestWarningBox_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMachine)

	output := captureStderr(func() {
		WarningBox("Index", "element index not found")
	})

	if output != "WARN Index: element index not found\n" {
		t.Errorf("expected plain warning on stderr, got %q", output)
	}
}

// =============================================================================
// TestStatus Tests
// =============================================================================

func TestTestStatus_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMachine)

	output := captureStdout(func() {
		TestStatus("test_login", IconSuccess, "0.3s")
	})

	if output != "✓\ttest_login\t0.3s\n" {
		t.Errorf("expected tab-separated output, got %q", output)
	}
}

func TestTestStatus_MinimalMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMinimal)

	output := captureStdout(func() {
		TestStatus("test_login", IconSuccess, "0.3s")
	})

	if !strings.Contains(output, "test_login") {
		t.Errorf("expected test name in output, got %q", output)
	}
	if strings.Contains(output, "0.3s") {
		t.Errorf("minimal mode should omit detail, got %q", output)
	}
}

func TestTestStatus_FullMode_WithDetail(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityFull)

	output := captureStdout(func() {
		TestStatus("test_login", IconError, "assertion failed")
	})

	if !strings.Contains(output, "test_login") {
		t.Errorf("expected test name in output, got %q", output)
	}
	if !strings.Contains(output, "assertion failed") {
		t.Errorf("expected detail in output, got %q", output)
	}
}

func TestTestStatus_FullMode_NoDetail(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityFull)

	output := captureStdout(func() {
		TestStatus("test_login", IconSuccess, "")
	})

	if !strings.Contains(output, "test_login") {
		t.Errorf("expected test name in output, got %q", output)
	}
	if strings.Contains(output, "()") {
		t.Errorf("expected no empty parens, got %q", output)
	}
}

// =============================================================================
// Summary Tests
// =============================================================================

func TestSummary_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMachine)

	output := captureStdout(func() {
		Summary(8, 1, 1, 10)
	})

	if output != "SUMMARY: passed=8 failed=1 skipped=1 total=10\n" {
		t.Errorf("expected machine summary, got %q", output)
	}
}

func TestSummary_FullMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityFull)

	output := captureStdout(func() {
		Summary(8, 1, 1, 10)
	})

	if !strings.Contains(output, "passed") {
		t.Errorf("expected 'passed' label in output, got %q", output)
	}
	if !strings.Contains(output, "total") {
		t.Errorf("expected 'total' label in output, got %q", output)
	}
}

// =============================================================================
// RiskBadge Tests
// =============================================================================

func TestRiskBadge_KnownLevels(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"low", "[LOW]"},
		{"medium", "[MEDIUM]"},
		{"high", "[HIGH]"},
		{"critical", "[CRITICAL]"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got := RiskBadge(tt.level)
			if !strings.Contains(got, tt.want) {
				t.Errorf("RiskBadge(%q) = %q, want contains %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestRiskBadge_UnknownLevel(t *testing.T) {
	got := RiskBadge("volcanic")
	if !strings.Contains(got, "[volcanic]") {
		t.Errorf("RiskBadge(volcanic) = %q, want the raw level bracketed", got)
	}
}

// =============================================================================
// ProgressBar Tests
// =============================================================================

func TestProgressBar_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityMachine)

	result := ProgressBar(5, 10, 20)
	if result != "5/10" {
		t.Errorf("expected '5/10', got %q", result)
	}
}

func TestProgressBar_FullMode_HalfFull(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityFull)

	result := ProgressBar(5, 10, 20)
	if !strings.Contains(result, "50%") {
		t.Errorf("expected 50%% in output, got %q", result)
	}
}

func TestProgressBar_FullMode_Full(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityFull)

	result := ProgressBar(10, 10, 20)
	if !strings.Contains(result, "100%") {
		t.Errorf("expected 100%% in output, got %q", result)
	}
}

// =============================================================================
// repeatChar Tests
// =============================================================================

func TestRepeatChar_Positive(t *testing.T) {
	result := repeatChar('x', 3)
	if result != "xxx" {
		t.Errorf("expected 'xxx', got %q", result)
	}
}

func TestRepeatChar_Zero(t *testing.T) {
	result := repeatChar('x', 0)
	if result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestRepeatChar_Negative(t *testing.T) {
	result := repeatChar('x', -5)
	if result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestRepeatChar_Unicode(t *testing.T) {
	result := repeatChar('█', 2)
	if result != "██" {
		t.Errorf("expected '██', got %q", result)
	}
}

// =============================================================================
// Styles and Constants Tests
// =============================================================================

func TestStyles_NotNil(t *testing.T) {
	if Styles.Title.Render("x") == "" {
		t.Error("Title style should render")
	}
	if Styles.Error.Render("x") == "" {
		t.Error("Error style should render")
	}
}

func TestIconConstants(t *testing.T) {
	if IconSuccess != "✓" {
		t.Errorf("IconSuccess = %q, want ✓", IconSuccess)
	}
	if IconError != "✗" {
		t.Errorf("IconError = %q, want ✗", IconError)
	}
	if IconSkipped != "−" {
		t.Errorf("IconSkipped = %q, want −", IconSkipped)
	}
}
