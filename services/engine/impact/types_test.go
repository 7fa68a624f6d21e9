// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package impact

import "testing"

func TestRiskLevel_Exceeds(t *testing.T) {
	tests := []struct {
		level     RiskLevel
		threshold RiskLevel
		want      bool
	}{
		{RiskLow, RiskLow, false},
		{RiskMedium, RiskLow, true},
		{RiskHigh, RiskHigh, false},
		{RiskCritical, RiskHigh, true},
		{RiskCritical, RiskCritical, false},
		{RiskLow, RiskCritical, false},
		// Unknown levels rank lowest and never exceed a known one.
		{RiskLevel("weird"), RiskLow, false},
		{RiskMedium, RiskLevel("weird"), true},
	}

	for _, tt := range tests {
		if got := tt.level.Exceeds(tt.threshold); got != tt.want {
			t.Errorf("%s.Exceeds(%s) = %v, want %v", tt.level, tt.threshold, got, tt.want)
		}
	}
}

func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		in   string
		want RiskLevel
	}{
		{"low", RiskLow},
		{"Medium", RiskMedium},
		{"HIGH", RiskHigh},
		{"critical", RiskCritical},
		// Unrecognized input falls back to high.
		{"", RiskHigh},
		{"severe", RiskHigh},
	}

	for _, tt := range tests {
		if got := ParseRiskLevel(tt.in); got != tt.want {
			t.Errorf("ParseRiskLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
