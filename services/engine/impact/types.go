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

import (
	"strings"

	"github.com/SeismicAI/SeismicFOSS/services/engine/index"
)

// DefaultMaxDepth bounds traversal when the caller does not specify one.
const DefaultMaxDepth = 3

// Direction selects which relationship edges a traversal follows.
type Direction string

const (
	// DirectionDownstream follows calledBy edges: "what depends on the
	// changed element", the default for impact analysis.
	DirectionDownstream Direction = "downstream"

	// DirectionUpstream follows dependency edges: "what the element
	// itself depends on".
	DirectionUpstream Direction = "upstream"
)

// RiskLevel buckets an impact or complexity measurement.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// severity orders levels for threshold comparison. Unknown levels
// rank lowest.
func (r RiskLevel) severity() int {
	switch r {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return 0
	}
}

// Exceeds reports whether r is strictly more severe than threshold.
// Callers gate exit codes on this: at-or-below the threshold passes.
func (r RiskLevel) Exceeds(threshold RiskLevel) bool {
	return r.severity() > threshold.severity()
}

// ParseRiskLevel converts a user-supplied level name. Unrecognized
// input falls back to RiskHigh, the most permissive gate that still
// fails on critical findings.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(s) {
	case "low":
		return RiskLow
	case "medium":
		return RiskMedium
	case "critical":
		return RiskCritical
	default:
		return RiskHigh
	}
}

// TraverseOptions tunes a single traversal.
//
// Zero values select the defaults: MaxDepth 3, downstream direction.
type TraverseOptions struct {
	// MaxDepth stops expansion once a node at this depth is reached.
	MaxDepth int

	// Direction selects the edge set to walk.
	Direction Direction
}

// normalize fills defaults and validates the direction.
func (o *TraverseOptions) normalize() error {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	switch o.Direction {
	case "":
		o.Direction = DirectionDownstream
	case DirectionDownstream, DirectionUpstream:
	default:
		return ErrInvalidDirection
	}
	return nil
}

// AffectedElement is one element reached by a traversal.
//
// # Description
//
// For a fixed traversal each name appears at most once, recorded at the
// minimum depth at which it is reachable. Path is the ordered chain of
// element names from the queried element to this one (inclusive on both
// ends), so Path[0] is always the traversal root and len(Path) ==
// Depth+1.
type AffectedElement struct {
	Name  string            `json:"name"`
	Kind  index.ElementKind `json:"type"`
	File  string            `json:"file"`
	Line  int               `json:"line"`
	Depth int               `json:"depth"`
	Path  []string          `json:"path"`
}

// ImpactScore summarizes a traversal result.
//
// # Fields
//
//   - ImpactScore: Count of affected elements.
//   - RiskLevel: Fixed-threshold bucket: 0-5 low, 6-15 medium,
//     16-50 high, >50 critical.
//   - Breakdown: Affected-element counts keyed "depth_1", "depth_2", ...
type ImpactScore struct {
	ImpactScore int            `json:"impact_score"`
	RiskLevel   RiskLevel      `json:"risk_level"`
	Breakdown   map[string]int `json:"breakdown"`
}

// Analysis is the composite result of AnalyzeElement.
type Analysis struct {
	ElementName      string            `json:"element_name"`
	AffectedElements []AffectedElement `json:"affected_elements"`
	ImpactScore      ImpactScore       `json:"impact_score"`
	Report           string            `json:"report"`
}

// excludedDirs are path segments that mark vendored or generated code.
// Elements living under these directories never participate in
// traversal, as callers cannot meaningfully act on them.
var excludedDirs = map[string]struct{}{
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"target":       {},
	".git":         {},
	"__pycache__":  {},
	".next":        {},
	"coverage":     {},
}

// isExcludedPath reports whether any segment of file is an excluded
// directory. Paths are normalized to forward slashes before checking.
func isExcludedPath(file string) bool {
	normalized := strings.ReplaceAll(file, "\\", "/")
	for _, segment := range strings.Split(normalized, "/") {
		if _, ok := excludedDirs[segment]; ok {
			return true
		}
	}
	return false
}
