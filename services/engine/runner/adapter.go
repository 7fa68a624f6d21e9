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
	"github.com/SeismicAI/SeismicFOSS/services/engine/frameworks"
)

// invocation is one framework command, ready to execute from the
// project root.
type invocation struct {
	command string
	args    []string

	// artifact is the project-relative reporter output file, empty
	// for frameworks parsed from the raw streams. The runner owns
	// its lifecycle and removes it after parsing.
	artifact string
}

// adapter translates between one framework and the normalized result
// model.
//
// # Description
//
// buildInvocation narrows the run: an explicit file list from impact
// narrowing wins, then the request's TestFile, then TestPattern.
// parseOutput interprets whatever the subprocess produced; it returns
// partial results alongside an error when the output was readable up
// to a point.
//
// # Thread Safety
//
// Adapters are stateless values. Safe for concurrent use.
type adapter interface {
	buildInvocation(req *Request, files []string) invocation
	parseOutput(res *commandResult, artifact []byte) ([]TestResult, error)
}

// adapterFor dispatches over the closed framework set. A nil return
// means dispatch reached a framework no adapter claims, which the
// runner reports as an internal defect rather than panicking.
func adapterFor(fw frameworks.Framework) adapter {
	switch fw {
	case frameworks.Pytest:
		return pytestAdapter{}
	case frameworks.Jest:
		return jestAdapter{}
	case frameworks.Vitest:
		return vitestAdapter{}
	case frameworks.Cargo:
		return cargoAdapter{}
	case frameworks.Mocha:
		return mochaAdapter{}
	default:
		return nil
	}
}
