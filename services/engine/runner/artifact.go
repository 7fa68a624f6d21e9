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
	"fmt"

	"github.com/google/uuid"

	"github.com/SeismicAI/SeismicFOSS/services/engine/frameworks"
)

// artifactName returns a collision-free result file name for one run,
// written at the project root. The uuid keeps concurrent runs against
// the same project from clobbering each other's reporter output.
func artifactName(fw frameworks.Framework) string {
	return fmt.Sprintf(".seismic-%s-%s.json", fw, uuid.NewString())
}
