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
	"fmt"
	"strings"
)

// maxDiagramEdges caps the dependency diagram so reports for very large
// blast radii stay readable.
const maxDiagramEdges = 50

// Report renders a markdown impact report: summary, per-depth listing,
// and a dependency diagram capped at maxDiagramEdges edges.
func Report(elementName string, direction Direction, maxDepth int, affected []AffectedElement, score ImpactScore) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Impact Analysis: %s\n\n", elementName)
	fmt.Fprintf(&b, "- **Direction:** %s\n", direction)
	fmt.Fprintf(&b, "- **Max depth:** %d\n", maxDepth)
	fmt.Fprintf(&b, "- **Affected elements:** %d\n", score.ImpactScore)
	fmt.Fprintf(&b, "- **Risk level:** %s\n", score.RiskLevel)

	if len(affected) == 0 {
		b.WriteString("\nNo affected elements within the depth bound.\n")
		return b.String()
	}

	b.WriteString("\n## Affected Elements by Depth\n")
	for depth := 1; depth <= maxDepth; depth++ {
		count := score.Breakdown[fmt.Sprintf("depth_%d", depth)]
		if count == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### Depth %d (%d)\n\n", depth, count)
		for _, el := range affected {
			if el.Depth != depth {
				continue
			}
			fmt.Fprintf(&b, "- `%s` (%s) at %s:%d\n", el.Name, el.Kind, el.File, el.Line)
		}
	}

	b.WriteString("\n## Dependency Diagram\n\n")
	b.WriteString("```mermaid\ngraph TD\n")
	edges := 0
	for _, el := range affected {
		if edges >= maxDiagramEdges {
			break
		}
		// The last hop of the path is the edge that discovered this
		// element, so each element contributes exactly one edge.
		from := el.Path[len(el.Path)-2]
		fmt.Fprintf(&b, "    %s --> %s\n", from, el.Name)
		edges++
	}
	b.WriteString("```\n")

	if remaining := len(affected) - edges; remaining > 0 {
		fmt.Fprintf(&b, "\n...and %d more edges\n", remaining)
	}

	return b.String()
}
