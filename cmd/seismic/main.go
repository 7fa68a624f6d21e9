// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command seismic is the local CLI for the Seismic test engine.
//
// It drives the same analysis and runner packages the engine server
// exposes over HTTP, but directly against the working tree: impact
// and complexity queries over the element index, framework detection,
// drift capture, impacted test selection, test runs with history, and
// a watch loop.
//
// Run "seismic --help" for the full command tree.
package main

import "os"

func main() {
	// Execute the root command. Cobra handles parsing the arguments
	// and prints its own error, so only the exit code is ours.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(CLIExitError)
	}
}
