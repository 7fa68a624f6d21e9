// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds the optional per-project settings read from
// .seismic/config.yaml under the project root.
//
// Every field has a working default, so projects without a config
// file get flag defaults. Explicitly set command-line flags always
// win over file values.
type ProjectConfig struct {
	// Framework pins the test framework instead of auto-detection
	// (pytest, jest, vitest, cargo, mocha).
	Framework string `yaml:"framework"`

	// TimeoutSeconds bounds each test run subprocess.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// UseImpactAnalysis narrows runs to impacted tests by default.
	UseImpactAnalysis bool `yaml:"use_impact_analysis"`

	// HistoryKeep caps how many recorded runs are kept. Zero means
	// the built-in default; negative disables pruning.
	HistoryKeep int `yaml:"history_keep"`

	// Watch tunes the watch command.
	Watch WatchConfig `yaml:"watch"`
}

// WatchConfig tunes the watch loop.
type WatchConfig struct {
	// DebounceMs is the quiet window in milliseconds before a batch
	// of file changes triggers a test cycle.
	DebounceMs int `yaml:"debounce_ms"`

	// Ignore appends patterns to the built-in ignore list.
	Ignore []string `yaml:"ignore"`
}

// loadProjectConfig reads .seismic/config.yaml under root.
//
// A missing file returns a zero config and no error; the CLI works
// without one. A present but malformed file is an error so a typo
// does not silently revert the project to defaults.
func loadProjectConfig(root string) (ProjectConfig, error) {
	var cfg ProjectConfig

	path := filepath.Join(root, ".seismic", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
