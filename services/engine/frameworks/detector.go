// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package frameworks

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Marker confidence weights. A dedicated config file outranks a shared
// manifest entry, which outranks a test-script mention, which outranks
// a naming convention.
const (
	confidenceDedicatedConfig = 0.9
	confidenceSharedConfig    = 0.8
	confidenceTestScript      = 0.7
	confidenceConvention      = 0.6
)

// Config file candidates per framework.
var (
	jestConfigFiles   = []string{"jest.config.js", "jest.config.ts", "jest.config.mjs", "jest.config.cjs", "jest.config.json"}
	vitestConfigFiles = []string{"vitest.config.js", "vitest.config.ts", "vitest.config.mjs", "vitest.config.mts"}
	mochaConfigFiles  = []string{".mocharc.json", ".mocharc.jsonc", ".mocharc.yml", ".mocharc.yaml", ".mocharc.js", ".mocharc.cjs"}
)

// packageManifest is the subset of package.json detection reads.
type packageManifest struct {
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Jest            json.RawMessage   `json:"jest"`
}

// Detector probes a project tree for test framework markers.
//
// # Thread Safety
//
// A Detector is safe for concurrent use; it holds no per-call state.
type Detector struct {
	logger *slog.Logger
}

// DetectorOption customizes detector construction.
type DetectorOption func(*Detector)

// WithLogger sets the logger for detection diagnostics.
func WithLogger(logger *slog.Logger) DetectorOption {
	return func(d *Detector) {
		d.logger = logger
	}
}

// NewDetector creates a framework detector.
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("component", "frameworks.detector")
	return d
}

// Detect returns every framework whose markers are present, ordered by
// confidence descending. The first entry is the default framework when
// the caller does not name one. An empty result means no framework was
// detected, which is a valid project state rather than an error.
//
// Each framework contributes at most one entry, carrying its strongest
// marker. Detectors run in the fixed order of All(); the stable sort
// keeps that order among equal confidences, so results are
// deterministic and explainable.
func (d *Detector) Detect(projectPath string) []Info {
	manifest := d.readPackageManifest(projectPath)

	infos := make([]Info, 0, 4)
	for _, fw := range All() {
		var info Info
		var found bool
		switch fw {
		case Pytest:
			info, found = d.detectPytest(projectPath)
		case Jest:
			info, found = d.detectJest(projectPath, manifest)
		case Vitest:
			info, found = d.detectVitest(projectPath, manifest)
		case Cargo:
			info, found = d.detectCargo(projectPath)
		case Mocha:
			info, found = d.detectMocha(projectPath, manifest)
		}
		if found {
			infos = append(infos, info)
		}
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].Confidence > infos[j].Confidence
	})

	d.logger.Debug("framework detection complete",
		"project", projectPath,
		"detected", len(infos))
	return infos
}

// DetectDefault returns the highest-confidence framework, or Unknown
// when nothing is detected.
func (d *Detector) DetectDefault(projectPath string) Framework {
	infos := d.Detect(projectPath)
	if len(infos) == 0 {
		return Unknown
	}
	return infos[0].Framework
}

func (d *Detector) detectPytest(projectPath string) (Info, bool) {
	if fileExists(filepath.Join(projectPath, "pytest.ini")) {
		return Info{
			Framework:  Pytest,
			Confidence: confidenceDedicatedConfig,
			Marker:     "pytest.ini",
			Reason:     "pytest.ini present",
		}, true
	}

	pyproject := filepath.Join(projectPath, "pyproject.toml")
	if data, err := os.ReadFile(pyproject); err == nil {
		if strings.Contains(string(data), "[tool.pytest.ini_options]") {
			return Info{
				Framework:  Pytest,
				Confidence: confidenceSharedConfig,
				Marker:     "pyproject.toml",
				Reason:     "pytest configured in pyproject.toml",
			}, true
		}
	}

	if fileExists(filepath.Join(projectPath, "conftest.py")) {
		return Info{
			Framework:  Pytest,
			Confidence: confidenceConvention,
			Marker:     "conftest.py",
			Reason:     "conftest.py present",
		}, true
	}
	return Info{}, false
}

func (d *Detector) detectJest(projectPath string, manifest *packageManifest) (Info, bool) {
	for _, name := range jestConfigFiles {
		if fileExists(filepath.Join(projectPath, name)) {
			return Info{
				Framework:  Jest,
				Confidence: confidenceDedicatedConfig,
				Marker:     name,
				Reason:     name + " present",
			}, true
		}
	}

	if manifest != nil {
		if len(manifest.Jest) > 0 {
			return Info{
				Framework:  Jest,
				Confidence: confidenceSharedConfig,
				Marker:     "package.json",
				Reason:     "jest config embedded in package.json",
			}, true
		}
		if hasDependency(manifest, "jest") {
			return Info{
				Framework:  Jest,
				Confidence: confidenceSharedConfig,
				Marker:     "package.json",
				Reason:     "jest listed in package.json dependencies",
			}, true
		}
		if strings.Contains(manifest.Scripts["test"], "jest") {
			return Info{
				Framework:  Jest,
				Confidence: confidenceTestScript,
				Marker:     "package.json",
				Reason:     "jest invoked by the package.json test script",
			}, true
		}
	}
	return Info{}, false
}

func (d *Detector) detectVitest(projectPath string, manifest *packageManifest) (Info, bool) {
	for _, name := range vitestConfigFiles {
		if fileExists(filepath.Join(projectPath, name)) {
			return Info{
				Framework:  Vitest,
				Confidence: confidenceDedicatedConfig,
				Marker:     name,
				Reason:     name + " present",
			}, true
		}
	}

	if manifest != nil {
		if hasDependency(manifest, "vitest") {
			return Info{
				Framework:  Vitest,
				Confidence: confidenceSharedConfig,
				Marker:     "package.json",
				Reason:     "vitest listed in package.json dependencies",
			}, true
		}
		if strings.Contains(manifest.Scripts["test"], "vitest") {
			return Info{
				Framework:  Vitest,
				Confidence: confidenceTestScript,
				Marker:     "package.json",
				Reason:     "vitest invoked by the package.json test script",
			}, true
		}
	}
	return Info{}, false
}

func (d *Detector) detectCargo(projectPath string) (Info, bool) {
	if fileExists(filepath.Join(projectPath, "Cargo.toml")) {
		return Info{
			Framework:  Cargo,
			Confidence: confidenceDedicatedConfig,
			Marker:     "Cargo.toml",
			Reason:     "Cargo.toml present",
		}, true
	}
	return Info{}, false
}

func (d *Detector) detectMocha(projectPath string, manifest *packageManifest) (Info, bool) {
	for _, name := range mochaConfigFiles {
		if fileExists(filepath.Join(projectPath, name)) {
			return Info{
				Framework:  Mocha,
				Confidence: confidenceDedicatedConfig,
				Marker:     name,
				Reason:     name + " present",
			}, true
		}
	}

	if manifest != nil && strings.Contains(manifest.Scripts["test"], "mocha") {
		return Info{
			Framework:  Mocha,
			Confidence: confidenceTestScript,
			Marker:     "package.json",
			Reason:     "mocha invoked by the package.json test script",
		}, true
	}
	return Info{}, false
}

// readPackageManifest parses package.json if present. A missing or
// malformed manifest degrades to nil; detection continues on file
// markers alone.
func (d *Detector) readPackageManifest(projectPath string) *packageManifest {
	path := filepath.Join(projectPath, "package.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var manifest packageManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		d.logger.Warn("package.json is not valid JSON, ignoring for detection",
			"path", path, "error", err)
		return nil
	}
	return &manifest
}

func hasDependency(manifest *packageManifest, name string) bool {
	if _, ok := manifest.DevDependencies[name]; ok {
		return true
	}
	_, ok := manifest.Dependencies[name]
	return ok
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
