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
	"log/slog"
	"os"

	"github.com/SeismicAI/SeismicFOSS/pkg/logging"
	"github.com/SeismicAI/SeismicFOSS/pkg/ux"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	projectFlag      string // Project root override (-C), defaults to cwd
	personalityLevel string // UX personality level (full/standard/minimal/machine)
	debugLogging     bool

	// config holds the optional per-project settings loaded from
	// .seismic/config.yaml. Zero value when the file is absent.
	config ProjectConfig

	rootCmd = &cobra.Command{
		Use:   "seismic",
		Short: "A cli for impact-driven test selection and execution",
		Long: `Seismic maps what a code change actually touches and runs the
				tests that cover it: impact and complexity analysis over the
				element index, change drift capture, impacted test selection,
				and framework-aware test execution with run history.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize UX personality from flag or environment
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}

			setupLogging()

			// Project config is optional; a missing file is the
			// common case and not worth a warning.
			root, err := resolveProjectRoot()
			if err != nil {
				return
			}
			cfg, err := loadProjectConfig(root)
			if err != nil {
				slog.Warn("Ignoring unreadable project config", "error", err)
				return
			}
			config = cfg
		},
	}
)

// setupLogging routes the engine packages' slog output through the
// shared logger. The CLI's own results go to stdout via ux helpers,
// so stderr diagnostics default to warn unless --debug or
// SEISMIC_LOG_LEVEL asks for more.
func setupLogging() {
	level := logging.LevelWarn
	if env := os.Getenv("SEISMIC_LOG_LEVEL"); env != "" {
		level = logging.ParseLevel(env)
	}
	if debugLogging {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		Service: "cli",
	})
	slog.SetDefault(logger.Slog())
}

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "C", "",
		"Project root to operate on (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full (default, rich), standard, minimal, or machine (scripting)")
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false,
		"Enable debug logging on stderr")
}
