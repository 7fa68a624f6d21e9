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

import "time"

// Config holds runner-level settings that apply to every run. Per-run
// settings (timeout, scope) live on the Request.
type Config struct {
	// DefaultTimeout is used when a request carries no timeout of its
	// own. Requests normally set this through Validate, so it only
	// matters for callers constructing requests by hand.
	DefaultTimeout time.Duration

	// MaxOutputBytes caps how much subprocess stdout and stderr each
	// retain. Writes past the cap are discarded, not errored, so the
	// subprocess never sees a broken pipe.
	MaxOutputBytes int64

	// LockRuns serializes runs per project with an advisory file
	// lock under .seismic/locks/.
	LockRuns bool
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultTimeout: DefaultTimeoutSeconds * time.Second,
		MaxOutputBytes: 1 << 20,
		LockRuns:       true,
	}
}

// Validate clamps out-of-range values to safe ones. It never fails;
// the error return keeps the signature uniform with other configs.
func (c *Config) Validate() error {
	if c.DefaultTimeout < time.Second {
		c.DefaultTimeout = DefaultTimeoutSeconds * time.Second
	}
	if c.MaxOutputBytes < 4096 {
		c.MaxOutputBytes = 1 << 20
	}
	return nil
}

// ConfigOption customizes a Config.
type ConfigOption func(*Config)

// WithDefaultTimeout sets the fallback subprocess timeout.
func WithDefaultTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.DefaultTimeout = d
	}
}

// WithMaxOutputBytes sets the per-stream output retention cap.
func WithMaxOutputBytes(n int64) ConfigOption {
	return func(c *Config) {
		c.MaxOutputBytes = n
	}
}

// WithRunLocking enables or disables per-project run serialization.
func WithRunLocking(enabled bool) ConfigOption {
	return func(c *Config) {
		c.LockRuns = enabled
	}
}

// NewConfig builds a Config from defaults plus options, then clamps it.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	_ = cfg.Validate()
	return cfg
}
