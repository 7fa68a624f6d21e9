// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxElements caps how many elements a single index file may
// contain before the loader refuses it.
const DefaultMaxElements = 250_000

// =============================================================================
// Configuration
// =============================================================================

// Config controls loader behavior.
type Config struct {
	// Path is the index file location. Default: DefaultIndexPath.
	Path string

	// MaxElements bounds the accepted index size. Default: DefaultMaxElements.
	MaxElements int

	// Logger receives load diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		Path:        DefaultIndexPath,
		MaxElements: DefaultMaxElements,
	}
}

// Option customizes loader construction.
type Option func(*Config)

// WithPath sets the index file path.
func WithPath(path string) Option {
	return func(c *Config) {
		c.Path = path
	}
}

// WithMaxElements sets the maximum accepted element count.
func WithMaxElements(n int) Option {
	return func(c *Config) {
		c.MaxElements = n
	}
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Validate clamps out-of-range values to defaults.
func (c *Config) Validate() {
	if c.Path == "" {
		c.Path = DefaultIndexPath
	}
	if c.MaxElements <= 0 {
		c.MaxElements = DefaultMaxElements
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// =============================================================================
// Snapshot
// =============================================================================

// Snapshot is one loaded generation of the element index.
//
// # Description
//
// A Snapshot is immutable after construction. "Loaded empty" (index file
// present but empty, or absent) is a valid state distinct from "not
// loaded": a Loader that has not loaded yet has no Snapshot at all.
//
// # Thread Safety
//
// Safe for concurrent use; all methods are read-only.
type Snapshot struct {
	elements map[string]*Element
	order    []*Element
	loadedAt time.Time
	missing  bool
}

// Get returns the element with the given name.
func (s *Snapshot) Get(name string) (*Element, bool) {
	el, ok := s.elements[name]
	return el, ok
}

// All returns every element in index file order.
//
// The returned slice is the snapshot's internal view; callers must not
// modify it or the elements it points to.
func (s *Snapshot) All() []*Element {
	return s.order
}

// Len returns the number of loaded elements.
func (s *Snapshot) Len() int {
	return len(s.order)
}

// Missing reports whether the index file was absent at load time.
func (s *Snapshot) Missing() bool {
	return s.missing
}

// LoadedAt returns when this snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// =============================================================================
// Loader
// =============================================================================

// Loader lazily reads the element index and caches the parsed snapshot.
//
// # Example
//
//	loader := index.NewLoader(index.WithPath(".seismic/element_index.json"))
//	snap, err := loader.EnsureLoaded(ctx)
//	if err != nil {
//	    return err
//	}
//	el, ok := snap.Get("process_payment")
type Loader struct {
	config Config
	logger *slog.Logger

	mu     sync.RWMutex
	snap   *Snapshot
	flight singleflight.Group
}

// NewLoader creates a loader for the given index file.
func NewLoader(opts ...Option) *Loader {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	config.Validate()

	return &Loader{
		config: config,
		logger: config.Logger.With("component", "index.loader"),
	}
}

// EnsureLoaded returns the cached snapshot, loading the index file on
// first use.
//
// # Description
//
// Concurrent first loads are deduplicated: the file is read and parsed
// once, and every caller receives the same snapshot. A missing index
// file yields an empty snapshot plus a logged warning, never an error.
// A present-but-unparseable file returns ErrIndexCorrupt wrapped in an
// IndexError.
//
// # Inputs
//
//   - ctx: Must be non-nil; used for tracing.
//
// # Outputs
//
//   - *Snapshot: The loaded (possibly empty) snapshot.
//   - error: ErrNilContext, or an IndexError on read/parse failure.
func (l *Loader) EnsureLoaded(ctx context.Context) (*Snapshot, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	// Fast path: already loaded.
	l.mu.RLock()
	snap := l.snap
	l.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	v, err, _ := l.flight.Do("load", func() (any, error) {
		// Double-check under the flight: another caller may have
		// completed the load while we queued.
		l.mu.RLock()
		snap := l.snap
		l.mu.RUnlock()
		if snap != nil {
			return snap, nil
		}

		loaded, err := l.load(ctx)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.snap = loaded
		l.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Reload drops the cached snapshot and loads the index file again.
func (l *Loader) Reload(ctx context.Context) (*Snapshot, error) {
	l.mu.Lock()
	l.snap = nil
	l.mu.Unlock()
	return l.EnsureLoaded(ctx)
}

// Loaded reports whether a snapshot is cached.
func (l *Loader) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap != nil
}

// Path returns the configured index file path.
func (l *Loader) Path() string {
	return l.config.Path
}

// load reads and parses the index file into a fresh snapshot.
func (l *Loader) load(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	ctx, span := startLoadSpan(ctx, l.config.Path)
	defer span.End()

	data, err := os.ReadFile(l.config.Path)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("element index not found, continuing with empty index",
			"path", l.config.Path)
		snap := &Snapshot{
			elements: make(map[string]*Element),
			loadedAt: time.Now(),
			missing:  true,
		}
		setLoadSpanResult(span, 0, true, true)
		recordLoadMetrics(ctx, time.Since(start), 0, true, true)
		return snap, nil
	}
	if err != nil {
		setLoadSpanResult(span, 0, false, false)
		recordLoadMetrics(ctx, time.Since(start), 0, false, false)
		return nil, &IndexError{Path: l.config.Path, Err: fmt.Errorf("read index: %w", err)}
	}

	var raw []*Element
	if err := json.Unmarshal(data, &raw); err != nil {
		setLoadSpanResult(span, 0, false, false)
		recordLoadMetrics(ctx, time.Since(start), 0, false, false)
		return nil, &IndexError{Path: l.config.Path, Err: fmt.Errorf("%w: %v", ErrIndexCorrupt, err)}
	}
	if len(raw) > l.config.MaxElements {
		setLoadSpanResult(span, len(raw), false, false)
		recordLoadMetrics(ctx, time.Since(start), len(raw), false, false)
		return nil, &IndexError{
			Path: l.config.Path,
			Err:  fmt.Errorf("%w: %d > %d", ErrIndexTooLarge, len(raw), l.config.MaxElements),
		}
	}

	elements := make(map[string]*Element, len(raw))
	order := make([]*Element, 0, len(raw))
	skipped := 0
	for _, el := range raw {
		// Malformed entries are skipped individually, never fatal.
		if el == nil || el.Name == "" {
			skipped++
			continue
		}
		if _, dup := elements[el.Name]; dup {
			l.logger.Warn("duplicate element name in index, keeping first",
				"name", el.Name)
			skipped++
			continue
		}
		elements[el.Name] = el
		order = append(order, el)
	}

	if skipped > 0 {
		l.logger.Warn("skipped malformed index entries",
			"path", l.config.Path,
			"skipped", skipped)
	}
	l.logger.Info("element index loaded",
		"path", l.config.Path,
		"elements", len(order),
		"duration_ms", time.Since(start).Milliseconds())

	setLoadSpanResult(span, len(order), false, true)
	recordLoadMetrics(ctx, time.Since(start), len(order), false, true)

	return &Snapshot{
		elements: elements,
		order:    order,
		loadedAt: time.Now(),
	}, nil
}
