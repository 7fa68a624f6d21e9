// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch observes a project tree and reports batches of
// changed files after a quiet period.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler is called with a deduplicated batch of changed paths once
// the debounce window closes.
type Handler func(changed []string)

// Options configures a Watcher.
type Options struct {
	// DebounceWindow is how long to wait for more changes before
	// flushing a batch. Default: 400ms.
	DebounceWindow time.Duration

	// IgnorePatterns name files and directories to skip: vendor and
	// build trees, editor droppings, and the engine's own state
	// directory so recorded runs never retrigger a cycle.
	IgnorePatterns []string

	// BufferSize is the size of the change buffer channel.
	// Default: 1000.
	BufferSize int

	// Logger receives watcher diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 400 * time.Millisecond,
		IgnorePatterns: []string{
			".git", "node_modules", ".idea", ".vscode", "__pycache__",
			"target", "dist", "build", ".seismic", "*.swp", "*.tmp", "*~",
		},
		BufferSize: 1000,
	}
}

// Watcher watches a directory tree with debounced change batching.
//
// # Description
//
// Changes are collected into a buffer. When the debounce window
// expires without new events, the collected paths are deduplicated
// and handed to the handler in one batch. A save-all in an editor
// triggers one test cycle, not one per file.
//
// # Thread Safety
//
// Safe for concurrent use. The handler runs on a single goroutine.
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	ignore   []string
	logger   *slog.Logger

	changes  chan string
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// NewWatcher creates a watcher for root. Call Start to begin
// watching and Stop when done.
func NewWatcher(root string, handler Handler, opts *Options) (*Watcher, error) {
	if root == "" {
		return nil, ErrEmptyRoot
	}
	if handler == nil {
		return nil, ErrNilHandler
	}
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = 400 * time.Millisecond
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:     root,
		watcher:  fsWatcher,
		handler:  handler,
		debounce: opts.DebounceWindow,
		ignore:   opts.IgnorePatterns,
		logger:   logger.With("component", "watch"),
		changes:  make(chan string, opts.BufferSize),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the root recursively. Both internal
// goroutines exit when Stop is called or ctx is canceled. Calling
// Start on a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	w.logger.Info("watching for changes", "root", w.root, "debounce", w.debounce)
	return nil
}

// Stop stops the watcher. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// addRecursive registers root and every non-ignored subdirectory.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// shouldIgnore checks a path against the ignore patterns by base
// name, glob match, or path containment.
func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.ignore {
		if base == pattern {
			return true
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if strings.Contains(path, string(filepath.Separator)+pattern+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// processEvents forwards fsnotify events into the change buffer and
// registers newly created directories.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.shouldIgnore(event.Name) {
				continue
			}

			select {
			case w.changes <- event.Name:
			default:
				// Buffer full; the debouncer will flush what it
				// already has and the next event re-arms it.
				w.logger.Warn("change buffer full, dropping event", "path", event.Name)
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(event.Name); err != nil {
						w.logger.Warn("could not watch new directory",
							"path", event.Name, "error", err)
					}
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// debounceLoop batches changes and invokes the handler after the
// debounce window expires.
func (w *Watcher) debounceLoop(ctx context.Context) {
	var batch []string
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 {
			deduped := dedupe(batch)
			w.logger.Debug("change batch ready", "files", len(deduped))
			w.handler(deduped)
			batch = batch[:0]
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case path := <-w.changes:
			batch = append(batch, path)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

// dedupe removes repeated paths, keeping first-seen order.
func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
