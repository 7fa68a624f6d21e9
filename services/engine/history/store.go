// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists run summaries in an embedded BadgerDB
// store under the project's state directory.
//
// # Description
//
// Keys are "run:<unix-nano>:<uuid>" with the timestamp zero-padded,
// so plain lexical iteration is chronological and reverse iteration
// yields newest-first listings without a secondary index.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/SeismicAI/SeismicFOSS/services/engine/frameworks"
	"github.com/SeismicAI/SeismicFOSS/services/engine/runner"
)

const keyPrefix = "run:"

// Entry is one persisted run record. The full per-test list is not
// stored; history answers "what happened" queries, not re-reporting.
type Entry struct {
	ID        string               `json:"id"`
	Timestamp time.Time            `json:"timestamp"`
	Project   string               `json:"project"`
	Framework frameworks.Framework `json:"framework"`
	Summary   runner.Summary       `json:"summary"`
	ErrorKind string               `json:"error_kind,omitempty"`
}

// Store is a BadgerDB-backed run history.
//
// # Thread Safety
//
// Safe for concurrent use. BadgerDB handles transaction isolation;
// the closed flag is atomic.
type Store struct {
	db     *badger.DB
	gc     *gcRunner
	logger *slog.Logger
	closed atomic.Bool
}

// Open opens a history store with the given configuration.
//
// # Inputs
//
//   - cfg: Store configuration. Path is required unless InMemory.
//
// # Outputs
//
//   - *Store: The opened store. Caller must Close it.
//   - error: Non-nil if the database cannot be opened.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent history store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		db:     db,
		logger: logger.With("component", "history"),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, s.logger)
		s.gc.start()
	}
	return s, nil
}

// Close stops garbage collection and closes the database. Safe to
// call once; later operations return ErrStoreClosed.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

// Record persists a run's summary and returns the stored entry.
func (s *Store) Record(ctx context.Context, results *runner.Results) (*Entry, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	if results == nil {
		return nil, ErrNilResults
	}

	entry := &Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Project:   results.Project,
		Framework: results.Framework,
		Summary:   results.Summary,
	}
	if results.Error != nil {
		entry.ErrorKind = string(results.Error.Kind)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode history entry: %w", err)
	}

	key := entryKey(entry.Timestamp, entry.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return nil, fmt.Errorf("write history entry: %w", err)
	}

	s.logger.Debug("recorded run",
		"id", entry.ID,
		"framework", entry.Framework,
		"total", entry.Summary.Total)
	return entry, nil
}

// List returns entries newest first. A non-positive limit returns
// everything.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}

	entries := []*Entry{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// One 0xFF sorts after every run key's digits.
		seekKey := append([]byte(keyPrefix), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix([]byte(keyPrefix)); it.Next() {
			if limit > 0 && len(entries) >= limit {
				return nil
			}
			var entry Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return fmt.Errorf("decode history entry %s: %w", it.Item().Key(), err)
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Get returns the entry with the given id, or ErrEntryNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrEntryNotFound
	}

	var entry *Entry
	suffix := ":" + id
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(keyPrefix)); it.ValidForPrefix([]byte(keyPrefix)); it.Next() {
			if !strings.HasSuffix(string(it.Item().Key()), suffix) {
				continue
			}
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return fmt.Errorf("decode history entry %s: %w", it.Item().Key(), err)
			}
			entry = &e
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return entry, nil
}

// Prune keeps the newest keep entries and deletes the rest, returning
// how many were removed. Prune(ctx, 0) clears the history.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if err := s.guard(ctx); err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seen := 0
		seekKey := append([]byte(keyPrefix), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix([]byte(keyPrefix)); it.Next() {
			seen++
			if seen <= keep {
				continue
			}
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete history entry %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("pruned run history", "removed", len(stale), "kept", keep)
	return len(stale), nil
}

// guard performs the shared operation preconditions.
func (s *Store) guard(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrStoreClosed
	}
	return nil
}

// entryKey builds "run:<unix-nano>:<uuid>". The timestamp is
// zero-padded to a fixed width so lexical order is chronological.
func entryKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", keyPrefix, ts.UnixNano(), id))
}
