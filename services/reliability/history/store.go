// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	dgbadger "github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/corelife/pkg/logging"
	"github.com/AleutianAI/corelife/services/reliability/storage/badger"
)

var tracer = otel.Tracer("corelife.history")

const (
	runKeyPrefix   = "run/"
	indexKeyPrefix = "idx/"
)

// Store reads and writes run summaries.
//
// Description:
//
//	Each summary is stored as JSON under "run/{id}". A second key
//	"idx/{started_at unix nanos, zero padded}/{id}" orders runs by start
//	time so List can walk them newest first with a reverse iterator.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db     *badger.DB
	logger *logging.Logger
}

// NewStore wraps an open database. The store does not own db.
func NewStore(db *badger.DB, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{db: db, logger: logger}
}

func runKey(id string) []byte {
	return []byte(runKeyPrefix + id)
}

func indexKey(s *RunSummary) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", indexKeyPrefix, s.StartedAt.UnixNano(), s.ID))
}

// Save writes s, replacing any earlier record with the same ID.
//
// Outputs:
//
//	error - Non-nil if s has no ID or the write fails.
func (st *Store) Save(ctx context.Context, s *RunSummary) error {
	ctx, span := tracer.Start(ctx, "history.Store.Save",
		trace.WithAttributes(attribute.String("history.run_id", s.ID)),
	)
	defer span.End()

	if s.ID == "" {
		return errors.New("run summary has no ID")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", s.ID, err)
	}

	err = st.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		if old, err := st.get(txn, s.ID); err == nil {
			if err := txn.Delete(indexKey(old)); err != nil {
				return err
			}
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := txn.Set(runKey(s.ID), data); err != nil {
			return err
		}
		return txn.Set(indexKey(s), nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("save run %s: %w", s.ID, err)
	}
	st.logger.Debug("run saved", "run_id", s.ID, "trials", s.Trials)
	return nil
}

// Get returns the run with the given ID or unique ID prefix.
//
// Outputs:
//
//	*RunSummary - The stored run.
//	error - ErrNotFound, ErrAmbiguousID, or a storage error.
func (st *Store) Get(ctx context.Context, id string) (*RunSummary, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	var out *RunSummary
	err := st.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		s, err := st.get(txn, id)
		if err == nil {
			out = s
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		prefix := runKey(id)
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var match string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if match != "" {
				return fmt.Errorf("%w: %q", ErrAmbiguousID, id)
			}
			match = string(it.Item().Key()[len(runKeyPrefix):])
		}
		if match == "" {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		out, err = st.get(txn, match)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (st *Store) List(ctx context.Context, limit int) ([]*RunSummary, error) {
	var out []*RunSummary
	err := st.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		prefix := []byte(indexKeyPrefix)
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(indexKeyPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := string(it.Item().Key())
			id := key[len(key)-idLength(key):]
			s, err := st.get(txn, id)
			if err != nil {
				st.logger.Warn("skipping unreadable run", "key", key, "error", err)
				continue
			}
			out = append(out, s)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// idLength returns the length of the ID after the last '/' of an index key.
func idLength(key string) int {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return len(key) - i - 1
		}
	}
	return len(key)
}

func (st *Store) get(txn *dgbadger.Txn, id string) (*RunSummary, error) {
	item, err := txn.Get(runKey(id))
	if errors.Is(err, dgbadger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var s RunSummary
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &s)
	})
	if err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &s, nil
}
