// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// keyPrefix namespaces model records inside the database.
const keyPrefix = "model/"

// BadgerConfig configures the embedded database.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory. Intended for tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// GCRatio is the discard ratio used by RunGC.
	// Default: 0.5
	GCRatio float64
}

// BadgerStore keeps each record under its own key.
type BadgerStore struct {
	db      *badger.DB
	gcRatio float64
}

// OpenBadger opens (or creates) the database.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger: path is required")
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	ratio := cfg.GCRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	return &BadgerStore{db: db, gcRatio: ratio}, nil
}

func recordKey(location string) []byte {
	return []byte(keyPrefix + location)
}

// Put implements Store.
func (s *BadgerStore) Put(ctx context.Context, location string, v any) error {
	if location == "" {
		return ErrEmptyLocation
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, _, err := encodeEnvelope(location, v)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(recordKey(location), data))
	})
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, location string, target any) (*Metadata, error) {
	if location == "" {
		return nil, ErrEmptyLocation
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(location))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	return decodeEnvelope(bytes.NewReader(data), target)
}

// RunGC reclaims value log space until nothing more can be rewritten.
func (s *BadgerStore) RunGC() error {
	for {
		err := s.db.RunValueLogGC(s.gcRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Name implements Store.
func (s *BadgerStore) Name() string { return "badger" }

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
