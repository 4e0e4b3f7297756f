// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/cfrecall/internal/config"
	"github.com/tomtom215/cfrecall/internal/feed"
	"github.com/tomtom215/cfrecall/internal/ingest"
	"github.com/tomtom215/cfrecall/internal/logging"
	"github.com/tomtom215/cfrecall/internal/recall"
	"github.com/tomtom215/cfrecall/internal/recall/storage"
)

// app holds the components shared by serve and the one-shot commands.
type app struct {
	cfg    *config.Config
	store  storage.Store
	model  *recall.Model
	source *feed.DuckDBSource
	runner *ingest.Runner
}

// newApp opens storage and the feed and builds the model. When
// model.load_on_startup is set the last saved state is loaded.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	raw, err := storage.Open(cfg.StorageOpenConfig())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	store := storage.Instrument(raw, logging.With().Str("component", "storage").Logger())
	logging.Info().Str("backend", raw.Name()).Str("path", cfg.Storage.Path).Msg("Storage opened")

	a := &app{cfg: cfg, store: store}

	a.model, err = recall.NewModel(cfg.RecallConfig(), store, logging.Logger())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create model: %w", err)
	}

	if cfg.Model.LoadOnStartup {
		if err := a.model.Load(ctx, recall.Locations{}); err != nil {
			a.close()
			return nil, fmt.Errorf("load model: %w", err)
		}
		st := a.model.Stats()
		logging.Info().Int("users", st.Users).Int("items", st.Items).Msg("Model state restored")
	}

	a.source, err = feed.NewDuckDBSource(feed.DuckDBConfig{
		Path:         cfg.Feed.DuckDBPath,
		CSVDir:       cfg.Feed.CSVDir,
		FilePattern:  cfg.Feed.FilePattern,
		Table:        cfg.Feed.Table,
		UserColumn:   cfg.Feed.UserColumn,
		ItemColumn:   cfg.Feed.ItemColumn,
		SignalColumn: cfg.Feed.SignalColumn,
		DateColumn:   cfg.Feed.DateColumn,
		RowLimit:     cfg.Feed.RowLimit,
		QueryTimeout: cfg.Feed.QueryTimeout,
	}, logging.Logger())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open feed: %w", err)
	}

	guarded := feed.NewBreakerSource(a.source, feed.BreakerConfig{
		Name:             "feed",
		FailureThreshold: cfg.Feed.BreakerMaxFailures,
		Timeout:          cfg.Feed.BreakerTimeout,
	}, logging.Logger())
	a.runner = ingest.NewRunner(a.model, guarded, cfg.Feed.ReplayRate, logging.Logger())

	return a, nil
}

// badger returns the badger backend, or nil for the file backend.
func (a *app) badger() *storage.BadgerStore {
	s := a.store
	if in, ok := s.(*storage.Instrumented); ok {
		s = in.Unwrap()
	}
	bs, _ := s.(*storage.BadgerStore)
	return bs
}

// persistIfNeeded saves the model when batches are not persisted already.
func (a *app) persistIfNeeded(ctx context.Context) error {
	if a.cfg.Model.PersistOnBatch {
		return nil
	}
	return a.model.Save(ctx, recall.Locations{})
}

func (a *app) close() {
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing feed")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}
}
