// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package storage

import "fmt"

// Backend names.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Config selects and configures a backend.
type Config struct {
	// Backend is "file" or "badger".
	Backend string

	// Path is the file store base directory or the badger directory.
	Path string

	// SyncWrites fsyncs badger commits.
	SyncWrites bool

	// GCRatio is the badger value log discard ratio.
	GCRatio float64
}

// Open creates the configured backend.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return NewFileStore(cfg.Path)
	case BackendBadger:
		return OpenBadger(BadgerConfig{
			Path:       cfg.Path,
			SyncWrites: cfg.SyncWrites,
			GCRatio:    cfg.GCRatio,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
