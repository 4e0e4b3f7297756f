// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

// Package recall implements the two-horizon interest scoring engine.
//
// # Architecture
//
// A Model owns four pieces of state:
//
//   - Registry: dense, append-only mapping of user and item identifiers to
//     matrix row and column indices.
//   - Long-term matrix: user x item interest decayed slowly between batches.
//   - Short-term matrix: the same interactions decayed quickly.
//   - Recall cache: expirable LRU of recent results, purged on every mutation.
//
// # Batch Processing
//
// ApplyBatch runs the accumulate pipeline in a fixed order:
//
//  1. Decay both matrices once (long-term and short-term rates).
//  2. Binarize raw signals (nonzero counts as one).
//  3. Resolve or create indices and add the signal to both matrices.
//  4. Normalize each matrix by its maximum.
//  5. Persist registry and matrices to the default locations.
//
// Identifiers created during a batch are therefore never decayed in the batch
// that created them.
//
// # Recall
//
// Recall ranks each horizon's row for the user by descending score with ties
// broken by ascending item index. Items with a positive long-term score are
// known positives and are removed from the long-term list; the short-term list
// drops anything the filtered long-term list already contains. Unknown users
// and non-positive top-k values yield empty lists.
//
// # Thread Safety
//
// All Model methods are safe for concurrent use. Mutations (ApplyBatch, Load)
// hold the exclusive lock; Recall, Stats and the snapshot taken by Save hold
// the shared lock. Persistence writes are ordered by a second mutex taken
// before the state lock is released, so snapshots reach storage in the order
// they were produced.
//
// # Usage
//
//	cfg := recall.DefaultConfig()
//	model, err := recall.NewModel(cfg, store, logger)
//	if err != nil {
//	    return err
//	}
//	if err := model.Load(ctx, recall.DefaultLocations()); err != nil {
//	    return err
//	}
//	res, err := model.ApplyBatch(ctx, interactions)
//	out := model.Recall(ctx, "user-1", 10)
package recall
