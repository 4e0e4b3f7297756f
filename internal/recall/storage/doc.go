// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

// Package storage persists model records under opaque locations.
//
// Two backends implement Store:
//
//   - FileStore: one file per location, relative locations resolve under a
//     base directory, absolute paths are used as given.
//   - BadgerStore: one key per location in an embedded BadgerDB.
//
// # Record Format
//
// Both backends write the same envelope:
//
//	envelope (gob):
//	  - Metadata (location, saved_at, sha256 checksum, sizes)
//	  - CompressedData (gzip-compressed gob of the record)
//
// The checksum covers the uncompressed gob bytes and is verified on every
// Get, so truncated or corrupted records surface as errors rather than as
// partially decoded state.
//
// # Missing Records
//
// Get returns ErrNotFound when nothing was ever stored at a location. Callers
// treat that as "no prior state", which is distinct from a read failure.
//
// # Thread Safety
//
// All backends are safe for concurrent use. FileStore writes through a
// temporary file and rename so readers never observe a partial record.
package storage
