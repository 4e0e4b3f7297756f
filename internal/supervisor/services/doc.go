// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

/*
Package services adapts cfrecall components to suture.Service.

Every wrapper blocks in Serve(ctx) until ctx is canceled and then returns
ctx.Err(). Any other returned error asks the supervisor for a restart.

  - HTTPServerService: binds the listen address, serves, and shuts down gracefully
  - BatchSchedulerService: submits the daily batch to the write queue on a ticker
  - StorageGCService: periodic value log GC for the badger backend

worker.Queue implements suture.Service itself and is added to the tree
directly.
*/
package services
