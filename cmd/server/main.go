// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

// Package main is the cfrecall command.
//
// cfrecall keeps a long-term and a short-term user x item interest matrix,
// folds one day of interaction records into both at a time, and serves
// top-k recall lists over HTTP.
//
// # Commands
//
//	cfrecall serve                      run the HTTP service (default)
//	cfrecall apply  --date 20240101     apply one day's feed and exit
//	cfrecall reinit --start 20240101    replay a date range and exit
//	cfrecall recall --user u1 --top-k 5 print one recall result and exit
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (HTTP_PORT, RECALL_LONG_TERM_DECAY, FEED_CSV_DIR, ...)
//   - Config file (config.yaml, or CONFIG_PATH / --config)
//   - Built-in defaults
//
// # Signal Handling
//
// serve shuts down on SIGINT and SIGTERM: the HTTP server drains, the write
// queue stops taking tasks and the storage backend is closed.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
