// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

/*
Package supervisor runs the long-lived services of cfrecall under a suture v4
supervisor tree.

	cfrecall
	├── data-layer
	│   ├── write-queue        (worker.Queue, the single model writer)
	│   └── storage-gc         (badger backend only)
	├── ingest-layer
	│   └── batch-scheduler    (if scheduler.enabled)
	└── api-layer
	    └── http-server

Services return ctx.Err() when the tree shuts down and any other error to
request a restart. Supervisor events are logged through sutureslog on top of
the zerolog-backed slog handler from internal/logging.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(queue)
	tree.AddAPIService(services.NewHTTPServerService(srv, srv.Addr, cfg.Server.ShutdownTimeout, logging.Logger()))
	err = tree.Serve(ctx)
*/
package supervisor
