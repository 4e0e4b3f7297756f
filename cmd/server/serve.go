// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/cfrecall/internal/api"
	"github.com/tomtom215/cfrecall/internal/logging"
	"github.com/tomtom215/cfrecall/internal/supervisor"
	"github.com/tomtom215/cfrecall/internal/supervisor/services"
	"github.com/tomtom215/cfrecall/internal/worker"
)

func (c *cli) runServe(parent context.Context) error {
	cfg := c.cfg
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("storage_backend", cfg.Storage.Backend).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Starting cfrecall with supervisor tree")

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize")
		return err
	}
	defer a.close()

	queue, err := worker.NewQueue(worker.QueueConfig{
		Capacity: cfg.Worker.QueueCapacity,
		History:  cfg.Worker.TaskHistory,
	}, logging.Logger())
	if err != nil {
		return fmt.Errorf("create write queue: %w", err)
	}
	defer queue.Close()

	handler := api.NewHandler(api.Deps{
		Model:     a.model,
		Runner:    a.runner,
		Queue:     queue,
		Pool:      worker.NewPool(cfg.Worker.ReadConcurrency),
		Locations: cfg.Locations(),
		LagDays:   cfg.Scheduler.LagDays,
	})
	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins:       cfg.Security.CORSOrigins,
		RateLimitRequests: cfg.Security.RateLimitReqs,
		RateLimitWindow:   cfg.Security.RateLimitWindow,
		RateLimitDisabled: cfg.Security.RateLimitDisabled,
		RequestTimeout:    cfg.Server.RequestTimeout,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// sutureslog needs slog; the adapter keeps zerolog as the only sink.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		PassThroughPanics: cfg.Model.StrictInvariants,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddDataService(queue)
	if bs := a.badger(); bs != nil {
		tree.AddDataService(services.NewStorageGCService(bs, cfg.Storage.GCInterval, logging.Logger()))
	}
	if cfg.Scheduler.Enabled {
		tree.AddIngestService(services.NewBatchSchedulerService(queue, a.runner, services.BatchSchedulerConfig{
			Interval:     cfg.Scheduler.Interval,
			LagDays:      cfg.Scheduler.LagDays,
			RunOnStartup: cfg.Scheduler.RunOnStartup,
		}, logging.Logger()))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout, logging.Logger()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	errCh := tree.ServeBackground(ctx)
	handler.SetReady(true)
	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree started")

	var runErr error
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
			runErr = err
		}
	}
	handler.SetReady(false)

	unstopped, _ := tree.UnstoppedServiceReport() //nolint:errcheck // report is best effort during shutdown
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("cfrecall stopped")
	return runErr
}
