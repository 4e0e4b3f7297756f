// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

// Package logging provides the process-wide zerolog logger.
//
// Initialize once from main, then log through the package helpers or derive
// component loggers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("addr", addr).Msg("server starting")
//
//	logger := logging.With().Str("component", "ingest").Logger()
//
// Request handlers log through Ctx, which adds the request ID stored in the
// context by the HTTP middleware:
//
//	logging.Ctx(r.Context()).Warn().Err(err).Msg("recall failed")
//
// Libraries that need a *slog.Logger (sutureslog) get one backed by the same
// zerolog output from NewSlogLogger.
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event
// is never written.
package logging
