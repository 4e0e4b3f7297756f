// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

/*
Package config loads CFRecall configuration.

Configuration is layered with Koanf v2, later layers winning:

 1. Defaults from defaultConfig()
 2. An optional YAML file (CONFIG_PATH, ./config.yaml, /etc/cfrecall/config.yaml)
 3. Environment variables listed in envMappings

Unlisted environment variables are ignored.

# Sections

  - server: HTTP listener address and timeouts
  - model: decay factors, recall cache, invariant strictness
  - storage: persistence backend (file or badger) and record locations
  - feed: daily interaction source (DuckDB over dated CSV files or a table)
  - worker: read concurrency and write queue sizing
  - scheduler: automatic daily batch application
  - security: CORS and rate limiting
  - logging: zerolog level and format

# Example

	cfg, err := config.Load()
	if err != nil {
	    return err
	}
	model, err := recall.NewModel(cfg.RecallConfig(), store, logger)

# Example YAML

	model:
	  long_term_decay: 0.99
	  short_term_decay: 0.9
	storage:
	  backend: badger
	  path: /data/cfrecall
	feed:
	  csv_dir: /data/feed
	scheduler:
	  enabled: true
	  interval: 24h
*/
package config
