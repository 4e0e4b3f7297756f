// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/cfrecall/internal/recall"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cfrecall/config.yaml",
	"/etc/cfrecall/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultFilePattern is the dated daily export name.
const DefaultFilePattern = "{date}_dim_drama_eposides_labels_di.csv"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Model: ModelConfig{
			LongTermDecay:  0.99,
			ShortTermDecay: 0.9,
			CacheSize:      10000,
			CacheTTL:       5 * time.Minute,
			LoadOnStartup:  true,
			PersistOnBatch: true,
		},
		Storage: StorageConfig{
			Backend:           "file",
			Path:              "/data/cfrecall",
			GCRatio:           0.5,
			GCInterval:        10 * time.Minute,
			RegistryLocation:  recall.DefaultRegistryLocation,
			LongTermLocation:  recall.DefaultLongTermLocation,
			ShortTermLocation: recall.DefaultShortTermLocation,
		},
		Feed: FeedConfig{
			FilePattern:        DefaultFilePattern,
			UserColumn:         "user_id",
			ItemColumn:         "episode_key",
			SignalColumn:       "interest_action",
			DateColumn:         "dt",
			RowLimit:           10000,
			QueryTimeout:       2 * time.Minute,
			BreakerMaxFailures: 3,
			BreakerTimeout:     time.Minute,
		},
		Worker: WorkerConfig{
			ReadConcurrency: 10,
			QueueCapacity:   64,
			TaskHistory:     1024,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Interval: 24 * time.Hour,
			LagDays:  1,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   600,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence (ENV > File > Defaults).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
// YAML lists are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_request_timeout":  "server.request_timeout",

	// Model
	"recall_long_term_decay":   "model.long_term_decay",
	"recall_short_term_decay":  "model.short_term_decay",
	"recall_cache_size":        "model.cache_size",
	"recall_cache_ttl":         "model.cache_ttl",
	"recall_strict_invariants": "model.strict_invariants",
	"recall_load_on_startup":   "model.load_on_startup",
	"recall_persist_on_batch":  "model.persist_on_batch",

	// Storage
	"storage_backend":             "storage.backend",
	"storage_path":                "storage.path",
	"storage_sync_writes":         "storage.sync_writes",
	"storage_gc_ratio":            "storage.gc_ratio",
	"storage_gc_interval":         "storage.gc_interval",
	"storage_registry_location":   "storage.registry_location",
	"storage_long_term_location":  "storage.long_term_location",
	"storage_short_term_location": "storage.short_term_location",

	// Feed
	"duckdb_path":               "feed.duckdb_path",
	"feed_csv_dir":              "feed.csv_dir",
	"feed_file_pattern":         "feed.file_pattern",
	"feed_table":                "feed.table",
	"feed_user_column":          "feed.user_column",
	"feed_item_column":          "feed.item_column",
	"feed_signal_column":        "feed.signal_column",
	"feed_date_column":          "feed.date_column",
	"feed_row_limit":            "feed.row_limit",
	"feed_query_timeout":        "feed.query_timeout",
	"feed_breaker_max_failures": "feed.breaker_max_failures",
	"feed_breaker_timeout":      "feed.breaker_timeout",
	"feed_replay_rate":          "feed.replay_rate",

	// Worker
	"read_concurrency":  "worker.read_concurrency",
	"write_queue_size":  "worker.queue_capacity",
	"task_history_size": "worker.task_history",

	// Scheduler
	"scheduler_enabled":        "scheduler.enabled",
	"scheduler_interval":       "scheduler.interval",
	"scheduler_lag_days":       "scheduler.lag_days",
	"scheduler_run_on_startup": "scheduler.run_on_startup",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Unmapped names return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
