// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/cfrecall/internal/recall"
	"github.com/tomtom215/cfrecall/internal/recall/storage"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Model     ModelConfig     `koanf:"model"`
	Storage   StorageConfig   `koanf:"storage"`
	Feed      FeedConfig      `koanf:"feed"`
	Worker    WorkerConfig    `koanf:"worker"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"` // Per-request deadline applied by the router
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ModelConfig holds two-horizon model settings
type ModelConfig struct {
	LongTermDecay    float64       `koanf:"long_term_decay"`
	ShortTermDecay   float64       `koanf:"short_term_decay"`
	CacheSize        int           `koanf:"cache_size"`
	CacheTTL         time.Duration `koanf:"cache_ttl"`
	StrictInvariants bool          `koanf:"strict_invariants"`
	LoadOnStartup    bool          `koanf:"load_on_startup"`
	PersistOnBatch   bool          `koanf:"persist_on_batch"`
}

// StorageConfig holds persistence settings
type StorageConfig struct {
	Backend           string        `koanf:"backend"` // "file" or "badger"
	Path              string        `koanf:"path"`
	SyncWrites        bool          `koanf:"sync_writes"`
	GCRatio           float64       `koanf:"gc_ratio"`
	GCInterval        time.Duration `koanf:"gc_interval"`
	RegistryLocation  string        `koanf:"registry_location"`
	LongTermLocation  string        `koanf:"long_term_location"`
	ShortTermLocation string        `koanf:"short_term_location"`
}

// FeedConfig holds the daily interaction feed settings
type FeedConfig struct {
	DuckDBPath   string        `koanf:"duckdb_path"` // Empty opens an in-memory database
	CSVDir       string        `koanf:"csv_dir"`
	FilePattern  string        `koanf:"file_pattern"` // {date} is replaced with YYYYMMDD
	Table        string        `koanf:"table"`        // Fallback when no dated CSV exists
	UserColumn   string        `koanf:"user_column"`
	ItemColumn   string        `koanf:"item_column"`
	SignalColumn string        `koanf:"signal_column"`
	DateColumn   string        `koanf:"date_column"`
	RowLimit     int           `koanf:"row_limit"`
	QueryTimeout time.Duration `koanf:"query_timeout"`

	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`

	// ReplayRate caps days per second during reinitialize. Zero is unlimited.
	ReplayRate float64 `koanf:"replay_rate"`
}

// WorkerConfig holds concurrency settings
type WorkerConfig struct {
	ReadConcurrency int `koanf:"read_concurrency"`
	QueueCapacity   int `koanf:"queue_capacity"`
	TaskHistory     int `koanf:"task_history"`
}

// SchedulerConfig holds automatic daily batch settings
type SchedulerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Interval     time.Duration `koanf:"interval"`
	LagDays      int           `koanf:"lag_days"` // Apply the feed for today minus LagDays
	RunOnStartup bool          `koanf:"run_on_startup"`
}

// SecurityConfig holds CORS and rate limit settings
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Locations returns the configured persistence locations.
func (c *Config) Locations() recall.Locations {
	return recall.Locations{
		Registry:  c.Storage.RegistryLocation,
		LongTerm:  c.Storage.LongTermLocation,
		ShortTerm: c.Storage.ShortTermLocation,
	}.WithDefaults(recall.DefaultLocations())
}

// RecallConfig builds the model configuration.
func (c *Config) RecallConfig() *recall.Config {
	return &recall.Config{
		LongTermDecay:    c.Model.LongTermDecay,
		ShortTermDecay:   c.Model.ShortTermDecay,
		Locations:        c.Locations(),
		PersistOnBatch:   c.Model.PersistOnBatch,
		CacheSize:        c.Model.CacheSize,
		CacheTTL:         c.Model.CacheTTL,
		StrictInvariants: c.Model.StrictInvariants,
	}
}

// StorageOpenConfig builds the storage backend configuration.
func (c *Config) StorageOpenConfig() storage.Config {
	return storage.Config{
		Backend:    c.Storage.Backend,
		Path:       c.Storage.Path,
		SyncWrites: c.Storage.SyncWrites,
		GCRatio:    c.Storage.GCRatio,
	}
}
