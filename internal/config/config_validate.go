// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tomtom215/cfrecall/internal/logging"
	"github.com/tomtom215/cfrecall/internal/recall/storage"
)

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

var columnNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT must not be negative")
	}
	return nil
}

// validateModel defers to the recall package so the rules live in one place
func (c *Config) validateModel() error {
	if err := c.RecallConfig().Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case storage.BackendFile, storage.BackendBadger:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", storage.BackendFile, storage.BackendBadger, c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("STORAGE_PATH is required")
	}
	if c.Storage.GCRatio <= 0 || c.Storage.GCRatio >= 1 {
		return fmt.Errorf("STORAGE_GC_RATIO must be in (0, 1), got %v", c.Storage.GCRatio)
	}
	return nil
}

func (c *Config) validateFeed() error {
	if !strings.Contains(c.Feed.FilePattern, "{date}") {
		return fmt.Errorf("FEED_FILE_PATTERN must contain {date}")
	}
	columns := map[string]string{
		"FEED_USER_COLUMN":   c.Feed.UserColumn,
		"FEED_ITEM_COLUMN":   c.Feed.ItemColumn,
		"FEED_SIGNAL_COLUMN": c.Feed.SignalColumn,
		"FEED_DATE_COLUMN":   c.Feed.DateColumn,
	}
	for name, col := range columns {
		if !columnNamePattern.MatchString(col) {
			return fmt.Errorf("%s is not a valid column name: %q", name, col)
		}
	}
	if c.Feed.Table != "" && !columnNamePattern.MatchString(c.Feed.Table) {
		return fmt.Errorf("FEED_TABLE is not a valid table name: %q", c.Feed.Table)
	}
	if c.Feed.RowLimit < 1 {
		return fmt.Errorf("FEED_ROW_LIMIT must be positive")
	}
	if c.Feed.QueryTimeout <= 0 {
		return fmt.Errorf("FEED_QUERY_TIMEOUT must be positive")
	}
	if c.Feed.ReplayRate < 0 {
		return fmt.Errorf("FEED_REPLAY_RATE must not be negative")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.ReadConcurrency < 1 {
		return fmt.Errorf("READ_CONCURRENCY must be at least 1")
	}
	if c.Worker.QueueCapacity < 1 {
		return fmt.Errorf("WRITE_QUEUE_SIZE must be at least 1")
	}
	if c.Worker.TaskHistory < 1 {
		return fmt.Errorf("TASK_HISTORY_SIZE must be at least 1")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if !c.Scheduler.Enabled {
		return nil
	}
	if c.Scheduler.Interval < time.Minute {
		return fmt.Errorf("SCHEDULER_INTERVAL must be at least 1m")
	}
	if c.Scheduler.LagDays < 0 {
		return fmt.Errorf("SCHEDULER_LAG_DAYS must not be negative")
	}
	return nil
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}
