// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package recall

import (
	"fmt"
	"time"
)

// Default storage keys for the persisted model.
const (
	DefaultRegistryLocation  = "indices"
	DefaultLongTermLocation  = "long_term_matrix"
	DefaultShortTermLocation = "short_term_matrix"
)

// Locations addresses the three persisted records. Values are opaque to the
// model and interpreted by the storage backend.
type Locations struct {
	Registry  string `json:"registry_location"`
	LongTerm  string `json:"long_term_location"`
	ShortTerm string `json:"short_term_location"`
}

// DefaultLocations returns the fixed logical keys used after every batch.
func DefaultLocations() Locations {
	return Locations{
		Registry:  DefaultRegistryLocation,
		LongTerm:  DefaultLongTermLocation,
		ShortTerm: DefaultShortTermLocation,
	}
}

// WithDefaults fills empty fields from fallback.
func (l Locations) WithDefaults(fallback Locations) Locations {
	if l.Registry == "" {
		l.Registry = fallback.Registry
	}
	if l.LongTerm == "" {
		l.LongTerm = fallback.LongTerm
	}
	if l.ShortTerm == "" {
		l.ShortTerm = fallback.ShortTerm
	}
	return l
}

func (l Locations) validate() error {
	if l.Registry == "" || l.LongTerm == "" || l.ShortTerm == "" {
		return fmt.Errorf("%w: all three locations are required", ErrInvalidConfig)
	}
	if l.Registry == l.LongTerm || l.Registry == l.ShortTerm || l.LongTerm == l.ShortTerm {
		return fmt.Errorf("%w: locations must be distinct", ErrInvalidConfig)
	}
	return nil
}

// Config contains the model parameters.
type Config struct {
	// LongTermDecay multiplies every long-term cell once per batch.
	// Default: 0.99
	LongTermDecay float64 `json:"long_term_decay"`

	// ShortTermDecay multiplies every short-term cell once per batch.
	// Default: 0.9
	ShortTermDecay float64 `json:"short_term_decay"`

	// Locations are where ApplyBatch persists after each batch.
	Locations Locations `json:"locations"`

	// PersistOnBatch enables the persist step of ApplyBatch.
	// Default: true
	PersistOnBatch bool `json:"persist_on_batch"`

	// CacheSize bounds the recall result cache. Zero disables caching.
	// Default: 10000
	CacheSize int `json:"cache_size"`

	// CacheTTL expires cached recall results.
	// Default: 5m
	CacheTTL time.Duration `json:"cache_ttl"`

	// StrictInvariants panics on a dimension mismatch instead of failing
	// the operation. Intended for development builds.
	StrictInvariants bool `json:"strict_invariants"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		LongTermDecay:  0.99,
		ShortTermDecay: 0.9,
		Locations:      DefaultLocations(),
		PersistOnBatch: true,
		CacheSize:      10000,
		CacheTTL:       5 * time.Minute,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.LongTermDecay <= 0 || c.LongTermDecay >= 1 {
		return fmt.Errorf("%w: long_term_decay must be in (0, 1), got %f", ErrInvalidConfig, c.LongTermDecay)
	}
	if c.ShortTermDecay <= 0 || c.ShortTermDecay >= 1 {
		return fmt.Errorf("%w: short_term_decay must be in (0, 1), got %f", ErrInvalidConfig, c.ShortTermDecay)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must be non-negative, got %d", ErrInvalidConfig, c.CacheSize)
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		return fmt.Errorf("%w: cache_ttl must be positive when caching, got %v", ErrInvalidConfig, c.CacheTTL)
	}
	return c.Locations.validate()
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
