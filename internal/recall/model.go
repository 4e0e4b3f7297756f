// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package recall

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cfrecall/internal/metrics"
	"github.com/tomtom215/cfrecall/internal/recall/storage"
)

// Model owns the registry and both score matrices.
// It is safe for concurrent use.
type Model struct {
	config *Config
	logger zerolog.Logger
	store  storage.Store

	// State, guarded by mu
	mu        sync.RWMutex
	registry  *Registry
	longTerm  *Matrix
	shortTerm *Matrix

	// persistMu orders snapshot writes; acquired while mu is still held
	persistMu sync.Mutex

	cache *expirable.LRU[string, Result]

	batches     atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	lastBatch   atomic.Int64
	lastSave    atomic.Int64
	lastLoad    atomic.Int64
}

// NewModel creates an empty model. store may be nil, in which case batches
// are not persisted and Save/Load return ErrNoStore.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewModel(cfg *Config, store storage.Store, logger zerolog.Logger) (*Model, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m := &Model{
		config:    cfg.Clone(),
		logger:    logger.With().Str("component", "recall").Logger(),
		store:     store,
		registry:  NewRegistry(),
		longTerm:  NewMatrix(),
		shortTerm: NewMatrix(),
	}
	if cfg.CacheSize > 0 {
		m.cache = expirable.NewLRU[string, Result](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return m, nil
}

// Config returns a copy of the model configuration.
func (m *Model) Config() *Config {
	return m.config.Clone()
}

// ApplyBatch decays both matrices, accumulates the batch, normalizes and
// persists to the configured default locations.
//
// Records with an empty user or item identifier, or a NaN signal, are skipped.
// A dimension mismatch aborts the operation before anything is persisted.
// A persistence failure is returned wrapped in ErrStorageUnavailable; the
// in-memory state keeps the applied batch.
func (m *Model) ApplyBatch(ctx context.Context, batch []Interaction) (BatchResult, error) {
	start := time.Now()
	var result BatchResult

	m.mu.Lock()

	m.longTerm.Scale(m.config.LongTermDecay)
	m.shortTerm.Scale(m.config.ShortTermDecay)

	for i := range batch {
		in := &batch[i]
		if in.UserID == "" || in.ItemID == "" || math.IsNaN(in.Signal) {
			result.Skipped++
			m.logger.Debug().
				Int("position", i).
				Str("user_id", in.UserID).
				Str("item_id", in.ItemID).
				Msg("skipping malformed interaction")
			continue
		}

		u, newUser := m.registry.ResolveUser(in.UserID)
		it, newItem := m.registry.ResolveItem(in.ItemID)
		if newUser {
			result.NewUsers++
		}
		if newUser || newItem {
			m.growLocked()
		}
		if newItem {
			result.NewItems++
		}

		v := binarize(in.Signal)
		m.longTerm.Add(u, it, v)
		m.shortTerm.Add(u, it, v)
		result.Applied++
	}

	m.longTerm.Normalize()
	m.shortTerm.Normalize()

	if err := m.checkDimensionsLocked(); err != nil {
		m.mu.Unlock()
		return result, m.invariantViolation("apply batch", err)
	}

	result.LongTermNNZ = m.longTerm.NNZ()
	result.ShortTermNNZ = m.shortTerm.NNZ()
	m.purgeCache()
	m.batches.Add(1)
	m.lastBatch.Store(time.Now().UnixNano())

	if !m.config.PersistOnBatch || m.store == nil {
		m.mu.Unlock()
		result.Duration = time.Since(start)
		m.logBatch(result)
		return result, nil
	}

	snap := m.snapshotLocked()
	m.persistMu.Lock()
	m.mu.Unlock()
	err := m.writeSnapshot(ctx, snap, m.config.Locations)
	m.persistMu.Unlock()

	result.Duration = time.Since(start)
	if err != nil {
		m.logger.Error().Err(err).Msg("persisting batch failed")
		return result, err
	}
	result.Persisted = true
	m.lastSave.Store(time.Now().UnixNano())
	m.logBatch(result)
	return result, nil
}

func binarize(signal float64) float64 {
	if signal != 0 {
		return 1
	}
	return 0
}

// growLocked resizes both matrices to the registry dimensions.
func (m *Model) growLocked() {
	users, items := m.registry.Users(), m.registry.Items()
	m.longTerm.Grow(users, items)
	m.shortTerm.Grow(users, items)
}

func (m *Model) checkDimensionsLocked() error {
	users, items := m.registry.Users(), m.registry.Items()
	for _, h := range []struct {
		name   Horizon
		matrix *Matrix
	}{
		{HorizonLongTerm, m.longTerm},
		{HorizonShortTerm, m.shortTerm},
	} {
		rows, cols := h.matrix.Dims()
		if rows != users || cols != items {
			return fmt.Errorf("%w: %s matrix is %dx%d, registry has %d users and %d items",
				ErrDimensionMismatch, h.name, rows, cols, users, items)
		}
	}
	return nil
}

func (m *Model) invariantViolation(op string, err error) error {
	m.logger.Error().Err(err).Str("op", op).Msg("model invariant violated; state not persisted")
	if m.config.StrictInvariants {
		panic(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (m *Model) logBatch(r BatchResult) {
	m.logger.Info().
		Int("applied", r.Applied).
		Int("skipped", r.Skipped).
		Int("new_users", r.NewUsers).
		Int("new_items", r.NewItems).
		Int("long_term_nnz", r.LongTermNNZ).
		Int("short_term_nnz", r.ShortTermNNZ).
		Bool("persisted", r.Persisted).
		Dur("duration", r.Duration).
		Msg("batch applied")
}

// Recall returns the top-k long-term and short-term items for userID.
// Unknown users and non-positive topK produce two empty lists.
func (m *Model) Recall(ctx context.Context, userID string, topK int) Result {
	res, _ := m.Lookup(ctx, userID, topK)
	return res
}

// Lookup is Recall that also reports whether userID was in the registry
// when the result was computed.
func (m *Model) Lookup(_ context.Context, userID string, topK int) (Result, bool) {
	if topK <= 0 {
		return emptyResult(), m.Known(userID)
	}

	key := cacheKey(userID, topK)
	if m.cache != nil {
		// Only known users are cached.
		if res, ok := m.cache.Get(key); ok {
			m.cacheHits.Add(1)
			metrics.RecordCacheLookup(true)
			return cloneResult(res), true
		}
		m.cacheMisses.Add(1)
		metrics.RecordCacheLookup(false)
	}

	m.mu.RLock()
	res, known := m.recallLocked(userID, topK)
	// Populate while holding the read lock so a concurrent purge cannot be
	// overtaken by a stale entry.
	if known && m.cache != nil {
		m.cache.Add(key, res)
	}
	m.mu.RUnlock()

	return cloneResult(res), known
}

// Known reports whether userID is in the registry.
func (m *Model) Known(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.registry.UserIndex(userID)
	return ok
}

func (m *Model) recallLocked(userID string, k int) (Result, bool) {
	u, ok := m.registry.UserIndex(userID)
	if !ok {
		return emptyResult(), false
	}

	items := m.registry.Items()
	longRow := m.longTerm.rows[u]
	shortRow := m.shortTerm.rows[u]

	res := emptyResult()
	inLong := make(map[int]struct{}, k)
	for _, c := range topK(longRow, items, k) {
		if longRow[c] > 0 {
			continue
		}
		inLong[c] = struct{}{}
		res.LongTerm = append(res.LongTerm, m.registry.Item(c))
	}
	for _, c := range topK(shortRow, items, k) {
		if _, dup := inLong[c]; dup {
			continue
		}
		res.ShortTerm = append(res.ShortTerm, m.registry.Item(c))
	}
	return res, true
}

func cacheKey(userID string, k int) string {
	return strconv.Itoa(k) + "|" + userID
}

func cloneResult(r Result) Result {
	return Result{
		LongTerm:  append(make([]string, 0, len(r.LongTerm)), r.LongTerm...),
		ShortTerm: append(make([]string, 0, len(r.ShortTerm)), r.ShortTerm...),
	}
}

func (m *Model) purgeCache() {
	if m.cache != nil {
		m.cache.Purge()
	}
}

// Stats returns a point-in-time view of the model.
func (m *Model) Stats() Stats {
	m.mu.RLock()
	s := Stats{
		Users:        m.registry.Users(),
		Items:        m.registry.Items(),
		LongTermNNZ:  m.longTerm.NNZ(),
		ShortTermNNZ: m.shortTerm.NNZ(),
	}
	m.mu.RUnlock()

	s.BatchesApplied = m.batches.Load()
	s.CacheHits = m.cacheHits.Load()
	s.CacheMisses = m.cacheMisses.Load()
	s.LastBatchAt = unixNanoTime(m.lastBatch.Load())
	s.LastSavedAt = unixNanoTime(m.lastSave.Load())
	s.LastLoadedAt = unixNanoTime(m.lastLoad.Load())
	return s
}

func unixNanoTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// Score returns the cell value for (userID, itemID) in the given horizon,
// and whether both identifiers are registered.
func (m *Model) Score(h Horizon, userID, itemID string) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, okU := m.registry.UserIndex(userID)
	it, okI := m.registry.ItemIndex(itemID)
	if !okU || !okI {
		return 0, false
	}
	if h == HorizonShortTerm {
		return m.shortTerm.At(u, it), true
	}
	return m.longTerm.At(u, it), true
}

// Snapshot is a consistent copy of the model state in persisted form.
type Snapshot struct {
	Registry  *RegistryRecord
	LongTerm  *CSR
	ShortTerm *CSR
}

// Snapshot returns a consistent copy of the current state.
func (m *Model) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Model) snapshotLocked() *Snapshot {
	return &Snapshot{
		Registry:  m.registry.Record(),
		LongTerm:  m.longTerm.ToCSR(),
		ShortTerm: m.shortTerm.ToCSR(),
	}
}

// Save writes the registry and both matrices to loc. Empty fields of loc
// fall back to the configured default locations.
func (m *Model) Save(ctx context.Context, loc Locations) error {
	if m.store == nil {
		return ErrNoStore
	}
	loc = loc.WithDefaults(m.config.Locations)
	if err := loc.validate(); err != nil {
		return err
	}

	m.mu.RLock()
	if err := m.checkDimensionsLocked(); err != nil {
		m.mu.RUnlock()
		return m.invariantViolation("save", err)
	}
	snap := m.snapshotLocked()
	m.persistMu.Lock()
	m.mu.RUnlock()
	err := m.writeSnapshot(ctx, snap, loc)
	m.persistMu.Unlock()
	if err != nil {
		return err
	}

	m.lastSave.Store(time.Now().UnixNano())
	m.logger.Info().
		Str("registry", loc.Registry).
		Str("long_term", loc.LongTerm).
		Str("short_term", loc.ShortTerm).
		Int("users", len(snap.Registry.IndexToUser)).
		Int("items", len(snap.Registry.IndexToItem)).
		Msg("model saved")
	return nil
}

func (m *Model) writeSnapshot(ctx context.Context, snap *Snapshot, loc Locations) error {
	if err := m.store.Put(ctx, loc.Registry, snap.Registry); err != nil {
		return fmt.Errorf("%w: save registry: %w", ErrStorageUnavailable, err)
	}
	if err := m.store.Put(ctx, loc.LongTerm, snap.LongTerm); err != nil {
		return fmt.Errorf("%w: save long-term matrix: %w", ErrStorageUnavailable, err)
	}
	if err := m.store.Put(ctx, loc.ShortTerm, snap.ShortTerm); err != nil {
		return fmt.Errorf("%w: save short-term matrix: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Load replaces the model state with the records at loc. Empty fields of loc
// fall back to the configured default locations.
//
// When nothing has been saved at loc the model is left unchanged and Load
// returns nil. Every record is read and validated before the in-memory
// state is replaced, so a failed Load never partially overwrites it.
func (m *Model) Load(ctx context.Context, loc Locations) error {
	if m.store == nil {
		return ErrNoStore
	}
	loc = loc.WithDefaults(m.config.Locations)
	if err := loc.validate(); err != nil {
		return err
	}

	// Exclusive for the whole read so no batch lands between read and swap.
	m.mu.Lock()
	m.persistMu.Lock()
	snap, found, err := m.readSnapshot(ctx, loc)
	m.persistMu.Unlock()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if !found {
		m.mu.Unlock()
		m.logger.Info().Str("registry", loc.Registry).Msg("no saved model found; keeping current state")
		return nil
	}

	registry, longTerm, shortTerm, err := buildState(snap)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("load: %w", err)
	}

	m.registry = registry
	m.longTerm = longTerm
	m.shortTerm = shortTerm
	m.purgeCache()
	m.mu.Unlock()

	m.lastLoad.Store(time.Now().UnixNano())
	m.logger.Info().
		Str("registry", loc.Registry).
		Int("users", registry.Users()).
		Int("items", registry.Items()).
		Int("long_term_nnz", longTerm.NNZ()).
		Int("short_term_nnz", shortTerm.NNZ()).
		Msg("model loaded")
	return nil
}

// readSnapshot fetches all three records. found is false only when none of
// them exist.
func (m *Model) readSnapshot(ctx context.Context, loc Locations) (*Snapshot, bool, error) {
	snap := &Snapshot{}
	var missing int

	var reg RegistryRecord
	switch _, err := m.store.Get(ctx, loc.Registry, &reg); {
	case errors.Is(err, storage.ErrNotFound):
		missing++
	case err != nil:
		return nil, false, fmt.Errorf("%w: load registry: %w", ErrStorageUnavailable, err)
	default:
		snap.Registry = &reg
	}

	for _, part := range []struct {
		location string
		name     string
		dst      **CSR
	}{
		{loc.LongTerm, "long-term matrix", &snap.LongTerm},
		{loc.ShortTerm, "short-term matrix", &snap.ShortTerm},
	} {
		var c CSR
		_, err := m.store.Get(ctx, part.location, &c)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			missing++
		case err != nil:
			return nil, false, fmt.Errorf("%w: load %s: %w", ErrStorageUnavailable, part.name, err)
		default:
			*part.dst = &c
		}
	}

	if missing == 3 {
		return nil, false, nil
	}
	return snap, true, nil
}

// buildState decodes a snapshot and checks that all parts agree on the
// registry dimensions. A missing matrix is rebuilt as all-zero; a matrix
// without a registry is rejected.
func buildState(snap *Snapshot) (*Registry, *Matrix, *Matrix, error) {
	if snap.Registry == nil {
		return nil, nil, nil, fmt.Errorf("%w: matrices found without a registry", ErrDimensionMismatch)
	}
	registry, err := RegistryFromRecord(snap.Registry)
	if err != nil {
		return nil, nil, nil, err
	}

	users, items := registry.Users(), registry.Items()
	decode := func(h Horizon, c *CSR) (*Matrix, error) {
		mat, err := MatrixFromCSR(c)
		if err != nil {
			return nil, fmt.Errorf("%s matrix: %w", h, err)
		}
		if c == nil {
			mat.Grow(users, items)
		}
		if rows, cols := mat.Dims(); rows != users || cols != items {
			return nil, fmt.Errorf("%w: %s matrix is %dx%d, registry has %d users and %d items",
				ErrDimensionMismatch, h, rows, cols, users, items)
		}
		return mat, nil
	}

	longTerm, err := decode(HorizonLongTerm, snap.LongTerm)
	if err != nil {
		return nil, nil, nil, err
	}
	shortTerm, err := decode(HorizonShortTerm, snap.ShortTerm)
	if err != nil {
		return nil, nil, nil, err
	}
	return registry, longTerm, shortTerm, nil
}
