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
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cfrecall/internal/recall/storage"
)

func newTestModel(t *testing.T, store storage.Store) *Model {
	t.Helper()
	cfg := DefaultConfig()
	m, err := NewModel(cfg, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	return m
}

func newFileStore(t *testing.T) *storage.FileStore {
	t.Helper()
	s, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s
}

func mustApply(t *testing.T, m *Model, batch ...Interaction) BatchResult {
	t.Helper()
	res, err := m.ApplyBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("ApplyBatch() error = %v", err)
	}
	return res
}

func in(user, item string, signal float64) Interaction {
	return Interaction{UserID: user, ItemID: item, Signal: signal}
}

func TestNewModel_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"long-term decay zero", func(c *Config) { c.LongTermDecay = 0 }},
		{"long-term decay one", func(c *Config) { c.LongTermDecay = 1 }},
		{"short-term decay negative", func(c *Config) { c.ShortTermDecay = -0.1 }},
		{"negative cache size", func(c *Config) { c.CacheSize = -1 }},
		{"cache without ttl", func(c *Config) { c.CacheTTL = 0 }},
		{"missing location", func(c *Config) { c.Locations.LongTerm = "" }},
		{"duplicate location", func(c *Config) { c.Locations.ShortTerm = c.Locations.LongTerm }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			_, err := NewModel(cfg, nil, zerolog.Nop())
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewModel() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestModel_SingleInteractionExample(t *testing.T) {
	m := newTestModel(t, nil)
	mustApply(t, m, in("u1", "i1", 1))

	for _, h := range []Horizon{HorizonLongTerm, HorizonShortTerm} {
		if got, _ := m.Score(h, "u1", "i1"); got != 1 {
			t.Errorf("%s score = %v, want 1", h, got)
		}
	}

	got := m.Recall(context.Background(), "u1", 5)
	want := Result{LongTerm: []string{}, ShortTerm: []string{"i1"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Recall(u1, 5) = %+v, want %+v", got, want)
	}
}

func TestModel_RecallColdStart(t *testing.T) {
	m := newTestModel(t, nil)
	mustApply(t, m, in("u1", "i1", 1))

	got := m.Recall(context.Background(), "unknown_user", 10)
	if got.LongTerm == nil || got.ShortTerm == nil {
		t.Fatal("Recall() returned nil slices for a cold-start user")
	}
	if len(got.LongTerm) != 0 || len(got.ShortTerm) != 0 {
		t.Errorf("Recall(unknown_user) = %+v, want empty", got)
	}
}

func TestModel_RecallNonPositiveTopK(t *testing.T) {
	m := newTestModel(t, nil)
	mustApply(t, m, in("u1", "i1", 1), in("u2", "i2", 1))

	for _, k := range []int{0, -3} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			got := m.Recall(context.Background(), "u1", k)
			if len(got.LongTerm) != 0 || len(got.ShortTerm) != 0 {
				t.Errorf("Recall(u1, %d) = %+v, want empty", k, got)
			}
		})
	}
}

func TestModel_DecayAndDecayBeforeGrowth(t *testing.T) {
	m := newTestModel(t, nil)
	mustApply(t, m, in("u1", "i1", 1))
	mustApply(t, m, in("u2", "i2", 1))

	tests := []struct {
		h          Horizon
		user, item string
		want       float64
	}{
		{HorizonLongTerm, "u1", "i1", 0.99},
		{HorizonShortTerm, "u1", "i1", 0.9},
		{HorizonLongTerm, "u2", "i2", 1},
		{HorizonShortTerm, "u2", "i2", 1},
		{HorizonLongTerm, "u1", "i2", 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s/%s", tt.h, tt.user, tt.item), func(t *testing.T) {
			got, ok := m.Score(tt.h, tt.user, tt.item)
			if !ok {
				t.Fatal("Score() reported unknown identifiers")
			}
			if !approx(got, tt.want) {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModel_RepeatsAccumulateAndBinarize(t *testing.T) {
	m := newTestModel(t, nil)
	res := mustApply(t, m,
		in("u1", "i1", 3),
		in("u1", "i1", -2),
		in("u1", "i2", 1),
		in("u1", "i3", 0),
	)

	if res.Applied != 4 || res.NewUsers != 1 || res.NewItems != 3 {
		t.Errorf("BatchResult = %+v, want 4 applied, 1 new user, 3 new items", res)
	}

	tests := []struct {
		item string
		want float64
	}{
		{"i1", 1},
		{"i2", 0.5},
		{"i3", 0},
	}
	for _, tt := range tests {
		got, ok := m.Score(HorizonLongTerm, "u1", tt.item)
		if !ok {
			t.Errorf("item %s was not registered", tt.item)
		}
		if !approx(got, tt.want) {
			t.Errorf("Score(u1, %s) = %v, want %v", tt.item, got, tt.want)
		}
	}
}

func TestModel_SkipsMalformedRecords(t *testing.T) {
	m := newTestModel(t, nil)
	res := mustApply(t, m,
		in("", "i1", 1),
		in("u1", "", 1),
		in("u1", "i1", math.NaN()),
		in("u1", "i1", 1),
	)

	if res.Skipped != 3 || res.Applied != 1 {
		t.Errorf("BatchResult = %+v, want 3 skipped and 1 applied", res)
	}
	if s := m.Stats(); s.Users != 1 || s.Items != 1 {
		t.Errorf("Stats() = %+v, want 1 user and 1 item", s)
	}
}

func TestModel_IndexStabilityAcrossBatches(t *testing.T) {
	m := newTestModel(t, nil)
	mustApply(t, m, in("u1", "i1", 1), in("u2", "i2", 1))
	before := m.Snapshot().Registry

	mustApply(t, m, in("u3", "i3", 1), in("u2", "i1", 1), in("u1", "i4", 1))
	after := m.Snapshot().Registry

	for id, idx := range before.UserToIndex {
		if after.UserToIndex[id] != idx {
			t.Errorf("user %s moved from %d to %d", id, idx, after.UserToIndex[id])
		}
	}
	for id, idx := range before.ItemToIndex {
		if after.ItemToIndex[id] != idx {
			t.Errorf("item %s moved from %d to %d", id, idx, after.ItemToIndex[id])
		}
	}
	if !reflect.DeepEqual(after.IndexToItem, []string{"i1", "i2", "i3", "i4"}) {
		t.Errorf("IndexToItem = %v", after.IndexToItem)
	}
}

func TestModel_NormalizationBound(t *testing.T) {
	m := newTestModel(t, nil)
	batches := [][]Interaction{
		{in("u1", "i1", 1), in("u1", "i1", 1), in("u2", "i2", 1)},
		{in("u3", "i1", 1)},
		{in("u1", "i2", 0)},
		{},
	}
	for i, b := range batches {
		mustApply(t, m, b...)
		m.mu.RLock()
		for _, mat := range []*Matrix{m.longTerm, m.shortTerm} {
			if got := mat.Max(); mat.NNZ() > 0 && !approx(got, 1) {
				t.Errorf("batch %d: Max() = %v, want 1", i, got)
			}
		}
		m.mu.RUnlock()
	}
}

func TestModel_KnownPositiveFilterAndDedup(t *testing.T) {
	m := newTestModel(t, nil)
	mustApply(t, m,
		in("u1", "i1", 1),
		in("u1", "i2", 1),
		in("u2", "i3", 1),
		in("u2", "i4", 1),
	)

	got := m.Recall(context.Background(), "u1", 3)
	want := Result{
		LongTerm:  []string{"i3"},
		ShortTerm: []string{"i1", "i2"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Recall(u1, 3) = %+v, want %+v", got, want)
	}

	all := m.Recall(context.Background(), "u1", 10)
	seen := make(map[string]bool)
	for _, item := range all.LongTerm {
		if s, _ := m.Score(HorizonLongTerm, "u1", item); s > 0 {
			t.Errorf("long-term recall contains known positive %s", item)
		}
		seen[item] = true
	}
	for _, item := range all.ShortTerm {
		if seen[item] {
			t.Errorf("item %s appears in both horizons", item)
		}
	}
}

func TestModel_RecallDeterministic(t *testing.T) {
	m := newTestModel(t, nil)
	mustApply(t, m, in("u1", "i1", 1), in("u1", "i2", 1), in("u2", "i3", 1), in("u3", "i4", 1))

	ctx := context.Background()
	first := m.Recall(ctx, "u2", 4)
	for i := 0; i < 5; i++ {
		if got := m.Recall(ctx, "u2", 4); !reflect.DeepEqual(got, first) {
			t.Fatalf("Recall() call %d = %+v, want %+v", i, got, first)
		}
	}
}

func TestModel_RecallCache(t *testing.T) {
	m := newTestModel(t, nil)
	ctx := context.Background()
	mustApply(t, m, in("u1", "i1", 1), in("u2", "i2", 1))

	first := m.Recall(ctx, "u1", 5)
	_ = m.Recall(ctx, "u1", 5)
	if s := m.Stats(); s.CacheHits != 1 || s.CacheMisses != 1 {
		t.Errorf("cache hits/misses = %d/%d, want 1/1", s.CacheHits, s.CacheMisses)
	}

	// Mutation purges the cache: u1 now knows i2.
	mustApply(t, m, in("u1", "i2", 1))
	second := m.Recall(ctx, "u1", 5)
	if reflect.DeepEqual(first, second) {
		t.Errorf("Recall() after a batch returned the cached result %+v", second)
	}

	// Callers cannot mutate cached results.
	second.ShortTerm[0] = "mutated"
	if again := m.Recall(ctx, "u1", 5); again.ShortTerm[0] == "mutated" {
		t.Error("cached result was mutated through a returned slice")
	}
}

func TestModel_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	src := newTestModel(t, store)
	mustApply(t, src, in("u1", "i1", 1), in("u2", "i2", 1), in("u1", "i3", 1))
	mustApply(t, src, in("u3", "i2", 1), in("u2", "i4", 1))

	loc := Locations{Registry: "custom/indices", LongTerm: "custom/lt", ShortTerm: "custom/st"}
	if err := src.Save(ctx, loc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	dst := newTestModel(t, store)
	if err := dst.Load(ctx, loc); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !reflect.DeepEqual(dst.Snapshot(), src.Snapshot()) {
		t.Error("loaded snapshot differs from saved snapshot")
	}
	for _, u := range []string{"u1", "u2", "u3"} {
		for _, k := range []int{1, 2, 4, 10} {
			if got, want := dst.Recall(ctx, u, k), src.Recall(ctx, u, k); !reflect.DeepEqual(got, want) {
				t.Errorf("Recall(%s, %d) = %+v, want %+v", u, k, got, want)
			}
		}
	}
}

func TestModel_PersistsAfterBatch(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	src := newTestModel(t, store)
	res := mustApply(t, src, in("u1", "i1", 1))
	if !res.Persisted {
		t.Fatal("BatchResult.Persisted = false, want true")
	}

	dst := newTestModel(t, store)
	if err := dst.Load(ctx, Locations{}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !dst.Known("u1") {
		t.Error("batch was not persisted to the default locations")
	}
}

func TestModel_LoadWithoutSavedState(t *testing.T) {
	m := newTestModel(t, newFileStore(t))
	if err := m.Load(context.Background(), Locations{}); err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if s := m.Stats(); s.Users != 0 || s.Items != 0 || s.LongTermNNZ != 0 {
		t.Errorf("Stats() = %+v, want empty model", s)
	}
}

func TestModel_LoadFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	saved := newTestModel(t, store)
	mustApply(t, saved, in("u9", "i9", 1))

	if err := os.WriteFile(store.Path(DefaultLongTermLocation), []byte("garbage"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	m := newTestModel(t, nil)
	mustApply(t, m, in("u1", "i1", 1))
	before := m.Snapshot()

	m.store = store
	err := m.Load(ctx, Locations{})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("Load() error = %v, want ErrStorageUnavailable", err)
	}
	if !reflect.DeepEqual(m.Snapshot(), before) {
		t.Error("failed Load() modified the in-memory state")
	}
}

func TestModel_LoadMissingMatrix(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	saved := newTestModel(t, store)
	mustApply(t, saved, in("u1", "i1", 1), in("u2", "i2", 1))
	if err := os.Remove(store.Path(DefaultShortTermLocation)); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	m := newTestModel(t, store)
	if err := m.Load(ctx, Locations{}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	s := m.Stats()
	if s.Users != 2 || s.Items != 2 || s.ShortTermNNZ != 0 || s.LongTermNNZ != 2 {
		t.Errorf("Stats() = %+v, want 2x2 with empty short-term matrix", s)
	}
}

func TestModel_LoadMatrixWithoutRegistry(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	saved := newTestModel(t, store)
	mustApply(t, saved, in("u1", "i1", 1))
	if err := os.Remove(store.Path(DefaultRegistryLocation)); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	m := newTestModel(t, store)
	if err := m.Load(ctx, Locations{}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Load() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestModel_LoadDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	if err := store.Put(ctx, DefaultRegistryLocation, &RegistryRecord{
		UserToIndex: map[string]int{"u1": 0},
		ItemToIndex: map[string]int{"i1": 0},
		IndexToUser: []string{"u1"},
		IndexToItem: []string{"i1"},
	}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	wide := &CSR{Rows: 1, Cols: 2, IndPtr: []int{0, 1}, Indices: []int{1}, Data: []float64{1}}
	if err := store.Put(ctx, DefaultLongTermLocation, wide); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	m := newTestModel(t, store)
	if err := m.Load(ctx, Locations{}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Load() error = %v, want ErrDimensionMismatch", err)
	}
}

type failingStore struct {
	err error
}

func (f *failingStore) Put(context.Context, string, any) error { return f.err }
func (f *failingStore) Get(context.Context, string, any) (*storage.Metadata, error) {
	return nil, f.err
}
func (f *failingStore) Name() string { return "failing" }
func (f *failingStore) Close() error { return nil }

func TestModel_StorageUnavailable(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{err: errors.New("disk full")}
	m := newTestModel(t, store)

	res, err := m.ApplyBatch(ctx, []Interaction{in("u1", "i1", 1)})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("ApplyBatch() error = %v, want ErrStorageUnavailable", err)
	}
	if res.Persisted {
		t.Error("BatchResult.Persisted = true after a storage failure")
	}
	if err := m.Save(ctx, Locations{}); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Save() error = %v, want ErrStorageUnavailable", err)
	}

	before := m.Snapshot()
	if err := m.Load(ctx, Locations{}); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Load() error = %v, want ErrStorageUnavailable", err)
	}
	if !reflect.DeepEqual(m.Snapshot(), before) {
		t.Error("failed Load() modified the in-memory state")
	}
}

func TestModel_NoStore(t *testing.T) {
	m := newTestModel(t, nil)
	ctx := context.Background()

	if err := m.Save(ctx, Locations{}); !errors.Is(err, ErrNoStore) {
		t.Errorf("Save() error = %v, want ErrNoStore", err)
	}
	if err := m.Load(ctx, Locations{}); !errors.Is(err, ErrNoStore) {
		t.Errorf("Load() error = %v, want ErrNoStore", err)
	}
	if res := mustApply(t, m, in("u1", "i1", 1)); res.Persisted {
		t.Error("BatchResult.Persisted = true without a store")
	}
}

func TestModel_DimensionMismatchIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	m := newTestModel(t, store)
	mustApply(t, m, in("u1", "i1", 1))

	m.mu.Lock()
	m.longTerm.Grow(5, 5)
	m.mu.Unlock()

	loc := Locations{Registry: "bad/indices", LongTerm: "bad/lt", ShortTerm: "bad/st"}
	if err := m.Save(ctx, loc); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Save() error = %v, want ErrDimensionMismatch", err)
	}
	if _, err := os.Stat(store.Path("bad/indices")); !os.IsNotExist(err) {
		t.Error("registry written despite the dimension mismatch")
	}

	if _, err := m.ApplyBatch(ctx, []Interaction{in("u2", "i2", 1)}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("ApplyBatch() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestModel_StrictInvariantsPanics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictInvariants = true
	m, err := NewModel(cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	mustApply(t, m, in("u1", "i1", 1))
	m.shortTerm.Grow(3, 1)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("ApplyBatch() did not panic on a dimension mismatch")
		}
		if err, ok := r.(error); !ok || !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("panic value = %v, want ErrDimensionMismatch", r)
		}
	}()
	_, _ = m.ApplyBatch(context.Background(), []Interaction{in("u1", "i1", 1)})
}

func TestModel_ConcurrentBatchesAndRecalls(t *testing.T) {
	m := newTestModel(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, _ = m.ApplyBatch(ctx, []Interaction{
					in(fmt.Sprintf("u%d", i%10), fmt.Sprintf("i%d", (i+w)%15), 1),
				})
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				res := m.Recall(ctx, fmt.Sprintf("u%d", i%10), 5)
				seen := make(map[string]bool, len(res.LongTerm))
				for _, item := range res.LongTerm {
					seen[item] = true
				}
				for _, item := range res.ShortTerm {
					if seen[item] {
						t.Errorf("item %s in both horizons", item)
					}
				}
			}
		}()
	}
	wg.Wait()

	s := m.Stats()
	if s.BatchesApplied != 100 {
		t.Errorf("BatchesApplied = %d, want 100", s.BatchesApplied)
	}
	if s.Users != 10 || s.Items != 15 {
		t.Errorf("Stats() = %d users, %d items, want 10 and 15", s.Users, s.Items)
	}
}

// blockingStore pauses the first Get until release is closed.
type blockingStore struct {
	storage.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingStore) Get(ctx context.Context, location string, target any) (*storage.Metadata, error) {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.Store.Get(ctx, location, target)
}

func TestModel_LoadExcludesConcurrentBatch(t *testing.T) {
	ctx := context.Background()
	files := newFileStore(t)
	m := newTestModel(t, files)
	mustApply(t, m, in("u1", "i1", 1))

	store := &blockingStore{Store: files, entered: make(chan struct{}), release: make(chan struct{})}
	m.store = store

	loadErr := make(chan error, 1)
	go func() { loadErr <- m.Load(ctx, Locations{}) }()
	<-store.entered

	batchDone := make(chan error, 1)
	go func() {
		_, err := m.ApplyBatch(ctx, []Interaction{in("u2", "i2", 1)})
		batchDone <- err
	}()

	select {
	case <-batchDone:
		t.Fatal("ApplyBatch() completed while Load() was reading")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	if err := <-loadErr; err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := <-batchDone; err != nil {
		t.Fatalf("ApplyBatch() error = %v", err)
	}
	if !m.Known("u2") {
		t.Error("batch applied after Load() was lost")
	}
	if s := m.Stats(); s.Users != 2 {
		t.Errorf("Stats().Users = %d, want 2", s.Users)
	}
}

func TestModel_LookupReportsKnown(t *testing.T) {
	m := newTestModel(t, nil)
	ctx := context.Background()
	mustApply(t, m, in("u1", "i1", 1))

	tests := []struct {
		user      string
		topK      int
		wantKnown bool
	}{
		{"u1", 5, true},
		{"u1", 5, true}, // served from cache
		{"u1", 0, true},
		{"ghost", 5, false},
		{"ghost", 0, false},
	}
	for _, tt := range tests {
		res, known := m.Lookup(ctx, tt.user, tt.topK)
		if known != tt.wantKnown {
			t.Errorf("Lookup(%q, %d) known = %v, want %v", tt.user, tt.topK, known, tt.wantKnown)
		}
		if !reflect.DeepEqual(res, m.Recall(ctx, tt.user, tt.topK)) {
			t.Errorf("Lookup(%q, %d) result differs from Recall", tt.user, tt.topK)
		}
	}
	if s := m.Stats(); s.CacheHits == 0 {
		t.Error("expected a cache hit for the repeated lookup")
	}
}
