// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package recall

import "time"

// Horizon names one of the two scoring tracks.
type Horizon string

const (
	HorizonLongTerm  Horizon = "long_term"
	HorizonShortTerm Horizon = "short_term"
)

// Interaction is a single (user, item, signal) event from the feed.
type Interaction struct {
	UserID string  `json:"user_id"`
	ItemID string  `json:"item_id"`
	Signal float64 `json:"interest_action"`
}

// Result is the output of Recall. Both slices are non-nil.
type Result struct {
	LongTerm  []string `json:"long_term_recall"`
	ShortTerm []string `json:"short_term_recall"`
}

func emptyResult() Result {
	return Result{LongTerm: []string{}, ShortTerm: []string{}}
}

// BatchResult summarizes one ApplyBatch call.
type BatchResult struct {
	Applied      int           `json:"applied"`
	Skipped      int           `json:"skipped"`
	NewUsers     int           `json:"new_users"`
	NewItems     int           `json:"new_items"`
	Persisted    bool          `json:"persisted"`
	Duration     time.Duration `json:"duration"`
	LongTermNNZ  int           `json:"long_term_nnz"`
	ShortTermNNZ int           `json:"short_term_nnz"`
}

// Stats is a point-in-time view of the model.
type Stats struct {
	Users          int       `json:"users"`
	Items          int       `json:"items"`
	LongTermNNZ    int       `json:"long_term_nnz"`
	ShortTermNNZ   int       `json:"short_term_nnz"`
	BatchesApplied int64     `json:"batches_applied"`
	LastBatchAt    time.Time `json:"last_batch_at,omitempty"`
	LastSavedAt    time.Time `json:"last_saved_at,omitempty"`
	LastLoadedAt   time.Time `json:"last_loaded_at,omitempty"`
	CacheHits      int64     `json:"cache_hits"`
	CacheMisses    int64     `json:"cache_misses"`
}
