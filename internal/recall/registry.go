// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package recall

import "fmt"

// Registry maps user and item identifiers to dense matrix indices.
// Indices are assigned in first-seen order starting at zero and never change.
//
// Registry is not safe for concurrent use; the owning Model serializes access.
type Registry struct {
	userToIndex map[string]int
	itemToIndex map[string]int
	indexToUser []string
	indexToItem []string
}

// RegistryRecord is the persisted form of a Registry.
type RegistryRecord struct {
	UserToIndex map[string]int `json:"user_to_index"`
	ItemToIndex map[string]int `json:"item_to_index"`
	IndexToUser []string       `json:"index_to_user"`
	IndexToItem []string       `json:"index_to_item"`
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		userToIndex: make(map[string]int),
		itemToIndex: make(map[string]int),
		indexToUser: make([]string, 0),
		indexToItem: make([]string, 0),
	}
}

// ResolveUser returns the row index for userID, assigning the next index if
// the user is new. created reports whether an index was assigned.
func (r *Registry) ResolveUser(userID string) (index int, created bool) {
	if idx, ok := r.userToIndex[userID]; ok {
		return idx, false
	}
	idx := len(r.indexToUser)
	r.userToIndex[userID] = idx
	r.indexToUser = append(r.indexToUser, userID)
	return idx, true
}

// ResolveItem returns the column index for itemID, assigning the next index
// if the item is new.
func (r *Registry) ResolveItem(itemID string) (index int, created bool) {
	if idx, ok := r.itemToIndex[itemID]; ok {
		return idx, false
	}
	idx := len(r.indexToItem)
	r.itemToIndex[itemID] = idx
	r.indexToItem = append(r.indexToItem, itemID)
	return idx, true
}

// UserIndex looks up a user without mutating the registry.
func (r *Registry) UserIndex(userID string) (int, bool) {
	idx, ok := r.userToIndex[userID]
	return idx, ok
}

// ItemIndex looks up an item without mutating the registry.
func (r *Registry) ItemIndex(itemID string) (int, bool) {
	idx, ok := r.itemToIndex[itemID]
	return idx, ok
}

// User returns the identifier at row index i.
func (r *Registry) User(i int) string { return r.indexToUser[i] }

// Item returns the identifier at column index i.
func (r *Registry) Item(i int) string { return r.indexToItem[i] }

// Users returns the number of registered users.
func (r *Registry) Users() int { return len(r.indexToUser) }

// Items returns the number of registered items.
func (r *Registry) Items() int { return len(r.indexToItem) }

// Record copies the registry into its persisted form.
func (r *Registry) Record() *RegistryRecord {
	rec := &RegistryRecord{
		UserToIndex: make(map[string]int, len(r.userToIndex)),
		ItemToIndex: make(map[string]int, len(r.itemToIndex)),
		IndexToUser: append([]string(nil), r.indexToUser...),
		IndexToItem: append([]string(nil), r.indexToItem...),
	}
	for k, v := range r.userToIndex {
		rec.UserToIndex[k] = v
	}
	for k, v := range r.itemToIndex {
		rec.ItemToIndex[k] = v
	}
	return rec
}

// RegistryFromRecord rebuilds a registry after checking that the forward
// maps and inverse slices describe the same dense assignment.
func RegistryFromRecord(rec *RegistryRecord) (*Registry, error) {
	if rec == nil {
		return NewRegistry(), nil
	}
	if err := checkAxis("user", rec.UserToIndex, rec.IndexToUser); err != nil {
		return nil, err
	}
	if err := checkAxis("item", rec.ItemToIndex, rec.IndexToItem); err != nil {
		return nil, err
	}
	r := &Registry{
		userToIndex: make(map[string]int, len(rec.IndexToUser)),
		itemToIndex: make(map[string]int, len(rec.IndexToItem)),
		indexToUser: append(make([]string, 0, len(rec.IndexToUser)), rec.IndexToUser...),
		indexToItem: append(make([]string, 0, len(rec.IndexToItem)), rec.IndexToItem...),
	}
	for i, id := range r.indexToUser {
		r.userToIndex[id] = i
	}
	for i, id := range r.indexToItem {
		r.itemToIndex[id] = i
	}
	return r, nil
}

func checkAxis(axis string, forward map[string]int, inverse []string) error {
	if len(forward) != len(inverse) {
		return fmt.Errorf("%w: %s registry has %d forward entries and %d inverse entries",
			ErrDimensionMismatch, axis, len(forward), len(inverse))
	}
	for i, id := range inverse {
		if idx, ok := forward[id]; !ok || idx != i {
			return fmt.Errorf("%w: %s %q at position %d maps to %d",
				ErrDimensionMismatch, axis, id, i, idx)
		}
	}
	return nil
}
