// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps each record in its own file.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a file store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Path maps a location to its file under the store root. It does not
// validate location; Put and Get reject anything that is not local.
func (s *FileStore) Path(location string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(location))
}

// resolve returns the file for location, refusing absolute paths and
// anything that climbs out of the store root.
func (s *FileStore) resolve(location string) (string, error) {
	if location == "" {
		return "", ErrEmptyLocation
	}
	if !filepath.IsLocal(filepath.FromSlash(location)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}
	return s.Path(location), nil
}

// Put writes the record through a temporary file and renames it into place.
func (s *FileStore) Put(ctx context.Context, location string, v any) error {
	path, err := s.resolve(location)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, _, err := encodeEnvelope(location, v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return fmt.Errorf("create record directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() //nolint:errcheck // temp file is gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error already being returned
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // sync error already being returned
		return fmt.Errorf("sync record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close record: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename record: %w", err)
	}
	return nil
}

// Get reads and verifies the record at location.
func (s *FileStore) Get(ctx context.Context, location string, target any) (*Metadata, error) {
	path, err := s.resolve(location)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	return decodeEnvelope(bytes.NewReader(data), target)
}

// Name implements Store.
func (s *FileStore) Name() string { return "file" }

// Close implements Store.
func (s *FileStore) Close() error { return nil }
