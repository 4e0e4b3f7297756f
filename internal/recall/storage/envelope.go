// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package storage

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// Metadata describes a stored record.
type Metadata struct {
	// Location is where the record was stored.
	Location string `json:"location"`

	// SavedAt is when the record was written.
	SavedAt time.Time `json:"saved_at"`

	// Checksum is the SHA-256 of the uncompressed gob bytes.
	Checksum string `json:"checksum"`

	// RawBytes is the uncompressed record size.
	RawBytes int64 `json:"raw_bytes"`

	// SizeBytes is the compressed record size.
	SizeBytes int64 `json:"size_bytes"`
}

// envelope is the on-disk and in-database format for every record.
type envelope struct {
	Metadata       Metadata
	CompressedData []byte
}

func encodeEnvelope(location string, v any) ([]byte, *Metadata, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(v); err != nil {
		return nil, nil, fmt.Errorf("encode record: %w", err)
	}

	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, nil, fmt.Errorf("compress record: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, nil, fmt.Errorf("finalize compression: %w", err)
	}

	env := envelope{
		Metadata: Metadata{
			Location:  location,
			SavedAt:   time.Now().UTC(),
			Checksum:  hex.EncodeToString(hash[:]),
			RawBytes:  int64(raw.Len()),
			SizeBytes: int64(compressed.Len()),
		},
		CompressedData: compressed.Bytes(),
	}

	var out bytes.Buffer
	if err := gob.NewEncoder(&out).Encode(env); err != nil {
		return nil, nil, fmt.Errorf("encode envelope: %w", err)
	}
	return out.Bytes(), &env.Metadata, nil
}

func decodeEnvelope(r io.Reader, target any) (*Metadata, error) {
	var env envelope
	if err := gob.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(env.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress record: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != env.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", env.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &env.Metadata, nil
}
