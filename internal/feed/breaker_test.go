// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubSource struct {
	calls atomic.Int32
	err   error
	batch Batch
}

func (s *stubSource) Fetch(_ context.Context, date string) (Batch, error) {
	s.calls.Add(1)
	if s.err != nil {
		return Batch{}, s.err
	}
	b := s.batch
	b.Date = date
	return b, nil
}

func TestBreakerSourcePassThrough(t *testing.T) {
	stub := &stubSource{batch: Batch{Source: "stub"}}
	b := NewBreakerSource(stub, BreakerConfig{Name: "test-pass", Timeout: time.Minute}, zerolog.Nop())

	batch, err := b.Fetch(context.Background(), "20240101")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if batch.Date != "20240101" || batch.Source != "stub" {
		t.Errorf("Fetch() = %+v", batch)
	}
	if b.State() != "closed" {
		t.Errorf("State() = %q, want closed", b.State())
	}
}

func TestBreakerSourceOpens(t *testing.T) {
	boom := errors.New("warehouse down")
	stub := &stubSource{err: boom}
	b := NewBreakerSource(stub, BreakerConfig{Name: "test-open", FailureThreshold: 2, Timeout: time.Hour}, zerolog.Nop())

	for i := 0; i < 2; i++ {
		if _, err := b.Fetch(context.Background(), "20240101"); !errors.Is(err, boom) {
			t.Fatalf("Fetch() #%d error = %v, want %v", i, err, boom)
		}
	}
	if b.State() != "open" {
		t.Fatalf("State() = %q, want open", b.State())
	}

	_, err := b.Fetch(context.Background(), "20240101")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Fetch() error = %v, want ErrSourceUnavailable", err)
	}
	if got := stub.calls.Load(); got != 2 {
		t.Errorf("source calls = %d, want 2", got)
	}
}

func TestBreakerSourceIgnoresCancellation(t *testing.T) {
	stub := &stubSource{err: context.Canceled}
	b := NewBreakerSource(stub, BreakerConfig{Name: "test-cancel", FailureThreshold: 1, Timeout: time.Hour}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		_, _ = b.Fetch(context.Background(), "20240101")
	}
	if b.State() != "closed" {
		t.Errorf("State() = %q, want closed", b.State())
	}
}
