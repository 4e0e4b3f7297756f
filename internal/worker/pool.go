// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

// Package worker provides the bounded read pool and the single-consumer
// write queue that sit between the HTTP boundary and the model.
package worker

import (
	"context"
	"sync/atomic"
)

// Pool bounds the number of concurrent read operations.
type Pool struct {
	sem      chan struct{}
	inFlight atomic.Int64
}

// NewPool creates a pool admitting size concurrent calls. size < 1 is 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Do runs fn once a slot is free. It returns ctx.Err() if ctx ends first.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	return fn(ctx)
}

// Size returns the slot count.
func (p *Pool) Size() int { return cap(p.sem) }

// InFlight returns the number of running calls.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }
