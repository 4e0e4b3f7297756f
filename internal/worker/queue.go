// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cfrecall/internal/logging"
	"github.com/tomtom215/cfrecall/internal/metrics"
	"github.com/tomtom215/cfrecall/internal/recall"
)

var (
	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("write queue full")

	// ErrQueueClosed is returned after Close.
	ErrQueueClosed = errors.New("write queue closed")
)

// Task states.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// TaskFunc is a unit of write work. The returned value is kept as the task result.
type TaskFunc func(ctx context.Context) (any, error)

// TaskStatus is the observable state of a submitted task.
type TaskStatus struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Result      any        `json:"result,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

type task struct {
	id   string
	kind string
	fn   TaskFunc
}

// QueueConfig sizes a Queue.
type QueueConfig struct {
	// Capacity is the number of tasks that may wait. Default: 64
	Capacity int
	// History is the number of task statuses retained. Default: 1024
	History int
}

// Queue serializes model mutations through one consumer goroutine.
// Tasks run to completion once started, even if Serve's context ends.
type Queue struct {
	tasks   chan task
	history *lru.Cache[string, TaskStatus]
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue. Call Serve to start consuming.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewQueue(cfg QueueConfig, logger zerolog.Logger) (*Queue, error) {
	if cfg.Capacity < 1 {
		cfg.Capacity = 64
	}
	if cfg.History < 1 {
		cfg.History = 1024
	}
	history, err := lru.New[string, TaskStatus](cfg.History)
	if err != nil {
		return nil, fmt.Errorf("create task history: %w", err)
	}
	return &Queue{
		tasks:   make(chan task, cfg.Capacity),
		history: history,
		logger:  logger.With().Str("component", "write-queue").Logger(),
	}, nil
}

// Submit enqueues fn and returns its task id without waiting.
func (q *Queue) Submit(kind string, fn TaskFunc) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return "", ErrQueueClosed
	}

	t := task{id: uuid.NewString(), kind: kind, fn: fn}
	q.history.Add(t.id, TaskStatus{ID: t.id, Kind: kind, Status: StatusQueued, SubmittedAt: time.Now()})

	select {
	case q.tasks <- t:
	default:
		q.history.Remove(t.id)
		metrics.RecordTask(kind, "rejected")
		return "", ErrQueueFull
	}

	metrics.QueueDepth.Set(float64(len(q.tasks)))
	q.logger.Debug().Str("task_id", t.id).Str("kind", kind).Msg("task queued")
	return t.id, nil
}

// Status returns the status of a task still held in history.
func (q *Queue) Status(id string) (TaskStatus, bool) {
	return q.history.Get(id)
}

// Len returns the number of waiting tasks.
func (q *Queue) Len() int { return len(q.tasks) }

// Close rejects further submissions. Waiting tasks are still consumed by Serve.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Serve implements suture.Service. It consumes tasks one at a time until ctx
// is canceled; a task already running is allowed to finish.
func (q *Queue) Serve(ctx context.Context) error {
	q.logger.Info().Int("capacity", cap(q.tasks)).Msg("write queue started")
	for {
		select {
		case <-ctx.Done():
			q.logger.Info().Int("pending", len(q.tasks)).Msg("write queue stopping")
			return ctx.Err()
		case t := <-q.tasks:
			metrics.QueueDepth.Set(float64(len(q.tasks)))
			q.run(ctx, t)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (q *Queue) String() string { return "write-queue" }

func (q *Queue) run(ctx context.Context, t task) {
	taskCtx := logging.ContextWithTaskID(context.WithoutCancel(ctx), t.id)

	st, ok := q.history.Get(t.id)
	if !ok {
		st = TaskStatus{ID: t.id, Kind: t.kind, SubmittedAt: time.Now()}
	}
	started := time.Now()
	st.Status = StatusRunning
	st.StartedAt = &started
	q.history.Add(t.id, st)

	result, err := q.call(taskCtx, t)

	finished := time.Now()
	st.FinishedAt = &finished
	st.Result = result
	if err != nil {
		st.Status = StatusFailed
		st.Error = err.Error()
		q.logger.Error().Err(err).Str("task_id", t.id).Str("kind", t.kind).Msg("task failed")
	} else {
		st.Status = StatusSucceeded
		q.logger.Info().Str("task_id", t.id).Str("kind", t.kind).Dur("duration", finished.Sub(started)).Msg("task finished")
	}
	q.history.Add(t.id, st)
	metrics.RecordTask(t.kind, st.Status)
}

// call runs the task, turning a panic into a failure so the consumer survives.
// Dimension invariant panics from strict mode are re-raised.
func (q *Queue) call(ctx context.Context, t task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && errors.Is(e, recall.ErrDimensionMismatch) {
				panic(r)
			}
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.fn(ctx)
}
