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
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cfrecall/internal/logging"
	"github.com/tomtom215/cfrecall/internal/recall"
)

func newTestQueue(t *testing.T, capacity int) *Queue {
	t.Helper()
	q, err := NewQueue(QueueConfig{Capacity: capacity, History: 16}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}
	return q
}

func startQueue(t *testing.T, q *Queue) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = q.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func waitStatus(t *testing.T, q *Queue, id string, want string) TaskStatus {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st, ok := q.Status(id); ok && st.Status == want {
			return st
		}
		time.Sleep(2 * time.Millisecond)
	}
	st, _ := q.Status(id)
	t.Fatalf("task %s status = %q, want %q", id, st.Status, want)
	return st
}

func TestQueueRunsTasksInOrder(t *testing.T) {
	q := newTestQueue(t, 8)
	var mu sync.Mutex
	var order []int

	var ids []string
	for i := 0; i < 5; i++ {
		i := i
		id, err := q.Submit("batch", func(context.Context) (any, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		ids = append(ids, id)
	}
	startQueue(t, q)

	st := waitStatus(t, q, ids[4], StatusSucceeded)
	if st.Result != 4 {
		t.Errorf("Result = %v, want 4", st.Result)
	}
	if st.StartedAt == nil || st.FinishedAt == nil {
		t.Error("StartedAt/FinishedAt not set")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

func TestQueueFailedTask(t *testing.T) {
	q := newTestQueue(t, 4)
	startQueue(t, q)

	id, err := q.Submit("save", func(context.Context) (any, error) {
		return nil, errors.New("disk full")
	})
	if err != nil {
		t.Fatal(err)
	}
	st := waitStatus(t, q, id, StatusFailed)
	if st.Error != "disk full" {
		t.Errorf("Error = %q, want disk full", st.Error)
	}
}

func TestQueuePanicBecomesFailure(t *testing.T) {
	q := newTestQueue(t, 4)
	startQueue(t, q)

	id, _ := q.Submit("load", func(context.Context) (any, error) { panic("bad") })
	waitStatus(t, q, id, StatusFailed)

	id, _ = q.Submit("load", func(context.Context) (any, error) { return "ok", nil })
	waitStatus(t, q, id, StatusSucceeded)
}

func TestQueueRepanicsDimensionMismatch(t *testing.T) {
	q := newTestQueue(t, 1)
	defer func() {
		if r := recover(); r == nil {
			t.Error("call() did not re-panic on dimension mismatch")
		}
	}()
	_, _ = q.call(context.Background(), task{fn: func(context.Context) (any, error) {
		panic(fmt.Errorf("apply batch: %w", recall.ErrDimensionMismatch))
	}})
}

func TestQueueFull(t *testing.T) {
	q := newTestQueue(t, 1)
	noop := func(context.Context) (any, error) { return nil, nil }

	id, err := q.Submit("batch", noop)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := q.Submit("batch", noop); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Submit() error = %v, want ErrQueueFull", err)
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
	if st, ok := q.Status(id); !ok || st.Status != StatusQueued {
		t.Errorf("Status() = %+v, %v; want queued", st, ok)
	}
}

func TestQueueClosed(t *testing.T) {
	q := newTestQueue(t, 1)
	q.Close()
	if _, err := q.Submit("batch", func(context.Context) (any, error) { return nil, nil }); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Submit() error = %v, want ErrQueueClosed", err)
	}
}

func TestQueueTaskSurvivesCancellation(t *testing.T) {
	q := newTestQueue(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = q.Serve(ctx)
		close(done)
	}()

	started := make(chan struct{})
	var taskCtxErr error
	var taskID string
	id, err := q.Submit("batch", func(tctx context.Context) (any, error) {
		close(started)
		time.Sleep(20 * time.Millisecond)
		taskCtxErr = tctx.Err()
		taskID = logging.TaskIDFromContext(tctx)
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	<-started
	cancel()
	<-done

	if taskCtxErr != nil {
		t.Errorf("task context error = %v, want nil", taskCtxErr)
	}
	if taskID != id {
		t.Errorf("task id in context = %q, want %q", taskID, id)
	}
	if st, _ := q.Status(id); st.Status != StatusSucceeded {
		t.Errorf("Status = %q, want succeeded", st.Status)
	}
}

func TestQueueUnknownStatus(t *testing.T) {
	q := newTestQueue(t, 1)
	if _, ok := q.Status("missing"); ok {
		t.Error("Status(missing) ok = true")
	}
	if q.String() != "write-queue" {
		t.Errorf("String() = %q", q.String())
	}
}
