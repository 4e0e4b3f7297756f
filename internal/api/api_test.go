// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cfrecall/internal/feed"
	"github.com/tomtom215/cfrecall/internal/ingest"
	"github.com/tomtom215/cfrecall/internal/models"
	"github.com/tomtom215/cfrecall/internal/recall"
	"github.com/tomtom215/cfrecall/internal/recall/storage"
	"github.com/tomtom215/cfrecall/internal/worker"
)

type daySource map[string][]recall.Interaction

func (s daySource) Fetch(_ context.Context, date string) (feed.Batch, error) {
	return feed.Batch{Date: date, Interactions: s[date], Source: "test"}, nil
}

type testServer struct {
	handler *Handler
	router  http.Handler
	model   *recall.Model
	queue   *worker.Queue
	store   *storage.FileStore
}

type serverOpts struct {
	queueCapacity int
	noConsumer    bool
	days          daySource
}

func newTestServer(t *testing.T, opts serverOpts) *testServer {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	cfg := recall.DefaultConfig()
	cfg.PersistOnBatch = false
	model, err := recall.NewModel(cfg, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	if opts.queueCapacity == 0 {
		opts.queueCapacity = 16
	}
	queue, err := worker.NewQueue(worker.QueueConfig{Capacity: opts.queueCapacity, History: 64}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}
	if !opts.noConsumer {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			_ = queue.Serve(ctx)
			close(done)
		}()
		t.Cleanup(func() {
			cancel()
			<-done
		})
	}

	if opts.days == nil {
		opts.days = daySource{}
	}
	runner := ingest.NewRunner(model, opts.days, 0, zerolog.Nop())

	h := NewHandler(Deps{
		Model:   model,
		Runner:  runner,
		Queue:   queue,
		Pool:    worker.NewPool(4),
		LagDays: 1,
	})
	h.SetReady(true)

	router := NewRouter(h, RouterConfig{
		CORSOrigins:       []string{"*"},
		RateLimitDisabled: true,
		RequestTimeout:    5 * time.Second,
	})

	return &testServer{handler: h, router: router, model: model, queue: queue, store: store}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) form(t *testing.T, target string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) apply(t *testing.T, batch []recall.Interaction) {
	t.Helper()
	if _, err := s.model.ApplyBatch(context.Background(), batch); err != nil {
		t.Fatalf("ApplyBatch() error = %v", err)
	}
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v; body = %s", err, rec.Body.String())
	}
	return env
}

func waitTask(t *testing.T, s *testServer, id string) worker.TaskStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		st, ok := s.queue.Status(id)
		if ok && (st.Status == worker.StatusSucceeded || st.Status == worker.StatusFailed) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("task %s did not finish, last status %q", id, st.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func acceptedTask(t *testing.T, rec *httptest.ResponseRecorder) models.TaskAccepted {
	t.Helper()
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	env := decode(t, rec)
	var accepted models.TaskAccepted
	if err := json.Unmarshal(env.Data, &accepted); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if accepted.TaskID == "" {
		t.Fatal("accepted task has no id")
	}
	return accepted
}

// wantStatus stops the test when rec does not carry the expected code.
func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

func wantErrorCode(t *testing.T, env envelope, want string) {
	t.Helper()
	if env.Error == nil {
		t.Fatalf("response has no error, want code %s", want)
	}
	if env.Error.Code != want {
		t.Errorf("error code = %s, want %s", env.Error.Code, want)
	}
}

func wantSucceeded(t *testing.T, st worker.TaskStatus) {
	t.Helper()
	if st.Status != worker.StatusSucceeded {
		t.Fatalf("task status = %s (%s), want %s", st.Status, st.Error, worker.StatusSucceeded)
	}
}
