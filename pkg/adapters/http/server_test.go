package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/canopy/pkg/adapters/memory"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/schema"
)

// stubEngine emits a fixed stream for every run.
type stubEngine struct {
	events []domain.Event
}

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) Execute(ctx context.Context, spec ports.RunSpec) <-chan domain.Event {
	ch := make(chan domain.Event)
	go func() {
		defer close(ch)
		for _, ev := range e.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (e *stubEngine) Inspect() domain.TreeInfo {
	return domain.TreeInfo{
		Name:     "stub",
		Branches: []domain.BranchInfo{{ID: "root", Root: true}},
	}
}

func (e *stubEngine) Validate() error { return nil }

func defaultEngine() *stubEngine {
	return &stubEngine{events: []domain.Event{
		domain.Status{Message: "working"},
		domain.Response{Content: "done"},
		domain.Completed{Message: "stub"},
	}}
}

func newTestHandler(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	h, err := NewServer(defaultEngine(), opts...).Handler()
	require.NoError(t, err)
	return h
}

func decodeFrames(t *testing.T, body string) []domain.Event {
	t.Helper()
	var events []domain.Event
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		ev, err := schema.Decode([]byte(strings.TrimPrefix(line, "data: ")))
		require.NoError(t, err, "every frame must be a valid envelope")
		events = append(events, ev)
	}
	return events
}

func TestRunStreamsSSE(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Run-Id"))

	events := decodeFrames(t, rec.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, domain.KindStatus, events[0].Kind())
	assert.Equal(t, domain.KindCompleted, events[2].Kind())
}

func TestRunRejectsMissingPrompt(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunRecordsStream(t *testing.T) {
	store := memory.NewStore()
	handler := newTestHandler(t, WithStore(store))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"prompt":"hi"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	runID := rec.Header().Get("X-Run-Id")
	require.NotEmpty(t, runID)
	records, err := store.List(context.Background(), runID)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestTreeSnapshot(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tree", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var info domain.TreeInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "stub", info.Name)
	require.Len(t, info.Branches, 1)
	assert.True(t, info.Branches[0].Root)
}

func TestRunHistoryEndpoints(t *testing.T) {
	t.Run("without store", func(t *testing.T) {
		handler := newTestHandler(t)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("with store", func(t *testing.T) {
		store := memory.NewStore()
		require.NoError(t, store.Append(context.Background(), domain.StepRecord{
			RunID: "run-1",
			Seq:   0,
			Event: domain.Completed{Message: "t"},
		}))
		handler := newTestHandler(t, WithStore(store))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var runs []domain.RunInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, "run-1", runs[0].RunID)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-1", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/ghost", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestValidation(t *testing.T) {
	handler := newTestHandler(t, WithRequestValidation(true))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"metadata":{}}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "body without prompt must be rejected by the schema")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
