package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

type stubEnqueuer struct {
	info    *asynq.TaskInfo
	err     error
	reasons []string
}

func (s *stubEnqueuer) EnqueueLinkedRefresh(ctx context.Context, reason string) (*asynq.TaskInfo, error) {
	s.reasons = append(s.reasons, reason)
	return s.info, s.err
}

func serve(h *Handler, method, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthReportsQueueDepth(t *testing.T) {
	h := NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Active: 1, Failed: 2}}, nil, nil)
	rec := serve(h, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, queueHealth{Queue: QueueDefault, Pending: 3, Active: 1, Failed: 2}, body)
}

func TestHealthWithoutInspector(t *testing.T) {
	rec := serve(NewHandler(nil, nil, nil), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"failed":0}`, rec.Body.String())
}

func TestHealthInspectorFailure(t *testing.T) {
	rec := serve(NewHandler(stubInspector{err: errors.New("redis down")}, nil, nil), http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLinkedRefreshEndpoint(t *testing.T) {
	enq := &stubEnqueuer{info: &asynq.TaskInfo{ID: "task-1"}}
	rec := serve(NewHandler(nil, enq, nil), http.MethodPost, "/linked-refresh")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"queued","id":"task-1"}`, rec.Body.String())
	assert.Equal(t, []string{"http"}, enq.reasons)
}

func TestLinkedRefreshEndpointErrors(t *testing.T) {
	rec := serve(NewHandler(nil, nil, nil), http.MethodPost, "/linked-refresh")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = serve(NewHandler(nil, &stubEnqueuer{err: asynq.ErrDuplicateTask}, nil), http.MethodPost, "/linked-refresh")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "already queued")

	rec = serve(NewHandler(nil, &stubEnqueuer{err: errors.New("boom")}, nil), http.MethodPost, "/linked-refresh")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewWorkerRejectsBadCron(t *testing.T) {
	mr := miniredis.RunT(t)
	task, err := NewLinkedRefreshTask("cron", false)
	require.NoError(t, err)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: mr.Addr()},
		Cron:      []CronRegistration{{Spec: "not a cron", Task: task}},
	})
	assert.Error(t, err)
}

func TestWorkerRunRequiresConfig(t *testing.T) {
	var w *Worker
	assert.Error(t, w.Run(context.Background()))
}
