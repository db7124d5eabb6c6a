package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/puntomas/panel/internal/jobs"
)

type fakeDashboard struct {
	warmed      []string
	invalidated int
	err         error
}

func (f *fakeDashboard) Warm(_ context.Context, token string) error {
	if f.err != nil {
		return f.err
	}
	f.warmed = append(f.warmed, token)
	return nil
}

func (f *fakeDashboard) Invalidate(context.Context) error {
	f.invalidated++
	return f.err
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func newJob(d DashboardCache, token string) *DashboardWarmupJob {
	return NewDashboardWarmupJob(d, token, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestDashboardWarmupUsesServiceToken(t *testing.T) {
	d := &fakeDashboard{}
	task, err := NewDashboardWarmupTask("cron")
	require.NoError(t, err)

	require.NoError(t, newJob(d, "svc").Handle(context.Background(), task))
	require.Equal(t, []string{"svc"}, d.warmed)
}

func TestDashboardWarmupSkipsWithoutToken(t *testing.T) {
	d := &fakeDashboard{}
	task, err := NewDashboardWarmupTask("cron")
	require.NoError(t, err)

	require.NoError(t, newJob(d, "").Handle(context.Background(), task))
	require.Empty(t, d.warmed)
}

func TestDashboardWarmupBadPayloadSkipsRetry(t *testing.T) {
	err := newJob(&fakeDashboard{}, "svc").Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDashboardWarmupPropagatesFailure(t *testing.T) {
	boom := errors.New("backend down")
	task, err := NewDashboardWarmupTask("cron")
	require.NoError(t, err)
	require.ErrorIs(t, newJob(&fakeDashboard{err: boom}, "svc").Handle(context.Background(), task), boom)
}

func TestDashboardInvalidate(t *testing.T) {
	d := &fakeDashboard{}
	require.NoError(t, newJob(d, "").HandleInvalidate(context.Background(), NewDashboardInvalidateTask()))
	require.Equal(t, 1, d.invalidated)
}

func TestNewTaskByName(t *testing.T) {
	for _, name := range Supported() {
		task, err := NewTask(name)
		require.NoError(t, err)
		require.Equal(t, name, task.Type())
	}
	_, err := NewTask("panel:unknown")
	var unsupported *UnsupportedTaskError
	require.ErrorAs(t, err, &unsupported)
}

func TestInspectQueue(t *testing.T) {
	stats, err := InspectQueue(fakeInspector{err: asynq.ErrQueueNotFound})
	require.NoError(t, err)
	require.Equal(t, QueueStats{Queue: QueueDefault}, stats)

	stats, err = InspectQueue(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1}})
	require.NoError(t, err)
	require.Equal(t, 3, stats.Pending)
	require.Equal(t, 1, stats.Retry)

	_, err = InspectQueue(fakeInspector{err: errors.New("redis down")})
	require.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 2}}, nil, nil).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body QueueStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Pending)

	r = chi.NewRouter()
	NewHandler(fakeInspector{err: errors.New("redis down")}, nil, nil).MountRoutes(r)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
