package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/puntomas/panel/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DashboardCache is the part of the dashboard service the jobs drive.
type DashboardCache interface {
	Warm(ctx context.Context, token string) error
	Invalidate(ctx context.Context) error
}

// DashboardWarmupJob refreshes the cached admin dashboard with the service
// token, so the first admin request after expiry does not hit the backend.
type DashboardWarmupJob struct {
	Dashboard DashboardCache
	Token     string
	Timeout   time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewDashboardWarmupJob wires dependencies for the warmup handlers.
func NewDashboardWarmupJob(dashboard DashboardCache, token string, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Dashboard: dashboard,
		Token:     token,
		Timeout:   30 * time.Second,
		Logger:    logger,
		Metrics:   metrics,
	}
}

// Handle processes warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Dashboard == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if j.Token == "" {
		j.logger(TaskDashboardWarmup).Warn("no service token configured, skipping warmup")
		return nil
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger(TaskDashboardWarmup).With(slog.String("reason", payload.Reason))
	start := time.Now()
	warmCtx := ctx
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		warmCtx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	if err := j.Dashboard.Warm(warmCtx, j.Token); err != nil {
		logger.Error("warm dashboard", slog.Any("error", err))
		return err
	}
	j.metrics().AddWarmed("dashboard", 1)
	logger.Info("completed dashboard warmup", slog.Duration("duration", time.Since(start)))
	return nil
}

// HandleInvalidate processes invalidation tasks.
func (j *DashboardWarmupJob) HandleInvalidate(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Dashboard == nil {
		return errors.New("dashboard invalidate: handler not configured")
	}
	tracker := j.metrics().Track(TaskDashboardInvalidate)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	if err := j.Dashboard.Invalidate(ctx); err != nil {
		j.logger(TaskDashboardInvalidate).Error("invalidate dashboard", slog.Any("error", err))
		return err
	}
	j.logger(TaskDashboardInvalidate).Info("dashboard cache invalidated")
	return nil
}

func (j *DashboardWarmupJob) logger(task string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", task))
	}
	return slog.Default().With(slog.String("job", task))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
