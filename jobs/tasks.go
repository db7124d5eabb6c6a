package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup rebuilds the cached admin dashboard.
	TaskDashboardWarmup = "panel:dashboard:warmup"
	// TaskDashboardInvalidate drops every cached dashboard report.
	TaskDashboardInvalidate = "panel:dashboard:invalidate"
)

// DashboardWarmupPayload describes why a warmup was requested.
type DashboardWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewDashboardWarmupTask constructs a warmup task.
func NewDashboardWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(DashboardWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}

// NewDashboardInvalidateTask constructs an invalidation task.
func NewDashboardInvalidateTask() *asynq.Task {
	return asynq.NewTask(TaskDashboardInvalidate, nil)
}

// Supported lists the task names that can be enqueued by name.
func Supported() []string {
	return []string{TaskDashboardWarmup, TaskDashboardInvalidate}
}

// NewTask builds a supported task by name with its default payload.
func NewTask(name string) (*asynq.Task, error) {
	switch name {
	case TaskDashboardWarmup:
		return NewDashboardWarmupTask("manual")
	case TaskDashboardInvalidate:
		return NewDashboardInvalidateTask(), nil
	}
	return nil, &UnsupportedTaskError{Name: name}
}

// UnsupportedTaskError reports an unknown task name.
type UnsupportedTaskError struct {
	Name string
}

func (e *UnsupportedTaskError) Error() string {
	return "jobs: unsupported task " + e.Name
}
