package dispatcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opsforge/coordd/internal/application/tasks"
	"github.com/opsforge/coordd/pkg/domain"
)

// AssignTaskParams is the assign_task request payload: a task minus id and
// timestamps, which the task manager generates.
type AssignTaskParams struct {
	Kind       domain.TaskKind    `json:"kind"`
	AssignedTo string             `json:"assigned_to,omitempty"`
	AssignedBy string             `json:"assigned_by,omitempty"`
	Payload    domain.TaskPayload `json:"payload,omitempty"`
	Metadata   map[string]any     `json:"metadata,omitempty"`
}

// AssignTaskResult confirms task creation.
type AssignTaskResult struct {
	TaskID   string `json:"task_id"`
	Assigned bool   `json:"assigned"`
}

func (d *Dispatcher) handleAssignTask(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[AssignTaskParams](params)
	if err != nil {
		return nil, err
	}
	if !p.Kind.Valid() {
		return nil, domain.NewValidation("kind", "must be one of develop, review, test")
	}

	id, err := d.tasks.Assign(ctx, domain.Task{
		Kind:       p.Kind,
		AssignedTo: p.AssignedTo,
		AssignedBy: p.AssignedBy,
		Payload:    p.Payload,
		Metadata:   p.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return AssignTaskResult{TaskID: id, Assigned: p.AssignedTo != ""}, nil
}

// RequestDeveloperParams is the request_developer request payload.
type RequestDeveloperParams struct {
	IssueNumber  int      `json:"issue_number"`
	Priority     string   `json:"priority,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	AssignedBy   string   `json:"assigned_by,omitempty"`
	Exclude      []string `json:"exclude,omitempty"`
}

// RequestDeveloperResult reports the created task and the worker it went
// to. AssignedTo is null when no active, idle, capable developer exists;
// the caller decides whether to retry, queue, or spawn a fresh worker.
type RequestDeveloperResult struct {
	TaskID         string     `json:"task_id"`
	AssignedTo     *string    `json:"assigned_to"`
	EstimatedStart *time.Time `json:"estimated_start,omitempty"`
}

func (d *Dispatcher) handleRequestDeveloper(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[RequestDeveloperParams](params)
	if err != nil {
		return nil, err
	}
	if p.IssueNumber <= 0 {
		return nil, domain.NewValidation("issue_number", "required and must be positive")
	}

	worker := d.tasks.RequestWorker(tasks.WorkerCriteria{
		Kind:    domain.TaskKindDevelop,
		Exclude: p.Exclude,
	})

	task := domain.Task{
		Kind:       domain.TaskKindDevelop,
		AssignedBy: p.AssignedBy,
		Payload: domain.TaskPayload{
			IssueNumber:  p.IssueNumber,
			Priority:     p.Priority,
			Requirements: p.Requirements,
		},
	}

	result := RequestDeveloperResult{}
	if worker != nil {
		task.AssignedTo = worker.ID
		result.AssignedTo = &worker.ID
		start := time.Now()
		result.EstimatedStart = &start
	}

	id, err := d.tasks.Assign(ctx, task)
	if err != nil {
		return nil, err
	}
	result.TaskID = id
	return result, nil
}

// RequestWorkerParams is the generalized request_worker payload.
type RequestWorkerParams struct {
	Kind                 domain.TaskKind `json:"kind"`
	RequiredCapabilities []string        `json:"required_capabilities,omitempty"`
	Exclude              []string        `json:"exclude,omitempty"`
}

// RequestWorkerResult names the first available match, or null.
type RequestWorkerResult struct {
	InstanceID *string `json:"instance_id"`
}

func (d *Dispatcher) handleRequestWorker(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[RequestWorkerParams](params)
	if err != nil {
		return nil, err
	}
	if !p.Kind.Valid() {
		return nil, domain.NewValidation("kind", "must be one of develop, review, test")
	}

	worker := d.tasks.RequestWorker(tasks.WorkerCriteria{
		Kind:                 p.Kind,
		RequiredCapabilities: p.RequiredCapabilities,
		Exclude:              p.Exclude,
	})
	if worker == nil {
		return RequestWorkerResult{}, nil
	}
	return RequestWorkerResult{InstanceID: &worker.ID}, nil
}

// UpdateTaskStatusParams is the update_task_status request payload.
type UpdateTaskStatusParams struct {
	TaskID   string            `json:"task_id"`
	Status   domain.TaskStatus `json:"status"`
	Metadata map[string]any    `json:"metadata,omitempty"`
}

// UpdateTaskStatusResult confirms the update.
type UpdateTaskStatusResult struct {
	Updated bool `json:"updated"`
}

func (d *Dispatcher) handleUpdateTaskStatus(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[UpdateTaskStatusParams](params)
	if err != nil {
		return nil, err
	}
	if p.TaskID == "" {
		return nil, domain.NewValidation("task_id", "required")
	}
	if !p.Status.Valid() {
		return nil, domain.NewValidation("status", "must be one of pending, in_progress, completed, failed")
	}

	if _, err := d.tasks.UpdateStatus(ctx, p.TaskID, p.Status, p.Metadata); err != nil {
		return nil, err
	}
	return UpdateTaskStatusResult{Updated: true}, nil
}

// GetTaskParams is the get_task request payload.
type GetTaskParams struct {
	TaskID string `json:"task_id"`
}

// GetTaskResult carries a single task.
type GetTaskResult struct {
	Task *domain.Task `json:"task"`
}

func (d *Dispatcher) handleGetTask(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[GetTaskParams](params)
	if err != nil {
		return nil, err
	}
	if p.TaskID == "" {
		return nil, domain.NewValidation("task_id", "required")
	}

	task, err := d.tasks.Get(p.TaskID)
	if err != nil {
		return nil, err
	}
	return GetTaskResult{Task: task}, nil
}

// ListTasksParams filters the task listing.
type ListTasksParams struct {
	AssignedTo string            `json:"assigned_to,omitempty"`
	AssignedBy string            `json:"assigned_by,omitempty"`
	Status     domain.TaskStatus `json:"status,omitempty"`
	Kind       domain.TaskKind   `json:"kind,omitempty"`
}

// ListTasksResult carries the matching tasks.
type ListTasksResult struct {
	Tasks []domain.Task `json:"tasks"`
}

func (d *Dispatcher) handleListTasks(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[ListTasksParams](params)
	if err != nil {
		return nil, err
	}
	if p.Status != "" && !p.Status.Valid() {
		return nil, domain.NewValidation("status", "unknown status")
	}
	if p.Kind != "" && !p.Kind.Valid() {
		return nil, domain.NewValidation("kind", "unknown kind")
	}

	list := d.tasks.List(tasks.Filter{
		AssignedTo: p.AssignedTo,
		AssignedBy: p.AssignedBy,
		Status:     p.Status,
		Kind:       p.Kind,
	})
	return ListTasksResult{Tasks: list}, nil
}
