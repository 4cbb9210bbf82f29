package domain

import "time"

// TaskKind identifies the type of work a task carries.
type TaskKind string

const (
	TaskKindDevelop TaskKind = "develop"
	TaskKindReview  TaskKind = "review"
	TaskKindTest    TaskKind = "test"
)

// Valid reports whether the kind is one of the known kinds.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskKindDevelop, TaskKindReview, TaskKindTest:
		return true
	}
	return false
}

// RequiredCapability maps a task kind to the capability tag a worker must
// declare before it is eligible for assignment.
func (k TaskKind) RequiredCapability() string {
	switch k {
	case TaskKindDevelop:
		return "development"
	case TaskKindReview:
		return "code-review"
	case TaskKindTest:
		return "testing"
	}
	return ""
}

// TaskStatus is the lifecycle status of a task. The contract is forward-only
// (pending -> in_progress -> completed|failed) but the data layer records
// out-of-order updates so a crashed-and-restarted worker still leaves an
// audit trail.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Valid reports whether the status is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status is an end state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// rank orders statuses along the normal lifecycle so regressions can be
// detected. Terminal states share a rank.
func (s TaskStatus) rank() int {
	switch s {
	case TaskStatusPending:
		return 0
	case TaskStatusInProgress:
		return 1
	case TaskStatusCompleted, TaskStatusFailed:
		return 2
	}
	return -1
}

// RegressesFrom reports whether moving from prev to s walks the lifecycle
// backwards.
func (s TaskStatus) RegressesFrom(prev TaskStatus) bool {
	return s.rank() < prev.rank()
}

// Task is a unit of work tracked by the Task Manager. Tasks are never
// deleted within the process lifetime.
type Task struct {
	ID         string         `json:"id"`
	Kind       TaskKind       `json:"kind"`
	AssignedTo string         `json:"assigned_to,omitempty"`
	AssignedBy string         `json:"assigned_by,omitempty"`
	Status     TaskStatus     `json:"status"`
	Payload    TaskPayload    `json:"payload"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// TaskPayload carries kind-specific work details.
type TaskPayload struct {
	IssueNumber  int      `json:"issue_number,omitempty"`
	Priority     string   `json:"priority,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	Branch       string   `json:"branch,omitempty"`
	PullRequest  int      `json:"pull_request,omitempty"`
}
