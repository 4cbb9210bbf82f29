package ports

import (
	"context"
	"time"

	"github.com/opsforge/coordd/pkg/domain"
)

// EventHandler processes a single coordination event.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes coordination events to interested subscribers.
// Implementations: in-memory fan-out, Redis Streams.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}

// TaskArchive is a non-authoritative, best-effort mirror of terminal tasks
// kept for external dashboards. The in-memory Task Manager remains the
// single authority; the archive is never read back for recovery.
type TaskArchive interface {
	Archive(ctx context.Context, task *domain.Task) error
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}

// MetricsCollector records coordination and supervision metrics.
type MetricsCollector interface {
	RecordInstanceRegistered(role string)
	RecordInstanceUnregistered()
	RecordHeartbeat(status string)
	SetInstanceCount(status string, count int)

	RecordTaskAssigned(kind, assigned string)
	RecordTaskStatusChange(status string)
	RecordTaskRegression()

	RecordClaimGranted(kind, operation string)
	RecordClaimRefused(kind, operation string)
	RecordClaimReleased(kind string)
	SetActiveClaims(count int)

	RecordProcessRun(state string, duration time.Duration)
	SetRunningProcesses(count int)

	RecordRequest(method, outcome string)
}
