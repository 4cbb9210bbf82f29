package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opsforge/coordd/internal/application/registry"
	"github.com/opsforge/coordd/pkg/domain"
	"github.com/opsforge/coordd/pkg/ports"
	"go.uber.org/zap"
)

// WorkerCriteria narrows a worker lookup. Kind supplies the base
// capability tag; RequiredCapabilities adds further tags that must all be
// declared. Exclude skips specific instance ids.
type WorkerCriteria struct {
	Kind                 domain.TaskKind
	RequiredCapabilities []string
	Exclude              []string
}

// Filter narrows a List call. Empty fields match everything.
type Filter struct {
	AssignedTo string
	AssignedBy string
	Status     domain.TaskStatus
	Kind       domain.TaskKind
}

// Manager creates and transitions units of work. Tasks are retained for
// the process lifetime; nothing ever deletes one.
type Manager struct {
	registry *registry.Registry
	eventBus ports.EventBus
	archive  ports.TaskArchive
	metrics  ports.MetricsCollector
	logger   *zap.Logger

	mu    sync.RWMutex
	tasks map[string]*domain.Task
	order []string // creation order, drives listing

	now func() time.Time
}

// NewManager creates a new task manager.
func NewManager(
	reg *registry.Registry,
	eventBus ports.EventBus,
	archive ports.TaskArchive,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		registry: reg,
		eventBus: eventBus,
		archive:  archive,
		metrics:  metrics,
		logger:   logger,
		tasks:    make(map[string]*domain.Task),
		now:      time.Now,
	}
}

// Assign stores a new task with a generated id, pending status and fresh
// timestamps, and returns the id.
func (m *Manager) Assign(ctx context.Context, task domain.Task) (string, error) {
	task.ID = uuid.New().String()
	task.Status = domain.TaskStatusPending
	now := m.now()
	task.CreatedAt = now
	task.UpdatedAt = now

	m.mu.Lock()
	stored := task
	m.tasks[task.ID] = &stored
	m.order = append(m.order, task.ID)
	m.mu.Unlock()

	m.metrics.RecordTaskAssigned(string(task.Kind), assignedLabel(task.AssignedTo))
	m.logger.Info("task assigned",
		zap.String("task_id", task.ID),
		zap.String("kind", string(task.Kind)),
		zap.String("assigned_to", task.AssignedTo),
		zap.String("assigned_by", task.AssignedBy))

	m.publish(ctx, domain.EventTaskAssigned, task.ID, map[string]any{
		"kind":        task.Kind,
		"assigned_to": task.AssignedTo,
	})

	return task.ID, nil
}

// RequestWorker finds the first active, idle instance that declares the
// capability tag for the criteria's kind plus any extra required tags.
// Returns nil when nobody qualifies; non-assignment is a result, not an
// error, and the retry decision belongs to the caller.
func (m *Manager) RequestWorker(criteria WorkerCriteria) *domain.Instance {
	capability := criteria.Kind.RequiredCapability()

	inst := m.registry.FindAvailable(capability, criteria.Exclude)
	for inst != nil {
		if hasAll(inst, criteria.RequiredCapabilities) {
			return inst
		}
		// Keep scanning past candidates that lack an extra capability.
		criteria.Exclude = append(criteria.Exclude, inst.ID)
		inst = m.registry.FindAvailable(capability, criteria.Exclude)
	}
	return nil
}

// UpdateStatus records a status change. The forward-only lifecycle is a
// caller contract, not a data-layer rule: out-of-order updates from a
// crashed-and-restarted worker are recorded for audit, logged at Warn and
// counted.
func (m *Manager) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, metadata map[string]any) (*domain.Task, error) {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return nil, domain.NewNotFound("task", id)
	}

	prev := task.Status
	task.Status = status
	task.UpdatedAt = m.now()
	if len(metadata) > 0 {
		if task.Metadata == nil {
			task.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			task.Metadata[k] = v
		}
	}
	cp := task.Clone()
	m.mu.Unlock()

	m.metrics.RecordTaskStatusChange(string(status))
	if status.RegressesFrom(prev) {
		m.metrics.RecordTaskRegression()
		m.logger.Warn("task status moved backwards",
			zap.String("task_id", id),
			zap.String("from", string(prev)),
			zap.String("to", string(status)))
	} else {
		m.logger.Info("task status updated",
			zap.String("task_id", id),
			zap.String("from", string(prev)),
			zap.String("to", string(status)))
	}

	m.publish(ctx, domain.EventTaskUpdated, id, map[string]any{
		"from": prev,
		"to":   status,
	})

	if status.Terminal() && m.archive != nil {
		// Best-effort mirror for dashboards; the in-memory map stays
		// authoritative.
		if err := m.archive.Archive(ctx, &cp); err != nil {
			m.logger.Error("failed to archive task",
				zap.String("task_id", id),
				zap.Error(err))
		}
	}

	return &cp, nil
}

// Get returns a copy of the task, or NotFound.
func (m *Manager) Get(id string) (*domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, ok := m.tasks[id]
	if !ok {
		return nil, domain.NewNotFound("task", id)
	}
	cp := task.Clone()
	return &cp, nil
}

// List returns copies of all tasks matching the filter, in creation order.
func (m *Manager) List(filter Filter) []domain.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Task, 0, len(m.order))
	for _, id := range m.order {
		task := m.tasks[id]
		if filter.AssignedTo != "" && task.AssignedTo != filter.AssignedTo {
			continue
		}
		if filter.AssignedBy != "" && task.AssignedBy != filter.AssignedBy {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && task.Kind != filter.Kind {
			continue
		}
		out = append(out, task.Clone())
	}
	return out
}

// CountByStatus returns task counts keyed by status.
func (m *Manager) CountByStatus() map[domain.TaskStatus]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[domain.TaskStatus]int)
	for _, task := range m.tasks {
		counts[task.Status]++
	}
	return counts
}

func (m *Manager) publish(ctx context.Context, et domain.EventType, subject string, data map[string]any) {
	if m.eventBus == nil {
		return
	}
	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      et,
		Subject:   subject,
		Timestamp: m.now(),
		Data:      data,
	}
	if err := m.eventBus.Publish(ctx, "coordination.events", event); err != nil {
		m.logger.Error("failed to publish task event",
			zap.String("event_type", string(et)),
			zap.Error(err))
	}
}

func hasAll(inst *domain.Instance, tags []string) bool {
	for _, tag := range tags {
		if !inst.HasCapability(tag) {
			return false
		}
	}
	return true
}

func assignedLabel(assignedTo string) string {
	if assignedTo == "" {
		return "unassigned"
	}
	return "assigned"
}
