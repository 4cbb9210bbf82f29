package memory

import (
	"context"
	"sync"

	"github.com/opsforge/coordd/pkg/domain"
)

// InMemoryTaskArchive implements TaskArchive using an in-memory map.
// This is for testing purposes only.
type InMemoryTaskArchive struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

// NewInMemoryTaskArchive creates a new in-memory task archive.
func NewInMemoryTaskArchive() *InMemoryTaskArchive {
	return &InMemoryTaskArchive{
		tasks: make(map[string]*domain.Task),
	}
}

// Archive stores a copy of the task.
func (a *InMemoryTaskArchive) Archive(ctx context.Context, task *domain.Task) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cp := *task
	a.tasks[task.ID] = &cp
	return nil
}

// Get retrieves an archived task, or NotFound.
func (a *InMemoryTaskArchive) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	task, ok := a.tasks[taskID]
	if !ok {
		return nil, domain.NewNotFound("archived task", taskID)
	}
	cp := *task
	return &cp, nil
}

// List returns all archived task ids.
func (a *InMemoryTaskArchive) List(ctx context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.tasks))
	for id := range a.tasks {
		ids = append(ids, id)
	}
	return ids, nil
}

// Close is a no-op for the in-memory archive.
func (a *InMemoryTaskArchive) Close() error {
	return nil
}
