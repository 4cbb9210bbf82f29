package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opsforge/coordd/pkg/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TaskArchive mirrors terminal tasks into Redis with a TTL so external
// dashboards can query them without touching the coordination authority.
// The mirror is best-effort and never read back for recovery.
type TaskArchive struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewTaskArchive creates a new Redis task archive.
func NewTaskArchive(client *redis.Client, ttl time.Duration, logger *zap.Logger) *TaskArchive {
	return &TaskArchive{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Archive writes the task as JSON with the configured TTL.
func (a *TaskArchive) Archive(ctx context.Context, task *domain.Task) error {
	key := getTaskKey(task.ID)

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := a.client.Set(ctx, key, data, a.ttl).Err(); err != nil {
		return fmt.Errorf("failed to archive task: %w", err)
	}

	a.logger.Debug("task archived",
		zap.String("task_id", task.ID),
		zap.String("status", string(task.Status)))
	return nil
}

// Get retrieves an archived task.
func (a *TaskArchive) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	key := getTaskKey(taskID)

	data, err := a.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.NewNotFound("archived task", taskID)
		}
		return nil, fmt.Errorf("failed to get archived task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

// List returns all archived task ids.
func (a *TaskArchive) List(ctx context.Context) ([]string, error) {
	pattern := "coordd:task:*"

	var cursor uint64
	var ids []string

	for {
		batch, next, err := a.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
		for _, key := range batch {
			ids = append(ids, key[len("coordd:task:"):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return ids, nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (a *TaskArchive) Close() error {
	return nil
}

func getTaskKey(taskID string) string {
	return "coordd:task:" + taskID
}
