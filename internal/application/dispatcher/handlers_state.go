package dispatcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opsforge/coordd/internal/application/registry"
	"github.com/opsforge/coordd/internal/application/tasks"
	"github.com/opsforge/coordd/pkg/domain"
)

// StatsResult is the get_stats response: coarse counters for monitoring.
type StatsResult struct {
	Uptime    string         `json:"uptime"`
	StartedAt time.Time      `json:"started_at"`
	Instances map[string]int `json:"instances"`
	Tasks     map[string]int `json:"tasks"`
	Resources int            `json:"resources"`
}

func (d *Dispatcher) handleGetStats(ctx context.Context, params json.RawMessage) (any, error) {
	instances := make(map[string]int)
	for status, n := range d.registry.CountByStatus() {
		instances[string(status)] = n
	}
	taskCounts := make(map[string]int)
	for status, n := range d.tasks.CountByStatus() {
		taskCounts[string(status)] = n
	}

	return StatsResult{
		Uptime:    time.Since(d.startedAt).Round(time.Second).String(),
		StartedAt: d.startedAt,
		Instances: instances,
		Tasks:     taskCounts,
		Resources: d.locks.Count(),
	}, nil
}

// StateResult is the get_state debug dump: every instance, task and live
// claim.
type StateResult struct {
	Instances []domain.Instance      `json:"instances"`
	Tasks     []domain.Task          `json:"tasks"`
	Resources []domain.ResourceClaim `json:"resources"`
}

func (d *Dispatcher) handleGetState(ctx context.Context, params json.RawMessage) (any, error) {
	return StateResult{
		Instances: d.registry.List(registry.Filter{}),
		Tasks:     d.tasks.List(tasks.Filter{}),
		Resources: d.locks.List(),
	}, nil
}
