package dispatcher

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/opsforge/coordd/internal/application/locks"
	"github.com/opsforge/coordd/internal/application/memgraph"
	"github.com/opsforge/coordd/internal/application/registry"
	"github.com/opsforge/coordd/internal/application/tasks"
	"github.com/opsforge/coordd/pkg/domain"
	"github.com/opsforge/coordd/pkg/ports"
	"go.uber.org/zap"
)

// Request is a named coordination request with a method-specific parameter
// payload.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// handlerFunc decodes and validates its own parameter shape before
// touching any store.
type handlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Dispatcher validates and routes named coordination requests to the
// stores. It is the single entry point external collaborators use.
// Dispatch is an explicit table of typed handlers; there is no reflection.
type Dispatcher struct {
	registry *registry.Registry
	tasks    *tasks.Manager
	locks    *locks.Manager
	memory   *memgraph.Store
	metrics  ports.MetricsCollector
	logger   *zap.Logger

	startedAt time.Time
	handlers  map[string]handlerFunc
}

// New creates the dispatcher and builds its dispatch table.
func New(
	reg *registry.Registry,
	taskMgr *tasks.Manager,
	lockMgr *locks.Manager,
	memory *memgraph.Store,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) *Dispatcher {
	d := &Dispatcher{
		registry:  reg,
		tasks:     taskMgr,
		locks:     lockMgr,
		memory:    memory,
		metrics:   metrics,
		logger:    logger,
		startedAt: time.Now(),
	}

	d.handlers = map[string]handlerFunc{
		"register":       d.handleRegister,
		"heartbeat":      d.handleHeartbeat,
		"unregister":     d.handleUnregister,
		"list_instances": d.handleListInstances,

		"assign_task":        d.handleAssignTask,
		"request_developer":  d.handleRequestDeveloper,
		"request_worker":     d.handleRequestWorker,
		"update_task_status": d.handleUpdateTaskStatus,
		"get_task":           d.handleGetTask,
		"list_tasks":         d.handleListTasks,

		"claim_resource":   d.handleClaimResource,
		"release_resource": d.handleReleaseResource,

		"memory.create_entity":   d.handleMemoryCreateEntity,
		"memory.update_entity":   d.handleMemoryUpdateEntity,
		"memory.delete_entity":   d.handleMemoryDeleteEntity,
		"memory.create_relation": d.handleMemoryCreateRelation,
		"memory.search":          d.handleMemorySearch,

		"get_stats": d.handleGetStats,
		"get_state": d.handleGetState,
	}

	return d
}

// Methods returns the known request names in sorted order.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch routes a request to its handler. Unknown methods fail with
// UnknownRequestError; parameter validation happens inside the handler
// before any store write.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (any, error) {
	handler, ok := d.handlers[req.Method]
	if !ok {
		d.metrics.RecordRequest(req.Method, "unknown")
		return nil, &domain.UnknownRequestError{Method: req.Method}
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		d.metrics.RecordRequest(req.Method, "error")
		d.logger.Debug("request failed",
			zap.String("method", req.Method),
			zap.Error(err))
		return nil, err
	}

	d.metrics.RecordRequest(req.Method, "ok")
	return result, nil
}

// decode unmarshals params into a typed struct. A missing payload decodes
// as the zero value so handlers report precise field errors instead of a
// generic JSON failure.
func decode[T any](params json.RawMessage) (T, error) {
	var v T
	if len(params) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(params, &v); err != nil {
		return v, domain.NewValidation("params", err.Error())
	}
	return v, nil
}
