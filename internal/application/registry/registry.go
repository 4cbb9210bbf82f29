package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opsforge/coordd/pkg/domain"
	"github.com/opsforge/coordd/pkg/ports"
	"go.uber.org/zap"
)

// ClaimReleaser releases every resource claim held by an instance. The
// Resource Lock Manager implements it; the indirection keeps the registry
// free of a direct dependency on the lock store.
type ClaimReleaser interface {
	ReleaseHolder(ctx context.Context, holder string) []domain.ResourceClaim
}

// Filter narrows a List call. Empty fields match everything.
type Filter struct {
	Role   domain.InstanceRole
	Status domain.InstanceStatus
}

// Registry tracks coordination participants and their liveness.
type Registry struct {
	eventBus ports.EventBus
	metrics  ports.MetricsCollector
	releaser ClaimReleaser
	logger   *zap.Logger

	livenessTimeout time.Duration

	mu        sync.RWMutex
	instances map[string]*domain.Instance
	order     []string // registration order, drives first-available scans

	now func() time.Time
}

// New creates a new instance registry.
func New(
	eventBus ports.EventBus,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	livenessTimeout time.Duration,
) *Registry {
	return &Registry{
		eventBus:        eventBus,
		metrics:         metrics,
		logger:          logger,
		livenessTimeout: livenessTimeout,
		instances:       make(map[string]*domain.Instance),
		now:             time.Now,
	}
}

// SetClaimReleaser wires the lock manager in after construction. Both
// stores are built before either can reference the other.
func (r *Registry) SetClaimReleaser(cr ClaimReleaser) {
	r.releaser = cr
}

// LivenessTimeout returns the configured liveness window.
func (r *Registry) LivenessTimeout() time.Duration {
	return r.livenessTimeout
}

// Register inserts a new instance. Duplicate ids are rejected; there is no
// upsert.
func (r *Registry) Register(ctx context.Context, inst domain.Instance) (string, error) {
	r.mu.Lock()
	if _, exists := r.instances[inst.ID]; exists {
		r.mu.Unlock()
		return "", domain.NewAlreadyExists("instance", inst.ID)
	}

	if inst.Status == "" {
		inst.Status = domain.InstanceStatusIdle
	}
	inst.LastSeen = r.now()
	stored := inst
	r.instances[inst.ID] = &stored
	r.order = append(r.order, inst.ID)
	r.mu.Unlock()

	r.metrics.RecordInstanceRegistered(string(inst.Role))
	r.logger.Info("instance registered",
		zap.String("instance_id", inst.ID),
		zap.String("role", string(inst.Role)),
		zap.Strings("capabilities", inst.Capabilities))

	r.publish(ctx, domain.EventInstanceRegistered, inst.ID, map[string]any{
		"role":         inst.Role,
		"capabilities": inst.Capabilities,
	})

	return inst.ID, nil
}

// Heartbeat refreshes an instance's last-seen timestamp, updates its status
// and merges metadata. Unknown ids fail with NotFound.
func (r *Registry) Heartbeat(ctx context.Context, id string, status domain.InstanceStatus, metadata map[string]any) error {
	r.mu.Lock()
	inst, ok := r.instances[id]
	if !ok {
		r.mu.Unlock()
		return domain.NewNotFound("instance", id)
	}

	inst.Status = status
	inst.LastSeen = r.now()
	if len(metadata) > 0 {
		if inst.Metadata == nil {
			inst.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			inst.Metadata[k] = v
		}
	}
	r.mu.Unlock()

	r.metrics.RecordHeartbeat(string(status))
	r.publish(ctx, domain.EventInstanceHeartbeat, id, map[string]any{
		"status": status,
	})

	return nil
}

// Unregister removes an instance and releases every resource claim it
// holds. Removing an unknown id is not an error; the returned bool reports
// whether anything was removed.
func (r *Registry) Unregister(ctx context.Context, id string) bool {
	r.mu.Lock()
	_, ok := r.instances[id]
	if ok {
		delete(r.instances, id)
		for i, oid := range r.order {
			if oid == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("unregister of unknown instance", zap.String("instance_id", id))
		return false
	}

	var released []domain.ResourceClaim
	if r.releaser != nil {
		released = r.releaser.ReleaseHolder(ctx, id)
	}

	r.metrics.RecordInstanceUnregistered()
	r.logger.Info("instance unregistered",
		zap.String("instance_id", id),
		zap.Int("claims_released", len(released)))

	r.publish(ctx, domain.EventInstanceUnregistered, id, map[string]any{
		"claims_released": len(released),
	})

	return true
}

// Get returns a copy of the instance, or NotFound.
func (r *Registry) Get(id string) (*domain.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[id]
	if !ok {
		return nil, domain.NewNotFound("instance", id)
	}
	cp := inst.Clone()
	return &cp, nil
}

// List returns copies of all instances matching the filter, in
// registration order. Inactive instances are listed too; activity only
// matters for assignment eligibility.
func (r *Registry) List(filter Filter) []domain.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Instance, 0, len(r.order))
	for _, id := range r.order {
		inst := r.instances[id]
		if filter.Role != "" && inst.Role != filter.Role {
			continue
		}
		if filter.Status != "" && inst.Status != filter.Status {
			continue
		}
		out = append(out, inst.Clone())
	}
	return out
}

// FindAvailable returns the first registered instance that is active, idle
// and declares the capability, skipping excluded ids. Returns nil when no
// instance qualifies. First-available is the whole policy: no ranking, no
// load balancing.
func (r *Registry) FindAvailable(capability string, exclude []string) *domain.Instance {
	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	now := r.now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		inst := r.instances[id]
		if _, skip := excluded[id]; skip {
			continue
		}
		if inst.Status != domain.InstanceStatusIdle {
			continue
		}
		if !inst.ActiveAt(now, r.livenessTimeout) {
			continue
		}
		if capability != "" && !inst.HasCapability(capability) {
			continue
		}
		cp := inst.Clone()
		return &cp
	}
	return nil
}

// CountByStatus returns instance counts keyed by status.
func (r *Registry) CountByStatus() map[domain.InstanceStatus]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.InstanceStatus]int)
	for _, inst := range r.instances {
		counts[inst.Status]++
	}
	return counts
}

func (r *Registry) publish(ctx context.Context, et domain.EventType, subject string, data map[string]any) {
	if r.eventBus == nil {
		return
	}
	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      et,
		Subject:   subject,
		Timestamp: r.now(),
		Data:      data,
	}
	if err := r.eventBus.Publish(ctx, "coordination.events", event); err != nil {
		r.logger.Error("failed to publish registry event",
			zap.String("event_type", string(et)),
			zap.Error(err))
	}
}
