package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/opsforge/coordd/internal/application/registry"
	"github.com/opsforge/coordd/pkg/domain"
)

// RegisterParams is the register request payload: an instance minus its
// last-seen timestamp, which the registry stamps itself.
type RegisterParams struct {
	ID           string                `json:"id"`
	Role         domain.InstanceRole   `json:"role"`
	Status       domain.InstanceStatus `json:"status,omitempty"`
	Capabilities []string              `json:"capabilities,omitempty"`
	Metadata     map[string]any        `json:"metadata,omitempty"`
}

// RegisterResult confirms a registration.
type RegisterResult struct {
	Registered bool   `json:"registered"`
	InstanceID string `json:"instance_id"`
}

func (d *Dispatcher) handleRegister(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[RegisterParams](params)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, domain.NewValidation("id", "required")
	}
	if !p.Role.Valid() {
		return nil, domain.NewValidation("role", "must be one of coordinator, worker-developer, worker-reviewer, worker-tester")
	}
	if p.Status != "" && !p.Status.Valid() {
		return nil, domain.NewValidation("status", "must be one of idle, busy, offline")
	}

	id, err := d.registry.Register(ctx, domain.Instance{
		ID:           p.ID,
		Role:         p.Role,
		Status:       p.Status,
		Capabilities: p.Capabilities,
		Metadata:     p.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return RegisterResult{Registered: true, InstanceID: id}, nil
}

// HeartbeatParams is the heartbeat request payload.
type HeartbeatParams struct {
	InstanceID string                `json:"instance_id"`
	Status     domain.InstanceStatus `json:"status"`
	Metadata   map[string]any        `json:"metadata,omitempty"`
}

// HeartbeatResult acknowledges a heartbeat.
type HeartbeatResult struct {
	Acknowledged bool `json:"acknowledged"`
}

func (d *Dispatcher) handleHeartbeat(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[HeartbeatParams](params)
	if err != nil {
		return nil, err
	}
	if p.InstanceID == "" {
		return nil, domain.NewValidation("instance_id", "required")
	}
	if !p.Status.Valid() {
		return nil, domain.NewValidation("status", "must be one of idle, busy, offline")
	}

	if err := d.registry.Heartbeat(ctx, p.InstanceID, p.Status, p.Metadata); err != nil {
		return nil, err
	}
	return HeartbeatResult{Acknowledged: true}, nil
}

// UnregisterParams is the unregister request payload.
type UnregisterParams struct {
	InstanceID string `json:"instance_id"`
}

// UnregisterResult reports whether an instance was actually removed.
// Unregistering an unknown id is reported, not fatal.
type UnregisterResult struct {
	Unregistered bool `json:"unregistered"`
}

func (d *Dispatcher) handleUnregister(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[UnregisterParams](params)
	if err != nil {
		return nil, err
	}
	if p.InstanceID == "" {
		return nil, domain.NewValidation("instance_id", "required")
	}

	removed := d.registry.Unregister(ctx, p.InstanceID)
	return UnregisterResult{Unregistered: removed}, nil
}

// ListInstancesParams filters the instance listing.
type ListInstancesParams struct {
	Role   domain.InstanceRole   `json:"role,omitempty"`
	Status domain.InstanceStatus `json:"status,omitempty"`
}

// ListInstancesResult carries the matching instances.
type ListInstancesResult struct {
	Instances []domain.Instance `json:"instances"`
}

func (d *Dispatcher) handleListInstances(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[ListInstancesParams](params)
	if err != nil {
		return nil, err
	}
	if p.Role != "" && !p.Role.Valid() {
		return nil, domain.NewValidation("role", "unknown role")
	}
	if p.Status != "" && !p.Status.Valid() {
		return nil, domain.NewValidation("status", "unknown status")
	}

	instances := d.registry.List(registry.Filter{Role: p.Role, Status: p.Status})
	return ListInstancesResult{Instances: instances}, nil
}
