package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/opsforge/coordd/internal/application/memgraph"
	"github.com/opsforge/coordd/pkg/domain"
)

// MemoryCreateEntityParams is the memory.create_entity request payload.
type MemoryCreateEntityParams struct {
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	Observations []string       `json:"observations,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// MemoryEntityResult carries a single entity.
type MemoryEntityResult struct {
	Entity *domain.MemoryEntity `json:"entity"`
}

func (d *Dispatcher) handleMemoryCreateEntity(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[MemoryCreateEntityParams](params)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, domain.NewValidation("name", "required")
	}
	if p.Type == "" {
		return nil, domain.NewValidation("type", "required")
	}

	entity, err := d.memory.CreateEntity(p.Name, p.Type, p.Observations, p.Metadata)
	if err != nil {
		return nil, err
	}
	return MemoryEntityResult{Entity: entity}, nil
}

// MemoryUpdateEntityParams is the memory.update_entity request payload.
// Observations are appended; existing ones are never removed.
type MemoryUpdateEntityParams struct {
	Name         string         `json:"name"`
	Observations []string       `json:"observations,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func (d *Dispatcher) handleMemoryUpdateEntity(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[MemoryUpdateEntityParams](params)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, domain.NewValidation("name", "required")
	}

	entity, err := d.memory.UpdateEntity(p.Name, p.Observations, p.Metadata)
	if err != nil {
		return nil, err
	}
	return MemoryEntityResult{Entity: entity}, nil
}

// MemoryDeleteEntityParams is the memory.delete_entity request payload.
type MemoryDeleteEntityParams struct {
	Name string `json:"name"`
}

// MemoryDeleteEntityResult reports whether the entity existed.
type MemoryDeleteEntityResult struct {
	Deleted bool `json:"deleted"`
}

func (d *Dispatcher) handleMemoryDeleteEntity(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[MemoryDeleteEntityParams](params)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, domain.NewValidation("name", "required")
	}

	return MemoryDeleteEntityResult{Deleted: d.memory.DeleteEntity(p.Name)}, nil
}

// MemoryCreateRelationParams is the memory.create_relation request payload.
type MemoryCreateRelationParams struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Type     string         `json:"type"`
	Strength float64        `json:"strength,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MemoryRelationResult carries a single relation.
type MemoryRelationResult struct {
	Relation *domain.MemoryRelation `json:"relation"`
}

func (d *Dispatcher) handleMemoryCreateRelation(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[MemoryCreateRelationParams](params)
	if err != nil {
		return nil, err
	}
	if p.From == "" {
		return nil, domain.NewValidation("from", "required")
	}
	if p.To == "" {
		return nil, domain.NewValidation("to", "required")
	}
	if p.Type == "" {
		return nil, domain.NewValidation("type", "required")
	}

	relation, err := d.memory.CreateRelation(p.From, p.To, p.Type, p.Strength, p.Metadata)
	if err != nil {
		return nil, err
	}
	return MemoryRelationResult{Relation: relation}, nil
}

// MemorySearchParams is the memory.search request payload.
type MemorySearchParams struct {
	EntityName            string `json:"entity_name,omitempty"`
	EntityType            string `json:"entity_type,omitempty"`
	ObservationsSubstring string `json:"observations_substring,omitempty"`
	Limit                 int    `json:"limit,omitempty"`
}

func (d *Dispatcher) handleMemorySearch(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[MemorySearchParams](params)
	if err != nil {
		return nil, err
	}
	if p.Limit < 0 {
		return nil, domain.NewValidation("limit", "must not be negative")
	}

	result := d.memory.Search(memgraph.Query{
		EntityName:            p.EntityName,
		EntityType:            p.EntityType,
		ObservationsSubstring: p.ObservationsSubstring,
		Limit:                 p.Limit,
	})
	return result, nil
}
