package memgraph

import (
	"strings"
	"sync"
	"time"

	"github.com/opsforge/coordd/pkg/domain"
	"go.uber.org/zap"
)

// Query narrows a Search call. Empty fields match everything. All text
// matching is case-insensitive substring matching; Limit of zero means
// unbounded.
type Query struct {
	EntityName            string
	EntityType            string
	ObservationsSubstring string
	Limit                 int
}

// Result carries matching entities plus every relation whose endpoints are
// both inside the entity result set.
type Result struct {
	Entities  []domain.MemoryEntity   `json:"entities"`
	Relations []domain.MemoryRelation `json:"relations"`
}

// Store is a small entity/relation knowledge base, independent of tasks
// and instances.
type Store struct {
	logger *zap.Logger

	mu        sync.RWMutex
	entities  map[string]*domain.MemoryEntity
	order     []string // creation order, drives listing and search
	relations []*domain.MemoryRelation

	now func() time.Time
}

// NewStore creates an empty memory graph store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		logger:   logger,
		entities: make(map[string]*domain.MemoryEntity),
		now:      time.Now,
	}
}

// CreateEntity inserts a new named fact record. Taken names fail with
// AlreadyExists.
func (s *Store) CreateEntity(name, entityType string, observations []string, metadata map[string]any) (*domain.MemoryEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entities[name]; exists {
		return nil, domain.NewAlreadyExists("entity", name)
	}

	now := s.now()
	entity := &domain.MemoryEntity{
		Name:         name,
		Type:         entityType,
		Observations: append([]string(nil), observations...),
		Metadata:     copyMetadata(metadata),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.entities[name] = entity
	s.order = append(s.order, name)

	s.logger.Debug("memory entity created",
		zap.String("name", name),
		zap.String("type", entityType),
		zap.Int("observations", len(observations)))

	cp := entity.Clone()
	return &cp, nil
}

// UpdateEntity appends observations (existing ones are never removed),
// merges metadata and bumps the version. Absent names fail with NotFound.
func (s *Store) UpdateEntity(name string, observations []string, metadata map[string]any) (*domain.MemoryEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[name]
	if !ok {
		return nil, domain.NewNotFound("entity", name)
	}

	entity.Observations = append(entity.Observations, observations...)
	if len(metadata) > 0 {
		if entity.Metadata == nil {
			entity.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			entity.Metadata[k] = v
		}
	}
	entity.Version++
	entity.UpdatedAt = s.now()

	cp := entity.Clone()
	return &cp, nil
}

// DeleteEntity removes the entity and cascades removal of every relation
// that references it as source or target. The returned bool reports
// whether anything was removed.
func (s *Store) DeleteEntity(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[name]; !ok {
		return false
	}
	delete(s.entities, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	kept := s.relations[:0]
	removed := 0
	for _, rel := range s.relations {
		if rel.Touches(name) {
			removed++
			continue
		}
		kept = append(kept, rel)
	}
	s.relations = kept

	s.logger.Debug("memory entity deleted",
		zap.String("name", name),
		zap.Int("relations_removed", removed))
	return true
}

// CreateRelation adds a directed, typed edge. Both endpoints must exist.
func (s *Store) CreateRelation(from, to, relType string, strength float64, metadata map[string]any) (*domain.MemoryRelation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[from]; !ok {
		return nil, domain.NewNotFound("entity", from)
	}
	if _, ok := s.entities[to]; !ok {
		return nil, domain.NewNotFound("entity", to)
	}

	rel := &domain.MemoryRelation{
		From:      from,
		To:        to,
		Type:      relType,
		Strength:  strength,
		Metadata:  copyMetadata(metadata),
		CreatedAt: s.now(),
	}
	s.relations = append(s.relations, rel)

	cp := rel.Clone()
	return &cp, nil
}

// Search matches entities by case-insensitive substring across name, type
// and observation text, capped at the query limit, and returns every
// relation whose endpoints are both in the matched set.
func (s *Store) Search(q Query) Result {
	nameSub := strings.ToLower(q.EntityName)
	typeSub := strings.ToLower(q.EntityType)
	obsSub := strings.ToLower(q.ObservationsSubstring)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make(map[string]struct{})
	result := Result{
		Entities:  []domain.MemoryEntity{},
		Relations: []domain.MemoryRelation{},
	}

	for _, name := range s.order {
		entity := s.entities[name]
		if nameSub != "" && !strings.Contains(strings.ToLower(entity.Name), nameSub) {
			continue
		}
		if typeSub != "" && !strings.Contains(strings.ToLower(entity.Type), typeSub) {
			continue
		}
		if obsSub != "" && !observationsContain(entity.Observations, obsSub) {
			continue
		}
		result.Entities = append(result.Entities, entity.Clone())
		matched[entity.Name] = struct{}{}
		if q.Limit > 0 && len(result.Entities) >= q.Limit {
			break
		}
	}

	for _, rel := range s.relations {
		if _, from := matched[rel.From]; !from {
			continue
		}
		if _, to := matched[rel.To]; !to {
			continue
		}
		result.Relations = append(result.Relations, rel.Clone())
	}

	return result
}

// Counts returns the number of entities and relations.
func (s *Store) Counts() (entities, relations int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities), len(s.relations)
}

func observationsContain(observations []string, sub string) bool {
	for _, obs := range observations {
		if strings.Contains(strings.ToLower(obs), sub) {
			return true
		}
	}
	return false
}

func copyMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	cp := make(map[string]any, len(metadata))
	for k, v := range metadata {
		cp[k] = v
	}
	return cp
}
