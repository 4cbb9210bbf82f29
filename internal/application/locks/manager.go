package locks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opsforge/coordd/pkg/domain"
	"github.com/opsforge/coordd/pkg/ports"
	"go.uber.org/zap"
)

// resourceKey addresses a lockable resource.
type resourceKey struct {
	Kind     domain.ResourceKind
	Resource string
}

// ClaimResult is the structured outcome of a claim request. A refused claim
// is not an error; ConflictsWith names every holder standing in the way so
// the caller can retry or escalate.
type ClaimResult struct {
	Granted       bool                  `json:"claimed"`
	ConflictsWith []string              `json:"conflicts_with,omitempty"`
	Claim         *domain.ResourceClaim `json:"claim,omitempty"`
}

// Manager arbitrates exclusive access to named resources. The whole
// conflict-check-then-insert sequence runs under one mutex; the check is a
// check-then-act pattern and must never be split across lock boundaries.
type Manager struct {
	eventBus ports.EventBus
	metrics  ports.MetricsCollector
	logger   *zap.Logger

	mu     sync.Mutex
	claims map[resourceKey]map[string]*domain.ResourceClaim // holder -> claim

	now func() time.Time
}

// NewManager creates a new resource lock manager.
func NewManager(eventBus ports.EventBus, metrics ports.MetricsCollector, logger *zap.Logger) *Manager {
	return &Manager{
		eventBus: eventBus,
		metrics:  metrics,
		logger:   logger,
		claims:   make(map[resourceKey]map[string]*domain.ResourceClaim),
		now:      time.Now,
	}
}

// Claim attempts to lease (kind, resource) for holder with the given
// operation. A holder may always re-claim its own resource; the new claim
// replaces the old one. ttl of zero means no expiry.
func (m *Manager) Claim(
	ctx context.Context,
	kind domain.ResourceKind,
	resource, holder string,
	operation domain.ResourceOperation,
	ttl time.Duration,
) ClaimResult {
	key := resourceKey{Kind: kind, Resource: resource}
	now := m.now()

	m.mu.Lock()

	var conflicts []string
	for otherHolder, other := range m.claims[key] {
		if otherHolder == holder {
			continue
		}
		if other.Expired(now) {
			continue
		}
		if Conflicts(operation, other.Operation) {
			conflicts = append(conflicts, otherHolder)
		}
	}

	if len(conflicts) > 0 {
		m.mu.Unlock()
		sort.Strings(conflicts)

		m.metrics.RecordClaimRefused(string(kind), string(operation))
		m.logger.Info("resource claim refused",
			zap.String("kind", string(kind)),
			zap.String("resource", resource),
			zap.String("holder", holder),
			zap.String("operation", string(operation)),
			zap.Strings("conflicts_with", conflicts))

		m.publish(ctx, domain.EventClaimRefused, claimSubject(kind, resource), map[string]any{
			"holder":         holder,
			"operation":      operation,
			"conflicts_with": conflicts,
		})
		return ClaimResult{Granted: false, ConflictsWith: conflicts}
	}

	claim := &domain.ResourceClaim{
		ID:        uuid.New().String(),
		Kind:      kind,
		Resource:  resource,
		Holder:    holder,
		Operation: operation,
		ClaimedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		claim.ExpiresAt = &expires
	}

	if m.claims[key] == nil {
		m.claims[key] = make(map[string]*domain.ResourceClaim)
	}
	m.claims[key][holder] = claim
	m.mu.Unlock()

	m.metrics.RecordClaimGranted(string(kind), string(operation))
	m.refreshGauge()
	m.logger.Info("resource claim granted",
		zap.String("kind", string(kind)),
		zap.String("resource", resource),
		zap.String("holder", holder),
		zap.String("operation", string(operation)))

	m.publish(ctx, domain.EventClaimGranted, claimSubject(kind, resource), map[string]any{
		"holder":    holder,
		"operation": operation,
	})

	cp := *claim
	return ClaimResult{Granted: true, Claim: &cp}
}

// Release removes the claim held by holder on (kind, resource). The
// returned bool reports whether a claim was actually removed.
func (m *Manager) Release(ctx context.Context, kind domain.ResourceKind, resource, holder string) bool {
	key := resourceKey{Kind: kind, Resource: resource}

	m.mu.Lock()
	holders, ok := m.claims[key]
	if ok {
		_, ok = holders[holder]
		if ok {
			delete(holders, holder)
			if len(holders) == 0 {
				delete(m.claims, key)
			}
		}
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	m.metrics.RecordClaimReleased(string(kind))
	m.refreshGauge()
	m.logger.Info("resource claim released",
		zap.String("kind", string(kind)),
		zap.String("resource", resource),
		zap.String("holder", holder))

	m.publish(ctx, domain.EventClaimReleased, claimSubject(kind, resource), map[string]any{
		"holder": holder,
	})
	return true
}

// ReleaseHolder removes every claim held by the instance in one pass and
// returns the released claims. The registry calls this on unregistration.
func (m *Manager) ReleaseHolder(ctx context.Context, holder string) []domain.ResourceClaim {
	m.mu.Lock()
	var released []domain.ResourceClaim
	for key, holders := range m.claims {
		if claim, ok := holders[holder]; ok {
			released = append(released, *claim)
			delete(holders, holder)
			if len(holders) == 0 {
				delete(m.claims, key)
			}
		}
	}
	m.mu.Unlock()

	for _, claim := range released {
		m.metrics.RecordClaimReleased(string(claim.Kind))
		m.publish(ctx, domain.EventClaimReleased, claimSubject(claim.Kind, claim.Resource), map[string]any{
			"holder": holder,
			"reason": "unregistered",
		})
	}
	if len(released) > 0 {
		m.refreshGauge()
		m.logger.Info("released all claims for holder",
			zap.String("holder", holder),
			zap.Int("count", len(released)))
	}
	return released
}

// Sweep removes claims past their expiry and returns how many were
// dropped. Expired claims are also ignored inline during conflict scans,
// so the sweep is housekeeping, not correctness.
func (m *Manager) Sweep(ctx context.Context) int {
	now := m.now()

	m.mu.Lock()
	var expired []domain.ResourceClaim
	for key, holders := range m.claims {
		for holder, claim := range holders {
			if claim.Expired(now) {
				expired = append(expired, *claim)
				delete(holders, holder)
			}
		}
		if len(holders) == 0 {
			delete(m.claims, key)
		}
	}
	m.mu.Unlock()

	for _, claim := range expired {
		m.logger.Info("resource claim expired",
			zap.String("kind", string(claim.Kind)),
			zap.String("resource", claim.Resource),
			zap.String("holder", claim.Holder))
		m.publish(ctx, domain.EventClaimExpired, claimSubject(claim.Kind, claim.Resource), map[string]any{
			"holder": claim.Holder,
		})
	}
	if len(expired) > 0 {
		m.refreshGauge()
	}
	return len(expired)
}

// List returns copies of all live claims.
func (m *Manager) List() []domain.ResourceClaim {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.ResourceClaim
	for _, holders := range m.claims {
		for _, claim := range holders {
			if claim.Expired(now) {
				continue
			}
			out = append(out, *claim)
		}
	}
	return out
}

// Count returns the number of live claims.
func (m *Manager) Count() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, holders := range m.claims {
		for _, claim := range holders {
			if !claim.Expired(now) {
				n++
			}
		}
	}
	return n
}

func (m *Manager) refreshGauge() {
	m.metrics.SetActiveClaims(m.Count())
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
		m.logger.Error("failed to publish lock event",
			zap.String("event_type", string(et)),
			zap.Error(err))
	}
}

func claimSubject(kind domain.ResourceKind, resource string) string {
	return string(kind) + ":" + resource
}
