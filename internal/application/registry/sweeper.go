package registry

import (
	"context"
	"sync"
	"time"

	"github.com/opsforge/coordd/pkg/domain"
	"go.uber.org/zap"
)

// Sweeper periodically flips instances with stale heartbeats to offline and
// reports liveness counts. Stale instances stay listed; only assignment
// eligibility is affected.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewSweeper creates a liveness sweeper for the registry.
func NewSweeper(registry *Registry, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		registry: registry,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop. Calling Start twice is a no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.run()
}

// Stop halts the sweep loop.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}

// Sweep marks stale instances offline and refreshes liveness gauges. It is
// exported so callers can trigger an on-demand pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	r := s.registry
	now := r.now()

	var wentOffline []string

	r.mu.Lock()
	for _, inst := range r.instances {
		if inst.Status == domain.InstanceStatusOffline {
			continue
		}
		if !inst.ActiveAt(now, r.livenessTimeout) {
			inst.Status = domain.InstanceStatusOffline
			wentOffline = append(wentOffline, inst.ID)
		}
	}
	r.mu.Unlock()

	for _, id := range wentOffline {
		s.logger.Warn("instance went offline",
			zap.String("instance_id", id),
			zap.Duration("liveness_timeout", r.livenessTimeout))
		r.publish(ctx, domain.EventInstanceOffline, id, nil)
	}

	counts := r.CountByStatus()
	for _, status := range []domain.InstanceStatus{
		domain.InstanceStatusIdle,
		domain.InstanceStatusBusy,
		domain.InstanceStatusOffline,
	} {
		r.metrics.SetInstanceCount(string(status), counts[status])
	}

	s.logger.Debug("liveness sweep",
		zap.Int("idle", counts[domain.InstanceStatusIdle]),
		zap.Int("busy", counts[domain.InstanceStatusBusy]),
		zap.Int("offline", counts[domain.InstanceStatusOffline]))
}
