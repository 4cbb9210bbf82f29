package locks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper drives the expiry sweep on a fixed interval.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewSweeper creates an expiry sweeper for the lock manager.
func NewSweeper(manager *Manager, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		manager:  manager,
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
			if n := s.manager.Sweep(context.Background()); n > 0 {
				s.logger.Info("expired claims swept", zap.Int("count", n))
			}
		}
	}
}
