package supervisor

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

// Config holds supervisor configuration.
type Config struct {
	// Runtime is the container runtime binary used by RunContainer and
	// BuildArtifact, e.g. "docker" or "podman".
	Runtime string
	// DefaultTimeout bounds runs whose spec does not set one.
	DefaultTimeout time.Duration
	// TerminationGrace is how long a process gets between SIGTERM and
	// SIGKILL.
	TerminationGrace time.Duration
}

// Supervisor spawns, monitors, times out and force-terminates external
// worker processes. Each run races process exit against a timer; nothing
// here blocks unboundedly.
type Supervisor struct {
	cfg      Config
	eventBus ports.EventBus
	metrics  ports.MetricsCollector
	logger   *zap.Logger

	mu    sync.Mutex
	procs map[string]*managedProcess
}

// New creates a new process supervisor.
func New(cfg Config, eventBus ports.EventBus, metrics ports.MetricsCollector, logger *zap.Logger) *Supervisor {
	if cfg.Runtime == "" {
		cfg.Runtime = "docker"
	}
	if cfg.TerminationGrace <= 0 {
		cfg.TerminationGrace = 5 * time.Second
	}
	return &Supervisor{
		cfg:      cfg,
		eventBus: eventBus,
		metrics:  metrics,
		logger:   logger,
		procs:    make(map[string]*managedProcess),
	}
}

// Run starts the process described by spec and blocks until it completes,
// errors at spawn, or is terminated after its timeout. Timeouts and spawn
// failures are reported in the result, not as errors; the only error Run
// returns is a duplicate process name.
func (s *Supervisor) Run(ctx context.Context, spec domain.ProcessSpec) (domain.ProcessResult, error) {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = s.cfg.DefaultTimeout
	}

	proc := newManagedProcess(spec)

	s.mu.Lock()
	if _, exists := s.procs[spec.Name]; exists {
		s.mu.Unlock()
		return domain.ProcessResult{}, domain.NewAlreadyExists("process", spec.Name)
	}
	s.procs[spec.Name] = proc
	s.mu.Unlock()
	defer s.remove(spec.Name)

	s.logger.Info("starting supervised process",
		zap.String("name", spec.Name),
		zap.String("command", spec.Command),
		zap.Strings("args", spec.Args),
		zap.Duration("timeout", timeout))

	if err := proc.start(); err != nil {
		// Spawn-level failure: binary missing, permission denied. An
		// expected operational outcome, captured in the result.
		res := proc.result()
		res.SpawnError = err.Error()
		s.logger.Error("process spawn failed",
			zap.String("name", spec.Name),
			zap.Error(err))
		s.finish(ctx, res)
		return res, nil
	}

	s.publish(ctx, domain.EventProcessStarted, spec.Name, map[string]any{
		"command": spec.Command,
		"pid":     proc.cmd.Process.Pid,
	})
	s.metrics.SetRunningProcesses(s.runningCount())

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-proc.done:
		proc.setState(domain.ProcessCompleted)

	case <-timer.C:
		s.logger.Warn("process timed out",
			zap.String("name", spec.Name),
			zap.Duration("timeout", timeout))
		proc.terminate(s.cfg.TerminationGrace)
		proc.setState(domain.ProcessTimedOut)

	case <-ctx.Done():
		s.logger.Warn("process run cancelled",
			zap.String("name", spec.Name))
		proc.terminate(s.cfg.TerminationGrace)
		proc.setState(domain.ProcessCancelled)
	}

	res := proc.result()
	s.finish(ctx, res)
	return res, nil
}

// Kill manually triggers the graceful-then-forced escalation for a named
// running process. A no-op on unknown or already finished processes.
func (s *Supervisor) Kill(name string) bool {
	s.mu.Lock()
	proc, ok := s.procs[name]
	s.mu.Unlock()
	if !ok {
		return false
	}
	if proc.currentState().Terminal() {
		return false
	}

	s.logger.Info("killing supervised process", zap.String("name", name))
	proc.terminate(s.cfg.TerminationGrace)
	return true
}

// KillAll fans Kill out over every tracked process; used during shutdown.
func (s *Supervisor) KillAll() int {
	s.mu.Lock()
	names := make([]string, 0, len(s.procs))
	for name := range s.procs {
		names = append(names, name)
	}
	s.mu.Unlock()

	killed := 0
	for _, name := range names {
		if s.Kill(name) {
			killed++
		}
	}
	if killed > 0 {
		s.logger.Info("killed all supervised processes", zap.Int("count", killed))
	}
	return killed
}

// Running returns the names of currently tracked processes.
func (s *Supervisor) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.procs))
	for name := range s.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown kills every tracked process. The supervisor holds no other
// resources.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down supervisor")
	s.KillAll()
	return nil
}

func (s *Supervisor) remove(name string) {
	s.mu.Lock()
	delete(s.procs, name)
	s.mu.Unlock()
	s.metrics.SetRunningProcesses(s.runningCount())
}

func (s *Supervisor) runningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

func (s *Supervisor) finish(ctx context.Context, res domain.ProcessResult) {
	s.metrics.RecordProcessRun(string(res.State), res.Duration)

	data := map[string]any{
		"state":     res.State,
		"timed_out": res.TimedOut,
		"duration":  res.Duration.String(),
	}
	if res.ExitCode != nil {
		data["exit_code"] = *res.ExitCode
	}
	s.publish(ctx, domain.EventProcessFinished, res.Name, data)

	s.logger.Info("supervised process finished",
		zap.String("name", res.Name),
		zap.String("state", string(res.State)),
		zap.Bool("timed_out", res.TimedOut),
		zap.Duration("duration", res.Duration))
}

func (s *Supervisor) publish(ctx context.Context, et domain.EventType, subject string, data map[string]any) {
	if s.eventBus == nil {
		return
	}
	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      et,
		Subject:   subject,
		Timestamp: time.Now(),
		Data:      data,
	}
	if err := s.eventBus.Publish(ctx, "process.events", event); err != nil {
		s.logger.Error("failed to publish process event",
			zap.String("event_type", string(et)),
			zap.Error(err))
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
