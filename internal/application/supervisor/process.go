package supervisor

import (
	"bytes"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/opsforge/coordd/pkg/domain"
)

// safeBuffer is a mutex-guarded buffer used as the stdout/stderr sink of a
// running process. The process writes from its own OS threads while the
// supervisor may snapshot output mid-run.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// managedProcess is one supervised external process walking the
// starting -> running -> terminating -> terminal state machine.
type managedProcess struct {
	spec      domain.ProcessSpec
	cmd       *exec.Cmd
	stdout    *safeBuffer
	stderr    *safeBuffer
	startedAt time.Time

	mu    sync.Mutex
	state domain.ProcessState

	// done is closed once Wait has returned and the exit status is final.
	done chan struct{}
}

func newManagedProcess(spec domain.ProcessSpec) *managedProcess {
	p := &managedProcess{
		spec:   spec,
		stdout: &safeBuffer{},
		stderr: &safeBuffer{},
		state:  domain.ProcessStarting,
		done:   make(chan struct{}),
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), flattenEnv(spec.Env)...)
	}
	p.cmd = cmd
	return p
}

func (p *managedProcess) setState(state domain.ProcessState) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

func (p *managedProcess) currentState() domain.ProcessState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// start spawns the process. On success it transitions to running and
// begins waiting for exit in the background.
func (p *managedProcess) start() error {
	p.startedAt = time.Now()
	if err := p.cmd.Start(); err != nil {
		p.setState(domain.ProcessErrored)
		return err
	}
	p.setState(domain.ProcessRunning)

	go func() {
		_ = p.cmd.Wait()
		close(p.done)
	}()
	return nil
}

// gracefulStop asks the process to exit (SIGTERM). Safe on an already
// finished process.
func (p *managedProcess) gracefulStop() {
	if p.cmd.Process == nil {
		return
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
}

// forceStop kills the process outright (SIGKILL). Safe on an already
// finished process.
func (p *managedProcess) forceStop() {
	if p.cmd.Process == nil {
		return
	}
	_ = p.cmd.Process.Kill()
}

// terminate runs the graceful-then-forced escalation and blocks until the
// process has exited.
func (p *managedProcess) terminate(grace time.Duration) {
	p.setState(domain.ProcessTerminating)
	p.gracefulStop()

	select {
	case <-p.done:
		return
	case <-time.After(grace):
	}

	p.forceStop()
	<-p.done
}

// result snapshots the outcome. Only meaningful once the process reached a
// terminal state.
func (p *managedProcess) result() domain.ProcessResult {
	res := domain.ProcessResult{
		Name:      p.spec.Name,
		State:     p.currentState(),
		Stdout:    p.stdout.String(),
		Stderr:    p.stderr.String(),
		TimedOut:  p.currentState() == domain.ProcessTimedOut,
		Duration:  time.Since(p.startedAt),
		StartedAt: p.startedAt,
	}
	if p.cmd.ProcessState != nil {
		code := p.cmd.ProcessState.ExitCode()
		res.ExitCode = &code
	}
	return res
}

func flattenEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, k := range sortedKeys(env) {
		out = append(out, k+"="+env[k])
	}
	return out
}
