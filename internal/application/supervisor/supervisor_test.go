package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsforge/coordd/pkg/adapters/metrics/noop"
	"github.com/opsforge/coordd/pkg/domain"
	"go.uber.org/zap"
)

func newTestSupervisor() *Supervisor {
	return New(Config{
		DefaultTimeout:   5 * time.Second,
		TerminationGrace: 200 * time.Millisecond,
	}, nil, noop.NewCollector(), zap.NewNop())
}

func TestRunCompletes(t *testing.T) {
	s := newTestSupervisor()

	res, err := s.Run(context.Background(), domain.ProcessSpec{
		Name:    "echo-test",
		Command: "echo",
		Args:    []string{"hello"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ProcessCompleted, res.State)
	assert.False(t, res.TimedOut)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 0, *res.ExitCode)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Empty(t, s.Running())
}

func TestRunCapturesExitCode(t *testing.T) {
	s := newTestSupervisor()

	res, err := s.Run(context.Background(), domain.ProcessSpec{
		Name:    "exit-test",
		Command: "sh",
		Args:    []string{"-c", "echo oops >&2; exit 3"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ProcessCompleted, res.State)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 3, *res.ExitCode)
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestRunTimesOut(t *testing.T) {
	s := newTestSupervisor()

	start := time.Now()
	res, err := s.Run(context.Background(), domain.ProcessSpec{
		Name:    "sleep-test",
		Command: "sleep",
		Args:    []string{"30"},
		Timeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ProcessTimedOut, res.State)
	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Empty(t, s.Running())
}

func TestRunSpawnFailure(t *testing.T) {
	s := newTestSupervisor()

	// Missing binaries are an operational outcome, not an error.
	res, err := s.Run(context.Background(), domain.ProcessSpec{
		Name:    "missing-test",
		Command: "/no/such/binary",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ProcessErrored, res.State)
	assert.NotEmpty(t, res.SpawnError)
	assert.Nil(t, res.ExitCode)
}

func TestRunDuplicateName(t *testing.T) {
	s := newTestSupervisor()
	ctx := context.Background()

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = s.Run(ctx, domain.ProcessSpec{
			Name:    "dup-test",
			Command: "sleep",
			Args:    []string{"10"},
		})
	}()
	<-started

	require.Eventually(t, func() bool {
		return len(s.Running()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err := s.Run(ctx, domain.ProcessSpec{Name: "dup-test", Command: "echo"})
	assert.True(t, domain.IsAlreadyExists(err))

	s.Kill("dup-test")
}

func TestRunCancelledContext(t *testing.T) {
	s := newTestSupervisor()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res, err := s.Run(ctx, domain.ProcessSpec{
		Name:    "cancel-test",
		Command: "sleep",
		Args:    []string{"30"},
	})
	require.NoError(t, err)
	// Caller cancellation is its own terminal state, not a timeout.
	assert.Equal(t, domain.ProcessCancelled, res.State)
	assert.False(t, res.TimedOut)
	assert.Empty(t, s.Running())
}

func TestKillUnknownProcess(t *testing.T) {
	s := newTestSupervisor()
	assert.False(t, s.Kill("nobody"))
	assert.Zero(t, s.KillAll())
}

func TestKillRunningProcess(t *testing.T) {
	s := newTestSupervisor()

	done := make(chan domain.ProcessResult, 1)
	go func() {
		res, _ := s.Run(context.Background(), domain.ProcessSpec{
			Name:    "kill-test",
			Command: "sleep",
			Args:    []string{"30"},
		})
		done <- res
	}()

	require.Eventually(t, func() bool {
		return len(s.Running()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, s.Kill("kill-test"))

	select {
	case res := <-done:
		require.NotNil(t, res.ExitCode)
		assert.NotEqual(t, 0, *res.ExitCode)
	case <-time.After(5 * time.Second):
		t.Fatal("killed process never finished")
	}
}

func TestContainerArgs(t *testing.T) {
	spec := domain.ProcessSpec{
		Name:    "worker-1",
		Command: "npm",
		Args:    []string{"test"},
		Env:     map[string]string{"B": "2", "A": "1"},
		WorkDir: "/app",
		Volumes: []domain.VolumeMount{
			{Source: "/src", Target: "/app", ReadOnly: true},
		},
	}

	args := containerArgs(spec, "node:20")
	assert.Equal(t, []string{
		"run", "--rm", "--name", "worker-1",
		"-e", "A=1",
		"-e", "B=2",
		"-v", "/src:/app:ro",
		"-w", "/app",
		"node:20",
		"npm", "test",
	}, args)
}

func TestContainerArgsBareImage(t *testing.T) {
	args := containerArgs(domain.ProcessSpec{Name: "w"}, "alpine")
	assert.Equal(t, []string{"run", "--rm", "--name", "w", "alpine"}, args)
}
