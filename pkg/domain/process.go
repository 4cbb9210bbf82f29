package domain

import "time"

// ProcessState is the lifecycle state of a supervised process.
type ProcessState string

const (
	ProcessStarting    ProcessState = "starting"
	ProcessRunning     ProcessState = "running"
	ProcessTerminating ProcessState = "terminating"
	ProcessCompleted   ProcessState = "completed"
	ProcessTimedOut    ProcessState = "timed_out"
	ProcessCancelled   ProcessState = "cancelled"
	ProcessErrored     ProcessState = "errored"
)

// Terminal reports whether the state is an end state.
func (s ProcessState) Terminal() bool {
	return s == ProcessCompleted || s == ProcessTimedOut || s == ProcessCancelled || s == ProcessErrored
}

// VolumeMount is a host-path to container-path binding for container runs.
type VolumeMount struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	ReadOnly bool   `json:"read_only,omitempty"`
}

// ProcessSpec describes an external process the supervisor should run.
// Name must be unique among currently running processes.
type ProcessSpec struct {
	Name    string            `json:"name"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	WorkDir string            `json:"workdir,omitempty"`
	Volumes []VolumeMount     `json:"volumes,omitempty"`
	Timeout time.Duration     `json:"timeout,omitempty"`
}

// ProcessResult is the bounded outcome of a supervised run. ExitCode is nil
// when the process never spawned. A timed-out run still carries whatever
// output was captured before termination.
type ProcessResult struct {
	Name       string        `json:"name"`
	State      ProcessState  `json:"state"`
	ExitCode   *int          `json:"exit_code"`
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	TimedOut   bool          `json:"timed_out"`
	SpawnError string        `json:"spawn_error,omitempty"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
}

// BuildSpec describes a one-shot artifact build (e.g. a container image).
type BuildSpec struct {
	ContextDir string            `json:"context_dir"`
	Dockerfile string            `json:"dockerfile,omitempty"`
	Tag        string            `json:"tag"`
	BuildArgs  map[string]string `json:"build_args,omitempty"`
}
