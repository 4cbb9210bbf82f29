package supervisor

import (
	"context"
	"os/exec"

	"github.com/opsforge/coordd/pkg/domain"
	"go.uber.org/zap"
)

// RunContainer wraps Run, translating the spec's name, env, workdir and
// volume mounts into a `docker run` style argv for the configured runtime.
// spec.Command and spec.Args become the command executed inside the
// container image.
func (s *Supervisor) RunContainer(ctx context.Context, spec domain.ProcessSpec, image string) (domain.ProcessResult, error) {
	wrapped := spec
	wrapped.Command = s.cfg.Runtime
	wrapped.Args = containerArgs(spec, image)
	wrapped.Env = nil
	wrapped.WorkDir = ""
	wrapped.Volumes = nil
	return s.Run(ctx, wrapped)
}

// containerArgs builds the runtime argv for a containerized run. Env keys
// are sorted so the argv is deterministic.
func containerArgs(spec domain.ProcessSpec, image string) []string {
	args := []string{"run", "--rm", "--name", spec.Name}
	for _, k := range sortedKeys(spec.Env) {
		args = append(args, "-e", k+"="+spec.Env[k])
	}
	for _, vol := range spec.Volumes {
		mount := vol.Source + ":" + vol.Target
		if vol.ReadOnly {
			mount += ":ro"
		}
		args = append(args, "-v", mount)
	}
	if spec.WorkDir != "" {
		args = append(args, "-w", spec.WorkDir)
	}
	args = append(args, image)
	if spec.Command != "" {
		args = append(args, spec.Command)
		args = append(args, spec.Args...)
	}
	return args
}

// BuildArtifact runs a one-shot image build for the named artifact. The
// build is not tracked as a long-lived process; success is reported as a
// boolean and failures surface the captured output for diagnostics.
func (s *Supervisor) BuildArtifact(ctx context.Context, name string, build domain.BuildSpec) (bool, string) {
	args := []string{"build", "-t", build.Tag}
	if build.Dockerfile != "" {
		args = append(args, "-f", build.Dockerfile)
	}
	for _, k := range sortedKeys(build.BuildArgs) {
		args = append(args, "--build-arg", k+"="+build.BuildArgs[k])
	}
	args = append(args, build.ContextDir)

	s.logger.Info("building artifact",
		zap.String("name", name),
		zap.String("tag", build.Tag))

	cmd := exec.CommandContext(ctx, s.cfg.Runtime, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		s.logger.Error("artifact build failed",
			zap.String("name", name),
			zap.String("tag", build.Tag),
			zap.Error(err))
		return false, string(out)
	}

	s.logger.Info("artifact built",
		zap.String("name", name),
		zap.String("tag", build.Tag))
	return true, string(out)
}
