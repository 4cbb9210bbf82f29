package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opsforge/coordd/pkg/domain"
)

// RunProcessRequest is the process-launch boundary: command, arguments,
// environment, working directory, optional volume mounts and a timeout in
// milliseconds.
type RunProcessRequest struct {
	Name      string               `json:"name" binding:"required"`
	Command   string               `json:"command" binding:"required"`
	Args      []string             `json:"args"`
	Env       map[string]string    `json:"env"`
	WorkDir   string               `json:"workdir"`
	Volumes   []domain.VolumeMount `json:"volumes"`
	TimeoutMs int64                `json:"timeout_ms"`
	// Image switches the run into a container launched via the
	// configured runtime.
	Image string `json:"image"`
}

// BuildArtifactRequest describes a one-shot artifact build.
type BuildArtifactRequest struct {
	Name       string            `json:"name" binding:"required"`
	Tag        string            `json:"tag" binding:"required"`
	Context    string            `json:"context" binding:"required"`
	Dockerfile string            `json:"dockerfile"`
	BuildArgs  map[string]string `json:"build_args"`
}

// handleRunProcess runs a supervised process and returns its bounded
// outcome. Timeouts and spawn failures are reported in the result record,
// not as HTTP errors.
func (s *Server) handleRunProcess(c *gin.Context) {
	var req RunProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	spec := domain.ProcessSpec{
		Name:    req.Name,
		Command: req.Command,
		Args:    req.Args,
		Env:     req.Env,
		WorkDir: req.WorkDir,
		Volumes: req.Volumes,
		Timeout: time.Duration(req.TimeoutMs) * time.Millisecond,
	}

	var result domain.ProcessResult
	var err error
	if req.Image != "" {
		result, err = s.supervisor.RunContainer(c.Request.Context(), spec, req.Image)
	} else {
		result, err = s.supervisor.Run(c.Request.Context(), spec)
	}
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleListProcesses returns the names of currently tracked processes.
func (s *Server) handleListProcesses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"processes": s.supervisor.Running()})
}

// handleKillProcess triggers the graceful-then-forced escalation for a
// named process. Killing an unknown or finished process is a no-op.
func (s *Server) handleKillProcess(c *gin.Context) {
	name := c.Param("name")
	killed := s.supervisor.Kill(name)
	c.JSON(http.StatusOK, gin.H{"killed": killed})
}

// handleBuildArtifact runs a one-shot artifact build.
func (s *Server) handleBuildArtifact(c *gin.Context) {
	var req BuildArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	ok, output := s.supervisor.BuildArtifact(c.Request.Context(), req.Name, domain.BuildSpec{
		ContextDir: req.Context,
		Dockerfile: req.Dockerfile,
		Tag:        req.Tag,
		BuildArgs:  req.BuildArgs,
	})

	c.JSON(http.StatusOK, gin.H{"success": ok, "output": output})
}
