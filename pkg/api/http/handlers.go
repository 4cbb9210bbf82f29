package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opsforge/coordd/internal/application/dispatcher"
	"github.com/opsforge/coordd/pkg/domain"
	"go.uber.org/zap"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"checks": gin.H{
			"dispatcher": "ok",
		},
	})
}

// handleDispatch routes a generic named request through the dispatcher.
func (s *Server) handleDispatch(c *gin.Context) {
	var req dispatcher.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}
	if req.Method == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "INVALID_REQUEST", Message: "method is required"},
		})
		return
	}

	result, err := s.dispatcher.Dispatch(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// writeError maps the domain error taxonomy onto HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "VALIDATION_ERROR", Message: err.Error()},
		})
	case domain.IsUnknownRequest(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "UNKNOWN_REQUEST", Message: err.Error()},
		})
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{Code: "NOT_FOUND", Message: err.Error()},
		})
	case domain.IsAlreadyExists(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: ErrorDetail{Code: "ALREADY_EXISTS", Message: err.Error()},
		})
	default:
		s.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: "INTERNAL", Message: err.Error()},
		})
	}
}

// handleListInstances is a convenience GET wrapper over list_instances.
func (s *Server) handleListInstances(c *gin.Context) {
	s.dispatchQuery(c, "list_instances", map[string]string{
		"role":   c.Query("role"),
		"status": c.Query("status"),
	})
}

// handleListTasks is a convenience GET wrapper over list_tasks.
func (s *Server) handleListTasks(c *gin.Context) {
	s.dispatchQuery(c, "list_tasks", map[string]string{
		"assigned_to": c.Query("assigned_to"),
		"assigned_by": c.Query("assigned_by"),
		"status":      c.Query("status"),
		"kind":        c.Query("kind"),
	})
}

// handleStats serves the get_stats counters.
func (s *Server) handleStats(c *gin.Context) {
	s.dispatchQuery(c, "get_stats", nil)
}

// handleState serves the get_state debug dump.
func (s *Server) handleState(c *gin.Context) {
	s.dispatchQuery(c, "get_state", nil)
}

func (s *Server) dispatchQuery(c *gin.Context, method string, params map[string]string) {
	filtered := make(map[string]string)
	for k, v := range params {
		if v != "" {
			filtered[k] = v
		}
	}

	var raw json.RawMessage
	if len(filtered) > 0 {
		raw, _ = json.Marshal(filtered)
	}

	result, err := s.dispatcher.Dispatch(c.Request.Context(), dispatcher.Request{
		Method: method,
		Params: raw,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
