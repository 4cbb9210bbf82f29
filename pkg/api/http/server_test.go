package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsforge/coordd/internal/application/dispatcher"
	"github.com/opsforge/coordd/internal/application/locks"
	"github.com/opsforge/coordd/internal/application/memgraph"
	"github.com/opsforge/coordd/internal/application/registry"
	"github.com/opsforge/coordd/internal/application/tasks"
	"github.com/opsforge/coordd/pkg/adapters/metrics/noop"
	"go.uber.org/zap"
)

func newTestServer() *Server {
	logger := zap.NewNop()
	metrics := noop.NewCollector()

	reg := registry.New(nil, metrics, logger, time.Minute)
	lockMgr := locks.NewManager(nil, metrics, logger)
	reg.SetClaimReleaser(lockMgr)
	taskMgr := tasks.NewManager(reg, nil, nil, metrics, logger)
	memStore := memgraph.NewStore(logger)
	disp := dispatcher.New(reg, taskMgr, lockMgr, memStore, metrics, logger)

	return NewServer(&Config{
		Port:       0,
		Dispatcher: disp,
		Logger:     logger,
	})
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer()
	w := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestDispatchEndpoint(t *testing.T) {
	s := newTestServer()

	w := doRequest(t, s, http.MethodPost, "/api/v1/requests", map[string]any{
		"method": "register",
		"params": map[string]any{
			"id":           "dev-1",
			"role":         "worker-developer",
			"capabilities": []string{"development"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Result struct {
			Registered bool   `json:"registered"`
			InstanceID string `json:"instance_id"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Result.Registered)
	assert.Equal(t, "dev-1", resp.Result.InstanceID)
}

func TestDispatchErrorMapping(t *testing.T) {
	s := newTestServer()

	// Missing method
	w := doRequest(t, s, http.MethodPost, "/api/v1/requests", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")

	// Unknown method
	w = doRequest(t, s, http.MethodPost, "/api/v1/requests", map[string]any{"method": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UNKNOWN_REQUEST")

	// Validation failure
	w = doRequest(t, s, http.MethodPost, "/api/v1/requests", map[string]any{
		"method": "register",
		"params": map[string]any{"id": "dev-1", "role": "janitor"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")

	// Not found
	w = doRequest(t, s, http.MethodPost, "/api/v1/requests", map[string]any{
		"method": "get_task",
		"params": map[string]any{"task_id": "ghost"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")

	// Duplicate registration
	register := map[string]any{
		"method": "register",
		"params": map[string]any{"id": "dup-1", "role": "worker-developer"},
	}
	w = doRequest(t, s, http.MethodPost, "/api/v1/requests", register)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, s, http.MethodPost, "/api/v1/requests", register)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ALREADY_EXISTS")
}

func TestReadEndpoints(t *testing.T) {
	s := newTestServer()

	w := doRequest(t, s, http.MethodPost, "/api/v1/requests", map[string]any{
		"method": "register",
		"params": map[string]any{"id": "dev-1", "role": "worker-developer"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/v1/instances?role=worker-developer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dev-1")

	w = doRequest(t, s, http.MethodGet, "/api/v1/instances?role=worker-reviewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "dev-1")

	w = doRequest(t, s, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "uptime")

	w = doRequest(t, s, http.MethodGet, "/api/v1/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "instances")
}

func TestProcessRoutesAbsentWithoutSupervisor(t *testing.T) {
	s := newTestServer()
	w := doRequest(t, s, http.MethodGet, "/api/v1/processes", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
