package dispatcher

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsforge/coordd/internal/application/locks"
	"github.com/opsforge/coordd/internal/application/memgraph"
	"github.com/opsforge/coordd/internal/application/registry"
	"github.com/opsforge/coordd/internal/application/tasks"
	"github.com/opsforge/coordd/pkg/adapters/metrics/noop"
	"github.com/opsforge/coordd/pkg/domain"
	"go.uber.org/zap"
)

func newTestDispatcher() *Dispatcher {
	logger := zap.NewNop()
	metrics := noop.NewCollector()

	reg := registry.New(nil, metrics, logger, time.Minute)
	lockMgr := locks.NewManager(nil, metrics, logger)
	reg.SetClaimReleaser(lockMgr)
	taskMgr := tasks.NewManager(reg, nil, nil, metrics, logger)
	memStore := memgraph.NewStore(logger)

	return New(reg, taskMgr, lockMgr, memStore, metrics, logger)
}

// dispatch marshals params and routes the request, failing the test on
// marshal errors.
func dispatch(t *testing.T, d *Dispatcher, method string, params any) (any, error) {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		require.NoError(t, err)
		raw = b
	}
	return d.Dispatch(context.Background(), Request{Method: method, Params: raw})
}

func mustDispatch(t *testing.T, d *Dispatcher, method string, params any) any {
	t.Helper()
	result, err := dispatch(t, d, method, params)
	require.NoError(t, err)
	return result
}

func TestDispatchUnknownMethod(t *testing.T) {
	d := newTestDispatcher()

	_, err := dispatch(t, d, "launch_missiles", nil)
	require.Error(t, err)
	assert.True(t, domain.IsUnknownRequest(err))
}

func TestMethodsSorted(t *testing.T) {
	d := newTestDispatcher()

	methods := d.Methods()
	assert.True(t, sort.StringsAreSorted(methods))
	assert.Contains(t, methods, "register")
	assert.Contains(t, methods, "claim_resource")
	assert.Contains(t, methods, "memory.search")
}

func TestRegisterValidationBeforeMutation(t *testing.T) {
	d := newTestDispatcher()

	_, err := dispatch(t, d, "register", RegisterParams{ID: "dev-1", Role: "janitor"})
	assert.True(t, domain.IsValidation(err))

	_, err = dispatch(t, d, "register", RegisterParams{Role: domain.RoleWorkerDeveloper})
	assert.True(t, domain.IsValidation(err))

	// Nothing was stored by the rejected requests.
	result := mustDispatch(t, d, "list_instances", nil)
	assert.Empty(t, result.(ListInstancesResult).Instances)
}

func TestRegisterDuplicate(t *testing.T) {
	d := newTestDispatcher()

	params := RegisterParams{ID: "dev-1", Role: domain.RoleWorkerDeveloper}
	mustDispatch(t, d, "register", params)

	_, err := dispatch(t, d, "register", params)
	assert.True(t, domain.IsAlreadyExists(err))
}

func TestHeartbeatAndUnregister(t *testing.T) {
	d := newTestDispatcher()

	mustDispatch(t, d, "register", RegisterParams{ID: "dev-1", Role: domain.RoleWorkerDeveloper})

	result := mustDispatch(t, d, "heartbeat", HeartbeatParams{
		InstanceID: "dev-1",
		Status:     domain.InstanceStatusBusy,
	})
	assert.True(t, result.(HeartbeatResult).Acknowledged)

	_, err := dispatch(t, d, "heartbeat", HeartbeatParams{InstanceID: "ghost", Status: domain.InstanceStatusIdle})
	assert.True(t, domain.IsNotFound(err))

	result = mustDispatch(t, d, "unregister", UnregisterParams{InstanceID: "dev-1"})
	assert.True(t, result.(UnregisterResult).Unregistered)

	result = mustDispatch(t, d, "unregister", UnregisterParams{InstanceID: "dev-1"})
	assert.False(t, result.(UnregisterResult).Unregistered)
}

func TestRequestDeveloperAssignsFirstAvailable(t *testing.T) {
	d := newTestDispatcher()

	mustDispatch(t, d, "register", RegisterParams{
		ID:           "dev-1",
		Role:         domain.RoleWorkerDeveloper,
		Capabilities: []string{"development"},
	})

	result := mustDispatch(t, d, "request_developer", RequestDeveloperParams{IssueNumber: 42})
	dev := result.(RequestDeveloperResult)
	require.NotNil(t, dev.AssignedTo)
	assert.Equal(t, "dev-1", *dev.AssignedTo)
	require.NotEmpty(t, dev.TaskID)

	got := mustDispatch(t, d, "get_task", GetTaskParams{TaskID: dev.TaskID})
	task := got.(GetTaskResult).Task
	assert.Equal(t, 42, task.Payload.IssueNumber)
	assert.Equal(t, "dev-1", task.AssignedTo)
}

func TestRequestDeveloperWithNobodyAvailable(t *testing.T) {
	d := newTestDispatcher()

	// Task is still created; AssignedTo stays null for the caller to act on.
	result := mustDispatch(t, d, "request_developer", RequestDeveloperParams{IssueNumber: 7})
	dev := result.(RequestDeveloperResult)
	assert.Nil(t, dev.AssignedTo)
	assert.Nil(t, dev.EstimatedStart)
	require.NotEmpty(t, dev.TaskID)

	_, err := dispatch(t, d, "request_developer", RequestDeveloperParams{})
	assert.True(t, domain.IsValidation(err))
}

func TestUpdateTaskStatusLifecycle(t *testing.T) {
	d := newTestDispatcher()

	created := mustDispatch(t, d, "assign_task", AssignTaskParams{
		Kind:       domain.TaskKindReview,
		AssignedTo: "rev-1",
	})
	taskID := created.(AssignTaskResult).TaskID

	result := mustDispatch(t, d, "update_task_status", UpdateTaskStatusParams{
		TaskID: taskID,
		Status: domain.TaskStatusInProgress,
	})
	assert.True(t, result.(UpdateTaskStatusResult).Updated)

	_, err := dispatch(t, d, "update_task_status", UpdateTaskStatusParams{
		TaskID: taskID,
		Status: "paused",
	})
	assert.True(t, domain.IsValidation(err))

	_, err = dispatch(t, d, "update_task_status", UpdateTaskStatusParams{
		TaskID: "ghost",
		Status: domain.TaskStatusCompleted,
	})
	assert.True(t, domain.IsNotFound(err))
}

// TestCoordinationScenario walks the canonical two-developer flow: a
// developer registers and receives a task, claims the file it will edit,
// a second developer is refused the same file, and the release unblocks
// the retry.
func TestCoordinationScenario(t *testing.T) {
	d := newTestDispatcher()

	mustDispatch(t, d, "register", RegisterParams{
		ID:           "dev-1",
		Role:         domain.RoleWorkerDeveloper,
		Capabilities: []string{"development"},
	})
	mustDispatch(t, d, "register", RegisterParams{
		ID:           "dev-2",
		Role:         domain.RoleWorkerDeveloper,
		Capabilities: []string{"development"},
	})

	dev := mustDispatch(t, d, "request_developer", RequestDeveloperParams{IssueNumber: 42}).(RequestDeveloperResult)
	require.NotNil(t, dev.AssignedTo)
	assert.Equal(t, "dev-1", *dev.AssignedTo)

	claim := mustDispatch(t, d, "claim_resource", ClaimResourceParams{
		Kind:       domain.ResourceFile,
		ResourceID: "src/auth.ts",
		InstanceID: "dev-1",
		Operation:  domain.OperationWrite,
	}).(ClaimResourceResult)
	assert.True(t, claim.Claimed)

	claim = mustDispatch(t, d, "claim_resource", ClaimResourceParams{
		Kind:       domain.ResourceFile,
		ResourceID: "src/auth.ts",
		InstanceID: "dev-2",
		Operation:  domain.OperationWrite,
	}).(ClaimResourceResult)
	assert.False(t, claim.Claimed)
	assert.Equal(t, []string{"dev-1"}, claim.ConflictsWith)

	released := mustDispatch(t, d, "release_resource", ReleaseResourceParams{
		Kind:       domain.ResourceFile,
		ResourceID: "src/auth.ts",
		InstanceID: "dev-1",
	}).(ReleaseResourceResult)
	assert.True(t, released.Released)

	claim = mustDispatch(t, d, "claim_resource", ClaimResourceParams{
		Kind:       domain.ResourceFile,
		ResourceID: "src/auth.ts",
		InstanceID: "dev-2",
		Operation:  domain.OperationWrite,
	}).(ClaimResourceResult)
	assert.True(t, claim.Claimed)
}

func TestUnregisterReleasesHeldClaims(t *testing.T) {
	d := newTestDispatcher()

	mustDispatch(t, d, "register", RegisterParams{ID: "dev-1", Role: domain.RoleWorkerDeveloper})
	mustDispatch(t, d, "register", RegisterParams{ID: "dev-2", Role: domain.RoleWorkerDeveloper})

	claim := mustDispatch(t, d, "claim_resource", ClaimResourceParams{
		Kind:       domain.ResourceBranch,
		ResourceID: "feature/login",
		InstanceID: "dev-1",
		Operation:  domain.OperationWrite,
	}).(ClaimResourceResult)
	require.True(t, claim.Claimed)

	mustDispatch(t, d, "unregister", UnregisterParams{InstanceID: "dev-1"})

	claim = mustDispatch(t, d, "claim_resource", ClaimResourceParams{
		Kind:       domain.ResourceBranch,
		ResourceID: "feature/login",
		InstanceID: "dev-2",
		Operation:  domain.OperationWrite,
	}).(ClaimResourceResult)
	assert.True(t, claim.Claimed)
}

func TestMemoryOperations(t *testing.T) {
	d := newTestDispatcher()

	created := mustDispatch(t, d, "memory.create_entity", MemoryCreateEntityParams{
		Name:         "auth-service",
		Type:         "service",
		Observations: []string{"uses JWT"},
	}).(MemoryEntityResult)
	assert.Equal(t, 1, created.Entity.Version)

	_, err := dispatch(t, d, "memory.create_entity", MemoryCreateEntityParams{Name: "no-type"})
	assert.True(t, domain.IsValidation(err))

	mustDispatch(t, d, "memory.create_entity", MemoryCreateEntityParams{Name: "gateway", Type: "service"})

	rel := mustDispatch(t, d, "memory.create_relation", MemoryCreateRelationParams{
		From: "gateway",
		To:   "auth-service",
		Type: "routes-to",
	}).(MemoryRelationResult)
	assert.Equal(t, "gateway", rel.Relation.From)

	search := mustDispatch(t, d, "memory.search", MemorySearchParams{EntityType: "service"}).(memgraph.Result)
	assert.Len(t, search.Entities, 2)
	assert.Len(t, search.Relations, 1)

	deleted := mustDispatch(t, d, "memory.delete_entity", MemoryDeleteEntityParams{Name: "auth-service"}).(MemoryDeleteEntityResult)
	assert.True(t, deleted.Deleted)

	search = mustDispatch(t, d, "memory.search", MemorySearchParams{EntityType: "service"}).(memgraph.Result)
	assert.Len(t, search.Entities, 1)
	assert.Empty(t, search.Relations)
}

func TestGetStatsAndState(t *testing.T) {
	d := newTestDispatcher()

	mustDispatch(t, d, "register", RegisterParams{ID: "dev-1", Role: domain.RoleWorkerDeveloper})
	mustDispatch(t, d, "assign_task", AssignTaskParams{Kind: domain.TaskKindDevelop, AssignedTo: "dev-1"})
	mustDispatch(t, d, "claim_resource", ClaimResourceParams{
		Kind:       domain.ResourceIssue,
		ResourceID: "42",
		InstanceID: "dev-1",
		Operation:  domain.OperationWrite,
	})

	stats := mustDispatch(t, d, "get_stats", nil).(StatsResult)
	assert.Equal(t, 1, stats.Instances[string(domain.InstanceStatusIdle)])
	assert.Equal(t, 1, stats.Tasks[string(domain.TaskStatusPending)])
	assert.Equal(t, 1, stats.Resources)

	state := mustDispatch(t, d, "get_state", nil).(StateResult)
	assert.Len(t, state.Instances, 1)
	assert.Len(t, state.Tasks, 1)
	assert.Len(t, state.Resources, 1)
}
