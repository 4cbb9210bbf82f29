package memgraph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsforge/coordd/pkg/domain"
	"go.uber.org/zap"
)

func newTestStore() *Store {
	return NewStore(zap.NewNop())
}

func TestCreateEntity(t *testing.T) {
	s := newTestStore()

	entity, err := s.CreateEntity("auth-service", "service", []string{"uses JWT"}, map[string]any{"owner": "platform"})
	require.NoError(t, err)
	assert.Equal(t, 1, entity.Version)
	assert.Equal(t, []string{"uses JWT"}, entity.Observations)
	assert.False(t, entity.CreatedAt.IsZero())

	_, err = s.CreateEntity("auth-service", "service", nil, nil)
	assert.True(t, domain.IsAlreadyExists(err))
}

func TestUpdateEntityAppendsObservations(t *testing.T) {
	s := newTestStore()

	_, err := s.CreateEntity("auth-service", "service", []string{"uses JWT"}, nil)
	require.NoError(t, err)

	entity, err := s.UpdateEntity("auth-service", []string{"rate limited"}, map[string]any{"tier": "1"})
	require.NoError(t, err)
	assert.Equal(t, 2, entity.Version)
	assert.Equal(t, []string{"uses JWT", "rate limited"}, entity.Observations)
	assert.Equal(t, "1", entity.Metadata["tier"])

	_, err = s.UpdateEntity("ghost", nil, nil)
	assert.True(t, domain.IsNotFound(err))
}

func TestReturnedEntityDetachedFromLiveEntry(t *testing.T) {
	s := newTestStore()

	created, err := s.CreateEntity("auth-service", "service", []string{"uses JWT"}, map[string]any{"owner": "platform"})
	require.NoError(t, err)

	// Updates merge into the live entry while a caller may still be
	// iterating an earlier copy; its slice and map must not share memory
	// with the store.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_, _ = s.UpdateEntity("auth-service", []string{"obs"}, map[string]any{"seq": i})
		}
	}()
	for i := 0; i < 1000; i++ {
		for range created.Metadata {
		}
		for range created.Observations {
		}
	}
	wg.Wait()

	assert.Equal(t, []string{"uses JWT"}, created.Observations)
	assert.Equal(t, map[string]any{"owner": "platform"}, created.Metadata)

	created.Observations[0] = "mutated"
	created.Metadata["owner"] = "mutated"
	res := s.Search(Query{EntityName: "auth-service"})
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "uses JWT", res.Entities[0].Observations[0])
	assert.Equal(t, "platform", res.Entities[0].Metadata["owner"])
}

func TestDeleteEntityCascadesRelations(t *testing.T) {
	s := newTestStore()

	_, err := s.CreateEntity("a", "service", nil, nil)
	require.NoError(t, err)
	_, err = s.CreateEntity("b", "service", nil, nil)
	require.NoError(t, err)
	_, err = s.CreateEntity("c", "service", nil, nil)
	require.NoError(t, err)

	_, err = s.CreateRelation("a", "b", "depends-on", 1, nil)
	require.NoError(t, err)
	_, err = s.CreateRelation("b", "c", "depends-on", 1, nil)
	require.NoError(t, err)

	assert.True(t, s.DeleteEntity("b"))
	assert.False(t, s.DeleteEntity("b"))

	entities, relations := s.Counts()
	assert.Equal(t, 2, entities)
	assert.Equal(t, 0, relations)
}

func TestCreateRelationRequiresBothEndpoints(t *testing.T) {
	s := newTestStore()

	_, err := s.CreateEntity("a", "service", nil, nil)
	require.NoError(t, err)

	_, err = s.CreateRelation("a", "missing", "depends-on", 0.5, nil)
	assert.True(t, domain.IsNotFound(err))

	_, err = s.CreateRelation("missing", "a", "depends-on", 0.5, nil)
	assert.True(t, domain.IsNotFound(err))
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	s := newTestStore()

	_, err := s.CreateEntity("Auth-Service", "service", []string{"issues JWT tokens"}, nil)
	require.NoError(t, err)
	_, err = s.CreateEntity("billing", "service", []string{"monthly invoicing"}, nil)
	require.NoError(t, err)

	res := s.Search(Query{EntityName: "AUTH"})
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "Auth-Service", res.Entities[0].Name)

	res = s.Search(Query{ObservationsSubstring: "jwt"})
	require.Len(t, res.Entities, 1)

	res = s.Search(Query{EntityType: "SERVICE"})
	assert.Len(t, res.Entities, 2)

	res = s.Search(Query{EntityName: "nothing-matches"})
	assert.Empty(t, res.Entities)
	assert.Empty(t, res.Relations)
}

func TestSearchLimit(t *testing.T) {
	s := newTestStore()

	for _, name := range []string{"svc-1", "svc-2", "svc-3"} {
		_, err := s.CreateEntity(name, "service", nil, nil)
		require.NoError(t, err)
	}

	res := s.Search(Query{EntityType: "service", Limit: 2})
	require.Len(t, res.Entities, 2)
	// Creation order is the tiebreak.
	assert.Equal(t, "svc-1", res.Entities[0].Name)
	assert.Equal(t, "svc-2", res.Entities[1].Name)
}

func TestSearchRelationsRequireBothEndpointsMatched(t *testing.T) {
	s := newTestStore()

	_, err := s.CreateEntity("svc-a", "service", nil, nil)
	require.NoError(t, err)
	_, err = s.CreateEntity("svc-b", "service", nil, nil)
	require.NoError(t, err)
	_, err = s.CreateEntity("db-1", "database", nil, nil)
	require.NoError(t, err)

	_, err = s.CreateRelation("svc-a", "svc-b", "calls", 1, nil)
	require.NoError(t, err)
	_, err = s.CreateRelation("svc-a", "db-1", "reads", 1, nil)
	require.NoError(t, err)

	res := s.Search(Query{EntityType: "service"})
	require.Len(t, res.Entities, 2)
	require.Len(t, res.Relations, 1)
	assert.Equal(t, "svc-b", res.Relations[0].To)
}
