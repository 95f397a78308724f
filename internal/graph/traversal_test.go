package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextforge/retrieval-core/internal/graph"
	"github.com/contextforge/retrieval-core/internal/store"
	"github.com/contextforge/retrieval-core/internal/store/memstore"
)

func seedChain(t *testing.T, ps store.ProjectStore) {
	t.Helper()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := ps.Entities.Create(ctx, &store.Entity{ID: id, Type: store.EntityFunction, Name: id})
		require.NoError(t, err)
	}
	_, err := ps.Relationships.Create(ctx, store.RelationshipInput{SourceID: "a", TargetID: "b", Relationship: store.RelCalls})
	require.NoError(t, err)
	_, err = ps.Relationships.Create(ctx, store.RelationshipInput{SourceID: "b", TargetID: "c", Relationship: store.RelImports})
	require.NoError(t, err)
}

func TestFindShortestPathWithTypeFilter(t *testing.T) {
	ps := memstore.New().ProjectStore()
	seedChain(t, ps)
	ctx := context.Background()

	callsOnly := store.RelCalls
	path, err := graph.FindShortestPath(ctx, ps, "a", "c", []store.RelationshipType{callsOnly})
	require.NoError(t, err)
	assert.Nil(t, path)

	path, err = graph.FindShortestPath(ctx, ps, "a", "c", nil)
	require.NoError(t, err)
	require.NotNil(t, path)
	assert.Equal(t, []string{"a", "b", "c"}, path.Nodes)
	assert.Equal(t, 2, path.Length)
	require.Len(t, path.Edges, 2)
	assert.Equal(t, store.RelCalls, path.Edges[0].Relationship)
	assert.Equal(t, store.RelImports, path.Edges[1].Relationship)
}

func TestGetNeighborhoodStopsAtMaxDepth(t *testing.T) {
	ps := memstore.New().ProjectStore()
	seedChain(t, ps)
	ctx := context.Background()

	n, err := graph.GetNeighborhood(ctx, ps, "a", graph.NeighborhoodOpts{MaxDepth: 1, Direction: store.DirOut})
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, e := range n.Entities {
		ids[e.ID] = true
	}
	assert.True(t, ids["a"])
	assert.True(t, ids["b"])
	assert.False(t, ids["c"])
}

func TestFindPathsReturnsShorterPathFirst(t *testing.T) {
	ps := memstore.New().ProjectStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := ps.Entities.Create(ctx, &store.Entity{ID: id, Type: store.EntityFunction, Name: id})
		require.NoError(t, err)
	}
	w1, w2 := 1.0, 5.0
	_, err := ps.Relationships.Create(ctx, store.RelationshipInput{SourceID: "a", TargetID: "d", Relationship: store.RelCalls, Weight: &w2})
	require.NoError(t, err)
	_, err = ps.Relationships.Create(ctx, store.RelationshipInput{SourceID: "a", TargetID: "b", Relationship: store.RelCalls, Weight: &w1})
	require.NoError(t, err)
	_, err = ps.Relationships.Create(ctx, store.RelationshipInput{SourceID: "b", TargetID: "d", Relationship: store.RelCalls, Weight: &w1})
	require.NoError(t, err)

	paths, err := graph.FindPaths(ctx, ps, "a", "d", graph.FindPathsOpts{})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, 1, paths[0].Length)
	assert.Equal(t, 2, paths[1].Length)
}

func TestFindCommonNeighbors(t *testing.T) {
	ps := memstore.New().ProjectStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "x"} {
		_, err := ps.Entities.Create(ctx, &store.Entity{ID: id, Type: store.EntityFunction, Name: id})
		require.NoError(t, err)
	}
	_, err := ps.Relationships.Create(ctx, store.RelationshipInput{SourceID: "a", TargetID: "x", Relationship: store.RelCalls})
	require.NoError(t, err)
	_, err = ps.Relationships.Create(ctx, store.RelationshipInput{SourceID: "b", TargetID: "x", Relationship: store.RelCalls})
	require.NoError(t, err)

	common, err := graph.FindCommonNeighbors(ctx, ps, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, common)
}

func TestGetSubgraphByEntityTypesFiltersBothEndpoints(t *testing.T) {
	ps := memstore.New().ProjectStore()
	ctx := context.Background()

	_, err := ps.Entities.Create(ctx, &store.Entity{ID: "f1", Type: store.EntityFunction, Name: "f1"})
	require.NoError(t, err)
	_, err = ps.Entities.Create(ctx, &store.Entity{ID: "f2", Type: store.EntityFunction, Name: "f2"})
	require.NoError(t, err)
	_, err = ps.Entities.Create(ctx, &store.Entity{ID: "doc1", Type: store.EntityDocument, Name: "doc1"})
	require.NoError(t, err)
	_, err = ps.Relationships.Create(ctx, store.RelationshipInput{SourceID: "f1", TargetID: "f2", Relationship: store.RelCalls})
	require.NoError(t, err)
	_, err = ps.Relationships.Create(ctx, store.RelationshipInput{SourceID: "f1", TargetID: "doc1", Relationship: store.RelDocuments})
	require.NoError(t, err)

	sub, err := graph.GetSubgraphByEntityTypes(ctx, ps, []store.EntityType{store.EntityFunction}, nil)
	require.NoError(t, err)
	require.Len(t, sub.Entities, 2)
	require.Len(t, sub.Relationships, 1)
	assert.Equal(t, store.RelCalls, sub.Relationships[0].Relationship)
}

func TestGetStatistics(t *testing.T) {
	ps := memstore.New().ProjectStore()
	seedChain(t, ps)
	ctx := context.Background()

	stats, err := graph.GetStatistics(ctx, ps)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.EntityCount)
	assert.Equal(t, 2, stats.RelationshipCount)
}
