package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextforge/retrieval-core/internal/resolver"
	"github.com/contextforge/retrieval-core/internal/store"
	"github.com/contextforge/retrieval-core/internal/store/memstore"
)

func TestUpsertPlusMergeScenario(t *testing.T) {
	ms := memstore.New()
	ps := ms.ProjectStore()
	ctx := context.Background()

	for _, id := range []string{"A", "B", "C"} {
		_, err := ps.Entities.Create(ctx, &store.Entity{ID: id, Type: store.EntityConcept, Name: id})
		require.NoError(t, err)
	}
	_, err := ps.Relationships.Upsert(ctx, store.RelationshipInput{SourceID: "A", TargetID: "B", Relationship: store.RelCalls})
	require.NoError(t, err)
	_, err = ps.Relationships.Upsert(ctx, store.RelationshipInput{SourceID: "C", TargetID: "B", Relationship: store.RelCalls})
	require.NoError(t, err)

	r := resolver.New(ps, nil)
	result, err := r.Merge(ctx, "A", []string{"C"}, resolver.DefaultMergeOpts())
	require.NoError(t, err)
	assert.Equal(t, 1, result.MergedCount)
	assert.Equal(t, 1, result.RelationshipsRedirected)

	exists, err := ps.Relationships.Exists(ctx, "A", "B", relPtr(store.RelCalls))
	require.NoError(t, err)
	assert.True(t, exists)

	cExists, err := ps.Relationships.Exists(ctx, "C", "B", nil)
	require.NoError(t, err)
	assert.False(t, cExists)

	deleted, err := ps.Entities.Get(ctx, "C")
	require.NoError(t, err)
	assert.Nil(t, deleted)
}

func relPtr(t store.RelationshipType) *store.RelationshipType { return &t }

func TestMergeFailsWhenPrimaryMissing(t *testing.T) {
	ps := memstore.New().ProjectStore()
	r := resolver.New(ps, nil)

	_, err := r.Merge(context.Background(), "missing", nil, resolver.DefaultMergeOpts())
	assert.Error(t, err)
}

func TestMergeKeepsAliasesFromDuplicates(t *testing.T) {
	ps := memstore.New().ProjectStore()
	ctx := context.Background()

	_, err := ps.Entities.Create(ctx, &store.Entity{ID: "p", Type: store.EntityConcept, Name: "AuthService"})
	require.NoError(t, err)
	_, err = ps.Entities.Create(ctx, &store.Entity{ID: "d", Type: store.EntityConcept, Name: "Authentication Service"})
	require.NoError(t, err)

	r := resolver.New(ps, nil)
	result, err := r.Merge(ctx, "p", []string{"d"}, resolver.DefaultMergeOpts())
	require.NoError(t, err)
	assert.Contains(t, result.AliasesAdded, "Authentication Service")
	assert.Contains(t, result.Entity.Aliases(), "Authentication Service")
}

func TestResolveByExactNameThenPrefix(t *testing.T) {
	ps := memstore.New().ProjectStore()
	ctx := context.Background()

	_, err := ps.Entities.Create(ctx, &store.Entity{ID: "e1", Type: store.EntityClass, Name: "ParseQuery", QualifiedName: "pkg.ParseQuery"})
	require.NoError(t, err)

	r := resolver.New(ps, nil)
	found, err := r.Resolve(ctx, "ParseQuery", resolver.ResolveOpts{})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "e1", found.ID)

	found, err = r.Resolve(ctx, "ParseQuer", resolver.ResolveOpts{Threshold: 0.5})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "e1", found.ID)
}

func TestFindDuplicatesSkipsAlreadyProcessedOnSecondCall(t *testing.T) {
	ps := memstore.New().ProjectStore()
	ctx := context.Background()

	_, err := ps.Entities.Create(ctx, &store.Entity{ID: "e1", Type: store.EntityConcept, Name: "AuthService"})
	require.NoError(t, err)
	_, err = ps.Entities.Create(ctx, &store.Entity{ID: "e2", Type: store.EntityConcept, Name: "Authentication Service"})
	require.NoError(t, err)
	require.NoError(t, ps.Embeddings.Upsert(ctx, "e1", []float32{1, 0, 0}))
	require.NoError(t, ps.Embeddings.Upsert(ctx, "e2", []float32{0.99, 0.05, 0}))

	r := resolver.New(ps, nil)
	groups, err := r.FindDuplicates(ctx, resolver.FindDuplicatesOpts{Threshold: 0.85, Types: []store.EntityType{store.EntityConcept}})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "e1", groups[0].Primary.ID)
	require.Len(t, groups[0].Duplicates, 1)
	assert.Equal(t, "e2", groups[0].Duplicates[0].ID)

	groups, err = r.FindDuplicates(ctx, resolver.FindDuplicatesOpts{Threshold: 0.85, Types: []store.EntityType{store.EntityConcept}})
	require.NoError(t, err)
	assert.Len(t, groups, 0)
}
