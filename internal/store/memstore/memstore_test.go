package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextforge/retrieval-core/internal/store"
	"github.com/contextforge/retrieval-core/internal/store/memstore"
)

func TestEntityCreateAssignsIDAndTimestamps(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	e, err := s.Create(ctx, &store.Entity{Type: store.EntityFunction, Name: "foo"})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
	assert.Equal(t, e.CreatedAt, e.UpdatedAt)
}

func TestEntityUpdatePreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	e, err := s.Create(ctx, &store.Entity{Type: store.EntityFunction, Name: "foo"})
	require.NoError(t, err)
	created := e.CreatedAt

	e.Name = "bar"
	updated, err := s.Update(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, "bar", updated.Name)
}

func TestEntityAliasesRoundTrip(t *testing.T) {
	e := &store.Entity{}
	e.SetAliases([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, e.Aliases())
}

func TestFindByPrefixIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	_, err := s.Create(ctx, &store.Entity{Type: store.EntityFunction, Name: "ParseQuery", QualifiedName: "pkg.ParseQuery"})
	require.NoError(t, err)

	matches, err := s.FindByPrefix(ctx, "parse", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "ParseQuery", matches[0].Name)
}

func TestRelationshipUpsertUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	first, err := s.Upsert(ctx, store.RelationshipInput{SourceID: "a", TargetID: "b", Relationship: store.RelCalls})
	require.NoError(t, err)

	w := 2.5
	second, err := s.Upsert(ctx, store.RelationshipInput{SourceID: "a", TargetID: "b", Relationship: store.RelCalls, Weight: &w})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2.5, second.Weight)

	n, err := s.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRelationshipCreateManyIsAtomicAndCountable(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	ins := []store.RelationshipInput{
		{SourceID: "a", TargetID: "b", Relationship: store.RelCalls},
		{SourceID: "b", TargetID: "c", Relationship: store.RelCalls},
		{SourceID: "a", TargetID: "c", Relationship: store.RelImports},
	}
	out, err := s.CreateMany(ctx, ins)
	require.NoError(t, err)
	require.Len(t, out, 3)

	n, err := s.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	callsType := store.RelCalls
	n, err = s.Count(ctx, &callsType)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRelationshipGetForEntityOrdersByWeightDescThenID(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	low, high := 1.0, 5.0
	_, err := s.Create(ctx, store.RelationshipInput{SourceID: "a", TargetID: "b", Relationship: store.RelCalls, Weight: &low})
	require.NoError(t, err)
	_, err = s.Create(ctx, store.RelationshipInput{SourceID: "a", TargetID: "c", Relationship: store.RelCalls, Weight: &high})
	require.NoError(t, err)

	out, err := s.GetForEntity(ctx, "a", store.DirOut, store.RelationshipQueryOpts{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "c", out[0].TargetID)
	assert.Equal(t, "b", out[1].TargetID)
}

func TestRelationshipDeleteForEntityRemovesBothDirections(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	_, err := s.Create(ctx, store.RelationshipInput{SourceID: "a", TargetID: "b", Relationship: store.RelCalls})
	require.NoError(t, err)
	_, err = s.Create(ctx, store.RelationshipInput{SourceID: "b", TargetID: "a", Relationship: store.RelCalls})
	require.NoError(t, err)
	_, err = s.Create(ctx, store.RelationshipInput{SourceID: "x", TargetID: "y", Relationship: store.RelCalls})
	require.NoError(t, err)

	n, err := s.DeleteForEntity(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := s.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestGetAverageDegree(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	_, err := s.Create(ctx, store.RelationshipInput{SourceID: "a", TargetID: "b", Relationship: store.RelCalls})
	require.NoError(t, err)
	_, err = s.Create(ctx, store.RelationshipInput{SourceID: "b", TargetID: "c", Relationship: store.RelCalls})
	require.NoError(t, err)

	avg, err := s.GetAverageDegree(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/3.0, avg, 1e-9)
}

func TestEmbeddingFindSimilarExcludesBelowThreshold(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0}))
	require.NoError(t, s.Upsert(ctx, "b", []float32{0, 1}))
	require.NoError(t, s.Upsert(ctx, "c", []float32{1, 0}))

	matches, err := s.FindSimilarToVector(ctx, []float32{1, 0}, store.FindSimilarOpts{Threshold: 0.5})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.NotEqual(t, "b", m.EntityID)
	}
}

func TestEmbeddingFindSimilarToEntityExcludesSelf(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0}))
	require.NoError(t, s.Upsert(ctx, "b", []float32{1, 0}))

	matches, err := s.FindSimilarToEntity(ctx, "a", store.FindSimilarOpts{Threshold: 0})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].EntityID)
}

func TestFeedbackStatsAggregation(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	require.NoError(t, s.Record(ctx, "q1", "e1", store.SignalUsed))
	require.NoError(t, s.Record(ctx, "q2", "e1", store.SignalUsed))
	require.NoError(t, s.Record(ctx, "q3", "e1", store.SignalIgnored))
	require.NoError(t, s.Record(ctx, "q4", "e1", store.SignalExplicitNegative))

	stats, err := s.Stats(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalReturns)
	assert.Equal(t, 2, stats.UsedCount)
	assert.Equal(t, 1, stats.IgnoredCount)
	assert.Equal(t, 1, stats.NegativeCount)
	assert.InDelta(t, 0.5, stats.UseRate, 1e-9)
}

func TestProjectNameSanitizeAndRegistryCollision(t *testing.T) {
	assert.Equal(t, "acme_repo", store.SanitizeProjectName("acme-repo"))

	reg := store.NewNameRegistry()
	require.NoError(t, reg.Register("acme-repo"))
	require.NoError(t, reg.Register("acme-repo"))
	err := reg.Register("acme_repo")
	assert.Error(t, err)
}
