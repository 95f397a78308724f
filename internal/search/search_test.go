package search_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextforge/retrieval-core/internal/search"
	"github.com/contextforge/retrieval-core/internal/store"
	"github.com/contextforge/retrieval-core/internal/store/memstore"
)

func TestFuseTakesMaxAcrossStrategies(t *testing.T) {
	e := store.Entity{ID: "e1"}
	keyword := []search.Result{{Entity: e, Score: 0.4, Source: search.Keyword}}
	semantic := []search.Result{{Entity: e, Score: 0.9, Source: search.Semantic}}

	fused := search.Fuse(keyword, semantic)
	require.Len(t, fused, 1)
	assert.InDelta(t, 0.9, fused[0].Score, 1e-9)
}

func TestFuseWeightedSubQueries(t *testing.T) {
	e := store.Entity{ID: "e1"}
	subA := search.WeightedContribution([]search.Result{{Entity: e, Score: 0.8}}, 0.6)
	subB := search.WeightedContribution([]search.Result{{Entity: e, Score: 0.5}}, 0.4)

	fused := search.FuseWeighted(subA, subB)
	require.Len(t, fused, 1)
	assert.InDelta(t, 0.48, fused[0].Score, 1e-9)
}

func TestHeuristicRerankerBoostsExactMentionAndFilters(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	fresh := store.Entity{ID: "fresh", Name: "AuthService", Type: store.EntityClass, FilePath: "pkg/auth/service.go", UpdatedAt: now}
	stale := store.Entity{ID: "stale", Name: "Other", Type: store.EntityClass, UpdatedAt: now.Add(-30 * 24 * time.Hour)}

	results := []search.Result{
		{Entity: stale, Score: 0.5},
		{Entity: fresh, Score: 0.5},
	}

	reranker := search.HeuristicReranker{Now: func() time.Time { return now }}
	out := reranker.Rerank(results, search.Opts{
		Mentions: []search.MentionRef{{Text: "AuthService"}},
		Filters:  search.Filters{Types: []string{"class"}, Files: []string{"pkg/auth"}},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "fresh", out[0].Entity.ID)
	assert.Greater(t, out[0].Score, out[1].Score)
}

func TestKeywordStrategyScoresByTermCoverage(t *testing.T) {
	ps := memstore.New().ProjectStore()
	ctx := context.Background()

	_, err := ps.Entities.Create(ctx, &store.Entity{ID: "e1", Type: store.EntityFunction, Name: "ParseQuery", Content: "parses a query string into tokens"})
	require.NoError(t, err)
	_, err = ps.Entities.Create(ctx, &store.Entity{ID: "e2", Type: store.EntityFunction, Name: "Unrelated", Content: "does something else"})
	require.NoError(t, err)

	results, err := search.KeywordStrategy{}.Run(ctx, ps, "parse query tokens", search.Opts{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "e1", results[0].Entity.ID)
}

func TestMultiStrategySearchDropsFailingStrategyAndFusesRemaining(t *testing.T) {
	ps := memstore.New().ProjectStore()
	ctx := context.Background()

	_, err := ps.Entities.Create(ctx, &store.Entity{ID: "e1", Type: store.EntityFunction, Name: "ParseQuery", Content: "parses a query string"})
	require.NoError(t, err)

	ms := &search.MultiStrategy{
		Strategies: map[search.Name]search.Strategy{
			search.Keyword:  search.KeywordStrategy{},
			search.Semantic: erroringStrategy{},
		},
		Reranker: search.HeuristicReranker{},
	}

	results, err := ms.Search(ctx, ps, "parse query", nil, search.Opts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "e1", results[0].Entity.ID)
}

type erroringStrategy struct{}

func (erroringStrategy) Name() search.Name { return search.Semantic }
func (erroringStrategy) Run(ctx context.Context, ps store.ProjectStore, query string, opts search.Opts) ([]search.Result, error) {
	return nil, assert.AnError
}
