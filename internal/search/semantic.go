package search

import (
	"context"

	"github.com/contextforge/retrieval-core/internal/store"
)

// SemanticStrategy is a thin wrapper over the embedding index's
// nearest-neighbor lookup. It contributes nothing when no query embedding
// was supplied (HyDE/embedder failures degrade gracefully upstream).
type SemanticStrategy struct{}

func (SemanticStrategy) Name() Name { return Semantic }

func (SemanticStrategy) Run(ctx context.Context, ps store.ProjectStore, query string, opts Opts) ([]Result, error) {
	if len(opts.QueryEmbedding) == 0 {
		return nil, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	matches, err := ps.Embeddings.FindSimilarToVector(ctx, opts.QueryEmbedding, store.FindSimilarOpts{
		Limit:       limit,
		EntityTypes: opts.EntityTypes,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		e, err := ps.Entities.Get(ctx, m.EntityID)
		if err != nil || e == nil {
			continue
		}
		out = append(out, Result{Entity: *e, Score: m.Score, Source: Semantic})
	}
	return out, nil
}
