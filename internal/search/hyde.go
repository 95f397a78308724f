package search

import (
	"context"
	"fmt"

	"github.com/contextforge/retrieval-core/internal/store"
	"github.com/contextforge/retrieval-core/pkg/completion"
	"github.com/contextforge/retrieval-core/pkg/embedder"
)

const hydeAcceptanceThreshold = 0.3

// TryHyDE generates a short hypothetical answer, embeds it, and quick-checks
// the embedding with a 1-NN lookup. The hypothetical embedding is accepted
// as the query embedding only if that lookup scores >= 0.3; any provider
// failure degrades to "no HyDE embedding" rather than an error, since HyDE
// is a best-effort enhancement.
func TryHyDE(ctx context.Context, ps store.ProjectStore, provider completion.Provider, embed embedder.Embedder, query string) []float32 {
	if provider == nil || embed == nil {
		return nil
	}

	resp, err := provider.Complete(ctx, completion.Request{
		Prompt:    fmt.Sprintf("Write a short, plausible answer to this question, as if from documentation:\n%s", query),
		MaxTokens: 150,
	})
	if err != nil || resp.Text == "" {
		return nil
	}

	vec, err := embed.EmbedQuery(ctx, resp.Text)
	if err != nil || len(vec) == 0 {
		return nil
	}

	matches, err := ps.Embeddings.FindSimilarToVector(ctx, vec, store.FindSimilarOpts{Limit: 1})
	if err != nil || len(matches) == 0 {
		return nil
	}
	if matches[0].Score < hydeAcceptanceThreshold {
		return nil
	}

	return vec
}
