package search

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/contextforge/retrieval-core/internal/store"
)

// MultiStrategy runs the configured strategies concurrently and fuses +
// reranks their results. Concurrent fan-out over the independent,
// I/O-bound strategies uses golang.org/x/sync/errgroup so one failing
// strategy can be logged and dropped without aborting the others.
type MultiStrategy struct {
	Strategies map[Name]Strategy
	Reranker   Reranker
	Logger     *slog.Logger
}

// New returns a MultiStrategy with the four standard strategies wired in.
func New(gr GraphStrategy) *MultiStrategy {
	return &MultiStrategy{
		Strategies: map[Name]Strategy{
			Keyword:  KeywordStrategy{},
			Semantic: SemanticStrategy{},
			Graph:    gr,
			Fuzzy:    FuzzyStrategy{},
		},
		Reranker: HeuristicReranker{},
	}
}

// Search runs every strategy named in names (all four if names is empty).
// A failing strategy is dropped — not fatal — and logged; the remaining
// strategies' results still fuse and rerank.
func (m *MultiStrategy) Search(ctx context.Context, ps store.ProjectStore, query string, names []Name, opts Opts) ([]Result, error) {
	if len(names) == 0 {
		for n := range m.Strategies {
			names = append(names, n)
		}
	}

	resultSets := make([][]Result, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		strat, ok := m.Strategies[name]
		if !ok {
			continue
		}
		g.Go(func() error {
			results, err := strat.Run(gctx, ps, query, opts)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Warn("search strategy failed", "strategy", name, "error", err)
				}
				return nil // one failing strategy must not abort the others
			}
			resultSets[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := Fuse(resultSets...)

	reranker := m.Reranker
	if reranker == nil {
		reranker = HeuristicReranker{}
	}
	reranked := reranker.Rerank(fused, opts)

	sort.Slice(reranked, func(i, j int) bool {
		if reranked[i].Score != reranked[j].Score {
			return reranked[i].Score > reranked[j].Score
		}
		return reranked[i].Entity.ID < reranked[j].Entity.ID
	})

	limit := opts.Limit
	if limit > 0 && len(reranked) > limit {
		reranked = reranked[:limit]
	}
	return reranked, nil
}

// StrategiesForIntent chooses a default strategy set from an intent name
// when the caller did not specify one explicitly.
func StrategiesForIntent(intent string) []Name {
	switch intent {
	case "find", "list":
		return []Name{Semantic, Keyword}
	case "debug", "why":
		return []Name{Graph, Keyword}
	case "explain", "how":
		return []Name{Semantic}
	default:
		return []Name{Keyword, Semantic, Graph, Fuzzy}
	}
}
