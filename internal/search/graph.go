package search

import (
	"context"

	"github.com/contextforge/retrieval-core/internal/graph"
	"github.com/contextforge/retrieval-core/internal/resolver"
	"github.com/contextforge/retrieval-core/internal/store"
)

// GraphStrategy resolves each mention to a seed entity and scores its
// 1-hop and 2-hop neighborhood with diminishing weight, surfacing the
// seed itself at full score.
type GraphStrategy struct {
	Resolver *resolver.Resolver
}

func (GraphStrategy) Name() Name { return Graph }

func (s GraphStrategy) Run(ctx context.Context, ps store.ProjectStore, query string, opts Opts) ([]Result, error) {
	if s.Resolver == nil || len(opts.Mentions) == 0 {
		return nil, nil
	}

	scores := map[string]float64{}
	entities := map[string]store.Entity{}

	for _, m := range opts.Mentions {
		seed, err := s.Resolver.Resolve(ctx, m.Text, resolver.ResolveOpts{})
		if err != nil || seed == nil {
			continue
		}
		bump(scores, entities, *seed, 1.0)

		depth1, err := graph.GetReachable(ctx, ps, seed.ID, graph.ReachableOpts{MaxDepth: 1, Direction: store.DirBoth})
		if err != nil {
			return nil, err
		}
		depth2, err := graph.GetReachable(ctx, ps, seed.ID, graph.ReachableOpts{MaxDepth: 2, Direction: store.DirBoth})
		if err != nil {
			return nil, err
		}

		if err := hydrateAndBump(ctx, ps, depth1, 0.7, scores, entities); err != nil {
			return nil, err
		}
		inner := map[string]struct{}{}
		for id := range depth2 {
			if _, ok := depth1[id]; ok {
				continue
			}
			inner[id] = struct{}{}
		}
		if err := hydrateAndBump(ctx, ps, inner, 0.4, scores, entities); err != nil {
			return nil, err
		}
	}

	out := make([]Result, 0, len(scores))
	for id, score := range scores {
		out = append(out, Result{Entity: entities[id], Score: score, Source: Graph})
	}
	return out, nil
}

func bump(scores map[string]float64, entities map[string]store.Entity, e store.Entity, score float64) {
	if score > scores[e.ID] {
		scores[e.ID] = score
	}
	entities[e.ID] = e
}

func hydrateAndBump(ctx context.Context, ps store.ProjectStore, ids map[string]struct{}, score float64, scores map[string]float64, entities map[string]store.Entity) error {
	for id := range ids {
		e, err := ps.Entities.Get(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			continue
		}
		bump(scores, entities, *e, score)
	}
	return nil
}
