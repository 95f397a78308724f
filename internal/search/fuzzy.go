package search

import (
	"context"

	"github.com/contextforge/retrieval-core/internal/store"
	"github.com/contextforge/retrieval-core/internal/textsim"
)

// FuzzyStrategy ranks entities by Levenshtein distance between the query
// and the entity name, tolerating typos and near-misses.
type FuzzyStrategy struct {
	MaxDistance int // default 3
}

func (FuzzyStrategy) Name() Name { return Fuzzy }

func (s FuzzyStrategy) Run(ctx context.Context, ps store.ProjectStore, query string, opts Opts) ([]Result, error) {
	maxDist := s.MaxDistance
	if maxDist <= 0 {
		maxDist = 3
	}

	types := opts.EntityTypes
	if len(types) == 0 {
		types = allEntityTypes
	}

	byName := map[string]store.Entity{}
	var names []string
	for _, t := range types {
		entities, err := ps.Entities.ListByType(ctx, t, 0)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			if _, dup := byName[e.Name]; dup {
				continue
			}
			byName[e.Name] = e
			names = append(names, e.Name)
		}
	}

	matches := textsim.FindSimilar(query, names, maxDist)
	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		score := 1.0 - float64(m.Distance)/float64(maxDist+1)
		if score < 0 {
			score = 0
		}
		out = append(out, Result{Entity: byName[m.Value], Score: score, Source: Fuzzy})
	}
	return out, nil
}
