// Package assemble implements context expansion and the token-budgeted
// formatting that turn ranked search candidates into the final context
// string returned to a caller.
package assemble

import (
	"context"

	"github.com/contextforge/retrieval-core/internal/search"
	"github.com/contextforge/retrieval-core/internal/store"
)

// structuralRelationships are the edges context expansion follows: CONTAINS
// to the owning file/class, IMPORTS to imported files, IMPLEMENTS/EXTENDS
// to super-types.
var structuralRelationships = []store.RelationshipType{
	store.RelContains,
	store.RelImports,
	store.RelImplements,
	store.RelExtends,
}

// ExpandOpts configures context expansion.
type ExpandOpts struct {
	MaxHops            int // default 1
	MaxExpansionTokens int // default 1000, shared across all expansions
	ReducedScoreFactor float64
}

// DefaultExpandOpts returns the defaults: 1 hop, 1000-token shared
// budget, expansions scored at 0.5x their seed.
func DefaultExpandOpts() ExpandOpts {
	return ExpandOpts{MaxHops: 1, MaxExpansionTokens: 1000, ReducedScoreFactor: 0.5}
}

// Expand follows structural relationships from each seed candidate, adding
// an expansion entity only if it is not already selected, it fits within
// the shared maxExpansionTokens budget, and it respects a per-seed share of
// that budget. Expansions are appended after seeds, each scored at
// reducedScoreFactor times its originating seed's score.
func Expand(ctx context.Context, rs store.RelationshipStore, es store.EntityStore, seeds []search.Result, opts ExpandOpts) ([]search.Result, error) {
	if opts.MaxHops <= 0 {
		opts.MaxHops = 1
	}
	if opts.MaxExpansionTokens <= 0 {
		opts.MaxExpansionTokens = 1000
	}
	if opts.ReducedScoreFactor <= 0 {
		opts.ReducedScoreFactor = 0.5
	}
	if len(seeds) == 0 {
		return seeds, nil
	}

	selected := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		selected[s.Entity.ID] = true
	}

	perSeedBudget := opts.MaxExpansionTokens / len(seeds)
	out := make([]search.Result, len(seeds))
	copy(out, seeds)

	tokensUsedTotal := 0
	for _, seed := range seeds {
		tokensUsedForSeed := 0
		frontier := []string{seed.Entity.ID}

		for hop := 0; hop < opts.MaxHops; hop++ {
			var next []string
			for _, id := range frontier {
				edges, err := rs.GetForEntity(ctx, id, store.DirOut, store.RelationshipQueryOpts{Types: structuralRelationships})
				if err != nil {
					return nil, err
				}
				for _, edge := range edges {
					if selected[edge.TargetID] {
						continue
					}
					entity, err := es.Get(ctx, edge.TargetID)
					if err != nil || entity == nil {
						continue
					}
					cost := EstimateTokens(entity.Content)
					if tokensUsedForSeed+cost > perSeedBudget {
						continue
					}
					if tokensUsedTotal+cost > opts.MaxExpansionTokens {
						continue
					}

					selected[entity.ID] = true
					tokensUsedForSeed += cost
					tokensUsedTotal += cost
					out = append(out, search.Result{
						Entity: *entity,
						Score:  seed.Score * opts.ReducedScoreFactor,
						Source: seed.Source,
					})
					next = append(next, entity.ID)
				}
			}
			frontier = next
			if len(frontier) == 0 {
				break
			}
		}
	}

	return out, nil
}
