package search

import (
	"context"
	"strings"

	"github.com/contextforge/retrieval-core/internal/store"
)

// KeywordStrategy scores entities by how many whitespace-split query terms
// appear as a case-insensitive substring of the entity's name, qualified
// name or content.
type KeywordStrategy struct{}

func (KeywordStrategy) Name() Name { return Keyword }

func (KeywordStrategy) Run(ctx context.Context, ps store.ProjectStore, query string, opts Opts) ([]Result, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	types := opts.EntityTypes
	if len(types) == 0 {
		types = allEntityTypes
	}

	var out []Result
	for _, t := range types {
		entities, err := ps.Entities.ListByType(ctx, t, 0)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			haystack := strings.ToLower(e.Name + " " + e.QualifiedName + " " + e.Content)
			matched := 0
			for _, term := range terms {
				if strings.Contains(haystack, term) {
					matched++
				}
			}
			if matched == 0 {
				continue
			}
			score := float64(matched) / float64(len(terms))
			out = append(out, Result{Entity: e, Score: score, Source: Keyword})
		}
	}
	return out, nil
}

var allEntityTypes = []store.EntityType{
	store.EntityFile, store.EntityModule, store.EntityFunction, store.EntityClass,
	store.EntityInterface, store.EntityMethod, store.EntityVariable, store.EntityConcept,
	store.EntityDocument, store.EntityRequirement, store.EntityDecision, store.EntitySession,
}
