// Package resolver finds and merges duplicate entities, and resolves a
// free-text name to the best-matching entity. Its fallback string-matching
// strategy tries an exact match, then a substring search, then bigram
// similarity; the bigram metric itself lives in internal/textsim.
package resolver

import (
	"context"

	"github.com/contextforge/retrieval-core/internal/apperr"
	"github.com/contextforge/retrieval-core/internal/store"
	"github.com/contextforge/retrieval-core/internal/textsim"
	"github.com/contextforge/retrieval-core/pkg/embedder"
)

const (
	defaultDuplicateThreshold = 0.85
	defaultMaxDuplicates      = 10
	defaultResolveThreshold   = 0.8
)

var defaultEligibleTypes = []store.EntityType{store.EntityConcept}

// Resolver finds and merges duplicate entities against one project's store.
// Embed is optional; when nil, Resolve skips its embedding-nearest-neighbor
// fallback step instead of failing.
type Resolver struct {
	store store.ProjectStore
	embed embedder.Embedder
}

// New returns a Resolver bound to ps, embedding queries via embed for the
// Resolve fallback step (embed may be nil).
func New(ps store.ProjectStore, embed embedder.Embedder) *Resolver {
	return &Resolver{store: ps, embed: embed}
}

// DuplicateGroup is one cluster of entities judged to be the same concept.
type DuplicateGroup struct {
	Primary    store.Entity
	Duplicates []store.Entity
	Similarity float64
}

// FindDuplicatesOpts narrows FindDuplicates.
type FindDuplicatesOpts struct {
	Threshold     float64
	Types         []store.EntityType
	MaxDuplicates int
}

// FindDuplicates scans eligible, not-yet-processed entities for near
// duplicates via the embedding index, grouping each primary with its
// duplicates and marking every involved entity processed so a later call
// does not re-surface the same pair.
func (r *Resolver) FindDuplicates(ctx context.Context, opts FindDuplicatesOpts) ([]DuplicateGroup, error) {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = defaultDuplicateThreshold
	}
	maxDup := opts.MaxDuplicates
	if maxDup == 0 {
		maxDup = defaultMaxDuplicates
	}
	types := opts.Types
	if len(types) == 0 {
		types = defaultEligibleTypes
	}

	processed := map[string]struct{}{}
	var groups []DuplicateGroup

	for _, t := range types {
		entities, err := r.store.Entities.ListByType(ctx, t, 0)
		if err != nil {
			return nil, err
		}

		for _, e := range entities {
			if isProcessed(&e) {
				continue
			}
			if _, already := processed[e.ID]; already {
				continue
			}

			matches, err := r.store.Embeddings.FindSimilarToEntity(ctx, e.ID, store.FindSimilarOpts{
				Limit:       maxDup + 1,
				Threshold:   threshold,
				EntityTypes: types,
			})
			if err != nil {
				return nil, err
			}

			var dups []store.Entity
			var sum float64
			for _, m := range matches {
				if m.EntityID == e.ID {
					continue
				}
				if _, already := processed[m.EntityID]; already {
					continue
				}
				dup, err := r.store.Entities.Get(ctx, m.EntityID)
				if err != nil {
					return nil, err
				}
				if dup == nil {
					continue
				}
				dups = append(dups, *dup)
				sum += m.Score
			}

			if len(dups) == 0 {
				continue
			}

			processed[e.ID] = struct{}{}
			for _, d := range dups {
				processed[d.ID] = struct{}{}
			}

			groups = append(groups, DuplicateGroup{
				Primary:    e,
				Duplicates: dups,
				Similarity: sum / float64(len(dups)),
			})
		}
	}

	for id := range processed {
		markProcessed(ctx, r.store.Entities, id)
	}

	return groups, nil
}

func isProcessed(e *store.Entity) bool {
	if e.Metadata == nil {
		return false
	}
	v, _ := e.Metadata["resolved"].(bool)
	return v
}

func markProcessed(ctx context.Context, entities store.EntityStore, id string) {
	e, err := entities.Get(ctx, id)
	if err != nil || e == nil {
		return
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	e.Metadata["resolved"] = true
	_, _ = entities.Update(ctx, e)
}

// ResolveOpts narrows Resolve.
type ResolveOpts struct {
	Type      *store.EntityType
	Threshold float64
}

// Resolve tries, in order: exact name match, exact qualified-name match,
// prefix/substring search accepted by bigram-Jaccard similarity, then
// embedding nearest-neighbor. Returns the first match, or nil if none
// clears its threshold.
func (r *Resolver) Resolve(ctx context.Context, name string, opts ResolveOpts) (*store.Entity, error) {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = defaultResolveThreshold
	}

	byName, err := r.store.Entities.FindByName(ctx, name, opts.Type)
	if err != nil {
		return nil, err
	}
	if len(byName) > 0 {
		out := byName[0]
		return &out, nil
	}

	entityType := store.EntityType("")
	if opts.Type != nil {
		entityType = *opts.Type
	}
	byQualified, err := r.store.Entities.GetByQualifiedName(ctx, entityType, name)
	if err != nil {
		return nil, err
	}
	if byQualified != nil {
		return byQualified, nil
	}

	candidates, err := r.store.Entities.FindByPrefix(ctx, name, 5)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if textsim.BigramJaccard(name, c.Name) >= threshold {
			out := c
			return &out, nil
		}
	}

	if r.embed == nil {
		return nil, nil
	}
	queryVec, err := r.embed.EmbedQuery(ctx, name)
	if err != nil {
		return nil, nil // external-provider failure degrades to "no match", not an error
	}
	vecMatches, err := r.store.Embeddings.FindSimilarToVector(ctx, queryVec, store.FindSimilarOpts{Limit: 1, Threshold: threshold})
	if err != nil {
		return nil, err
	}
	if len(vecMatches) > 0 {
		return r.store.Entities.Get(ctx, vecMatches[0].EntityID)
	}

	return nil, nil
}

// MergeOpts narrows Merge.
type MergeOpts struct {
	KeepAliases           bool
	RedirectRelationships bool
	DeleteDuplicates      bool
}

// DefaultMergeOpts matches the documented defaults (all true).
func DefaultMergeOpts() MergeOpts {
	return MergeOpts{KeepAliases: true, RedirectRelationships: true, DeleteDuplicates: true}
}

// MergeResult reports what Merge did.
type MergeResult struct {
	Entity                store.Entity
	MergedCount           int
	RelationshipsRedirected int
	AliasesAdded          []string
}

// Merge folds duplicateIDs into primaryID: optionally carrying names and
// aliases forward, redirecting relationships, and deleting the duplicates.
func (r *Resolver) Merge(ctx context.Context, primaryID string, duplicateIDs []string, opts MergeOpts) (*MergeResult, error) {
	primary, err := r.store.Entities.Get(ctx, primaryID)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		return nil, apperr.NotFound("resolver.Merge", apperr.ErrPrimaryMissing)
	}

	var aliasAccumulator []string
	seenAlias := map[string]struct{}{}
	for _, a := range primary.Aliases() {
		seenAlias[a] = struct{}{}
	}

	relocated := 0
	for _, dupID := range duplicateIDs {
		dup, err := r.store.Entities.Get(ctx, dupID)
		if err != nil {
			return nil, err
		}
		if dup == nil {
			continue
		}

		if opts.KeepAliases {
			if dup.Name != "" && dup.Name != primary.Name {
				if _, dup2 := seenAlias[dup.Name]; !dup2 {
					seenAlias[dup.Name] = struct{}{}
					aliasAccumulator = append(aliasAccumulator, dup.Name)
				}
			}
			for _, a := range dup.Aliases() {
				if _, dup2 := seenAlias[a]; !dup2 {
					seenAlias[a] = struct{}{}
					aliasAccumulator = append(aliasAccumulator, a)
				}
			}
		}

		if opts.RedirectRelationships {
			n, err := r.RedirectRelationships(ctx, dupID, primaryID)
			if err != nil {
				return nil, err
			}
			relocated += n
		}

		if opts.DeleteDuplicates {
			if err := r.store.Embeddings.DeleteForEntity(ctx, dupID); err != nil {
				return nil, err
			}
			if err := r.store.Entities.Delete(ctx, dupID); err != nil {
				return nil, err
			}
		}
	}

	mergedAliases := append(append([]string{}, primary.Aliases()...), aliasAccumulator...)
	primary.SetAliases(mergedAliases)
	refreshed, err := r.store.Entities.Update(ctx, primary)
	if err != nil {
		return nil, err
	}

	return &MergeResult{
		Entity:                  *refreshed,
		MergedCount:             len(duplicateIDs),
		RelationshipsRedirected: relocated,
		AliasesAdded:            aliasAccumulator,
	}, nil
}

// RedirectRelationships re-points every edge touching fromID onto toID,
// skipping edges that would become self-loops and edges that already exist
// on toID's side (drop + increment nothing per the open merge-weight
// question, resolved in DESIGN.md). Finally deletes all edges incident to
// fromID. Returns the number of newly created edges.
func (r *Resolver) RedirectRelationships(ctx context.Context, fromID, toID string) (int, error) {
	edges, err := r.store.Relationships.GetForEntity(ctx, fromID, store.DirBoth, store.RelationshipQueryOpts{})
	if err != nil {
		return 0, err
	}

	created := 0
	for _, e := range edges {
		newSource, newTarget := e.SourceID, e.TargetID
		if newSource == fromID {
			newSource = toID
		}
		if newTarget == fromID {
			newTarget = toID
		}
		if newSource == newTarget {
			continue
		}

		exists, err := r.store.Relationships.Exists(ctx, newSource, newTarget, &e.Relationship)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		weight := e.Weight
		_, err = r.store.Relationships.Create(ctx, store.RelationshipInput{
			SourceID:     newSource,
			TargetID:     newTarget,
			Relationship: e.Relationship,
			Weight:       &weight,
			Metadata:     e.Metadata,
		})
		if err != nil {
			return created, err
		}
		created++
	}

	if _, err := r.store.Relationships.DeleteForEntity(ctx, fromID); err != nil {
		return created, err
	}

	return created, nil
}
