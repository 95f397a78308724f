package memstore

import (
	"context"
	"math"
	"sort"

	"github.com/contextforge/retrieval-core/internal/store"
)

// ---- EmbeddingIndex ----
//
// One active vector per entity, replaced on re-embed; similarity is
// cosine, matching the production store's vector index.

func (s *Store) Upsert(ctx context.Context, entityID string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]float32, len(vector))
	copy(cp, vector)
	s.embeddings[entityID] = cp
	return nil
}

func (s *Store) DeleteForEntity(ctx context.Context, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.embeddings, entityID)
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (s *Store) FindSimilarToVector(ctx context.Context, vector []float32, opts store.FindSimilarOpts) ([]store.EmbeddingMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	typeOK := func(entityID string) bool {
		if len(opts.EntityTypes) == 0 {
			return true
		}
		e, ok := s.entities[entityID]
		if !ok {
			return false
		}
		for _, t := range opts.EntityTypes {
			if e.Type == t {
				return true
			}
		}
		return false
	}

	var out []store.EmbeddingMatch
	for id, vec := range s.embeddings {
		if !typeOK(id) {
			continue
		}
		score := cosine(vector, vec)
		if score < opts.Threshold {
			continue
		}
		out = append(out, store.EmbeddingMatch{EntityID: id, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].EntityID < out[j].EntityID
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *Store) FindSimilarToEntity(ctx context.Context, entityID string, opts store.FindSimilarOpts) ([]store.EmbeddingMatch, error) {
	s.mu.RLock()
	vec, ok := s.embeddings[entityID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	matches, err := s.FindSimilarToVector(ctx, vec, opts)
	if err != nil {
		return nil, err
	}

	out := make([]store.EmbeddingMatch, 0, len(matches))
	for _, m := range matches {
		if m.EntityID == entityID {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
