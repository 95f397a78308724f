package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/contextforge/retrieval-core/internal/store"
)

func defaultWeight(in store.RelationshipInput) float64 {
	if in.Weight != nil {
		return *in.Weight
	}
	return 1.0
}

// findMatchLocked returns the stored relationship matching (source, target, type)
// if one exists, without locking.
func (s *Store) findMatchLocked(sourceID, targetID string, relType store.RelationshipType) *store.Relationship {
	for _, r := range s.relationships {
		if r.SourceID == sourceID && r.TargetID == targetID && r.Relationship == relType {
			return r
		}
	}
	return nil
}

func (s *Store) Create(ctx context.Context, in store.RelationshipInput) (*store.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &store.Relationship{
		ID:           uuid.NewString(),
		SourceID:     in.SourceID,
		TargetID:     in.TargetID,
		Relationship: in.Relationship,
		Weight:       defaultWeight(in),
		Metadata:     in.Metadata,
		CreatedAt:    time.Now(),
	}
	s.relationships[r.ID] = r

	out := *r
	return &out, nil
}

// Upsert matches on (source, target, type): updates weight/metadata if
// found (preserving id), else inserts.
func (s *Store) Upsert(ctx context.Context, in store.RelationshipInput) (*store.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.findMatchLocked(in.SourceID, in.TargetID, in.Relationship); existing != nil {
		existing.Weight = defaultWeight(in)
		existing.Metadata = in.Metadata
		out := *existing
		return &out, nil
	}

	r := &store.Relationship{
		ID:           uuid.NewString(),
		SourceID:     in.SourceID,
		TargetID:     in.TargetID,
		Relationship: in.Relationship,
		Weight:       defaultWeight(in),
		Metadata:     in.Metadata,
		CreatedAt:    time.Now(),
	}
	s.relationships[r.ID] = r
	out := *r
	return &out, nil
}

// CreateMany is an atomic bulk insert: either all inputs become visible or
// none do. The in-memory map write is single-threaded under the lock so we
// can build the batch first and only commit once it is known to be
// well-formed.
func (s *Store) CreateMany(ctx context.Context, ins []store.RelationshipInput) ([]store.Relationship, error) {
	batch := make([]*store.Relationship, 0, len(ins))
	for _, in := range ins {
		batch = append(batch, &store.Relationship{
			ID:           uuid.NewString(),
			SourceID:     in.SourceID,
			TargetID:     in.TargetID,
			Relationship: in.Relationship,
			Weight:       defaultWeight(in),
			Metadata:     in.Metadata,
			CreatedAt:    time.Now(),
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Relationship, 0, len(batch))
	for _, r := range batch {
		s.relationships[r.ID] = r
		out = append(out, *r)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (*store.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.relationships[id]
	if !ok {
		return nil, nil
	}
	out := *r
	return &out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.relationships, id)
	return nil
}

func (s *Store) DeleteForEntity(ctx context.Context, entityID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, r := range s.relationships {
		if r.SourceID == entityID || r.TargetID == entityID {
			delete(s.relationships, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteBetween(ctx context.Context, sourceID, targetID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, r := range s.relationships {
		if r.SourceID == sourceID && r.TargetID == targetID {
			delete(s.relationships, id)
			n++
		}
	}
	return n, nil
}

func matchesOpts(r *store.Relationship, opts store.RelationshipQueryOpts) bool {
	if len(opts.Types) > 0 {
		found := false
		for _, t := range opts.Types {
			if r.Relationship == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if opts.MinWeight != nil && r.Weight < *opts.MinWeight {
		return false
	}
	return true
}

// GetForEntity is direction-filtered, ordered by weight descending then id
// ascending; (source=? OR target=?) grouped so the type and weight
// filters apply uniformly to both branches.
func (s *Store) GetForEntity(ctx context.Context, entityID string, dir store.Direction, opts store.RelationshipQueryOpts) ([]store.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Relationship
	for _, r := range s.relationships {
		matchesDir := false
		switch dir {
		case store.DirOut:
			matchesDir = r.SourceID == entityID
		case store.DirIn:
			matchesDir = r.TargetID == entityID
		default:
			matchesDir = r.SourceID == entityID || r.TargetID == entityID
		}
		if !matchesDir {
			continue
		}
		if !matchesOpts(r, opts) {
			continue
		}
		out = append(out, *r)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].ID < out[j].ID
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *Store) GetByType(ctx context.Context, relType store.RelationshipType, limit int) ([]store.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Relationship
	for _, r := range s.relationships {
		if r.Relationship == relType {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Exists(ctx context.Context, sourceID, targetID string, relType *store.RelationshipType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.relationships {
		if r.SourceID != sourceID || r.TargetID != targetID {
			continue
		}
		if relType != nil && r.Relationship != *relType {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (s *Store) Count(ctx context.Context, relType *store.RelationshipType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if relType == nil {
		return len(s.relationships), nil
	}
	n := 0
	for _, r := range s.relationships {
		if r.Relationship == *relType {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetStatsByType(ctx context.Context) (map[store.RelationshipType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[store.RelationshipType]int)
	for _, r := range s.relationships {
		stats[r.Relationship]++
	}
	return stats, nil
}

func (s *Store) GetMostConnected(ctx context.Context, limit int) ([]store.ConnectedEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	degree := make(map[string]int)
	for _, r := range s.relationships {
		degree[r.SourceID]++
		degree[r.TargetID]++
	}

	out := make([]store.ConnectedEntity, 0, len(degree))
	for id, d := range degree {
		out = append(out, store.ConnectedEntity{EntityID: id, Degree: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Degree != out[j].Degree {
			return out[i].Degree > out[j].Degree
		}
		return out[i].EntityID < out[j].EntityID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetAverageDegree returns 2*|E| / |V_touched|.
func (s *Store) GetAverageDegree(ctx context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	touched := make(map[string]struct{})
	for _, r := range s.relationships {
		touched[r.SourceID] = struct{}{}
		touched[r.TargetID] = struct{}{}
	}
	if len(touched) == 0 {
		return 0, nil
	}
	return 2 * float64(len(s.relationships)) / float64(len(touched)), nil
}
