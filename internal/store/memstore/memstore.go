// Package memstore is an in-process implementation of the store
// interfaces, used by the pure algorithmic layers' tests (graph, resolver,
// search fusion, feedback, assembler, service) so they don't need a live
// SurrealDB instance.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contextforge/retrieval-core/internal/store"
)

// Store implements store.EntityStore, store.RelationshipStore,
// store.EmbeddingIndex and store.FeedbackStore over in-memory maps guarded
// by a single mutex.
type Store struct {
	mu sync.RWMutex

	entities      map[string]*store.Entity
	relationships map[string]*store.Relationship
	embeddings    map[string][]float32
	feedback      []store.FeedbackRecord
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		entities:      make(map[string]*store.Entity),
		relationships: make(map[string]*store.Relationship),
		embeddings:    make(map[string][]float32),
	}
}

// ProjectStore wraps Store behind the four narrow store interfaces.
func (s *Store) ProjectStore() store.ProjectStore {
	return store.ProjectStore{
		Entities:      s,
		Relationships: s,
		Embeddings:    s,
		Feedback:      s,
	}
}

// ---- EntityStore ----

func (s *Store) Create(ctx context.Context, e *store.Entity) (*store.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.entities[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (s *Store) Get(ctx context.Context, id string) (*store.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, nil
	}
	out := *e
	return &out, nil
}

func (s *Store) GetByQualifiedName(ctx context.Context, entityType store.EntityType, qualifiedName string) (*store.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entities {
		if e.QualifiedName == qualifiedName && (entityType == "" || e.Type == entityType) {
			out := *e
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) FindByName(ctx context.Context, name string, entityType *store.EntityType) ([]store.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Entity
	for _, e := range s.entities {
		if e.Name != name {
			continue
		}
		if entityType != nil && e.Type != *entityType {
			continue
		}
		out = append(out, *e)
	}
	sortEntitiesByID(out)
	return out, nil
}

func (s *Store) FindByPrefix(ctx context.Context, prefix string, limit int) ([]store.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Entity
	lowerPrefix := toLower(prefix)
	for _, e := range s.entities {
		if contains(toLower(e.Name), lowerPrefix) || contains(toLower(e.QualifiedName), lowerPrefix) {
			out = append(out, *e)
		}
	}
	sortEntitiesByID(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, e *store.Entity) (*store.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entities[e.ID]
	if !ok {
		return nil, fmt.Errorf("entity not found: %s", e.ID)
	}

	cp := *e
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now()
	s.entities[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities, id)
	return nil
}

func (s *Store) GetMany(ctx context.Context, ids []string) ([]store.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entities[id]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *Store) ListByType(ctx context.Context, entityType store.EntityType, limit int) ([]store.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Entity
	for _, e := range s.entities {
		if e.Type == entityType {
			out = append(out, *e)
		}
	}
	sortEntitiesByID(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortEntitiesByID(es []store.Entity) {
	sort.Slice(es, func(i, j int) bool { return es[i].ID < es[j].ID })
}

func toLower(s string) string {
	r := []rune(s)
	for i, c := range r {
		if c >= 'A' && c <= 'Z' {
			r[i] = c + ('a' - 'A')
		}
	}
	return string(r)
}

func contains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	if m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}
