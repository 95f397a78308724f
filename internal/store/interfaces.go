package store

import "context"

// Direction constrains relationship traversal/query to outgoing, incoming,
// or both.
type Direction int

const (
	DirOut Direction = iota
	DirIn
	DirBoth
)

// RelationshipInput is the shape accepted by Create/Upsert/CreateMany.
type RelationshipInput struct {
	SourceID     string
	TargetID     string
	Relationship RelationshipType
	Weight       *float64 // nil means "use default 1.0"
	Metadata     map[string]any
}

// RelationshipQueryOpts narrows GetForEntity.
type RelationshipQueryOpts struct {
	Types     []RelationshipType
	MinWeight *float64
	Limit     int
}

// EntityStore owns entity rows.
type EntityStore interface {
	Create(ctx context.Context, e *Entity) (*Entity, error)
	Get(ctx context.Context, id string) (*Entity, error)
	GetByQualifiedName(ctx context.Context, entityType EntityType, qualifiedName string) (*Entity, error)
	FindByName(ctx context.Context, name string, entityType *EntityType) ([]Entity, error)
	FindByPrefix(ctx context.Context, prefix string, limit int) ([]Entity, error)
	Update(ctx context.Context, e *Entity) (*Entity, error)
	Delete(ctx context.Context, id string) error
	GetMany(ctx context.Context, ids []string) ([]Entity, error)
	ListByType(ctx context.Context, entityType EntityType, limit int) ([]Entity, error)
}

// RelationshipStore is the directed weighted multigraph store.
type RelationshipStore interface {
	Create(ctx context.Context, in RelationshipInput) (*Relationship, error)
	Upsert(ctx context.Context, in RelationshipInput) (*Relationship, error)
	CreateMany(ctx context.Context, ins []RelationshipInput) ([]Relationship, error)
	Get(ctx context.Context, id string) (*Relationship, error)
	Delete(ctx context.Context, id string) error
	DeleteForEntity(ctx context.Context, entityID string) (int, error)
	DeleteBetween(ctx context.Context, sourceID, targetID string) (int, error)
	GetForEntity(ctx context.Context, entityID string, dir Direction, opts RelationshipQueryOpts) ([]Relationship, error)
	GetByType(ctx context.Context, relType RelationshipType, limit int) ([]Relationship, error)
	Exists(ctx context.Context, sourceID, targetID string, relType *RelationshipType) (bool, error)
	Count(ctx context.Context, relType *RelationshipType) (int, error)
	GetStatsByType(ctx context.Context) (map[RelationshipType]int, error)
	GetMostConnected(ctx context.Context, limit int) ([]ConnectedEntity, error)
	GetAverageDegree(ctx context.Context) (float64, error)
}

// ConnectedEntity pairs an entity id with its total in+out degree.
type ConnectedEntity struct {
	EntityID string
	Degree   int
}

// EmbeddingMatch is a nearest-neighbor result.
type EmbeddingMatch struct {
	EntityID string
	Score    float64
}

// FindSimilarOpts narrows an embedding-index lookup.
type FindSimilarOpts struct {
	Limit       int
	Threshold   float64
	EntityTypes []EntityType
}

// EmbeddingIndex owns vectors: one active vector per entity per model,
// replaced on re-embed.
type EmbeddingIndex interface {
	Upsert(ctx context.Context, entityID string, vector []float32) error
	DeleteForEntity(ctx context.Context, entityID string) error
	FindSimilarToVector(ctx context.Context, vector []float32, opts FindSimilarOpts) ([]EmbeddingMatch, error)
	FindSimilarToEntity(ctx context.Context, entityID string, opts FindSimilarOpts) ([]EmbeddingMatch, error)
}

// FeedbackStore is the append-only feedback log plus its on-demand
// aggregation.
type FeedbackStore interface {
	Record(ctx context.Context, queryID, entityID string, signal FeedbackSignal) error
	RecordBatch(ctx context.Context, records []FeedbackRecord) error
	Stats(ctx context.Context, entityID string) (EntityStats, error)
}

// ProjectStore bundles every store scoped to one project namespace.
type ProjectStore struct {
	Entities      EntityStore
	Relationships RelationshipStore
	Embeddings    EmbeddingIndex
	Feedback      FeedbackStore
}
