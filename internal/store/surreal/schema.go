package surreal

import (
	"context"
	"fmt"
)

// embeddingDimension is the MTREE index dimension. Entries shorter than
// this are zero-padded, longer ones truncated.
const embeddingDimension = 1536

// InitSchema defines the project-prefixed tables, fields and indexes this
// store needs: one schema per project namespace, sharing a SurrealDB
// namespace/database. Safe to call repeatedly; SurrealDB's DEFINE
// statements are idempotent overwrites.
func (s *Store) InitSchema(ctx context.Context) error {
	entities := s.table("entities")
	relationships := s.table("relationships")
	embeddings := s.table("embeddings")
	feedback := s.table("feedback")

	statements := []string{
		fmt.Sprintf(`DEFINE TABLE %s SCHEMALESS;`, entities),
		fmt.Sprintf(`DEFINE FIELD type ON %s TYPE string;`, entities),
		fmt.Sprintf(`DEFINE FIELD name ON %s TYPE string;`, entities),
		fmt.Sprintf(`DEFINE FIELD qualified_name ON %s TYPE option<string>;`, entities),
		fmt.Sprintf(`DEFINE FIELD created_at ON %s TYPE datetime VALUE time::now();`, entities),
		fmt.Sprintf(`DEFINE FIELD updated_at ON %s TYPE datetime VALUE time::now();`, entities),
		fmt.Sprintf(`DEFINE INDEX idx_%s_name ON %s FIELDS name;`, entities, entities),
		fmt.Sprintf(`DEFINE INDEX idx_%s_qualified_name ON %s FIELDS type, qualified_name;`, entities, entities),

		fmt.Sprintf(`DEFINE TABLE %s SCHEMALESS;`, relationships),
		fmt.Sprintf(`DEFINE FIELD source_id ON %s TYPE string;`, relationships),
		fmt.Sprintf(`DEFINE FIELD target_id ON %s TYPE string;`, relationships),
		fmt.Sprintf(`DEFINE FIELD relationship ON %s TYPE string;`, relationships),
		fmt.Sprintf(`DEFINE FIELD weight ON %s TYPE float DEFAULT 1.0;`, relationships),
		fmt.Sprintf(`DEFINE FIELD created_at ON %s TYPE datetime VALUE time::now();`, relationships),
		fmt.Sprintf(`DEFINE INDEX idx_%s_source ON %s FIELDS source_id;`, relationships, relationships),
		fmt.Sprintf(`DEFINE INDEX idx_%s_target ON %s FIELDS target_id;`, relationships, relationships),

		fmt.Sprintf(`DEFINE TABLE %s SCHEMALESS;`, embeddings),
		fmt.Sprintf(`DEFINE FIELD entity_id ON %s TYPE string;`, embeddings),
		fmt.Sprintf(`DEFINE FIELD vector ON %s TYPE array<float>;`, embeddings),
		fmt.Sprintf(`DEFINE INDEX idx_%s_entity ON %s FIELDS entity_id UNIQUE;`, embeddings, embeddings),
		fmt.Sprintf(`DEFINE INDEX idx_%s_vector ON %s FIELDS vector MTREE DIMENSION %d;`, embeddings, embeddings, embeddingDimension),

		fmt.Sprintf(`DEFINE TABLE %s SCHEMALESS;`, feedback),
		fmt.Sprintf(`DEFINE FIELD query_id ON %s TYPE string;`, feedback),
		fmt.Sprintf(`DEFINE FIELD entity_id ON %s TYPE string;`, feedback),
		fmt.Sprintf(`DEFINE FIELD signal ON %s TYPE string;`, feedback),
		fmt.Sprintf(`DEFINE FIELD timestamp ON %s TYPE datetime VALUE time::now();`, feedback),
		fmt.Sprintf(`DEFINE INDEX idx_%s_entity ON %s FIELDS entity_id;`, feedback, feedback),
	}

	for _, stmt := range statements {
		if _, err := s.rows(stmt, nil); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// normalizeVector pads or truncates an embedding to the MTREE index's
// fixed dimension.
func normalizeVector(v []float32) []float32 {
	if len(v) == embeddingDimension {
		return v
	}
	out := make([]float32, embeddingDimension)
	copy(out, v)
	return out
}
