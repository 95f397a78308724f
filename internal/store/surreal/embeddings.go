package surreal

import (
	"context"
	"fmt"

	"github.com/contextforge/retrieval-core/internal/store"
)

type embeddingIndex Store

// Upsert replaces the active vector for an entity: an UPSERT keyed on
// entity_id avoids a read-then-write race on re-embed.
func (s *embeddingIndex) Upsert(ctx context.Context, entityID string, vector []float32) error {
	table := (*Store)(s).table("embeddings")
	query := fmt.Sprintf(`
		UPSERT %s CONTENT {
			entity_id: $entity_id,
			vector: $vector,
			updated_at: time::now()
		};
	`, recordID(table, entityID))

	_, err := (*Store)(s).rows(query, map[string]interface{}{
		"entity_id": entityID,
		"vector":    normalizeVector(vector),
	})
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}
	return nil
}

func (s *embeddingIndex) DeleteForEntity(ctx context.Context, entityID string) error {
	query := fmt.Sprintf("DELETE %s;", recordID((*Store)(s).table("embeddings"), entityID))
	_, err := (*Store)(s).rows(query, nil)
	if err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	return nil
}

// FindSimilarToVector runs a k-nearest-neighbor search using the MTREE
// vector index defined in schema.go, scoring candidates by cosine
// similarity.
func (s *embeddingIndex) FindSimilarToVector(ctx context.Context, vector []float32, opts store.FindSimilarOpts) ([]store.EmbeddingMatch, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	embeddings := (*Store)(s).table("embeddings")
	entities := (*Store)(s).table("entities")

	query := fmt.Sprintf(`
		SELECT entity_id, vector::similarity::cosine(vector, $vector) AS score
		FROM %s
		WHERE vector <|%d|> $vector
	`, embeddings, limit)
	params := map[string]interface{}{"vector": normalizeVector(vector)}

	if len(opts.EntityTypes) > 0 {
		typeNames := make([]string, len(opts.EntityTypes))
		for i, t := range opts.EntityTypes {
			typeNames[i] = string(t)
		}
		query += fmt.Sprintf(" AND entity_id IN (SELECT VALUE id FROM %s WHERE type IN $types)", entities)
		params["types"] = typeNames
	}

	query += " ORDER BY score DESC;"

	rows, err := (*Store)(s).rows(query, params)
	if err != nil {
		return nil, fmt.Errorf("find similar to vector: %w", err)
	}

	out := make([]store.EmbeddingMatch, 0, len(rows))
	for _, r := range rows {
		score := getFloat64(r, "score")
		if opts.Threshold > 0 && score < opts.Threshold {
			continue
		}
		out = append(out, store.EmbeddingMatch{EntityID: stripID(getString(r, "entity_id")), Score: score})
	}
	return out, nil
}

func (s *embeddingIndex) FindSimilarToEntity(ctx context.Context, entityID string, opts store.FindSimilarOpts) ([]store.EmbeddingMatch, error) {
	query := fmt.Sprintf("SELECT vector FROM %s;", recordID((*Store)(s).table("embeddings"), entityID))
	rows, err := (*Store)(s).rows(query, nil)
	if err != nil {
		return nil, fmt.Errorf("get entity vector: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	raw, _ := rows[0]["vector"].([]interface{})
	vector := make([]float32, len(raw))
	for i, v := range raw {
		if f, ok := v.(float64); ok {
			vector[i] = float32(f)
		}
	}

	matches, err := s.FindSimilarToVector(ctx, vector, opts)
	if err != nil {
		return nil, err
	}

	out := matches[:0]
	for _, m := range matches {
		if m.EntityID == entityID {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
