package surreal

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/contextforge/retrieval-core/internal/store"
)

type relationshipStore Store

func (s *relationshipStore) Create(ctx context.Context, in store.RelationshipInput) (*store.Relationship, error) {
	return s.upsert(ctx, in, false)
}

func (s *relationshipStore) Upsert(ctx context.Context, in store.RelationshipInput) (*store.Relationship, error) {
	return s.upsert(ctx, in, true)
}

func (s *relationshipStore) upsert(ctx context.Context, in store.RelationshipInput, dedupe bool) (*store.Relationship, error) {
	table := (*Store)(s).table("relationships")
	weight := 1.0
	if in.Weight != nil {
		weight = *in.Weight
	}
	metadata := in.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	if dedupe {
		existing, err := s.findExisting(ctx, in.SourceID, in.TargetID, in.Relationship)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			query := fmt.Sprintf("UPDATE %s MERGE { weight: $weight, metadata: $metadata };", recordID(table, existing.ID))
			rows, err := (*Store)(s).rows(query, map[string]interface{}{"weight": weight, "metadata": metadata})
			if err != nil {
				return nil, fmt.Errorf("upsert relationship: %w", err)
			}
			return decodeRelationship(rows)
		}
	}

	id := uuid.NewString()
	query := fmt.Sprintf(`
		CREATE %s CONTENT {
			id: $id,
			source_id: $source_id,
			target_id: $target_id,
			relationship: $relationship,
			weight: $weight,
			metadata: $metadata,
			created_at: time::now()
		};
	`, recordID(table, id))

	rows, err := (*Store)(s).rows(query, map[string]interface{}{
		"id":         id,
		"source_id":  in.SourceID,
		"target_id":  in.TargetID,
		"relationship": string(in.Relationship),
		"weight":     weight,
		"metadata":   metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("create relationship: %w", err)
	}
	return decodeRelationship(rows)
}

func (s *relationshipStore) findExisting(ctx context.Context, sourceID, targetID string, relType store.RelationshipType) (*store.Relationship, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE source_id = $source_id AND target_id = $target_id AND relationship = $relationship LIMIT 1;", (*Store)(s).table("relationships"))
	rows, err := (*Store)(s).rows(query, map[string]interface{}{"source_id": sourceID, "target_id": targetID, "relationship": string(relType)})
	if err != nil {
		return nil, fmt.Errorf("find existing relationship: %w", err)
	}
	return decodeRelationship(rows)
}

func (s *relationshipStore) CreateMany(ctx context.Context, ins []store.RelationshipInput) ([]store.Relationship, error) {
	out := make([]store.Relationship, 0, len(ins))
	for _, in := range ins {
		r, err := s.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *relationshipStore) Get(ctx context.Context, id string) (*store.Relationship, error) {
	query := fmt.Sprintf("SELECT * FROM %s;", recordID((*Store)(s).table("relationships"), id))
	rows, err := (*Store)(s).rows(query, nil)
	if err != nil {
		return nil, fmt.Errorf("get relationship: %w", err)
	}
	return decodeRelationship(rows)
}

func (s *relationshipStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE %s;", recordID((*Store)(s).table("relationships"), id))
	_, err := (*Store)(s).rows(query, nil)
	if err != nil {
		return fmt.Errorf("delete relationship: %w", err)
	}
	return nil
}

func (s *relationshipStore) DeleteForEntity(ctx context.Context, entityID string) (int, error) {
	query := fmt.Sprintf("DELETE %s WHERE source_id = $id OR target_id = $id RETURN BEFORE;", (*Store)(s).table("relationships"))
	rows, err := (*Store)(s).rows(query, map[string]interface{}{"id": entityID})
	if err != nil {
		return 0, fmt.Errorf("delete relationships for entity: %w", err)
	}
	return len(rows), nil
}

func (s *relationshipStore) DeleteBetween(ctx context.Context, sourceID, targetID string) (int, error) {
	query := fmt.Sprintf("DELETE %s WHERE source_id = $source_id AND target_id = $target_id RETURN BEFORE;", (*Store)(s).table("relationships"))
	rows, err := (*Store)(s).rows(query, map[string]interface{}{"source_id": sourceID, "target_id": targetID})
	if err != nil {
		return 0, fmt.Errorf("delete relationships between: %w", err)
	}
	return len(rows), nil
}

func (s *relationshipStore) GetForEntity(ctx context.Context, entityID string, dir store.Direction, opts store.RelationshipQueryOpts) ([]store.Relationship, error) {
	table := (*Store)(s).table("relationships")
	var clause string
	switch dir {
	case store.DirOut:
		clause = "source_id = $id"
	case store.DirIn:
		clause = "target_id = $id"
	default:
		clause = "source_id = $id OR target_id = $id"
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE (%s)", table, clause)
	params := map[string]interface{}{"id": entityID}

	if len(opts.Types) > 0 {
		typeNames := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			typeNames[i] = string(t)
		}
		query += " AND relationship IN $types"
		params["types"] = typeNames
	}
	if opts.MinWeight != nil {
		query += " AND weight >= $min_weight"
		params["min_weight"] = *opts.MinWeight
	}
	query += " ORDER BY weight DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	query += ";"

	rows, err := (*Store)(s).rows(query, params)
	if err != nil {
		return nil, fmt.Errorf("get relationships for entity: %w", err)
	}
	return decodeRelationships(rows)
}

func (s *relationshipStore) GetByType(ctx context.Context, relType store.RelationshipType, limit int) ([]store.Relationship, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE relationship = $relationship", (*Store)(s).table("relationships"))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	query += ";"

	rows, err := (*Store)(s).rows(query, map[string]interface{}{"relationship": string(relType)})
	if err != nil {
		return nil, fmt.Errorf("get relationships by type: %w", err)
	}
	return decodeRelationships(rows)
}

func (s *relationshipStore) Exists(ctx context.Context, sourceID, targetID string, relType *store.RelationshipType) (bool, error) {
	query := fmt.Sprintf("SELECT id FROM %s WHERE source_id = $source_id AND target_id = $target_id", (*Store)(s).table("relationships"))
	params := map[string]interface{}{"source_id": sourceID, "target_id": targetID}
	if relType != nil {
		query += " AND relationship = $relationship"
		params["relationship"] = string(*relType)
	}
	query += " LIMIT 1;"

	rows, err := (*Store)(s).rows(query, params)
	if err != nil {
		return false, fmt.Errorf("check relationship existence: %w", err)
	}
	return len(rows) > 0, nil
}

func (s *relationshipStore) Count(ctx context.Context, relType *store.RelationshipType) (int, error) {
	query := fmt.Sprintf("SELECT count() FROM %s", (*Store)(s).table("relationships"))
	params := map[string]interface{}{}
	if relType != nil {
		query += " WHERE relationship = $relationship"
		params["relationship"] = string(*relType)
	}
	query += " GROUP ALL;"

	rows, err := (*Store)(s).rows(query, params)
	if err != nil {
		return 0, fmt.Errorf("count relationships: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return getInt(rows[0], "count"), nil
}

func (s *relationshipStore) GetStatsByType(ctx context.Context) (map[store.RelationshipType]int, error) {
	query := fmt.Sprintf("SELECT relationship, count() AS count FROM %s GROUP BY relationship;", (*Store)(s).table("relationships"))
	rows, err := (*Store)(s).rows(query, nil)
	if err != nil {
		return nil, fmt.Errorf("get relationship stats by type: %w", err)
	}

	out := make(map[store.RelationshipType]int, len(rows))
	for _, r := range rows {
		out[store.RelationshipType(getString(r, "relationship"))] = getInt(r, "count")
	}
	return out, nil
}

func (s *relationshipStore) GetMostConnected(ctx context.Context, limit int) ([]store.ConnectedEntity, error) {
	table := (*Store)(s).table("relationships")
	query := fmt.Sprintf(`
		SELECT id AS entity_id, count() AS degree FROM (
			SELECT source_id AS id FROM %s
			UNION ALL
			SELECT target_id AS id FROM %s
		) GROUP BY id ORDER BY degree DESC LIMIT %d;
	`, table, table, limit)

	rows, err := (*Store)(s).rows(query, nil)
	if err != nil {
		return nil, fmt.Errorf("get most connected entities: %w", err)
	}

	out := make([]store.ConnectedEntity, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.ConnectedEntity{EntityID: getString(r, "entity_id"), Degree: getInt(r, "degree")})
	}
	return out, nil
}

func (s *relationshipStore) GetAverageDegree(ctx context.Context) (float64, error) {
	total, err := s.Count(ctx, nil)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		SELECT count() AS n FROM (
			SELECT source_id FROM %s
			UNION
			SELECT target_id FROM %s
		) GROUP ALL;
	`, (*Store)(s).table("relationships"), (*Store)(s).table("relationships"))
	rows, err := (*Store)(s).rows(query, nil)
	if err != nil {
		return 0, fmt.Errorf("get distinct entity count: %w", err)
	}
	distinct := 0
	if len(rows) > 0 {
		distinct = getInt(rows[0], "n")
	}
	if distinct == 0 {
		return 0, nil
	}
	return float64(total*2) / float64(distinct), nil
}

func decodeRelationship(rows []map[string]interface{}) (*store.Relationship, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	rels, err := decodeRelationships(rows[:1])
	if err != nil || len(rels) == 0 {
		return nil, err
	}
	return &rels[0], nil
}

func decodeRelationships(rows []map[string]interface{}) ([]store.Relationship, error) {
	out := make([]store.Relationship, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.Relationship{
			ID:           stripTable(getString(r, "id")),
			SourceID:     stripID(getString(r, "source_id")),
			TargetID:     stripID(getString(r, "target_id")),
			Relationship: store.RelationshipType(getString(r, "relationship")),
			Weight:       getFloat64(r, "weight"),
			Metadata:     getMap(r, "metadata"),
			CreatedAt:    getTime(r, "created_at"),
		})
	}
	return out, nil
}

// stripID normalizes a stored endpoint value back to a bare entity id:
// endpoints are written as plain application ids, but some SurrealDB
// drivers round-trip string fields unchanged, so this only strips a
// table prefix if one slipped in.
func stripID(v string) string {
	if strings.Contains(v, ":") {
		return stripTable(v)
	}
	return v
}
