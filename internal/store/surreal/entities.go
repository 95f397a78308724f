package surreal

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/contextforge/retrieval-core/internal/apperr"
	"github.com/contextforge/retrieval-core/internal/store"
)

type entityStore Store

func (s *entityStore) Create(ctx context.Context, e *store.Entity) (*store.Entity, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	table := (*Store)(s).table("entities")
	query := fmt.Sprintf(`
		CREATE %s CONTENT {
			id: $id,
			type: $type,
			name: $name,
			qualified_name: $qualified_name,
			file_path: $file_path,
			start_line: $start_line,
			end_line: $end_line,
			content: $content,
			summary: $summary,
			metadata: $metadata,
			created_at: time::now(),
			updated_at: time::now()
		};
	`, recordID(table, e.ID))

	rows, err := (*Store)(s).rows(query, entityParams(e))
	if err != nil {
		return nil, fmt.Errorf("create entity: %w", err)
	}
	return decodeEntity(rows)
}

func (s *entityStore) Get(ctx context.Context, id string) (*store.Entity, error) {
	rows, err := (*Store)(s).rows(fmt.Sprintf("SELECT * FROM %s;", recordID((*Store)(s).table("entities"), id)), nil)
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return decodeEntity(rows)
}

func (s *entityStore) GetByQualifiedName(ctx context.Context, entityType store.EntityType, qualifiedName string) (*store.Entity, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE type = $type AND qualified_name = $qualified_name LIMIT 1;", (*Store)(s).table("entities"))
	rows, err := (*Store)(s).rows(query, map[string]interface{}{"type": string(entityType), "qualified_name": qualifiedName})
	if err != nil {
		return nil, fmt.Errorf("get entity by qualified name: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return decodeEntity(rows)
}

func (s *entityStore) FindByName(ctx context.Context, name string, entityType *store.EntityType) ([]store.Entity, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE name = $name", (*Store)(s).table("entities"))
	params := map[string]interface{}{"name": name}
	if entityType != nil {
		query += " AND type = $type"
		params["type"] = string(*entityType)
	}
	query += ";"

	rows, err := (*Store)(s).rows(query, params)
	if err != nil {
		return nil, fmt.Errorf("find entities by name: %w", err)
	}
	return decodeEntities(rows)
}

func (s *entityStore) FindByPrefix(ctx context.Context, prefix string, limit int) ([]store.Entity, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE string::lowercase(name) CONTAINSALL string::lowercase($prefix)", (*Store)(s).table("entities"))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	query += ";"

	rows, err := (*Store)(s).rows(query, map[string]interface{}{"prefix": prefix})
	if err != nil {
		return nil, fmt.Errorf("find entities by prefix: %w", err)
	}
	return decodeEntities(rows)
}

func (s *entityStore) Update(ctx context.Context, e *store.Entity) (*store.Entity, error) {
	table := (*Store)(s).table("entities")
	query := fmt.Sprintf(`
		UPDATE %s MERGE {
			type: $type,
			name: $name,
			qualified_name: $qualified_name,
			file_path: $file_path,
			start_line: $start_line,
			end_line: $end_line,
			content: $content,
			summary: $summary,
			metadata: $metadata,
			updated_at: time::now()
		};
	`, recordID(table, e.ID))

	rows, err := (*Store)(s).rows(query, entityParams(e))
	if err != nil {
		return nil, fmt.Errorf("update entity: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("surreal.Entities.Update", fmt.Errorf("entity %s", e.ID))
	}
	return decodeEntity(rows)
}

func (s *entityStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE %s;", recordID((*Store)(s).table("entities"), id))
	_, err := (*Store)(s).rows(query, nil)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	return nil
}

func (s *entityStore) GetMany(ctx context.Context, ids []string) ([]store.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE id IN $ids;", (*Store)(s).table("entities"))
	table := (*Store)(s).table("entities")
	recordIDs := make([]string, len(ids))
	for i, id := range ids {
		recordIDs[i] = recordID(table, id)
	}
	rows, err := (*Store)(s).rows(query, map[string]interface{}{"ids": recordIDs})
	if err != nil {
		return nil, fmt.Errorf("get many entities: %w", err)
	}
	return decodeEntities(rows)
}

func (s *entityStore) ListByType(ctx context.Context, entityType store.EntityType, limit int) ([]store.Entity, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE type = $type", (*Store)(s).table("entities"))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	query += ";"

	rows, err := (*Store)(s).rows(query, map[string]interface{}{"type": string(entityType)})
	if err != nil {
		return nil, fmt.Errorf("list entities by type: %w", err)
	}
	return decodeEntities(rows)
}

func entityParams(e *store.Entity) map[string]interface{} {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return map[string]interface{}{
		"id":             e.ID,
		"type":           string(e.Type),
		"name":           e.Name,
		"qualified_name": e.QualifiedName,
		"file_path":      e.FilePath,
		"start_line":     e.StartLine,
		"end_line":       e.EndLine,
		"content":        e.Content,
		"summary":        e.Summary,
		"metadata":       metadata,
	}
}

func decodeEntity(rows []map[string]interface{}) (*store.Entity, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	entities, err := decodeEntities(rows[:1])
	if err != nil || len(entities) == 0 {
		return nil, err
	}
	return &entities[0], nil
}

func decodeEntities(rows []map[string]interface{}) ([]store.Entity, error) {
	out := make([]store.Entity, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.Entity{
			ID:            stripTable(getString(r, "id")),
			Type:          store.EntityType(getString(r, "type")),
			Name:          getString(r, "name"),
			QualifiedName: getString(r, "qualified_name"),
			FilePath:      getString(r, "file_path"),
			StartLine:     getInt(r, "start_line"),
			EndLine:       getInt(r, "end_line"),
			Content:       getString(r, "content"),
			Summary:       getString(r, "summary"),
			Metadata:      getMap(r, "metadata"),
			CreatedAt:     getTime(r, "created_at"),
			UpdatedAt:     getTime(r, "updated_at"),
		})
	}
	return out, nil
}
