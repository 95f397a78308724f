package surreal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
)

// recordID builds a SurrealDB thing reference (table:id) from a table
// name and an application-level id. The id is wrapped in backticks so
// ids containing hyphens (such as uuids) parse as a single record id.
func recordID(table, id string) string {
	return fmt.Sprintf("%s:`%s`", table, id)
}

// stripTable strips a "table:id" thing reference down to the bare id.
func stripTable(thing string) string {
	if idx := strings.LastIndex(thing, ":"); idx >= 0 {
		return thing[idx+1:]
	}
	return thing
}

// rows runs query and flattens every statement's rows into one slice,
// normalizing SurrealDB record-id/datetime wrapper shapes first.
func (s *Store) rows(query string, params map[string]interface{}) ([]map[string]interface{}, error) {
	results, err := surrealdb.Query[[]map[string]interface{}](s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("surreal query: %w", err)
	}
	if results == nil {
		return nil, nil
	}

	var out []map[string]interface{}
	for _, r := range *results {
		out = append(out, r)
	}
	return normalizeRows(out), nil
}

// decodeRows marshals normalized rows to JSON and unmarshals into T.
func decodeRows[T any](rows []map[string]interface{}) ([]T, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal rows: %w", err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal rows: %w", err)
	}
	return out, nil
}

// normalizeRows converts SurrealDB's {id, tb} / {Datetime: ...} wrapper
// shapes into plain strings.
func normalizeRows(rows []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, len(rows))
	for i, r := range rows {
		out[i], _ = normalizeValue(r).(map[string]interface{})
		if out[i] == nil {
			out[i] = r
		}
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]interface{}:
		if dt, ok := val["Datetime"]; ok && len(val) == 1 {
			return dt
		}
		if id, hasID := val["id"]; hasID {
			if tb, hasTB := val["tb"]; hasTB && len(val) == 2 {
				return fmt.Sprintf("%v:%v", tb, id)
			}
		}
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getFloat64(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	}
	return 0
}

func getInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

func getTime(m map[string]interface{}, key string) time.Time {
	v, ok := m[key]
	if !ok {
		return time.Time{}
	}
	switch t := v.(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	case time.Time:
		return t
	}
	return time.Time{}
}
