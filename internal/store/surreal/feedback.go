package surreal

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/contextforge/retrieval-core/internal/store"
)

type feedbackStore Store

func (s *feedbackStore) Record(ctx context.Context, queryID, entityID string, signal store.FeedbackSignal) error {
	return s.RecordBatch(ctx, []store.FeedbackRecord{{
		ID:       uuid.NewString(),
		QueryID:  queryID,
		EntityID: entityID,
		Signal:   signal,
	}})
}

func (s *feedbackStore) RecordBatch(ctx context.Context, records []store.FeedbackRecord) error {
	table := (*Store)(s).table("feedback")
	for _, r := range records {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		query := fmt.Sprintf(`
			CREATE %s CONTENT {
				id: $id,
				query_id: $query_id,
				entity_id: $entity_id,
				signal: $signal,
				timestamp: time::now()
			};
		`, recordID(table, id))

		_, err := (*Store)(s).rows(query, map[string]interface{}{
			"id":        id,
			"query_id":  r.QueryID,
			"entity_id": r.EntityID,
			"signal":    string(r.Signal),
		})
		if err != nil {
			return fmt.Errorf("record feedback: %w", err)
		}
	}
	return nil
}

// Stats aggregates the append-only feedback log into the counts the
// relevance-feedback multiplier needs, computed on demand rather than
// maintained incrementally.
func (s *feedbackStore) Stats(ctx context.Context, entityID string) (store.EntityStats, error) {
	query := fmt.Sprintf(`
		SELECT signal, count() AS count FROM %s
		WHERE entity_id = $entity_id
		GROUP BY signal;
	`, (*Store)(s).table("feedback"))

	rows, err := (*Store)(s).rows(query, map[string]interface{}{"entity_id": entityID})
	if err != nil {
		return store.EntityStats{}, fmt.Errorf("get feedback stats: %w", err)
	}

	var stats store.EntityStats
	for _, r := range rows {
		count := getInt(r, "count")
		switch store.FeedbackSignal(getString(r, "signal")) {
		case store.SignalUsed:
			stats.UsedCount = count
		case store.SignalIgnored:
			stats.IgnoredCount = count
		case store.SignalExplicitPositive:
			stats.PositiveCount = count
		case store.SignalExplicitNegative:
			stats.NegativeCount = count
		}
	}

	stats.TotalReturns = stats.UsedCount + stats.IgnoredCount
	if stats.TotalReturns > 0 {
		stats.UseRate = float64(stats.UsedCount) / float64(stats.TotalReturns)
	}
	return stats, nil
}
