package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/contextforge/retrieval-core/internal/store"
)

// ---- FeedbackStore ----
//
// An append-only log plus an on-demand aggregation into store.EntityStats.
// The multiplier itself lives in internal/feedback; this store only counts.

func (s *Store) Record(ctx context.Context, queryID, entityID string, signal store.FeedbackSignal) error {
	return s.RecordBatch(ctx, []store.FeedbackRecord{{
		ID:       uuid.NewString(),
		QueryID:  queryID,
		EntityID: entityID,
		Signal:   signal,
	}})
}

func (s *Store) RecordBatch(ctx context.Context, records []store.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = now
		}
		s.feedback = append(s.feedback, r)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context, entityID string) (store.EntityStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats store.EntityStats
	for _, r := range s.feedback {
		if r.EntityID != entityID {
			continue
		}
		stats.TotalReturns++
		switch r.Signal {
		case store.SignalUsed:
			stats.UsedCount++
		case store.SignalIgnored:
			stats.IgnoredCount++
		case store.SignalExplicitPositive:
			stats.PositiveCount++
		case store.SignalExplicitNegative:
			stats.NegativeCount++
		}
	}
	if stats.TotalReturns > 0 {
		stats.UseRate = float64(stats.UsedCount) / float64(stats.TotalReturns)
	} else {
		stats.UseRate = 0.5
	}
	return stats, nil
}
