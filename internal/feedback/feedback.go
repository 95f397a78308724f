// Package feedback learns per-entity preference from past retrieval
// usage: it records signals, detects usage from response text, and turns
// accumulated statistics into a score multiplier applied during
// re-ranking.
package feedback

import (
	"context"
	"sort"
	"strings"

	"github.com/contextforge/retrieval-core/internal/search"
	"github.com/contextforge/retrieval-core/internal/store"
)

const minSignalsForMultiplier = 5

// Multiplier turns accumulated statistics into the [0.3, 1.7] scalar
// applied to a candidate's score. Fewer than 5 total signals means
// insufficient data, so the neutral 1.0 applies.
func Multiplier(stats store.EntityStats) float64 {
	total := stats.TotalReturns
	if total < minSignalsForMultiplier {
		return 1.0
	}

	base := 0.5 + stats.UseRate
	base += 0.1 * float64(min(stats.PositiveCount, 3))
	base -= 0.15 * float64(min(stats.NegativeCount, 3))

	if base < 0.3 {
		base = 0.3
	}
	if base > 1.7 {
		base = 1.7
	}
	return base
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Learner records feedback and adjusts candidate scores against one
// project's feedback store.
type Learner struct {
	store store.FeedbackStore
}

// New returns a Learner bound to a feedback store.
func New(fs store.FeedbackStore) *Learner {
	return &Learner{store: fs}
}

// Record logs a single feedback signal.
func (l *Learner) Record(ctx context.Context, queryID, entityID string, signal store.FeedbackSignal) error {
	return l.store.Record(ctx, queryID, entityID, signal)
}

// knownNames returns the identifiers detectUsage checks responseText
// against: name, the last segment of qualifiedName, and any aliases.
func knownNames(e store.Entity) []string {
	names := []string{e.Name}
	if e.QualifiedName != "" {
		segments := strings.Split(e.QualifiedName, "::")
		names = append(names, segments[len(segments)-1])
	}
	names = append(names, e.Aliases()...)
	return names
}

// DetectUsage emits one "used" or "ignored" signal per candidate entity,
// judging an entity used if any of its known names appears as a
// case-insensitive substring of responseText.
func (l *Learner) DetectUsage(ctx context.Context, queryID string, entities []store.Entity, responseText string) error {
	lowerResponse := strings.ToLower(responseText)

	var records []store.FeedbackRecord
	for _, e := range entities {
		signal := store.SignalIgnored
		for _, name := range knownNames(e) {
			if name == "" {
				continue
			}
			if strings.Contains(lowerResponse, strings.ToLower(name)) {
				signal = store.SignalUsed
				break
			}
		}
		records = append(records, store.FeedbackRecord{QueryID: queryID, EntityID: e.ID, Signal: signal})
	}

	return l.store.RecordBatch(ctx, records)
}

// Adjust multiplies each candidate's score by its feedback multiplier and
// re-sorts descending.
func (l *Learner) Adjust(ctx context.Context, results []search.Result) ([]search.Result, error) {
	out := make([]search.Result, len(results))
	copy(out, results)

	for i := range out {
		stats, err := l.store.Stats(ctx, out[i].Entity.ID)
		if err != nil {
			return nil, err
		}
		out[i].Score *= Multiplier(stats)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Entity.ID < out[j].Entity.ID
	})
	return out, nil
}
