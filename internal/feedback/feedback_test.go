package feedback_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextforge/retrieval-core/internal/feedback"
	"github.com/contextforge/retrieval-core/internal/search"
	"github.com/contextforge/retrieval-core/internal/store"
	"github.com/contextforge/retrieval-core/internal/store/memstore"
)

func TestMultiplierBelowMinSignalsIsNeutral(t *testing.T) {
	stats := store.EntityStats{TotalReturns: 4, UsedCount: 4, UseRate: 1.0}
	assert.Equal(t, 1.0, feedback.Multiplier(stats))
}

func TestMultiplierNineUsedOneIgnored(t *testing.T) {
	// 9 used, 1 ignored, 0 explicit -> multiplier 1.4.
	stats := store.EntityStats{TotalReturns: 10, UsedCount: 9, IgnoredCount: 1, UseRate: 0.9}
	assert.InDelta(t, 1.4, feedback.Multiplier(stats), 1e-9)
}

func TestMultiplierClampsAtBounds(t *testing.T) {
	low := store.EntityStats{TotalReturns: 10, UsedCount: 0, NegativeCount: 10, UseRate: 0}
	assert.Equal(t, 0.3, feedback.Multiplier(low))

	high := store.EntityStats{TotalReturns: 10, UsedCount: 10, PositiveCount: 10, UseRate: 1.0}
	assert.Equal(t, 1.7, feedback.Multiplier(high))
}

func TestDetectUsageMatchesNameQualifiedNameAndAliases(t *testing.T) {
	ps := memstore.New().ProjectStore()
	ctx := context.Background()
	learner := feedback.New(ps.Feedback)

	byName := store.Entity{ID: "e1", Name: "ParseQuery"}
	byQualified := store.Entity{ID: "e2", Name: "Run", QualifiedName: "pkg::Runner::Run"}
	byAlias := store.Entity{ID: "e3", Name: "X"}
	byAlias.SetAliases([]string{"WidgetFactory"})
	notMentioned := store.Entity{ID: "e4", Name: "Ghost"}

	response := "Use ParseQuery to tokenize, then call Runner.Run. The WidgetFactory builds it."

	require.NoError(t, learner.DetectUsage(ctx, "q1", []store.Entity{byName, byQualified, byAlias, notMentioned}, response))

	stats, err := ps.Feedback.Stats(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.UsedCount)

	stats, err = ps.Feedback.Stats(ctx, "e2")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.UsedCount)

	stats, err = ps.Feedback.Stats(ctx, "e3")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.UsedCount)

	stats, err = ps.Feedback.Stats(ctx, "e4")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.IgnoredCount)
}

func TestAdjustReordersWhenMultiplierCrossesNeutral(t *testing.T) {
	ps := memstore.New().ProjectStore()
	ctx := context.Background()
	learner := feedback.New(ps.Feedback)

	entityE := store.Entity{ID: "E"}
	entityF := store.Entity{ID: "F"}

	// Build E's history to exactly 9 used / 1 ignored out of 10 total.
	var records []store.FeedbackRecord
	for i := 0; i < 9; i++ {
		records = append(records, store.FeedbackRecord{QueryID: "q", EntityID: "E", Signal: store.SignalUsed})
	}
	records = append(records, store.FeedbackRecord{QueryID: "q", EntityID: "E", Signal: store.SignalIgnored})
	require.NoError(t, ps.Feedback.RecordBatch(ctx, records))
	// F has fewer than 5 signals, so its multiplier stays neutral.
	require.NoError(t, ps.Feedback.RecordBatch(ctx, []store.FeedbackRecord{{QueryID: "q", EntityID: "F", Signal: store.SignalUsed}}))

	results := []search.Result{
		{Entity: entityE, Score: 0.8},
		{Entity: entityF, Score: 0.9},
	}

	adjusted, err := learner.Adjust(ctx, results)
	require.NoError(t, err)
	require.Len(t, adjusted, 2)

	assert.Equal(t, "E", adjusted[0].Entity.ID)
	assert.InDelta(t, 1.12, adjusted[0].Score, 1e-9)
	assert.Equal(t, "F", adjusted[1].Entity.ID)
	assert.InDelta(t, 0.9, adjusted[1].Score, 1e-9)
}
