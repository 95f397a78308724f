package search

import "sort"

// Fuse accumulates each entity id's score as the maximum across all
// supplied result sets, rather than summing them.
func Fuse(resultSets ...[]Result) []Result {
	best := map[string]Result{}
	for _, results := range resultSets {
		for _, r := range results {
			if existing, ok := best[r.Entity.ID]; !ok || r.Score > existing.Score {
				best[r.Entity.ID] = r
			}
		}
	}

	out := make([]Result, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Entity.ID < out[j].Entity.ID
	})
	return out
}

// WeightedContribution scales a sub-query's results by weight before they
// are fused into the shared accumulator.
func WeightedContribution(results []Result, weight float64) []Result {
	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = r
		out[i].Score = r.Score * weight
	}
	return out
}

// FuseWeighted fuses already-weighted sub-query result sets: the
// accumulation across sub-queries again takes the maximum of weighted
// contributions, via the same Fuse rule.
func FuseWeighted(weightedSets ...[]Result) []Result {
	return Fuse(weightedSets...)
}
