package search

import (
	"sort"
	"strings"
	"time"

	"github.com/contextforge/retrieval-core/internal/store"
)

// Reranker adjusts fused scores before the final cut.
type Reranker interface {
	Rerank(results []Result, opts Opts) []Result
}

// HeuristicReranker boosts exact entity-mention matches, type/file filter
// matches, and fresher entities.
type HeuristicReranker struct {
	// Now lets tests pin "current time" for the recency boost; nil uses
	// time.Now.
	Now func() time.Time
}

const (
	mentionMatchBoost = 0.2
	typeFilterBoost   = 0.1
	fileFilterBoost   = 0.1
	recencyBoost      = 0.05
	recencyWindow     = 7 * 24 * time.Hour
)

func (r HeuristicReranker) Rerank(results []Result, opts Opts) []Result {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	mentionTexts := map[string]struct{}{}
	for _, m := range opts.Mentions {
		mentionTexts[strings.ToLower(m.Text)] = struct{}{}
	}

	out := make([]Result, len(results))
	copy(out, results)

	for i := range out {
		e := out[i].Entity
		boost := 0.0

		if _, ok := mentionTexts[strings.ToLower(e.Name)]; ok {
			boost += mentionMatchBoost
		} else if _, ok := mentionTexts[strings.ToLower(e.QualifiedName)]; ok {
			boost += mentionMatchBoost
		}

		if matchesTypeFilter(e, opts.Filters.Types) {
			boost += typeFilterBoost
		}
		if matchesFileFilter(e, opts.Filters.Files) {
			boost += fileFilterBoost
		}
		if !e.UpdatedAt.IsZero() && now().Sub(e.UpdatedAt) <= recencyWindow {
			boost += recencyBoost
		}

		out[i].Score += boost
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Entity.ID < out[j].Entity.ID
	})
	return out
}

func matchesTypeFilter(e store.Entity, types []string) bool {
	if len(types) == 0 {
		return false
	}
	for _, t := range types {
		if string(e.Type) == t {
			return true
		}
	}
	return false
}

func matchesFileFilter(e store.Entity, files []string) bool {
	if len(files) == 0 || e.FilePath == "" {
		return false
	}
	for _, f := range files {
		if strings.Contains(e.FilePath, f) {
			return true
		}
	}
	return false
}
