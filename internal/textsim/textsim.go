// Package textsim holds the approximate string-matching helpers shared by
// the entity resolver (bigram Jaccard) and the fuzzy search strategy
// (edit distance). Only the edit-distance helpers use
// github.com/agnivade/levenshtein.
package textsim

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// normalize lowercases and strips everything but letters and digits.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// bigrams returns the set of 2-character substrings of s.
func bigrams(s string) map[string]struct{} {
	if len(s) < 2 {
		if s == "" {
			return map[string]struct{}{}
		}
		return map[string]struct{}{s: {}}
	}
	runes := []rune(s)
	set := make(map[string]struct{}, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		set[string(runes[i:i+2])] = struct{}{}
	}
	return set
}

// BigramJaccard computes the Jaccard similarity of the 2-character bigram
// sets of a and b after normalization: |A∩B| / |A∪B|. Empty normalization
// on either side yields 0; equal normalization yields 1.
func BigramJaccard(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	setA, setB := bigrams(na), bigrams(nb)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for g := range setA {
		if _, ok := setB[g]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Match is a candidate ranked by edit distance from a query string.
type Match struct {
	Value    string
	Distance int
}

func normalizeForDistance(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Distance returns the Levenshtein edit distance between a and b after
// trimming and lowercasing.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(normalizeForDistance(a), normalizeForDistance(b))
}

// FindSimilar returns candidates whose edit distance to query is <=
// maxDistance (any distance is accepted when maxDistance < 0), ordered by
// ascending distance then lexicographically for deterministic output.
func FindSimilar(query string, candidates []string, maxDistance int) []Match {
	normalizedQuery := normalizeForDistance(query)

	matches := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		d := levenshtein.ComputeDistance(normalizedQuery, normalizeForDistance(candidate))
		if maxDistance >= 0 && d > maxDistance {
			continue
		}
		matches = append(matches, Match{Value: candidate, Distance: d})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance == matches[j].Distance {
			return matches[i].Value < matches[j].Value
		}
		return matches[i].Distance < matches[j].Distance
	})

	return matches
}
