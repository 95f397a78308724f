// Package search implements multi-strategy retrieval: keyword, semantic,
// graph and fuzzy strategies run independently and are fused by
// per-entity maximum score, then reranked by heuristic boosts. Each
// strategy is a tagged variant sharing one run contract.
package search

import (
	"context"

	"github.com/contextforge/retrieval-core/internal/store"
)

// Name identifies a search strategy.
type Name string

const (
	Keyword  Name = "keyword"
	Semantic Name = "semantic"
	Graph    Name = "graph"
	Fuzzy    Name = "fuzzy"
)

// Result is one candidate surfaced by a strategy.
type Result struct {
	Entity store.Entity
	Score  float64
	Source Name
}

// MentionRef is the subset of a parsed query mention a strategy needs
// (decoupled from internal/query to keep this package's input narrow).
type MentionRef struct {
	Text string
}

// Opts narrows a single strategy run.
type Opts struct {
	EntityTypes    []store.EntityType
	Limit          int
	QueryEmbedding []float32
	Mentions       []MentionRef
	Filters        Filters
}

// Filters mirrors the subset of query.Filters the reranker and strategies
// care about, again decoupled from internal/query.
type Filters struct {
	Types []string
	Files []string
}

// Strategy is the common contract every search strategy implements.
type Strategy interface {
	Name() Name
	Run(ctx context.Context, ps store.ProjectStore, query string, opts Opts) ([]Result, error)
}
