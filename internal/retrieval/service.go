// Package retrieval exposes the single pipeline operation every other
// package in this module exists to support: QueryContext(projectID,
// query, options) -> ContextResult. It owns per-project memoization of
// the handles the pipeline steps need.
package retrieval

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/contextforge/retrieval-core/internal/assemble"
	"github.com/contextforge/retrieval-core/internal/feedback"
	"github.com/contextforge/retrieval-core/internal/gate"
	"github.com/contextforge/retrieval-core/internal/query"
	"github.com/contextforge/retrieval-core/internal/resolver"
	"github.com/contextforge/retrieval-core/internal/search"
	"github.com/contextforge/retrieval-core/internal/store"
	"github.com/contextforge/retrieval-core/pkg/completion"
	"github.com/contextforge/retrieval-core/pkg/embedder"
)

// Options narrows one QueryContext call.
type Options struct {
	Gate          bool
	HyDE          bool
	Decompose     bool
	Expand        bool
	IncludeTypes  []store.EntityType
	MaxResults    int
	MaxTokens     int
	MinScore      float64
	Strategies    []search.Name
	Format        assemble.Format
	GroupByType   bool
	IncludeSources bool
}

// DefaultOptions mirrors the spec's defaults for an unqualified call.
func DefaultOptions() Options {
	return Options{
		Gate:           true,
		Expand:         true,
		MaxResults:     20,
		MaxTokens:      4000,
		MinScore:       0.1,
		Format:         assemble.FormatMarkdown,
		IncludeSources: true,
	}
}

// ContextResult is QueryContext's return value.
type ContextResult struct {
	Context    string
	Sources    []assemble.Source
	Confidence float64
	TokensUsed int
	Truncated  bool
}

// projectHandles bundles the per-project objects the pipeline needs,
// memoized so repeated queries against the same project reuse them.
type projectHandles struct {
	store      store.ProjectStore
	multi      *search.MultiStrategy
	resolver   *resolver.Resolver
	gate       *gate.Gate
	learner    *feedback.Learner
}

// Deps are the collaborators a Service wires per project. ProjectStore is
// required; everything else degrades gracefully when nil (no completion
// provider means no HyDE; no embedder means no semantic strategy results
// and no HyDE). The gate's slow path uses GateOpts.Provider, not
// CompletionProvider.
type Deps struct {
	ProjectStore        func(projectID string) (store.ProjectStore, error)
	Embedder            embedder.Embedder
	CompletionProvider   completion.Provider
	GateOpts            gate.Opts
	SynonymTable        *query.SynonymTable
}

// Service runs the retrieval pipeline for any number of projects, caching
// each project's derived handles.
type Service struct {
	deps Deps

	mu    sync.Mutex
	cache map[string]*projectHandles
}

// New returns a Service bound to deps.
func New(deps Deps) *Service {
	return &Service{deps: deps, cache: make(map[string]*projectHandles)}
}

// ClearProjectCache evicts projectID's memoized handles.
func (s *Service) ClearProjectCache(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, projectID)
}

func (s *Service) handles(projectID string) (*projectHandles, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.cache[projectID]; ok {
		return h, nil
	}

	ps, err := s.deps.ProjectStore(projectID)
	if err != nil {
		return nil, err
	}

	gr := search.GraphStrategy{Resolver: resolver.New(ps, s.deps.Embedder)}
	multi := search.New(gr)

	h := &projectHandles{
		store:    ps,
		multi:    multi,
		resolver: gr.Resolver,
		gate:     gate.New(s.deps.GateOpts),
		learner:  feedback.New(ps.Feedback),
	}
	s.cache[projectID] = h
	return h, nil
}

// QueryContext runs the full retrieval pipeline: gate, parse, embed,
// search, adjust for feedback, expand, and assemble a context string.
func (s *Service) QueryContext(ctx context.Context, projectID, rawQuery string, opts Options) (ContextResult, error) {
	h, err := s.handles(projectID)
	if err != nil {
		return ContextResult{}, err
	}

	if opts.Gate {
		decision, err := h.gate.Decide(ctx, rawQuery, "", entityTypeStrings(opts.IncludeTypes))
		if err != nil {
			return ContextResult{}, err
		}
		if !decision.ShouldRetrieve {
			return ContextResult{Confidence: 0}, nil
		}
	}

	parsed := query.Parse(rawQuery, query.ParseOpts{Synonyms: s.deps.SynonymTable, Decompose: opts.Decompose})

	var queryEmbedding []float32
	if opts.HyDE {
		queryEmbedding = search.TryHyDE(ctx, h.store, s.deps.CompletionProvider, s.deps.Embedder, rawQuery)
	}
	if queryEmbedding == nil && s.deps.Embedder != nil {
		if vec, err := s.deps.Embedder.EmbedQuery(ctx, rawQuery); err == nil {
			queryEmbedding = vec
		}
	}

	mentions := make([]search.MentionRef, len(parsed.Mentions))
	for i, m := range parsed.Mentions {
		mentions[i] = search.MentionRef{Text: m.Text}
	}

	searchOpts := search.Opts{
		EntityTypes:    opts.IncludeTypes,
		Limit:          opts.MaxResults,
		QueryEmbedding: queryEmbedding,
		Mentions:       mentions,
		Filters:        search.Filters{Types: parsed.Filters.Types, Files: parsed.Filters.Files},
	}

	var results []search.Result
	if opts.Decompose && parsed.WasDecomposed {
		contributions := make([][]search.Result, 0, len(parsed.SubQueries))
		for _, sub := range parsed.SubQueries {
			sr, err := h.multi.Search(ctx, h.store, sub.Text, opts.Strategies, searchOpts)
			if err != nil {
				return ContextResult{}, err
			}
			contributions = append(contributions, search.WeightedContribution(sr, sub.Weight))
		}
		results = search.FuseWeighted(contributions...)
	} else {
		results, err = h.multi.Search(ctx, h.store, rawQuery, opts.Strategies, searchOpts)
		if err != nil {
			return ContextResult{}, err
		}
	}

	results, err = h.learner.Adjust(ctx, results)
	if err != nil {
		return ContextResult{}, err
	}

	if opts.MinScore > 0 {
		filtered := results[:0:0]
		for _, r := range results {
			if r.Score >= opts.MinScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	confidence := computeConfidence(results)

	if opts.Expand && len(results) > 0 {
		expanded, err := assemble.Expand(ctx, h.store.Relationships, h.store.Entities, results, assemble.DefaultExpandOpts())
		if err != nil {
			return ContextResult{}, err
		}
		results = expanded
	}

	assembled := assemble.Assemble(results, assemble.Options{
		MaxTokens:      valueOr(opts.MaxTokens, 4000),
		IncludeSources: opts.IncludeSources,
		Format:         valueOrFormat(opts.Format, assemble.FormatMarkdown),
		MinRelevance:   opts.MinScore,
		GroupByType:    opts.GroupByType,
	})

	if len(results) > 0 && rawQuery != "" {
		entities := make([]store.Entity, len(results))
		for i, r := range results {
			entities[i] = r.Entity
		}
		_ = h.learner.DetectUsage(ctx, queryID(rawQuery), entities, assembled.Context)
	}

	return ContextResult{
		Context:    assembled.Context,
		Sources:    assembled.Sources,
		Confidence: confidence,
		TokensUsed: assembled.TokenCount,
		Truncated:  assembled.Truncated,
	}, nil
}

// computeConfidence is a weighted average of the top-k (k=min(5,n))
// scores with decaying weights 0.7^i, clamped to [0, 1].
func computeConfidence(results []search.Result) float64 {
	if len(results) == 0 {
		return 0
	}
	k := len(results)
	if k > 5 {
		k = 5
	}

	var weightedSum, weightTotal float64
	for i := 0; i < k; i++ {
		w := math.Pow(0.7, float64(i))
		weightedSum += results[i].Score * w
		weightTotal += w
	}
	if weightTotal == 0 {
		return 0
	}
	confidence := weightedSum / weightTotal
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

func entityTypeStrings(types []store.EntityType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func valueOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func valueOrFormat(v, fallback assemble.Format) assemble.Format {
	if v == "" {
		return fallback
	}
	return v
}

// queryID derives a stable key for feedback attribution when the caller
// does not track query ids explicitly; it is intentionally coarse
// (exact-text keyed) since feedback aggregates by entity, not by query.
func queryID(rawQuery string) string {
	return "q:" + strings.TrimSpace(strings.ToLower(rawQuery))
}
