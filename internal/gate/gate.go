// Package gate decides whether a query is worth retrieving context for at
// all: a deterministic fast path for obvious cases, a completion-provider
// slow path otherwise, with an optional TTL cache.
package gate

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"time"

	"github.com/contextforge/retrieval-core/pkg/completion"
)

// Strategy names a suggested search strategy (shared vocabulary with
// internal/search).
type Strategy string

const (
	StrategyKeyword  Strategy = "keyword"
	StrategySemantic Strategy = "semantic"
	StrategyGraph    Strategy = "graph"
	StrategyFuzzy    Strategy = "fuzzy"
)

// Decision is the gate's verdict.
type Decision struct {
	ShouldRetrieve    bool
	Confidence        float64
	Reason            string
	SuggestedStrategy Strategy
}

var (
	backtickOrCode  = regexp.MustCompile("`[^`]*`|\\.[A-Za-z0-9]{1,8}\\b")
	findFamily      = regexp.MustCompile(`(?i)\b(find|locate|show|list)\b`)
	debugFamily     = regexp.MustCompile(`(?i)\b(debug|fix|why)\b.*\b(is|are)\b.*\b(failing|broken|erroring|error|bug|crashing)\b`)
	greeting        = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|thanks|thank you)\s*[!.]*\s*$`)
	confirmation    = regexp.MustCompile(`(?i)^\s*(yes|no|ok|okay)\s*[!.]*\s*$`)
	bareArithmetic  = regexp.MustCompile(`^\s*\d+(\.\d+)?\s*[-+*/]\s*\d+(\.\d+)?\s*=?\s*\??\s*$`)
	genericLanguage = regexp.MustCompile(`(?i)^\s*what is (a|an) (variable|function|class|loop|array|string|integer)\??\s*$`)
)

// fastPath applies the deterministic rules. ok=false means "no fast-path
// rule matched; fall through to the slow path".
func fastPath(query string) (Decision, bool) {
	switch {
	case greeting.MatchString(query), confirmation.MatchString(query), bareArithmetic.MatchString(query), genericLanguage.MatchString(query):
		return Decision{ShouldRetrieve: false, Confidence: 0.99, Reason: "trivial query"}, true
	case backtickOrCode.MatchString(query):
		return Decision{ShouldRetrieve: true, Confidence: 0.9, Reason: "contains code reference", SuggestedStrategy: StrategyKeyword}, true
	case debugFamily.MatchString(query):
		return Decision{ShouldRetrieve: true, Confidence: 0.9, Reason: "debugging intent", SuggestedStrategy: StrategyGraph}, true
	case findFamily.MatchString(query):
		return Decision{ShouldRetrieve: true, Confidence: 0.9, Reason: "find/locate intent", SuggestedStrategy: StrategySemantic}, true
	default:
		return Decision{}, false
	}
}

type cacheEntry struct {
	decision Decision
	expires  time.Time
}

// Gate is the retrieval admission decision, with an optional cache and
// slow-path completion provider.
type Gate struct {
	provider completion.Provider
	ttl      time.Duration
	disabled bool

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// Opts configures a Gate.
type Opts struct {
	Provider completion.Provider
	CacheTTL time.Duration // 0 disables caching
	Disabled bool
}

// New returns a configured Gate.
func New(opts Opts) *Gate {
	g := &Gate{provider: opts.Provider, ttl: opts.CacheTTL, disabled: opts.Disabled}
	if g.ttl > 0 {
		g.cache = make(map[string]cacheEntry)
	}
	return g
}

type slowPathResponse struct {
	ShouldRetrieve    bool    `json:"shouldRetrieve"`
	Confidence        float64 `json:"confidence"`
	Reason            string  `json:"reason"`
	SuggestedStrategy *string `json:"suggestedStrategy,omitempty"`
}

// Decide evaluates whether query warrants retrieval. projectDescription
// and entityTypes are forwarded to the slow-path completion prompt.
func (g *Gate) Decide(ctx context.Context, query string, projectDescription string, entityTypes []string) (Decision, error) {
	if g.disabled {
		return Decision{ShouldRetrieve: true, Confidence: 1.0, Reason: "gate disabled"}, nil
	}

	if g.cache != nil {
		g.mu.Lock()
		entry, ok := g.cache[query]
		g.mu.Unlock()
		if ok && time.Now().Before(entry.expires) {
			return entry.decision, nil
		}
	}

	decision, matched := fastPath(query)
	if !matched {
		decision = g.slowPath(ctx, query, projectDescription, entityTypes)
	}

	if g.cache != nil {
		g.mu.Lock()
		g.cache[query] = cacheEntry{decision: decision, expires: time.Now().Add(g.ttl)}
		g.mu.Unlock()
	}

	return decision, nil
}

func (g *Gate) slowPath(ctx context.Context, query, projectDescription string, entityTypes []string) Decision {
	if g.provider == nil {
		return Decision{ShouldRetrieve: true, Confidence: 0.5, Reason: "fallback: no completion provider configured"}
	}

	prompt := buildGatePrompt(query, projectDescription, entityTypes)
	resp, err := g.provider.Complete(ctx, completion.Request{Prompt: prompt, MaxTokens: 200})
	if err != nil {
		return Decision{ShouldRetrieve: true, Confidence: 0.5, Reason: "fallback: completion provider failed"}
	}

	var parsed slowPathResponse
	if err := json.Unmarshal([]byte(resp.Text), &parsed); err != nil {
		return Decision{ShouldRetrieve: true, Confidence: 0.5, Reason: "fallback: malformed completion response"}
	}

	d := Decision{ShouldRetrieve: parsed.ShouldRetrieve, Confidence: parsed.Confidence, Reason: parsed.Reason}
	if parsed.SuggestedStrategy != nil {
		d.SuggestedStrategy = Strategy(*parsed.SuggestedStrategy)
	}
	return d
}

func buildGatePrompt(query, projectDescription string, entityTypes []string) string {
	return "Respond with JSON only: {\"shouldRetrieve\": bool, \"confidence\": number, \"reason\": string, \"suggestedStrategy\": string}.\n" +
		"Project: " + projectDescription + "\n" +
		"Available entity types: " + joinComma(entityTypes) + "\n" +
		"Query: " + query
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}
