package gate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextforge/retrieval-core/internal/gate"
	"github.com/contextforge/retrieval-core/pkg/completion"
)

func TestFastPathScenarios(t *testing.T) {
	g := gate.New(gate.Opts{})
	ctx := context.Background()

	d, err := g.Decide(ctx, "hello", "", nil)
	require.NoError(t, err)
	assert.False(t, d.ShouldRetrieve)
	assert.GreaterOrEqual(t, d.Confidence, 0.99)

	d, err = g.Decide(ctx, "Find `AuthService`", "", nil)
	require.NoError(t, err)
	assert.True(t, d.ShouldRetrieve)
	assert.Equal(t, gate.StrategyKeyword, d.SuggestedStrategy)

	d, err = g.Decide(ctx, "why is the test failing", "", nil)
	require.NoError(t, err)
	assert.True(t, d.ShouldRetrieve)
	assert.Equal(t, gate.StrategyGraph, d.SuggestedStrategy)
}

func TestDisabledModeAlwaysRetrieves(t *testing.T) {
	g := gate.New(gate.Opts{Disabled: true})
	d, err := g.Decide(context.Background(), "hello", "", nil)
	require.NoError(t, err)
	assert.True(t, d.ShouldRetrieve)
}

type failingProvider struct{}

func (failingProvider) Complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	return completion.Response{}, errors.New("boom")
}

func TestSlowPathFallsBackOnProviderFailure(t *testing.T) {
	g := gate.New(gate.Opts{Provider: failingProvider{}})
	d, err := g.Decide(context.Background(), "tell me something ambiguous", "", nil)
	require.NoError(t, err)
	assert.True(t, d.ShouldRetrieve)
	assert.InDelta(t, 0.5, d.Confidence, 1e-9)
}

type staticProvider struct{ text string }

func (p staticProvider) Complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	return completion.Response{Text: p.text}, nil
}

func TestSlowPathParsesProviderJSON(t *testing.T) {
	g := gate.New(gate.Opts{Provider: staticProvider{text: `{"shouldRetrieve": true, "confidence": 0.7, "reason": "seems relevant", "suggestedStrategy": "semantic"}`}})
	d, err := g.Decide(context.Background(), "tell me something ambiguous", "", nil)
	require.NoError(t, err)
	assert.True(t, d.ShouldRetrieve)
	assert.InDelta(t, 0.7, d.Confidence, 1e-9)
	assert.Equal(t, gate.StrategySemantic, d.SuggestedStrategy)
}

func TestCacheReturnsSameDecisionWithinTTL(t *testing.T) {
	calls := 0
	provider := &countingProvider{fn: func() string {
		calls++
		return `{"shouldRetrieve": true, "confidence": 0.6, "reason": "r"}`
	}}
	g := gate.New(gate.Opts{Provider: provider, CacheTTL: time.Minute})

	_, err := g.Decide(context.Background(), "tell me something ambiguous", "", nil)
	require.NoError(t, err)
	_, err = g.Decide(context.Background(), "tell me something ambiguous", "", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

type countingProvider struct{ fn func() string }

func (p *countingProvider) Complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	return completion.Response{Text: p.fn()}, nil
}
