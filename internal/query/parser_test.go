package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextforge/retrieval-core/internal/query"
)

func synonyms(t *testing.T) *query.SynonymTable {
	t.Helper()
	table, err := query.DefaultSynonymTable()
	require.NoError(t, err)
	return table
}

func TestNormalizeStripsBackticksCollapsesAndTrims(t *testing.T) {
	got := query.Normalize("  find `AuthService`   please.  ")
	assert.Equal(t, "find AuthService please", got)
}

func TestClassifyIntentFindVsExplainVsDebug(t *testing.T) {
	p := query.Parse("find the AuthService class", query.ParseOpts{})
	assert.Equal(t, query.IntentFind, p.Intent)

	p = query.Parse("why is the test failing", query.ParseOpts{})
	assert.Equal(t, query.IntentWhy, p.Intent)

	p = query.Parse("explain what this module does", query.ParseOpts{})
	assert.Equal(t, query.IntentExplain, p.Intent)
}

func TestMentionClassificationBacktickFunctionFileClass(t *testing.T) {
	p := query.Parse("look at `parseQuery(` in `handler.go` then check `AuthService`", query.ParseOpts{})
	require.Len(t, p.Mentions, 3)
	assert.Equal(t, query.MentionFunction, p.Mentions[0].Type)
	assert.Equal(t, query.MentionFile, p.Mentions[1].Type)
	assert.Equal(t, query.MentionClass, p.Mentions[2].Type)
}

func TestMentionPascalCaseOutsideBackticksAndFunctionCallToken(t *testing.T) {
	p := query.Parse("AuthService calls resolveUser(id) somewhere", query.ParseOpts{})
	var texts []string
	for _, m := range p.Mentions {
		texts = append(texts, m.Text)
	}
	assert.Contains(t, texts, "AuthService")
	assert.Contains(t, texts, "resolveUser")
}

func TestKeywordsStripMentionSpansAndStopWordsAndKeepMentionTextsRegardless(t *testing.T) {
	table := synonyms(t)
	p := query.Parse("find the `Go` utility for AuthService", query.ParseOpts{Synonyms: table, MinKeywordLength: 3})
	assert.NotContains(t, p.Keywords, "the")
	assert.NotContains(t, p.Keywords, "for")
	assert.Contains(t, p.Keywords, "go") // mention text kept despite length 2 < minKeywordLength
}

func TestExpansionUsesSynonymTable(t *testing.T) {
	table := synonyms(t)
	p := query.Parse("check the auth flow", query.ParseOpts{Synonyms: table})
	assert.Contains(t, p.Expansions, "authentication")
	assert.Contains(t, p.Expansions, "login")
}

func TestFiltersParseTypeLimitInSince(t *testing.T) {
	p := query.Parse("find handlers type:function limit:5 in pkg/api since:2026-01-01", query.ParseOpts{})
	assert.Equal(t, []string{"function"}, p.Filters.Types)
	assert.Equal(t, 5, p.Filters.Limit)
	assert.Equal(t, []string{"pkg/api"}, p.Filters.Files)
	require.NotNil(t, p.Filters.Since)
	assert.Equal(t, "2026-01-01", p.Filters.Since.Format("2006-01-02"))
}

func TestDecompositionSplitsOnConjunctionsAndWeighsEqually(t *testing.T) {
	p := query.Parse("find the parser and explain the assembler", query.ParseOpts{Decompose: true})
	require.True(t, p.WasDecomposed)
	require.Len(t, p.SubQueries, 2)
	total := 0.0
	for _, sq := range p.SubQueries {
		total += sq.Weight
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestNoDecompositionWhenSingleClause(t *testing.T) {
	p := query.Parse("find the parser", query.ParseOpts{Decompose: true})
	assert.False(t, p.WasDecomposed)
	assert.Empty(t, p.SubQueries)
}

func TestParseRoundTripIsEquivalentForSameInput(t *testing.T) {
	table := synonyms(t)
	opts := query.ParseOpts{Synonyms: table, Decompose: true}
	first := query.Parse("find `AuthService` and explain login", opts)
	second := query.Parse("find `AuthService` and explain login", opts)

	assert.Equal(t, first.Intent, second.Intent)
	assert.Equal(t, first.Keywords, second.Keywords)

	var firstTexts, secondTexts []string
	for _, m := range first.Mentions {
		firstTexts = append(firstTexts, m.Text)
	}
	for _, m := range second.Mentions {
		secondTexts = append(secondTexts, m.Text)
	}
	assert.Equal(t, firstTexts, secondTexts)
}
