package assemble_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextforge/retrieval-core/internal/assemble"
	"github.com/contextforge/retrieval-core/internal/search"
	"github.com/contextforge/retrieval-core/internal/store"
	"github.com/contextforge/retrieval-core/internal/store/memstore"
)

func TestEstimateTokensIsCharsOverFourRoundedUp(t *testing.T) {
	assert.Equal(t, 0, assemble.EstimateTokens(""))
	assert.Equal(t, 1, assemble.EstimateTokens("abc"))
	assert.Equal(t, 3, assemble.EstimateTokens("0123456789"))
}

func TestAssembleTruncatesWhenSecondCandidateExceedsBudget(t *testing.T) {
	// the second candidate is skipped solely for budget once the first
	// has consumed most of maxTokens.
	big := store.Entity{ID: "e1", Name: "First", Content: strings.Repeat("a", 200)}
	small := store.Entity{ID: "e2", Name: "Second", Content: strings.Repeat("b", 200)}

	candidates := []search.Result{
		{Entity: big, Score: 0.9},
		{Entity: small, Score: 0.8},
	}

	opts := assemble.DefaultOptions()
	opts.Format = assemble.FormatPlain
	opts.MaxTokens = assemble.EstimateTokens(plainRender(big)) + 2 // room for the first item only

	result := assemble.Assemble(candidates, opts)

	assert.True(t, result.Truncated)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "e1", result.Sources[0].EntityID)
	assert.LessOrEqual(t, result.TokenCount, opts.MaxTokens)
}

func plainRender(e store.Entity) string {
	return e.Name + " [" + e.FilePath + ":0]\n" + e.Summary + "\n" + e.Content
}

func TestAssembleSkipsBelowMinRelevance(t *testing.T) {
	keep := store.Entity{ID: "keep", Name: "Keep", Content: "x"}
	drop := store.Entity{ID: "drop", Name: "Drop", Content: "y"}

	opts := assemble.DefaultOptions()
	opts.MinRelevance = 0.5

	result := assemble.Assemble([]search.Result{
		{Entity: keep, Score: 0.9},
		{Entity: drop, Score: 0.2},
	}, opts)

	require.Len(t, result.Sources, 1)
	assert.Equal(t, "keep", result.Sources[0].EntityID)
}

func TestAssembleGroupsByTypeInSpecOrder(t *testing.T) {
	fn := store.Entity{ID: "fn", Type: store.EntityFunction, Name: "DoThing", Content: "code"}
	doc := store.Entity{ID: "doc", Type: store.EntityDocument, Name: "Readme", Content: "docs"}
	sess := store.Entity{ID: "sess", Type: store.EntitySession, Name: "Session1", Content: "chat"}

	opts := assemble.DefaultOptions()
	opts.GroupByType = true
	opts.Format = assemble.FormatPlain

	result := assemble.Assemble([]search.Result{
		{Entity: sess, Score: 0.9},
		{Entity: doc, Score: 0.8},
		{Entity: fn, Score: 0.7},
	}, opts)

	codeIdx := strings.Index(result.Context, "Relevant Code")
	docIdx := strings.Index(result.Context, "Related Documentation")
	sessIdx := strings.Index(result.Context, "Previous Conversations")
	require.True(t, codeIdx >= 0 && docIdx >= 0 && sessIdx >= 0)
	assert.True(t, codeIdx < docIdx)
	assert.True(t, docIdx < sessIdx)
}

func TestAssembleXMLEscapesSpecialCharacters(t *testing.T) {
	e := store.Entity{ID: "e1", Name: "A<B>", Content: `<tag attr="v">&amp;</tag>`}
	opts := assemble.DefaultOptions()
	opts.Format = assemble.FormatXML

	result := assemble.Assemble([]search.Result{{Entity: e, Score: 0.9}}, opts)
	assert.NotContains(t, result.Context, "<tag attr=\"v\">&amp;</tag>")
	assert.Contains(t, result.Context, "&lt;tag")
}

func TestExpandAddsContainsTargetWithReducedScore(t *testing.T) {
	ps := memstore.New().ProjectStore()
	ctx := context.Background()

	file := &store.Entity{ID: "file1", Type: store.EntityFile, Name: "service.go", Content: "package main"}
	fn := &store.Entity{ID: "fn1", Type: store.EntityFunction, Name: "Handle", Content: "func Handle() {}"}
	_, err := ps.Entities.Create(ctx, file)
	require.NoError(t, err)
	_, err = ps.Entities.Create(ctx, fn)
	require.NoError(t, err)
	_, err = ps.Relationships.Create(ctx, store.RelationshipInput{SourceID: fn.ID, TargetID: file.ID, Relationship: store.RelContains})
	require.NoError(t, err)

	seeds := []search.Result{{Entity: *fn, Score: 0.8, Source: search.Keyword}}

	expanded, err := assemble.Expand(ctx, ps.Relationships, ps.Entities, seeds, assemble.DefaultExpandOpts())
	require.NoError(t, err)
	require.Len(t, expanded, 2)
	assert.Equal(t, "fn1", expanded[0].Entity.ID)
	assert.Equal(t, "file1", expanded[1].Entity.ID)
	assert.InDelta(t, 0.4, expanded[1].Score, 1e-9)
}

func TestExpandSkipsAlreadySelectedTargets(t *testing.T) {
	ps := memstore.New().ProjectStore()
	ctx := context.Background()

	a := &store.Entity{ID: "a", Type: store.EntityFunction, Name: "A", Content: "a"}
	b := &store.Entity{ID: "b", Type: store.EntityFunction, Name: "B", Content: "b"}
	require.NoError(t, mustCreate(ctx, ps, a))
	require.NoError(t, mustCreate(ctx, ps, b))
	_, err := ps.Relationships.Create(ctx, store.RelationshipInput{SourceID: a.ID, TargetID: b.ID, Relationship: store.RelImports})
	require.NoError(t, err)

	seeds := []search.Result{
		{Entity: *a, Score: 0.9},
		{Entity: *b, Score: 0.9},
	}

	expanded, err := assemble.Expand(ctx, ps.Relationships, ps.Entities, seeds, assemble.DefaultExpandOpts())
	require.NoError(t, err)
	assert.Len(t, expanded, 2) // b is already a seed, so it is not added twice
}

func mustCreate(ctx context.Context, ps store.ProjectStore, e *store.Entity) error {
	_, err := ps.Entities.Create(ctx, e)
	return err
}
