// Package query implements the pure, side-effect-free parser that turns a
// free-text query into intent, entity mentions, keywords, filters and,
// when the query names more than one concern, a weighted decomposition.
package query

import "time"

// Intent is the classified purpose of a query.
type Intent string

const (
	IntentFind     Intent = "find"
	IntentExplain  Intent = "explain"
	IntentList     Intent = "list"
	IntentCompare  Intent = "compare"
	IntentHow      Intent = "how"
	IntentWhy      Intent = "why"
	IntentDebug    Intent = "debug"
	IntentRefactor Intent = "refactor"
	IntentImplement Intent = "implement"
	IntentGeneral  Intent = "general"
)

// MentionType classifies an entity mention.
type MentionType string

const (
	MentionFunction MentionType = "function"
	MentionFile     MentionType = "file"
	MentionClass    MentionType = "class"
)

// Mention is one entity reference found in the query text.
type Mention struct {
	Text  string
	Type  MentionType
	Start int
	End   int
}

// Filters is the structured output of filter parsing.
type Filters struct {
	Types []string
	Files []string
	Limit int
	Since *time.Time
}

// SubQuery is one weighted fragment of a decomposed query.
type SubQuery struct {
	Text   string
	Weight float64
}

// ParsedQuery is the full output of Parse.
type ParsedQuery struct {
	Raw           string
	Normalized    string
	Intent        Intent
	Mentions      []Mention
	Keywords      []string
	Expansions    []string
	Filters       Filters
	WasDecomposed bool
	SubQueries    []SubQuery
}
