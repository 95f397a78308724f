// Package store is the persistence layer: entity store, relationship
// store, embedding index and feedback store, all scoped to a project
// namespace. It exposes a narrow interface per concern, backed by an
// in-memory implementation for tests and a SurrealDB-backed
// implementation for production.
package store

import (
	"time"
)

// EntityType enumerates the kinds of indexed units.
type EntityType string

const (
	EntityFile      EntityType = "file"
	EntityModule    EntityType = "module"
	EntityFunction  EntityType = "function"
	EntityClass     EntityType = "class"
	EntityInterface EntityType = "interface"
	EntityMethod    EntityType = "method"
	EntityVariable  EntityType = "variable"
	EntityConcept   EntityType = "concept"
	EntityDocument  EntityType = "document"
	EntityRequirement EntityType = "requirement"
	EntityDecision  EntityType = "decision"
	EntitySession   EntityType = "session"
)

// RelationshipType enumerates the typed edges between entities.
type RelationshipType string

const (
	RelContains   RelationshipType = "CONTAINS"
	RelCalls      RelationshipType = "CALLS"
	RelImports    RelationshipType = "IMPORTS"
	RelExtends    RelationshipType = "EXTENDS"
	RelImplements RelationshipType = "IMPLEMENTS"
	RelMentions   RelationshipType = "MENTIONS"
	RelRelatesTo  RelationshipType = "RELATES_TO"
	RelDependsOn  RelationshipType = "DEPENDS_ON"
	RelDefinedIn  RelationshipType = "DEFINED_IN"
	RelUses       RelationshipType = "USES"
	RelReferences RelationshipType = "REFERENCES"
	RelDocuments  RelationshipType = "DOCUMENTS"
	RelConfigures RelationshipType = "CONFIGURES"
	RelTests      RelationshipType = "TESTS"
)

// Entity is the unit of meaning indexed from a repository.
type Entity struct {
	ID            string            `json:"id"`
	Type          EntityType        `json:"type"`
	Name          string            `json:"name"`
	QualifiedName string            `json:"qualifiedName"`
	FilePath      string            `json:"filePath,omitempty"`
	StartLine     int               `json:"startLine,omitempty"`
	EndLine       int               `json:"endLine,omitempty"`
	Content       string            `json:"content,omitempty"`
	Summary       string            `json:"summary,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Aliases returns metadata["aliases"] normalized to a []string, or nil.
func (e *Entity) Aliases() []string {
	if e == nil || e.Metadata == nil {
		return nil
	}
	raw, ok := e.Metadata["aliases"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// SetAliases stores aliases back into Metadata, creating the map if needed.
func (e *Entity) SetAliases(aliases []string) {
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	e.Metadata["aliases"] = aliases
}

// Relationship is a typed, weighted, directed edge between two entities.
type Relationship struct {
	ID           string            `json:"id"`
	SourceID     string            `json:"sourceId"`
	TargetID     string            `json:"targetId"`
	Relationship RelationshipType  `json:"relationship"`
	Weight       float64           `json:"weight"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// FeedbackSignal enumerates how a previously-returned entity was used.
type FeedbackSignal string

const (
	SignalUsed             FeedbackSignal = "used"
	SignalIgnored          FeedbackSignal = "ignored"
	SignalExplicitPositive FeedbackSignal = "explicit_positive"
	SignalExplicitNegative FeedbackSignal = "explicit_negative"
)

// FeedbackRecord is one append-only log row.
type FeedbackRecord struct {
	ID        string         `json:"id"`
	QueryID   string         `json:"queryId"`
	EntityID  string         `json:"entityId"`
	Signal    FeedbackSignal `json:"signal"`
	Timestamp time.Time      `json:"timestamp"`
}

// EntityStats is the aggregated view used by the relevance-feedback
// multiplier.
type EntityStats struct {
	TotalReturns  int     `json:"totalReturns"`
	UsedCount     int     `json:"usedCount"`
	IgnoredCount  int     `json:"ignoredCount"`
	PositiveCount int     `json:"positiveCount"`
	NegativeCount int     `json:"negativeCount"`
	UseRate       float64 `json:"useRate"`
}
