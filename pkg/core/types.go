package core

import (
	"time"

	"github.com/memoria-ai/memoria-go/pkg/enrich"
	"github.com/memoria-ai/memoria-go/pkg/retrieval"
	"github.com/memoria-ai/memoria-go/pkg/storage"
)

// Scope defines the visibility partition of a memory record.
//
// Every record lives in exactly one scope:
//   - ScopePrivate: visible only to the owning agent
//   - ScopeShared: visible to conversation participants, subject to each
//     participant's join cutoff
type Scope string

const (
	// ScopePrivate makes the record visible only to the owning agent.
	ScopePrivate Scope = "private"

	// ScopeShared makes the record visible within one conversation.
	ScopeShared Scope = "shared"
)

// Source identifies where recorded content originated. Inbound user
// messages are always stored; agent responses must clear a significance
// threshold first.
type Source string

const (
	// SourceUserMessage marks content written by the human user.
	SourceUserMessage Source = "user_message"

	// SourceAgentResponse marks content generated by an agent.
	SourceAgentResponse Source = "agent_response"
)

// Record is a single remembered fragment.
//
// A record carries:
//   - Content: the literal remembered text (possibly an image caption)
//   - Embedding: vector representation for similarity search
//   - Metadata: derived classification (type, urgency, tags, emotion)
//   - UtilityScore: accumulated explicit-feedback signal
//
// Example:
//
//	record := &core.Record{
//	    Scope:   core.ScopePrivate,
//	    AgentID: "aria",
//	    Content: "Tom prefers short answers in the morning",
//	}
type Record struct {
	// ID is the unique identifier of the record.
	ID int64 `json:"id"`

	// Scope is the visibility partition ("private" or "shared").
	Scope Scope `json:"scope"`

	// AgentID identifies the owning agent (private scope only).
	AgentID string `json:"agent_id,omitempty"`

	// ConversationID identifies the owning conversation (shared scope only).
	ConversationID string `json:"conversation_id,omitempty"`

	// Content is the remembered text.
	Content string `json:"content"`

	// Embedding is the vector embedding for similarity search.
	Embedding []float64 `json:"embedding,omitempty"`

	// UtilityScore accumulates explicit feedback. May go negative.
	UtilityScore float64 `json:"utility_score"`

	// Metadata is the derived classification of the content.
	Metadata enrich.Metadata `json:"metadata"`

	// CreatedAt is when the record was created. Immutable.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the record was last updated.
	UpdatedAt time.Time `json:"updated_at"`

	// Archived marks records the curator has retired from retrieval.
	Archived bool `json:"archived,omitempty"`

	// MergedFrom lists the ids of records consolidated into this one.
	MergedFrom []int64 `json:"merged_from,omitempty"`
}

// Bundle is the ranked, size-bounded retrieval result, re-exported from the
// retrieval package for callers that only import core.
type Bundle = retrieval.Bundle

// Owner is the tagged ownership scope of a record, re-exported from the
// storage package.
type Owner = storage.Owner

// Private builds the owner scope for one agent's private records.
func Private(agentID string) Owner {
	return storage.Private(agentID)
}

// Shared builds the owner scope for one conversation's shared records.
func Shared(conversationID string) Owner {
	return storage.Shared(conversationID)
}

// Owner builds the storage owner for a record, based on its scope fields.
func (r *Record) Owner() storage.Owner {
	if r.Scope == ScopeShared {
		return storage.Shared(r.ConversationID)
	}
	return storage.Private(r.AgentID)
}
