// Package storage provides interfaces and types for memory record stores.
//
// It defines the Store interface that all storage backends must satisfy,
// along with the record and ownership types. Every mutation a Store exposes
// is atomic per record: read-modify-write cycles (utility bumps, archival)
// happen inside the backend, never in the caller, so concurrent writers on
// the same record cannot lose updates.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/memoria-ai/memoria-go/pkg/enrich"
)

// Sentinel errors for store operations.
var (
	// ErrDimensionMismatch indicates a record's embedding length disagrees
	// with the store's configured dimensionality. This is a hard write-time
	// error; vectors are never truncated or padded.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidOwner indicates an owner value with no scope or both scopes set.
	ErrInvalidOwner = errors.New("invalid owner")

	// ErrUnavailable indicates the underlying storage engine failed; the
	// write was not persisted and the caller must be told.
	ErrUnavailable = errors.New("store unavailable")
)

// OwnerKind discriminates the two ownership scopes of a record.
type OwnerKind string

const (
	// OwnerPrivate scopes a record to a single agent.
	OwnerPrivate OwnerKind = "private"

	// OwnerShared scopes a record to a single conversation.
	OwnerShared OwnerKind = "shared"
)

// Owner is the tagged ownership of a record: private to one agent, or shared
// within one conversation. Exactly one of AgentID and ConversationID is set,
// depending on Kind. An owner never changes after the record is created.
type Owner struct {
	Kind           OwnerKind `json:"kind"`
	AgentID        string    `json:"agent_id,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
}

// Private returns an owner scoping records to one agent.
func Private(agentID string) Owner {
	return Owner{Kind: OwnerPrivate, AgentID: agentID}
}

// Shared returns an owner scoping records to one conversation.
func Shared(conversationID string) Owner {
	return Owner{Kind: OwnerShared, ConversationID: conversationID}
}

// Validate checks that the owner names exactly one scope.
func (o Owner) Validate() error {
	switch o.Kind {
	case OwnerPrivate:
		if o.AgentID == "" || o.ConversationID != "" {
			return ErrInvalidOwner
		}
	case OwnerShared:
		if o.ConversationID == "" || o.AgentID != "" {
			return ErrInvalidOwner
		}
	default:
		return ErrInvalidOwner
	}
	return nil
}

// ScopeID returns the identifier of whichever scope is set.
func (o Owner) ScopeID() string {
	if o.Kind == OwnerPrivate {
		return o.AgentID
	}
	return o.ConversationID
}

// String renders the owner as "<kind>:<scope id>".
func (o Owner) String() string {
	return fmt.Sprintf("%s:%s", o.Kind, o.ScopeID())
}

// Record is a memory record as stored by a backend.
type Record struct {
	// ID is the unique identifier of the record, immutable.
	ID int64

	// Owner is the ownership scope, immutable after creation.
	Owner Owner

	// Content is the remembered text fragment (possibly an image caption).
	Content string

	// Embedding is the vector representation of Content. Its length must
	// equal the store's configured dimensionality.
	Embedding []float64

	// UtilityScore accumulates explicit feedback. It may go negative.
	UtilityScore float64

	// CreatedAt is when the record was created, immutable.
	CreatedAt time.Time

	// UpdatedAt is when the record was last mutated.
	UpdatedAt time.Time

	// Metadata is the derived tag bundle attached at write time.
	Metadata enrich.Metadata

	// Archived marks records excluded from retrieval but kept for audit.
	Archived bool

	// MergedFrom lists the ids of records consolidated into this one.
	MergedFrom []int64
}

// Store defines the interface for memory record backends.
//
// All mutations are atomic per record. Operations on two different record
// ids are independent and unordered; operations on the same id serialize
// inside the backend.
type Store interface {
	// Put upserts a record by id.
	//
	// Fails with ErrDimensionMismatch if the embedding length disagrees
	// with the store's configured dimensionality, and with ErrInvalidOwner
	// if the owner is malformed.
	Put(ctx context.Context, record *Record) error

	// Get retrieves a record by id, archived or not.
	// Returns ErrNotFound if no such record exists.
	Get(ctx context.Context, id int64) (*Record, error)

	// ListByOwner returns all non-archived records owned by exactly the
	// given scope. No record of any other scope is ever returned.
	ListByOwner(ctx context.Context, owner Owner) ([]*Record, error)

	// ListActive returns all non-archived records across every scope.
	// Used by curation sweeps.
	ListActive(ctx context.Context) ([]*Record, error)

	// Archive flips a record's archived flag. Archiving a missing or
	// already-archived record is a no-op, not an error.
	Archive(ctx context.Context, id int64) error

	// BumpUtility atomically adds delta to a record's utility score.
	// Bumping a missing record is a no-op, not an error.
	BumpUtility(ctx context.Context, id int64, delta float64) error

	// RecordJoin stores the moment an agent joined a conversation. The
	// first recorded time wins; later calls never move the cutoff.
	RecordJoin(ctx context.Context, conversationID, agentID string, at time.Time) error

	// JoinTime returns the agent's join cutoff for a conversation, and
	// whether one was ever recorded.
	JoinTime(ctx context.Context, conversationID, agentID string) (time.Time, bool, error)

	// ExportAll returns every record, archived included, for backup.
	ExportAll(ctx context.Context) ([]*Record, error)

	// ImportAll writes the given records, upserting by id. Dimensionality
	// is enforced the same way as Put.
	ImportAll(ctx context.Context, records []*Record) error

	// ClearAll destroys every record and join cutoff. Used only by the
	// full-backup-restore flow.
	ClearAll(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// ValidateRecord applies the write-time invariants shared by all backends.
func ValidateRecord(record *Record, dimensions int) error {
	if err := record.Owner.Validate(); err != nil {
		return err
	}
	if len(record.Embedding) != dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(record.Embedding), dimensions)
	}
	return nil
}
