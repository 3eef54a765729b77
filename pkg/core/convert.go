package core

import (
	"github.com/memoria-ai/memoria-go/pkg/storage"
)

// toStorageRecord converts a public Record into its storage representation.
func toStorageRecord(record *Record) *storage.Record {
	return &storage.Record{
		ID:           record.ID,
		Owner:        record.Owner(),
		Content:      record.Content,
		Embedding:    record.Embedding,
		UtilityScore: record.UtilityScore,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
		Metadata:     record.Metadata,
		Archived:     record.Archived,
		MergedFrom:   record.MergedFrom,
	}
}

// fromStorageRecord converts a storage record into the public representation.
func fromStorageRecord(record *storage.Record) *Record {
	out := &Record{
		ID:           record.ID,
		Content:      record.Content,
		Embedding:    record.Embedding,
		UtilityScore: record.UtilityScore,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
		Metadata:     record.Metadata,
		Archived:     record.Archived,
		MergedFrom:   record.MergedFrom,
	}
	switch record.Owner.Kind {
	case storage.OwnerShared:
		out.Scope = ScopeShared
		out.ConversationID = record.Owner.ConversationID
	default:
		out.Scope = ScopePrivate
		out.AgentID = record.Owner.AgentID
	}
	return out
}

// fromStorageRecords converts a slice of storage records.
func fromStorageRecords(records []*storage.Record) []*Record {
	out := make([]*Record, 0, len(records))
	for _, record := range records {
		out = append(out, fromStorageRecord(record))
	}
	return out
}
