package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/memoria-ai/memoria-go/pkg/enrich"
	"github.com/memoria-ai/memoria-go/pkg/storage"
)

// recordColumns is the column list every record SELECT uses, in scan order.
const recordColumns = `id, owner_kind, owner_id, content, embedding, utility_score, metadata, merged_from, archived, created_at, updated_at`

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans one record from a row.
func scanRecord(row rowScanner) (*storage.Record, error) {
	var (
		record       storage.Record
		ownerKind    string
		ownerID      string
		embeddingStr string
		metadataStr  sql.NullString
		mergedStr    sql.NullString
		archived     int
	)

	err := row.Scan(
		&record.ID,
		&ownerKind,
		&ownerID,
		&record.Content,
		&embeddingStr,
		&record.UtilityScore,
		&metadataStr,
		&mergedStr,
		&archived,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Owner = ownerFromColumns(ownerKind, ownerID)
	record.Archived = archived != 0

	if err := json.Unmarshal([]byte(embeddingStr), &record.Embedding); err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}

	if metadataStr.Valid && metadataStr.String != "" {
		var meta enrich.Metadata
		if err := json.Unmarshal([]byte(metadataStr.String), &meta); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
		record.Metadata = meta
	}

	if mergedStr.Valid && mergedStr.String != "" {
		if err := json.Unmarshal([]byte(mergedStr.String), &record.MergedFrom); err != nil {
			return nil, fmt.Errorf("parse merged_from: %w", err)
		}
	}

	return &record, nil
}

// marshalColumns serializes the JSON-typed columns of a record.
func marshalColumns(record *storage.Record) (embedding, metadata, merged string, err error) {
	embeddingJSON, err := json.Marshal(record.Embedding)
	if err != nil {
		return "", "", "", err
	}

	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return "", "", "", err
	}

	mergedJSON := []byte("")
	if len(record.MergedFrom) > 0 {
		mergedJSON, err = json.Marshal(record.MergedFrom)
		if err != nil {
			return "", "", "", err
		}
	}

	return string(embeddingJSON), string(metadataJSON), string(mergedJSON), nil
}

// ownerFromColumns rebuilds an Owner from its two columns.
func ownerFromColumns(kind, id string) storage.Owner {
	if storage.OwnerKind(kind) == storage.OwnerPrivate {
		return storage.Private(id)
	}
	return storage.Shared(id)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
