package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

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
		record      storage.Record
		ownerKind   string
		ownerID     string
		vector      pgvector.Vector
		metadataRaw []byte
		mergedRaw   []byte
	)

	err := row.Scan(
		&record.ID,
		&ownerKind,
		&ownerID,
		&record.Content,
		&vector,
		&record.UtilityScore,
		&metadataRaw,
		&mergedRaw,
		&record.Archived,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan record")
	}

	if storage.OwnerKind(ownerKind) == storage.OwnerPrivate {
		record.Owner = storage.Private(ownerID)
	} else {
		record.Owner = storage.Shared(ownerID)
	}

	record.Embedding = toFloat64(vector.Slice())

	if len(metadataRaw) > 0 {
		var meta enrich.Metadata
		if err := json.Unmarshal(metadataRaw, &meta); err != nil {
			return nil, errors.Wrap(err, "failed to parse metadata")
		}
		record.Metadata = meta
	}

	if len(mergedRaw) > 0 {
		if err := json.Unmarshal(mergedRaw, &record.MergedFrom); err != nil {
			return nil, errors.Wrap(err, "failed to parse merged_from")
		}
	}

	return &record, nil
}

// toFloat32 narrows an embedding for the pgvector column.
func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// toFloat64 widens a pgvector value back to the record representation.
func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// nullableBytes maps an empty JSON payload to SQL NULL.
func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
