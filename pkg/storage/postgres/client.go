// Package postgres provides a PostgreSQL implementation of the record store.
//
// Embedding vectors are stored in a pgvector column, which lets larger
// deployments index and order by distance inside the database. The schema
// is applied idempotently; the pgvector extension must be installable on
// the target server.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/memoria-ai/memoria-go/pkg/storage"
)

// Client implements storage.Store using PostgreSQL with pgvector.
type Client struct {
	db         *sql.DB
	table      string
	joinsTable string
	dimensions int
}

// Config contains PostgreSQL connection configuration.
type Config struct {
	Host          string
	Port          int
	User          string
	Password      string
	DBName        string
	Table         string
	EmbeddingDims int
	SSLMode       string
}

// NewClient creates a new PostgreSQL store and applies the schema.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping postgres")
	}

	table := cfg.Table
	if table == "" {
		table = "memories"
	}

	client := &Client{
		db:         db,
		table:      table,
		joinsTable: table + "_joins",
		dimensions: cfg.EmbeddingDims,
	}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables applies the schema, enabling pgvector first.
func (c *Client) initTables(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return errors.Wrap(err, "failed to enable pgvector extension")
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			owner_kind TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			utility_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			metadata JSONB,
			merged_from JSONB,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`, c.table, c.dimensions)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return errors.Wrap(err, "failed to create records table")
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_owner ON %s(owner_kind, owner_id, archived)
	`, c.table, c.table)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return errors.Wrap(err, "failed to create owner index")
	}

	joinsQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			conversation_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			joined_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (conversation_id, agent_id)
		)
	`, c.joinsTable)
	if _, err := c.db.ExecContext(ctx, joinsQuery); err != nil {
		return errors.Wrap(err, "failed to create joins table")
	}

	return nil
}

// Put upserts a record by id. The owner columns are written only on insert.
func (c *Client) Put(ctx context.Context, record *storage.Record) error {
	if err := storage.ValidateRecord(record, c.dimensions); err != nil {
		return err
	}

	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return errors.Wrap(err, "failed to marshal metadata")
	}

	var mergedJSON []byte
	if len(record.MergedFrom) > 0 {
		mergedJSON, err = json.Marshal(record.MergedFrom)
		if err != nil {
			return errors.Wrap(err, "failed to marshal merged_from")
		}
	}

	now := time.Now()
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, owner_kind, owner_id, content, embedding, utility_score, metadata, merged_from, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			utility_score = EXCLUDED.utility_score,
			metadata = EXCLUDED.metadata,
			merged_from = EXCLUDED.merged_from,
			archived = EXCLUDED.archived,
			updated_at = EXCLUDED.updated_at
	`, c.table)

	_, err = c.db.ExecContext(ctx, query,
		record.ID,
		string(record.Owner.Kind),
		record.Owner.ScopeID(),
		record.Content,
		pgvector.NewVector(toFloat32(record.Embedding)),
		record.UtilityScore,
		metadataJSON,
		nullableBytes(mergedJSON),
		record.Archived,
		createdAt,
		now,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert record")
	}

	return nil
}

// Get retrieves a record by id, archived or not.
func (c *Client) Get(ctx context.Context, id int64) (*storage.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, recordColumns, c.table)

	record, err := scanRecord(c.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get record")
	}

	return record, nil
}

// ListByOwner returns all non-archived records for exactly the given scope.
func (c *Client) ListByOwner(ctx context.Context, owner storage.Owner) ([]*storage.Record, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_kind = $1 AND owner_id = $2 AND NOT archived
		ORDER BY created_at, id
	`, recordColumns, c.table)

	return c.queryRecords(ctx, query, string(owner.Kind), owner.ScopeID())
}

// ListActive returns all non-archived records across every scope.
func (c *Client) ListActive(ctx context.Context) ([]*storage.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE NOT archived ORDER BY created_at, id
	`, recordColumns, c.table)

	return c.queryRecords(ctx, query)
}

// Archive flips the archived flag. Missing ids are a no-op.
func (c *Client) Archive(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`UPDATE %s SET archived = TRUE, updated_at = $1 WHERE id = $2`, c.table)
	if _, err := c.db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return errors.Wrap(err, "failed to archive record")
	}
	return nil
}

// BumpUtility atomically adds delta to the utility score in a single UPDATE.
// Missing ids are a no-op.
func (c *Client) BumpUtility(ctx context.Context, id int64, delta float64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET utility_score = utility_score + $1, updated_at = $2 WHERE id = $3
	`, c.table)
	if _, err := c.db.ExecContext(ctx, query, delta, time.Now(), id); err != nil {
		return errors.Wrap(err, "failed to bump utility")
	}
	return nil
}

// RecordJoin stores the join cutoff once; later calls never move it.
func (c *Client) RecordJoin(ctx context.Context, conversationID, agentID string, at time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (conversation_id, agent_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id, agent_id) DO NOTHING
	`, c.joinsTable)
	if _, err := c.db.ExecContext(ctx, query, conversationID, agentID, at); err != nil {
		return errors.Wrap(err, "failed to record join")
	}
	return nil
}

// JoinTime returns the recorded join cutoff, if any.
func (c *Client) JoinTime(ctx context.Context, conversationID, agentID string) (time.Time, bool, error) {
	query := fmt.Sprintf(`
		SELECT joined_at FROM %s WHERE conversation_id = $1 AND agent_id = $2
	`, c.joinsTable)

	var at time.Time
	err := c.db.QueryRowContext(ctx, query, conversationID, agentID).Scan(&at)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "failed to read join time")
	}

	return at, true, nil
}

// ExportAll returns every record, archived included.
func (c *Client) ExportAll(ctx context.Context) ([]*storage.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at, id`, recordColumns, c.table)
	return c.queryRecords(ctx, query)
}

// ImportAll upserts the given records by id.
func (c *Client) ImportAll(ctx context.Context, records []*storage.Record) error {
	for _, record := range records {
		if err := c.Put(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll destroys every record and join cutoff.
func (c *Client) ClearAll(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", c.table)); err != nil {
		return errors.Wrap(err, "failed to clear records")
	}
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", c.joinsTable)); err != nil {
		return errors.Wrap(err, "failed to clear joins")
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *Client) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*storage.Record, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query records")
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
