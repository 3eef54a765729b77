// Package mysql provides a MySQL implementation of the record store.
//
// Embedding vectors are stored as JSON strings in LONGTEXT columns, matching
// the SQLite backend; similarity scoring happens in process, above the store.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/memoria-ai/memoria-go/pkg/enrich"
	"github.com/memoria-ai/memoria-go/pkg/storage"
)

// Client implements storage.Store using MySQL as the backend.
type Client struct {
	db         *sql.DB
	table      string
	joinsTable string
	dimensions int
}

// Config contains MySQL connection configuration.
type Config struct {
	Host          string
	Port          int
	User          string
	Password      string
	DBName        string
	Table         string
	EmbeddingDims int
}

// NewClient creates a new MySQL store and applies the schema.
func NewClient(cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
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

// initTables initializes the database tables.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			owner_kind VARCHAR(16) NOT NULL,
			owner_id VARCHAR(128) NOT NULL,
			content LONGTEXT NOT NULL,
			embedding LONGTEXT NOT NULL,
			utility_score DOUBLE NOT NULL DEFAULT 0,
			metadata JSON,
			merged_from JSON,
			archived TINYINT(1) NOT NULL DEFAULT 0,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_owner (owner_kind, owner_id, archived)
		)
	`, c.table)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	joinsQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			conversation_id VARCHAR(128) NOT NULL,
			agent_id VARCHAR(128) NOT NULL,
			joined_at DATETIME(6) NOT NULL,
			PRIMARY KEY (conversation_id, agent_id)
		)
	`, c.joinsTable)
	if _, err := c.db.ExecContext(ctx, joinsQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Put upserts a record by id. The owner columns are written only on insert.
func (c *Client) Put(ctx context.Context, record *storage.Record) error {
	if err := storage.ValidateRecord(record, c.dimensions); err != nil {
		return err
	}

	embeddingJSON, err := json.Marshal(record.Embedding)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}

	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}

	var mergedJSON interface{}
	if len(record.MergedFrom) > 0 {
		b, err := json.Marshal(record.MergedFrom)
		if err != nil {
			return fmt.Errorf("Put: %w", err)
		}
		mergedJSON = string(b)
	}

	now := time.Now()
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, owner_kind, owner_id, content, embedding, utility_score, metadata, merged_from, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			content = VALUES(content),
			embedding = VALUES(embedding),
			utility_score = VALUES(utility_score),
			metadata = VALUES(metadata),
			merged_from = VALUES(merged_from),
			archived = VALUES(archived),
			updated_at = VALUES(updated_at)
	`, c.table)

	_, err = c.db.ExecContext(ctx, query,
		record.ID,
		string(record.Owner.Kind),
		record.Owner.ScopeID(),
		record.Content,
		string(embeddingJSON),
		record.UtilityScore,
		string(metadataJSON),
		mergedJSON,
		record.Archived,
		createdAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}

	return nil
}

// Get retrieves a record by id, archived or not.
func (c *Client) Get(ctx context.Context, id int64) (*storage.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, recordColumns, c.table)

	record, err := scanRecord(c.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
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
		WHERE owner_kind = ? AND owner_id = ? AND archived = 0
		ORDER BY created_at, id
	`, recordColumns, c.table)

	return c.queryRecords(ctx, query, string(owner.Kind), owner.ScopeID())
}

// ListActive returns all non-archived records across every scope.
func (c *Client) ListActive(ctx context.Context) ([]*storage.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE archived = 0 ORDER BY created_at, id
	`, recordColumns, c.table)

	return c.queryRecords(ctx, query)
}

// Archive flips the archived flag. Missing ids are a no-op.
func (c *Client) Archive(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`UPDATE %s SET archived = 1, updated_at = ? WHERE id = ?`, c.table)
	if _, err := c.db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("Archive: %w", err)
	}
	return nil
}

// BumpUtility atomically adds delta to the utility score in a single UPDATE.
// Missing ids are a no-op.
func (c *Client) BumpUtility(ctx context.Context, id int64, delta float64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET utility_score = utility_score + ?, updated_at = ? WHERE id = ?
	`, c.table)
	if _, err := c.db.ExecContext(ctx, query, delta, time.Now(), id); err != nil {
		return fmt.Errorf("BumpUtility: %w", err)
	}
	return nil
}

// RecordJoin stores the join cutoff once; later calls never move it.
func (c *Client) RecordJoin(ctx context.Context, conversationID, agentID string, at time.Time) error {
	query := fmt.Sprintf(`
		INSERT IGNORE INTO %s (conversation_id, agent_id, joined_at) VALUES (?, ?, ?)
	`, c.joinsTable)
	if _, err := c.db.ExecContext(ctx, query, conversationID, agentID, at); err != nil {
		return fmt.Errorf("RecordJoin: %w", err)
	}
	return nil
}

// JoinTime returns the recorded join cutoff, if any.
func (c *Client) JoinTime(ctx context.Context, conversationID, agentID string) (time.Time, bool, error) {
	query := fmt.Sprintf(`
		SELECT joined_at FROM %s WHERE conversation_id = ? AND agent_id = ?
	`, c.joinsTable)

	var at time.Time
	err := c.db.QueryRowContext(ctx, query, conversationID, agentID).Scan(&at)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("JoinTime: %w", err)
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
		return fmt.Errorf("ClearAll: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", c.joinsTable)); err != nil {
		return fmt.Errorf("ClearAll: %w", err)
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

// queryRecords runs a SELECT over recordColumns and scans all rows.
func (c *Client) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*storage.Record, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
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
		&record.Archived,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if storage.OwnerKind(ownerKind) == storage.OwnerPrivate {
		record.Owner = storage.Private(ownerID)
	} else {
		record.Owner = storage.Shared(ownerID)
	}

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
