// Package sqlite provides a SQLite implementation of the record store.
//
// SQLite is a lightweight, file-based database suitable for local development
// and small-scale deployments. Embedding vectors are stored as JSON strings
// in TEXT fields; similarity scoring happens in process, above the store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/memoria-ai/memoria-go/pkg/storage"
)

// Client implements storage.Store using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// table is the name of the table storing records.
	table string

	// joinsTable is the name of the table storing join cutoffs.
	joinsTable string

	// dimensions is the dimension of embedding vectors.
	dimensions int
}

// Config contains configuration for creating a SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// Table is the name of the records table (default: "memories").
	Table string

	// EmbeddingDims is the dimension of embedding vectors.
	EmbeddingDims int
}

// NewClient creates a new SQLite store.
//
// The parent directory of DBPath is created if missing, and the schema is
// applied idempotently.
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
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

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			owner_kind TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding TEXT NOT NULL,
			utility_score REAL NOT NULL DEFAULT 0,
			metadata TEXT,
			merged_from TEXT,
			archived INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`, c.table)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_owner ON %s(owner_kind, owner_id, archived)
	`, c.table, c.table)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	joinsQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			conversation_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			joined_at DATETIME NOT NULL,
			PRIMARY KEY (conversation_id, agent_id)
		)
	`, c.joinsTable)
	if _, err := c.db.ExecContext(ctx, joinsQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Put upserts a record by id.
//
// The owner columns are written only on insert; an upsert never moves a
// record between scopes.
func (c *Client) Put(ctx context.Context, record *storage.Record) error {
	if err := storage.ValidateRecord(record, c.dimensions); err != nil {
		return err
	}

	embeddingJSON, metadataJSON, mergedJSON, err := marshalColumns(record)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
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
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			embedding = excluded.embedding,
			utility_score = excluded.utility_score,
			metadata = excluded.metadata,
			merged_from = excluded.merged_from,
			archived = excluded.archived,
			updated_at = excluded.updated_at
	`, c.table)

	_, err = c.db.ExecContext(ctx, query,
		record.ID,
		string(record.Owner.Kind),
		record.Owner.ScopeID(),
		record.Content,
		embeddingJSON,
		record.UtilityScore,
		metadataJSON,
		mergedJSON,
		boolToInt(record.Archived),
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
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = ?
	`, recordColumns, c.table)

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

// BumpUtility atomically adds delta to the utility score in a single UPDATE,
// so concurrent bumps on the same record never lose increments. Missing ids
// are a no-op.
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
		INSERT OR IGNORE INTO %s (conversation_id, agent_id, joined_at) VALUES (?, ?, ?)
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
	query := fmt.Sprintf(`
		SELECT %s FROM %s ORDER BY created_at, id
	`, recordColumns, c.table)

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
