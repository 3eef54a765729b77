package core

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"

	"github.com/memoria-ai/memoria-go/pkg/curator"
	"github.com/memoria-ai/memoria-go/pkg/embedder"
	openaiEmbedder "github.com/memoria-ai/memoria-go/pkg/embedder/openai"
	qwenEmbedder "github.com/memoria-ai/memoria-go/pkg/embedder/qwen"
	"github.com/memoria-ai/memoria-go/pkg/enrich"
	"github.com/memoria-ai/memoria-go/pkg/retrieval"
	"github.com/memoria-ai/memoria-go/pkg/storage"
	"github.com/memoria-ai/memoria-go/pkg/storage/memstore"
	mysqlStore "github.com/memoria-ai/memoria-go/pkg/storage/mysql"
	postgresStore "github.com/memoria-ai/memoria-go/pkg/storage/postgres"
	sqliteStore "github.com/memoria-ai/memoria-go/pkg/storage/sqlite"
)

// significanceMinRunes is the shortest agent response worth remembering on
// length alone. Shorter responses must carry some classified signal (tags,
// urgency, a non-statement type, or emotional context) to be stored.
const significanceMinRunes = 24

// Client is the main memoria client for agent memory management.
//
// It provides a complete interface for recording, retrieving, and curating
// memories with support for:
//   - Private per-agent and shared per-conversation scopes
//   - Join-cutoff visibility for late conversation joiners
//   - Vector similarity retrieval with recency bias
//   - Scheduled decay and consolidation
//
// The client is safe for concurrent use; all record mutations are atomic at
// the store level.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	record, _ := client.Record(ctx, "Tom prefers dark mode",
//	    core.Private("aria"))
type Client struct {
	config *Config

	store    storage.Store
	embedder embedder.Provider

	orchestrator *retrieval.Orchestrator
	curator      *curator.Curator
	scheduler    *curator.Scheduler

	// node generates unique record ids.
	node *snowflake.Node

	logger *slog.Logger

	// now is the clock source, replaceable in tests.
	now func() time.Time
}

// NewClient creates a new memoria client from configuration.
//
// The client is initialized with:
//   - Store backend (in-memory, SQLite, PostgreSQL, or MySQL)
//   - Embedding provider (OpenAI or Qwen) behind lazy single-flight
//     initialization
//   - Retrieval orchestrator and curator using the configured knobs
//
// Returns a new Client instance, or an error if initialization fails.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dims := cfg.Embedder.Dimensions
	if dims == 0 {
		dims = 1536
	}

	store, err := initStore(cfg.Store, dims)
	if err != nil {
		return nil, err
	}

	// Provider construction is deferred until first use so a client can be
	// built before the model endpoint is reachable.
	provider := embedder.NewLazy(dims, func(ctx context.Context) (embedder.Provider, error) {
		return initEmbedder(cfg.Embedder, dims)
	})

	return newClient(cfg, store, provider, slog.Default())
}

// NewClientWith creates a client around explicit collaborators. Intended
// for tests and embedders that manage their own store and provider; a nil
// store falls back to the in-memory backend and a nil logger to
// slog.Default().
func NewClientWith(cfg *Config, store storage.Store, provider embedder.Provider, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if store == nil {
		dims := provider.Dimensions()
		store = memstore.New(dims)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return newClient(cfg, store, provider, logger)
}

func newClient(cfg *Config, store storage.Store, provider embedder.Provider, logger *slog.Logger) (*Client, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	client := &Client{
		config:   cfg,
		store:    store,
		embedder: provider,
		node:     node,
		logger:   logger,
		now:      time.Now,
	}

	client.orchestrator = retrieval.New(store, provider, retrieval.Config{
		PrivateTopK:  cfg.Retrieval.PrivateTopK,
		SharedTopK:   cfg.Retrieval.SharedTopK,
		SharedRecent: cfg.Retrieval.SharedRecent,
	}, logger)

	curatorCfg := curator.DefaultConfig()
	if cfg.Curator.DecayRate > 0 {
		curatorCfg.DecayRate = cfg.Curator.DecayRate
	}
	if cfg.Curator.ArchiveThreshold > 0 {
		curatorCfg.ArchiveThreshold = cfg.Curator.ArchiveThreshold
	}
	if cfg.Curator.RetentionFloorDays > 0 {
		curatorCfg.RetentionFloor = time.Duration(cfg.Curator.RetentionFloorDays) * 24 * time.Hour
	}
	if cfg.Curator.DuplicateThreshold > 0 {
		curatorCfg.DuplicateThreshold = cfg.Curator.DuplicateThreshold
	}
	if cfg.Curator.HighSalience > 0 {
		curatorCfg.HighSalience = cfg.Curator.HighSalience
	}

	client.curator = curator.New(store, func() int64 {
		return client.node.Generate().Int64()
	}, curatorCfg, logger)

	client.scheduler = curator.NewScheduler(client.curator, curator.SchedulerConfig{}, logger)

	return client, nil
}

// Record stores a new memory for the given owner scope.
//
// The method:
//  1. Applies the significance threshold (agent responses only)
//  2. Enriches the content into typed metadata
//  3. Generates an embedding vector
//  4. Persists the record
//
// If the embedding provider is unavailable the text is still kept, with a
// zero vector of the configured dimensionality, and a warning is logged;
// store failures are always surfaced to the caller.
//
// Returns the stored record, or (nil, nil) when an agent response fell
// below the significance threshold.
//
// Example:
//
//	record, err := client.Record(ctx, "Deploy is blocked on the cert",
//	    core.Shared("team-room"),
//	    core.WithSource(core.SourceAgentResponse),
//	    core.WithEmotionalSnapshot(&enrich.EmotionalSnapshot{Fatigue: 0.7}),
//	)
func (c *Client) Record(ctx context.Context, content string, owner Owner, opts ...RecordOption) (*Record, error) {
	if strings.TrimSpace(content) == "" {
		return nil, NewMemoryError("Record", ErrInvalidInput)
	}
	if err := owner.Validate(); err != nil {
		return nil, NewMemoryError("Record", err)
	}

	options := applyRecordOptions(opts)

	now := options.Timestamp
	if now.IsZero() {
		now = c.now()
	}

	meta := enrich.Enrich(content, now, options.EmotionalSnapshot)

	if options.Source == SourceAgentResponse && !significant(content, meta) {
		c.logger.Debug("agent response below significance threshold, not recorded",
			"owner", owner.String())
		return nil, nil
	}

	vector, err := c.embedder.Embed(ctx, content)
	if err != nil {
		// The text is worth more than the vector. Keep the record
		// searchable by recency with a zero embedding.
		c.logger.Warn("embedding unavailable, recording with zero vector",
			"owner", owner.String(), "error", err)
		vector = make([]float64, c.embedder.Dimensions())
	}

	record := &storage.Record{
		ID:        c.node.Generate().Int64(),
		Owner:     owner,
		Content:   content,
		Embedding: vector,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  meta,
	}

	if err := c.store.Put(ctx, record); err != nil {
		return nil, NewMemoryError("Record", err)
	}

	c.scheduler.Touch()
	return fromStorageRecord(record), nil
}

// RecordImage captions an image and stores the caption as a memory.
//
// Fails with ErrCaptioningUnavailable when the provider cannot caption
// (model not ready, or a text-only provider).
func (c *Client) RecordImage(ctx context.Context, image []byte, owner Owner, opts ...RecordOption) (*Record, error) {
	if len(image) == 0 {
		return nil, NewMemoryError("RecordImage", ErrInvalidInput)
	}

	caption, err := c.embedder.Caption(ctx, image)
	if err != nil {
		return nil, NewMemoryError("RecordImage", err)
	}

	return c.Record(ctx, caption, owner, opts...)
}

// Retrieve assembles the memory bundle for one agent's chat turn.
//
// The bundle contains up to 2 private semantic matches plus up to 7 shared
// entries (4 semantic, 3 recent) drawn from the conversations named in the
// options, each filtered by the agent's join cutoff. Retrieval fails soft:
// on any embedding or store failure it returns an empty bundle, never an
// error, so the chat turn proceeds without memory.
//
// Example:
//
//	bundle := client.Retrieve(ctx, "what did Alice say about the launch?",
//	    "aria", core.WithConversations("team-room"))
//	prompt := bundle.PromptBlock()
func (c *Client) Retrieve(ctx context.Context, query, agentID string, opts ...RetrieveOption) *Bundle {
	options := applyRetrieveOptions(opts)
	c.scheduler.Touch()
	return c.orchestrator.Retrieve(ctx, query, agentID, options.Conversations)
}

// Get returns one record by id, including archived records.
func (c *Client) Get(ctx context.Context, id int64) (*Record, error) {
	record, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, NewMemoryError("Get", err)
	}
	return fromStorageRecord(record), nil
}

// BumpUtility adjusts a record's utility score by delta. Positive deltas
// come from explicit "found this useful" feedback; the adjustment is atomic
// and a missing id is a no-op.
func (c *Client) BumpUtility(ctx context.Context, id int64, delta float64) error {
	if err := c.store.BumpUtility(ctx, id, delta); err != nil {
		return NewMemoryError("BumpUtility", err)
	}
	c.scheduler.Touch()
	return nil
}

// Archive retires a record from retrieval. Archived records remain
// exportable; a missing id is a no-op.
func (c *Client) Archive(ctx context.Context, id int64) error {
	if err := c.store.Archive(ctx, id); err != nil {
		return NewMemoryError("Archive", err)
	}
	return nil
}

// JoinConversation records an agent joining a conversation. The join time
// becomes the agent's visibility cutoff for that conversation's shared
// records; only the first join counts.
func (c *Client) JoinConversation(ctx context.Context, conversationID, agentID string) error {
	if conversationID == "" || agentID == "" {
		return NewMemoryError("JoinConversation", ErrInvalidInput)
	}
	if err := c.store.RecordJoin(ctx, conversationID, agentID, c.now()); err != nil {
		return NewMemoryError("JoinConversation", err)
	}
	return nil
}

// RunDecay runs one decay pass immediately.
func (c *Client) RunDecay(ctx context.Context) (curator.DecayStats, error) {
	stats, err := c.curator.Decay(ctx)
	if err != nil {
		return stats, NewMemoryError("RunDecay", err)
	}
	return stats, nil
}

// RunConsolidation runs one consolidation pass immediately.
func (c *Client) RunConsolidation(ctx context.Context) (curator.ConsolidateStats, error) {
	stats, err := c.curator.Consolidate(ctx)
	if err != nil {
		return stats, NewMemoryError("RunConsolidation", err)
	}
	return stats, nil
}

// Curate blocks, running scheduled decay and idle-triggered consolidation
// until the context is canceled. Typically run in its own goroutine:
//
//	go client.Curate(ctx)
func (c *Client) Curate(ctx context.Context) error {
	return c.scheduler.Run(ctx)
}

// ExportAll returns every record, archived included, for backup.
func (c *Client) ExportAll(ctx context.Context) ([]*Record, error) {
	records, err := c.store.ExportAll(ctx)
	if err != nil {
		return nil, NewMemoryError("ExportAll", err)
	}
	return fromStorageRecords(records), nil
}

// ImportAll restores records from a backup, upserting by id.
func (c *Client) ImportAll(ctx context.Context, records []*Record) error {
	converted := make([]*storage.Record, 0, len(records))
	for _, record := range records {
		converted = append(converted, toStorageRecord(record))
	}
	if err := c.store.ImportAll(ctx, converted); err != nil {
		return NewMemoryError("ImportAll", err)
	}
	return nil
}

// ListArchived returns the archived records for one owner scope, the audit
// counterpart of retrieval's active-only views.
func (c *Client) ListArchived(ctx context.Context, owner Owner) ([]*Record, error) {
	if err := owner.Validate(); err != nil {
		return nil, NewMemoryError("ListArchived", err)
	}
	all, err := c.store.ExportAll(ctx)
	if err != nil {
		return nil, NewMemoryError("ListArchived", err)
	}

	var archived []*Record
	for _, record := range all {
		if record.Archived && record.Owner == owner {
			archived = append(archived, fromStorageRecord(record))
		}
	}
	return archived, nil
}

// ClearAll removes every record and join entry. Destructive; used only by
// the full-backup-restore flow.
func (c *Client) ClearAll(ctx context.Context) error {
	if err := c.store.ClearAll(ctx); err != nil {
		return NewMemoryError("ClearAll", err)
	}
	return nil
}

// Close releases the store and embedding provider.
func (c *Client) Close() error {
	storeErr := c.store.Close()
	embedErr := c.embedder.Close()
	if storeErr != nil {
		return NewMemoryError("Close", storeErr)
	}
	return NewMemoryError("Close", embedErr)
}

// significant reports whether an agent response carries enough signal to be
// worth remembering. User messages bypass this check entirely.
func significant(content string, meta enrich.Metadata) bool {
	if utf8.RuneCountInString(strings.TrimSpace(content)) >= significanceMinRunes {
		return true
	}
	if len(meta.Tags) > 0 {
		return true
	}
	if meta.Urgency != enrich.UrgencyLow {
		return true
	}
	if meta.MessageType != enrich.MessageTypeStatement {
		return true
	}
	return meta.Emotional != nil
}

// initStore creates the configured store backend.
func initStore(cfg StoreConfig, dims int) (storage.Store, error) {
	table := cfg.Table
	if table == "" {
		table = "memories"
	}

	switch cfg.Provider {
	case "memory":
		return memstore.New(dims), nil
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath:        cfg.Path,
			Table:         table,
			EmbeddingDims: dims,
		})
	case "postgres":
		return postgresStore.NewClient(&postgresStore.Config{
			Host:          cfg.Host,
			Port:          cfg.Port,
			User:          cfg.User,
			Password:      cfg.Password,
			DBName:        cfg.DBName,
			Table:         table,
			EmbeddingDims: dims,
			SSLMode:       cfg.SSLMode,
		})
	case "mysql":
		return mysqlStore.NewClient(&mysqlStore.Config{
			Host:          cfg.Host,
			Port:          cfg.Port,
			User:          cfg.User,
			Password:      cfg.Password,
			DBName:        cfg.DBName,
			Table:         table,
			EmbeddingDims: dims,
		})
	default:
		return nil, NewMemoryError("NewClient", ErrInvalidConfig)
	}
}

// initEmbedder creates the configured embedding provider.
func initEmbedder(cfg EmbedderConfig, dims int) (embedder.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiEmbedder.NewClient(&openaiEmbedder.Config{
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			CaptionModel: cfg.CaptionModel,
			BaseURL:      cfg.BaseURL,
			Dimensions:   dims,
		})
	case "qwen":
		return qwenEmbedder.NewClient(&qwenEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: dims,
		})
	default:
		return nil, NewMemoryError("NewClient", ErrInvalidConfig)
	}
}
