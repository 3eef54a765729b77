package retrieval

import (
	"context"
	"log/slog"

	"github.com/memoria-ai/memoria-go/pkg/embedder"
	"github.com/memoria-ai/memoria-go/pkg/storage"
)

// Config bounds the size of a bundle.
type Config struct {
	// PrivateTopK is the maximum number of private entries (default 2).
	PrivateTopK int

	// SharedTopK is the maximum number of semantic shared entries (default 4).
	SharedTopK int

	// SharedRecent is the number of most-recent shared entries included
	// regardless of similarity (default 3).
	SharedRecent int
}

// DefaultConfig returns the default bundle caps: 2 private entries plus at
// most 7 shared (4 semantic + 3 recent, de-duplicated).
func DefaultConfig() Config {
	return Config{
		PrivateTopK:  2,
		SharedTopK:   4,
		SharedRecent: 3,
	}
}

// Orchestrator produces bundles of relevant records for a consuming agent.
//
// It is strictly read-only: a retrieval abandoned mid-flight by cancellation
// leaves no state behind. Every failure path degrades to an empty bundle so
// the calling chat turn proceeds without memory rather than failing.
type Orchestrator struct {
	store    storage.Store
	embedder embedder.Provider
	cfg      Config
	logger   *slog.Logger
}

// New creates an orchestrator. A nil logger falls back to slog.Default().
func New(store storage.Store, provider embedder.Provider, cfg Config, logger *slog.Logger) *Orchestrator {
	def := DefaultConfig()
	if cfg.PrivateTopK == 0 {
		cfg.PrivateTopK = def.PrivateTopK
	}
	if cfg.SharedTopK == 0 {
		cfg.SharedTopK = def.SharedTopK
	}
	if cfg.SharedRecent == 0 {
		cfg.SharedRecent = def.SharedRecent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:    store,
		embedder: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

// Retrieve assembles the bundle of records relevant to the query for the
// given agent.
//
// The agent's private scope contributes its top-k semantic matches. Each
// conversation in conversationIDs contributes shared records created at or
// after the agent's recorded join cutoff for that conversation; conversations
// with no recorded join are skipped entirely. The combined shared pool
// contributes its top-k semantic matches plus the most recent records as a
// short-term recency bias, de-duplicated by id with semantic hits first.
//
// When both the private scope and every visible shared pool are empty the
// query is never embedded. Errors never propagate: the result is an empty
// (or partial) bundle and a warning log.
func (o *Orchestrator) Retrieve(ctx context.Context, query, agentID string, conversationIDs []string) *Bundle {
	bundle := &Bundle{}

	private, err := o.store.ListByOwner(ctx, storage.Private(agentID))
	if err != nil {
		o.logger.Warn("memory retrieval: private scope unavailable",
			"agent", agentID, "error", err)
		private = nil
	}

	shared := o.visibleShared(ctx, agentID, conversationIDs)

	// Nothing to rank: skip the embedding call entirely.
	if len(private) == 0 && len(shared) == 0 {
		return bundle
	}

	queryVec, err := o.embedder.Embed(ctx, query)
	if err != nil {
		o.logger.Warn("memory retrieval: embedding unavailable, returning empty bundle",
			"agent", agentID, "error", err)
		return bundle
	}

	for _, hit := range TopK(queryVec, private, o.cfg.PrivateTopK) {
		bundle.Entries = append(bundle.Entries, Entry{
			Record:     hit.Record,
			Scope:      storage.OwnerPrivate,
			Similarity: hit.Similarity,
		})
	}

	seen := make(map[int64]bool)

	// Semantic hits take precedence over recency-only hits.
	for _, hit := range TopK(queryVec, shared, o.cfg.SharedTopK) {
		seen[hit.Record.ID] = true
		bundle.Entries = append(bundle.Entries, Entry{
			Record:     hit.Record,
			Scope:      storage.OwnerShared,
			Similarity: hit.Similarity,
		})
	}

	for _, record := range MostRecent(shared, o.cfg.SharedRecent) {
		if seen[record.ID] {
			continue
		}
		seen[record.ID] = true
		bundle.Entries = append(bundle.Entries, Entry{
			Record:     record,
			Scope:      storage.OwnerShared,
			Similarity: embedder.CosineSimilarity(queryVec, record.Embedding),
		})
	}

	return bundle
}

// visibleShared collects the shared records the agent may see across the
// given conversations, applying each conversation's join cutoff.
func (o *Orchestrator) visibleShared(ctx context.Context, agentID string, conversationIDs []string) []*storage.Record {
	var visible []*storage.Record

	for _, conversationID := range conversationIDs {
		cutoff, joined, err := o.store.JoinTime(ctx, conversationID, agentID)
		if err != nil {
			o.logger.Warn("memory retrieval: join cutoff unavailable, skipping conversation",
				"agent", agentID, "conversation", conversationID, "error", err)
			continue
		}
		if !joined {
			// No recorded join means the agent was never added here.
			o.logger.Debug("memory retrieval: no join cutoff recorded, skipping conversation",
				"agent", agentID, "conversation", conversationID)
			continue
		}

		records, err := o.store.ListByOwner(ctx, storage.Shared(conversationID))
		if err != nil {
			o.logger.Warn("memory retrieval: shared scope unavailable",
				"agent", agentID, "conversation", conversationID, "error", err)
			continue
		}

		for _, record := range records {
			if record.CreatedAt.Before(cutoff) {
				continue
			}
			visible = append(visible, record)
		}
	}

	return visible
}
