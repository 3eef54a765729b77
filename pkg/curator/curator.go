// Package curator maintains the memory store over time. A decay pass
// rescores every active record and archives the ones whose value has
// faded; a consolidation pass folds near-duplicate records into one.
//
// Both passes are idempotent and best-effort: a record that cannot be
// processed is skipped and logged, never aborting the whole sweep. The
// curator only archives, never hard-deletes, so every decision remains
// visible through the export surface.
package curator

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/memoria-ai/memoria-go/pkg/embedder"
	"github.com/memoria-ai/memoria-go/pkg/enrich"
	"github.com/memoria-ai/memoria-go/pkg/storage"
)

// IDGenerator produces ids for records synthesized by consolidation.
type IDGenerator func() int64

// Config contains the curation knobs.
//
// The decay score of a record is
//
//	score = WRecency*recency + WRelevance*0 + WUtility*utility + WEmotion*salience
//
// where recency = e^(-DecayRate * hours_since_creation / 24) (the Ebbinghaus
// forgetting curve) and salience is the dominant emotional scalar. Relevance
// is a retrieval-time signal, not stored, so it contributes nothing at rest;
// its weight is kept so the documented weights sum to 1.
type Config struct {
	// WRecency weights the forgetting-curve term (default 0.3).
	WRecency float64

	// WRelevance weights stored relevance, which is always zero at rest
	// (default 0.4, present for documentation of the full weighting).
	WRelevance float64

	// WUtility weights the accumulated utility score (default 0.2).
	WUtility float64

	// WEmotion weights the emotional salience (default 0.1).
	WEmotion float64

	// DecayRate is the Ebbinghaus decay rate. Higher values mean faster
	// forgetting. Typical range: 0.05-0.2 (default 0.1).
	DecayRate float64

	// ArchiveThreshold is the score below which a record becomes an
	// archival candidate (default 0.1).
	ArchiveThreshold float64

	// RetentionFloor is the minimum age before any record may be archived
	// (default 30 days).
	RetentionFloor time.Duration

	// HighSalience is the dominant-mood scalar at or above which a record
	// is protected from archival (default 0.8).
	HighSalience float64

	// DuplicateThreshold is the pairwise similarity at or above which two
	// records of the same owner are considered near-duplicates
	// (default 0.92).
	DuplicateThreshold float64
}

// DefaultConfig returns the default curation configuration.
func DefaultConfig() Config {
	return Config{
		WRecency:           0.3,
		WRelevance:         0.4,
		WUtility:           0.2,
		WEmotion:           0.1,
		DecayRate:          0.1,
		ArchiveThreshold:   0.1,
		RetentionFloor:     30 * 24 * time.Hour,
		HighSalience:       0.8,
		DuplicateThreshold: 0.92,
	}
}

// withDefaults fills every zero field from DefaultConfig().
func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.WRecency == 0 {
		cfg.WRecency = def.WRecency
	}
	if cfg.WRelevance == 0 {
		cfg.WRelevance = def.WRelevance
	}
	if cfg.WUtility == 0 {
		cfg.WUtility = def.WUtility
	}
	if cfg.WEmotion == 0 {
		cfg.WEmotion = def.WEmotion
	}
	if cfg.DecayRate == 0 {
		cfg.DecayRate = def.DecayRate
	}
	if cfg.ArchiveThreshold == 0 {
		cfg.ArchiveThreshold = def.ArchiveThreshold
	}
	if cfg.RetentionFloor == 0 {
		cfg.RetentionFloor = def.RetentionFloor
	}
	if cfg.HighSalience == 0 {
		cfg.HighSalience = def.HighSalience
	}
	if cfg.DuplicateThreshold == 0 {
		cfg.DuplicateThreshold = def.DuplicateThreshold
	}
	return cfg
}

// Curator runs the decay and consolidation passes over a store.
type Curator struct {
	store  storage.Store
	newID  IDGenerator
	cfg    Config
	logger *slog.Logger

	// now is the clock source, replaceable in tests.
	now func() time.Time
}

// New creates a curator. A nil logger falls back to slog.Default(); every
// zero Config field falls back to its DefaultConfig() value, so a partially
// populated Config keeps sane weights and thresholds.
func New(store storage.Store, newID IDGenerator, cfg Config, logger *slog.Logger) *Curator {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Curator{
		store:  store,
		newID:  newID,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// DecayStats summarizes one decay pass.
type DecayStats struct {
	Scanned  int
	Archived int
	Boosted  int
	Skipped  int
}

// Decay rescores every non-archived record and archives the ones whose score
// fell below the threshold and whose age exceeds the retention floor.
//
// Records with positive utility or high emotional salience are boosted: they
// are never archived on age or score alone. Cancellation is honored between
// records; each record is a complete unit of work.
func (c *Curator) Decay(ctx context.Context) (DecayStats, error) {
	var stats DecayStats

	records, err := c.store.ListActive(ctx)
	if err != nil {
		return stats, err
	}

	now := c.now()
	for _, record := range records {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		stats.Scanned++

		if c.boosted(record) {
			stats.Boosted++
			continue
		}

		if now.Sub(record.CreatedAt) < c.cfg.RetentionFloor {
			continue
		}

		if c.Score(record, now) >= c.cfg.ArchiveThreshold {
			continue
		}

		if err := c.store.Archive(ctx, record.ID); err != nil {
			stats.Skipped++
			c.logger.Warn("decay pass: failed to archive record, skipping",
				"id", record.ID, "error", err)
			continue
		}
		stats.Archived++
	}

	c.logger.Info("decay pass complete",
		"scanned", stats.Scanned, "archived", stats.Archived,
		"boosted", stats.Boosted, "skipped", stats.Skipped)
	return stats, nil
}

// Score computes a record's decay score at the given moment.
func (c *Curator) Score(record *storage.Record, now time.Time) float64 {
	hours := now.Sub(record.CreatedAt).Hours()
	recency := math.Exp(-c.cfg.DecayRate * hours / 24.0)

	return c.cfg.WRecency*recency +
		c.cfg.WUtility*record.UtilityScore +
		c.cfg.WEmotion*emotionalSalience(record.Metadata)
}

// boosted reports whether a record is protected from archival.
func (c *Curator) boosted(record *storage.Record) bool {
	if record.UtilityScore > 0 {
		return true
	}
	return emotionalSalience(record.Metadata) >= c.cfg.HighSalience
}

// emotionalSalience returns the dominant emotional scalar of a record, or 0
// when no emotional context was captured.
func emotionalSalience(meta enrich.Metadata) float64 {
	e := meta.Emotional
	if e == nil {
		return 0
	}
	switch e.DominantMood {
	case "serenity":
		return e.Serenity
	case "curiosity":
		return e.Curiosity
	case "fatigue":
		return e.Fatigue
	case "connection":
		return e.Connection
	default:
		return 0
	}
}

// ConsolidateStats summarizes one consolidation pass.
type ConsolidateStats struct {
	Scanned  int
	Groups   int
	Merged   int
	Archived int
	Skipped  int
}

// Consolidate merges groups of near-duplicate records within each owner
// scope into one synthesized record, archiving the originals.
//
// A group forms greedily around a seed record: every not-yet-grouped record
// of the same owner whose similarity to the seed meets the duplicate
// threshold joins the group. The synthesized record concatenates the
// originals' content oldest-first, averages their embeddings, keeps the
// earliest creation time (so join-cutoff visibility never widens), takes the
// highest utility score, and lists every original id as provenance. A group
// whose merge cannot be persisted is skipped whole; originals are archived
// only after the merged record is durable.
func (c *Curator) Consolidate(ctx context.Context) (ConsolidateStats, error) {
	var stats ConsolidateStats

	records, err := c.store.ListActive(ctx)
	if err != nil {
		return stats, err
	}
	stats.Scanned = len(records)

	byOwner := make(map[string][]*storage.Record)
	for _, record := range records {
		key := record.Owner.String()
		byOwner[key] = append(byOwner[key], record)
	}

	// Deterministic owner order keeps passes reproducible.
	owners := make([]string, 0, len(byOwner))
	for key := range byOwner {
		owners = append(owners, key)
	}
	sort.Strings(owners)

	for _, key := range owners {
		groups := c.groupDuplicates(byOwner[key])
		for _, group := range groups {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			default:
			}

			stats.Groups++
			archived, err := c.mergeGroup(ctx, group)
			if err != nil {
				stats.Skipped++
				c.logger.Warn("consolidation: failed to merge group, skipping",
					"owner", key, "size", len(group), "error", err)
				continue
			}
			stats.Merged++
			stats.Archived += archived
		}
	}

	c.logger.Info("consolidation pass complete",
		"scanned", stats.Scanned, "groups", stats.Groups,
		"merged", stats.Merged, "archived", stats.Archived,
		"skipped", stats.Skipped)
	return stats, nil
}

// groupDuplicates partitions records of one owner into near-duplicate groups
// of size two or more.
func (c *Curator) groupDuplicates(records []*storage.Record) [][]*storage.Record {
	// Seed order by creation time for deterministic grouping.
	ordered := append([]*storage.Record(nil), records...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	grouped := make(map[int64]bool)
	var groups [][]*storage.Record

	for i, seed := range ordered {
		if grouped[seed.ID] {
			continue
		}

		group := []*storage.Record{seed}
		for _, candidate := range ordered[i+1:] {
			if grouped[candidate.ID] {
				continue
			}
			if embedder.CosineSimilarity(seed.Embedding, candidate.Embedding) >= c.cfg.DuplicateThreshold {
				group = append(group, candidate)
			}
		}

		if len(group) < 2 {
			continue
		}
		for _, member := range group {
			grouped[member.ID] = true
		}
		groups = append(groups, group)
	}

	return groups
}

// mergeGroup synthesizes one record from a duplicate group and archives the
// originals. Returns how many originals were archived.
func (c *Curator) mergeGroup(ctx context.Context, group []*storage.Record) (int, error) {
	merged := c.synthesize(group)

	if err := c.store.Put(ctx, merged); err != nil {
		return 0, err
	}

	archived := 0
	for _, original := range group {
		if err := c.store.Archive(ctx, original.ID); err != nil {
			// The merged record is already durable; a failed archive only
			// leaves a duplicate behind for the next pass.
			c.logger.Warn("consolidation: failed to archive original",
				"id", original.ID, "error", err)
			continue
		}
		archived++
	}

	return archived, nil
}

// synthesize builds the merged record for a group, oldest content first.
func (c *Curator) synthesize(group []*storage.Record) *storage.Record {
	contents := make([]string, 0, len(group))
	embeddings := make([][]float64, 0, len(group))
	provenance := make([]int64, 0, len(group))

	earliest := group[0].CreatedAt
	utility := group[0].UtilityScore
	latest := group[0]

	for _, record := range group {
		contents = append(contents, record.Content)
		embeddings = append(embeddings, record.Embedding)
		provenance = append(provenance, record.ID)

		if record.CreatedAt.Before(earliest) {
			earliest = record.CreatedAt
		}
		if record.UtilityScore > utility {
			utility = record.UtilityScore
		}
		if record.CreatedAt.After(latest.CreatedAt) {
			latest = record
		}
	}

	content := contents[0]
	for _, extra := range contents[1:] {
		content += "\n" + extra
	}

	return &storage.Record{
		ID:           c.newID(),
		Owner:        group[0].Owner,
		Content:      content,
		Embedding:    embedder.MeanVector(embeddings...),
		UtilityScore: utility,
		CreatedAt:    earliest,
		UpdatedAt:    c.now(),
		Metadata:     latest.Metadata,
		MergedFrom:   provenance,
	}
}
