package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria-ai/memoria-go/pkg/enrich"
	"github.com/memoria-ai/memoria-go/pkg/storage"
	"github.com/memoria-ai/memoria-go/pkg/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Client {
	t.Helper()
	client, err := sqlite.NewClient(&sqlite.Config{
		DBPath:        filepath.Join(t.TempDir(), "memoria.db"),
		EmbeddingDims: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	record := &storage.Record{
		ID:           7,
		Owner:        storage.Shared("room"),
		Content:      "the launch is Tuesday",
		Embedding:    []float64{0.5, -0.25},
		UtilityScore: 1.5,
		CreatedAt:    time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		Metadata: enrich.Metadata{
			DayOfWeek:   "Thursday",
			TimeOfDay:   enrich.TimeMorning,
			MessageType: enrich.MessageTypeStatement,
			Urgency:     enrich.UrgencyMedium,
			Tags:        []string{"project"},
			Emotional: &enrich.EmotionalContext{
				Curiosity:    0.7,
				DominantMood: "curiosity",
			},
		},
		MergedFrom: []int64{3, 4},
	}
	require.NoError(t, store.Put(ctx, record))

	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, record.Content, got.Content)
	assert.Equal(t, record.Owner, got.Owner)
	assert.Equal(t, record.Embedding, got.Embedding)
	assert.Equal(t, record.UtilityScore, got.UtilityScore)
	assert.Equal(t, record.Metadata.Tags, got.Metadata.Tags)
	require.NotNil(t, got.Metadata.Emotional)
	assert.Equal(t, "curiosity", got.Metadata.Emotional.DominantMood)
	assert.Equal(t, []int64{3, 4}, got.MergedFrom)
}

func TestPutUpsertKeepsOwner(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	record := &storage.Record{
		ID: 1, Owner: storage.Private("aria"), Content: "v1",
		Embedding: []float64{1, 0},
	}
	require.NoError(t, store.Put(ctx, record))

	// An upsert updates the payload but never moves the record between
	// scopes.
	update := &storage.Record{
		ID: 1, Owner: storage.Shared("room"), Content: "v2",
		Embedding: []float64{0, 1},
	}
	require.NoError(t, store.Put(ctx, update))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Content)
	assert.Equal(t, storage.Private("aria"), got.Owner)
}

func TestDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.Put(ctx, &storage.Record{
		ID: 1, Owner: storage.Private("aria"), Content: "bad",
		Embedding: []float64{1, 2, 3},
	})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestScopeIsolation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i, owner := range []storage.Owner{
		storage.Private("aria"),
		storage.Private("kai"),
		storage.Shared("room"),
	} {
		require.NoError(t, store.Put(ctx, &storage.Record{
			ID: int64(i + 1), Owner: owner, Content: "x",
			Embedding: []float64{1, 0},
		}))
	}

	private, err := store.ListByOwner(ctx, storage.Private("aria"))
	require.NoError(t, err)
	require.Len(t, private, 1)
	assert.Equal(t, int64(1), private[0].ID)
}

func TestArchiveAndListActive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := storage.Private("aria")

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, store.Put(ctx, &storage.Record{
			ID: i, Owner: owner, Content: "x", Embedding: []float64{1, 0},
		}))
	}
	require.NoError(t, store.Archive(ctx, 2))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	byOwner, err := store.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	// Archived records still come back from Get and ExportAll.
	got, err := store.Get(ctx, 2)
	require.NoError(t, err)
	assert.True(t, got.Archived)

	all, err := store.ExportAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Missing ids are a no-op.
	assert.NoError(t, store.Archive(ctx, 404))
}

func TestBumpUtility(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Put(ctx, &storage.Record{
		ID: 1, Owner: storage.Private("aria"), Content: "x",
		Embedding: []float64{1, 0},
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, store.BumpUtility(ctx, 1, 1))
	}
	require.NoError(t, store.BumpUtility(ctx, 1, -2))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.UtilityScore)

	assert.NoError(t, store.BumpUtility(ctx, 404, 1))
}

func TestJoinCutoffFirstWins(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordJoin(ctx, "room", "aria", first))
	require.NoError(t, store.RecordJoin(ctx, "room", "aria", first.Add(time.Hour)))

	at, ok, err := store.JoinTime(ctx, "room", "aria")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, at.Equal(first))

	_, ok, err = store.JoinTime(ctx, "room", "nyx")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExportImportClearAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Put(ctx, &storage.Record{
		ID: 1, Owner: storage.Private("aria"), Content: "keep",
		Embedding: []float64{1, 0},
	}))
	require.NoError(t, store.RecordJoin(ctx, "room", "aria", time.Now()))

	exported, err := store.ExportAll(ctx)
	require.NoError(t, err)
	require.Len(t, exported, 1)

	require.NoError(t, store.ClearAll(ctx))

	empty, err := store.ExportAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, ok, err := store.JoinTime(ctx, "room", "aria")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.ImportAll(ctx, exported))
	restored, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "keep", restored.Content)
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
