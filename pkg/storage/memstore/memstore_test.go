package memstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria-ai/memoria-go/pkg/storage"
	"github.com/memoria-ai/memoria-go/pkg/storage/memstore"
)

func newRecord(id int64, owner storage.Owner) *storage.Record {
	return &storage.Record{
		ID:        id,
		Owner:     owner,
		Content:   "content",
		Embedding: []float64{1, 0},
		CreatedAt: time.Now(),
	}
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(2)

	record := newRecord(1, storage.Private("aria"))
	require.NoError(t, store.Put(ctx, record))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, record.Content, got.Content)
	assert.Equal(t, record.Owner, got.Owner)
}

func TestGetMissing(t *testing.T) {
	store := memstore.New(2)
	_, err := store.Get(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPutDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(3)

	record := newRecord(1, storage.Private("aria"))
	record.Embedding = []float64{1, 0} // wrong length
	err := store.Put(ctx, record)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestPutInvalidOwner(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(2)

	record := newRecord(1, storage.Owner{})
	err := store.Put(ctx, record)
	assert.ErrorIs(t, err, storage.ErrInvalidOwner)
}

func TestScopeIsolation(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(2)

	require.NoError(t, store.Put(ctx, newRecord(1, storage.Private("aria"))))
	require.NoError(t, store.Put(ctx, newRecord(2, storage.Private("kai"))))
	require.NoError(t, store.Put(ctx, newRecord(3, storage.Shared("room"))))

	private, err := store.ListByOwner(ctx, storage.Private("aria"))
	require.NoError(t, err)
	require.Len(t, private, 1)
	assert.Equal(t, int64(1), private[0].ID)

	shared, err := store.ListByOwner(ctx, storage.Shared("room"))
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, int64(3), shared[0].ID)
}

func TestArchiveExcludesFromListings(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(2)
	owner := storage.Private("aria")

	require.NoError(t, store.Put(ctx, newRecord(1, owner)))
	require.NoError(t, store.Put(ctx, newRecord(2, owner)))
	require.NoError(t, store.Archive(ctx, 1))

	active, err := store.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(2), active[0].ID)

	// Archived records are retained, not deleted.
	archived, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	all, err := store.ExportAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestArchiveMissingIsNoOp(t *testing.T) {
	store := memstore.New(2)
	assert.NoError(t, store.Archive(context.Background(), 404))
}

func TestBumpUtilityAtomicUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(2)
	require.NoError(t, store.Put(ctx, newRecord(1, storage.Private("aria"))))

	const workers = 20
	const bumpsPerWorker = 25

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < bumpsPerWorker; j++ {
				assert.NoError(t, store.BumpUtility(ctx, 1, 1))
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(workers*bumpsPerWorker), got.UtilityScore)
}

func TestBumpUtilityMissingIsNoOp(t *testing.T) {
	store := memstore.New(2)
	assert.NoError(t, store.BumpUtility(context.Background(), 404, 1))
}

func TestBumpUtilityMayGoNegative(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(2)
	require.NoError(t, store.Put(ctx, newRecord(1, storage.Private("aria"))))
	require.NoError(t, store.BumpUtility(ctx, 1, -3))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, -3.0, got.UtilityScore)
}

func TestJoinCutoffFirstWins(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(2)

	first := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	require.NoError(t, store.RecordJoin(ctx, "room", "aria", first))
	require.NoError(t, store.RecordJoin(ctx, "room", "aria", later))

	at, ok, err := store.JoinTime(ctx, "room", "aria")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, at)
}

func TestJoinTimeMissing(t *testing.T) {
	store := memstore.New(2)
	_, ok, err := store.JoinTime(context.Background(), "room", "nyx")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(2)
	owner := storage.Shared("room")

	require.NoError(t, store.Put(ctx, newRecord(1, owner)))
	require.NoError(t, store.Put(ctx, newRecord(2, owner)))
	require.NoError(t, store.Archive(ctx, 2))

	exported, err := store.ExportAll(ctx)
	require.NoError(t, err)
	require.Len(t, exported, 2)

	restored := memstore.New(2)
	require.NoError(t, restored.ImportAll(ctx, exported))

	all, err := restored.ExportAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// The archived flag survives the round trip.
	got, err := restored.Get(ctx, 2)
	require.NoError(t, err)
	assert.True(t, got.Archived)
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(2)

	require.NoError(t, store.Put(ctx, newRecord(1, storage.Private("aria"))))
	require.NoError(t, store.RecordJoin(ctx, "room", "aria", time.Now()))
	require.NoError(t, store.ClearAll(ctx))

	all, err := store.ExportAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, ok, err := store.JoinTime(ctx, "room", "aria")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(2)
	require.NoError(t, store.Put(ctx, newRecord(1, storage.Private("aria"))))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	got.Content = "mutated"
	got.Embedding[0] = 99

	again, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "content", again.Content)
	assert.Equal(t, 1.0, again.Embedding[0])
}
