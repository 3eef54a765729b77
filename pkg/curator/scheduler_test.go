package curator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria-ai/memoria-go/pkg/curator"
	"github.com/memoria-ai/memoria-go/pkg/storage"
	"github.com/memoria-ai/memoria-go/pkg/storage/memstore"
)

func archived(t *testing.T, store storage.Store, id int64) func() bool {
	t.Helper()
	return func() bool {
		got, err := store.Get(context.Background(), id)
		return err == nil && got.Archived
	}
}

func TestSchedulerRunsDecayOnInterval(t *testing.T) {
	store := memstore.New(2)
	cur := newCurator(store)

	put(t, store, &storage.Record{
		ID: 1, Owner: storage.Private("aria"), Content: "stale",
		Embedding: []float64{1, 0},
		CreatedAt: time.Now().Add(-60 * 24 * time.Hour),
	})

	sched := curator.NewScheduler(cur, curator.SchedulerConfig{
		DecayInterval: 15 * time.Millisecond,
		IdleThreshold: time.Hour,
		PollInterval:  5 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, archived(t, store, 1), 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSchedulerConsolidatesOncePerIdlePeriod(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memstore.New(2)
	cur := newCurator(store)

	// Near-duplicates that an idle consolidation pass will fold together.
	put(t, store, &storage.Record{
		ID: 1, Owner: storage.Private("aria"), Content: "the launch is Tuesday",
		Embedding: []float64{1, 0}, CreatedAt: time.Now(),
	})
	put(t, store, &storage.Record{
		ID: 2, Owner: storage.Private("aria"), Content: "launch happens Tuesday",
		Embedding: []float64{1, 0}, CreatedAt: time.Now(),
	})

	sched := curator.NewScheduler(cur, curator.SchedulerConfig{
		DecayInterval: time.Hour,
		IdleThreshold: 30 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
	}, nil)

	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, archived(t, store, 1), 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, archived(t, store, 2), 2*time.Second, 10*time.Millisecond)

	// A second duplicate pair appears, but no activity has been signaled
	// since the pass: the same idle period never consolidates twice.
	put(t, store, &storage.Record{
		ID: 3, Owner: storage.Private("aria"), Content: "standup moved to nine",
		Embedding: []float64{0, 1}, CreatedAt: time.Now(),
	})
	put(t, store, &storage.Record{
		ID: 4, Owner: storage.Private("aria"), Content: "standup is at nine now",
		Embedding: []float64{0, 1}, CreatedAt: time.Now(),
	})

	time.Sleep(150 * time.Millisecond)
	got, err := store.Get(ctx, 3)
	require.NoError(t, err)
	assert.False(t, got.Archived)

	// Activity re-arms consolidation for the next idle period.
	sched.Touch()
	require.Eventually(t, archived(t, store, 3), 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, archived(t, store, 4), 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(2)

	// Only one knob set: the others must keep their default values, not
	// collapse to zero.
	cur := curator.New(store, func() int64 { return 99 }, curator.Config{
		ArchiveThreshold: 0.2,
	}, nil)

	// Zero weights would make every score zero.
	fresh := &storage.Record{
		ID: 1, Owner: storage.Private("aria"), Content: "fresh",
		Embedding: []float64{1, 0}, CreatedAt: time.Now(),
	}
	assert.Greater(t, cur.Score(fresh, time.Now()), 0.0)

	// A zero duplicate threshold would group any non-opposed pair.
	put(t, store, fresh)
	put(t, store, &storage.Record{
		ID: 2, Owner: storage.Private("aria"), Content: "unrelated",
		Embedding: []float64{0, 1}, CreatedAt: time.Now(),
	})

	stats, err := cur.Consolidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Merged)

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, got.Archived)
}
