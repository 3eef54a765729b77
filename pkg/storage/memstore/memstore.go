// Package memstore provides an in-memory Store implementation.
//
// It is the default backend for tests and examples and needs no external
// engine. All operations copy records on the way in and out, so callers
// never observe a half-written record and cannot mutate stored state
// through a returned pointer.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/memoria-ai/memoria-go/pkg/storage"
)

// Store implements storage.Store with a mutex-guarded map.
type Store struct {
	mu         sync.RWMutex
	records    map[int64]*storage.Record
	joins      map[joinKey]time.Time
	dimensions int
}

type joinKey struct {
	conversationID string
	agentID        string
}

// New creates an in-memory store accepting vectors of the given dimensionality.
func New(dimensions int) *Store {
	return &Store{
		records:    make(map[int64]*storage.Record),
		joins:      make(map[joinKey]time.Time),
		dimensions: dimensions,
	}
}

// Put upserts a record by id.
func (s *Store) Put(ctx context.Context, record *storage.Record) error {
	if err := storage.ValidateRecord(record, s.dimensions); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneRecord(record)
	clone.UpdatedAt = time.Now()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = clone.UpdatedAt
	}
	s.records[clone.ID] = clone
	return nil
}

// Get retrieves a record by id.
func (s *Store) Get(ctx context.Context, id int64) (*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneRecord(record), nil
}

// ListByOwner returns all non-archived records for exactly the given scope.
func (s *Store) ListByOwner(ctx context.Context, owner storage.Owner) ([]*storage.Record, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Record
	for _, record := range s.records {
		if record.Archived || record.Owner != owner {
			continue
		}
		out = append(out, cloneRecord(record))
	}

	sortByCreatedAt(out)
	return out, nil
}

// ListActive returns all non-archived records across every scope.
func (s *Store) ListActive(ctx context.Context) ([]*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Record
	for _, record := range s.records {
		if record.Archived {
			continue
		}
		out = append(out, cloneRecord(record))
	}

	sortByCreatedAt(out)
	return out, nil
}

// Archive flips the archived flag. Missing ids are a no-op.
func (s *Store) Archive(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.records[id]; ok {
		record.Archived = true
		record.UpdatedAt = time.Now()
	}
	return nil
}

// BumpUtility atomically adds delta to the utility score. Missing ids are
// a no-op.
func (s *Store) BumpUtility(ctx context.Context, id int64, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.records[id]; ok {
		record.UtilityScore += delta
		record.UpdatedAt = time.Now()
	}
	return nil
}

// RecordJoin stores the join cutoff once; later calls never move it.
func (s *Store) RecordJoin(ctx context.Context, conversationID, agentID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := joinKey{conversationID: conversationID, agentID: agentID}
	if _, ok := s.joins[key]; !ok {
		s.joins[key] = at
	}
	return nil
}

// JoinTime returns the recorded join cutoff, if any.
func (s *Store) JoinTime(ctx context.Context, conversationID, agentID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at, ok := s.joins[joinKey{conversationID: conversationID, agentID: agentID}]
	return at, ok, nil
}

// ExportAll returns every record, archived included.
func (s *Store) ExportAll(ctx context.Context) ([]*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*storage.Record, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, cloneRecord(record))
	}

	sortByCreatedAt(out)
	return out, nil
}

// ImportAll upserts the given records by id.
func (s *Store) ImportAll(ctx context.Context, records []*storage.Record) error {
	for _, record := range records {
		if err := storage.ValidateRecord(record, s.dimensions); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range records {
		s.records[record.ID] = cloneRecord(record)
	}
	return nil
}

// ClearAll destroys every record and join cutoff.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[int64]*storage.Record)
	s.joins = make(map[joinKey]time.Time)
	return nil
}

// Close releases nothing; the store lives entirely in memory.
func (s *Store) Close() error {
	return nil
}

func cloneRecord(record *storage.Record) *storage.Record {
	clone := *record
	clone.Embedding = append([]float64(nil), record.Embedding...)
	clone.MergedFrom = append([]int64(nil), record.MergedFrom...)
	if record.Metadata.Tags != nil {
		clone.Metadata.Tags = append([]string(nil), record.Metadata.Tags...)
	}
	if record.Metadata.Emotional != nil {
		emotional := *record.Metadata.Emotional
		clone.Metadata.Emotional = &emotional
	}
	return &clone
}

func sortByCreatedAt(records []*storage.Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
