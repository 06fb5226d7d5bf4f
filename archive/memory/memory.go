// Package memory provides an in-memory archive store, mainly for tests and
// short-lived tools.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/smallnest/textflow/archive"
)

// MemoryStore implements archive.Store with an in-process map.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*archive.Record
}

var _ archive.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*archive.Record),
	}
}

// Save stores a record.
func (s *MemoryStore) Save(_ context.Context, record *archive.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.records[record.ID] = &copied
	return nil
}

// Get retrieves a record by ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*archive.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, archive.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// List returns up to limit records, newest first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]*archive.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*archive.Record, 0, len(s.records))
	for _, record := range s.records {
		copied := *record
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes a record by ID.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return archive.ErrNotFound
	}
	delete(s.records, id)
	return nil
}
