package registry

import (
	"context"
	"sync"

	"github.com/BaSui01/browseruse/types"
)

// MemoryStore keeps records in a process-local map. Strictly additive:
// no expiry, no bounded size, lifetime equals the process lifetime.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]types.TaskRecord
}

// NewMemoryStore creates an empty in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]types.TaskRecord),
	}
}

// Record inserts or overwrites the entry for rec.TaskID.
func (s *MemoryStore) Record(ctx context.Context, rec types.TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.TaskID] = rec
	return nil
}

// Lookup returns the record for id, or ErrNotFound.
func (s *MemoryStore) Lookup(ctx context.Context, id string) (types.TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return types.TaskRecord{}, ErrNotFound
	}
	return rec, nil
}

// List returns all stored records in unspecified order.
func (s *MemoryStore) List(ctx context.Context) ([]types.TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.TaskRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
