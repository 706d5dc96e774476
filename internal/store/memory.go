package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process RecordStore backed by nested maps. It is the
// default driver for tests and local development.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]json.RawMessage
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]json.RawMessage)}
}

// Get returns a copy of the stored record or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(json.RawMessage, len(rec))
	copy(out, rec)
	return out, nil
}

// List returns copies of every record in the collection.
func (s *MemoryStore) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(s.data[collection]))
	for id, rec := range s.data[collection] {
		cp := make(json.RawMessage, len(rec))
		copy(cp, rec)
		out[id] = cp
	}
	return out, nil
}

// Upsert stores a copy of the record under the given id.
func (s *MemoryStore) Upsert(ctx context.Context, collection, id string, record json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.data[collection]
	if !ok {
		coll = make(map[string]json.RawMessage)
		s.data[collection] = coll
	}
	cp := make(json.RawMessage, len(record))
	copy(cp, record)
	coll[id] = cp
	return nil
}

// Remove deletes the record if present.
func (s *MemoryStore) Remove(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data[collection], id)
	return nil
}
