package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is a concurrency-safe in-memory implementation of Store,
// used for tests and ephemeral runs. Records do not survive restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*StoredQuery
	ordered []string // ids in insertion order
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*StoredQuery)}
}

func (s *MemoryStore) Create(_ context.Context, q *StoredQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[q.ID]; exists {
		return fmt.Errorf("duplicate stored query id %q", q.ID)
	}
	cp := *q
	s.byID[q.ID] = &cp
	s.ordered = append(s.ordered, q.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*StoredQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *MemoryStore) Update(_ context.Context, q *StoredQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[q.ID]; !ok {
		return ErrNotFound
	}
	cp := *q
	s.byID[q.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateFields(_ context.Context, id string, f Fields) (*StoredQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	applyFields(q, f)
	cp := *q
	return &cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	for i, v := range s.ordered {
		if v == id {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]StoredQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]StoredQuery, 0, len(s.ordered))
	for _, id := range s.ordered {
		result = append(result, *s.byID[id])
	}
	return result, nil
}

func (s *MemoryStore) Close() error { return nil }
