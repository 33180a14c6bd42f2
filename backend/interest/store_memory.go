package interest

import (
	"context"
	"sync"
)

// Edge is a directed interest from one identity to another.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type MemoryEdgeStore struct {
	mu    sync.RWMutex
	edges map[Edge]struct{}
}

func NewMemoryEdgeStore() *MemoryEdgeStore {
	return &MemoryEdgeStore{edges: make(map[Edge]struct{})}
}

func (s *MemoryEdgeStore) HasEdge(_ context.Context, from, to string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.edges[Edge{From: from, To: to}]
	return ok, nil
}

func (s *MemoryEdgeStore) InsertEdge(_ context.Context, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := Edge{From: from, To: to}
	if _, ok := s.edges[e]; ok {
		return false, nil
	}
	s.edges[e] = struct{}{}
	return true, nil
}

// Len is the number of stored edges.
func (s *MemoryEdgeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

func (s *MemoryEdgeStore) Close() error { return nil }
