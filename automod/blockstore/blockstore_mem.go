package blockstore

import (
	"context"
	"sort"
	"sync"
)

type MemBlockStore struct {
	mu   sync.RWMutex
	Data map[string]map[string]bool
}

var _ BlockStore = (*MemBlockStore)(nil)

func NewMemBlockStore() *MemBlockStore {
	return &MemBlockStore{
		Data: make(map[string]map[string]bool),
	}
}

func (s *MemBlockStore) IsBlocked(ctx context.Context, scope, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Data[scope][id], nil
}

func (s *MemBlockStore) Block(ctx context.Context, scope, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.Data[scope]
	if !ok {
		set = make(map[string]bool)
		s.Data[scope] = set
	}
	if set[id] {
		return false, nil
	}
	set[id] = true
	return true, nil
}

func (s *MemBlockStore) Unblock(ctx context.Context, scope, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.Data[scope]
	if !ok || !set[id] {
		return false, nil
	}
	delete(set, id)
	return true, nil
}

// List returns the blocked IDs in a scope, sorted.
func (s *MemBlockStore) List(ctx context.Context, scope string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []string{}
	for id := range s.Data[scope] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
