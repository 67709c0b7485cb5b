package countstore

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const memShards = 16

type memShard struct {
	mu      sync.Mutex
	windows map[string]*window
	// used instead of windows when the store is bounded
	lru *expirable.LRU[string, *window]
}

func (s *memShard) get(key string) (*window, bool) {
	if s.lru != nil {
		return s.lru.Get(key)
	}
	w, ok := s.windows[key]
	return w, ok
}

func (s *memShard) put(key string, w *window) {
	if s.lru != nil {
		// re-adding refreshes the entry's TTL
		s.lru.Add(key, w)
		return
	}
	s.windows[key] = w
}

// MemCountStore is a process-local CountStore. Keys are spread over a fixed number of shards, each guarded by its own mutex.
//
// The unbounded variant never forgets a key once seen.
type MemCountStore struct {
	shards [memShards]*memShard
}

// NewMemCountStore returns an unbounded store: entries are created on first use and never removed.
func NewMemCountStore() *MemCountStore {
	s := &MemCountStore{}
	for i := range s.shards {
		s.shards[i] = &memShard{windows: make(map[string]*window)}
	}
	return s
}

// NewBoundedMemCountStore returns a store which holds at most (roughly) `capacity` keys, evicting least-recently-hit keys first, and dropping keys not hit within `ttl`.
//
// `ttl` should be at least as long as the longest window period used with this store, otherwise windows may restart early.
func NewBoundedMemCountStore(capacity int, ttl time.Duration) *MemCountStore {
	per := capacity / memShards
	if per < 1 {
		per = 1
	}
	s := &MemCountStore{}
	for i := range s.shards {
		s.shards[i] = &memShard{lru: expirable.NewLRU[string, *window](per, nil, ttl)}
	}
	return s
}

func (s *MemCountStore) shard(key string) *memShard {
	return s.shards[shardIndex(key, memShards)]
}

func (s *MemCountStore) Hit(ctx context.Context, key string, at time.Time, period time.Duration) (int, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.get(key)
	if !ok {
		w = &window{}
	}
	c := w.hit(at, period)
	sh.put(key, w)
	return c, nil
}

func (s *MemCountStore) GetCount(ctx context.Context, key string) (int, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.get(key)
	if !ok {
		return 0, nil
	}
	return w.count, nil
}

// Len returns the number of tracked keys.
func (s *MemCountStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		if sh.lru != nil {
			n += sh.lru.Len()
		} else {
			n += len(sh.windows)
		}
		sh.mu.Unlock()
	}
	return n
}
