// Package ratelimit implements fixed-window rate buckets on top of a countstore.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nutsandbolts/modcore/automod/countstore"
)

var ErrInvalidBucket = errors.New("invalid rate bucket configuration")

// Bucket allows up to Capacity events per key in each window of Period. The window for a key starts at its first event, and restarts with the first event at least Period after the window start.
type Bucket struct {
	// Prefixed to keys in the store, so several buckets may share one store.
	Name     string
	Capacity int
	Period   time.Duration
	Store    countstore.CountStore
}

// NewBucket creates a bucket with its own in-memory store.
func NewBucket(name string, capacity int, period time.Duration) (*Bucket, error) {
	return NewBucketWithStore(name, capacity, period, countstore.NewMemCountStore())
}

func NewBucketWithStore(name string, capacity int, period time.Duration, store countstore.CountStore) (*Bucket, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: negative capacity %d", ErrInvalidBucket, capacity)
	}
	if period <= 0 {
		return nil, fmt.Errorf("%w: non-positive period %s", ErrInvalidBucket, period)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: no count store", ErrInvalidBucket)
	}
	return &Bucket{
		Name:     name,
		Capacity: capacity,
		Period:   period,
		Store:    store,
	}, nil
}

// Check records an event for key at the given time, and reports whether the key has now exceeded capacity in its current window.
//
// The timestamp is supplied by the caller (eg, the message creation time), never read from the wall clock.
func (b *Bucket) Check(ctx context.Context, key string, at time.Time) (bool, error) {
	count, err := b.Store.Hit(ctx, b.storeKey(key), at, b.Period)
	if err != nil {
		return false, fmt.Errorf("rate bucket %s: %w", b.Name, err)
	}
	return count > b.Capacity, nil
}

// Count returns the number of events recorded in key's most recent window.
func (b *Bucket) Count(ctx context.Context, key string) (int, error) {
	return b.Store.GetCount(ctx, b.storeKey(key))
}

func (b *Bucket) storeKey(key string) string {
	if b.Name == "" {
		return key
	}
	return b.Name + "/" + key
}
