package cachestore

import (
	"context"
	"encoding/json"
	"fmt"
)

type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}

// GetJSON decodes a cached value into a T. The boolean is false on a miss.
func GetJSON[T any](ctx context.Context, cs CacheStore, name, key string) (T, bool, error) {
	var val T
	raw, err := cs.Get(ctx, name, key)
	if err != nil {
		return val, false, err
	}
	if raw == "" {
		return val, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &val); err != nil {
		return val, false, fmt.Errorf("decoding cached %s: %w", name, err)
	}
	return val, true, nil
}

func SetJSON(ctx context.Context, cs CacheStore, name, key string, val any) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return cs.Set(ctx, name, key, string(b))
}
