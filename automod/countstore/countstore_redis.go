package countstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisCountPrefix string = "window/"

// check, reset, and increment in a single round-trip, atomically on the server
var hitScript = redis.NewScript(`
local ts = tonumber(ARGV[1])
local period = tonumber(ARGV[2])
local start = tonumber(redis.call('HGET', KEYS[1], 'start'))
local count = tonumber(redis.call('HGET', KEYS[1], 'count'))
if start == nil or count == nil or ts - start >= period then
	start = ts
	count = 0
end
count = count + 1
redis.call('HSET', KEYS[1], 'start', start, 'count', count)
redis.call('PEXPIRE', KEYS[1], period * 2)
return count
`)

// RedisCountStore shares windows between processes. Timestamps are stored with millisecond precision.
//
// Keys expire after twice their window period of inactivity, which is not observable through Hit (an expired window would have reset anyway).
type RedisCountStore struct {
	Client *redis.Client
}

var _ CountStore = (*RedisCountStore)(nil)

func NewRedisCountStore(redisURL string) (*RedisCountStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	rcs := RedisCountStore{
		Client: rdb,
	}
	return &rcs, nil
}

func (s *RedisCountStore) Hit(ctx context.Context, key string, at time.Time, period time.Duration) (int, error) {
	c, err := hitScript.Run(ctx, s.Client, []string{redisCountPrefix + key}, at.UnixMilli(), period.Milliseconds()).Int()
	if err != nil {
		return 0, err
	}
	return c, nil
}

func (s *RedisCountStore) GetCount(ctx context.Context, key string) (int, error) {
	c, err := s.Client.HGet(ctx, redisCountPrefix+key, "count").Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}
