package blockstore

import (
	"context"
	"sort"

	"github.com/redis/go-redis/v9"
)

var redisBlockPrefix string = "blocks/"

// RedisBlockStore keeps one redis set per scope.
type RedisBlockStore struct {
	Client *redis.Client
}

var _ BlockStore = (*RedisBlockStore)(nil)

func NewRedisBlockStore(redisURL string) (*RedisBlockStore, error) {
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
	rbs := RedisBlockStore{
		Client: rdb,
	}
	return &rbs, nil
}

func (s *RedisBlockStore) IsBlocked(ctx context.Context, scope, id string) (bool, error) {
	return s.Client.SIsMember(ctx, redisBlockPrefix+scope, id).Result()
}

func (s *RedisBlockStore) Block(ctx context.Context, scope, id string) (bool, error) {
	n, err := s.Client.SAdd(ctx, redisBlockPrefix+scope, id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisBlockStore) Unblock(ctx context.Context, scope, id string) (bool, error) {
	n, err := s.Client.SRem(ctx, redisBlockPrefix+scope, id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisBlockStore) List(ctx context.Context, scope string) ([]string, error) {
	l, err := s.Client.SMembers(ctx, redisBlockPrefix+scope).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(l)
	return l, nil
}
