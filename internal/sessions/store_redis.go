package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "recruitment:session:"

// RedisStore keeps snapshots in Redis; expiry is the key TTL.
type RedisStore struct {
	Client *redis.Client
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Save(ctx context.Context, snap Snapshot, ttl time.Duration) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, redisKey(snap.ID), data, ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (Snapshot, error) {
	data, err := s.Client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	return decodeSnapshot(data)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.Client.Del(ctx, redisKey(id)).Err()
}

var _ Store = (*RedisStore)(nil)
