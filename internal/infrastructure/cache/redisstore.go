package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ippgi/ippgi-prices/internal/shared/config"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "ippgi:"

// deletes every key matching ARGV[1] in one step and returns the count
var deleteMatchingScript = redis.NewScript(`
local keys = redis.call('KEYS', ARGV[1])
local n = 0
for _, k in ipairs(keys) do
	n = n + redis.call('DEL', k)
end
return n
`)

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, log logger.Interface) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.GetAddr(), err)
	}
	log.Infow("redis connection established", "addr", cfg.GetAddr(), "db", cfg.DB)
	return client, nil
}

// RedisStore is a namespaced byte store with per-key TTLs. Expired and
// absent keys are both reported as not found.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key. A zero ttl keeps the key until deleted.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

// Delete removes key and reports whether it existed.
func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete %s from redis: %w", key, err)
	}
	return n > 0, nil
}

// DeleteMatching atomically removes every key starting with prefix and
// returns how many were removed.
func (s *RedisStore) DeleteMatching(ctx context.Context, prefix string) (int, error) {
	n, err := deleteMatchingScript.Run(ctx, s.client, nil, s.key(prefix)+"*").Int()
	if err != nil {
		return 0, fmt.Errorf("failed to delete keys matching %s: %w", prefix, err)
	}
	return n, nil
}

// CountMatching counts keys starting with prefix.
func (s *RedisStore) CountMatching(ctx context.Context, prefix string) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, s.key(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan keys matching %s: %w", prefix, err)
	}
	return n, nil
}

// TTL returns the remaining lifetime of key, or zero when it does not exist.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get ttl of %s: %w", key, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}
