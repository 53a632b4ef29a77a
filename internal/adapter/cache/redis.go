package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/ports"
)

const pingTimeout = 3 * time.Second

// RedisStore keeps reminder markers in Redis so every replica and every
// external cron caller sees the same claims.
type RedisStore struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisStore(url string, log *zap.Logger) (ports.MarkerStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("markers: parse redis url: %w", err)
	}
	return NewRedisStoreFromClient(redis.NewClient(opts), log)
}

// NewRedisStoreFromClient takes ownership of client; Close closes it.
func NewRedisStoreFromClient(client *redis.Client, log *zap.Logger) (ports.MarkerStore, error) {
	s := &RedisStore{client: client, log: log}
	if err := s.Ping(); err != nil {
		return nil, err
	}

	opts := client.Options()
	log.Info("Reminder markers backed by Redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return s, nil
}

// SetNX claims key for expiration. It reports false when another sweep
// already holds the claim.
func (s *RedisStore) SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("markers: claim %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("markers: release %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("markers: ping redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
