package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/betonplant/backend/internal/domain/weighing"
	"github.com/betonplant/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// RedisTokenStore implements CaptureTokenStore using Redis.
// This is suitable for distributed deployments where multiple instances
// must agree on which capture tokens have been spent.
type RedisTokenStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTokenStore creates a new Redis-based capture token store
func NewRedisTokenStore(cfg *config.RedisConfig) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTokenStore{
		client:    client,
		keyPrefix: "scale:capture:",
	}, nil
}

// NewRedisTokenStoreWithClient creates a store with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisTokenStoreWithClient(client *redis.Client, keyPrefix string) *RedisTokenStore {
	if keyPrefix == "" {
		keyPrefix = "scale:capture:"
	}
	return &RedisTokenStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkCaptured marks a capture token as used with a TTL.
// Returns true if the token was newly marked, false if it was already used.
// Uses SETNX (SET if Not eXists) for atomic operation.
func (s *RedisTokenStore) MarkCaptured(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	key := s.keyPrefix + token

	result, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark capture token: %w", err)
	}

	return result, nil
}

// Close closes the Redis client
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

var _ weighing.CaptureTokenStore = (*RedisTokenStore)(nil)
