package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefix for cached generations
const generationKeyPrefix = "llm:gen:"

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(addr, password string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisCache{
		client: client,
	}, nil
}

func (c *RedisCache) GetGeneration(ctx context.Context, key string) (*Generation, error) {
	data, err := c.client.Get(ctx, generationKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var gen Generation
	if err := json.Unmarshal(data, &gen); err != nil {
		return nil, err
	}
	return &gen, nil
}

func (c *RedisCache) SetGeneration(ctx context.Context, key string, gen *Generation, ttl time.Duration) error {
	data, err := json.Marshal(gen)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, generationKeyPrefix+key, data, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
