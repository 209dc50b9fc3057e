package cache

import (
	"context"
	"time"
)

// NoOpCache is used when CACHE_PROVIDER=none or Redis is unreachable.
// Every lookup is a miss.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetGeneration(ctx context.Context, key string) (*Generation, error) {
	return nil, nil
}

func (c *NoOpCache) SetGeneration(ctx context.Context, key string, gen *Generation, ttl time.Duration) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
