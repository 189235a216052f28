// Package cache holds short-lived read caches backed by Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/Shivanand-hulikatti/slotswap/internal/service"
	"github.com/redis/go-redis/v9"
)

// RedisSwappableCache keeps swappable-slot listings per viewer with a TTL.
type RedisSwappableCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ service.SwappableCache = (*RedisSwappableCache)(nil)

// NewRedisSwappableCache constructs a cache whose entries live for ttl.
func NewRedisSwappableCache(client *redis.Client, ttl time.Duration) *RedisSwappableCache {
	return &RedisSwappableCache{client: client, ttl: ttl}
}

func key(viewerID string) string {
	return fmt.Sprintf("swappable:%s", viewerID)
}

func (c *RedisSwappableCache) Get(ctx context.Context, viewerID string) ([]model.SwappableSlot, bool, error) {
	data, err := c.client.Get(ctx, key(viewerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var slots []model.SwappableSlot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal swappable slots: %w", err)
	}
	return slots, true, nil
}

func (c *RedisSwappableCache) Set(ctx context.Context, viewerID string, slots []model.SwappableSlot) error {
	if slots == nil {
		slots = []model.SwappableSlot{}
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to marshal swappable slots: %w", err)
	}
	return c.client.Set(ctx, key(viewerID), data, c.ttl).Err()
}
