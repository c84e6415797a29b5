// Package redis caches computed availability answers. Entries of a listing
// are namespaced by a generation counter; invalidating a listing bumps the
// counter so every older entry becomes unreachable and expires on its own.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"staybook/internal/app/dto"
	"staybook/internal/app/policies"
)

const keyPrefix = "staybook:availability:"

type AvailabilityCache struct {
	client goredis.Cmdable
	ttl    time.Duration
}

func NewAvailabilityCache(client goredis.Cmdable, ttl time.Duration) *AvailabilityCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AvailabilityCache{client: client, ttl: ttl}
}

func generationKey(listingID string) string {
	return keyPrefix + listingID + ":gen"
}

func entryKey(listingID string, gen int64, key string) string {
	return fmt.Sprintf("%s%s:%d:%s", keyPrefix, listingID, gen, key)
}

func (c *AvailabilityCache) generation(ctx context.Context, listingID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(listingID)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *AvailabilityCache) Get(ctx context.Context, listingID, key string) (dto.Availability, bool, error) {
	gen, err := c.generation(ctx, listingID)
	if err != nil {
		return dto.Availability{}, false, err
	}
	raw, err := c.client.Get(ctx, entryKey(listingID, gen, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return dto.Availability{}, false, nil
	}
	if err != nil {
		return dto.Availability{}, false, err
	}
	var out dto.Availability
	if err := json.Unmarshal(raw, &out); err != nil {
		return dto.Availability{}, false, err
	}
	return out, true, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, listingID, key string, value dto.Availability) error {
	gen, err := c.generation(ctx, listingID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, entryKey(listingID, gen, key), payload, c.ttl).Err()
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, listingID string) error {
	return c.client.Incr(ctx, generationKey(listingID)).Err()
}

// Ping backs the readiness probe.
func Ping(ctx context.Context, client goredis.UniversalClient) error {
	return client.Ping(ctx).Err()
}

var _ policies.AvailabilityCache = (*AvailabilityCache)(nil)
