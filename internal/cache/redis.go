// Package cache holds Redis-backed caches for hot storefront reads.
package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

const settingsKey = "settings:currencySymbol"

// SettingsCache caches the currency symbol in Redis.
type SettingsCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

// NewSettingsCache returns a SettingsCache using client.
func NewSettingsCache(client *redis.Client) *SettingsCache {
	return &SettingsCache{
		client:  client,
		baseTTL: 5 * time.Minute,
	}
}

// GetCurrencySymbol returns the cached symbol; ok is false on a miss.
func (r *SettingsCache) GetCurrencySymbol(ctx context.Context) (string, bool, error) {
	v, err := r.client.Get(ctx, settingsKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return v, true, nil
}

// SetCurrencySymbol stores symbol with a jittered TTL so replicas do not
// expire together.
func (r *SettingsCache) SetCurrencySymbol(ctx context.Context, symbol string) error {
	jitter := time.Duration(rand.Intn(60)) * time.Second
	if err := r.client.Set(ctx, settingsKey, symbol, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
