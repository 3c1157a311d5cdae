package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tokenscout/tokenscout/internal/domain"
)

const defaultListingsTTL = time.Minute

// MarketCache implements domain.MarketCache using one JSON-serialized
// value per market-data provider.
//
// Key schema:
//
//	listings:{source} - JSON array of tokens from that provider
type MarketCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMarketCache creates a MarketCache backed by the given Client. A
// non-positive TTL falls back to one minute.
func NewMarketCache(c *Client, ttl time.Duration) *MarketCache {
	if ttl <= 0 {
		ttl = defaultListingsTTL
	}
	return &MarketCache{rdb: c.Underlying(), ttl: ttl}
}

func listingsKey(source string) string { return "listings:" + source }

// SetListings stores a provider's listings with the configured TTL.
func (mc *MarketCache) SetListings(ctx context.Context, source string, tokens []domain.Token) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("redis: marshal listings %s: %w", source, err)
	}
	if err := mc.rdb.Set(ctx, listingsKey(source), data, mc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set listings %s: %w", source, err)
	}
	return nil
}

// GetListings retrieves a provider's cached listings. It returns
// domain.ErrNotFound when the key does not exist or has expired.
func (mc *MarketCache) GetListings(ctx context.Context, source string) ([]domain.Token, error) {
	data, err := mc.rdb.Get(ctx, listingsKey(source)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get listings %s: %w", source, err)
	}

	var tokens []domain.Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("redis: unmarshal listings %s: %w", source, err)
	}
	return tokens, nil
}

// Invalidate drops a provider's cached listings.
func (mc *MarketCache) Invalidate(ctx context.Context, source string) error {
	if err := mc.rdb.Del(ctx, listingsKey(source)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate listings %s: %w", source, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
