package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// BalanceCache implements ports.BalanceCache using Redis. It is strictly
// best-effort: the ledger treats every error here as a cache miss and the
// database remains the source of truth. Entries are invalidated after each
// committed mutation and expire on their own after the TTL.
type BalanceCache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewBalanceCache creates a Redis-backed balance cache.
func NewBalanceCache(client *goredis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{
		client: client,
		prefix: "wallet:balance:",
		ttl:    ttl,
	}
}

// Get retrieves a cached balance. Returns nil, nil on a miss.
func (c *BalanceCache) Get(ctx context.Context, userID uuid.UUID) (*decimal.Decimal, error) {
	val, err := c.client.Get(ctx, c.prefix+userID.String()).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis balance get: %w", err)
	}

	balance, err := decimal.NewFromString(val)
	if err != nil {
		// A corrupt entry is a miss, not an error worth failing a read for.
		return nil, nil
	}
	return &balance, nil
}

// Set stores a balance with the configured TTL.
func (c *BalanceCache) Set(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error {
	if err := c.client.Set(ctx, c.prefix+userID.String(), balance.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis balance set: %w", err)
	}
	return nil
}

// Invalidate removes a cached balance after a committed mutation.
func (c *BalanceCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Del(ctx, c.prefix+userID.String()).Err(); err != nil {
		return fmt.Errorf("redis balance del: %w", err)
	}
	return nil
}
