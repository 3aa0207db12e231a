package redis

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger-service/internal/infra/metrics"
)

// DedupCache remembers gateway transaction ids that already completed intake,
// so redeliveries are answered without touching Postgres. It is an
// optimization only: a cold cache just means the store-level checks decide.
type DedupCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewDedupCache(client RedisClient, ttl time.Duration) *DedupCache {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &DedupCache{client: client, ttl: ttl}
}

func dedupKey(gatewayTxID string) string {
	return fmt.Sprintf("intake:gw:%s", gatewayTxID)
}

func (c *DedupCache) Seen(ctx context.Context, gatewayTxID string) (bool, error) {
	_, err := c.client.Get(ctx, dedupKey(gatewayTxID))
	if err != nil {
		if IsNil(err) {
			metrics.IncCacheRequest("intake_dedup", "miss")
			return false, nil
		}
		// A cache failure must not block intake.
		return false, nil
	}
	metrics.IncCacheRequest("intake_dedup", "hit")
	return true, nil
}

func (c *DedupCache) Mark(ctx context.Context, gatewayTxID string) error {
	return c.client.Set(ctx, dedupKey(gatewayTxID), "1", c.ttl)
}
