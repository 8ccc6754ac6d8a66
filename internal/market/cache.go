package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/optyield/optyield/internal/chain"
)

// CachedProvider serves option chains from Redis with a TTL, falling through
// to the wrapped provider on a miss. Chains are the expensive, paced calls;
// spot prices and expiration calendars are always fetched live so staleness
// only ever affects quote data, which callers already treat as "some recent
// snapshot".
//
// Redis being down is not an error: every cache failure degrades to a live
// fetch with a debug log.
type CachedProvider struct {
	next Provider
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedProvider(next Provider, rdb *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, rdb: rdb, ttl: ttl}
}

func (c *CachedProvider) ProviderName() string {
	return c.next.ProviderName() + "+cache"
}

func (c *CachedProvider) GetSpotPrice(ctx context.Context, ticker string) (float64, error) {
	return c.next.GetSpotPrice(ctx, ticker)
}

func (c *CachedProvider) ListExpirations(ctx context.Context, ticker string) ([]string, error) {
	return c.next.ListExpirations(ctx, ticker)
}

func chainKey(ticker, expiration string, side chain.Side) string {
	return fmt.Sprintf("optyield:chain:%s:%s:%s", ticker, expiration, side)
}

func (c *CachedProvider) GetChain(ctx context.Context, ticker, expiration string, side chain.Side) ([]chain.Quote, error) {
	key := chainKey(ticker, expiration, side)

	raw, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		var quotes []chain.Quote
		if err := json.Unmarshal([]byte(raw), &quotes); err == nil {
			log.WithField("key", key).Debug("chain cache hit")
			return quotes, nil
		}
		log.WithField("key", key).Debug("chain cache entry corrupt, refetching")
	} else if !errors.Is(err, redis.Nil) {
		log.WithError(err).Debug("chain cache unavailable")
	}

	quotes, err := c.next.GetChain(ctx, ticker, expiration, side)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(quotes); err == nil {
		if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			log.WithError(err).Debug("chain cache store failed")
		}
	}
	return quotes, nil
}
