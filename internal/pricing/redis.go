package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// QuoteChannel is the pub/sub channel every cached quote is published on
const QuoteChannel = "quotes"

// RedisCache stores the latest quote per symbol as a hash with an expiry
type RedisCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisCache(rdb redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

func (c *RedisCache) Put(ctx context.Context, q Quote) error {
	key := quoteKey(q.Symbol)

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, quoteFields(q))
	pipe.Expire(ctx, key, c.ttl)

	payload, err := json.Marshal(q)
	if err != nil {
		return err
	}
	pipe.Publish(ctx, QuoteChannel, payload)

	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisCache) Get(ctx context.Context, symbol string) (Quote, error) {
	fields, err := c.rdb.HGetAll(ctx, quoteKey(symbol)).Result()
	if err != nil {
		return Quote{}, err
	}
	return quoteFromFields(symbol, fields)
}

func quoteFields(q Quote) map[string]interface{} {
	return map[string]interface{}{
		"bid":  q.Bid.String(),
		"ask":  q.Ask.String(),
		"time": q.Time.UnixMilli(),
	}
}

func quoteFromFields(symbol string, fields map[string]string) (Quote, error) {
	if len(fields) == 0 {
		return Quote{}, fmt.Errorf("%w: %s not cached", ErrQuoteUnavailable, symbol)
	}
	bid, err := decimal.NewFromString(fields["bid"])
	if err != nil {
		return Quote{}, fmt.Errorf("cached bid for %s: %w", symbol, err)
	}
	ask, err := decimal.NewFromString(fields["ask"])
	if err != nil {
		return Quote{}, fmt.Errorf("cached ask for %s: %w", symbol, err)
	}
	ms, err := strconv.ParseInt(fields["time"], 10, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("cached time for %s: %w", symbol, err)
	}
	return Quote{Symbol: symbol, Bid: bid, Ask: ask, Time: time.UnixMilli(ms)}, nil
}
