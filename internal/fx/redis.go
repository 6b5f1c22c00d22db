package fx

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// RedisProvider is the shared-cache counterpart of CachedProvider, for hosts
// running the engine across multiple processes that want one warm rate
// table instead of N in-process ones. Same fetch/fallback contract.
type RedisProvider struct {
	fetch       FetchFunc
	client      *redis.Client
	ttl         time.Duration
	maxFallback int
}

// NewRedisProvider wraps fetch with a redis-backed memo.
func NewRedisProvider(client *redis.Client, fetch FetchFunc, ttl time.Duration, maxFallbackDays int) *RedisProvider {
	return &RedisProvider{fetch: fetch, client: client, ttl: ttl, maxFallback: maxFallbackDays}
}

func (p *RedisProvider) Rate(day time.Time, ccy string) (decimal.Decimal, error) {
	ccy = normalize(ccy)
	if ccy == "EUR" {
		return decimal.NewFromInt(1), nil
	}

	ctx := context.Background()
	for i := 0; i <= p.maxFallback; i++ {
		candidate := day.AddDate(0, 0, -i)
		cacheKey := key(ccy, candidate)

		if s, err := p.client.Get(ctx, cacheKey).Result(); err == nil {
			if rate, parseErr := decimal.NewFromString(s); parseErr == nil {
				return rate, nil
			}
		}

		rate, err := p.fetch(candidate, ccy)
		if err == nil {
			p.client.Set(ctx, cacheKey, rate.String(), p.ttl)
			return rate, nil
		}
	}
	return decimal.Zero, &ErrRateUnavailable{Currency: ccy, Day: day, Window: p.maxFallback}
}
