package fx

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// FetchFunc retrieves a single day/currency rate from an upstream source
// (e.g. the ECB reference table a host adapter would load). CachedProvider
// never calls out over the network itself — it only wraps whatever fetch
// function the host supplies.
type FetchFunc func(day time.Time, currency string) (decimal.Decimal, error)

// CachedProvider generalizes RumoClaro's in-process report cache
// (main.go's `cache.New(5*time.Minute, 10*time.Minute)`) into a TTL-backed
// memo over FX lookups, with the same CNH->CNY normalization and fallback
// window every Provider implementation applies.
type CachedProvider struct {
	fetch       FetchFunc
	store       *cache.Cache
	maxFallback int
}

// NewCachedProvider wraps fetch with a go-cache instance using the given TTL
// and cleanup interval.
func NewCachedProvider(fetch FetchFunc, ttl, cleanupInterval time.Duration, maxFallbackDays int) *CachedProvider {
	return &CachedProvider{
		fetch:       fetch,
		store:       cache.New(ttl, cleanupInterval),
		maxFallback: maxFallbackDays,
	}
}

func (p *CachedProvider) Rate(day time.Time, ccy string) (decimal.Decimal, error) {
	ccy = normalize(ccy)
	if ccy == "EUR" {
		return decimal.NewFromInt(1), nil
	}

	for i := 0; i <= p.maxFallback; i++ {
		candidate := day.AddDate(0, 0, -i)
		cacheKey := key(ccy, candidate)

		if cached, ok := p.store.Get(cacheKey); ok {
			if rate, ok := cached.(decimal.Decimal); ok {
				return rate, nil
			}
		}

		rate, err := p.fetch(candidate, ccy)
		if err == nil {
			p.store.SetDefault(cacheKey, rate)
			return rate, nil
		}
	}
	return decimal.Zero, &ErrRateUnavailable{Currency: ccy, Day: day, Window: p.maxFallback}
}
