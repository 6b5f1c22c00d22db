package fx

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// rateLimited decorates a Provider with a token-bucket limiter, generalizing
// RumoClaro's main.go API rate limiter (golang.org/x/time/rate.NewLimiter)
// onto outbound FX lookups instead of inbound HTTP requests.
type rateLimited struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps p so that Rate calls are throttled to at most
// eventsPerSecond, bursting up to burst — for Provider implementations
// whose FetchFunc hits a metered upstream.
func WithRateLimit(p Provider, eventsPerSecond float64, burst int) Provider {
	return &rateLimited{inner: p, limiter: rate.NewLimiter(rate.Limit(eventsPerSecond), burst)}
}

func (r *rateLimited) Rate(day time.Time, currency string) (decimal.Decimal, error) {
	if err := r.limiter.Wait(context.Background()); err != nil {
		return decimal.Zero, err
	}
	return r.inner.Rate(day, currency)
}
